package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/chatlens/chatlens/pkg/pipeline"
	"github.com/chatlens/chatlens/pkg/server"
)

func NewProcessCommand() *cobra.Command {
	f := NewAppFlags()

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Classify unprocessed customer messages",
		Long: `Runs one batch of unprocessed customer messages through sentiment, embedding
and topic analysis. With --process-interval the batch is repeated until the
process is interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := f.newApp(ctx)
			if err != nil {
				return err
			}
			defer a.dbc.Close()

			if f.AnalysisFlags.ProcessInterval > 0 {
				sweeper := pipeline.NewSweeper(a.pipeline, f.AnalysisFlags.ProcessInterval, f.AnalysisFlags.BatchLimit)
				server.NewDaemonServer([]server.DaemonProcess{sweeper}).Run(ctx)
				return nil
			}

			processed, err := a.pipeline.ProcessBatch(ctx, f.AnalysisFlags.BatchLimit)
			if err != nil {
				return errors.WithMessage(err, "could not process messages")
			}
			log.Infof("processed %d messages", processed)
			return nil
		},
	}

	f.BindFlags(cmd.Flags())
	return cmd
}
