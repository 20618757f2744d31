package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func NewAskCommand() *cobra.Command {
	f := NewAppFlags()

	cmd := &cobra.Command{
		Use:   "ask QUESTION",
		Short: "Ask the assistant a question about recent conversations",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, err := f.newApp(ctx)
			if err != nil {
				return err
			}
			defer a.dbc.Close()

			answer := a.assistant.Ask(ctx, strings.Join(args, " "))
			fmt.Fprintln(os.Stdout, answer.Answer)
			return nil
		},
	}

	f.BindFlags(cmd.Flags())
	return cmd
}
