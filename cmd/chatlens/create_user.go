package main

import (
	"bufio"
	"context"
	"os"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/chatlens/chatlens/pkg/auth"
	"github.com/chatlens/chatlens/pkg/flags"
)

func NewCreateUserCommand() *cobra.Command {
	dbFlags := flags.NewPostgresDatabaseFlags()
	var in auth.NewUser
	var role string

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Create a dashboard user",
		Long:  `Creates a user. The password is read from the first line of standard input.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil && line == "" {
				return errors.Wrap(err, "could not read password from stdin")
			}
			in.Password = strings.TrimRight(line, "\r\n")
			in.Role = auth.Role(role)

			dbc, err := dbFlags.GetDBClient()
			if err != nil {
				return errors.WithMessage(err, "couldn't get DB client")
			}
			defer dbc.Close()

			svc := auth.NewService(auth.NewDBUserStore(dbc), auth.NewLoginLimiter(), auth.NewSessionStore())
			user, err := svc.Bootstrap(context.Background(), in)
			if err != nil {
				return errors.WithMessage(err, "could not create user")
			}
			log.WithFields(log.Fields{"username": user.Username, "role": user.Role}).Info("user created")
			return nil
		},
	}

	dbFlags.BindFlags(cmd.Flags())
	cmd.Flags().StringVar(&in.Username, "username", "", "Login name")
	cmd.Flags().StringVar(&in.FullName, "full-name", "", "Display name")
	cmd.Flags().StringVar(&in.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&role, "role", string(auth.RoleAgent), "Role: admin, manager or agent")
	_ = cmd.MarkFlagRequired("username")
	return cmd
}
