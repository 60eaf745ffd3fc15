package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	srv "github.com/mohammad-safakhou/azadi/internal/server"
)

// tokenCMD signs a forum token for local testing of the reward routes.
func tokenCMD(load loader) *cobra.Command {
	var ttl time.Duration
	var token = &cobra.Command{
		Use:   "token <user-id>",
		Short: "Sign a forum JWT for a user id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if cfg.Server.JWTSecret == "" {
				return errors.New("server.jwt_secret not configured")
			}
			tok, err := srv.SignToken(args[0], []byte(cfg.Server.JWTSecret), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	token.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return token
}
