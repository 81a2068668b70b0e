package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-boarding/pkg/config"
	"github.com/goliatone/go-boarding/pkg/persistence"
)

func sessionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Work with login sessions used in session identity mode",
	}
	cmd.AddCommand(sessionIssueCmd(a))
	return cmd
}

func sessionIssueCmd(a *app) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "issue <user-id>",
		Short: "Print a signed session token for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if strings.TrimSpace(a.cfg.Identity.SessionSecret) == "" {
				return config.ErrMissingSecret
			}
			sessions := persistence.NewSessions(a.cfg.Identity.SessionSecret, a.cfg.Identity.SessionCookie)
			token, err := sessions.Issue(args[0], ttl)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%s=%s\n", sessions.Cookie(), token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
