package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-boarding/components/regions"
	"github.com/goliatone/go-boarding/pkg/esign"
	"github.com/goliatone/go-boarding/pkg/persistence"
	"github.com/goliatone/go-boarding/pkg/renderers/tui"
	"github.com/goliatone/go-boarding/pkg/schema"
)

type wizardOptions struct {
	resumeKey string
	pdfPath   string
	noSign    bool
}

func wizardCmd(a *app) *cobra.Command {
	var opts wizardOptions
	cmd := &cobra.Command{
		Use:   "wizard",
		Short: "Fill in and submit a boarding application in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return a.runWizard(ctx, opts)
		},
	}
	cmd.Flags().StringVar(&opts.resumeKey, "resume-key", "terminal", "identifier saved progress is stored under")
	cmd.Flags().StringVar(&opts.pdfPath, "pdf", "esignature.pdf", "where to write the signed agreement")
	cmd.Flags().BoolVar(&opts.noSign, "no-sign", false, "skip the e-signature step after submitting")
	return cmd
}

func (a *app) runWizard(ctx context.Context, opts wizardOptions) error {
	sch, err := schema.Default()
	if err != nil {
		return err
	}
	store, closeStore, err := persistence.Open(ctx, a.cfg.Storage)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			a.logger.Warn().Err(err).Msg("close storage")
		}
	}()
	places, err := regions.New()
	if err != nil {
		return err
	}

	sessionOpts := []tui.Option{
		tui.WithPromptDriver(tui.NewSurveyDriver(a.out)),
		tui.WithPersistence(store, opts.resumeKey),
		tui.WithOptionSource(places),
		tui.WithNetwork(esign.NewIPLookup(a.cfg.IPLookupURL, 5*time.Second)),
		tui.WithLogger(a.logger),
	}
	if client, err := a.gateway(); err != nil {
		a.logger.Warn().Err(err).Msg("gateway not configured, submitting is disabled")
	} else {
		sessionOpts = append(sessionOpts, tui.WithSubmitter(client))
		if !opts.noSign {
			svc, err := a.signing(client)
			if err != nil {
				return err
			}
			sessionOpts = append(sessionOpts, tui.WithSigning(svc))
		}
	}

	session, err := tui.New(sch, sessionOpts...)
	if err != nil {
		return err
	}
	res, err := session.Run(ctx)
	switch {
	case errors.Is(err, tui.ErrQuit):
		fmt.Fprintf(a.out, "Run the wizard with --resume-key %s to continue.\n", opts.resumeKey)
		return nil
	case errors.Is(err, tui.ErrAborted):
		fmt.Fprintln(a.out, "Aborted.")
		return nil
	case err != nil:
		return err
	}

	fmt.Fprintf(a.out, "Application %s created.\n", res.AppID)
	if len(res.PDF) == 0 {
		return nil
	}
	if err := os.WriteFile(opts.pdfPath, res.PDF, 0o600); err != nil {
		return fmt.Errorf("write agreement: %w", err)
	}
	fmt.Fprintf(a.out, "Signed agreement written to %s\n", opts.pdfPath)
	return nil
}
