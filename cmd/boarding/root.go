package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/goliatone/go-boarding/pkg/config"
	"github.com/goliatone/go-boarding/pkg/esign"
	"github.com/goliatone/go-boarding/pkg/gateway"
)

// app carries what every subcommand needs once flags are parsed.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     config.Config
	logger  zerolog.Logger
	out     io.Writer
	errOut  io.Writer
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	a := &app{v: config.NewViper(), out: out, errOut: errOut, logger: zerolog.Nop()}

	rootCmd := &cobra.Command{
		Use:           "boarding",
		Short:         "Merchant boarding wizard and gateway tools",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			return a.load()
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "YAML configuration file")
	flags.String("env", "", "gateway environment: production, qa or sandbox")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("log-format", "", "log output: json or console")
	_ = a.v.BindPFlag("environment", flags.Lookup("env"))
	_ = a.v.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("log_format", flags.Lookup("log-format"))

	rootCmd.AddCommand(serveCmd(a))
	rootCmd.AddCommand(wizardCmd(a))
	rootCmd.AddCommand(validateCmd(a))
	rootCmd.AddCommand(lintCmd(a))
	rootCmd.AddCommand(customersCmd(a))
	rootCmd.AddCommand(payCmd(a))
	rootCmd.AddCommand(sessionCmd(a))
	return rootCmd
}

func (a *app) load() error {
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
		a.v.SetConfigType("yaml")
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", a.cfgFile, err)
		}
	}
	cfg, err := config.FromViper(a.v)
	if err != nil {
		return err
	}
	logger, err := newLogger(a.errOut, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

func newLogger(w io.Writer, level, format string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log level %q: %w", level, err)
	}
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "console":
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	case "", "json":
	default:
		return zerolog.Nop(), fmt.Errorf("log format %q: want json or console", format)
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
}

// gateway returns a client for commands that cannot work offline.
func (a *app) gateway() (*gateway.Client, error) {
	if err := a.cfg.Validate(); err != nil {
		return nil, err
	}
	return gateway.FromConfig(a.cfg, gateway.WithLogger(a.logger)), nil
}

func (a *app) signing(attacher esign.Attacher) (*esign.Service, error) {
	branding, err := esign.Branding(nil, a.cfg.Theme.Name, a.cfg.Theme.Variant)
	if err != nil {
		return nil, err
	}
	agreement, err := esign.NewAgreement(esign.WithBranding(branding))
	if err != nil {
		return nil, err
	}
	return esign.NewService(agreement, attacher, esign.WithLogger(a.logger)), nil
}
