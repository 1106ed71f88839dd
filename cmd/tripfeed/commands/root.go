// Package commands implements the tripfeed command line: fetching a feed
// through the same pipeline as the API, signing request paths and
// reporting the build version.
package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/tripfeed/tripfeed/internal/config"
)

// Version is set at compile time via ldflags.
var Version = "dev"

const cmdName = "tripfeed"

// App is the tripfeed command line application.
type App struct {
	cmd   *cobra.Command
	viper *viper.Viper
	out   io.Writer
	log   zerolog.Logger

	usageErr bool
}

// Option customizes an App.
type Option func(*App)

// WithOutput sends command output to w instead of stdout.
func WithOutput(w io.Writer) Option {
	return func(a *App) { a.out = w }
}

// WithLogWriter sends logs to w instead of stderr.
func WithLogWriter(w io.Writer) Option {
	return func(a *App) {
		a.log = zerolog.New(zerolog.ConsoleWriter{Out: w, NoColor: true}).With().Timestamp().Logger()
	}
}

// New creates the root command and its subcommands.
func New(opts ...Option) *App {
	a := &App{
		viper: viper.New(),
		out:   os.Stdout,
		log:   zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger(),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.cmd = &cobra.Command{
		Use:           cmdName,
		Short:         "GTFS-Realtime trip-updates to JSON",
		Long:          "Fetch, decode and normalize GTFS-Realtime trip-updates feeds.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.initViperConfig(cmd)
		},
	}
	a.cmd.SetOut(a.out)

	a.cmd.PersistentFlags().CountP("verbose", "v", "issue INFO (-v) and DEBUG (-vv) output")
	a.cmd.PersistentFlags().String("config", "", "use a specific configuration file")

	a.cmd.AddCommand(a.fetchCmd(), a.signCmd(), a.versionCmd())
	a.cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		a.usageErr = true
		return err
	})
	return a
}

// Run executes the command line and returns the process exit code: 2 for
// usage errors, 1 for any other failure.
func (a *App) Run(args []string) int {
	a.cmd.SetArgs(args)
	if err := a.cmd.Execute(); err != nil {
		a.log.Error().Err(err).Msg("command failed")
		if a.usageErr {
			return 2
		}
		return 1
	}
	return 0
}

// source exposes the viper configuration to config.Load.
func (a *App) source() config.Source {
	return config.ViperSource{V: a.viper}
}

func (a *App) initViperConfig(cmd *cobra.Command) error {
	v, err := cmd.Flags().GetCount("verbose")
	if err != nil {
		return fmt.Errorf("failed to get verbose flag: %w", err)
	}
	a.log = a.log.Level(verbosityLevel(v))

	if path, err := cmd.Flags().GetString("config"); err == nil && path != "" {
		a.viper.SetConfigFile(path)
	} else {
		a.viper.SetConfigName(cmdName)
		a.viper.AddConfigPath(".")
		a.viper.AddConfigPath("/etc/" + cmdName)
	}

	if err := a.viper.ReadInConfig(); err != nil {
		var e viper.ConfigFileNotFoundError
		if !errors.As(err, &e) {
			return fmt.Errorf("invalid configuration file: %w", err)
		}
		a.log.Debug().Msg("no configuration file, using defaults and environment")
	} else {
		a.log.Info().Str("file", a.viper.ConfigFileUsed()).Msg("using configuration file")
	}

	// Keys match the server's environment variables, e.g. UPSTREAM_API_KEY.
	a.viper.AutomaticEnv()
	return nil
}

func verbosityLevel(v int) zerolog.Level {
	switch {
	case v <= 0:
		return zerolog.WarnLevel
	case v == 1:
		return zerolog.InfoLevel
	default:
		return zerolog.DebugLevel
	}
}
