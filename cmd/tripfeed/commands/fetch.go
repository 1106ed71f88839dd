package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tripfeed/tripfeed/internal/api/models"
	"github.com/tripfeed/tripfeed/internal/app"
	"github.com/tripfeed/tripfeed/internal/config"
	"github.com/tripfeed/tripfeed/internal/transit"
)

func (a *App) fetchCmd() *cobra.Command {
	var (
		debug  bool
		pretty bool
	)

	cmd := &cobra.Command{
		Use:   "fetch MODE",
		Short: "Fetch and print the normalized trip updates for tram, bus or train",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := transit.ParseMode(args[0])
			if err != nil {
				a.usageErr = true
				return err
			}

			cfg, err := config.Load(a.source())
			if err != nil {
				return err
			}
			inst, err := app.New(cfg, app.Options{Version: Version, Logger: a.log})
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			result, err := inst.Service.TripUpdates(ctx, mode)
			if err != nil {
				return err
			}

			var out interface{} = models.NewTripUpdatesResponse(mode.String(), result.Feed)
			if debug {
				out = models.NewDebugResponse(mode.String(), result.Feed, result.RedactedURL, result.AuthScheme)
			}

			enc := json.NewEncoder(a.out)
			if pretty {
				enc.SetIndent("", "  ")
			}
			if err := enc.Encode(out); err != nil {
				return fmt.Errorf("write output: %w", err)
			}

			a.log.Info().
				Str("mode", mode.String()).
				Int("entities", len(result.Feed.Entities)).
				Int("attempts", result.Attempts).
				Msg("feed fetched")
			return nil
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "print a sample and upstream details instead of every entity")
	cmd.Flags().BoolVar(&pretty, "pretty", false, "indent the JSON output")
	return cmd
}
