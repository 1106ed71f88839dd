package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tripfeed/tripfeed/internal/auth"
	"github.com/tripfeed/tripfeed/internal/config"
)

func (a *App) signCmd() *cobra.Command {
	var baseURL string

	cmd := &cobra.Command{
		Use:   "sign PATH",
		Short: "Print an HMAC-signed timetable API URL for PATH",
		Long: "Sign PATH (for example /v3/gtfs/trip_updates?route_types=0) with " +
			config.KeyDevID + " and " + config.KeyAPIKey + " and print the full URL.",
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			strategy := &auth.HMACStrategy{Source: a.source()}
			plan, err := strategy.Prepare(baseURL + args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(a.out, plan.Attempts[0].URL)
			return err
		},
	}

	cmd.Flags().StringVar(&baseURL, "base-url", config.DefaultHMACBaseURL, "timetable API origin")
	return cmd
}
