// cmd/matchctl/score.go
package main

import (
	"encoding/json"
	"fmt"
	"time"

	"match-workers/internal/matching"

	"github.com/spf13/cobra"
)

// engineConfig reads the matching section the workers score with. Without --config an
// unusable config falls back to the engine defaults.
func (o *rootOptions) engineConfig() (matching.Config, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		if o.configFile != "" {
			return matching.Config{}, err
		}
		o.log.Warn("no usable config, scoring with engine defaults", map[string]interface{}{"error": err.Error()})
		return matching.DefaultConfig(), nil
	}
	return matching.ConfigFrom(cfg.Matching), nil
}

func newScoreCmd(opts *rootOptions) *cobra.Command {
	var (
		requirementsFile string
		profileFile      string
		asOf             string
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score one profile against one assignment and print the match",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			clock := time.Now
			if asOf != "" {
				at, err := time.Parse(time.RFC3339, asOf)
				if err != nil {
					return fmt.Errorf("--as-of: %w", err)
				}
				clock = func() time.Time { return at }
			}

			req, err := readRequirements(requirementsFile)
			if err != nil {
				return err
			}
			p, err := readProfile(profileFile)
			if err != nil {
				return err
			}

			engineCfg, err := opts.engineConfig()
			if err != nil {
				return err
			}
			m, err := matching.NewEngine(engineCfg, clock).ScoreMatch(req, p)
			if err != nil {
				return err
			}
			opts.log.Debug("scored", map[string]interface{}{"matchId": m.ID, "overallScore": m.OverallScore})

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(m)
		},
	}

	cmd.Flags().StringVar(&requirementsFile, "requirements", "", "assignment requirements file (json or yaml)")
	cmd.Flags().StringVar(&profileFile, "profile", "", "candidate profile file (json or yaml)")
	cmd.Flags().StringVar(&asOf, "as-of", "", "score as of this RFC3339 time instead of now")
	_ = cmd.MarkFlagRequired("requirements")
	_ = cmd.MarkFlagRequired("profile")
	return cmd
}

func newValidateWeightsCmd(opts *rootOptions) *cobra.Command {
	var requirementsFile string

	cmd := &cobra.Command{
		Use:   "validate-weights",
		Short: "Check that an assignment's factor weights are usable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readRequirements(requirementsFile)
			if err != nil {
				return err
			}
			if err := matching.ValidateWeights(req.Weights); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "weights ok: %d total\n", req.Weights.Sum())
			return nil
		},
	}

	cmd.Flags().StringVar(&requirementsFile, "requirements", "", "assignment requirements file (json or yaml)")
	_ = cmd.MarkFlagRequired("requirements")
	return cmd
}
