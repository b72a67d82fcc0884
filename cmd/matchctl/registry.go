// cmd/matchctl/registry.go
package main

import (
	"os"
	"time"

	"match-workers/pkg/registry"

	em "match-workers/internal/workers/match/expire-matches"
	rd "match-workers/internal/workers/match/request-disclosure"
	ra "match-workers/internal/workers/match/rescore-assignment"
	sm "match-workers/internal/workers/match/score-match"
	tl "match-workers/internal/workers/match/transition-lifecycle"

	"github.com/spf13/cobra"
)

// matchActivities lists every worker with its default limits.
func matchActivities() []registry.Activity {
	return []registry.Activity{
		sm.Activity(sm.DefaultConfig()),
		tl.Activity(tl.DefaultConfig()),
		rd.Activity(rd.DefaultConfig()),
		em.Activity(em.DefaultConfig()),
		ra.Activity(ra.DefaultConfig()),
	}
}

func newRegistryCmd(opts *rootOptions) *cobra.Command {
	var (
		output  string
		version string
	)

	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Print the activity registry describing every match worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := registry.New(version, time.Now(), matchActivities()...)
			if err != nil {
				return err
			}
			if output == "" {
				return reg.Write(cmd.OutOrStdout())
			}

			f, err := os.Create(output)
			if err != nil {
				return err
			}
			if err := reg.Write(f); err != nil {
				f.Close()
				return err
			}
			opts.log.Info("registry written", map[string]interface{}{
				"path":       output,
				"activities": len(reg.Activities),
			})
			return f.Close()
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")
	cmd.Flags().StringVar(&version, "version", "1.0.0", "registry version")
	return cmd
}
