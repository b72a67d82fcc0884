package main

import (
	"encoding/json"

	"match-workers/internal/common/database"
	"match-workers/internal/discovery"

	"github.com/spf13/cobra"
)

func newDiscoverCmd(opts *rootOptions) *cobra.Command {
	var (
		assignmentID string
		limit        int
	)

	cmd := &cobra.Command{
		Use:   "discover",
		Short: "List the matches an assignment's default discovery surface shows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			es, err := database.NewElasticsearch(cfg.Database.Elasticsearch, nil)
			if err != nil {
				return err
			}

			index := discovery.NewIndex(es, cfg.Discovery.Index, opts.log)
			docs, err := index.SearchForAssignment(cmd.Context(), assignmentID, limit)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(docs)
		},
	}

	cmd.Flags().StringVar(&assignmentID, "assignment", "", "assignment id")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum matches to list")
	_ = cmd.MarkFlagRequired("assignment")
	return cmd
}
