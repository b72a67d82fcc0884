// cmd/matchctl/store.go
package main

import (
	"context"
	"fmt"
	"time"

	"match-workers/internal/common/config"
	"match-workers/internal/common/database"
	"match-workers/internal/matching"
	"match-workers/internal/service"
	"match-workers/internal/store"

	"github.com/spf13/cobra"
)

func openPostgres(ctx context.Context, cfg *config.Config) (*database.PostgresClient, error) {
	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		return nil, err
	}
	if err := pg.Ping(ctx); err != nil {
		pg.Close()
		return nil, err
	}
	return pg, nil
}

func openRedis(ctx context.Context, cfg *config.Config) (*database.RedisClient, error) {
	rdb, err := database.NewRedis(cfg.Database.Redis)
	if err != nil {
		return nil, err
	}
	if err := rdb.Ping(ctx); err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the match tables in the configured postgres database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			pg, err := openPostgres(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer pg.Close()

			if err := pg.ExecScript(cmd.Context(), store.Schema); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
			return nil
		},
	}
}

func newExpireCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "expire",
		Short: "Run one expiry sweep over open matches",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			pg, err := openPostgres(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer pg.Close()

			svc := service.New(
				store.NewPostgresRepository(pg.DB),
				matching.NewEngine(matching.ConfigFrom(cfg.Matching), time.Now),
				service.Options{
					TransitionRetries: cfg.Matching.TransitionRetries,
					ExpireBatchSize:   cfg.Matching.ExpireBatchSize,
				},
				opts.log,
			)
			n, err := svc.ExpireDue(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "expired %d matches\n", n)
			return nil
		},
	}
}

func newLoadCmd(opts *rootOptions) *cobra.Command {
	var (
		requirementsFile string
		profileFiles     []string
	)

	cmd := &cobra.Command{
		Use:   "load",
		Short: "Store an assignment and candidate profiles and add them to its pool",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := readRequirements(requirementsFile)
			if err != nil {
				return err
			}

			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			pg, err := openPostgres(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer pg.Close()
			rdb, err := openRedis(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer rdb.Close()

			// workers read documents through the cache; saving through it drops stale copies
			repo := store.NewCachedRepository(store.NewPostgresRepository(pg.DB), rdb.Client, cfg.Matching.CacheTTL(), opts.log)

			if err := repo.SaveRequirements(cmd.Context(), req); err != nil {
				return err
			}

			ids := make([]string, 0, len(profileFiles))
			for _, path := range profileFiles {
				p, err := readProfile(path)
				if err != nil {
					return err
				}
				if err := repo.SaveProfile(cmd.Context(), p); err != nil {
					return err
				}
				ids = append(ids, p.ID)
			}

			added, err := repo.AddToPool(cmd.Context(), req.ID, ids...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "assignment %s: %d profiles stored, %d new in pool\n", req.ID, len(ids), added)
			return nil
		},
	}

	cmd.Flags().StringVar(&requirementsFile, "requirements", "", "assignment requirements file (json or yaml)")
	cmd.Flags().StringSliceVar(&profileFiles, "profile", nil, "candidate profile file, repeatable")
	_ = cmd.MarkFlagRequired("requirements")
	return cmd
}
