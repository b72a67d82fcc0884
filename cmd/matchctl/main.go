// cmd/matchctl/main.go
package main

import (
	"fmt"
	"os"

	"match-workers/internal/common/config"
	"match-workers/internal/common/logger"

	"github.com/spf13/cobra"
)

const app = "matchctl"

type rootOptions struct {
	configFile string
	logLevel   string
	logJSON    bool
	log        logger.Logger
}

// loadConfig reads --config when given, otherwise the usual configs/ lookup.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	if o.configFile != "" {
		return config.LoadFromFile(o.configFile)
	}
	return config.Load()
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           app,
		Short:         "matchctl scores, inspects and maintains assignment/candidate matches",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			format := "console"
			if opts.logJSON {
				format = "json"
			}
			opts.log = logger.NewStructured(opts.logLevel, format)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.configFile, "config", "", "config file (default configs/config.yaml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	root.PersistentFlags().BoolVarP(&opts.logJSON, "json", "j", false, "json format for logging")

	root.AddCommand(
		newScoreCmd(opts),
		newValidateWeightsCmd(opts),
		newMigrateCmd(opts),
		newExpireCmd(opts),
		newLoadCmd(opts),
		newDiscoverCmd(opts),
		newRegistryCmd(opts),
	)
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", app, err)
		os.Exit(1)
	}
}
