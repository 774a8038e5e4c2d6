package cli

import (
	"github.com/deppfellow/questionnaire-validator/internal/database"
	"github.com/deppfellow/questionnaire-validator/internal/logger"
	"github.com/spf13/cobra"
)

func newMigrateCmd(opts *rootOptions) *cobra.Command {
	var to int32

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			log := logger.NewLogger(cfg.Observability)

			return database.Migrate(cmd.Context(), &log, database.DSN(cfg.Database), to)
		},
	}

	cmd.Flags().Int32Var(&to, "to", -1, "target schema version, -1 for the latest")
	return cmd
}
