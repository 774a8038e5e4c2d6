// Package cli implements the qvalidator command line: the HTTP service,
// database migrations and offline questionnaire checks.
package cli

import (
	"errors"

	"github.com/deppfellow/questionnaire-validator/internal/config"
	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags.
var Version = "dev"

// ErrInvalidQuestionnaire is returned by check when the report has errors.
var ErrInvalidQuestionnaire = errors.New("questionnaire is invalid")

type rootOptions struct {
	cfgFile string
}

// loadConfig reads the configuration, letting the root's --env and --port
// flags override it.
func (o *rootOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	return config.Load(o.cfgFile, cmd.Flags())
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "qvalidator",
		Short: "Questionnaire schema validator",
		Long: `qvalidator checks electronic questionnaire definitions for structural
and semantic defects. It runs as an HTTP service or validates local files.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.cfgFile, "config", "", "YAML config file (default: $"+config.ConfigFileEnv+")")
	pf.String("env", "", "environment name, overrides primary.env")
	pf.String("port", "", "HTTP port, overrides server.port")

	root.AddCommand(
		newServeCmd(opts),
		newMigrateCmd(opts),
		newCheckCmd(),
		newEmailCmd(),
	)

	return root
}
