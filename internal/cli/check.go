package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/deppfellow/questionnaire-validator/internal/lib/utils"
	"github.com/deppfellow/questionnaire-validator/internal/questionnaire"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "check <file>",
		Short: "Validate a questionnaire file and print its report",
		Long: `Validate a questionnaire file and print the report as JSON.
Use "-" to read from standard input. The command fails when the
questionnaire has errors.`,
		Example: `  qvalidator check survey.json
  cat survey.json | qvalidator check -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInput(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}

			level := zerolog.WarnLevel
			if verbose {
				level = zerolog.DebugLevel
			}
			log := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).Level(level).With().Timestamp().Logger()

			v, err := questionnaire.NewValidator(&log)
			if err != nil {
				return err
			}

			report, err := v.Validate(cmd.Context(), raw)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}

			if err := utils.PrintJSON(cmd.OutOrStdout(), report); err != nil {
				return err
			}
			if err := report.Err(); err != nil {
				log.Warn().Int("error_count", len(report.Errors)).Msg("questionnaire has errors")
				return fmt.Errorf("%w: %w", ErrInvalidQuestionnaire, err)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log validation progress to stderr")
	return cmd
}

func readInput(stdin io.Reader, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(stdin)
	}
	raw, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("reading questionnaire: %w", err)
	}
	return raw, nil
}
