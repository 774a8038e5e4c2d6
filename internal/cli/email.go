package cli

import (
	"fmt"

	"github.com/deppfellow/questionnaire-validator/internal/lib/email"
	"github.com/spf13/cobra"
)

func newEmailCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "email",
		Short: "Work with notification email templates",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "preview [template]",
		Short: "Render a template with sample data as HTML",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := email.TemplateValidationReport
			if len(args) == 1 {
				name = email.Template(args[0])
			}

			html, err := email.Preview(name)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), html)
			return err
		},
	})

	return cmd
}
