// Package email sends validation reports through Resend.
//
// Bodies are rendered from HTML templates embedded in the binary.
package email

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"

	"github.com/deppfellow/questionnaire-validator/internal/config"
	"github.com/pkg/errors"
	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"
)

const senderName = "Questionnaire Validator"

// Template names an embedded template, templates/<name>.html.
type Template string

const (
	TemplateValidationReport Template = "validation_report"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(
	template.New("emails").Funcs(template.FuncMap{
		"plural": func(n int, one, many string) string {
			if n == 1 {
				return one
			}
			return many
		},
	}).ParseFS(templateFS, "templates/*.html"),
)

// ErrDisabled is returned when no Resend API key is configured.
var ErrDisabled = errors.New("email delivery is not configured")

type Client struct {
	client *resend.Client
	from   string
	logger *zerolog.Logger
}

// NewClient returns a client for cfg. Without an API key every send
// returns ErrDisabled.
func NewClient(cfg *config.Config, logger *zerolog.Logger) *Client {
	var rc *resend.Client
	if cfg.Integration.ResendAPIKey != "" {
		rc = resend.NewClient(cfg.Integration.ResendAPIKey)
	}
	return newClient(rc, cfg.Integration.EmailFrom, logger)
}

func newClient(rc *resend.Client, from string, logger *zerolog.Logger) *Client {
	return &Client{
		client: rc,
		from:   fmt.Sprintf("%s <%s>", senderName, from),
		logger: logger,
	}
}

func (c *Client) Enabled() bool {
	return c != nil && c.client != nil
}

// Render executes the named template with data.
func Render(name Template, data any) (string, error) {
	var body bytes.Buffer
	if err := templates.ExecuteTemplate(&body, string(name)+".html", data); err != nil {
		return "", errors.Wrapf(err, "failed to execute email template %s", name)
	}
	return body.String(), nil
}

// SendEmail renders templateName with data and sends it to a single recipient.
func (c *Client) SendEmail(ctx context.Context, to, subject string, templateName Template, data any) error {
	if !c.Enabled() {
		return ErrDisabled
	}

	html, err := Render(templateName, data)
	if err != nil {
		return err
	}

	params := &resend.SendEmailRequest{
		From:    c.from,
		To:      []string{to},
		Subject: subject,
		Html:    html,
		Tags:    []resend.Tag{{Name: "template", Value: string(templateName)}},
	}

	sent, err := c.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return errors.Wrapf(err, "failed to send %s email", templateName)
	}

	c.logger.Info().
		Str("email_id", sent.Id).
		Str("template", string(templateName)).
		Msg("email sent")
	return nil
}
