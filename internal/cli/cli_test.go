package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/deppfellow/questionnaire-validator/internal/questionnaire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validFixture = "../questionnaire/testdata/valid.json"

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestCheckValidFile(t *testing.T) {
	out, err := execute(t, "", "check", validFixture)
	require.NoError(t, err)

	var report questionnaire.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.True(t, report.Valid)
	assert.Empty(t, report.Errors)
}

func TestCheckInvalidFromStdin(t *testing.T) {
	doc := `{"id": "broken", "sections": [{"id": "s1", "groups": [{"id": "g1", "blocks": [
		{"id": "b1", "type": "Question", "question": {"id": "q1", "type": "General",
			"answers": [{"id": "a1", "type": "TextField", "mandatory": false}]}},
		{"id": "b2", "type": "Question", "question": {"id": "q2", "type": "General",
			"answers": [{"id": "a1", "type": "TextField", "mandatory": false}]}}]}]}]}`

	out, err := execute(t, doc, "check", "-")
	require.ErrorIs(t, err, ErrInvalidQuestionnaire)

	var report questionnaire.Report
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.False(t, report.Valid)
	require.NotEmpty(t, report.Errors)
	messages := make([]string, 0, len(report.Errors))
	for _, e := range report.Errors {
		messages = append(messages, e.Message)
	}
	assert.Contains(t, messages, questionnaire.MsgDuplicateID)
}

func TestCheckNotAnObject(t *testing.T) {
	path := filepath.Join(t.TempDir(), "list.json")
	require.NoError(t, os.WriteFile(path, []byte(`[1, 2, 3]`), 0o600))

	_, err := execute(t, "", "check", path)
	require.ErrorIs(t, err, questionnaire.ErrInvalidDocument)
}

func TestCheckMissingFile(t *testing.T) {
	_, err := execute(t, "", "check", filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidQuestionnaire)
}

func TestCheckRequiresOneArgument(t *testing.T) {
	_, err := execute(t, "", "check")
	assert.Error(t, err)
}

func TestEmailPreview(t *testing.T) {
	out, err := execute(t, "", "email", "preview")
	require.NoError(t, err)
	assert.Contains(t, out, "household-survey")

	_, err = execute(t, "", "email", "preview", "welcome")
	assert.Error(t, err)
}

func TestMigrateNeedsValidConfig(t *testing.T) {
	t.Setenv("QVALIDATOR_CONFIG_FILE", "")
	t.Setenv("QVALIDATOR_DATABASE__HOST", "")

	_, err := execute(t, "", "migrate", "--env", "test")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation failed")
}
