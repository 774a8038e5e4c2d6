package questionnaire

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError is one defect found in a questionnaire.
type ValidationError struct {
	// Message is a stable, human readable description of the defect.
	Message string `json:"message"`

	// ID is the id of the offending element (answer, block, list...).
	ID string `json:"id,omitempty"`

	// Path is a JSON pointer into the document, set for meta schema errors.
	Path string `json:"path,omitempty"`

	// Context carries values that explain the defect (limits, offending values, ...).
	Context map[string]any `json:"context,omitempty"`
}

func (e ValidationError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.ID != "" {
		fmt.Fprintf(&b, " [id=%s]", e.ID)
	}
	if e.Path != "" {
		fmt.Fprintf(&b, " [path=%s]", e.Path)
	}

	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, e.Context[k])
	}
	return b.String()
}

// Errors bundles validation errors into a single error value.
type Errors []ValidationError

func (e Errors) Error() string {
	switch len(e) {
	case 0:
		return ""
	case 1:
		return e[0].Error()
	}

	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}
