package questionnaire

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messages(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Message
	}
	return out
}

func validateAnswer(t *testing.T, answer, block string) []ValidationError {
	t.Helper()

	var b map[string]any
	if block != "" {
		b = mustDecode(t, block)
	}

	v := NewAnswerValidator(mustDecode(t, answer), b, []string{"people"}, []string{"people-list", "add-person"})
	v.now = func() time.Time { return date(2024, time.June, 1) }
	return v.Validate()
}

func TestAnswerValidator_ValidAnswers(t *testing.T) {
	tests := []struct {
		name   string
		answer string
	}{
		{
			name:   "radio",
			answer: `{"id": "a", "type": "Radio", "mandatory": true, "options": [{"label": "Yes", "value": "Yes"}, {"label": "No", "value": "No"}]}`,
		},
		{
			name:   "label with placeholders",
			answer: `{"id": "a", "type": "Radio", "mandatory": true, "options": [{"label": {"text": "Someone", "placeholders": []}, "value": "Someone"}]}`,
		},
		{
			name:   "plural label",
			answer: `{"id": "a", "type": "Radio", "mandatory": true, "options": [{"label": {"text_plural": {"forms": {}}}, "value": "Several"}]}`,
		},
		{
			name:   "calculated with two decimal places",
			answer: `{"id": "a", "type": "Currency", "mandatory": false, "calculated": true, "decimal_places": 2}`,
		},
		{
			name:   "known action params",
			answer: `{"id": "a", "type": "Radio", "mandatory": true, "options": [{"label": "Yes", "value": "Yes", "action": {"type": "RedirectToListAddBlock", "params": {"block_id": "add-person", "list_name": "people"}}}]}`,
		},
		{
			name:   "absolute suggestions url",
			answer: `{"id": "a", "type": "TextField", "mandatory": false, "suggestions_url": "https://cdn.example.com/lookups/countries.json"}`,
		},
		{
			name:   "relative suggestions url",
			answer: `{"id": "a", "type": "TextField", "mandatory": false, "suggestions_url": "/lookups/countries_v2.json"}`,
		},
		{
			name:   "number within limits",
			answer: `{"id": "a", "type": "Number", "mandatory": false, "default": 0, "minimum": {"value": -999999999}, "maximum": {"value": 9999999999}, "decimal_places": 6}`,
		},
		{
			name:   "decimal literal bounds are not limit checked",
			answer: `{"id": "a", "type": "Number", "mandatory": false, "minimum": {"value": -1000000000.5}}`,
		},
		{
			name:   "ordered dates",
			answer: `{"id": "a", "type": "Date", "mandatory": true, "minimum": {"value": "2021-01-31", "offset_by": {"months": 1}}, "maximum": {"value": "2021-03"}}`,
		},
		{
			name:   "unparsable date is skipped",
			answer: `{"id": "a", "type": "Date", "mandatory": true, "minimum": {"value": "soon"}, "maximum": {"value": "2021-03"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, validateAnswer(t, tt.answer, ""))
		})
	}
}

func TestAnswerValidator_DuplicateOptions(t *testing.T) {
	errs := validateAnswer(t, `{
		"id": "a", "type": "Checkbox", "mandatory": true,
		"options": [
			{"label": "Yes", "value": "Yes"},
			{"label": "Yes", "value": "Yes"}
		]
	}`, "")

	require.Len(t, errs, 2)
	assert.Equal(t, ValidationError{Message: MsgDuplicateLabel, ID: "a", Context: map[string]any{"label": "Yes"}}, errs[0])
	assert.Equal(t, ValidationError{Message: MsgDuplicateValue, ID: "a", Context: map[string]any{"value": "Yes"}}, errs[1])
}

func TestAnswerValidator_LabelValueMismatch(t *testing.T) {
	errs := validateAnswer(t, `{
		"id": "a", "type": "Radio", "mandatory": true,
		"options": [
			{"label": "Yes please", "value": "Yes"},
			{"label": {"text": "No thanks"}, "value": "No"}
		]
	}`, "")

	assert.Equal(t, []string{MsgValueMismatch, MsgValueMismatch}, messages(errs))
	assert.Equal(t, map[string]any{"label": "Yes please", "value": "Yes"}, errs[0].Context)
	assert.Equal(t, map[string]any{"label": "No thanks", "value": "No"}, errs[1].Context)
}

func TestAnswerValidator_Actions(t *testing.T) {
	errs := validateAnswer(t, `{
		"id": "a", "type": "Radio", "mandatory": true,
		"options": [{
			"label": "Yes", "value": "Yes",
			"action": {"type": "RedirectToListAddBlock", "params": {"block_id": "missing-block", "list_name": "pets"}}
		}]
	}`, "")

	require.Len(t, errs, 2)
	assert.Equal(t, MsgListNameMissing, errs[0].Message)
	assert.Equal(t, "pets", errs[0].Context["list_name"])
	assert.Equal(t, MsgBlockIDMissing, errs[1].Message)
	assert.Equal(t, "missing-block", errs[1].Context["block_id"])
}

func TestAnswerValidator_Routing(t *testing.T) {
	const answer = `{
		"id": "a", "type": "Radio", "mandatory": %s,
		"options": [{"label": "Yes", "value": "Yes"}, {"label": "No", "value": "No"}, {"label": "Maybe", "value": "Maybe"}]
	}`
	const routeYes = `{"goto": {"block": "b2", "when": [{"id": "a", "condition": "equals", "value": "Yes"}]}}`
	const routeOther = `{"goto": {"block": "b3", "when": [{"id": "other", "condition": "equals", "value": "No"}]}}`
	const routeDefault = `{"goto": {"block": "b4"}}`

	block := func(rules ...string) string {
		out := `{"id": "b1", "type": "Question", "routing_rules": [`
		for i, r := range rules {
			if i > 0 {
				out += ","
			}
			out += r
		}
		return out + `]}`
	}
	answerWith := func(mandatory string) string {
		return fmt.Sprintf(answer, mandatory)
	}

	tests := []struct {
		name    string
		answer  string
		block   string
		want    []string
		missing []string
	}{
		{
			name:    "partially routed mandatory answer",
			answer:  answerWith("true"),
			block:   block(routeYes),
			want:    []string{MsgUnroutedOptions},
			missing: []string{"No", "Maybe"},
		},
		{
			name:    "partially routed optional answer",
			answer:  answerWith("false"),
			block:   block(routeYes),
			want:    []string{MsgDefaultRouteNotDefined, MsgUnroutedOptions},
			missing: []string{"No", "Maybe"},
		},
		{
			name:   "default route covers remaining options",
			answer: answerWith("false"),
			block:  block(routeYes, routeDefault),
		},
		{
			name:   "answer not used for routing",
			answer: answerWith("true"),
			block:  block(routeOther),
		},
		{
			name:   "optional answer not used for routing still needs a default",
			answer: answerWith("false"),
			block:  block(routeOther),
			want:   []string{MsgDefaultRouteNotDefined},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := validateAnswer(t, tt.answer, tt.block)

			if len(tt.want) == 0 {
				assert.Empty(t, errs)
				return
			}
			assert.Equal(t, tt.want, messages(errs))
			if tt.missing != nil {
				assert.Equal(t, tt.missing, errs[len(errs)-1].Context["options"])
			}
		})
	}
}

func TestAnswerValidator_SingleAnswerChecks(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		want   []string
	}{
		{
			name:   "calculated without decimal places",
			answer: `{"id": "a", "type": "Currency", "mandatory": false, "calculated": true}`,
			want:   []string{MsgDecimalPlacesUndefined},
		},
		{
			name:   "calculated with wrong decimal places",
			answer: `{"id": "a", "type": "Currency", "mandatory": false, "calculated": true, "decimal_places": 3}`,
			want:   []string{MsgDecimalPlacesUndefined},
		},
		{
			name:   "minimum date after maximum date",
			answer: `{"id": "a", "type": "Date", "mandatory": true, "minimum": {"value": "2021-01-31", "offset_by": {"months": 1}}, "maximum": {"value": "2021-02-27"}}`,
			want:   []string{MsgInvalidOffsetDate},
		},
		{
			name:   "equal dates",
			answer: `{"id": "a", "type": "Date", "mandatory": true, "minimum": {"value": "2021-02"}, "maximum": {"value": "2021-02-01"}}`,
			want:   []string{MsgInvalidOffsetDate},
		},
		{
			name:   "minimum after now",
			answer: `{"id": "a", "type": "Date", "mandatory": true, "minimum": {"value": "now", "offset_by": {"days": 1}}, "maximum": {"value": "2024-06-01"}}`,
			want:   []string{MsgInvalidOffsetDate},
		},
		{
			name:   "invalid suggestions url",
			answer: `{"id": "a", "type": "TextField", "mandatory": false, "suggestions_url": "not a url!"}`,
			want:   []string{MsgInvalidSuggestionURL},
		},
		{
			name:   "default on mandatory answer",
			answer: `{"id": "a", "type": "Number", "mandatory": true, "default": 0}`,
			want:   []string{MsgDefaultOnMandatory},
		},
		{
			name:   "bounds beyond system limits",
			answer: `{"id": "a", "type": "Percentage", "mandatory": false, "minimum": {"value": -1000000000}, "maximum": {"value": 10000000000}}`,
			want:   []string{MsgMinimumLessThanLimit, MsgMaximumGreaterThanLimit},
		},
		{
			name:   "too many decimal places",
			answer: `{"id": "a", "type": "Currency", "mandatory": false, "decimal_places": 7}`,
			want:   []string{MsgDecimalPlacesTooLong},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, messages(validateAnswer(t, tt.answer, "")))
		})
	}
}

func numericErrors(t *testing.T, answers ...string) ([]ValidationError, NumericRanges) {
	t.Helper()

	var errs []ValidationError
	ranges := make(NumericRanges)
	for _, raw := range answers {
		answer := mustDecode(t, raw)
		v := NewAnswerValidator(answer, nil, nil, nil)
		ranges[stringOf(answer, "id")] = v.NumericRange(ranges)
		errs = append(errs, v.ValidateNumericAnswerTypes(ranges)...)
	}
	return errs, ranges
}

func TestAnswerValidator_NumericRange(t *testing.T) {
	_, ranges := numericErrors(t,
		`{"id": "plain", "type": "Number", "mandatory": false}`,
		`{"id": "bounded", "type": "Number", "mandatory": false, "minimum": {"value": 10}, "maximum": {"value": 20}, "decimal_places": 2, "exclusive": true}`,
		`{"id": "computed", "type": "Number", "mandatory": false, "minimum": {"value": {"source": "metadata", "identifier": "ru_ref"}}, "maximum": {"value": {"source": "answers", "identifier": "bounded"}}}`,
	)

	plain := ranges["plain"]
	require.NotNil(t, plain.Min)
	require.NotNil(t, plain.Max)
	assert.Equal(t, 0.0, *plain.Min)
	assert.Equal(t, float64(MaxNumber), *plain.Max)

	bounded := ranges["bounded"]
	assert.InDelta(t, 10.01, *bounded.Min, 1e-9)
	assert.InDelta(t, 19.99, *bounded.Max, 1e-9)
	assert.Equal(t, 2, bounded.DecimalPlaces)

	computed := ranges["computed"]
	assert.Equal(t, 0.0, *computed.Min)
	assert.Equal(t, float64(MaxNumber), *computed.Max)
	assert.Equal(t, "ru_ref", computed.MinReferred)
	assert.Equal(t, "bounded", computed.MaxReferred)
}

func TestAnswerValidator_NumericAnswerTypes(t *testing.T) {
	tests := []struct {
		name    string
		answers []string
		want    []string
	}{
		{
			name: "valid reference",
			answers: []string{
				`{"id": "total", "type": "Currency", "mandatory": false, "decimal_places": 2}`,
				`{"id": "part", "type": "Currency", "mandatory": false, "decimal_places": 2, "maximum": {"value": {"source": "answers", "identifier": "total"}}}`,
			},
		},
		{
			name:    "minimum above maximum",
			answers: []string{`{"id": "a", "type": "Number", "mandatory": false, "minimum": {"value": 10}, "maximum": {"value": 5}}`},
			want:    []string{MsgInvalidRange},
		},
		{
			name:    "exclusive bounds leave no values",
			answers: []string{`{"id": "a", "type": "Number", "mandatory": false, "minimum": {"value": 0}, "maximum": {"value": 1}, "exclusive": true}`},
			want:    []string{MsgInvalidRange},
		},
		{
			name:    "unknown minimum reference",
			answers: []string{`{"id": "a", "type": "Number", "mandatory": false, "minimum": {"value": {"source": "answers", "identifier": "nope"}}}`},
			want:    []string{MsgMinimumReferenceInvalid},
		},
		{
			name:    "unknown maximum reference",
			answers: []string{`{"id": "a", "type": "Number", "mandatory": false, "maximum": {"value": {"source": "answers", "identifier": "nope"}}}`},
			want:    []string{MsgMaximumReferenceInvalid},
		},
		{
			name: "referenced answer has more decimal places",
			answers: []string{
				`{"id": "total", "type": "Currency", "mandatory": false, "decimal_places": 2}`,
				`{"id": "part", "type": "Number", "mandatory": false, "minimum": {"value": {"source": "answers", "identifier": "total"}}}`,
			},
			want: []string{MsgReferencedDecimalPlacesMore},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs, _ := numericErrors(t, tt.answers...)
			if len(tt.want) == 0 {
				assert.Empty(t, errs)
				return
			}
			assert.Equal(t, tt.want, messages(errs))
		})
	}
}
