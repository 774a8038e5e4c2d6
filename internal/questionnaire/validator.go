package questionnaire

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"golang.org/x/text/language"
)

// Messages reported by the questionnaire-level checks.
const (
	MsgDuplicateID                = "Duplicate id found"
	MsgInvalidLanguage            = "Invalid language tag"
	MsgMultipleDrivingQuestions   = "Multiple driving questions for list"
	MsgDrivingQuestionWithoutList = "Driving question list is not collected by any list collector"
)

var numericAnswerTypes = map[string]struct{}{
	AnswerTypeNumber:     {},
	AnswerTypeCurrency:   {},
	AnswerTypePercentage: {},
	AnswerTypeUnit:       {},
}

// Report is the outcome of validating one questionnaire.
type Report struct {
	Valid           bool              `json:"valid"`
	QuestionnaireID string            `json:"questionnaire_id,omitempty"`
	Language        string            `json:"language,omitempty"`
	Hash            string            `json:"hash"`
	Errors          []ValidationError `json:"errors"`
	DurationMS      int64             `json:"duration_ms"`
}

// Err returns the report's errors as an error value, or nil when valid.
func (r *Report) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return Errors(r.Errors)
}

// Hash returns the hex sha256 of a raw questionnaire. Reports are cached by it.
func Hash(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// Validator validates questionnaires. It is safe for concurrent use.
type Validator struct {
	meta   *jsonschema.Schema
	logger *zerolog.Logger

	// Now is the clock used to resolve "now" in date bounds.
	Now func() time.Time
}

// NewValidator compiles the embedded meta schema and returns a Validator.
func NewValidator(logger *zerolog.Logger) (*Validator, error) {
	meta, err := CompileMetaSchema(nil)
	if err != nil {
		return nil, err
	}

	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Validator{
		meta:   meta,
		logger: logger,
		Now:    time.Now,
	}, nil
}

// Validate checks raw against the meta schema and, when it conforms, runs
// the semantic checks. The error is non-nil only when raw is not a JSON
// object or ctx is done; defects in the questionnaire are reported in the
// Report.
func (v *Validator) Validate(ctx context.Context, raw []byte) (*Report, error) {
	start := time.Now()

	doc, err := Decode(raw)
	if err != nil {
		return nil, err
	}

	report := &Report{
		QuestionnaireID: stringOf(doc, "id"),
		Language:        stringOf(doc, "language"),
		Hash:            Hash(raw),
	}

	logger := v.logger.With().
		Str("operation", "validate_questionnaire").
		Str("questionnaire_id", report.QuestionnaireID).
		Str("hash", report.Hash).
		Logger()

	errs := validateMetaSchema(v.meta, doc)
	if len(errs) > 0 {
		logger.Debug().Int("error_count", len(errs)).Msg("questionnaire failed meta schema validation")
		return v.finish(report, errs, start), nil
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	schema := newSchema(raw, doc)

	errs = append(errs, validateDuplicateIDs(schema)...)
	errs = append(errs, validateLanguage(doc)...)
	errs = append(errs, v.validateAnswers(schema)...)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	errs = append(errs, v.validateNumericAnswers(schema)...)
	errs = append(errs, validateDrivingQuestions(schema)...)

	report = v.finish(report, errs, start)

	logger.Debug().
		Bool("valid", report.Valid).
		Int("error_count", len(report.Errors)).
		Int64("duration_ms", report.DurationMS).
		Msg("questionnaire validated")

	return report, nil
}

func (v *Validator) finish(report *Report, errs []ValidationError, start time.Time) *Report {
	if errs == nil {
		errs = []ValidationError{}
	}
	report.Errors = errs
	report.Valid = len(errs) == 0
	report.DurationMS = time.Since(start).Milliseconds()
	return report
}

func validateDuplicateIDs(s *Schema) []ValidationError {
	ids := s.IDs()

	counts := make(map[string]int, len(ids))
	for _, id := range ids {
		counts[id]++
	}

	var out []ValidationError
	for _, id := range ids {
		n := counts[id]
		if n < 2 {
			continue
		}
		out = append(out, ValidationError{
			Message: MsgDuplicateID,
			ID:      id,
			Context: map[string]any{"count": n},
		})
		// Report each duplicated id once.
		counts[id] = 0
	}
	return out
}

func validateLanguage(doc map[string]any) []ValidationError {
	tag, ok := doc["language"].(string)
	if !ok {
		return nil
	}
	if _, err := language.Parse(tag); err != nil {
		return []ValidationError{{
			Message: MsgInvalidLanguage,
			Context: map[string]any{"language": tag},
		}}
	}
	return nil
}

func (v *Validator) validateAnswers(s *Schema) []ValidationError {
	// Actions may redirect to a list collector's sub-blocks.
	blockIDs := make([]string, 0, len(s.BlockIDs)+len(s.SubBlockIDs))
	blockIDs = append(blockIDs, s.BlockIDs...)
	blockIDs = append(blockIDs, s.SubBlockIDs...)

	var out []ValidationError
	reported := make(reportedErrors)
	for _, q := range s.QuestionsWithContext() {
		block := s.BlocksByID[q.Block]

		var batch []ValidationError
		for _, answer := range mapsOf(q.Question["answers"]) {
			av := NewAnswerValidator(answer, block, s.ListNames, blockIDs)
			av.now = v.Now
			batch = append(batch, av.Validate()...)
		}
		out = reported.add(out, q.Block, batch)
	}
	return out
}

func (v *Validator) validateNumericAnswers(s *Schema) []ValidationError {
	var out []ValidationError
	ranges := make(NumericRanges)
	reported := make(reportedErrors)

	for _, answer := range s.Answers() {
		if _, ok := numericAnswerTypes[stringOf(answer, "type")]; !ok {
			continue
		}

		id := stringOf(answer, "id")
		av := NewAnswerValidator(answer, nil, s.ListNames, s.BlockIDs)
		ranges[id] = av.NumericRange(ranges)
		out = reported.add(out, id, av.ValidateNumericAnswerTypes(ranges))
	}
	return out
}

func validateDrivingQuestions(s *Schema) []ValidationError {
	collected := setOf(s.ListNames)

	var (
		out  []ValidationError
		seen = make(map[string]struct{})
	)
	for _, block := range s.Blocks {
		if stringOf(block, "type") != BlockTypeListCollectorDrivingQuestion {
			continue
		}
		list := stringOf(block, "for_list")
		if _, done := seen[list]; done {
			continue
		}
		seen[list] = struct{}{}

		if !s.HasSingleDrivingQuestion(list) {
			out = append(out, ValidationError{
				Message: MsgMultipleDrivingQuestions,
				ID:      list,
				Context: map[string]any{"count": len(s.DrivingQuestionBlocks(list))},
			})
		}
		if _, ok := collected[list]; !ok {
			out = append(out, ValidationError{
				Message: MsgDrivingQuestionWithoutList,
				ID:      list,
				Context: map[string]any{"block_id": stringOf(block, "id")},
			})
		}
	}
	return out
}

// reportedErrors remembers, per scope, the errors already reported by
// earlier batches. Question variants of one block repeat the same answers,
// so a batch only adds errors its scope has not seen from another variant.
// Repeats inside a single batch are kept.
type reportedErrors map[string]map[string]struct{}

func (r reportedErrors) add(out []ValidationError, scope string, batch []ValidationError) []ValidationError {
	seen := r[scope]
	if seen == nil {
		seen = make(map[string]struct{})
		r[scope] = seen
	}

	fresh := make([]string, 0, len(batch))
	for _, e := range batch {
		key := e.Error()
		if _, dup := seen[key]; dup {
			continue
		}
		out = append(out, e)
		fresh = append(fresh, key)
	}
	for _, key := range fresh {
		seen[key] = struct{}{}
	}
	return out
}
