package questionnaire

import (
	"math"
	"net/url"
	"regexp"
	"time"
)

// System limits for numeric answers.
const (
	MaxNumber        = 9999999999
	MinNumber        = -999999999
	MaxDecimalPlaces = 6
)

// Answer types.
const (
	AnswerTypeCurrency   = "Currency"
	AnswerTypeDate       = "Date"
	AnswerTypeNumber     = "Number"
	AnswerTypePercentage = "Percentage"
	AnswerTypeTextField  = "TextField"
	AnswerTypeUnit       = "Unit"
)

// Error messages reported by AnswerValidator.
const (
	MsgDecimalPlacesUndefined      = "'decimal_places' must be defined and set to 2"
	MsgDecimalPlacesTooLong        = "Number of decimal places is greater than system limit"
	MsgInvalidOffsetDate           = "The minimum offset date is greater than the maximum offset date"
	MsgInvalidSuggestionURL        = "Suggestions url is invalid"
	MsgListNameMissing             = "List name defined in action params does not exist"
	MsgBlockIDMissing              = "Block id defined in action params does not exist"
	MsgValueMismatch               = "Found mismatching answer value"
	MsgDefaultOnMandatory          = "Default is being used with a mandatory answer"
	MsgMinimumLessThanLimit        = "Minimum value is less than system limit"
	MsgMaximumGreaterThanLimit     = "Maximum value is greater than system limit"
	MsgDuplicateLabel              = "Duplicate label found"
	MsgDuplicateValue              = "Duplicate value found"
	MsgDefaultRouteNotDefined      = "Default route not defined for optional question"
	MsgUnroutedOptions             = "Routing rule not defined for all answers or default not defined for answer"
	MsgMinimumReferenceInvalid     = "The referenced answer can not be used to set the minimum of answer"
	MsgMaximumReferenceInvalid     = "The referenced answer can not be used to set the maximum of answer"
	MsgInvalidRange                = "Invalid range of min and max is possible for answer"
	MsgReferencedDecimalPlacesMore = "The referenced answer has a greater number of decimal places than answer"
)

var relativeURLPattern = regexp.MustCompile(`^[A-Za-z0-9_.\-/~]+$`)

// AnswerValidator runs the checks that apply to a single answer.
type AnswerValidator struct {
	answer    map[string]any
	block     map[string]any
	listNames map[string]struct{}
	blockIDs  map[string]struct{}
	now       func() time.Time

	errors []ValidationError
}

// NewAnswerValidator builds a validator for answer. block is the block the
// answer's question belongs to and may be nil.
func NewAnswerValidator(answer, block map[string]any, listNames, blockIDs []string) *AnswerValidator {
	return &AnswerValidator{
		answer:    answer,
		block:     block,
		listNames: setOf(listNames),
		blockIDs:  setOf(blockIDs),
		now:       time.Now,
	}
}

func setOf(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// Errors returns the errors collected so far.
func (v *AnswerValidator) Errors() []ValidationError {
	return v.errors
}

func (v *AnswerValidator) id() string {
	return stringOf(v.answer, "id")
}

func (v *AnswerValidator) addError(message string, context map[string]any) {
	v.errors = append(v.errors, ValidationError{
		Message: message,
		ID:      v.id(),
		Context: context,
	})
}

func (v *AnswerValidator) options() []map[string]any {
	return mapsOf(v.answer["options"])
}

// Validate runs every single-answer check and returns the collected errors.
func (v *AnswerValidator) Validate() []ValidationError {
	v.validateDuplicateOptions()
	v.validateAnswerActions()
	v.validateLabelsAndValuesMatch()
	v.validateRoutingOnAnswerOptions()

	if !v.areDecimalPlacesValid() {
		v.addError(MsgDecimalPlacesUndefined, nil)
	}

	if !v.isOffsetDateValid() {
		v.addError(MsgInvalidOffsetDate, nil)
	}

	if stringOf(v.answer, "type") == AnswerTypeTextField && has(v.answer, "suggestions_url") && !v.isSuggestionURLValid() {
		v.addError(MsgInvalidSuggestionURL, map[string]any{"suggestions_url": v.answer["suggestions_url"]})
	}

	switch stringOf(v.answer, "type") {
	case AnswerTypeNumber, AnswerTypeCurrency, AnswerTypePercentage:
		v.validateNumericDefault()
		v.validateNumericAnswerValue()
		v.validateNumericAnswerDecimals()
	}

	return v.errors
}

func (v *AnswerValidator) validateDuplicateOptions() {
	labels := make(map[string]struct{})
	values := make(map[string]struct{})

	for _, option := range v.options() {
		// Labels with placeholders cannot be compared.
		label, ok := option["label"].(string)
		if !ok {
			continue
		}
		value := stringOf(option, "value")

		if _, dup := labels[label]; dup {
			v.addError(MsgDuplicateLabel, map[string]any{"label": label})
		}
		if _, dup := values[value]; dup {
			v.addError(MsgDuplicateValue, map[string]any{"value": value})
		}

		labels[label] = struct{}{}
		values[value] = struct{}{}
	}
}

func (v *AnswerValidator) validateLabelsAndValuesMatch() {
	for _, option := range v.options() {
		var label string
		switch l := option["label"].(type) {
		case string:
			label = l
		case map[string]any:
			if has(l, "text_plural") {
				continue
			}
			label = stringOf(l, "text")
		default:
			continue
		}

		if value := stringOf(option, "value"); label != value {
			v.addError(MsgValueMismatch, map[string]any{"label": label, "value": value})
		}
	}
}

func (v *AnswerValidator) validateAnswerActions() {
	for _, option := range v.options() {
		action, _ := asMap(option["action"])
		params, _ := asMap(action["params"])
		if len(params) == 0 {
			continue
		}

		if listName := stringOf(params, "list_name"); listName != "" {
			if _, ok := v.listNames[listName]; !ok {
				v.addError(MsgListNameMissing, map[string]any{"list_name": listName})
			}
		}

		if blockID := stringOf(params, "block_id"); blockID != "" {
			if _, ok := v.blockIDs[blockID]; !ok {
				v.addError(MsgBlockIDMissing, map[string]any{"block_id": blockID})
			}
		}
	}
}

func (v *AnswerValidator) routingRules() []map[string]any {
	if v.block == nil {
		return nil
	}
	return mapsOf(v.block["routing_rules"])
}

// conditionalGoto returns the goto object of a rule when it carries a when clause.
func conditionalGoto(rule map[string]any) (map[string]any, bool) {
	goTo, ok := asMap(rule["goto"])
	if !ok || !has(goTo, "when") {
		return nil, false
	}
	return goTo, true
}

func (v *AnswerValidator) hasDefaultRoute() bool {
	for _, rule := range v.routingRules() {
		if _, conditional := conditionalGoto(rule); !conditional {
			return true
		}
	}
	return false
}

func (v *AnswerValidator) validateRoutingOnAnswerOptions() {
	rules := v.routingRules()
	options := v.options()
	if len(rules) == 0 || len(options) == 0 {
		return
	}

	unrouted := make([]string, 0, len(options))
	for _, option := range options {
		unrouted = append(unrouted, stringOf(option, "value"))
	}

	for _, rule := range rules {
		goTo, conditional := conditionalGoto(rule)
		if !conditional {
			// A default route covers every remaining option.
			unrouted = unrouted[:0]
			continue
		}

		for _, when := range mapsOf(goTo["when"]) {
			if stringOf(when, "id") != v.id() {
				continue
			}
			if value, ok := when["value"].(string); ok {
				unrouted = removeFirst(unrouted, value)
			}
		}
	}

	if mandatory, ok := v.answer["mandatory"].(bool); ok && !mandatory && !v.hasDefaultRoute() {
		v.addError(MsgDefaultRouteNotDefined, nil)
	}

	// Options that are not routed at all mean the answer is not used for routing.
	if len(unrouted) > 0 && len(unrouted) != len(options) {
		missing := make([]string, len(unrouted))
		copy(missing, unrouted)
		v.addError(MsgUnroutedOptions, map[string]any{"options": missing})
	}
}

func removeFirst(values []string, target string) []string {
	for i, value := range values {
		if value == target {
			return append(values[:i], values[i+1:]...)
		}
	}
	return values
}

func (v *AnswerValidator) areDecimalPlacesValid() bool {
	if !has(v.answer, "calculated") {
		return true
	}
	return has(v.answer, "decimal_places") && intOf(v.answer["decimal_places"], -1) == 2
}

func (v *AnswerValidator) isOffsetDateValid() bool {
	if stringOf(v.answer, "type") != AnswerTypeDate {
		return true
	}

	minimum, okMin := asMap(v.answer["minimum"])
	maximum, okMax := asMap(v.answer["maximum"])
	if !okMin || !okMax {
		return true
	}

	minValue, okMin := minimum["value"].(string)
	maxValue, okMax := maximum["value"].(string)
	if !okMin || !okMax {
		// Missing or computed (object) values cannot be compared statically.
		return true
	}

	now := v.now()
	minDate, err := ParseDate(minValue, now)
	if err != nil {
		return true
	}
	maxDate, err := ParseDate(maxValue, now)
	if err != nil {
		return true
	}

	minDate = RelativeDate(minDate, offsetFrom(minimum["offset_by"]))
	maxDate = RelativeDate(maxDate, offsetFrom(maximum["offset_by"]))

	return minDate.Before(maxDate)
}

func (v *AnswerValidator) isSuggestionURLValid() bool {
	raw, _ := v.answer["suggestions_url"].(string)
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "" && u.Host != "" {
		return true
	}
	return relativeURLPattern.MatchString(u.Path)
}

func (v *AnswerValidator) validateNumericDefault() {
	mandatory, _ := v.answer["mandatory"].(bool)
	if mandatory && v.answer["default"] != nil {
		v.addError(MsgDefaultOnMandatory, nil)
	}
}

func (v *AnswerValidator) validateNumericAnswerValue() {
	minimum, _ := asMap(v.answer["minimum"])
	maximum, _ := asMap(v.answer["maximum"])

	if isIntegerLiteral(minimum["value"]) {
		if value, _ := floatOf(minimum["value"]); value < MinNumber {
			v.addError(MsgMinimumLessThanLimit, map[string]any{"value": minimum["value"], "limit": MinNumber})
		}
	}

	if isIntegerLiteral(maximum["value"]) {
		if value, _ := floatOf(maximum["value"]); value > MaxNumber {
			v.addError(MsgMaximumGreaterThanLimit, map[string]any{"value": maximum["value"], "limit": MaxNumber})
		}
	}
}

func (v *AnswerValidator) validateNumericAnswerDecimals() {
	if places := intOf(v.answer["decimal_places"], 0); places > MaxDecimalPlaces {
		v.addError(MsgDecimalPlacesTooLong, map[string]any{"decimal_places": places, "limit": MaxDecimalPlaces})
	}
}

// NumericRange is the span of values a numeric answer can take.
//
// Min or Max is nil when the bound refers to an answer that cannot be used
// (unknown, not numeric, or defined later in the questionnaire).
type NumericRange struct {
	Min           *float64
	Max           *float64
	DecimalPlaces int
	MinReferred   string
	MaxReferred   string
	Default       any
}

// NumericRanges maps numeric answer ids to their ranges, built in document order.
type NumericRanges map[string]NumericRange

// NumericRange derives this answer's range. ranges must only contain
// answers defined before this one.
func (v *AnswerValidator) NumericRange(ranges NumericRanges) NumericRange {
	minimum, _ := asMap(v.answer["minimum"])
	maximum, _ := asMap(v.answer["maximum"])

	var minDefined, maxDefined any = map[string]any{}, map[string]any{}
	if has(minimum, "value") {
		minDefined = minimum["value"]
	}
	if has(maximum, "value") {
		maxDefined = maximum["value"]
	}

	r := NumericRange{
		DecimalPlaces: intOf(v.answer["decimal_places"], 0),
		Default:       v.answer["default"],
	}
	if ref, ok := asMap(minDefined); ok {
		r.MinReferred = stringOf(ref, "identifier")
	}
	if ref, ok := asMap(maxDefined); ok {
		r.MaxReferred = stringOf(ref, "identifier")
	}

	exclusive, _ := v.answer["exclusive"].(bool)
	step := 1 / math.Pow(10, float64(r.DecimalPlaces))

	r.Min = numericValue(minDefined, 0, ranges)
	r.Max = numericValue(maxDefined, MaxNumber, ranges)
	if exclusive {
		if r.Min != nil {
			*r.Min += step
		}
		if r.Max != nil {
			*r.Max -= step
		}
	}

	return r
}

// numericValue resolves a defined minimum or maximum. Literal numbers are
// used as-is; anything computed at runtime falls back to the system default,
// except references to unknown answers, which resolve to nil.
func numericValue(defined any, systemDefault float64, ranges NumericRanges) *float64 {
	if ref, ok := asMap(defined); ok {
		if stringOf(ref, "source") == "answers" {
			if _, known := ranges[stringOf(ref, "identifier")]; !known {
				return nil
			}
		}
		return &systemDefault
	}

	if f, ok := floatOf(defined); ok {
		return &f
	}
	return &systemDefault
}

// ValidateNumericAnswerTypes checks this answer's range against the ranges
// of the answers it references. ranges must already contain this answer.
func (v *AnswerValidator) ValidateNumericAnswerTypes(ranges NumericRanges) []ValidationError {
	r, ok := ranges[v.id()]
	if !ok {
		return v.errors
	}

	if v.validateReferredNumericAnswer(r) {
		return v.errors
	}

	if *r.Max-*r.Min < 0 {
		v.addError(MsgInvalidRange, map[string]any{"min": *r.Min, "max": *r.Max})
	}

	for _, referred := range []string{r.MinReferred, r.MaxReferred} {
		if referred == "" {
			continue
		}
		if ref, ok := ranges[referred]; ok && r.DecimalPlaces < ref.DecimalPlaces {
			v.addError(MsgReferencedDecimalPlacesMore, map[string]any{"referenced_id": referred})
		}
	}

	return v.errors
}

func (v *AnswerValidator) validateReferredNumericAnswer(r NumericRange) bool {
	if r.Min == nil {
		v.addError(MsgMinimumReferenceInvalid, map[string]any{"referenced_id": r.MinReferred})
		return true
	}
	if r.Max == nil {
		v.addError(MsgMaximumReferenceInvalid, map[string]any{"referenced_id": r.MaxReferred})
		return true
	}
	return false
}
