// Package questionnaire validates electronic questionnaire definitions.
//
// A questionnaire is a JSON document made of sections, groups, blocks,
// questions and answers. This package:
//   - decodes the document into generic Go values (keeping number literals intact)
//   - checks it against an embedded JSON meta schema
//   - indexes it (blocks, ids, answers with their section/group/block context)
//   - runs the semantic checks the meta schema cannot express
//     (id uniqueness, routing coverage, numeric ranges, date offsets, ...)
//
// The entry point is Validator.Validate, which returns a Report.
package questionnaire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrInvalidDocument is returned when the payload is not a JSON object.
var ErrInvalidDocument = errors.New("questionnaire must be a JSON object")

// Decode parses raw JSON into generic values.
//
// Numbers are decoded as json.Number so that integer literals (5) and
// decimal literals (5.0) can be told apart later on.
func Decode(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}

	// Trailing garbage after the first value is rejected.
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: unexpected data after top-level value", ErrInvalidDocument)
	}

	doc, ok := v.(map[string]any)
	if !ok {
		return nil, ErrInvalidDocument
	}

	return doc, nil
}

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

func asSlice(v any) ([]any, bool) {
	s, ok := v.([]any)
	return s, ok
}

// mapsOf returns the object elements of an array value, skipping anything else.
func mapsOf(v any) []map[string]any {
	items, ok := asSlice(v)
	if !ok {
		return nil
	}

	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := asMap(item); ok {
			out = append(out, m)
		}
	}
	return out
}

func stringOf(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}

func has(m map[string]any, key string) bool {
	if m == nil {
		return false
	}
	_, ok := m[key]
	return ok
}

// isIntegerLiteral reports whether v was written as a JSON integer.
func isIntegerLiteral(v any) bool {
	n, ok := v.(json.Number)
	if !ok {
		return false
	}
	return !strings.ContainsAny(n.String(), ".eE")
}

// intOf returns an integer literal as int, or def when v is missing or not an integer.
func intOf(v any, def int) int {
	if !isIntegerLiteral(v) {
		return def
	}
	i, err := strconv.Atoi(v.(json.Number).String())
	if err != nil {
		return def
	}
	return i
}

// floatOf converts any JSON number to float64.
func floatOf(v any) (float64, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	f, err := n.Float64()
	if err != nil {
		return 0, false
	}
	return f, true
}
