package questionnaire

import (
	"strconv"

	"github.com/tidwall/gjson"
)

// Sub-block keys used by list collectors.
var subBlockKeys = []string{"add_block", "edit_block", "add_or_edit_block", "remove_block"}

// Block types with special handling.
const (
	BlockTypeListCollector                = "ListCollector"
	BlockTypeListCollectorDrivingQuestion = "ListCollectorDrivingQuestion"
)

// Context locates a question or answer inside the questionnaire.
type Context struct {
	Section string `json:"section"`
	Block   string `json:"block"`
	GroupID string `json:"group_id"`
}

// QuestionContext is a question together with where it was found.
type QuestionContext struct {
	Question map[string]any
	Path     Path
	Context
}

// AnswerContext is an answer together with the context of its question.
type AnswerContext struct {
	Answer map[string]any
	Context
}

// IDPath is an id value with the path of the object that owns it.
type IDPath struct {
	Path  Path
	Value string
}

// Schema is an index over a decoded questionnaire.
//
// Everything is computed once in NewSchema; the index is read-only
// afterwards and safe for concurrent use.
type Schema struct {
	raw []byte
	doc map[string]any
	src gjson.Result

	Blocks      []map[string]any
	BlocksByID  map[string]map[string]any
	BlockIDs    []string
	SubBlockIDs []string
	SectionIDs  []string
	GroupIDs    []string
	ListNames   []string

	questions          []QuestionContext
	idPaths            []IDPath
	answersWithContext map[string]AnswerContext
}

// NewSchema decodes raw and builds the index.
func NewSchema(raw []byte) (*Schema, error) {
	doc, err := Decode(raw)
	if err != nil {
		return nil, err
	}
	return newSchema(raw, doc), nil
}

func newSchema(raw []byte, doc map[string]any) *Schema {
	s := &Schema{
		raw:        raw,
		doc:        doc,
		src:        gjson.ParseBytes(raw),
		BlocksByID: make(map[string]map[string]any),
	}

	for _, m := range findKey(doc, s.src, "blocks") {
		for _, block := range mapsOf(m.Value) {
			s.Blocks = append(s.Blocks, block)

			id := stringOf(block, "id")
			if _, seen := s.BlocksByID[id]; !seen {
				s.BlockIDs = append(s.BlockIDs, id)
			}
			s.BlocksByID[id] = block

			if stringOf(block, "type") == BlockTypeListCollector {
				if name := stringOf(block, "for_list"); name != "" {
					s.ListNames = append(s.ListNames, name)
				}
			}
		}
	}

	for _, key := range subBlockKeys {
		for _, m := range findKey(doc, s.src, key) {
			if sub, ok := asMap(m.Value); ok && has(sub, "id") {
				s.SubBlockIDs = append(s.SubBlockIDs, stringOf(sub, "id"))
			}
		}
	}

	for _, section := range mapsOf(doc["sections"]) {
		s.SectionIDs = append(s.SectionIDs, stringOf(section, "id"))
	}

	for _, m := range findKey(doc, s.src, "groups") {
		for _, group := range mapsOf(m.Value) {
			s.GroupIDs = append(s.GroupIDs, stringOf(group, "id"))
		}
	}

	for _, m := range findKey(doc, s.src, "question") {
		question, ok := asMap(m.Value)
		if !ok {
			continue
		}
		s.questions = append(s.questions, QuestionContext{
			Question: question,
			Path:     m.Path,
			Context:  s.contextFromPath(m.Path),
		})
	}

	for _, m := range findKey(doc, s.src, "id") {
		id, ok := m.Value.(string)
		if !ok {
			continue
		}
		owner := m.Path[:len(m.Path)-1]
		if ignoredIDPath(owner) {
			continue
		}
		s.idPaths = append(s.idPaths, IDPath{Path: owner, Value: id})
	}

	s.answersWithContext = make(map[string]AnswerContext)
	for _, q := range s.questions {
		for _, answer := range mapsOf(q.Question["answers"]) {
			s.answersWithContext[stringOf(answer, "id")] = AnswerContext{Answer: answer, Context: q.Context}

			for _, option := range mapsOf(answer["options"]) {
				if detail, ok := asMap(option["detail_answer"]); ok {
					s.answersWithContext[stringOf(detail, "id")] = AnswerContext{Answer: detail, Context: q.Context}
				}
			}
		}
	}

	return s
}

// Document returns the decoded questionnaire.
func (s *Schema) Document() map[string]any {
	return s.doc
}

// ID returns the questionnaire's top-level id, if any.
func (s *Schema) ID() string {
	return stringOf(s.doc, "id")
}

// IsHubEnabled reports whether hub.enabled is set.
func (s *Schema) IsHubEnabled() bool {
	hub, _ := asMap(s.doc["hub"])
	enabled, _ := hub["enabled"].(bool)
	return enabled
}

// QuestionsWithContext returns every question in the document.
func (s *Schema) QuestionsWithContext() []QuestionContext {
	return s.questions
}

// IDPaths returns every id that takes part in the uniqueness check.
//
// Ids used as references (routing rules, skip conditions, when clauses)
// are excluded, as are answer ids of list collector sub-blocks, which
// repeat the list collector's answers.
func (s *Schema) IDPaths() []IDPath {
	return s.idPaths
}

func ignoredIDPath(p Path) bool {
	keys := p.Keys()
	subBlock := false
	for _, k := range keys {
		switch k {
		case "routing_rules", "skip_conditions", "when":
			return true
		case "add_block", "edit_block", "add_or_edit_block", "remove_block":
			subBlock = true
		case "answers":
			if subBlock {
				return true
			}
		}
	}
	return false
}

// IDs returns the ids to check for uniqueness.
//
// Inside a block an id may be repeated (question variants share ids), so
// ids under a block are counted once per block. Ids outside blocks are
// returned as they appear.
func (s *Schema) IDs() []string {
	var (
		blockOrder []string
		perBlock   = make(map[string][]string)
		seen       = make(map[string]map[string]struct{})
		nonBlock   []string
	)

	for _, idp := range s.idPaths {
		blockPath, ok := idp.Path.elementPath("blocks")
		if !ok {
			nonBlock = append(nonBlock, idp.Value)
			continue
		}

		key := blockPath.String()
		if _, ok := seen[key]; !ok {
			seen[key] = make(map[string]struct{})
			blockOrder = append(blockOrder, key)
		}
		if _, dup := seen[key][idp.Value]; dup {
			continue
		}
		seen[key][idp.Value] = struct{}{}
		perBlock[key] = append(perBlock[key], idp.Value)
	}

	var all []string
	for _, key := range blockOrder {
		all = append(all, perBlock[key]...)
	}
	return append(all, nonBlock...)
}

// AnswersWithContext maps answer ids (detail answers included) to the
// answer and the context of its question.
func (s *Schema) AnswersWithContext() map[string]AnswerContext {
	return s.answersWithContext
}

// Answers returns every answer of every question, in document order.
func (s *Schema) Answers() []map[string]any {
	var out []map[string]any
	for _, q := range s.questions {
		out = append(out, mapsOf(q.Question["answers"])...)
	}
	return out
}

// AnswerIDToOptionValues maps each answer with options to its distinct option values.
func (s *Schema) AnswerIDToOptionValues() map[string][]string {
	out := make(map[string][]string)
	seen := make(map[string]map[string]struct{})

	for _, answer := range s.Answers() {
		if !has(answer, "options") {
			continue
		}
		id := stringOf(answer, "id")
		if seen[id] == nil {
			seen[id] = make(map[string]struct{})
		}
		for _, option := range mapsOf(answer["options"]) {
			value := stringOf(option, "value")
			if _, dup := seen[id][value]; dup {
				continue
			}
			seen[id][value] = struct{}{}
			out[id] = append(out[id], value)
		}
	}
	return out
}

// HasSingleListCollector reports whether exactly one ListCollector for
// listName exists in the section with the given id.
func (s *Schema) HasSingleListCollector(listName, sectionID string) bool {
	count := 0
	sections, _ := asSlice(s.doc["sections"])
	for i, item := range sections {
		section, ok := asMap(item)
		if !ok || stringOf(section, "id") != sectionID {
			continue
		}
		src := s.src.Get("sections." + strconv.Itoa(i))
		for _, m := range findKey(section, src, "blocks") {
			for _, block := range mapsOf(m.Value) {
				if stringOf(block, "type") == BlockTypeListCollector && stringOf(block, "for_list") == listName {
					count++
				}
			}
		}
	}
	return count == 1
}

// DrivingQuestionBlocks returns the ListCollectorDrivingQuestion blocks for listName.
func (s *Schema) DrivingQuestionBlocks(listName string) []map[string]any {
	var out []map[string]any
	for _, block := range s.Blocks {
		if stringOf(block, "type") == BlockTypeListCollectorDrivingQuestion && stringOf(block, "for_list") == listName {
			out = append(out, block)
		}
	}
	return out
}

// HasSingleDrivingQuestion reports whether listName has exactly one driving question.
func (s *Schema) HasSingleDrivingQuestion(listName string) bool {
	return len(s.DrivingQuestionBlocks(listName)) == 1
}

// QuestionsForBlock returns all questions of a block: variants first, then
// the single question.
func QuestionsForBlock(block map[string]any) []map[string]any {
	var questions []map[string]any
	for _, variant := range mapsOf(block["question_variants"]) {
		if q, ok := asMap(variant["question"]); ok {
			questions = append(questions, q)
		}
	}
	if q, ok := asMap(block["question"]); ok {
		questions = append(questions, q)
	}
	return questions
}

// IDAt returns the id of the object at path p.
func (s *Schema) IDAt(p Path) string {
	if len(p) == 0 {
		return ""
	}
	return gjson.GetBytes(s.raw, p.GJSON()+".id").String()
}

func (s *Schema) contextFromPath(p Path) Context {
	var ctx Context

	if i, ok := p.indexAfter("sections"); ok && i < len(s.SectionIDs) {
		ctx.Section = s.SectionIDs[i]
	}

	if groupPath, ok := p.elementPath("groups"); ok {
		ctx.GroupID = s.IDAt(groupPath)
	}

	blockPath, ok := p.elementPath("blocks")
	if !ok {
		return ctx
	}
	ctx.Block = s.IDAt(blockPath)

	// Questions of a list collector's sub-blocks report the sub-block id.
	if len(p) > len(blockPath) {
		key := p[len(blockPath)].Key
		for _, sub := range subBlockKeys {
			if key != sub {
				continue
			}
			if subBlock, ok := asMap(s.BlocksByID[ctx.Block][key]); ok {
				ctx.Block = stringOf(subBlock, "id")
			}
		}
	}

	return ctx
}
