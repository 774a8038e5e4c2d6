package questionnaire

import (
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"
)

// Segment is one step of a Path: either an object key or an array index.
type Segment struct {
	Key     string
	Index   int
	IsIndex bool
}

// Path locates a value inside the questionnaire document.
type Path []Segment

func (p Path) key(k string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, Segment{Key: k})
}

func (p Path) index(i int) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, Segment{Index: i, IsIndex: true})
}

// String renders the path as dot-separated keys with indices in brackets,
// e.g. sections.[0].groups.[0].blocks.[1].question.
func (p Path) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		if s.IsIndex {
			parts[i] = "[" + strconv.Itoa(s.Index) + "]"
		} else {
			parts[i] = s.Key
		}
	}
	return strings.Join(parts, ".")
}

// Pointer renders the path as a JSON pointer (RFC 6901).
func (p Path) Pointer() string {
	var b strings.Builder
	for _, s := range p {
		b.WriteByte('/')
		if s.IsIndex {
			b.WriteString(strconv.Itoa(s.Index))
			continue
		}
		k := strings.ReplaceAll(s.Key, "~", "~0")
		b.WriteString(strings.ReplaceAll(k, "/", "~1"))
	}
	return b.String()
}

var gjsonEscaper = strings.NewReplacer(
	`\`, `\\`,
	".", `\.`,
	"*", `\*`,
	"?", `\?`,
	"|", `\|`,
	"#", `\#`,
	"@", `\@`,
)

// GJSON renders the path using gjson path syntax.
func (p Path) GJSON() string {
	parts := make([]string, len(p))
	for i, s := range p {
		if s.IsIndex {
			parts[i] = strconv.Itoa(s.Index)
		} else {
			parts[i] = gjsonEscaper.Replace(s.Key)
		}
	}
	return strings.Join(parts, ".")
}

// Keys returns only the object keys of the path, dropping array indices.
func (p Path) Keys() []string {
	keys := make([]string, 0, len(p))
	for _, s := range p {
		if !s.IsIndex {
			keys = append(keys, s.Key)
		}
	}
	return keys
}

// Contains reports whether key appears as an object key in the path.
func (p Path) Contains(key string) bool {
	return p.indexOf(key) >= 0
}

func (p Path) indexOf(key string) int {
	for i, s := range p {
		if !s.IsIndex && s.Key == key {
			return i
		}
	}
	return -1
}

// elementPath returns the prefix of p up to and including the array index
// that follows the first occurrence of key, e.g. for key "blocks":
// sections.[0].groups.[0].blocks.[1].question -> sections.[0].groups.[0].blocks.[1].
func (p Path) elementPath(key string) (Path, bool) {
	i := p.indexOf(key)
	if i < 0 || i+1 >= len(p) || !p[i+1].IsIndex {
		return nil, false
	}
	return p[:i+2], true
}

// indexAfter returns the array index following the first occurrence of key.
func (p Path) indexAfter(key string) (int, bool) {
	el, ok := p.elementPath(key)
	if !ok {
		return 0, false
	}
	return el[len(el)-1].Index, true
}

// Match is a value found by a recursive key search.
type Match struct {
	// Path is the full path to the value, the matched key included.
	Path  Path
	Value any
}

// findKey performs a recursive descent over v and returns every value stored
// under key, in document order. src is the raw JSON of v; object members are
// visited in the order src declares them.
func findKey(v any, src gjson.Result, key string) []Match {
	var out []Match
	walk(v, src, nil, func(p Path, k string, value any) {
		if k == key {
			out = append(out, Match{Path: p, Value: value})
		}
	})
	return out
}

type member struct {
	key string
	src gjson.Result
}

// members lists the keys of src in declaration order. A repeated key keeps
// its first position and its last value, as decoding does.
func members(src gjson.Result) []member {
	var out []member
	index := make(map[string]int)
	src.ForEach(func(k, val gjson.Result) bool {
		name := k.String()
		if i, dup := index[name]; dup {
			out[i].src = val
			return true
		}
		index[name] = len(out)
		out = append(out, member{key: name, src: val})
		return true
	})
	return out
}

// walk calls fn for every object member in v, depth first.
func walk(v any, src gjson.Result, p Path, fn func(p Path, key string, value any)) {
	switch t := v.(type) {
	case map[string]any:
		if !src.IsObject() {
			// No source to order by: fall back to sorted keys.
			keys := make([]string, 0, len(t))
			for k := range t {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				child := p.key(k)
				fn(child, k, t[k])
				walk(t[k], gjson.Result{}, child, fn)
			}
			return
		}

		for _, m := range members(src) {
			value, ok := t[m.key]
			if !ok {
				continue
			}
			child := p.key(m.key)
			fn(child, m.key, value)
			walk(value, m.src, child, fn)
		}
	case []any:
		var items []gjson.Result
		if src.IsArray() {
			items = src.Array()
		}
		for i, item := range t {
			var itemSrc gjson.Result
			if i < len(items) {
				itemSrc = items[i]
			}
			walk(item, itemSrc, p.index(i), fn)
		}
	}
}
