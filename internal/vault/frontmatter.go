package vault

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type ValueKind int

const (
	KindString ValueKind = iota
	KindStringList
	KindNumber
)

// Value is the closed variant stored under a frontmatter key. Documents in
// the wild carry arbitrary user-added fields, so everything a vault document
// can express has to round-trip through one of these three kinds.
type Value struct {
	Kind ValueKind
	Str  string
	List []string
	Num  float64
}

func String(s string) Value       { return Value{Kind: KindString, Str: s} }
func StringList(l []string) Value { return Value{Kind: KindStringList, List: l} }
func Number(n float64) Value      { return Value{Kind: KindNumber, Num: n} }

// Equal compares two values structurally.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindString:
		return v.Str == other.Str
	case KindNumber:
		return v.Num == other.Num
	case KindStringList:
		if len(v.List) != len(other.List) {
			return false
		}
		for i := range v.List {
			if v.List[i] != other.List[i] {
				return false
			}
		}
		return true
	}
	return false
}

// Frontmatter is an ordered string-to-Value mapping. Key order is preserved
// across parse and render so user-arranged frontmatter stays stable between
// imports.
type Frontmatter struct {
	keys   []string
	values map[string]Value
}

func NewFrontmatter() *Frontmatter {
	return &Frontmatter{values: make(map[string]Value)}
}

func (f *Frontmatter) Get(key string) (Value, bool) {
	v, ok := f.values[key]
	return v, ok
}

func (f *Frontmatter) Has(key string) bool {
	_, ok := f.values[key]
	return ok
}

// Set stores a value, appending the key to the order if new.
func (f *Frontmatter) Set(key string, v Value) {
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = v
}

func (f *Frontmatter) Delete(key string) {
	if _, ok := f.values[key]; !ok {
		return
	}
	delete(f.values, key)
	for i, k := range f.keys {
		if k == key {
			f.keys = append(f.keys[:i], f.keys[i+1:]...)
			break
		}
	}
}

// Keys returns keys in insertion order.
func (f *Frontmatter) Keys() []string {
	out := make([]string, len(f.keys))
	copy(out, f.keys)
	return out
}

// ParseFrontmatter decodes a YAML frontmatter block (without the ---
// delimiters) into an ordered mapping. Unknown value shapes are coerced to
// strings rather than rejected; user documents must never fail to parse over
// an exotic custom field.
func ParseFrontmatter(src string) (*Frontmatter, error) {
	f := NewFrontmatter()
	if strings.TrimSpace(src) == "" {
		return f, nil
	}

	var root yaml.Node
	if err := yaml.Unmarshal([]byte(src), &root); err != nil {
		return nil, fmt.Errorf("failed to parse frontmatter: %w", err)
	}
	if len(root.Content) == 0 {
		return f, nil
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("frontmatter is not a mapping")
	}

	for i := 0; i+1 < len(doc.Content); i += 2 {
		keyNode := doc.Content[i]
		valNode := doc.Content[i+1]
		f.Set(keyNode.Value, nodeToValue(valNode))
	}
	return f, nil
}

func nodeToValue(n *yaml.Node) Value {
	switch n.Kind {
	case yaml.SequenceNode:
		list := make([]string, 0, len(n.Content))
		for _, item := range n.Content {
			list = append(list, item.Value)
		}
		return StringList(list)
	case yaml.ScalarNode:
		if n.Tag == "!!int" || n.Tag == "!!float" {
			if num, err := strconv.ParseFloat(n.Value, 64); err == nil {
				return Number(num)
			}
		}
		return String(n.Value)
	default:
		// Nested mappings and the like are flattened back to YAML text so
		// they survive the round trip verbatim.
		raw, err := yaml.Marshal(n)
		if err != nil {
			return String(n.Value)
		}
		return String(strings.TrimRight(string(raw), "\n"))
	}
}

// Render emits the frontmatter block including the --- delimiters, keys in
// insertion order.
func (f *Frontmatter) Render() string {
	var sb strings.Builder
	sb.WriteString("---\n")
	for _, key := range f.keys {
		v := f.values[key]
		switch v.Kind {
		case KindNumber:
			sb.WriteString(fmt.Sprintf("%s: %s\n", key, formatNumber(v.Num)))
		case KindStringList:
			if len(v.List) == 0 {
				sb.WriteString(fmt.Sprintf("%s: []\n", key))
				continue
			}
			sb.WriteString(key + ":\n")
			for _, item := range v.List {
				sb.WriteString(fmt.Sprintf("  - %s\n", quoteIfNeeded(item)))
			}
		default:
			sb.WriteString(fmt.Sprintf("%s: %s\n", key, quoteIfNeeded(v.Str)))
		}
	}
	sb.WriteString("---\n")
	return sb.String()
}

func formatNumber(n float64) string {
	if n == float64(int64(n)) {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func quoteIfNeeded(s string) string {
	if s == "" {
		return `""`
	}
	if strings.ContainsAny(s, ":#\"'\n") || s != strings.TrimSpace(s) {
		return strconv.Quote(s)
	}
	return s
}

// FriendlyKeys is the bidirectional table between programmatic frontmatter
// keys and the display names shown in vault settings. Kept as plain data so
// neither side needs runtime reflection.
var FriendlyKeys = map[string]string{
	"title":             "Title",
	"authors":           "Author(s)",
	"pages":             "Page count",
	"highlights_count":  "Highlight count",
	"notes_count":       "Note count",
	"last_read_date":    "Last read",
	"first_read_date":   "First read",
	"total_read_time":   "Total read time",
	"progress":          "Reading progress",
	"status":            "Reading status",
	"avg_time_per_page": "Average time per page",
	"description":       "Description",
	"keywords":          "Keywords",
	"series":            "Series",
	"language":          "Language",
}

// ProgrammaticKeys is the reverse of FriendlyKeys.
var ProgrammaticKeys = func() map[string]string {
	m := make(map[string]string, len(FriendlyKeys))
	for prog, friendly := range FriendlyKeys {
		m[friendly] = prog
	}
	return m
}()
