package entities

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
)

type DrawerStyle string

const (
	DrawerHighlight     DrawerStyle = "lighten"
	DrawerUnderline     DrawerStyle = "underscore"
	DrawerStrikethrough DrawerStyle = "strikeout"
	DrawerInvert        DrawerStyle = "invert"
)

// Annotation is one highlighted passage taken on the device, plus an
// optional reader note. Pos0/Pos1 are opaque position references inside the
// source document; they are empty for coordinate-only formats (e.g. PDF).
type Annotation struct {
	Chapter  string      `json:"chapter,omitempty"`
	Datetime string      `json:"datetime"`
	PageNo   int         `json:"pageno"`
	Pos0     string      `json:"pos0,omitempty"`
	Pos1     string      `json:"pos1,omitempty"`
	Text     string      `json:"text,omitempty"`
	Note     string      `json:"note,omitempty"`
	Color    string      `json:"color,omitempty"`
	Drawer   DrawerStyle `json:"drawer,omitempty"`
}

var whitespaceRuns = regexp.MustCompile(`\s+`)

// NormalizeText trims, collapses internal whitespace runs to a single space
// and case-folds. Two annotations whose normalized text matches are
// considered the same passage even if cosmetic whitespace differs.
func NormalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(whitespaceRuns.ReplaceAllString(s, " ")))
}

// Key derives the stable content-based identity of an annotation. Identity
// covers page, positions and normalized text; notes, colors and timestamps
// are cosmetic and excluded so edits to them never change identity.
func (a Annotation) Key() string {
	h := sha1.New()
	fmt.Fprintf(h, "%d|%s|%s|%s", a.PageNo, a.Pos0, a.Pos1, NormalizeText(a.Text))
	return hex.EncodeToString(h.Sum(nil))
}

// PositionKey identifies where an annotation sits in the source document,
// page plus position references, independent of its text. A passage
// re-highlighted in place keeps its position key even when the captured
// text changes, which is how an edited highlight is told apart from a
// brand new one.
func (a Annotation) PositionKey() string {
	return fmt.Sprintf("%d|%s|%s", a.PageNo, a.Pos0, a.Pos1)
}

// TextEquals reports whether both annotations carry the same normalized
// highlight text. Weaker than key equality: used to tell "modified" apart
// from "new" once a key match is found.
func (a Annotation) TextEquals(other Annotation) bool {
	return NormalizeText(a.Text) == NormalizeText(other.Text)
}

// NoteEquals reports whether both annotations carry the same normalized note.
func (a Annotation) NoteEquals(other Annotation) bool {
	return NormalizeText(a.Note) == NormalizeText(other.Note)
}
