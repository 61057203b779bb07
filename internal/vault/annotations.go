package vault

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/mrlokans/koimport/internal/entities"
)

// Annotation blocks are written as a hidden marker comment carrying the
// identity fields, followed by a visible callout. The marker is what lets a
// later import recover page/position identity from the rendered body.
//
//	<!-- hl: page=12 pos0="/body/div[2]" pos1="/body/div[3]" -->
//	> [!quote] 2024-01-15 10:03:12 • Chapter Three
//	> highlighted passage
//
//	> [!note] Note
//	> reader's note

var (
	markerPattern  = regexp.MustCompile(`^<!-- hl: page=(\d+) pos0=(".*?") pos1=(".*?") -->$`)
	calloutPattern = regexp.MustCompile(`^> \[!(\w+)\]\s*(.*)$`)
)

// calloutForDrawer maps a rendering style tag to the callout type shown in
// the vault, mirroring how reading apps signal the style visually.
func calloutForDrawer(d entities.DrawerStyle) string {
	switch d {
	case entities.DrawerUnderline:
		return "success"
	case entities.DrawerStrikethrough:
		return "failure"
	case entities.DrawerInvert:
		return "warning"
	default:
		return "quote"
	}
}

func drawerForCallout(callout string) entities.DrawerStyle {
	switch callout {
	case "success":
		return entities.DrawerUnderline
	case "failure":
		return entities.DrawerStrikethrough
	case "warning":
		return entities.DrawerInvert
	default:
		return entities.DrawerHighlight
	}
}

// RenderAnnotation emits one annotation block in the body format above.
func RenderAnnotation(a entities.Annotation) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("<!-- hl: page=%d pos0=%s pos1=%s -->\n",
		a.PageNo, strconv.Quote(a.Pos0), strconv.Quote(a.Pos1)))

	header := a.Datetime
	if strings.TrimSpace(a.Chapter) != "" {
		header += " • " + a.Chapter
	}
	sb.WriteString(fmt.Sprintf("> [!%s] %s\n", calloutForDrawer(a.Drawer), header))
	for _, line := range strings.Split(strings.TrimSpace(a.Text), "\n") {
		sb.WriteString("> " + line + "\n")
	}

	if strings.TrimSpace(a.Note) != "" {
		sb.WriteString("\n> [!note] Note\n")
		for _, line := range strings.Split(strings.TrimSpace(a.Note), "\n") {
			sb.WriteString("> " + line + "\n")
		}
	}

	sb.WriteString("\n")
	return sb.String()
}

// ParseAnnotations extracts the annotation set back out of a rendered body.
// Prose a user added between blocks is ignored here; only marker-led blocks
// count as annotations.
func ParseAnnotations(body string) []entities.Annotation {
	var (
		annotations []entities.Annotation
		current     *entities.Annotation
		text        strings.Builder
		note        strings.Builder
		inNote      bool
	)

	flush := func() {
		if current == nil {
			return
		}
		current.Text = strings.TrimSpace(text.String())
		current.Note = strings.TrimSpace(note.String())
		annotations = append(annotations, *current)
		current = nil
		text.Reset()
		note.Reset()
		inNote = false
	}

	for _, line := range strings.Split(body, "\n") {
		if m := markerPattern.FindStringSubmatch(line); m != nil {
			flush()
			page, _ := strconv.Atoi(m[1])
			pos0, _ := strconv.Unquote(m[2])
			pos1, _ := strconv.Unquote(m[3])
			current = &entities.Annotation{PageNo: page, Pos0: pos0, Pos1: pos1}
			continue
		}
		if current == nil {
			continue
		}
		if m := calloutPattern.FindStringSubmatch(line); m != nil {
			if m[1] == "note" {
				inNote = true
				continue
			}
			current.Drawer = drawerForCallout(m[1])
			header := m[2]
			if idx := strings.Index(header, " • "); idx != -1 {
				current.Datetime = header[:idx]
				current.Chapter = header[idx+len(" • "):]
			} else {
				current.Datetime = header
			}
			continue
		}
		if strings.HasPrefix(line, ">") {
			content := strings.TrimPrefix(strings.TrimPrefix(line, ">"), " ")
			dst := &text
			if inNote {
				dst = &note
			}
			if dst.Len() > 0 {
				dst.WriteString("\n")
			}
			dst.WriteString(content)
		}
	}
	flush()

	return annotations
}
