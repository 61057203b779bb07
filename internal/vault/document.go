package vault

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SplitDocument separates a document into its frontmatter block (without
// delimiters) and body. The terminator must be a line holding exactly "---";
// lines merely prefixed with dashes (horizontal rules and the like) do not
// close the block. Documents without frontmatter yield an empty first return.
func SplitDocument(content string) (front, body string) {
	if !strings.HasPrefix(content, "---\n") {
		return "", content
	}
	rest := content[len("---\n"):]
	for search := 0; ; {
		idx := strings.Index(rest[search:], "\n---")
		if idx == -1 {
			return "", content
		}
		end := search + idx
		after := rest[end+len("\n---"):]
		if after == "" || strings.HasPrefix(after, "\n") {
			return rest[:end], strings.TrimPrefix(after, "\n")
		}
		search = end + 1
	}
}

// Vault provides access to documents under a single vault root. All
// DocumentRef paths are relative to this root.
type Vault struct {
	Root string
}

func New(root string) *Vault {
	return &Vault{Root: root}
}

// AbsPath resolves a vault-relative path.
func (v *Vault) AbsPath(rel string) string {
	return filepath.Join(v.Root, rel)
}

// Read returns a document's full content.
func (v *Vault) Read(rel string) (string, error) {
	data, err := os.ReadFile(v.AbsPath(rel))
	if err != nil {
		return "", fmt.Errorf("failed to read document %s: %w", rel, err)
	}
	return string(data), nil
}

// Exists reports whether a document is present.
func (v *Vault) Exists(rel string) bool {
	_, err := os.Stat(v.AbsPath(rel))
	return err == nil
}

// Write stores a document, creating parent directories as needed.
func (v *Vault) Write(rel, content string) error {
	abs := v.AbsPath(rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", rel, err)
	}
	if err := os.WriteFile(abs, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write document %s: %w", rel, err)
	}
	return nil
}

// UniquePath returns rel if it is free, otherwise appends " (1)", " (2)", ...
// before the extension until an unused name is found. Used by the keep-both
// choice, which must never touch the candidate document.
func (v *Vault) UniquePath(rel string) string {
	if !v.Exists(rel) {
		return rel
	}
	ext := filepath.Ext(rel)
	base := strings.TrimSuffix(rel, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s (%d)%s", base, i, ext)
		if !v.Exists(candidate) {
			return candidate
		}
	}
}
