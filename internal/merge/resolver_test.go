package merge

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/koimport/internal/entities"
	"github.com/mrlokans/koimport/internal/snapshot"
	"github.com/mrlokans/koimport/internal/vault"
)

func newTestResolver(t *testing.T) (*Resolver, *vault.Vault, *snapshot.Store) {
	t.Helper()
	root := t.TempDir()
	v := vault.New(root)
	store := snapshot.NewStore(filepath.Join(root, ".snapshots"), filepath.Join(root, ".backups"))
	store.MaxTries = 1
	store.Interval = 1
	return NewResolver(v, store, "highlights"), v, store
}

func docContent(title, body string) string {
	return "---\ntitle: " + title + "\n---\n" + body
}

func staticGenerate(content string) GenerateFunc {
	return func() (string, error) { return content, nil }
}

func confirmAlways(answer bool) ConfirmFunc {
	return func(ctx context.Context) (bool, error) { return answer, nil }
}

func matchFor(path, title string) entities.DuplicateMatch {
	return entities.DuplicateMatch{
		Document: entities.DocumentRef{Path: path},
		Metadata: entities.BookMetadata{Props: entities.DocProps{Title: title}},
	}
}

func TestApplySkip(t *testing.T) {
	r, _, _ := newTestResolver(t)

	result, err := r.Apply(context.Background(), entities.ChoiceSkip, matchFor("highlights/X.md", "X"), staticGenerate(""), confirmAlways(true))
	require.NoError(t, err)
	assert.Equal(t, entities.ChoiceSkip, result.Choice)
	assert.Nil(t, result.Document)
}

func TestApplyReplace(t *testing.T) {
	r, v, store := newTestResolver(t)
	path := "highlights/Some Book.md"
	require.NoError(t, v.Write(path, docContent("Some Book", "old body\n")))

	fresh := docContent("Some Book", "new body\n")
	result, err := r.Apply(context.Background(), entities.ChoiceReplace, matchFor(path, "Some Book"), staticGenerate(fresh), confirmAlways(true))
	require.NoError(t, err)

	assert.Equal(t, entities.ChoiceReplace, result.Choice)
	require.NotNil(t, result.Document)
	assert.Equal(t, path, result.Document.Path)

	content, err := v.Read(path)
	require.NoError(t, err)
	assert.Equal(t, fresh, content)

	// Replace records the written content as the next merge base.
	base, ok := store.Get(path)
	require.True(t, ok)
	assert.Equal(t, fresh, base)

	// And keeps a timestamped backup of the previous content.
	backups, err := os.ReadDir(filepath.Join(v.Root, ".backups"))
	require.NoError(t, err)
	assert.Len(t, backups, 1)
}

func TestApplyKeepBoth(t *testing.T) {
	r, v, _ := newTestResolver(t)
	path := "highlights/Some Book.md"
	original := docContent("Some Book", "original body\n")
	require.NoError(t, v.Write(path, original))

	fresh := docContent("Some Book", "imported body\n")
	result, err := r.Apply(context.Background(), entities.ChoiceKeepBoth, matchFor(path, "Some Book"), staticGenerate(fresh), confirmAlways(true))
	require.NoError(t, err)

	assert.Equal(t, entities.ChoiceKeepBoth, result.Choice)
	require.NotNil(t, result.Document)
	assert.Equal(t, "highlights/Some Book (1).md", result.Document.Path)

	// The candidate is untouched.
	content, err := v.Read(path)
	require.NoError(t, err)
	assert.Equal(t, original, content)

	sibling, err := v.Read(result.Document.Path)
	require.NoError(t, err)
	assert.Equal(t, fresh, sibling)
}

func TestAutoMergeWithBaseTakesTheirs(t *testing.T) {
	r, v, store := newTestResolver(t)
	path := "highlights/Some Book.md"
	existing := docContent("Some Book", "line1\nline2\n")
	require.NoError(t, v.Write(path, existing))
	require.NoError(t, store.Create(path, existing))

	fresh := docContent("Some Book", "line1\nline2\nline3\n")
	result, err := r.Apply(context.Background(), entities.ChoiceAutoMerge, matchFor(path, "Some Book"), staticGenerate(fresh), confirmAlways(false))
	require.NoError(t, err)

	assert.Equal(t, entities.ChoiceAutoMerge, result.Choice)
	assert.False(t, result.HasConflicts)

	content, err := v.Read(path)
	require.NoError(t, err)
	assert.Contains(t, content, "line3")
}

func TestMergePreservesUserEdits(t *testing.T) {
	r, v, store := newTestResolver(t)
	path := "highlights/Some Book.md"

	base := docContent("Some Book", "intro\nmiddle\noutro\n")
	require.NoError(t, store.Create(path, base))
	// User edited the last line since the snapshot was taken.
	require.NoError(t, v.Write(path, docContent("Some Book", "intro\nmiddle\nmy own outro\n")))

	// The fresh import only changed the first line.
	fresh := docContent("Some Book", "new intro\nmiddle\noutro\n")
	result, err := r.Apply(context.Background(), entities.ChoiceMerge, matchFor(path, "Some Book"), staticGenerate(fresh), confirmAlways(false))
	require.NoError(t, err)
	assert.False(t, result.HasConflicts)

	content, err := v.Read(path)
	require.NoError(t, err)
	assert.Contains(t, content, "new intro")
	assert.Contains(t, content, "my own outro")
	assert.NotContains(t, content, conflictBegin)
}

func TestMergeConflictKeepsBothSides(t *testing.T) {
	r, v, store := newTestResolver(t)
	path := "highlights/Some Book.md"

	base := docContent("Some Book", "shared\ndisputed\n")
	require.NoError(t, store.Create(path, base))
	require.NoError(t, v.Write(path, docContent("Some Book", "shared\nvault version\n")))

	fresh := docContent("Some Book", "shared\nimport version\n")
	result, err := r.Apply(context.Background(), entities.ChoiceMerge, matchFor(path, "Some Book"), staticGenerate(fresh), confirmAlways(false))
	require.NoError(t, err)
	assert.True(t, result.HasConflicts)

	content, err := v.Read(path)
	require.NoError(t, err)
	assert.Contains(t, content, "> [!warning] Merge conflict")
	assert.Contains(t, content, conflictBegin)
	assert.Contains(t, content, conflictSeparator)
	assert.Contains(t, content, conflictEnd)
	assert.Contains(t, content, "vault version")
	assert.Contains(t, content, "import version")

	// Conflicted content is still written; the import is not blocked.
	assert.True(t, strings.HasPrefix(content, "---\n"))
}

func TestAutoMergeRefusedWithoutBase(t *testing.T) {
	r, v, store := newTestResolver(t)
	path := "highlights/Some Book.md"
	require.NoError(t, v.Write(path, docContent("Some Book", "body\n")))

	// Make the snapshot directory impossible to create so the on-the-fly
	// snapshot cannot be established either.
	blocker := filepath.Join(v.Root, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	store.Dir = filepath.Join(blocker, "snapshots")

	result, err := r.Apply(context.Background(), entities.ChoiceAutoMerge, matchFor(path, "Some Book"), staticGenerate(docContent("Some Book", "fresh\n")), confirmAlways(true))
	require.NoError(t, err)
	assert.Equal(t, entities.ChoiceSkip, result.Choice, "automerge must refuse to guess without a base")

	content, err := v.Read(path)
	require.NoError(t, err)
	assert.Contains(t, content, "body")
	assert.NotContains(t, content, "fresh")
}

func TestMergeWithoutBaseDeclined(t *testing.T) {
	r, v, store := newTestResolver(t)
	path := "highlights/Some Book.md"
	require.NoError(t, v.Write(path, docContent("Some Book", "body\n")))

	blocker := filepath.Join(v.Root, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	store.Dir = filepath.Join(blocker, "snapshots")

	result, err := r.Apply(context.Background(), entities.ChoiceMerge, matchFor(path, "Some Book"), staticGenerate(docContent("Some Book", "fresh\n")), confirmAlways(false))
	require.NoError(t, err)
	assert.Equal(t, entities.ChoiceSkip, result.Choice)
}

func TestMergeWithoutBaseConfirmedUnionsAnnotations(t *testing.T) {
	r, v, store := newTestResolver(t)
	path := "highlights/Some Book.md"

	blocker := filepath.Join(v.Root, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))
	store.Dir = filepath.Join(blocker, "snapshots")

	existing := entities.Annotation{PageNo: 1, Pos0: "p0", Text: "kept passage", Note: "my note"}
	fresh := entities.Annotation{PageNo: 2, Pos0: "p1", Text: "new passage"}
	// The device's copy of the first annotation has no note; same identity key.
	deviceCopy := existing
	deviceCopy.Note = ""

	require.NoError(t, v.Write(path, docContent("Some Book", vault.RenderAnnotation(existing))))
	generated := docContent("Some Book", vault.RenderAnnotation(deviceCopy)+vault.RenderAnnotation(fresh))

	result, err := r.Apply(context.Background(), entities.ChoiceMerge, matchFor(path, "Some Book"), staticGenerate(generated), confirmAlways(true))
	require.NoError(t, err)
	assert.Equal(t, entities.ChoiceMerge, result.Choice)

	content, err := v.Read(path)
	require.NoError(t, err)
	_, body := vault.SplitDocument(content)
	merged := vault.ParseAnnotations(body)
	require.Len(t, merged, 2)
	assert.Equal(t, "kept passage", merged[0].Text)
	assert.Equal(t, "my note", merged[0].Note, "existing wins on key collision")
	assert.Equal(t, "new passage", merged[1].Text)
}

func TestCreateNew(t *testing.T) {
	r, v, store := newTestResolver(t)
	meta := entities.BookMetadata{Props: entities.DocProps{Title: "Fresh Book"}}

	fresh := docContent("Fresh Book", "body\n")
	result, err := r.CreateNew(meta, staticGenerate(fresh))
	require.NoError(t, err)
	require.NotNil(t, result.Document)
	assert.Equal(t, "highlights/Fresh Book.md", result.Document.Path)

	content, err := v.Read(result.Document.Path)
	require.NoError(t, err)
	assert.Equal(t, fresh, content)

	_, ok := store.Get(result.Document.Path)
	assert.True(t, ok, "new documents get a snapshot immediately")
}
