package docreader

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("a.pdf"))
	assert.True(t, Supported("dir/B.MD"))
	assert.True(t, Supported("faq.csv"))
	assert.False(t, Supported("notes.txt"))
	assert.False(t, Supported("noext"))
}

func TestReadMarkdown(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "guides/refunds.md", "# Refund policy\n\nRefunds take **five** days. See [the FAQ](faq.html).\n\n```\ncurl /refund\n```\n")

	docs, err := ReadFile(path, filepath.Join("guides", "refunds.md"))

	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "guides/refunds.md", docs[0].ID)
	assert.Equal(t, "guides/refunds.md", docs[0].FilePath)
	assert.Equal(t, "Refund policy\n\nRefunds take five days. See the FAQ.\n\ncurl /refund", docs[0].Text)
}

func TestReadCSV(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "faq.csv", "question,answer\nHow do refunds work?,\"Within 5 days, by card\"\nshort\n")

	docs, err := ReadFile(path, "faq.csv")

	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "question, answer\nHow do refunds work?, Within 5 days, by card\nshort", docs[0].Text)
}

func TestReadBlankFileYieldsNothing(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "empty.md", "  \n\n")

	docs, err := ReadFile(path, "empty.md")

	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestReadUnsupportedAndBrokenFiles(t *testing.T) {
	dir := t.TempDir()

	_, err := ReadFile(writeFile(t, dir, "notes.txt", "hello"), "notes.txt")
	assert.ErrorIs(t, err, ErrUnsupported)

	_, err = ReadFile(writeFile(t, dir, "broken.pdf", "not a pdf"), "broken.pdf")
	assert.Error(t, err)

	_, err = ReadFile(filepath.Join(dir, "missing.md"), "missing.md")
	assert.Error(t, err)
}

func TestStripMarkdown(t *testing.T) {
	in := strings.Join([]string{
		"## Shipping",
		"> Quoted *note* here",
		"![diagram](img.png)",
		"Use `track` to follow __orders__.",
		"---",
		"<br/>done",
	}, "\n")

	assert.Equal(t, "Shipping\nQuoted note here\ndiagram\nUse track to follow orders.\n\ndone", StripMarkdown(in))
}
