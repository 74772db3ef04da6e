package ingestion

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFileName(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"report.pdf":            "report.pdf",
		"../../etc/passwd":      "passwd",
		`bad<name>:"file".txt`:  "bad_name___file_.txt",
		"dir/sub/nested.docx":   "nested.docx",
		`windows\style\path.md`: "windows_style_path.md",
	}
	for in, want := range cases {
		assert.Equalf(t, want, SanitizeFileName(in), "input %q", in)
	}
}

func TestSaveUploadWritesUnderTenantDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path, err := SaveUpload(dir, "tenantA", "report.pdf", strings.NewReader("content"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "tenantA", "report.pdf"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "content", string(data))
}

func TestSaveUploadNeverOverwrites(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	first, err := SaveUpload(dir, "tenantA", "report.pdf", strings.NewReader("original"))
	require.NoError(t, err)

	second, err := SaveUpload(dir, "tenantA", "report.pdf", strings.NewReader("new version"))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
	assert.True(t, strings.HasSuffix(second, ".pdf"))

	data, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data), "existing upload must stay untouched")
}

func TestSaveUploadRejectsEmptyTenant(t *testing.T) {
	t.Parallel()

	_, err := SaveUpload(t.TempDir(), "", "report.pdf", strings.NewReader("x"))
	assert.Error(t, err)
}

func TestSaveUploadRejectsDotNames(t *testing.T) {
	t.Parallel()

	_, err := SaveUpload(t.TempDir(), "tenantA", "..", strings.NewReader("x"))
	assert.Error(t, err)
}
