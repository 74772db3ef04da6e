package ingestion

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

// unsafeChars matches filename characters that are path separators or
// reserved on common filesystems.
var unsafeChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// SanitizeFileName strips any directory component and replaces reserved
// characters with underscores. The result is safe to join under an upload
// directory.
func SanitizeFileName(name string) string {
	base := filepath.Base(name)
	return unsafeChars.ReplaceAllString(base, "_")
}

// SaveUpload writes an uploaded stream into the tenant's upload directory
// and returns the path it was stored at. An existing file with the same
// name is never overwritten: the upload lands under a timestamp-suffixed
// alternate name instead.
func SaveUpload(uploadDir, tenantID, fileName string, r io.Reader) (string, error) {
	if tenantID == "" {
		return "", fmt.Errorf("ingestion: tenant ID is required")
	}

	dir := filepath.Join(uploadDir, tenantID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("ingestion: creating upload dir: %w", err)
	}

	name := SanitizeFileName(fileName)
	if name == "" || name == "." || name == ".." {
		return "", fmt.Errorf("ingestion: invalid file name %q", fileName)
	}

	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		// Name collision or a permission problem on the original path:
		// retry once under an alternate name rather than overwriting.
		path = filepath.Join(dir, alternateName(name))
		f, err = os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			return "", fmt.Errorf("ingestion: saving upload %q: %w", name, err)
		}
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("ingestion: writing upload %q: %w", name, err)
	}
	return path, nil
}

// alternateName inserts a timestamp before the extension, so report.pdf
// becomes report_20260829T101500.pdf.
func alternateName(name string) string {
	ext := filepath.Ext(name)
	stem := name[:len(name)-len(ext)]
	return stem + "_" + time.Now().UTC().Format("20060102T150405") + ext
}
