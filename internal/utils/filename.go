package utils

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// ScreenshotFilename derives a storage filename from the capture timestamp
// at microsecond precision plus the sanitized extension of the uploaded
// file. Microsecond precision keeps rapid repeated uploads from colliding.
func ScreenshotFilename(t time.Time, originalName string) string {
	ext := sanitizeExt(filepath.Ext(originalName))
	if ext == "" {
		ext = ".png"
	}
	t = t.UTC()
	return fmt.Sprintf("%s_%06d%s", t.Format("20060102_150405"), t.Nanosecond()/1000, ext)
}

// sanitizeExt strips anything that could influence path resolution,
// keeping only a leading dot followed by alphanumerics.
func sanitizeExt(ext string) string {
	if ext == "" {
		return ""
	}
	var b strings.Builder
	for _, r := range strings.TrimLeft(ext, ".") {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return "." + strings.ToLower(b.String())
}
