package common

import (
	"os"
	"path/filepath"
	"strings"
)

// SizeInMB converts a byte count to megabytes for display
func SizeInMB(size int64) float64 {
	return float64(size) / (1024 * 1024)
}

// FileExists reports whether path names an existing regular file
func FileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// HasExtension reports whether path ends with ext, ignoring case.
// ext includes the leading dot.
func HasExtension(path, ext string) bool {
	return strings.EqualFold(filepath.Ext(path), ext)
}

// FileStem returns the base name of path without its extension
func FileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// CleanFileName removes version numbers from ISO9660 file names
func CleanFileName(fileName string) string {
	// Remove version numbers (e.g., "FILE.EXT;1" -> "FILE.EXT")
	if idx := strings.LastIndex(fileName, ";"); idx != -1 {
		return fileName[:idx]
	}
	return fileName
}
