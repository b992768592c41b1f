package cue

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hansbonini/popsvcd/pkg/common"
)

// Source is a sheet FILE located on disk
type Source struct {
	Path string
	Size int64
}

// Resolve locates every referenced file relative to dir, or to the sheet's
// own directory when dir is empty. Files are matched case-insensitively when
// the exact name does not exist, since sheets are often written on Windows.
func (s *Sheet) Resolve(dir string) ([]Source, error) {
	if dir == "" {
		dir = s.Dir
	}

	sources := make([]Source, len(s.Files))
	for i, file := range s.Files {
		path := file.Name
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, filepath.FromSlash(strings.ReplaceAll(path, `\`, "/")))
		}

		info, err := os.Stat(path)
		if os.IsNotExist(err) {
			if alt, ok := findFold(path); ok {
				path = alt
				info, err = os.Stat(path)
			}
		}
		track := s.firstTrackOf(i)
		if err != nil {
			return nil, common.NewTrackError(path, track, 0, common.ErrMissingSourceFile, "%v", err)
		}
		if !info.Mode().IsRegular() {
			return nil, common.NewTrackError(path, track, 0, common.ErrMissingSourceFile, "not a regular file")
		}
		if info.Size() == 0 {
			return nil, common.NewTrackError(path, track, 0, common.ErrMissingSourceFile, "file is empty")
		}

		sources[i] = Source{Path: path, Size: info.Size()}
	}
	return sources, nil
}

func (s *Sheet) firstTrackOf(file int) int {
	for _, track := range s.Tracks {
		if track.File == file {
			return track.Number
		}
	}
	return 0
}

// findFold looks for a directory entry matching the base name of path
// without regard to case
func findFold(path string) (string, bool) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	for _, entry := range entries {
		if strings.EqualFold(entry.Name(), base) {
			return filepath.Join(dir, entry.Name()), true
		}
	}
	return "", false
}

// String describes the source for verbose output
func (src Source) String() string {
	return fmt.Sprintf("%s (%d bytes)", src.Path, src.Size)
}
