// Package cue parses and writes CUE track sheets describing raw PlayStation
// disc images.
package cue

import (
	"fmt"
	"strings"
)

// TrackMode is the sector layout declared by a TRACK command
type TrackMode string

// Track modes that share the raw 2352-byte sector size
const (
	ModeMode2Raw TrackMode = "MODE2/2352"
	ModeMode1Raw TrackMode = "MODE1/2352"
	ModeAudio    TrackMode = "AUDIO"
)

// knownModes lists every mode of the CUE grammar so unsupported ones can be
// told apart from typos
var knownModes = []TrackMode{
	ModeAudio, "CDG", "MODE1/2048", ModeMode1Raw, "MODE2/2048", "MODE2/2324",
	"MODE2/2336", ModeMode2Raw, "CDI/2336", "CDI/2352",
}

// Supported reports whether the mode uses raw 2352-byte sectors
func (m TrackMode) Supported() bool {
	return m == ModeMode2Raw || m == ModeMode1Raw || m == ModeAudio
}

// IsAudio reports whether the track carries CD-DA audio
func (m TrackMode) IsAudio() bool {
	return m == ModeAudio
}

// Index is a named position within a track, as a sector offset into the
// track's source file
type Index struct {
	Number int
	Sector uint32
}

// Track represents one TRACK block of a sheet
type Track struct {
	Number  int
	Mode    TrackMode
	Indexes []Index
	Pregap  uint32 // PREGAP sectors, not present in the source file
	Postgap uint32 // POSTGAP sectors, not present in the source file
	File    int    // index into Sheet.Files
	Line    int    // line of the TRACK command
}

// Index returns the index with the given number
func (t *Track) Index(number int) (Index, bool) {
	for _, idx := range t.Indexes {
		if idx.Number == number {
			return idx, true
		}
	}
	return Index{}, false
}

// Start returns the first sector of the track in its file: INDEX 00 when
// present, otherwise INDEX 01
func (t *Track) Start() uint32 {
	return t.Indexes[0].Sector
}

// File represents a FILE command
type File struct {
	Name string
	Type string
}

// Sheet is a parsed track sheet. Files keep declaration order, which is the
// concatenation order of the combined image.
type Sheet struct {
	Files  []File
	Tracks []Track
	Title  string
	Dir    string // directory the sheet was read from, "" for in-memory sheets
}

// TracksOf returns the tracks stored in the given file, in order
func (s *Sheet) TracksOf(file int) []Track {
	var tracks []Track
	for _, track := range s.Tracks {
		if track.File == file {
			tracks = append(tracks, track)
		}
	}
	return tracks
}

// LastTrack returns the final track of the sheet
func (s *Sheet) LastTrack() Track {
	return s.Tracks[len(s.Tracks)-1]
}

// String renders a short description used in verbose output
func (s *Sheet) String() string {
	var b strings.Builder
	for i, file := range s.Files {
		fmt.Fprintf(&b, "FILE #%d: %q %s\n", i+1, file.Name, file.Type)
		for _, track := range s.TracksOf(i) {
			fmt.Fprintf(&b, "  TRACK %02d %s\n", track.Number, track.Mode)
			if track.Pregap > 0 {
				fmt.Fprintf(&b, "    PREGAP %d sectors\n", track.Pregap)
			}
			for _, idx := range track.Indexes {
				fmt.Fprintf(&b, "    INDEX %02d sector %d\n", idx.Number, idx.Sector)
			}
			if track.Postgap > 0 {
				fmt.Fprintf(&b, "    POSTGAP %d sectors\n", track.Postgap)
			}
		}
	}
	fmt.Fprintf(&b, "Total tracks: %d", len(s.Tracks))
	return b.String()
}
