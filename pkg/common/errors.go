package common

import (
	"errors"
	"fmt"
)

// Error kinds reported by the conversion pipeline. Every fatal error returned
// by the engine wraps exactly one of these, so callers can use errors.Is.
var (
	ErrMalformedSheet       = errors.New("malformed track sheet")
	ErrUnsupportedTrackMode = errors.New("unsupported track mode")
	ErrMissingSourceFile    = errors.New("missing source file")
	ErrTruncatedTrack       = errors.New("truncated track")
	ErrMisalignedTrack      = errors.New("misaligned track")
	ErrInvalidGapAdjustment = errors.New("invalid gap adjustment")

	// ErrGameIDNotFound is never fatal. It is reported as a warning next to a
	// successful result.
	ErrGameIDNotFound = errors.New("game ID not found")
)

// SheetError locates a problem inside a track sheet
type SheetError struct {
	Line  int // 1-based source line, 0 when not tied to a line
	Track int // track number, 0 when not tied to a track
	Err   error
}

func (e *SheetError) Error() string {
	switch {
	case e.Line > 0 && e.Track > 0:
		return fmt.Sprintf("line %d (track %02d): %v", e.Line, e.Track, e.Err)
	case e.Line > 0:
		return fmt.Sprintf("line %d: %v", e.Line, e.Err)
	case e.Track > 0:
		return fmt.Sprintf("track %02d: %v", e.Track, e.Err)
	}
	return e.Err.Error()
}

func (e *SheetError) Unwrap() error {
	return e.Err
}

// NewSheetError wraps kind with a formatted detail message and sheet location
func NewSheetError(line, track int, kind error, format string, args ...interface{}) *SheetError {
	return &SheetError{
		Line:  line,
		Track: track,
		Err:   fmt.Errorf("%w: "+format, append([]interface{}{kind}, args...)...),
	}
}

// TrackError locates a problem in the source data backing a track
type TrackError struct {
	File   string // source file path
	Track  int
	Offset int64 // byte offset within File
	Err    error
}

func (e *TrackError) Error() string {
	return fmt.Sprintf("%s (track %02d, offset %d): %v", e.File, e.Track, e.Offset, e.Err)
}

func (e *TrackError) Unwrap() error {
	return e.Err
}

// NewTrackError wraps kind with a formatted detail message and data location
func NewTrackError(file string, track int, offset int64, kind error, format string, args ...interface{}) *TrackError {
	return &TrackError{
		File:   file,
		Track:  track,
		Offset: offset,
		Err:    fmt.Errorf("%w: "+format, append([]interface{}{kind}, args...)...),
	}
}
