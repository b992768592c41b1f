// Package common provides shared utilities for the popsvcd conversion engine.
// This file contains the logging helpers and the message catalogue used by
// every pipeline stage.
package common

import (
	"fmt"
	"log"
)

// Global variable to control debug output
var VerboseMode bool = false

// SetVerboseMode enables or disables verbose/debug output
func SetVerboseMode(verbose bool) {
	VerboseMode = verbose
}

// Error messages
const (
	ErrFailedToOpenSheet       = "failed to open track sheet"
	ErrFailedToReadSheet       = "failed to read track sheet"
	ErrFailedToDecodeSheet     = "failed to decode track sheet"
	ErrFailedToOpenSource      = "failed to open source file"
	ErrFailedToStatSource      = "failed to stat source file"
	ErrFailedToCopyTrack       = "failed to copy track data"
	ErrFailedToCreateOutputDir = "failed to create output directory"
	ErrFailedToCreateTempFile  = "failed to create temporary output file"
	ErrFailedToWriteHeader     = "failed to write container header"
	ErrFailedToWritePayload    = "failed to write container payload"
	ErrFailedToFinalizeOutput  = "failed to finalize output file"
	ErrFailedToWriteSheet      = "failed to write track sheet"
	ErrFailedToReadManifest    = "failed to read batch manifest"
	ErrFailedToParseManifest   = "failed to parse batch manifest"
)

// Info messages
const (
	InfoParsingSheet     = "Parsing track sheet: %s"
	InfoTracksFound      = "Found %d track(s) in %d file(s)"
	InfoCombining        = "Combining %d track(s) from %d file(s)"
	InfoCombinedSize     = "Combined payload: %d sectors (%.2f MB)"
	InfoGameIDFound      = "Game ID: %s (%s)"
	InfoWritingContainer = "Writing VCD container: %s"
	InfoContainerWritten = "VCD created: %s (%.2f MB)"
	InfoSheetWritten     = "Track sheet written: %s"
	InfoPayloadWritten   = "Combined data written: %s (%.2f MB)"
	InfoGapApplied       = "Applied gap adjustment: %s"
	InfoJobStarted       = "Job %d/%d started: %s %s"
	InfoJobFinished      = "Job %d/%d finished: %s"
)

// Debug messages
const (
	DebugSheetLine      = "sheet line %d: %s"
	DebugTrackExtent    = "Track %02d [%s]: file %q sectors %d-%d (pregap %d, postgap %d)"
	DebugTrackLayout    = "Track %02d: INDEX 00=%s INDEX 01=%s (sector %d) -> running total %d"
	DebugTocEntry       = "TOC track %02d [0x%02X]: start=%s (sector %d) index01=%s (sector %d)"
	DebugLeadOut        = "TOC lead-out: %s (sector %d)"
	DebugCandidateFound = "Game ID candidate %q at offset 0x%X"
	DebugScanWindow     = "Scanning %d bytes for game ID"
	DebugTempFile       = "Temporary output: %s"
	DebugSheetEncoding  = "Track sheet is not UTF-8, decoding as Shift-JIS"
	DebugIgnoredKeyword = "Ignoring sheet keyword %s on line %d"
)

// Warning messages
const (
	WarnGameIDNotFound   = "Game ID not found (non-standard or corrupted image), using %q"
	WarnCandidatesDiffer = "Found %d distinct game ID candidates, selected %s"
	WarnRemoveTempFile   = "Could not remove temporary file %s: %v"
	WarnJobFailed        = "Job %d/%d failed: %v"
)

// LogInfo logs an informational message
func LogInfo(message string, args ...interface{}) {
	if len(args) > 0 {
		log.Printf("[INFO] "+message, args...)
	} else {
		log.Printf("[INFO] %s", message)
	}
}

// LogWarn logs a warning message
func LogWarn(message string, args ...interface{}) {
	if len(args) > 0 {
		log.Printf("[WARN] "+message, args...)
	} else {
		log.Printf("[WARN] %s", message)
	}
}

// LogError logs an error message
func LogError(message string, args ...interface{}) {
	if len(args) > 0 {
		log.Printf("[ERROR] "+message, args...)
	} else {
		log.Printf("[ERROR] %s", message)
	}
}

// LogDebug logs a debug message (only if VerboseMode is enabled)
func LogDebug(message string, args ...interface{}) {
	if !VerboseMode {
		return
	}
	if len(args) > 0 {
		log.Printf("[DEBUG] "+message, args...)
	} else {
		log.Printf("[DEBUG] %s", message)
	}
}

// FormatError creates a formatted error with additional context
func FormatError(baseMessage string, details interface{}) error {
	if err, ok := details.(error); ok {
		return fmt.Errorf("%s: %w", baseMessage, err)
	}
	return fmt.Errorf("%s: %v", baseMessage, details)
}

// FormatPathError wraps an I/O error with the message and the offending path
func FormatPathError(baseMessage, path string, err error) error {
	return fmt.Errorf("%s %s: %w", baseMessage, path, err)
}
