package cue

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/exp/slices"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"github.com/hansbonini/popsvcd/pkg/common"
)

// metadataKeywords are valid sheet commands that carry nothing the
// conversion needs
var metadataKeywords = []string{
	"REM", "CATALOG", "CDTEXTFILE", "PERFORMER", "SONGWRITER", "TITLE", "FLAGS", "ISRC",
}

// supportedFileTypes lists FILE types holding raw sector data
var supportedFileTypes = []string{"BINARY"}

// utf8BOM is stripped from the start of a sheet
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

var errUnterminatedQuote = errors.New("unterminated quoted string")

// parser holds the state of a single parse run
type parser struct {
	sheet    *Sheet
	track    *Track // track being filled, nil between tracks
	line     int
	fileLine int // line of the last FILE command
}

// ParseFile parses the track sheet at path and records its directory
func ParseFile(path string) (*Sheet, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, common.FormatPathError(common.ErrFailedToOpenSheet, path, err)
	}
	defer file.Close()

	sheet, err := Parse(file)
	if err != nil {
		return nil, err
	}
	sheet.Dir = filepath.Dir(path)
	return sheet, nil
}

// ParseString parses a track sheet held in memory
func ParseString(text string) (*Sheet, error) {
	return Parse(strings.NewReader(text))
}

// Parse reads a track sheet. Sheets that are not valid UTF-8 are decoded as
// Shift-JIS, the encoding used by Japanese ripping tools.
func Parse(r io.Reader) (*Sheet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, common.FormatError(common.ErrFailedToReadSheet, err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	if !utf8.Valid(data) {
		common.LogDebug(common.DebugSheetEncoding)
		data, err = io.ReadAll(transform.NewReader(bytes.NewReader(data), japanese.ShiftJIS.NewDecoder()))
		if err != nil {
			return nil, common.FormatError(common.ErrFailedToDecodeSheet, err)
		}
	}

	p := &parser{sheet: &Sheet{}}
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		p.line++
		if err := p.parseLine(scanner.Text()); err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, common.FormatError(common.ErrFailedToReadSheet, err)
	}

	if err := p.finish(); err != nil {
		return nil, err
	}
	return p.sheet, nil
}

// parseLine dispatches one sheet line on its keyword
func (p *parser) parseLine(line string) error {
	fields, err := splitFields(line)
	if err != nil {
		return p.errorf(common.ErrMalformedSheet, "%v", err)
	}
	if len(fields) == 0 {
		return nil
	}
	common.LogDebug(common.DebugSheetLine, p.line, strings.TrimSpace(line))

	keyword := strings.ToUpper(fields[0])
	args := fields[1:]

	switch keyword {
	case "FILE":
		return p.handleFile(args)
	case "TRACK":
		return p.handleTrack(args)
	case "INDEX":
		return p.handleIndex(args)
	case "PREGAP", "POSTGAP":
		return p.handleGap(keyword, args)
	}

	if slices.Contains(metadataKeywords, keyword) {
		// Only a disc level TITLE is kept, for naming the output
		if keyword == "TITLE" && p.track == nil && len(p.sheet.Tracks) == 0 && len(args) > 0 {
			p.sheet.Title = args[0]
			return nil
		}
		if keyword != "REM" {
			common.LogDebug(common.DebugIgnoredKeyword, keyword, p.line)
		}
		return nil
	}

	return p.errorf(common.ErrMalformedSheet, "unknown keyword %q", fields[0])
}

// handleFile starts a new FILE block
func (p *parser) handleFile(args []string) error {
	if len(args) != 2 {
		return p.errorf(common.ErrMalformedSheet, "FILE expects a name and a type")
	}
	if err := p.closeTrack(); err != nil {
		return err
	}
	if err := p.checkFileUsed(); err != nil {
		return err
	}

	fileType := strings.ToUpper(args[1])
	if !slices.Contains(supportedFileTypes, fileType) {
		return p.errorf(common.ErrUnsupportedTrackMode, "file type %s does not hold raw sectors", args[1])
	}

	p.sheet.Files = append(p.sheet.Files, File{Name: args[0], Type: fileType})
	p.fileLine = p.line
	return nil
}

// handleTrack opens a new TRACK block inside the current file
func (p *parser) handleTrack(args []string) error {
	if len(args) != 2 {
		return p.errorf(common.ErrMalformedSheet, "TRACK expects a number and a mode")
	}
	if len(p.sheet.Files) == 0 {
		return p.errorf(common.ErrMalformedSheet, "TRACK before any FILE declaration")
	}
	if err := p.closeTrack(); err != nil {
		return err
	}

	number, err := strconv.Atoi(args[0])
	if err != nil || number < 1 || number > 99 {
		return p.errorf(common.ErrMalformedSheet, "invalid track number %q", args[0])
	}
	if want := len(p.sheet.Tracks) + 1; number != want {
		return p.errorf(common.ErrMalformedSheet, "track %02d out of sequence, expected %02d", number, want)
	}

	mode := TrackMode(strings.ToUpper(args[1]))
	switch {
	case !slices.Contains(knownModes, mode):
		return p.trackErrorf(number, common.ErrUnsupportedTrackMode, "unknown mode %s", args[1])
	case !mode.Supported():
		return p.trackErrorf(number, common.ErrUnsupportedTrackMode, "mode %s is not a raw 2352-byte mode", mode)
	case number == 1 && mode != ModeMode2Raw:
		return p.trackErrorf(number, common.ErrUnsupportedTrackMode, "first track must be %s, found %s", ModeMode2Raw, mode)
	}

	p.track = &Track{
		Number: number,
		Mode:   mode,
		File:   len(p.sheet.Files) - 1,
		Line:   p.line,
	}
	return nil
}

// handleIndex adds an INDEX point to the current track
func (p *parser) handleIndex(args []string) error {
	if p.track == nil {
		return p.errorf(common.ErrMalformedSheet, "INDEX outside of a TRACK")
	}
	if len(args) != 2 {
		return p.errorf(common.ErrMalformedSheet, "INDEX expects a number and a time code")
	}

	number, err := strconv.Atoi(args[0])
	if err != nil || number < 0 || number > 99 {
		return p.errorf(common.ErrMalformedSheet, "invalid index number %q", args[0])
	}
	msf, err := common.ParseMSF(args[1])
	if err != nil {
		return p.errorf(common.ErrMalformedSheet, "%v", err)
	}

	idx := Index{Number: number, Sector: msf.Sectors()}
	if n := len(p.track.Indexes); n > 0 {
		prev := p.track.Indexes[n-1]
		if idx.Number <= prev.Number {
			return p.errorf(common.ErrMalformedSheet, "INDEX %02d after INDEX %02d", idx.Number, prev.Number)
		}
		if idx.Sector < prev.Sector {
			return p.errorf(common.ErrMalformedSheet, "INDEX %02d at %s precedes INDEX %02d", idx.Number, msf, prev.Number)
		}
	}

	p.track.Indexes = append(p.track.Indexes, idx)
	return nil
}

// handleGap records a PREGAP or POSTGAP length
func (p *parser) handleGap(keyword string, args []string) error {
	if p.track == nil {
		return p.errorf(common.ErrMalformedSheet, "%s outside of a TRACK", keyword)
	}
	if len(args) != 1 {
		return p.errorf(common.ErrMalformedSheet, "%s expects a time code", keyword)
	}
	msf, err := common.ParseMSF(args[0])
	if err != nil {
		return p.errorf(common.ErrMalformedSheet, "%v", err)
	}

	if keyword == "PREGAP" {
		if len(p.track.Indexes) > 0 {
			return p.errorf(common.ErrMalformedSheet, "PREGAP must precede the track's INDEX lines")
		}
		p.track.Pregap = msf.Sectors()
		return nil
	}

	if len(p.track.Indexes) == 0 {
		return p.errorf(common.ErrMalformedSheet, "POSTGAP must follow the track's INDEX lines")
	}
	p.track.Postgap = msf.Sectors()
	return nil
}

// closeTrack validates and stores the track being filled
func (p *parser) closeTrack() error {
	track := p.track
	if track == nil {
		return nil
	}
	p.track = nil

	if len(track.Indexes) == 0 {
		return common.NewSheetError(track.Line, track.Number, common.ErrMalformedSheet, "track has no INDEX lines")
	}
	if _, ok := track.Index(1); !ok {
		return common.NewSheetError(track.Line, track.Number, common.ErrMalformedSheet, "track has no INDEX 01")
	}

	// Tracks sharing a file must not overlap
	if n := len(p.sheet.Tracks); n > 0 {
		prev := p.sheet.Tracks[n-1]
		last := prev.Indexes[len(prev.Indexes)-1]
		if prev.File == track.File && track.Start() <= last.Sector {
			return common.NewSheetError(track.Line, track.Number, common.ErrMalformedSheet,
				"track starts at sector %d, inside track %02d", track.Start(), prev.Number)
		}
	}

	p.sheet.Tracks = append(p.sheet.Tracks, *track)
	return nil
}

// checkFileUsed rejects a FILE block that declared no tracks
func (p *parser) checkFileUsed() error {
	n := len(p.sheet.Files)
	if n == 0 {
		return nil
	}
	if len(p.sheet.Tracks) == 0 || p.sheet.Tracks[len(p.sheet.Tracks)-1].File != n-1 {
		return common.NewSheetError(p.fileLine, 0, common.ErrMalformedSheet, "FILE %q declares no tracks", p.sheet.Files[n-1].Name)
	}
	return nil
}

// finish closes the last open blocks and checks sheet level invariants
func (p *parser) finish() error {
	if err := p.closeTrack(); err != nil {
		return err
	}
	if len(p.sheet.Files) == 0 {
		return common.NewSheetError(0, 0, common.ErrMalformedSheet, "sheet contains no FILE entries")
	}
	return p.checkFileUsed()
}

func (p *parser) errorf(kind error, format string, args ...interface{}) error {
	track := 0
	if p.track != nil {
		track = p.track.Number
	}
	return common.NewSheetError(p.line, track, kind, format, args...)
}

func (p *parser) trackErrorf(track int, kind error, format string, args ...interface{}) error {
	return common.NewSheetError(p.line, track, kind, format, args...)
}

// splitFields splits a sheet line on whitespace, keeping double quoted
// strings together
func splitFields(line string) ([]string, error) {
	var fields []string
	var current strings.Builder
	inQuotes, inField := false, false

	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			inField = true
		case !inQuotes && (r == ' ' || r == '\t' || r == '\r'):
			if inField {
				fields = append(fields, current.String())
				current.Reset()
				inField = false
			}
		default:
			current.WriteRune(r)
			inField = true
		}
	}

	if inQuotes {
		return nil, errUnterminatedQuote
	}
	if inField {
		fields = append(fields, current.String())
	}
	return fields, nil
}
