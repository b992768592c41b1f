// Package pkg sequences the conversion engine for each operating mode.
// This file contains the job description, the mode variant and the result
// types shared by the processor and the batch runner.
package pkg

import (
	"fmt"
	"strings"

	"github.com/hansbonini/popsvcd/pkg/common"
	"github.com/hansbonini/popsvcd/pkg/gameid"
	"github.com/hansbonini/popsvcd/pkg/psx"
	"github.com/hansbonini/popsvcd/pkg/vcd"
)

// Stage is one engine component invoked by a job
type Stage uint8

const (
	StageParse Stage = 1 << iota
	StageCombine
	StageScan
	StageTOC
	StageWrite
)

// Has reports whether the set holds the stage
func (s Stage) Has(stage Stage) bool {
	return s&stage != 0
}

// Mode selects which stages a job runs
type Mode int

const (
	// ModeAuto converts a sheet straight into a VCD container
	ModeAuto Mode = iota
	// ModeCombine merges the sheet's files into one BIN and rewrites the sheet
	ModeCombine
	// ModeConvert wraps already combined data described by a sheet
	ModeConvert
	// ModeDetect only reports the game ID
	ModeDetect
)

var modeNames = map[Mode]string{
	ModeAuto:    "auto",
	ModeCombine: "combine",
	ModeConvert: "convert",
	ModeDetect:  "detect",
}

// Stages returns the set of components the mode composes. Detect adds
// parse and combine per job, see Job.Stages.
func (m Mode) Stages() Stage {
	switch m {
	case ModeAuto, ModeConvert:
		return StageParse | StageCombine | StageScan | StageTOC | StageWrite
	case ModeCombine:
		return StageParse | StageCombine | StageScan | StageWrite
	case ModeDetect:
		return StageScan
	}
	return 0
}

// Has reports whether the mode runs the stage
func (m Mode) Has(stage Stage) bool {
	return m.Stages().Has(stage)
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode accepts the names printed by Mode.String
func ParseMode(name string) (Mode, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for mode, modeName := range modeNames {
		if modeName == name {
			return mode, nil
		}
	}
	return 0, fmt.Errorf("unknown mode %q (want auto, combine, convert or detect)", name)
}

// Job describes one conversion run
type Job struct {
	Mode Mode

	// Sheet is the track sheet. Detect accepts an empty sheet when Input
	// points at raw data or a container.
	Sheet string

	// Input is the combined data file for convert, or the file to inspect
	// for detect
	Input string

	// OutputDir defaults to <sheet dir>/psx-vcd-output for auto and
	// combine, and to the input's directory for convert
	OutputDir string

	// FileName overrides the generated output file name
	FileName string

	Gap    vcd.Gap
	Policy gameid.Policy
	Debug  bool // collect every game ID candidate
}

// Stages returns the components the job runs
func (j Job) Stages() Stage {
	stages := j.Mode.Stages()
	if j.Mode == ModeDetect && common.HasExtension(j.target(), ".cue") {
		stages |= StageParse | StageCombine
	}
	return stages
}

// target is the file the job names its output after: the combined data
// for convert, the inspected file for detect and the sheet otherwise
func (j Job) target() string {
	switch j.Mode {
	case ModeConvert:
		return j.Input
	case ModeDetect:
		if j.Input != "" {
			return j.Input
		}
	}
	return j.Sheet
}

// Result is what a job produced
type Result struct {
	Mode       Mode
	Output     string // container or combined data path
	Sheet      string // rewritten sheet path (combine)
	Title      string
	GameID     gameid.Result
	Candidates []gameid.Candidate
	Volume     *psx.VolumeInfo
	Header     *vcd.Header // written, or read by detect from a container
	Tracks     int
	Sectors    uint32
	Bytes      int64

	// Warnings holds non-fatal problems such as common.ErrGameIDNotFound
	Warnings []error
}

// Token returns the game ID token used for naming
func (r *Result) Token() string {
	return r.GameID.Token()
}

// Region returns the disc region, or "unknown"
func (r *Result) Region() string {
	if !r.GameID.Found {
		return "unknown"
	}
	return r.GameID.ID.Region()
}

// ProgressFunc starts reporting a copy of total bytes. It returns the
// callback receiving each copied chunk and a function ending the report.
type ProgressFunc func(label string, total int64) (add func(int64), done func())
