package pkg

import (
	"gopkg.in/yaml.v3"

	"github.com/hansbonini/popsvcd/pkg/psx"
)

// Report is the machine readable form of a result
type Report struct {
	Mode       string            `yaml:"mode"`
	Output     string            `yaml:"output,omitempty"`
	Sheet      string            `yaml:"sheet,omitempty"`
	Title      string            `yaml:"title"`
	GameID     string            `yaml:"game_id"`
	Region     string            `yaml:"region"`
	Offset     *int64            `yaml:"offset,omitempty"`
	Tracks     int               `yaml:"tracks,omitempty"`
	Sectors    uint32            `yaml:"sectors"`
	Bytes      int64             `yaml:"bytes,omitempty"`
	Gap        string            `yaml:"gap,omitempty"`
	Volume     *psx.VolumeInfo   `yaml:"volume,omitempty"`
	Candidates []ReportCandidate `yaml:"candidates,omitempty"`
	Warnings   []string          `yaml:"warnings,omitempty"`
}

// ReportCandidate is one serial occurrence in a report
type ReportCandidate struct {
	ID     string `yaml:"id"`
	Offset int64  `yaml:"offset"`
	Raw    string `yaml:"raw"`
}

// Report summarizes the result
func (r *Result) Report() Report {
	report := Report{
		Mode:    r.Mode.String(),
		Output:  r.Output,
		Sheet:   r.Sheet,
		Title:   r.Title,
		GameID:  r.Token(),
		Region:  r.Region(),
		Tracks:  r.Tracks,
		Sectors: r.Sectors,
		Bytes:   r.Bytes,
		Volume:  r.Volume,
	}
	// offsets are only meaningful for serials found in the scan window
	if r.GameID.Found && r.GameID.Offset >= 0 {
		offset := r.GameID.Offset
		report.Offset = &offset
	}
	if r.Header != nil && r.Header.TOC != nil && r.Header.TOC.Offset != 0 {
		report.Gap = gapName(r.Header.TOC.Offset)
	}
	for _, c := range r.Candidates {
		report.Candidates = append(report.Candidates, ReportCandidate{ID: c.ID.String(), Offset: c.Offset, Raw: c.Raw})
	}
	for _, w := range r.Warnings {
		report.Warnings = append(report.Warnings, w.Error())
	}
	return report
}

// YAML encodes the report summary
func (r *Result) YAML() ([]byte, error) {
	return yaml.Marshal(r.Report())
}

func gapName(offset int) string {
	switch {
	case offset > 0:
		return "plus"
	case offset < 0:
		return "minus"
	}
	return "none"
}
