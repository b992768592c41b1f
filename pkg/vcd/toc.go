// Package vcd builds the table of contents and the 1 MiB header of a POPS
// VCD container and writes the container to disk.
package vcd

import (
	"fmt"
	"strings"

	"github.com/hansbonini/popsvcd/pkg/combiner"
	"github.com/hansbonini/popsvcd/pkg/common"
)

// Gap is a global adjustment applied to every time code of a TOC
type Gap int

const (
	// GapNone keeps LBAs as laid out in the payload
	GapNone Gap = iota
	// GapPlus adds the two second lead-in to every LBA
	GapPlus
	// GapMinus removes two seconds from every LBA
	GapMinus
)

// Control bytes stored in TOC entries
const (
	ControlData  byte = 0x41
	ControlAudio byte = 0x01
)

// Sectors returns the signed sector delta of the adjustment
func (g Gap) Sectors() int {
	switch g {
	case GapPlus:
		return common.LeadInSectors
	case GapMinus:
		return -common.LeadInSectors
	}
	return 0
}

func (g Gap) String() string {
	switch g {
	case GapNone:
		return "none"
	case GapPlus:
		return "plus"
	case GapMinus:
		return "minus"
	}
	return fmt.Sprintf("Gap(%d)", int(g))
}

// ParseGap turns the two mutually exclusive command line flags into a Gap
func ParseGap(plus, minus bool) (Gap, error) {
	switch {
	case plus && minus:
		return GapNone, fmt.Errorf("%w: gap-plus and gap-minus cannot be combined", common.ErrInvalidGapAdjustment)
	case plus:
		return GapPlus, nil
	case minus:
		return GapMinus, nil
	}
	return GapNone, nil
}

// ParseGapName accepts the names printed by Gap.String
func ParseGapName(name string) (Gap, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return GapNone, nil
	case "plus", "+":
		return GapPlus, nil
	case "minus", "-":
		return GapMinus, nil
	}
	return GapNone, fmt.Errorf("%w: unknown gap %q (want none, plus or minus)", common.ErrInvalidGapAdjustment, name)
}

// Layout is the combined track table a TOC is built from
type Layout interface {
	Tracks() []combiner.Track
	TotalSectors() uint32
}

// TocEntry is the TOC record of one track
type TocEntry struct {
	Track      int
	Control    byte
	LBA        uint32 // INDEX 00 when the track has a pregap, otherwise INDEX 01
	Time       common.MSF
	Index1LBA  uint32
	Index1Time common.MSF
}

// TOC is the ordered list of entries plus the lead-out position
type TOC struct {
	Entries      []TocEntry
	LeadOut      uint32
	LeadOutTime  common.MSF
	TotalSectors uint32 // payload sectors, never adjusted
	Offset       int    // sectors added to every LBA so far
}

// LastAudio reports whether the final track is an audio track
func (t *TOC) LastAudio() bool {
	return len(t.Entries) > 0 && t.Entries[len(t.Entries)-1].Control == ControlAudio
}

// BuildTOC converts the combined track table into TOC entries and applies
// the gap adjustment to every track and the lead-out
func BuildTOC(layout Layout, gap Gap) (*TOC, error) {
	tracks := layout.Tracks()
	if len(tracks) == 0 {
		return nil, common.NewSheetError(0, 0, common.ErrMalformedSheet, "no tracks to index")
	}
	if len(tracks) > MaxTracks {
		return nil, common.NewSheetError(0, 0, common.ErrMalformedSheet, "%d tracks exceed the limit of %d", len(tracks), MaxTracks)
	}

	base := &TOC{
		Entries:      make([]TocEntry, 0, len(tracks)),
		LeadOut:      layout.TotalSectors(),
		TotalSectors: layout.TotalSectors(),
	}
	for _, track := range tracks {
		idx1, ok := track.Index(1)
		if !ok {
			return nil, common.NewSheetError(0, track.Number, common.ErrMalformedSheet, "track has no INDEX 01")
		}
		start := idx1.Sector
		if track.HasPregap() {
			idx0, _ := track.Index(0)
			start = idx0.Sector
		}

		control := ControlData
		if track.Audio() {
			control = ControlAudio
		}

		if n := len(base.Entries); n > 0 && start <= base.Entries[n-1].LBA {
			return nil, common.NewSheetError(0, track.Number, common.ErrMalformedSheet,
				"track starts at sector %d, not after track %02d", start, base.Entries[n-1].Track)
		}

		base.Entries = append(base.Entries, TocEntry{
			Track:     track.Number,
			Control:   control,
			LBA:       start,
			Index1LBA: idx1.Sector,
		})
	}

	return base.Adjust(gap)
}

// Adjust returns a copy of the TOC with every LBA and the lead-out moved by
// the gap. Time codes are recomputed from the moved LBAs.
func (t *TOC) Adjust(gap Gap) (*TOC, error) {
	delta := gap.Sectors()
	adjusted := &TOC{
		Entries:      make([]TocEntry, len(t.Entries)),
		TotalSectors: t.TotalSectors,
		Offset:       t.Offset + delta,
	}

	for i, entry := range t.Entries {
		lba, err := common.SafeAddSectors(entry.LBA, delta)
		if err != nil {
			return nil, common.NewSheetError(0, entry.Track, common.ErrInvalidGapAdjustment, "gap %s on sector %d: %v", gap, entry.LBA, err)
		}
		index1, err := common.SafeAddSectors(entry.Index1LBA, delta)
		if err != nil {
			return nil, common.NewSheetError(0, entry.Track, common.ErrInvalidGapAdjustment, "gap %s on sector %d: %v", gap, entry.Index1LBA, err)
		}

		entry.LBA = lba
		entry.Time = common.MSFFromSectors(lba)
		entry.Index1LBA = index1
		entry.Index1Time = common.MSFFromSectors(index1)
		adjusted.Entries[i] = entry

		common.LogDebug(common.DebugTocEntry, entry.Track, entry.Control, entry.Time, entry.LBA, entry.Index1Time, entry.Index1LBA)
	}

	leadOut, err := common.SafeAddSectors(t.LeadOut, delta)
	if err != nil {
		return nil, common.NewSheetError(0, 0, common.ErrInvalidGapAdjustment, "gap %s on lead-out: %v", gap, err)
	}
	adjusted.LeadOut = leadOut
	adjusted.LeadOutTime = common.MSFFromSectors(leadOut)
	common.LogDebug(common.DebugLeadOut, adjusted.LeadOutTime, leadOut)

	return adjusted, nil
}
