package vcd

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hansbonini/popsvcd/pkg/common"
)

// Header layout
const (
	HeaderSize = 0x100000
	MaxTracks  = 99

	descriptorA0Offset = 0x00
	descriptorA1Offset = 0x0A
	descriptorA2Offset = 0x14
	trackTableOffset   = 0x1E
	trackEntrySize     = 10

	signatureOffset   = 0x400
	sectorsOffset     = 0x408
	sectorsCopyOffset = 0x40C
	gameIDOffset      = 0x410
	gameIDSize        = 16
	trackCountOffset  = 0x420

	discTypeXA = 0x20
)

// Signature marks the header as produced by a cue2pops compatible writer
var Signature = [4]byte{0x6B, 0x48, 0x6E, 0x20}

// Header is the decoded form of a container header
type Header struct {
	TOC    *TOC
	GameID string
}

// Encode renders the 1 MiB header
func (h *Header) Encode() ([]byte, error) {
	toc := h.TOC
	if toc == nil || len(toc.Entries) == 0 {
		return nil, fmt.Errorf("header needs at least one track")
	}
	if len(toc.Entries) > MaxTracks {
		return nil, fmt.Errorf("%d tracks exceed the limit of %d", len(toc.Entries), MaxTracks)
	}
	if len(h.GameID) > gameIDSize {
		return nil, fmt.Errorf("game ID %q longer than %d bytes", h.GameID, gameIDSize)
	}
	trackCount, err := common.SafeIntToUint8(len(toc.Entries))
	if err != nil {
		return nil, err
	}

	header := make([]byte, HeaderSize)

	// A0: first track number and disc type
	a0 := header[descriptorA0Offset:]
	a0[0] = toc.Entries[0].Control
	a0[2] = 0xA0
	a0[7] = common.ToBCD(uint8(toc.Entries[0].Track))
	a0[8] = discTypeXA

	// A1: last track number in BCD and the content type of the disc
	content := ControlData
	if toc.LastAudio() {
		content = ControlAudio
	}
	a1 := header[descriptorA1Offset:]
	a1[0] = content
	a1[2] = 0xA1
	a1[7] = common.ToBCD(trackCount)
	a1[10] = content

	// A2: lead-out
	a2 := header[descriptorA2Offset:]
	a2[2] = 0xA2
	leadOut := toc.LeadOutTime.BCD()
	copy(a2[7:10], leadOut[:])

	for i, entry := range toc.Entries {
		record := header[trackTableOffset+i*trackEntrySize:]
		start := entry.Time.BCD()
		index1 := entry.Index1Time.BCD()

		record[0] = entry.Control
		record[2] = common.ToBCD(uint8(entry.Track))
		copy(record[3:6], start[:])
		copy(record[7:10], index1[:])
	}

	copy(header[signatureOffset:], Signature[:])
	binary.LittleEndian.PutUint32(header[sectorsOffset:], toc.TotalSectors)
	binary.LittleEndian.PutUint32(header[sectorsCopyOffset:], toc.TotalSectors)
	copy(header[gameIDOffset:gameIDOffset+gameIDSize], h.GameID)
	header[trackCountOffset] = trackCount

	return header, nil
}

// DecodeHeader parses a header produced by Encode
func DecodeHeader(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("header is %d bytes, want %d", len(data), HeaderSize)
	}
	if !bytes.Equal(data[signatureOffset:signatureOffset+len(Signature)], Signature[:]) {
		return nil, fmt.Errorf("missing VCD signature at 0x%X", signatureOffset)
	}
	if data[descriptorA0Offset+2] != 0xA0 || data[descriptorA1Offset+2] != 0xA1 || data[descriptorA2Offset+2] != 0xA2 {
		return nil, fmt.Errorf("malformed TOC descriptors")
	}

	count := int(data[trackCountOffset])
	if count == 0 || count > MaxTracks {
		return nil, fmt.Errorf("invalid track count %d", count)
	}
	if bcdCount, err := common.FromBCD(data[descriptorA1Offset+7]); err != nil || int(bcdCount) != count {
		return nil, fmt.Errorf("track count %d disagrees with TOC descriptor 0x%02X", count, data[descriptorA1Offset+7])
	}

	toc := &TOC{
		Entries:      make([]TocEntry, 0, count),
		TotalSectors: binary.LittleEndian.Uint32(data[sectorsOffset:]),
	}
	if copySectors := binary.LittleEndian.Uint32(data[sectorsCopyOffset:]); copySectors != toc.TotalSectors {
		return nil, fmt.Errorf("sector counts disagree: %d and %d", toc.TotalSectors, copySectors)
	}

	leadOut, err := msfAt(data, descriptorA2Offset+7)
	if err != nil {
		return nil, fmt.Errorf("lead-out: %w", err)
	}
	toc.LeadOutTime = leadOut
	toc.LeadOut = leadOut.Sectors()
	toc.Offset = int(toc.LeadOut) - int(toc.TotalSectors)

	for i := 0; i < count; i++ {
		offset := trackTableOffset + i*trackEntrySize
		track, err := common.FromBCD(data[offset+2])
		if err != nil {
			return nil, fmt.Errorf("track entry %d: %w", i+1, err)
		}
		start, err := msfAt(data, offset+3)
		if err != nil {
			return nil, fmt.Errorf("track %02d start: %w", track, err)
		}
		index1, err := msfAt(data, offset+7)
		if err != nil {
			return nil, fmt.Errorf("track %02d index 01: %w", track, err)
		}

		toc.Entries = append(toc.Entries, TocEntry{
			Track:      int(track),
			Control:    data[offset],
			LBA:        start.Sectors(),
			Time:       start,
			Index1LBA:  index1.Sectors(),
			Index1Time: index1,
		})
	}

	return &Header{
		TOC:    toc,
		GameID: string(bytes.TrimRight(data[gameIDOffset:gameIDOffset+gameIDSize], "\x00")),
	}, nil
}

// ReadHeader reads and decodes the header at the start of a container
func ReadHeader(r io.Reader) (*Header, error) {
	data := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, fmt.Errorf("failed to read VCD header: %w", err)
	}
	return DecodeHeader(data)
}

func msfAt(data []byte, offset int) (common.MSF, error) {
	return common.MSFFromBCD([3]byte{data[offset], data[offset+1], data[offset+2]})
}
