// Package combiner lays the tracks of a sheet out as one contiguous run of raw
// sectors and streams that payload from the original source files.
package combiner

import (
	"github.com/hansbonini/popsvcd/pkg/common"
	"github.com/hansbonini/popsvcd/pkg/cue"
	"github.com/hansbonini/popsvcd/pkg/psx"
)

// Source is a sheet FILE located on disk
type Source = cue.Source

const sectorSize = psx.CD_SECTOR_SIZE

// Track is a track of the combined image. Index sectors are absolute
// positions in the payload.
type Track struct {
	Number  int
	Mode    cue.TrackMode
	Indexes []cue.Index
	Pregap  uint32 // zero sectors inserted before the track data
	Postgap uint32 // zero sectors appended after the track data
	Start   uint32 // first payload sector of the track, pregap included
	Length  uint32 // payload sectors of the track, gaps included
}

// Index returns the index with the given number
func (t Track) Index(number int) (cue.Index, bool) {
	for _, idx := range t.Indexes {
		if idx.Number == number {
			return idx, true
		}
	}
	return cue.Index{}, false
}

// HasPregap reports whether the track starts with a pregap, either declared
// with PREGAP or stored in the source as INDEX 00
func (t Track) HasPregap() bool {
	idx0, ok0 := t.Index(0)
	idx1, ok1 := t.Index(1)
	return ok0 && ok1 && idx0.Sector < idx1.Sector
}

// Audio reports whether the track carries CD-DA audio
func (t Track) Audio() bool {
	return t.Mode.IsAudio()
}

// segment maps a byte range of the payload onto a source file, or onto
// zero fill when path is empty
type segment struct {
	start  int64
	length int64
	path   string
	offset int64
	track  int
}

// Image is the layout of a combined payload. It is immutable once planned.
type Image struct {
	tracks   []Track
	segments []segment
	sectors  uint32
	title    string

	// OnProgress, when set, receives the number of payload bytes delivered
	// by each read of an opened payload
	OnProgress func(int64)
}

// Tracks returns the combined track table
func (img *Image) Tracks() []Track {
	return img.tracks
}

// TotalSectors returns the number of sectors in the payload
func (img *Image) TotalSectors() uint32 {
	return img.sectors
}

// Size returns the payload size in bytes
func (img *Image) Size() int64 {
	return int64(img.sectors) * sectorSize
}

// Title returns the disc title carried over from the sheet
func (img *Image) Title() string {
	return img.title
}

// Combine resolves the sheet's files relative to dir and plans the image
func Combine(sheet *cue.Sheet, dir string) (*Image, error) {
	sources, err := sheet.Resolve(dir)
	if err != nil {
		return nil, err
	}
	return Plan(sheet, sources)
}

// Plan lays out the sheet over sources, one per sheet file. Every track is
// copied from its first index up to the next track of the same file, or to
// the end of the file, and the running sector total advances by the gaps and
// the copied extent. The first track of a file is copied from sector 0, so
// sectors ahead of its first index become pregap. Nothing is read.
func Plan(sheet *cue.Sheet, sources []Source) (*Image, error) {
	if len(sources) != len(sheet.Files) {
		return nil, common.NewSheetError(0, 0, common.ErrMalformedSheet,
			"sheet declares %d file(s), %d source(s) given", len(sheet.Files), len(sources))
	}
	if len(sheet.Tracks) == 0 {
		return nil, common.NewSheetError(0, 0, common.ErrMalformedSheet, "sheet has no tracks")
	}

	img := &Image{
		tracks: make([]Track, 0, len(sheet.Tracks)),
		title:  sheet.Title,
	}
	var running uint32

	for i, track := range sheet.Tracks {
		src := sources[track.File]
		first := track.Start()
		start := first
		if i == 0 || sheet.Tracks[i-1].File != track.File {
			start = 0
		}

		end, err := extentEnd(sheet, i, src)
		if err != nil {
			return nil, err
		}
		if end <= first {
			if end == fileSectors(src) {
				return nil, common.NewTrackError(src.Path, track.Number, int64(first)*sectorSize,
					common.ErrTruncatedTrack, "track starts at sector %d, file holds %d sectors", first, end)
			}
			return nil, common.NewSheetError(track.Line, track.Number, common.ErrMalformedSheet, "track has no sectors")
		}
		last := track.Indexes[len(track.Indexes)-1]
		if last.Sector >= end {
			return nil, common.NewTrackError(src.Path, track.Number, int64(last.Sector)*sectorSize,
				common.ErrTruncatedTrack, "INDEX %02d at sector %d is past the end of the track data", last.Number, last.Sector)
		}

		extent := end - start
		length := uint64(track.Pregap) + uint64(extent) + uint64(track.Postgap)
		if uint64(running)+length > common.MaxSectors {
			return nil, common.NewSheetError(track.Line, track.Number, common.ErrMalformedSheet,
				"image exceeds %d sectors", common.MaxSectors)
		}

		common.LogDebug(common.DebugTrackExtent, track.Number, track.Mode, src.Path, start, end-1, track.Pregap, track.Postgap)

		combined := Track{
			Number:  track.Number,
			Mode:    track.Mode,
			Pregap:  track.Pregap,
			Postgap: track.Postgap,
			Start:   running,
			Length:  uint32(length),
		}
		// INDEX 00 moves to the head of any zero fill or leading file data
		lead := track.Pregap > 0 || start < first
		if lead {
			combined.Indexes = append(combined.Indexes, cue.Index{Number: 0, Sector: running})
		}
		for _, idx := range track.Indexes {
			if idx.Number == 0 && lead {
				continue
			}
			combined.Indexes = append(combined.Indexes, cue.Index{
				Number: idx.Number,
				Sector: running + track.Pregap + (idx.Sector - start),
			})
		}

		img.addZeros(track.Number, track.Pregap)
		img.addData(track.Number, src.Path, int64(start)*sectorSize, int64(extent)*sectorSize)
		img.addZeros(track.Number, track.Postgap)
		img.tracks = append(img.tracks, combined)

		running += uint32(length)
		img.sectors = running

		idx1, _ := combined.Index(1)
		common.LogDebug(common.DebugTrackLayout, combined.Number, common.MSFFromSectors(combined.Start),
			common.MSFFromSectors(idx1.Sector), idx1.Sector, running)
	}

	return img, nil
}

// extentEnd returns the sector following the last sector of track i in its
// source file
func extentEnd(sheet *cue.Sheet, i int, src Source) (uint32, error) {
	track := sheet.Tracks[i]

	if i+1 < len(sheet.Tracks) && sheet.Tracks[i+1].File == track.File {
		end := sheet.Tracks[i+1].Start()
		if int64(end)*sectorSize > src.Size {
			return 0, common.NewTrackError(src.Path, track.Number, src.Size, common.ErrTruncatedTrack,
				"track data ends at sector %d, file holds %d bytes", end, src.Size)
		}
		return end, nil
	}

	if src.Size%sectorSize != 0 {
		return 0, common.NewTrackError(src.Path, track.Number, src.Size-src.Size%sectorSize, common.ErrMisalignedTrack,
			"file size %d is not a multiple of %d", src.Size, sectorSize)
	}
	return fileSectors(src), nil
}

func fileSectors(src Source) uint32 {
	return uint32(src.Size / sectorSize)
}

// addZeros appends a zero filled segment of the given sector count
func (img *Image) addZeros(track int, sectors uint32) {
	if sectors == 0 {
		return
	}
	img.addSegment(segment{length: int64(sectors) * sectorSize, track: track})
}

// addData appends a file backed segment, merging it with the previous one
// when both are contiguous in the same file
func (img *Image) addData(track int, path string, offset, length int64) {
	if n := len(img.segments); n > 0 {
		prev := &img.segments[n-1]
		if prev.path == path && prev.offset+prev.length == offset {
			prev.length += length
			return
		}
	}
	img.addSegment(segment{length: length, path: path, offset: offset, track: track})
}

func (img *Image) addSegment(seg segment) {
	if n := len(img.segments); n > 0 {
		prev := img.segments[n-1]
		seg.start = prev.start + prev.length
	}
	img.segments = append(img.segments, seg)
}

// Rebind returns a copy of the layout whose payload is read from an already
// combined data file
func (img *Image) Rebind(src Source) (*Image, error) {
	last := img.tracks[len(img.tracks)-1].Number
	switch {
	case src.Size%sectorSize != 0:
		return nil, common.NewTrackError(src.Path, last, src.Size-src.Size%sectorSize, common.ErrMisalignedTrack,
			"file size %d is not a multiple of %d", src.Size, sectorSize)
	case src.Size < img.Size():
		return nil, common.NewTrackError(src.Path, last, src.Size, common.ErrTruncatedTrack,
			"combined data holds %d bytes, layout needs %d", src.Size, img.Size())
	case src.Size > img.Size():
		return nil, common.NewSheetError(0, 0, common.ErrMalformedSheet,
			"sheet describes %d sectors, combined data holds %d", img.sectors, src.Size/sectorSize)
	}

	rebound := &Image{
		tracks:     img.tracks,
		sectors:    img.sectors,
		title:      img.title,
		OnProgress: img.OnProgress,
	}
	rebound.addData(img.tracks[0].Number, src.Path, 0, src.Size)
	return rebound, nil
}

// Sheet describes the combined payload as a single FILE sheet. Gaps are
// stored in the payload, so they appear as data instead of PREGAP and
// POSTGAP commands.
func (img *Image) Sheet(name string) *cue.Sheet {
	sheet := &cue.Sheet{
		Files: []cue.File{{Name: name, Type: "BINARY"}},
		Title: img.title,
	}
	for _, track := range img.tracks {
		indexes := make([]cue.Index, len(track.Indexes))
		copy(indexes, track.Indexes)
		sheet.Tracks = append(sheet.Tracks, cue.Track{
			Number:  track.Number,
			Mode:    track.Mode,
			Indexes: indexes,
		})
	}
	return sheet
}
