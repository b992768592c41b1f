package pkg

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hansbonini/popsvcd/pkg/combiner"
	"github.com/hansbonini/popsvcd/pkg/common"
	"github.com/hansbonini/popsvcd/pkg/cue"
	"github.com/hansbonini/popsvcd/pkg/gameid"
	"github.com/hansbonini/popsvcd/pkg/psx"
	"github.com/hansbonini/popsvcd/pkg/vcd"
)

// DefaultOutputDir is created next to the track sheet by auto and combine
const DefaultOutputDir = "psx-vcd-output"

// VCDProcessor runs conversion jobs
type VCDProcessor struct {
	// Progress, when set, is told about every payload copy
	Progress ProgressFunc
}

// NewVCDProcessor creates a new VCD processor
func NewVCDProcessor() *VCDProcessor {
	return &VCDProcessor{}
}

// pipeline carries the state handed from one stage to the next
type pipeline struct {
	job     Job
	stages  Stage
	sheet   *cue.Sheet
	img     *combiner.Image
	payload *combiner.Payload
	data    io.ReaderAt
	size    int64
	closers []io.Closer
	result  *Result
}

func (run *pipeline) close() {
	for i := len(run.closers) - 1; i >= 0; i-- {
		run.closers[i].Close()
	}
}

// Run executes the stages of the job in order: parse, combine, scan, TOC
// and write. A fatal error stops the job before anything is renamed into
// place.
func (p *VCDProcessor) Run(job Job) (*Result, error) {
	if _, ok := modeNames[job.Mode]; !ok {
		return nil, fmt.Errorf("unknown mode %s", job.Mode)
	}

	run := &pipeline{job: job, stages: job.Stages(), result: &Result{Mode: job.Mode}}
	defer run.close()

	steps := []struct {
		stage Stage
		fn    func(*pipeline) error
	}{
		{StageParse, p.parse},
		{StageCombine, p.combine},
		{StageScan, p.scan},
		{StageTOC, p.buildTOC},
		{StageWrite, p.write},
	}
	for _, step := range steps {
		if !run.stages.Has(step.stage) {
			continue
		}
		if err := step.fn(run); err != nil {
			return nil, err
		}
	}
	return run.result, nil
}

func (p *VCDProcessor) parse(run *pipeline) error {
	path := run.job.Sheet
	if run.job.Mode == ModeDetect {
		path = run.job.target()
	}
	sheet, err := p.parseSheet(path)
	if err != nil {
		return err
	}
	run.sheet = sheet
	return nil
}

// combine lays the sheet out as one payload. Convert reads the payload from
// the already combined data file instead of the sheet's files.
func (p *VCDProcessor) combine(run *pipeline) error {
	var (
		img *combiner.Image
		err error
	)
	if run.job.Mode == ModeConvert {
		img, err = p.mapCombined(run.job.Input, run.sheet)
		if err != nil {
			return fmt.Errorf("failed to map combined data: %w", err)
		}
	} else {
		img, err = combiner.Combine(run.sheet, run.sheet.Dir)
		if err != nil {
			return fmt.Errorf("failed to combine tracks: %w", err)
		}
		if run.job.Mode == ModeCombine {
			common.LogInfo(common.InfoCombining, len(img.Tracks()), len(run.sheet.Files))
		}
	}
	common.LogInfo(common.InfoCombinedSize, img.TotalSectors(), common.SizeInMB(img.Size()))

	payload, err := img.Open()
	if err != nil {
		return err
	}
	run.closers = append(run.closers, payload)
	run.img = img
	run.payload = payload
	run.data = payload
	run.size = payload.Size()
	run.result.Tracks = len(img.Tracks())
	run.result.Sectors = img.TotalSectors()
	return nil
}

// mapCombined plans the sheet over a combined data file. One FILE describes
// the data directly. Several FILEs are laid out over the originals and the
// payload is then taken from the combined file.
func (p *VCDProcessor) mapCombined(input string, sheet *cue.Sheet) (*combiner.Image, error) {
	if input == "" {
		return nil, fmt.Errorf("convert needs the combined data file")
	}
	if !common.FileExists(input) {
		return nil, common.NewTrackError(input, 1, 0, common.ErrMissingSourceFile, "combined data file not found")
	}
	info, err := os.Stat(input)
	if err != nil {
		return nil, common.FormatPathError(common.ErrFailedToStatSource, input, err)
	}
	src := combiner.Source{Path: input, Size: info.Size()}

	if len(sheet.Files) == 1 {
		return combiner.Plan(sheet, []combiner.Source{src})
	}
	img, err := combiner.Combine(sheet, sheet.Dir)
	if err != nil {
		return nil, err
	}
	return img.Rebind(src)
}

// scan identifies the game. Without a combined payload the job's input is
// opened as raw data or as a VCD container.
func (p *VCDProcessor) scan(run *pipeline) error {
	if run.data == nil {
		if err := p.openInput(run); err != nil {
			return err
		}
	}
	p.identify(run.job, run.data, run.size, run.result)
	run.result.Title = ResolveTitle(run.job.target(), run.sheet, run.result.Volume)
	return nil
}

func (p *VCDProcessor) openInput(run *pipeline) error {
	path := run.job.target()
	if path == "" {
		return fmt.Errorf("detect needs a sheet, data or container file")
	}
	if !common.FileExists(path) {
		return common.NewTrackError(path, 0, 0, common.ErrMissingSourceFile, "input file not found")
	}
	file, err := os.Open(path)
	if err != nil {
		return common.FormatPathError(common.ErrFailedToOpenSource, path, err)
	}
	run.closers = append(run.closers, file)
	info, err := file.Stat()
	if err != nil {
		return common.FormatPathError(common.ErrFailedToStatSource, path, err)
	}

	run.data = file
	run.size = info.Size()
	if common.HasExtension(path, ".vcd") {
		header, err := vcd.ReadHeader(io.NewSectionReader(file, 0, run.size))
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		run.size -= vcd.HeaderSize
		run.data = io.NewSectionReader(file, vcd.HeaderSize, run.size)
		run.result.Header = header
		run.result.Tracks = len(header.TOC.Entries)
	}

	sectors, err := common.SafeInt64ToUint32(run.size / psx.CD_SECTOR_SIZE)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	run.result.Sectors = sectors
	return nil
}

func (p *VCDProcessor) buildTOC(run *pipeline) error {
	toc, err := vcd.BuildTOC(run.img, run.job.Gap)
	if err != nil {
		return fmt.Errorf("failed to build TOC: %w", err)
	}
	if run.job.Gap != vcd.GapNone {
		common.LogInfo(common.InfoGapApplied, run.job.Gap)
	}
	run.result.Header = &vcd.Header{TOC: toc, GameID: run.result.Token()}
	return nil
}

// write stores a VCD container when a TOC was built, and the combined data
// with its rewritten sheet otherwise
func (p *VCDProcessor) write(run *pipeline) error {
	outputDir := run.job.OutputDir
	if outputDir == "" {
		if run.job.Mode == ModeConvert {
			outputDir = filepath.Dir(run.job.Input)
		} else {
			outputDir = filepath.Join(run.sheet.Dir, DefaultOutputDir)
		}
	}
	if run.stages.Has(StageTOC) {
		return p.writeContainer(run, outputDir)
	}
	return p.writeCombined(run, outputDir)
}

func (p *VCDProcessor) writeContainer(run *pipeline, outputDir string) error {
	result := run.result
	name := run.job.FileName
	if name == "" {
		name = OutputName(result.Token(), result.Title)
	}
	result.Output = filepath.Join(outputDir, name)

	common.LogInfo(common.InfoWritingContainer, result.Output)
	done := p.track(run.img, filepath.Base(result.Output))
	written, err := vcd.Write(result.Output, result.Header, run.payload)
	done()
	if err != nil {
		return err
	}

	result.Bytes = written
	common.LogInfo(common.InfoContainerWritten, result.Output, common.SizeInMB(written))
	return nil
}

// writeCombined merges the payload into one BIN and writes a matching sheet
func (p *VCDProcessor) writeCombined(run *pipeline, outputDir string) error {
	result := run.result
	name := run.job.FileName
	if name == "" {
		name = CombinedName(result.Title)
	} else if filepath.Ext(name) == "" {
		name += ".bin"
	}
	result.Output = filepath.Join(outputDir, name)
	result.Sheet = filepath.Join(outputDir, common.FileStem(name)+".cue")

	var rendered bytes.Buffer
	if err := cue.Write(&rendered, run.img.Sheet(name)); err != nil {
		return err
	}

	done := p.track(run.img, name)
	written, err := vcd.WriteFile(result.Output, func(w io.Writer) (int64, error) {
		return combiner.Copy(w, run.payload)
	})
	done()
	if err != nil {
		return fmt.Errorf("failed to write combined data: %w", err)
	}
	result.Bytes = written
	common.LogInfo(common.InfoPayloadWritten, result.Output, common.SizeInMB(written))

	if _, err := vcd.WriteFile(result.Sheet, rendered.WriteTo); err != nil {
		// the data file is useless without its sheet
		if rmErr := os.Remove(result.Output); rmErr != nil {
			common.LogWarn(common.WarnRemoveTempFile, result.Output, rmErr)
		}
		return common.FormatPathError(common.ErrFailedToWriteSheet, result.Sheet, err)
	}
	common.LogInfo(common.InfoSheetWritten, result.Sheet)
	return nil
}

func (p *VCDProcessor) parseSheet(path string) (*cue.Sheet, error) {
	if path == "" {
		return nil, fmt.Errorf("no track sheet given")
	}
	common.LogInfo(common.InfoParsingSheet, path)
	sheet, err := cue.ParseFile(path)
	if err != nil {
		return nil, err
	}
	common.LogInfo(common.InfoTracksFound, len(sheet.Tracks), len(sheet.Files))
	return sheet, nil
}

// identify scans the leading window of the payload for a serial and reads
// the ISO9660 volume. The boot file named by SYSTEM.CNF stands in when the
// window holds no serial.
func (p *VCDProcessor) identify(job Job, data io.ReaderAt, size int64, result *Result) {
	scanner := gameid.NewScanner(gameid.WithPolicy(job.Policy))

	window, err := scanner.ReadWindow(io.NewSectionReader(data, 0, size))
	if err != nil {
		common.LogDebug("Scan window read failed: %v", err)
	}
	result.GameID = scanner.Scan(window)
	if job.Debug {
		result.Candidates = scanner.Candidates(window)
	}

	if volume, err := psx.NewCDReader(data, size).ReadVolumeInfo(); err == nil {
		result.Volume = volume
	} else {
		common.LogDebug("No ISO9660 volume: %v", err)
	}

	if !result.GameID.Found && result.Volume != nil {
		if id, ok := gameid.Parse(result.Volume.BootFile); ok {
			result.GameID = gameid.Result{ID: id, Found: true, Offset: -1, Matches: 1, Distinct: 1}
		}
	}

	switch {
	case !result.GameID.Found:
		common.LogWarn(common.WarnGameIDNotFound, result.Token())
		result.Warnings = append(result.Warnings, result.GameID.Err())
	case result.GameID.Distinct > 1:
		common.LogWarn(common.WarnCandidatesDiffer, result.GameID.Distinct, result.Token())
		fallthrough
	default:
		common.LogInfo(common.InfoGameIDFound, result.Token(), result.Region())
	}
}

// track hooks the progress reporter into the image's payload reads
func (p *VCDProcessor) track(img *combiner.Image, label string) func() {
	if p.Progress == nil {
		return func() {}
	}
	add, done := p.Progress(label, img.Size())
	img.OnProgress = add
	return func() {
		img.OnProgress = nil
		done()
	}
}
