package pkg

import (
	"bytes"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hansbonini/popsvcd/pkg/common"
	"github.com/hansbonini/popsvcd/pkg/cue"
	"github.com/hansbonini/popsvcd/pkg/gameid"
	"github.com/hansbonini/popsvcd/pkg/vcd"
)

const (
	sectorSize = 2352
	testSerial = "SLUS_012.34"
)

func TestMain(m *testing.M) {
	log.SetOutput(io.Discard)
	os.Exit(m.Run())
}

// writeSectors writes a raw image of n sectors, optionally carrying a boot
// line with serial in its third sector
func writeSectors(t *testing.T, path string, n int, fill byte, serial string) []byte {
	t.Helper()
	data := bytes.Repeat([]byte{fill}, n*sectorSize)
	if serial != "" {
		copy(data[2*sectorSize+24:], "BOOT = cdrom:\\"+serial+";1\r\n")
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return data
}

// twoFileDisc lays out a data track of 10 sectors and an audio track of 5
// sectors, each in its own file
func twoFileDisc(t *testing.T, serial string) (sheetPath string, payload []byte) {
	t.Helper()
	dir := t.TempDir()
	data := writeSectors(t, filepath.Join(dir, "Game (USA) (Track 1).bin"), 10, 0x00, serial)
	audio := writeSectors(t, filepath.Join(dir, "Game (USA) (Track 2).bin"), 5, 0x7F, "")

	sheet := `FILE "Game (USA) (Track 1).bin" BINARY
  TRACK 01 MODE2/2352
    INDEX 01 00:00:00
FILE "Game (USA) (Track 2).bin" BINARY
  TRACK 02 AUDIO
    INDEX 00 00:00:00
    INDEX 01 00:00:02
`
	sheetPath = filepath.Join(dir, "Game (USA).cue")
	if err := os.WriteFile(sheetPath, []byte(sheet), 0644); err != nil {
		t.Fatal(err)
	}
	return sheetPath, append(data, audio...)
}

func readContainer(t *testing.T, path string) (*vcd.Header, []byte) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("container not written: %v", err)
	}
	header, err := vcd.DecodeHeader(data)
	if err != nil {
		t.Fatalf("container header does not decode: %v", err)
	}
	return header, data[vcd.HeaderSize:]
}

func TestRun_Auto(t *testing.T) {
	sheetPath, payload := twoFileDisc(t, testSerial)

	result, err := NewVCDProcessor().Run(Job{Mode: ModeAuto, Sheet: sheetPath, Gap: vcd.GapPlus})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	want := filepath.Join(filepath.Dir(sheetPath), DefaultOutputDir, testSerial+".Game.VCD")
	if result.Output != want {
		t.Errorf("Output = %s, want %s", result.Output, want)
	}
	if result.Token() != testSerial || len(result.Warnings) != 0 {
		t.Errorf("Token() = %s, warnings %v", result.Token(), result.Warnings)
	}
	if result.Tracks != 2 || result.Sectors != 15 {
		t.Errorf("Tracks/Sectors = %d/%d, want 2/15", result.Tracks, result.Sectors)
	}
	if result.Bytes != int64(vcd.HeaderSize+len(payload)) {
		t.Errorf("Bytes = %d, want %d", result.Bytes, vcd.HeaderSize+len(payload))
	}

	header, got := readContainer(t, result.Output)
	if !bytes.Equal(got, payload) {
		t.Error("payload is not the concatenation of the source files")
	}
	if header.GameID != testSerial {
		t.Errorf("header game ID = %q", header.GameID)
	}
	entries := header.TOC.Entries
	if len(entries) != 2 || entries[0].LBA != 150 || entries[1].LBA != 160 || entries[1].Index1LBA != 162 {
		t.Errorf("TOC entries = %+v, want LBAs 150, 160/162", entries)
	}
	if header.TOC.TotalSectors != 15 || header.TOC.LeadOut != 165 {
		t.Errorf("totals = %d/%d, want 15/165", header.TOC.TotalSectors, header.TOC.LeadOut)
	}
}

func TestRun_AutoUnknownGameID(t *testing.T) {
	sheetPath, _ := twoFileDisc(t, "")
	outDir := t.TempDir()

	result, err := NewVCDProcessor().Run(Job{Mode: ModeAuto, Sheet: sheetPath, OutputDir: outDir})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if len(result.Warnings) != 1 || !errors.Is(result.Warnings[0], common.ErrGameIDNotFound) {
		t.Errorf("Warnings = %v, want ErrGameIDNotFound", result.Warnings)
	}
	if filepath.Base(result.Output) != "UNKNOWN.Game.VCD" || filepath.Dir(result.Output) != outDir {
		t.Errorf("Output = %s", result.Output)
	}
	if header, _ := readContainer(t, result.Output); header.GameID != gameid.UnknownToken {
		t.Errorf("header game ID = %q", header.GameID)
	}
}

func TestRun_AutoMissingSource(t *testing.T) {
	sheetPath, _ := twoFileDisc(t, testSerial)
	dir := filepath.Dir(sheetPath)
	if err := os.Remove(filepath.Join(dir, "Game (USA) (Track 2).bin")); err != nil {
		t.Fatal(err)
	}

	_, err := NewVCDProcessor().Run(Job{Mode: ModeAuto, Sheet: sheetPath})
	if !errors.Is(err, common.ErrMissingSourceFile) {
		t.Fatalf("Run() error = %v, want ErrMissingSourceFile", err)
	}
	if _, err := os.Stat(filepath.Join(dir, DefaultOutputDir)); !os.IsNotExist(err) {
		t.Errorf("output directory should not exist, stat error = %v", err)
	}
}

func TestRun_AutoInvalidGap(t *testing.T) {
	sheetPath, _ := twoFileDisc(t, testSerial)
	outDir := t.TempDir()

	_, err := NewVCDProcessor().Run(Job{Mode: ModeAuto, Sheet: sheetPath, OutputDir: outDir, Gap: vcd.GapMinus})
	if !errors.Is(err, common.ErrInvalidGapAdjustment) {
		t.Fatalf("Run() error = %v, want ErrInvalidGapAdjustment", err)
	}
	if entries, _ := os.ReadDir(outDir); len(entries) != 0 {
		t.Errorf("output directory holds %d entries after a failed job", len(entries))
	}
}

func TestRun_CombineThenConvert(t *testing.T) {
	sheetPath, payload := twoFileDisc(t, testSerial)
	outDir := t.TempDir()
	processor := NewVCDProcessor()

	combined, err := processor.Run(Job{Mode: ModeCombine, Sheet: sheetPath, OutputDir: outDir})
	if err != nil {
		t.Fatalf("combine failed: %v", err)
	}
	if filepath.Base(combined.Output) != "Game_combined.bin" || filepath.Base(combined.Sheet) != "Game_combined.cue" {
		t.Errorf("combine outputs = %s, %s", combined.Output, combined.Sheet)
	}
	if combined.Header != nil {
		t.Error("combine should not build a container header")
	}
	data, err := os.ReadFile(combined.Output)
	if err != nil || !bytes.Equal(data, payload) {
		t.Fatalf("combined data differs from the sources (err %v)", err)
	}

	sheet, err := cue.ParseFile(combined.Sheet)
	if err != nil {
		t.Fatalf("rewritten sheet does not parse: %v", err)
	}
	if len(sheet.Files) != 1 || sheet.Files[0].Name != "Game_combined.bin" {
		t.Errorf("rewritten sheet files = %+v", sheet.Files)
	}
	if index, ok := sheet.Tracks[1].Index(1); !ok || index.Sector != 12 {
		t.Errorf("track 02 INDEX 01 = %+v, want sector 12", index)
	}

	converted, err := processor.Run(Job{Mode: ModeConvert, Sheet: combined.Sheet, Input: combined.Output})
	if err != nil {
		t.Fatalf("convert failed: %v", err)
	}
	if want := filepath.Join(outDir, testSerial+".Game_combined.VCD"); converted.Output != want {
		t.Errorf("convert Output = %s, want %s", converted.Output, want)
	}
	header, got := readContainer(t, converted.Output)
	if !bytes.Equal(got, payload) {
		t.Error("converted payload differs from the combined data")
	}
	if header.TOC.Entries[1].LBA != 10 {
		t.Errorf("track 02 LBA = %d, want 10", header.TOC.Entries[1].LBA)
	}
}

func TestRun_ConvertMultiFileSheet(t *testing.T) {
	sheetPath, payload := twoFileDisc(t, testSerial)
	input := filepath.Join(t.TempDir(), "merged.bin")
	if err := os.WriteFile(input, payload, 0644); err != nil {
		t.Fatal(err)
	}

	result, err := NewVCDProcessor().Run(Job{Mode: ModeConvert, Sheet: sheetPath, Input: input, FileName: "out.VCD"})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if result.Output != filepath.Join(filepath.Dir(input), "out.VCD") {
		t.Errorf("Output = %s", result.Output)
	}
	if _, got := readContainer(t, result.Output); !bytes.Equal(got, payload) {
		t.Error("payload should be read from the merged file")
	}

	if err := os.WriteFile(input, payload[:len(payload)-sectorSize], 0644); err != nil {
		t.Fatal(err)
	}
	_, err = NewVCDProcessor().Run(Job{Mode: ModeConvert, Sheet: sheetPath, Input: input})
	if !errors.Is(err, common.ErrTruncatedTrack) {
		t.Errorf("short merged file error = %v, want ErrTruncatedTrack", err)
	}
}

func TestRun_ConvertErrors(t *testing.T) {
	dir := t.TempDir()
	sheetPath := filepath.Join(dir, "game.cue")
	sheet := "FILE \"game.bin\" BINARY\n  TRACK 01 MODE2/2352\n    INDEX 01 00:00:00\n"
	if err := os.WriteFile(sheetPath, []byte(sheet), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := NewVCDProcessor().Run(Job{Mode: ModeConvert, Sheet: sheetPath, Input: filepath.Join(dir, "game.bin")})
	if !errors.Is(err, common.ErrMissingSourceFile) {
		t.Errorf("missing input error = %v, want ErrMissingSourceFile", err)
	}

	input := filepath.Join(dir, "game.bin")
	if err := os.WriteFile(input, make([]byte, 3*sectorSize+100), 0644); err != nil {
		t.Fatal(err)
	}
	_, err = NewVCDProcessor().Run(Job{Mode: ModeConvert, Sheet: sheetPath, Input: input})
	if !errors.Is(err, common.ErrMisalignedTrack) {
		t.Errorf("misaligned input error = %v, want ErrMisalignedTrack", err)
	}
}

func TestRun_Detect(t *testing.T) {
	sheetPath, _ := twoFileDisc(t, testSerial)
	dir := filepath.Dir(sheetPath)
	processor := NewVCDProcessor()

	auto, err := processor.Run(Job{Mode: ModeAuto, Sheet: sheetPath})
	if err != nil {
		t.Fatal(err)
	}

	testCases := []struct {
		name  string
		job   Job
		track int
	}{
		{"sheet", Job{Sheet: sheetPath}, 2},
		{"sheet as input", Job{Input: sheetPath}, 2},
		{"raw data", Job{Input: filepath.Join(dir, "Game (USA) (Track 1).bin")}, 0},
		{"container", Job{Input: auto.Output}, 2},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tc.job.Mode = ModeDetect
			tc.job.Debug = true
			result, err := processor.Run(tc.job)
			if err != nil {
				t.Fatalf("Run() failed: %v", err)
			}
			if result.Token() != testSerial {
				t.Errorf("Token() = %s, want %s", result.Token(), testSerial)
			}
			if result.Region() != "NTSC-U" {
				t.Errorf("Region() = %s", result.Region())
			}
			if len(result.Candidates) != 1 || result.Candidates[0].Offset != 2*sectorSize+24+14 {
				t.Errorf("Candidates = %+v, want one at 0x%X", result.Candidates, 2*sectorSize+24+14)
			}
			if result.Tracks != tc.track {
				t.Errorf("Tracks = %d, want %d", result.Tracks, tc.track)
			}
			if result.Output != "" {
				t.Errorf("detect should write nothing, Output = %s", result.Output)
			}
		})
	}
}

func TestRun_DetectNotFound(t *testing.T) {
	input := filepath.Join(t.TempDir(), "blank.bin")
	writeSectors(t, input, 4, 0, "")

	result, err := NewVCDProcessor().Run(Job{Mode: ModeDetect, Input: input})
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if result.Token() != "UNKNOWN" || result.Region() != "unknown" {
		t.Errorf("Token()/Region() = %s/%s", result.Token(), result.Region())
	}
	if len(result.Warnings) != 1 || !errors.Is(result.Warnings[0], common.ErrGameIDNotFound) {
		t.Errorf("Warnings = %v", result.Warnings)
	}

	_, err = NewVCDProcessor().Run(Job{Mode: ModeDetect, Input: input + ".missing"})
	if !errors.Is(err, common.ErrMissingSourceFile) {
		t.Errorf("missing input error = %v, want ErrMissingSourceFile", err)
	}
}

func TestRun_Progress(t *testing.T) {
	sheetPath, payload := twoFileDisc(t, testSerial)

	var total, reported int64
	var finished bool
	processor := NewVCDProcessor()
	processor.Progress = func(label string, size int64) (func(int64), func()) {
		total = size
		return func(n int64) { reported += n }, func() { finished = true }
	}

	if _, err := processor.Run(Job{Mode: ModeAuto, Sheet: sheetPath, OutputDir: t.TempDir()}); err != nil {
		t.Fatal(err)
	}
	if total != int64(len(payload)) || reported != total || !finished {
		t.Errorf("progress total %d reported %d finished %v, want %d", total, reported, finished, len(payload))
	}
}

func TestResult_YAML(t *testing.T) {
	sheetPath, _ := twoFileDisc(t, testSerial)

	result, err := NewVCDProcessor().Run(Job{Mode: ModeDetect, Sheet: sheetPath, Debug: true})
	if err != nil {
		t.Fatal(err)
	}
	data, err := result.YAML()
	if err != nil {
		t.Fatalf("YAML() failed: %v", err)
	}
	for _, want := range []string{"mode: detect", "game_id: " + testSerial, "region: NTSC-U", "title: Game", "candidates:"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("report lacks %q:\n%s", want, data)
		}
	}
}

func TestModeStages(t *testing.T) {
	if !ModeAuto.Has(StageTOC) || !ModeConvert.Has(StageWrite) {
		t.Error("auto and convert should build a TOC and write")
	}
	if ModeCombine.Has(StageTOC) || !ModeCombine.Has(StageWrite) {
		t.Error("combine writes data without a TOC")
	}
	if ModeDetect.Has(StageWrite) || ModeDetect.Has(StageCombine) || !ModeDetect.Has(StageScan) {
		t.Error("detect only scans")
	}

	testCases := []struct {
		job  Job
		want Stage
	}{
		{Job{Mode: ModeDetect, Input: "game.bin"}, StageScan},
		{Job{Mode: ModeDetect, Input: "game.VCD"}, StageScan},
		{Job{Mode: ModeDetect, Sheet: "game.cue"}, StageParse | StageCombine | StageScan},
		{Job{Mode: ModeDetect, Input: "game.CUE"}, StageParse | StageCombine | StageScan},
		{Job{Mode: ModeCombine, Sheet: "game.cue"}, ModeCombine.Stages()},
	}
	for _, tc := range testCases {
		if got := tc.job.Stages(); got != tc.want {
			t.Errorf("%s %s%s: Stages() = %05b, want %05b", tc.job.Mode, tc.job.Sheet, tc.job.Input, got, tc.want)
		}
	}

	for _, mode := range []Mode{ModeAuto, ModeCombine, ModeConvert, ModeDetect} {
		got, err := ParseMode(mode.String())
		if err != nil || got != mode {
			t.Errorf("ParseMode(%q) = %v, %v", mode.String(), got, err)
		}
	}
	if _, err := ParseMode("explode"); err == nil {
		t.Error("ParseMode() should reject unknown names")
	}
}
