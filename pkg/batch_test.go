package pkg

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hansbonini/popsvcd/pkg/common"
	"github.com/hansbonini/popsvcd/pkg/gameid"
	"github.com/hansbonini/popsvcd/pkg/vcd"
)

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jobs.yaml")
	manifest := `output: ./vcd
jobs:
  - mode: auto
    sheet: games/Foo (USA).cue
    gap: plus
  - mode: detect
    input: /abs/Bar.bin
    policy: frequent
    debug: true
  - mode: combine
    sheet: games/Baz.cue
    output: combined
    name: baz.bin
`
	if err := os.WriteFile(path, []byte(manifest), 0644); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("LoadManifest() failed: %v", err)
	}
	jobs, err := loaded.Build()
	if err != nil {
		t.Fatalf("Build() failed: %v", err)
	}

	expected := []Job{
		{Mode: ModeAuto, Sheet: filepath.Join(dir, "games", "Foo (USA).cue"), OutputDir: filepath.Join(dir, "vcd"), Gap: vcd.GapPlus},
		{Mode: ModeDetect, Input: "/abs/Bar.bin", OutputDir: filepath.Join(dir, "vcd"), Policy: gameid.MostFrequent, Debug: true},
		{Mode: ModeCombine, Sheet: filepath.Join(dir, "games", "Baz.cue"), OutputDir: filepath.Join(dir, "combined"), FileName: "baz.bin"},
	}
	if len(jobs) != len(expected) {
		t.Fatalf("Build() returned %d jobs, want %d", len(jobs), len(expected))
	}
	for i, want := range expected {
		if jobs[i] != want {
			t.Errorf("job %d = %+v, want %+v", i+1, jobs[i], want)
		}
	}
}

func TestParseManifest_Invalid(t *testing.T) {
	testCases := []struct {
		name     string
		manifest string
	}{
		{"unknown key", "jobs:\n  - mode: auto\n    sheet: a.cue\n    colour: red\n"},
		{"no jobs", "output: out\n"},
		{"not yaml", "jobs: [\n"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseManifest([]byte(tc.manifest)); err == nil {
				t.Error("ParseManifest() should fail")
			}
		})
	}
}

func TestManifestBuild_Invalid(t *testing.T) {
	testCases := []struct {
		name  string
		entry ManifestJob
		want  string
	}{
		{"mode", ManifestJob{Mode: "shred", Sheet: "a.cue"}, "unknown mode"},
		{"gap", ManifestJob{Mode: "auto", Sheet: "a.cue", Gap: "sideways"}, "unknown gap"},
		{"policy", ManifestJob{Mode: "detect", Input: "a.bin", Policy: "random"}, "unknown game ID policy"},
		{"auto without sheet", ManifestJob{Mode: "auto"}, "auto needs a sheet"},
		{"convert without input", ManifestJob{Mode: "convert", Sheet: "a.cue"}, "convert needs both"},
		{"detect without target", ManifestJob{Mode: "detect"}, "detect needs"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			manifest := &Manifest{Jobs: []ManifestJob{tc.entry}}
			_, err := manifest.Build()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("Build() error = %v, want it to mention %q", err, tc.want)
			}
		})
	}
}

func TestRunBatch(t *testing.T) {
	good, _ := twoFileDisc(t, testSerial)
	missing, _ := twoFileDisc(t, testSerial)
	if err := os.Remove(filepath.Join(filepath.Dir(missing), "Game (USA) (Track 1).bin")); err != nil {
		t.Fatal(err)
	}
	outDir := t.TempDir()

	jobs := []Job{
		{Mode: ModeAuto, Sheet: good, OutputDir: outDir},
		{Mode: ModeAuto, Sheet: missing, OutputDir: outDir},
		{Mode: ModeDetect, Sheet: good},
	}
	results := NewVCDProcessor().RunBatch(jobs, 4)

	if len(results) != len(jobs) {
		t.Fatalf("RunBatch() returned %d results, want %d", len(results), len(jobs))
	}
	for i, result := range results {
		if result.Job != jobs[i] {
			t.Errorf("result %d belongs to %+v", i, result.Job)
		}
	}
	if results[0].Err != nil || results[0].Result.Output != filepath.Join(outDir, testSerial+".Game.VCD") {
		t.Errorf("job 1 = %+v", results[0])
	}
	if !errors.Is(results[1].Err, common.ErrMissingSourceFile) || results[1].Result != nil {
		t.Errorf("job 2 error = %v, want ErrMissingSourceFile", results[1].Err)
	}
	if results[2].Err != nil || results[2].Result.Token() != testSerial {
		t.Errorf("job 3 = %+v", results[2])
	}
}
