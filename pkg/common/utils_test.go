// Package common provides tests for utility functions
package common

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSizeInMB(t *testing.T) {
	if got := SizeInMB(3 * 1024 * 1024); got != 3 {
		t.Errorf("SizeInMB() = %v, want 3", got)
	}
}

func TestFileExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "game.bin")
	if err := os.WriteFile(file, []byte{0}, 0o644); err != nil {
		t.Fatal(err)
	}

	if !FileExists(file) {
		t.Errorf("FileExists(%q) = false, want true", file)
	}
	if FileExists(filepath.Join(dir, "missing.bin")) {
		t.Error("FileExists() should be false for a missing file")
	}
	if FileExists(dir) {
		t.Error("FileExists() should be false for a directory")
	}
}

func TestHasExtension(t *testing.T) {
	testCases := []struct {
		path string
		ext  string
		want bool
	}{
		{"game.cue", ".cue", true},
		{"GAME.CUE", ".cue", true},
		{"game.bin", ".cue", false},
		{"game", ".cue", false},
	}

	for _, tc := range testCases {
		if got := HasExtension(tc.path, tc.ext); got != tc.want {
			t.Errorf("HasExtension(%q, %q) = %v, want %v", tc.path, tc.ext, got, tc.want)
		}
	}
}

func TestFileStem(t *testing.T) {
	if got := FileStem("/games/Final Fantasy VII (USA) (Disc 1).cue"); got != "Final Fantasy VII (USA) (Disc 1)" {
		t.Errorf("FileStem() = %q", got)
	}
}

func TestCleanFileName(t *testing.T) {
	testCases := []struct {
		input    string
		expected string
	}{
		{"SYSTEM.CNF;1", "SYSTEM.CNF"},
		{"SLUS_012.34;1", "SLUS_012.34"},
		{"README.TXT", "README.TXT"},
		{"", ""},
	}

	for _, tc := range testCases {
		if got := CleanFileName(tc.input); got != tc.expected {
			t.Errorf("CleanFileName(%q) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}

func TestSafeInt64ToUint32(t *testing.T) {
	if _, err := SafeInt64ToUint32(-1); err == nil {
		t.Error("SafeInt64ToUint32(-1) should fail")
	}
	if _, err := SafeInt64ToUint32(1 << 33); err == nil {
		t.Error("SafeInt64ToUint32(1<<33) should fail")
	}
	if v, err := SafeInt64ToUint32(1234); err != nil || v != 1234 {
		t.Errorf("SafeInt64ToUint32(1234) = %d, %v", v, err)
	}
}

func TestSafeIntToUint8(t *testing.T) {
	if _, err := SafeIntToUint8(256); err == nil {
		t.Error("SafeIntToUint8(256) should fail")
	}
	if v, err := SafeIntToUint8(99); err != nil || v != 99 {
		t.Errorf("SafeIntToUint8(99) = %d, %v", v, err)
	}
}

func TestSafeAddSectors(t *testing.T) {
	testCases := []struct {
		name    string
		sector  uint32
		delta   int
		want    uint32
		wantErr bool
	}{
		{"plus", 0, 150, 150, false},
		{"minus", 300, -150, 150, false},
		{"underflow", 0, -150, 0, true},
		{"overflow", MaxSectors, 1, 0, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := SafeAddSectors(tc.sector, tc.delta)
			if (err != nil) != tc.wantErr {
				t.Fatalf("SafeAddSectors() error = %v, wantErr %v", err, tc.wantErr)
			}
			if got != tc.want {
				t.Errorf("SafeAddSectors() = %d, want %d", got, tc.want)
			}
		})
	}
}
