package cue

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/hansbonini/popsvcd/pkg/common"
)

// Write renders the sheet in CUE syntax. Index sectors are written as
// time codes relative to the start of each track's file.
func Write(w io.Writer, sheet *Sheet) error {
	bw := bufio.NewWriter(w)

	if sheet.Title != "" {
		fmt.Fprintf(bw, "TITLE %s\n", quote(sheet.Title))
	}

	for i, file := range sheet.Files {
		fileType := file.Type
		if fileType == "" {
			fileType = "BINARY"
		}
		fmt.Fprintf(bw, "FILE %s %s\n", quote(file.Name), fileType)

		for _, track := range sheet.TracksOf(i) {
			fmt.Fprintf(bw, "  TRACK %02d %s\n", track.Number, track.Mode)
			if track.Pregap > 0 {
				fmt.Fprintf(bw, "    PREGAP %s\n", common.MSFFromSectors(track.Pregap))
			}
			for _, idx := range track.Indexes {
				fmt.Fprintf(bw, "    INDEX %02d %s\n", idx.Number, common.MSFFromSectors(idx.Sector))
			}
			if track.Postgap > 0 {
				fmt.Fprintf(bw, "    POSTGAP %s\n", common.MSFFromSectors(track.Postgap))
			}
		}
	}

	if err := bw.Flush(); err != nil {
		return common.FormatError(common.ErrFailedToWriteSheet, err)
	}
	return nil
}

// quote wraps a value in double quotes, dropping any it already contains
func quote(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, "") + `"`
}
