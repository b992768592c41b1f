package vcd

import (
	"io"
	"os"
	"path/filepath"

	"github.com/hansbonini/popsvcd/pkg/combiner"
	"github.com/hansbonini/popsvcd/pkg/common"
)

// Write creates the container at path: the encoded header followed by the
// payload, copied byte for byte. Output goes to a temporary file in the same
// directory that is renamed over path only once everything is on disk, so a
// failure never leaves a partial container behind.
func Write(path string, header *Header, payload io.Reader) (int64, error) {
	encoded, err := header.Encode()
	if err != nil {
		return 0, common.FormatError(common.ErrFailedToWriteHeader, err)
	}

	return writeAtomic(path, func(w io.Writer) (int64, error) {
		n, err := w.Write(encoded)
		if err != nil {
			return int64(n), common.FormatError(common.ErrFailedToWriteHeader, err)
		}
		copied, err := combiner.Copy(w, payload)
		if err != nil {
			return int64(n) + copied, common.FormatError(common.ErrFailedToWritePayload, err)
		}
		return int64(n) + copied, nil
	})
}

// WriteFile writes an arbitrary stream to path with the same temporary file
// and rename discipline as Write
func WriteFile(path string, fill func(w io.Writer) (int64, error)) (int64, error) {
	return writeAtomic(path, fill)
}

func writeAtomic(path string, fill func(w io.Writer) (int64, error)) (written int64, err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return 0, common.FormatPathError(common.ErrFailedToCreateOutputDir, dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return 0, common.FormatPathError(common.ErrFailedToCreateTempFile, dir, err)
	}
	tmpPath := tmp.Name()
	common.LogDebug(common.DebugTempFile, tmpPath)

	committed := false
	defer func() {
		if committed {
			return
		}
		tmp.Close()
		if rmErr := os.Remove(tmpPath); rmErr != nil && !os.IsNotExist(rmErr) {
			common.LogWarn(common.WarnRemoveTempFile, tmpPath, rmErr)
		}
	}()

	written, err = fill(tmp)
	if err != nil {
		return written, err
	}
	if err := tmp.Sync(); err != nil {
		return written, common.FormatPathError(common.ErrFailedToFinalizeOutput, tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return written, common.FormatPathError(common.ErrFailedToFinalizeOutput, tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return written, common.FormatPathError(common.ErrFailedToFinalizeOutput, path, err)
	}

	committed = true
	return written, nil
}
