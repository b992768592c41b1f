package combiner

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/exp/slices"

	"github.com/hansbonini/popsvcd/pkg/common"
)

// CopyBufferSize is the fixed buffer used when streaming a payload
const CopyBufferSize = 1 << 20

// Payload streams the bytes of a combined image. It implements io.Reader
// for sequential copies and io.ReaderAt for random access to the leading
// sectors.
type Payload struct {
	img    *Image
	files  map[string]*os.File
	offset int64
}

// Open opens every source file of the image
func (img *Image) Open() (*Payload, error) {
	p := &Payload{img: img, files: make(map[string]*os.File)}
	for _, seg := range img.segments {
		if seg.path == "" || p.files[seg.path] != nil {
			continue
		}
		file, err := os.Open(seg.path)
		if err != nil {
			p.Close()
			return nil, common.FormatPathError(common.ErrFailedToOpenSource, seg.path, err)
		}
		p.files[seg.path] = file
	}
	return p, nil
}

// Size returns the payload size in bytes
func (p *Payload) Size() int64 {
	return p.img.Size()
}

// Read implements io.Reader
func (p *Payload) Read(buf []byte) (int, error) {
	if p.offset >= p.Size() {
		return 0, io.EOF
	}
	n, err := p.ReadAt(buf, p.offset)
	p.offset += int64(n)
	if n > 0 && p.img.OnProgress != nil {
		p.img.OnProgress(int64(n))
	}
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}

// ReadAt implements io.ReaderAt over the payload
func (p *Payload) ReadAt(buf []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("negative payload offset %d", off)
	}

	segments := p.img.segments
	i, found := slices.BinarySearchFunc(segments, off, func(seg segment, target int64) int {
		switch {
		case seg.start+seg.length <= target:
			return -1
		case seg.start > target:
			return 1
		}
		return 0
	})
	if !found {
		return 0, io.EOF
	}

	total := 0
	for total < len(buf) && i < len(segments) {
		seg := segments[i]
		within := off + int64(total) - seg.start
		chunk := buf[total:]
		if remaining := seg.length - within; int64(len(chunk)) > remaining {
			chunk = chunk[:remaining]
		}

		if seg.path == "" {
			clear(chunk)
		} else {
			n, err := p.files[seg.path].ReadAt(chunk, seg.offset+within)
			if n < len(chunk) {
				total += n
				if err == nil || err == io.EOF {
					return total, common.NewTrackError(seg.path, seg.track, seg.offset+within+int64(n),
						common.ErrTruncatedTrack, "source file ended early")
				}
				return total, common.FormatPathError(common.ErrFailedToCopyTrack, seg.path, err)
			}
		}

		total += len(chunk)
		if within+int64(len(chunk)) == seg.length {
			i++
		}
	}

	if total < len(buf) {
		return total, io.EOF
	}
	return total, nil
}

// Close closes every source file
func (p *Payload) Close() error {
	var firstErr error
	for path, file := range p.files {
		if err := file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(p.files, path)
	}
	return firstErr
}

// WriteTo streams the whole payload to w with a fixed size buffer
func (img *Image) WriteTo(w io.Writer) (int64, error) {
	payload, err := img.Open()
	if err != nil {
		return 0, err
	}
	defer payload.Close()

	return Copy(w, payload)
}

// Copy streams r to w through a CopyBufferSize buffer. Both sides are
// wrapped so the standard library cannot substitute its own transfer path.
func Copy(w io.Writer, r io.Reader) (int64, error) {
	buf := make([]byte, CopyBufferSize)
	return io.CopyBuffer(writerOnly{w}, readerOnly{r}, buf)
}

type readerOnly struct {
	io.Reader
}

type writerOnly struct {
	io.Writer
}
