// Package gameid locates PlayStation disc serials such as SLUS_012.34 inside
// raw sector data.
package gameid

import (
	"fmt"
	"io"

	"golang.org/x/exp/slices"

	"github.com/hansbonini/popsvcd/pkg/common"
)

// DefaultScanLimit is the size of the leading window searched for a serial.
// SYSTEM.CNF and the boot executable name sit well inside it on every
// pressed disc.
const DefaultScanLimit = 150 * 1024

// UnknownToken replaces the serial when none is found
const UnknownToken = "UNKNOWN"

// knownPrefixes is the closed set of region codes accepted as a serial start
var knownPrefixes = []string{
	"SLUS", "SCUS", "SLES", "SCES", "SLPS", "SCPS", "SLPM", "SCPM",
	"SLED", "SCED", "SLKA", "SCKA", "SLAJ", "SCAJ", "PAPX", "PCPX",
}

const (
	prefixLen   = 4
	minMatchLen = prefixLen + 1 + 5 // prefix, delimiter, five digits
	tallyBuffer = 16                // distinct serials tallied before Scan allocates
)

// ID is a disc serial
type ID struct {
	Prefix   string
	Number   int
	Digits   int // width of Number in the canonical form
	Revision int
}

// String renders the canonical PREFIX_NNN.RR token
func (id ID) String() string {
	return fmt.Sprintf("%s_%0*d.%02d", id.Prefix, id.Digits, id.Number, id.Revision)
}

// Region names the market encoded in the prefix
func (id ID) Region() string {
	if len(id.Prefix) < 3 {
		return "unknown"
	}
	switch id.Prefix[2] {
	case 'U':
		return "NTSC-U"
	case 'E':
		return "PAL"
	case 'P':
		return "NTSC-J"
	case 'K':
		return "NTSC-K"
	case 'A':
		return "NTSC-A"
	}
	return "unknown"
}

// Candidate is one serial occurrence found in debug mode
type Candidate struct {
	ID     ID
	Offset int64
	Raw    string // bytes as they appear in the image
}

// Result is the outcome of a scan. A missing serial is not an error.
type Result struct {
	ID       ID
	Found    bool
	Offset   int64 // offset of the selected occurrence
	Matches  int   // total occurrences seen
	Distinct int   // distinct serials seen
}

// Token returns the canonical serial, or UnknownToken when none was found
func (r Result) Token() string {
	if !r.Found {
		return UnknownToken
	}
	return r.ID.String()
}

// Err returns common.ErrGameIDNotFound when the scan found nothing
func (r Result) Err() error {
	if r.Found {
		return nil
	}
	return common.ErrGameIDNotFound
}

// Policy chooses between several different serials in one image
type Policy int

const (
	// FirstOccurrence selects the serial found at the lowest offset
	FirstOccurrence Policy = iota
	// MostFrequent selects the serial seen most often, ties going to the
	// earliest one
	MostFrequent
)

func (p Policy) String() string {
	switch p {
	case FirstOccurrence:
		return "first"
	case MostFrequent:
		return "frequent"
	}
	return fmt.Sprintf("Policy(%d)", int(p))
}

// ParsePolicy accepts the names printed by Policy.String
func ParsePolicy(name string) (Policy, error) {
	switch name {
	case "", "first":
		return FirstOccurrence, nil
	case "frequent":
		return MostFrequent, nil
	}
	return FirstOccurrence, fmt.Errorf("unknown game ID policy %q (want first or frequent)", name)
}

// Scanner searches byte buffers for disc serials
type Scanner struct {
	policy Policy
	limit  int
}

// Option configures a Scanner
type Option func(*Scanner)

// WithPolicy sets the tie-break policy
func WithPolicy(policy Policy) Option {
	return func(s *Scanner) {
		s.policy = policy
	}
}

// WithLimit sets how many leading bytes ScanReader inspects
func WithLimit(limit int) Option {
	return func(s *Scanner) {
		if limit > 0 {
			s.limit = limit
		}
	}
}

// NewScanner creates a scanner using FirstOccurrence and DefaultScanLimit
// unless overridden
func NewScanner(opts ...Option) *Scanner {
	s := &Scanner{policy: FirstOccurrence, limit: DefaultScanLimit}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type tally struct {
	id     ID
	count  int
	offset int64
}

// Scan searches buf and returns the serial chosen by the scanner's policy
func (s *Scanner) Scan(buf []byte) Result {
	var storage [tallyBuffer]tally
	tallies := storage[:0]
	var result Result

	for i := 0; i+minMatchLen <= len(buf); i++ {
		id, n, ok := matchAt(buf, i)
		if !ok {
			continue
		}
		result.Matches++

		if pos := slices.IndexFunc(tallies, func(t tally) bool { return t.id == id }); pos >= 0 {
			tallies[pos].count++
		} else {
			tallies = append(tallies, tally{id: id, count: 1, offset: int64(i)})
		}
		i += n - 1
	}

	if len(tallies) == 0 {
		return result
	}

	best := tallies[0]
	if s.policy == MostFrequent {
		// Tallies are in first-seen order, so strict comparison keeps the
		// earliest serial on a tie
		for _, t := range tallies[1:] {
			if t.count > best.count {
				best = t
			}
		}
	}

	result.ID = best.id
	result.Found = true
	result.Offset = best.offset
	result.Distinct = len(tallies)
	return result
}

// Candidates returns every serial occurrence in scan order, duplicates
// included
func (s *Scanner) Candidates(buf []byte) []Candidate {
	var candidates []Candidate
	for i := 0; i+minMatchLen <= len(buf); i++ {
		id, n, ok := matchAt(buf, i)
		if !ok {
			continue
		}
		candidates = append(candidates, Candidate{
			ID:     id,
			Offset: int64(i),
			Raw:    string(buf[i : i+n]),
		})
		common.LogDebug(common.DebugCandidateFound, id.String(), i)
		i += n - 1
	}
	return candidates
}

// ReadWindow reads the leading bytes the scanner inspects
func (s *Scanner) ReadWindow(r io.Reader) ([]byte, error) {
	common.LogDebug(common.DebugScanWindow, s.limit)
	buf, err := io.ReadAll(io.LimitReader(r, int64(s.limit)))
	if err != nil {
		return nil, fmt.Errorf("failed to read game ID scan window: %w", err)
	}
	return buf, nil
}

// ScanReader scans the leading window of r
func (s *Scanner) ScanReader(r io.Reader) (Result, error) {
	buf, err := s.ReadWindow(r)
	if err != nil {
		return Result{}, err
	}
	return s.Scan(buf), nil
}

// ScanReader scans the first limit bytes of r with the default policy
func ScanReader(r io.Reader, limit int) (Result, error) {
	return NewScanner(WithLimit(limit)).ScanReader(r)
}

// Parse reads a serial that spans the whole of s, in any accepted spelling
func Parse(s string) (ID, bool) {
	buf := []byte(s)
	id, n, ok := matchAt(buf, 0)
	if !ok || n != len(buf) {
		return ID{}, false
	}
	return id, true
}

// matchAt tries to read a serial starting at buf[i]. It returns the serial
// and the number of bytes it occupies.
func matchAt(buf []byte, i int) (ID, int, bool) {
	if len(buf)-i < minMatchLen {
		return ID{}, 0, false
	}

	prefix, ok := lookupPrefix(buf[i : i+prefixLen])
	if !ok {
		return ID{}, 0, false
	}
	pos := i + prefixLen
	if !isDelimiter(buf[pos]) {
		return ID{}, 0, false
	}
	pos++

	digitsStart := pos
	number := 0
	for pos < len(buf) && isDigit(buf[pos]) && pos-digitsStart < 6 {
		number = number*10 + int(buf[pos]-'0')
		pos++
	}
	digits := pos - digitsStart

	switch {
	case (digits == 3 || digits == 4) && pos+3 <= len(buf) && buf[pos] == '.':
		// NNN.RR
		if !isDigit(buf[pos+1]) || !isDigit(buf[pos+2]) {
			return ID{}, 0, false
		}
		if pos+3 < len(buf) && isDigit(buf[pos+3]) {
			return ID{}, 0, false
		}
		revision := int(buf[pos+1]-'0')*10 + int(buf[pos+2]-'0')
		return ID{Prefix: prefix, Number: number, Digits: digits, Revision: revision}, pos + 3 - i, true

	case digits == 5:
		// NNNRR
		return ID{Prefix: prefix, Number: number / 100, Digits: 3, Revision: number % 100}, pos - i, true
	}

	return ID{}, 0, false
}

// lookupPrefix matches four bytes against the known prefixes, ignoring ASCII
// case, and returns the canonical spelling
func lookupPrefix(b []byte) (string, bool) {
	if c := b[0] &^ 0x20; c != 'S' && c != 'P' {
		return "", false
	}
	for _, prefix := range knownPrefixes {
		if equalFold(b, prefix) {
			return prefix, true
		}
	}
	return "", false
}

// equalFold compares ASCII letters without regard to case
func equalFold(b []byte, upper string) bool {
	for j := 0; j < len(upper); j++ {
		c := b[j]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		if c != upper[j] {
			return false
		}
	}
	return true
}

func isDelimiter(c byte) bool {
	return c == '_' || c == '-' || c == ' '
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
