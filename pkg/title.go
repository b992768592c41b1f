package pkg

import (
	"regexp"
	"strings"

	"github.com/hansbonini/popsvcd/pkg/common"
	"github.com/hansbonini/popsvcd/pkg/cue"
	"github.com/hansbonini/popsvcd/pkg/psx"
)

// DefaultTitle names a disc when nothing else does
const DefaultTitle = "game"

// Dump tags stripped from titles: regions, languages, disc numbers,
// revisions, dump flags and embedded serials
var titleTags = regexp.MustCompile(strings.Join([]string{
	`\(USA\)`, `\(Europe\)`, `\(Japan\)`, `\(World\)`,
	`\(En,Fr,De,Es,It\)`, `\(En\)`, `\(Fr\)`, `\(De\)`, `\(Es\)`, `\(It\)`, `\(Ja\)`,
	`\(Disc \d+\)`, `\(Disc [A-Z]\)`, `\(CD \d+\)`, `\(CD [A-Z]\)`,
	`\(Rev \d+\)`, `\(v\d+\.\d+\)`,
	`\[!\]`, `\[b\]`, `\[a\]`, `\[h\d*\]`, `\[f\d*\]`, `\[t\d*\]`, `\[o\d*\]`, `\[T[+-].*?\]`,
	`\(Track \d+\)`,
	`\(Demo\)`, `\(Beta\)`, `\(Proto\)`, `\(Sample\)`, `\(Promo\)`, `\(Unl\)`,
	`\[S[CL][UE]S[-_]\d+\.\d+\]`,
}, "|"))

var spaces = regexp.MustCompile(`\s+`)

// Characters that cannot appear in a file name on the consoles' FAT drives
var unsafeName = strings.NewReplacer(
	"/", " ", `\`, " ", ":", " ", "*", " ", "?", " ",
	`"`, " ", "<", " ", ">", " ", "|", " ",
)

// CleanTitle strips dump tags from name and collapses whitespace. An empty
// result becomes DefaultTitle.
func CleanTitle(name string) string {
	if title := cleanTitle(name); title != "" {
		return title
	}
	return DefaultTitle
}

func cleanTitle(name string) string {
	name = titleTags.ReplaceAllString(name, "")
	name = unsafeName.Replace(name)
	return strings.TrimSpace(spaces.ReplaceAllString(name, " "))
}

// ResolveTitle picks the title of a disc: the cleaned stem of path, then the
// sheet's TITLE, then the ISO9660 volume label
func ResolveTitle(path string, sheet *cue.Sheet, volume *psx.VolumeInfo) string {
	candidates := make([]string, 0, 3)
	if path != "" {
		candidates = append(candidates, common.FileStem(path))
	}
	if sheet != nil {
		candidates = append(candidates, sheet.Title)
	}
	if volume != nil {
		candidates = append(candidates, volume.VolumeID)
	}

	for _, candidate := range candidates {
		if title := cleanTitle(candidate); title != "" {
			return title
		}
	}
	return DefaultTitle
}

// OutputName returns the container file name for a disc
func OutputName(token, title string) string {
	return token + "." + CleanTitle(title) + ".VCD"
}

// CombinedName returns the data file name written by combine
func CombinedName(title string) string {
	return CleanTitle(title) + "_combined.bin"
}
