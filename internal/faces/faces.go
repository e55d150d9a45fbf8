// internal/faces/faces.go
//
// Card face catalog for the memory game.
//
// Responsibilities:
//   - Load face symbols from a configured file or fall back to the embedded defaults.
//   - Normalize the list (trim, drop comments/blank lines, drop duplicates).
//   - Pick a random subset of distinct faces for a new board.
//
// Loading behavior (Load):
//   1. If path is set, read one face per line from that file.
//   2. Otherwise use assets/faces.txt.
//
// Constraints:
//   • A face is a short symbol (emoji or word) without inner whitespace.
//   • Faces are unique; the first occurrence wins.

package faces

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/robalobadob/neuroprime/assets"
)

// maxFaceRunes bounds a single face; emoji with modifiers span several runes.
const maxFaceRunes = 16

// ErrEmpty is returned when no usable face survives normalization.
var ErrEmpty = errors.New("faces: catalog is empty")

// Shuffler is the subset of *rand.Rand used to pick faces.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// Catalog is an immutable, ordered set of card faces.
type Catalog struct {
	faces []string
}

// Load builds a catalog from path, or from the embedded defaults when path is empty.
func Load(path string) (*Catalog, error) {
	var raw []string
	if path != "" {
		lines, err := readFaceFile(path)
		if err != nil {
			return nil, fmt.Errorf("faces: read %s: %w", path, err)
		}
		raw = lines
	} else {
		lines, err := assets.FacesList()
		if err != nil {
			return nil, fmt.Errorf("faces: embedded list: %w", err)
		}
		raw = lines
	}
	return New(raw)
}

// New normalizes list into a catalog.
func New(list []string) (*Catalog, error) {
	faces := normalize(list)
	if len(faces) == 0 {
		return nil, ErrEmpty
	}
	return &Catalog{faces: faces}, nil
}

// Len reports how many distinct faces are available.
func (c *Catalog) Len() int { return len(c.faces) }

// All returns a copy of the faces in catalog order.
func (c *Catalog) All() []string {
	return append([]string(nil), c.faces...)
}

// Pick returns n distinct faces. With a nil shuffler the first n faces are
// returned in catalog order.
func (c *Catalog) Pick(n int, s Shuffler) ([]string, error) {
	if n <= 0 || n > len(c.faces) {
		return nil, fmt.Errorf("faces: cannot pick %d of %d", n, len(c.faces))
	}
	pool := c.All()
	if s != nil {
		s.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	}
	return pool[:n], nil
}

// readFaceFile loads one face per line, skipping blanks and '#' comments.
func readFaceFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return assets.ReadLines(f)
}

// normalize trims entries and drops invalid ones and duplicates.
func normalize(list []string) []string {
	seen := make(map[string]struct{}, len(list))
	out := make([]string, 0, len(list))
	for _, s := range list {
		s = strings.TrimSpace(s)
		if !valid(s) {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

func valid(s string) bool {
	if s == "" || utf8.RuneCountInString(s) > maxFaceRunes {
		return false
	}
	return strings.IndexFunc(s, unicode.IsSpace) < 0
}
