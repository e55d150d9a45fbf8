// assets/embed.go
//
// Embedded default data for the go-server.
//   - faces.txt: card face symbols used by the memory game when no
//     FACES_FILE is configured.

package assets

import (
	"bufio"
	"embed"
	"io"
	"strings"
)

//go:embed faces.txt
var FS embed.FS

// ReadLines returns the non-blank lines of r, trimmed, skipping '#' comments.
func ReadLines(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		out = append(out, s)
	}
	return out, sc.Err()
}

func readEmbedded(name string) ([]string, error) {
	f, err := FS.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadLines(f)
}

// FacesList returns the embedded default card faces in file order.
func FacesList() ([]string, error) {
	return readEmbedded("faces.txt")
}
