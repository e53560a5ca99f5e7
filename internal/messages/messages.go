// Package messages loads the texts shown on info screens.
package messages

import (
	"bufio"
	"embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Screen names known to the experiment.
const (
	BeforeTraining   = "before_training"
	BeforeExperiment = "before_experiment"
	Break            = "break"
	End              = "end"
)

const insertMarker = "<--insert-->"

// ErrInvalidResource reports a malformed resource name.
var ErrInvalidResource = errors.New("invalid text resource name")

//go:embed text/*.txt
var builtin embed.FS

// Source reads texts from an override directory, falling back to the
// built-in copies.
type Source struct {
	dir string
}

// NewSource returns a Source. An empty dir uses only built-in texts.
func NewSource(dir string) *Source {
	return &Source{dir: dir}
}

// Text returns the named message with comment lines removed and the insert
// marker replaced by insert.
func (s *Source) Text(name, insert string) (string, error) {
	if err := validName(name); err != nil {
		return "", err
	}
	file := name + ".txt"
	if s.dir != "" {
		f, err := os.Open(filepath.Join(s.dir, file))
		if err == nil {
			defer func() {
				if cerr := f.Close(); cerr != nil {
					// Best-effort close for read-only message file.
					_ = cerr
				}
			}()
			return parse(f, insert)
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("failed to open message %s: %w", name, err)
		}
	}
	f, err := builtin.Open("text/" + file)
	if err != nil {
		return "", fmt.Errorf("failed to open message %s: %w", name, err)
	}
	defer func() {
		_ = f.Close()
	}()
	return parse(f, insert)
}

func parse(r io.Reader, insert string) (string, error) {
	var b strings.Builder
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, insertMarker) {
			if insert != "" {
				b.WriteString(insert)
				b.WriteByte('\n')
			}
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return b.String(), nil
}

func validName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty", ErrInvalidResource)
	}
	for _, r := range name {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') && r != '_' && r != '-' {
			return fmt.Errorf("%w: %q", ErrInvalidResource, name)
		}
	}
	return nil
}
