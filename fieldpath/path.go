package fieldpath

import (
	"github.com/pkg/errors"
	"strings"
)

// Delimiter separates field names in a path selection string.
const Delimiter = "-"

// Path is an ordered list of field names; the last one is the terminal field.
type Path []string

// Parse splits s on Delimiter. Empty selections and empty segments are rejected.
func Parse(s string) (Path, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("empty field path")
	}

	parts := strings.Split(s, Delimiter)
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, errors.Errorf("empty field name at position %d in %q", i, s)
		}
		parts[i] = part
	}

	return Path(parts), nil
}

func (p Path) String() string {
	return strings.Join(p, Delimiter)
}

// Terminal returns the name of the plotted field.
func (p Path) Terminal() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

func (p Path) Clone() Path {
	if p == nil {
		return nil
	}
	return append(Path(nil), p...)
}
