package catalog

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/san-kum/mesagrid/internal/namelist"
)

var errNoName = errors.New("missing option name")

// ParseDefaults parses the body of a MESA .defaults file: one assignment per
// line with ! comments. Lines without '=' are documentation and skipped.
// Keys are kept verbatim, so x_ctrl(1:num_x_ctrls) stays one entry.
func ParseDefaults(group, text string) (*namelist.Options, error) {
	opts := namelist.NewOptions()
	for i, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "!") || !strings.Contains(line, "=") {
			continue
		}
		line = strings.TrimSpace(namelist.StripComment(line))
		if !strings.Contains(line, "=") {
			continue
		}

		// some string defaults embed a second '='; everything after the first
		// one belongs to the value
		eq := strings.Index(line, "=")
		name := strings.TrimSpace(line[:eq])
		raw := strings.TrimSpace(line[eq+1:])
		multi := strings.Contains(raw, "=")

		if name == "" {
			return nil, &namelist.ParseError{Group: group, Line: i + 1, Text: line, Err: errNoName}
		}

		v, err := defaultValue(raw)
		if err != nil {
			if !multi {
				return nil, &namelist.ParseError{Group: group, Line: i + 1, Text: line, Err: err}
			}
			v = raw
		}
		opts.Set(name, v)
	}
	return opts, nil
}

func defaultValue(raw string) (any, error) {
	v, err := namelist.ParseValue(raw)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, namelist.ErrValueNotParsed) {
		return nil, err
	}
	return namelist.ParseInline(raw)
}
