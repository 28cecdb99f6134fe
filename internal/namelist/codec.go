package namelist

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
)

const indent = "   "

var (
	groupOpenRe = regexp.MustCompile(`^&\s*(\w+)\s*$`)
	assignRe    = regexp.MustCompile(`^([A-Za-z_]\w*)\s*(?:\(\s*([^)]*?)\s*\))?\s*=(.*)$`)

	errNoAssignment = errors.New("expected option assignment")
	errUnterminated = errors.New("group is never closed")
	errEmptyValue   = errors.New("empty value")
)

type logicalLine struct {
	n    int
	text string
}

// Parse decodes every group block found in text. Text outside blocks is
// ignored. A group that appears twice is merged into its first occurrence.
func Parse(text string) (*Groups, error) {
	out := NewGroups()

	var (
		group   string
		opts    *Options
		open    bool
		openAt  int
		pending []logicalLine
	)

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i, raw := range lines {
		n := i + 1
		line := strings.TrimSpace(StripComment(raw))
		if line == "" {
			continue
		}

		if !open {
			m := groupOpenRe.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			group, open, openAt, pending = m[1], true, n, nil
			opts = out.Ensure(group)
			continue
		}

		if strings.HasPrefix(line, "/") {
			for _, l := range pending {
				if err := assign(opts, l.text); err != nil {
					return nil, &ParseError{Group: group, Line: l.n, Text: l.text, Err: err}
				}
			}
			open = false
			continue
		}

		if assignRe.MatchString(line) {
			pending = append(pending, logicalLine{n: n, text: line})
			continue
		}

		// continuation of a list split over several lines
		if last := len(pending) - 1; last >= 0 && strings.HasSuffix(pending[last].text, ",") {
			pending[last].text += " " + line
			continue
		}
		return nil, &ParseError{Group: group, Line: n, Text: raw, Err: errNoAssignment}
	}

	if open {
		return nil, &ParseError{Group: group, Line: openAt, Text: "&" + group, Err: errUnterminated}
	}
	return out, nil
}

func assign(opts *Options, line string) error {
	m := assignRe.FindStringSubmatch(line)
	if m == nil {
		return errNoAssignment
	}
	name, index := m[1], m[2]
	raw := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(m[3]), ","))
	if raw == "" {
		return errEmptyValue
	}

	value, err := parseScalarOrList(raw)
	if err != nil {
		return err
	}

	if lhs := line[:strings.Index(line, "=")]; !strings.Contains(lhs, "(") {
		opts.Set(name, value)
		return nil
	}

	idx, err := strconv.Atoi(index)
	if err != nil || idx < 1 {
		// ranges such as x(1:3) or x(:) are kept verbatim
		opts.Set(name+"("+index+")", value)
		return nil
	}

	current, _ := opts.Get(name)
	arr, ok := current.(Array)
	if !ok {
		arr = make(Array)
	}
	if list, isList := value.(Array); isList {
		for _, j := range list.Indices() {
			arr[idx+j-1] = list[j]
		}
	} else {
		arr[idx] = value
	}
	opts.Set(name, arr)
	return nil
}

// parseScalarOrList tries a scalar literal first and falls back to an
// inline list only when the scalar grammar does not match.
func parseScalarOrList(raw string) (any, error) {
	v, err := ParseValue(raw)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, ErrValueNotParsed) {
		return nil, err
	}
	return ParseInline(raw)
}

// StripComment removes a trailing ! comment that is not inside a string.
func StripComment(line string) string {
	var quote rune
	for i, r := range line {
		switch {
		case quote != 0:
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
		case r == '!':
			return line[:i]
		}
	}
	return line
}

// FormatGroup renders a single group block. With inline set, arrays are
// written on one line; otherwise each element gets its own key(n) line.
func FormatGroup(name string, opts *Options, inline bool) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", ErrEmptyGroupName
	}

	var b strings.Builder
	b.WriteString("&" + name + "\n")
	for _, key := range opts.Keys() {
		v, _ := opts.Get(key)
		switch x := v.(type) {
		case Array:
			writeArray(&b, key, x, inline)
		case []any:
			writeArray(&b, key, ArrayOf(x...), inline)
		default:
			b.WriteString(indent + key + " = " + FormatValue(v) + "\n")
		}
	}
	b.WriteString("/ ! end of " + name + " namelist\n")
	return b.String(), nil
}

// writeArray falls back to indexed lines for sparse arrays, which an inline
// list cannot express.
func writeArray(b *strings.Builder, key string, a Array, inline bool) {
	if inline && dense(a) {
		parts := make([]string, 0, len(a))
		for _, v := range a.Values() {
			parts = append(parts, FormatValue(v))
		}
		b.WriteString(indent + key + " = " + strings.Join(parts, ", ") + "\n")
		return
	}
	for _, i := range a.Indices() {
		b.WriteString(indent + key + "(" + strconv.Itoa(i) + ") = " + FormatValue(a[i]) + "\n")
	}
}

func dense(a Array) bool {
	if len(a) == 0 {
		return false
	}
	for i := 1; i <= len(a); i++ {
		if _, ok := a[i]; !ok {
			return false
		}
	}
	return true
}

// Format renders every group of g in order.
func Format(g *Groups, inline bool) (string, error) {
	var b strings.Builder
	for _, name := range g.Names() {
		s, err := FormatGroup(name, g.Group(name), inline)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
	}
	return b.String(), nil
}
