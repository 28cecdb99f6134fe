package namelist

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

var (
	intRe     = regexp.MustCompile(`^[+-]?\d+$`)
	floatRe   = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?$`)
	complexRe = regexp.MustCompile(`^\(\s*([^,()]+?)\s*,\s*([^,()]+?)\s*\)$`)
)

// ParseValue decodes a single scalar literal. It returns a
// *ValueNotParsedError when token is not a scalar, which usually means it is
// an inline list.
func ParseValue(token string) (any, error) {
	s := strings.TrimSpace(token)
	if s == "" {
		return nil, &ValueNotParsedError{Token: token}
	}

	if intRe.MatchString(s) {
		if n, err := strconv.Atoi(s); err == nil {
			return n, nil
		}
	}
	if f, ok := parseFloat(s); ok {
		return f, nil
	}
	if m := complexRe.FindStringSubmatch(s); m != nil {
		re, okRe := parseFloat(m[1])
		im, okIm := parseFloat(m[2])
		if okRe && okIm {
			return complex(re, im), nil
		}
	}

	switch strings.ToLower(s) {
	case ".true.", ".t.", "t":
		return true, nil
	case ".false.", ".f.", "f":
		return false, nil
	}

	if str, ok := unquote(s); ok {
		return str, nil
	}
	return nil, &ValueNotParsedError{Token: s}
}

func parseFloat(s string) (float64, bool) {
	s = strings.NewReplacer("d", "e", "D", "e").Replace(strings.TrimSpace(s))
	if !floatRe.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// unquote accepts 'x' or "x". Inside, the delimiter only appears doubled,
// as in 'it''s', and is collapsed back to one.
func unquote(s string) (string, bool) {
	if len(s) < 2 {
		return "", false
	}
	q := s[0]
	if (q != '\'' && q != '"') || s[len(s)-1] != q {
		return "", false
	}
	inner, pair := s[1:len(s)-1], string(q)+string(q)
	if strings.Contains(strings.ReplaceAll(inner, pair, ""), string(q)) {
		return "", false
	}
	return strings.ReplaceAll(inner, pair, string(q)), true
}

// ParseInline decodes a whitespace or comma separated list of literals into
// an Array starting at index 1. Quoted strings may contain spaces and
// complex pairs may contain commas.
func ParseInline(text string) (Array, error) {
	tokens := splitTokens(text)
	if len(tokens) == 0 {
		return nil, &ValueNotParsedError{Token: text}
	}
	out := make(Array, len(tokens))
	for i, tok := range tokens {
		v, err := ParseValue(tok)
		if err != nil {
			return nil, err
		}
		out[i+1] = v
	}
	return out, nil
}

func splitTokens(s string) []string {
	var (
		tokens []string
		cur    strings.Builder
		quote  rune
		depth  int
	)
	flush := func() {
		if cur.Len() > 0 {
			tokens = append(tokens, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		switch {
		case quote != 0:
			cur.WriteRune(r)
			if r == quote {
				quote = 0
			}
		case r == '\'' || r == '"':
			quote = r
			cur.WriteRune(r)
		case r == '(':
			depth++
			cur.WriteRune(r)
		case r == ')':
			if depth > 0 {
				depth--
			}
			cur.WriteRune(r)
		case depth == 0 && (r == ',' || unicode.IsSpace(r)):
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return tokens
}

// FormatValue renders v as a namelist literal. Floats use ten mantissa
// digits and a d exponent marker.
func FormatValue(v any) string {
	switch x := v.(type) {
	case bool:
		if x {
			return ".true."
		}
		return ".false."
	case int:
		return strconv.Itoa(x)
	case int32:
		return strconv.FormatInt(int64(x), 10)
	case int64:
		return strconv.FormatInt(x, 10)
	case uint:
		return strconv.FormatUint(uint64(x), 10)
	case uint64:
		return strconv.FormatUint(x, 10)
	case float32:
		return formatFloat(float64(x))
	case float64:
		return formatFloat(x)
	case string:
		return quote(x)
	case complex128:
		return fmt.Sprintf("(%.5f,%.5f)", real(x), imag(x))
	case complex64:
		return fmt.Sprintf("(%.5f,%.5f)", real(x), imag(x))
	case nil:
		return "''"
	}
	return quote(fmt.Sprint(v))
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func formatFloat(f float64) string {
	return strings.Replace(strconv.FormatFloat(f, 'e', 10, 64), "e", "d", 1)
}
