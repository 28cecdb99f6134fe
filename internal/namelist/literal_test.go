package namelist

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseValue(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"42", 42},
		{"-7", -7},
		{"1.5", 1.5},
		{"1.5d0", 1.5},
		{"1.5D+02", 150.0},
		{"2e-3", 0.002},
		{".5", 0.5},
		{"1d99", 1e99},
		{".true.", true},
		{"T", true},
		{".false.", false},
		{"F", false},
		{"'LOGS'", "LOGS"},
		{`"with space"`, "with space"},
		{"''", ""},
		{"'it''s'", "it's"},
		{`"say ""hi"""`, `say "hi"`},
		{`'a "b"'`, `a "b"`},
		{"(1.0,2.5)", complex(1.0, 2.5)},
		{"(-1d0, 3)", complex(-1.0, 3.0)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseValue(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseValueNotParsed(t *testing.T) {
	for _, in := range []string{"1 2 3", "'a' 'b'", "'a'b'", "abc", "", "1.0, 2.0"} {
		_, err := ParseValue(in)
		require.Error(t, err, in)
		assert.True(t, errors.Is(err, ErrValueNotParsed), in)

		var vErr *ValueNotParsedError
		assert.True(t, errors.As(err, &vErr), in)
	}
}

func TestParseInline(t *testing.T) {
	tests := []struct {
		in   string
		want Array
	}{
		{"1 2 3", ArrayOf(1, 2, 3)},
		{"1, 2, 3", ArrayOf(1, 2, 3)},
		{"1.0d0,2.0d0", ArrayOf(1.0, 2.0)},
		{"'a b' 'c'", ArrayOf("a b", "c")},
		{"'x', 'y'", ArrayOf("x", "y")},
		{"(1,2) (3,4)", ArrayOf(complex(1, 2), complex(3, 4))},
		{".true. F", ArrayOf(true, false)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseInline(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := ParseInline("1 two 3")
	assert.ErrorIs(t, err, ErrValueNotParsed)
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{true, ".true."},
		{false, ".false."},
		{12, "12"},
		{int64(-3), "-3"},
		{1.5, "1.5000000000d+00"},
		{2.0, "2.0000000000d+00"},
		{1e-12, "1.0000000000d-12"},
		{-314.15, "-3.1415000000d+02"},
		{"LOGS1", "'LOGS1'"},
		{"it's", "'it''s'"},
		{complex(1, -2), "(1.00000,-2.00000)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatValue(tt.in))
	}
}

func TestFormatValueParsesBack(t *testing.T) {
	for _, v := range []any{true, false, 7, 1.5, 6.02214076e23, "inlist1", "it's", "''", complex(0.5, 0.25)} {
		got, err := ParseValue(FormatValue(v))
		require.NoError(t, err)
		assert.True(t, Equal(v, got), "%v -> %v", v, got)
	}
}
