package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fleetflow/leadflow/internal/errs"
)

func TestPhone_Formats(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"(214) 555-0193", "+12145550193"},
		{"214-555-0193", "+12145550193"},
		{"214.555.0193", "+12145550193"},
		{"1-214-555-0193", "+12145550193"},
		{"+1 214 555 0193", "+12145550193"},
		{"2145550193", "+12145550193"},
	}
	for _, tt := range tests {
		got, err := Phone(tt.in)
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestPhone_Empty(t *testing.T) {
	got, err := Phone("   ")
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestPhone_Invalid(t *testing.T) {
	for _, in := range []string{
		"555-0193",       // too short
		"22145550193",    // 11 digits, wrong country code
		"014-555-0193",   // area code starts with 0
		"214-155-0193",   // exchange starts with 1
		"not a number",
	} {
		_, err := Phone(in)
		require.Error(t, err, "input %q", in)
		assert.True(t, errs.IsValidation(err))
	}
}
