package fiskal_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/fiskalhr/pkg/fiskal"
)

// Control digits verified against the tax administration's published
// MOD 11,10 worked example.
func TestValidateOIB_KnownNumbers(t *testing.T) {
	valid := []string{
		"12312312316",
		"00000000001",
		"11111111119",
	}
	for _, value := range valid {
		assert.NoError(t, fiskal.ValidateOIB(value), "OIB %s should validate", value)
	}
}

func TestValidateOIB_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"wrong control digit", "12312312312"},
		{"too short", "1231231231"},
		{"too long", "123123123166"},
		{"non-digit", "1231231231a"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := fiskal.ValidateOIB(tt.value)
			require.Error(t, err)
			var verr *fiskal.ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestParseOIB_RoundTrip(t *testing.T) {
	oib, err := fiskal.ParseOIB("12312312316")
	require.NoError(t, err)
	assert.Equal(t, "12312312316", oib.String())
	assert.False(t, oib.IsZero())
	assert.True(t, fiskal.OIB{}.IsZero())
}

func TestMustOIB_PanicsOnInvalid(t *testing.T) {
	assert.Panics(t, func() { fiskal.MustOIB("12312312312") })
}
