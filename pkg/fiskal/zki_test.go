package fiskal_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/fiskalhr/pkg/fiskal"
)

// fakeSigner records the payload it was asked to sign and returns a fixed
// digest.
type fakeSigner struct {
	payload string
	digest  string
	err     error
}

func (f *fakeSigner) SignZKIPayload(payload []byte) (string, error) {
	f.payload = string(payload)
	if f.err != nil {
		return "", f.err
	}
	return f.digest, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// The payload concatenation is wire-exact: OIB, timestamp with a literal 'T',
// then the three invoice number segments without their separators, then the
// two-decimal total. Any change here changes every issued protection code.
// ──────────────────────────────────────────────────────────────────────────────

func TestZKIPayload_ExactVector(t *testing.T) {
	oib := fiskal.MustOIB("12312312316")
	issuedAt := time.Date(2022, 1, 1, 0, 0, 0, 0, time.Local)
	number := fiskal.MustInvoiceNumber("1/X/1")
	total, err := fiskal.AmountFromString("100")
	require.NoError(t, err)

	payload := fiskal.ZKIPayload(oib, issuedAt, number, total)
	assert.Equal(t, "1231231231601.01.2022T00:00:001X1100.00", payload)
}

func TestZKIPayload_PadsTimestamp(t *testing.T) {
	oib := fiskal.MustOIB("12312312316")
	issuedAt := time.Date(2022, 9, 3, 7, 5, 9, 0, time.Local)
	number := fiskal.MustInvoiceNumber("1001/VP1/9")
	total, err := fiskal.AmountFromString("3.14")
	require.NoError(t, err)

	payload := fiskal.ZKIPayload(oib, issuedAt, number, total)
	assert.Equal(t, "1231231231603.09.2022T07:05:091001VP193.14", payload)
}

func TestCalculateZKI(t *testing.T) {
	signer := &fakeSigner{digest: "b46cd42c9f5b9bfde12b4f1a7d2a55e8"}

	zki, err := fiskal.CalculateZKI(
		fiskal.MustOIB("12312312316"),
		time.Date(2022, 1, 1, 0, 0, 0, 0, time.Local),
		fiskal.MustInvoiceNumber("1/X/1"),
		fiskal.AmountFromFloat(100),
		signer,
	)
	require.NoError(t, err)
	assert.Equal(t, "b46cd42c9f5b9bfde12b4f1a7d2a55e8", zki.String())
	assert.Equal(t, "1231231231601.01.2022T00:00:001X1100.00", signer.payload)
}

func TestCalculateZKI_RejectsBadDigest(t *testing.T) {
	tests := []struct {
		name   string
		digest string
	}{
		{"uppercase", "B46CD42C9F5B9BFDE12B4F1A7D2A55E8"},
		{"too short", "b46cd42c"},
		{"not hex", "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signer := &fakeSigner{digest: tt.digest}
			_, err := fiskal.CalculateZKI(
				fiskal.MustOIB("12312312316"),
				time.Now(),
				fiskal.MustInvoiceNumber("1/X/1"),
				fiskal.AmountFromFloat(100),
				signer,
			)
			assert.Error(t, err)
		})
	}
}

func TestParseZKI(t *testing.T) {
	zki, err := fiskal.ParseZKI("b46cd42c9f5b9bfde12b4f1a7d2a55e8")
	require.NoError(t, err)
	assert.False(t, zki.IsZero())
	assert.True(t, fiskal.ZKI{}.IsZero())

	_, err = fiskal.ParseZKI("not-a-zki")
	assert.Error(t, err)
}
