package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactPII(t *testing.T) {
	in := "Call me on +65 9123 4567 or 08123456789, mail jane.doe@example.com. Case filed in 2023."
	out := RedactPII(in)

	assert.NotContains(t, out, "9123")
	assert.NotContains(t, out, "08123456789")
	assert.NotContains(t, out, "@")
	assert.Contains(t, out, "[redacted phone]")
	assert.Contains(t, out, "[redacted email]")
	assert.Contains(t, out, "2023")
	assert.Equal(t, "", RedactPII(""))
}

func TestRedactPII_KeepsDatesAndAmounts(t *testing.T) {
	for _, in := range []string{
		"Hearing held on 2024-01-15 at district court",
		"Claim of 25.000.000 rupiah",
		"Filed 12/03/2023, appeal 14.05.2024",
	} {
		assert.Equal(t, in, RedactPII(in))
	}
	assert.Equal(t, "Office [redacted phone] ext 12", RedactPII("Office (021) 555-0199 ext 12"))
}

func TestSummary(t *testing.T) {
	assert.Equal(t, "short text", Summary("  short text ", 240))

	long := strings.Repeat("word ", 100)
	got := Summary(long, 42)
	assert.True(t, strings.HasSuffix(got, "…"))
	assert.LessOrEqual(t, len(strings.TrimSuffix(got, "…")), 42)
	assert.False(t, strings.HasSuffix(strings.TrimSuffix(got, "…"), " "))

	noSpaces := strings.Repeat("x", 50)
	assert.Equal(t, strings.Repeat("x", 10)+"…", Summary(noSpaces, 10))
}
