package series

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParserSpaceAndISOSeparatorsAgree(t *testing.T) {
	p := NewParser(time.UTC)

	spaced, ok := p.Parse("2024-01-01 10:00:00")
	require.True(t, ok)
	iso, ok := p.Parse("2024-01-01T10:00:00")
	require.True(t, ok)

	require.Equal(t, iso, spaced)
	require.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC).UnixMilli(), iso)
}

func TestParserKeepsSuffixAfterSeparatorRewrite(t *testing.T) {
	p := NewParser(time.UTC)

	withFraction, ok := p.Parse("2024-01-01 10:00:00.250")
	require.True(t, ok)
	require.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 250_000_000, time.UTC).UnixMilli(), withFraction)

	withZone, ok := p.Parse("2024-01-01 10:00:00+08:00")
	require.True(t, ok)
	require.Equal(t, time.Date(2024, 1, 1, 2, 0, 0, 0, time.UTC).UnixMilli(), withZone)
}

func TestParserReadsZonelessInputInLocation(t *testing.T) {
	shanghai := time.FixedZone("CST", 8*60*60)
	p := NewParser(shanghai)

	got, ok := p.Parse("2024-07-01 12:00:00")
	require.True(t, ok)
	require.Equal(t, time.Date(2024, 7, 1, 4, 0, 0, 0, time.UTC).UnixMilli(), got)

	explicit, ok := p.Parse("2024-07-01T12:00:00Z")
	require.True(t, ok)
	require.Equal(t, time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC).UnixMilli(), explicit)
}

func TestParserFallbacks(t *testing.T) {
	p := NewParser(time.UTC)
	want := time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC).UnixMilli()

	cases := []string{
		"2024/01/05 10:00:00",
		"2024-1-5 10:00:00",
		"  2024-01-05T10:00:00  ",
		"2024-01-05T10:00",
		"2024-01-05T10:00:00+0000",
	}
	for _, raw := range cases {
		got, ok := p.Parse(raw)
		require.True(t, ok, raw)
		require.Equal(t, want, got, raw)
	}

	dateOnly, ok := p.Parse("2024-01-05")
	require.True(t, ok)
	require.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC).UnixMilli(), dateOnly)
}

func TestParserRejectsGarbage(t *testing.T) {
	p := NewParser(nil)
	for _, raw := range []string{"", "   ", "yesterday", "2024-13-45 99:99:99", "12:00:00"} {
		_, ok := p.Parse(raw)
		require.False(t, ok, raw)
	}
}
