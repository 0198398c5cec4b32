package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	testCases := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{
			name:  "trailing Z",
			input: "2025-04-29T13:07:51Z",
			want:  time.Date(2025, 4, 29, 13, 7, 51, 0, time.UTC),
		},
		{
			name:  "explicit zero offset",
			input: "2025-04-29T13:07:51+00:00",
			want:  time.Date(2025, 4, 29, 13, 7, 51, 0, time.UTC),
		},
		{
			name:  "non-UTC offset normalized",
			input: "2025-04-29T15:07:51+02:00",
			want:  time.Date(2025, 4, 29, 13, 7, 51, 0, time.UTC),
		},
		{
			name:  "no offset assumed UTC",
			input: "2025-04-29T13:07:51",
			want:  time.Date(2025, 4, 29, 13, 7, 51, 0, time.UTC),
		},
		{
			name:  "space separated",
			input: "2025-04-29 13:07:51",
			want:  time.Date(2025, 4, 29, 13, 7, 51, 0, time.UTC),
		},
		{
			name:    "garbage",
			input:   "not-a-timestamp",
			wantErr: true,
		},
		{
			name:    "empty",
			input:   "",
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseTimestamp(tc.input)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tc.want), "got %s, want %s", got, tc.want)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestParseTimestampRoundTrip(t *testing.T) {
	// Both wire forms of the same instant must parse identically.
	a, err := ParseTimestamp("2025-04-29T13:07:51Z")
	require.NoError(t, err)
	b, err := ParseTimestamp("2025-04-29T13:07:51+00:00")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestScreenshotFilename(t *testing.T) {
	ts := time.Date(2025, 4, 29, 13, 7, 51, 123456000, time.UTC)

	testCases := []struct {
		name     string
		original string
		want     string
	}{
		{
			name:     "png extension kept",
			original: "screen.png",
			want:     "20250429_130751_123456.png",
		},
		{
			name:     "missing extension defaults to png",
			original: "screen",
			want:     "20250429_130751_123456.png",
		},
		{
			name:     "path control characters stripped",
			original: "../../evil.p/ng",
			want:     "20250429_130751_123456.png",
		},
		{
			name:     "jpeg kept lowercase",
			original: "shot.JPEG",
			want:     "20250429_130751_123456.jpeg",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ScreenshotFilename(ts, tc.original))
		})
	}
}
