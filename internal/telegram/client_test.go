package telegram

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitByBytes(t *testing.T) {
	tests := []struct {
		name string
		text string
		max  int
		want []string
	}{
		{name: "short", text: "hello", max: 10, want: []string{"hello"}},
		{name: "prefers newline", text: "aaa\nbbb\nccc", max: 9, want: []string{"aaa\nbbb\n", "ccc"}},
		{name: "keeps runes whole", text: "ééé", max: 3, want: []string{"é", "é", "é"}},
		{name: "no limit", text: "abc", max: 0, want: []string{"abc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitByBytes(tt.text, tt.max))
		})
	}
}

func TestSplitByBytesRespectsTelegramLimit(t *testing.T) {
	text := strings.Repeat("Variant line with a few words\n", 400)
	parts := splitByBytes(text, maxMessageBytes)

	assert.Greater(t, len(parts), 1)
	for _, p := range parts {
		assert.LessOrEqual(t, len(p), maxMessageBytes)
	}
	assert.Equal(t, text, strings.Join(parts, ""))
}

func TestTruncateByBytes(t *testing.T) {
	assert.Equal(t, "h", truncateByBytes("héllo", 2))
	assert.Equal(t, "hé", truncateByBytes("héllo", 3))
	assert.Equal(t, "short", truncateByBytes("short", maxCaptionBytes))
}
