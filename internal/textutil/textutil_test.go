package textutil

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestContainsCJK(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want bool
	}{
		{"Han", "你好", true},
		{"Mixed", "hello 世界", true},
		{"ASCII", "hello world", false},
		{"Hiragana", "ひらがな", false},
		{"Empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ContainsCJK(tt.in))
		})
	}
}

func TestUnescapeLiterals(t *testing.T) {
	assert.Equal(t, "a\\b", UnescapeLiterals(`a\\b`))
	assert.Equal(t, "line1\nline2", UnescapeLiterals(`line1\nline2`))
	// A doubled backslash before n collapses first, then becomes a newline.
	assert.Equal(t, "x\ny", UnescapeLiterals(`x\\ny`))
	assert.Equal(t, "plain", UnescapeLiterals("plain"))
}

func TestNonBreakingSpaces(t *testing.T) {
	assert.Equal(t, "你好\u00a0世界", NonBreakingSpaces("你好 世界"))
	assert.Equal(t, "a\u00a0b\u00a0c", NonBreakingSpaces("a b c"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abc...", Truncate("abcdef", 3))
	assert.Equal(t, "你好", Truncate("你好", 2))
	assert.Equal(t, "你...", Truncate("你好", 1))
}

func TestTruncate_CountsCharacters(t *testing.T) {
	key := strings.Repeat("任", 60)
	got := Truncate(key, 50)
	assert.Equal(t, strings.Repeat("任", 50)+"...", got)
	assert.Equal(t, 53, utf8.RuneCountInString(got))

	// Fifty multi-byte characters fit even though they exceed fifty bytes.
	fits := strings.Repeat("é", 50)
	assert.Equal(t, fits, Truncate(fits, 50))
}
