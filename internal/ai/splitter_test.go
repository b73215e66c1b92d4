package ai

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitterPrefersWhitespaceAndOverlaps(t *testing.T) {
	s := NewSplitter(10, 2)

	chunks := s.Split("aaaa bbbb cccc")

	assert.Equal(t, []string{"aaaa bbbb", "bb cccc"}, chunks)
}

func TestSplitterShortAndBlankText(t *testing.T) {
	s := NewSplitter(100, 10)

	assert.Equal(t, []string{"refund policy"}, s.Split("  refund policy \n"))
	assert.Nil(t, s.Split(""))
	assert.Nil(t, s.Split(" \t\n "))
}

func TestSplitterIsDeterministicAndBounded(t *testing.T) {
	text := strings.Repeat("the quick brown fox jumps over the lazy dog ", 200)
	s := NewSplitter(128, 16)

	first := s.Split(text)
	second := s.Split(text)

	assert.Equal(t, first, second)
	assert.Greater(t, len(first), 1)
	for _, c := range first {
		assert.LessOrEqual(t, len([]rune(c)), 128)
	}
}

func TestSplitterCutsLongWords(t *testing.T) {
	s := NewSplitter(4, 0)

	assert.Equal(t, []string{"abcd", "efgh", "ij"}, s.Split("abcdefghij"))
}

func TestNewSplitterNormalizesArguments(t *testing.T) {
	s := NewSplitter(0, -1)
	assert.Equal(t, DefaultChunkSize, s.size)
	assert.Equal(t, 0, s.overlap)

	s = NewSplitter(8, 8)
	assert.Equal(t, 2, s.overlap)
}
