package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUniqueStrings(t *testing.T) {
	tests := []struct {
		name   string
		input  []string
		expect []string
	}{
		{"nil", nil, []string{}},
		{"drops empty", []string{"", "a", ""}, []string{"a"}},
		{"keeps first-seen order", []string{"b", "a", "b", "c", "a"}, []string{"b", "a", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, uniqueStrings(tt.input))
		})
	}
}

func TestChunkStrings(t *testing.T) {
	assert.Nil(t, chunkStrings(nil, 3))
	assert.Equal(t, [][]string{{"a", "b"}}, chunkStrings([]string{"a", "b"}, 0))
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}, {"e"}}, chunkStrings([]string{"a", "b", "c", "d", "e"}, 2))

	chunks := chunkStrings([]string{"a", "b", "c"}, 2)
	chunks[0] = append(chunks[0], "x")
	assert.Equal(t, []string{"c"}, chunks[1], "appending to a chunk must not clobber the next one")
}
