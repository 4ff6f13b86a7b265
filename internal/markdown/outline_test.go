package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutline(t *testing.T) {
	src := []byte("## Setup\n\nSome intro words here.\n\n# The *Real* Title\n\nBody text.\n")
	o := NewOutliner().Outline(src)

	require.Len(t, o.Headings, 2)
	assert.Equal(t, 2, o.Headings[0].Level)
	assert.Equal(t, "setup", o.Headings[0].ID)
	assert.Equal(t, "The Real Title", o.Headings[1].Text)
	assert.Equal(t, "The Real Title", o.Title())
	assert.Equal(t, 10, o.WordCount)
}

func TestOutlineEmpty(t *testing.T) {
	o := NewOutliner().Outline(nil)
	assert.Empty(t, o.Headings)
	assert.Equal(t, "", o.Title())
	assert.Zero(t, o.WordCount)
}
