package chunking

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/docchat/docchat/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegment(t *testing.T) {
	t.Run("Covers the whole text with the configured stride", func(t *testing.T) {
		text := strings.Repeat("abcdefghij", 10)
		chunks, err := Segment(text, 40, 10, 1)
		require.NoError(t, err)
		require.NotEmpty(t, chunks)

		assert.Equal(t, 0, chunks[0].StartOffset)
		for i := 1; i < len(chunks); i++ {
			assert.Equal(t, chunks[i-1].StartOffset+30, chunks[i].StartOffset, "stride must be window minus overlap")
		}
		assert.Equal(t, len(text), chunks[len(chunks)-1].EndOffset)
	})

	t.Run("Keeps offsets within the text", func(t *testing.T) {
		text := "short tail text that does not divide evenly by the window"
		chunks, err := Segment(text, 25, 5, 3)
		require.NoError(t, err)
		for _, chunk := range chunks {
			assert.GreaterOrEqual(t, chunk.StartOffset, 0)
			assert.LessOrEqual(t, chunk.EndOffset, len(text))
			assert.Equal(t, 3, chunk.Page)
		}
	})

	t.Run("Never tears multi-byte characters at window edges", func(t *testing.T) {
		text := strings.Repeat("日本語の文書", 20)
		chunks, err := Segment(text, 40, 10, 1)
		require.NoError(t, err)
		require.NotEmpty(t, chunks)

		runeCount := len([]rune(text))
		for _, chunk := range chunks {
			assert.True(t, utf8.ValidString(chunk.Text), "chunk text must stay valid UTF-8: %q", chunk.Text)
			assert.LessOrEqual(t, chunk.EndOffset, runeCount, "offsets are counted in runes")
		}
		assert.Equal(t, runeCount, chunks[len(chunks)-1].EndOffset)
	})

	t.Run("Trims window whitespace and drops empty windows", func(t *testing.T) {
		text := "word" + strings.Repeat(" ", 20) + "tail"
		chunks, err := Segment(text, 10, 0, 1)
		require.NoError(t, err)
		for _, chunk := range chunks {
			assert.Equal(t, strings.TrimSpace(chunk.Text), chunk.Text)
			assert.NotEmpty(t, chunk.Text)
		}
	})

	t.Run("Returns no chunks for empty text", func(t *testing.T) {
		chunks, err := Segment("", 10, 2, 1)
		require.NoError(t, err)
		assert.Empty(t, chunks)
	})

	t.Run("Assigns a unique id per chunk", func(t *testing.T) {
		chunks, err := Segment(strings.Repeat("x y ", 50), 20, 5, 1)
		require.NoError(t, err)
		ids := make(map[string]bool)
		for _, chunk := range chunks {
			assert.False(t, ids[chunk.ID])
			ids[chunk.ID] = true
		}
	})

	t.Run("Rejects a non-positive window", func(t *testing.T) {
		_, err := Segment("text", 0, 0, 1)
		assert.Error(t, err)
	})

	t.Run("Rejects overlap at or above the window size", func(t *testing.T) {
		_, err := Segment("text", 10, 10, 1)
		assert.Error(t, err)
		_, err = Segment("text", 10, 15, 1)
		assert.Error(t, err)
		_, err = Segment("text", 10, -1, 1)
		assert.Error(t, err)
	})
}

func TestSegmenterParentChildGroups(t *testing.T) {
	config := model.DefaultConfig()
	config.ParentChunkSize = 100
	config.ParentChunkOverlap = 20
	config.ChildChunkSize = 30
	config.ChildChunkOverlap = 5

	t.Run("Every child is contained in its parent", func(t *testing.T) {
		s, err := NewSegmenter(config)
		require.NoError(t, err)

		text := strings.Repeat("the quick brown fox jumps over the lazy dog. ", 12)
		groups, err := s.ParentChildGroups(text, 2)
		require.NoError(t, err)
		require.NotEmpty(t, groups)

		for _, group := range groups {
			require.NotEmpty(t, group.Children)
			for _, child := range group.Children {
				assert.True(t, group.Parent.Contains(child),
					"child [%d,%d) must lie inside parent [%d,%d)",
					child.StartOffset, child.EndOffset, group.Parent.StartOffset, group.Parent.EndOffset)
			}
		}
	})

	t.Run("Rejects overlap at or above the window size", func(t *testing.T) {
		bad := config
		bad.ChildChunkOverlap = bad.ChildChunkSize
		_, err := NewSegmenter(bad)
		assert.Error(t, err)

		bad = config
		bad.ParentChunkOverlap = bad.ParentChunkSize + 1
		_, err = NewSegmenter(bad)
		assert.Error(t, err)
	})
}

func TestSegmenterProcessDocumentPages(t *testing.T) {
	config := model.DefaultConfig()
	config.ParentChunkSize = 80
	config.ParentChunkOverlap = 10
	config.ChildChunkSize = 25
	config.ChildChunkOverlap = 5

	s, err := NewSegmenter(config)
	require.NoError(t, err)

	t.Run("Skips whitespace-only pages and keeps page numbers", func(t *testing.T) {
		pages := []model.Page{
			{Text: strings.Repeat("page one content. ", 10), PageNum: 1},
			{Text: "   \n\t  ", PageNum: 2},
			{Text: strings.Repeat("page three content. ", 10), PageNum: 3},
		}
		parents, children, err := s.ProcessDocumentPages(pages)
		require.NoError(t, err)
		require.NotEmpty(t, parents)
		require.NotEmpty(t, children)

		for _, chunk := range append(append([]model.Chunk{}, parents...), children...) {
			assert.NotEqual(t, 2, chunk.Page)
		}
	})

	t.Run("Recovers each child's parent by containment", func(t *testing.T) {
		pages := []model.Page{{Text: strings.Repeat("alpha beta gamma delta. ", 15), PageNum: 1}}
		parents, children, err := s.ProcessDocumentPages(pages)
		require.NoError(t, err)

		for _, child := range children {
			parent, ok := FindParent(child, parents)
			require.True(t, ok)
			assert.True(t, parent.Contains(child))
		}
	})

	t.Run("Returns empty lists for no pages", func(t *testing.T) {
		parents, children, err := s.ProcessDocumentPages(nil)
		require.NoError(t, err)
		assert.Empty(t, parents)
		assert.Empty(t, children)
	})
}

func TestFindParent(t *testing.T) {
	parents := []model.Chunk{
		{ID: "p1", Page: 1, StartOffset: 0, EndOffset: 100},
		{ID: "p2", Page: 1, StartOffset: 80, EndOffset: 180},
	}

	t.Run("Returns the first containing parent", func(t *testing.T) {
		parent, ok := FindParent(model.Chunk{Page: 1, StartOffset: 85, EndOffset: 95}, parents)
		require.True(t, ok)
		assert.Equal(t, "p1", parent.ID)
	})

	t.Run("Reports a boundary-crossing child as not found", func(t *testing.T) {
		_, ok := FindParent(model.Chunk{Page: 1, StartOffset: 70, EndOffset: 110}, parents)
		assert.False(t, ok)
	})

	t.Run("Never matches across pages", func(t *testing.T) {
		_, ok := FindParent(model.Chunk{Page: 2, StartOffset: 10, EndOffset: 20}, parents)
		assert.False(t, ok)
	})
}
