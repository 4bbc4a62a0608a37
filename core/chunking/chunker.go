package chunking

import (
	"fmt"
	"strings"

	"github.com/docchat/docchat/model"
)

// Segmenter cuts page text into fixed-size character windows with overlap.
// Two passes with different window sizes produce the parent/child hierarchy:
// small child windows are indexed for precision, large parent windows are
// surfaced as generation context.
type Segmenter struct {
	parentSize    int
	parentOverlap int
	childSize     int
	childOverlap  int
}

// NewSegmenter creates a segmenter from the configured window sizes.
func NewSegmenter(config model.Config) (*Segmenter, error) {
	if config.ParentChunkOverlap >= config.ParentChunkSize {
		return nil, fmt.Errorf("parent overlap %d must be smaller than parent window %d", config.ParentChunkOverlap, config.ParentChunkSize)
	}
	if config.ChildChunkOverlap >= config.ChildChunkSize {
		return nil, fmt.Errorf("child overlap %d must be smaller than child window %d", config.ChildChunkOverlap, config.ChildChunkSize)
	}

	return &Segmenter{
		parentSize:    config.ParentChunkSize,
		parentOverlap: config.ParentChunkOverlap,
		childSize:     config.ChildChunkSize,
		childOverlap:  config.ChildChunkOverlap,
	}, nil
}

// Segment slides a window of windowSize characters across text, advancing
// by windowSize-overlap each step. Window text is trimmed of surrounding
// whitespace and empty windows are dropped. Windows and offsets are counted
// in runes, never bytes, so multi-byte text is never torn mid-character.
func Segment(text string, windowSize, overlap, page int) ([]model.Chunk, error) {
	if windowSize <= 0 {
		return nil, fmt.Errorf("window size must be positive, got %d", windowSize)
	}
	if overlap < 0 || overlap >= windowSize {
		return nil, fmt.Errorf("overlap %d must be in [0, window size %d)", overlap, windowSize)
	}

	var chunks []model.Chunk
	runes := []rune(text)
	textLength := len(runes)

	for start := 0; start < textLength; start += windowSize - overlap {
		end := start + windowSize
		if end > textLength {
			end = textLength
		}

		windowText := strings.TrimSpace(string(runes[start:end]))
		if windowText != "" {
			chunks = append(chunks, model.NewChunk(windowText, page, start, end))
		}

		if end >= textLength {
			break
		}
	}

	return chunks, nil
}

// ParentChildGroups segments text into parent windows and re-segments each
// parent's text into child windows. Child offsets are rebased onto the page
// so containment in the parent range holds by construction.
func (s *Segmenter) ParentChildGroups(text string, page int) ([]model.ParentChildGroup, error) {
	parents, err := Segment(text, s.parentSize, s.parentOverlap, page)
	if err != nil {
		return nil, err
	}

	groups := make([]model.ParentChildGroup, 0, len(parents))
	for _, parent := range parents {
		children, err := Segment(parent.Text, s.childSize, s.childOverlap, page)
		if err != nil {
			return nil, err
		}

		for i := range children {
			children[i].StartOffset += parent.StartOffset
			children[i].EndOffset += parent.StartOffset
		}

		groups = append(groups, model.ParentChildGroup{Parent: parent, Children: children})
	}

	return groups, nil
}

// ProcessDocumentPages runs the parent and child passes over every page and
// returns the flattened chunk lists. Pages with only whitespace are skipped.
// Parent-to-child association is recovered by offset containment, see FindParent.
func (s *Segmenter) ProcessDocumentPages(pages []model.Page) ([]model.Chunk, []model.Chunk, error) {
	var allParents, allChildren []model.Chunk

	for _, page := range pages {
		if strings.TrimSpace(page.Text) == "" {
			continue
		}

		groups, err := s.ParentChildGroups(page.Text, page.PageNum)
		if err != nil {
			return nil, nil, err
		}

		for _, group := range groups {
			allParents = append(allParents, group.Parent)
			allChildren = append(allChildren, group.Children...)
		}
	}

	return allParents, allChildren, nil
}

// FindParent returns the first parent whose offset range contains the child
// on the same page. Children crossing a parent boundary (possible only for
// externally supplied chunk sets, since the child pass runs inside a parent
// window) are reported as not found and dropped by callers.
func FindParent(child model.Chunk, parents []model.Chunk) (model.Chunk, bool) {
	for _, parent := range parents {
		if parent.Contains(child) {
			return parent, true
		}
	}
	return model.Chunk{}, false
}
