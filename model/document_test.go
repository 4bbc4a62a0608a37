package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDocumentFromFile(t *testing.T) {
	t.Run("Reads the file into a single-page document", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "annual-report.txt")
		require.NoError(t, os.WriteFile(path, []byte("Revenue grew in both quarters."), 0600))

		doc, pages, err := NewDocumentFromFile(path, "tenant-a", Metadata{"lang": "en"})

		require.NoError(t, err)
		assert.Equal(t, "annual-report", doc.Title, "title drops the extension")
		assert.Equal(t, path, doc.Source)
		assert.Equal(t, "tenant-a", doc.Tenant)
		assert.Equal(t, 1, doc.PageCount)
		assert.Equal(t, "en", doc.Metadata.GetString("lang"))
		require.Len(t, pages, 1)
		assert.Equal(t, "Revenue grew in both quarters.", pages[0].Text)
		assert.Equal(t, 1, pages[0].PageNum)
	})

	t.Run("Keeps the full name for extension-only filenames", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("KEY=value"), 0600))

		doc, _, err := NewDocumentFromFile(path, "tenant-a", nil)

		require.NoError(t, err)
		assert.Equal(t, ".env", doc.Title)
	})

	t.Run("Fails on a missing file", func(t *testing.T) {
		_, _, err := NewDocumentFromFile(filepath.Join(t.TempDir(), "missing.txt"), "tenant-a", nil)
		assert.Error(t, err)
	})
}

func TestStoredChunkCandidate(t *testing.T) {
	t.Run("Carries identity, location, and chunk metadata", func(t *testing.T) {
		rid := uuid.New()
		chunk := &StoredChunk{
			RID:           rid,
			DocumentID:    7,
			Content:       "child text",
			ParentContent: "parent text",
			Page:          3,
			Metadata:      Metadata{"lang": "en"},
		}

		candidate := chunk.Candidate(0.92)

		assert.Equal(t, rid.String(), candidate.ID)
		assert.InDelta(t, 0.92, candidate.Score, 1e-9)
		assert.Equal(t, "child text", candidate.Text)
		assert.Equal(t, "parent text", candidate.ParentText)
		assert.Equal(t, OriginVector, candidate.Origin)
		assert.Equal(t, rid.String(), candidate.Metadata.GetString("chunk_rid"))
		assert.Equal(t, 3, candidate.Metadata["page"])
		assert.Equal(t, "en", candidate.Metadata.GetString("lang"))
	})
}
