package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"photocore/internal/domain"
)

func TestElect_HigherTierWins(t *testing.T) {
	members := []domain.PhotoRecord{
		{ID: 1, Format: domain.FormatJPEG, Size: 1000, MTime: 100, Path: "/b.jpg"},
		{ID: 2, Format: domain.FormatCR2, Size: 500, MTime: 200, Path: "/a.cr2"},
	}
	assert.EqualValues(t, 2, Elect(members), "RAW beats JPEG despite smaller size/newer mtime")
}

func TestElect_LargerSizeWinsOnTierTie(t *testing.T) {
	members := []domain.PhotoRecord{
		{ID: 1, Format: domain.FormatJPEG, Size: 1000, MTime: 100, Path: "/a.jpg"},
		{ID: 2, Format: domain.FormatJPEG, Size: 2000, MTime: 200, Path: "/b.jpg"},
	}
	assert.EqualValues(t, 2, Elect(members), "larger size wins on tier tie")
}

func TestElect_OlderMTimeWinsOnSizeTie(t *testing.T) {
	members := []domain.PhotoRecord{
		{ID: 1, Format: domain.FormatJPEG, Size: 1000, MTime: 200, Path: "/a.jpg"},
		{ID: 2, Format: domain.FormatJPEG, Size: 1000, MTime: 100, Path: "/b.jpg"},
	}
	assert.EqualValues(t, 2, Elect(members), "older mtime wins on size tie")
}

func TestElect_SmallestPathBreaksFinalTie(t *testing.T) {
	members := []domain.PhotoRecord{
		{ID: 1, Format: domain.FormatJPEG, Size: 1000, MTime: 100, Path: "/z.jpg"},
		{ID: 2, Format: domain.FormatJPEG, Size: 1000, MTime: 100, Path: "/a.jpg"},
	}
	assert.EqualValues(t, 2, Elect(members), "smallest path breaks the final tie")
}
