package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDocumentVersion_ActiveAt(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	until := base.Add(24 * time.Hour)

	tests := []struct {
		name    string
		version DocumentVersion
		at      time.Time
		want    bool
	}{
		{
			name:    "inside open-ended window",
			version: DocumentVersion{Status: StatusActive, ValidFrom: base},
			at:      base.Add(time.Hour),
			want:    true,
		},
		{
			name:    "at valid_from boundary",
			version: DocumentVersion{Status: StatusActive, ValidFrom: base},
			at:      base,
			want:    true,
		},
		{
			name:    "before valid_from",
			version: DocumentVersion{Status: StatusActive, ValidFrom: base},
			at:      base.Add(-time.Minute),
			want:    false,
		},
		{
			name:    "at valid_until is excluded (half-open window)",
			version: DocumentVersion{Status: StatusActive, ValidFrom: base, ValidUntil: &until},
			at:      until,
			want:    false,
		},
		{
			name:    "inside bounded window",
			version: DocumentVersion{Status: StatusActive, ValidFrom: base, ValidUntil: &until},
			at:      base.Add(time.Hour),
			want:    true,
		},
		{
			name:    "obsolete version never active",
			version: DocumentVersion{Status: StatusObsolete, ValidFrom: base},
			at:      base.Add(time.Hour),
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.version.ActiveAt(tt.at))
		})
	}
}

func TestVersionStatus_IsValid(t *testing.T) {
	assert.True(t, StatusActive.IsValid())
	assert.True(t, StatusDeleted.IsValid())
	assert.False(t, VersionStatus("archived").IsValid())
}

func TestCacheEntry_SizeBytes(t *testing.T) {
	entry := CacheEntry{
		ContentHash: "abcd",
		ModelName:   "m",
		Embedding:   make([]float32, 10),
	}
	assert.Equal(t, int64(10*4+4+1), entry.SizeBytes())
}
