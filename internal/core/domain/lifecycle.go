package domain

import "time"

// VersionStatus is the lifecycle state of a document version.
type VersionStatus string

// Available version statuses.
const (
	// StatusActive marks the version currently served to retrieval.
	StatusActive VersionStatus = "active"

	// StatusObsolete marks a version superseded or expired.
	StatusObsolete VersionStatus = "obsolete"

	// StatusInvalid marks a version withdrawn because its content was wrong.
	StatusInvalid VersionStatus = "invalid"

	// StatusDeleted marks a version whose source file was removed.
	StatusDeleted VersionStatus = "deleted"
)

// IsValid returns true if the version status is recognised.
func (s VersionStatus) IsValid() bool {
	switch s {
	case StatusActive, StatusObsolete, StatusInvalid, StatusDeleted:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (s VersionStatus) String() string {
	return string(s)
}

// DocumentVersion tracks one revision of an ingested document.
// Versions for a document are strictly increasing integers starting at 1.
// Versions are never physically deleted; transitions append ObsoletionEvents.
type DocumentVersion struct {
	// DocumentID identifies the logical document.
	DocumentID string `json:"document_id"`

	// Version is the revision number, starting at 1.
	Version int `json:"version"`

	// FilePath is the source file location at registration time.
	FilePath string `json:"file_path"`

	// FileHash is the content hash of the source file.
	FileHash string `json:"file_hash"`

	// Status is the current lifecycle state.
	Status VersionStatus `json:"status"`

	// CreatedAt is when the version was registered.
	CreatedAt time.Time `json:"created_at"`

	// ValidFrom is the start of the validity window.
	ValidFrom time.Time `json:"valid_from"`

	// ValidUntil ends the validity window; nil means open-ended.
	// Once set it is never moved earlier.
	ValidUntil *time.Time `json:"valid_until,omitempty"`
}

// ActiveAt reports whether the version's validity window contains t and its
// status is Active. The window is half-open: [ValidFrom, ValidUntil).
func (v *DocumentVersion) ActiveAt(t time.Time) bool {
	if v.Status != StatusActive {
		return false
	}
	if t.Before(v.ValidFrom) {
		return false
	}
	if v.ValidUntil != nil && !t.Before(*v.ValidUntil) {
		return false
	}
	return true
}

// ObsoletionEvent is an immutable record of a version transition.
// The event log is append-only; history is never rewritten.
type ObsoletionEvent struct {
	// ID is the unique event identifier.
	ID string `json:"id"`

	// DocumentID identifies the affected document.
	DocumentID string `json:"document_id"`

	// Version is the affected revision.
	Version int `json:"version"`

	// ObsoletedAt is when the transition happened.
	ObsoletedAt time.Time `json:"obsoleted_at"`

	// Reason is the caller-supplied or automatic transition reason.
	Reason string `json:"reason"`

	// ObsoletedBy identifies the actor that requested the transition.
	ObsoletedBy string `json:"obsoleted_by"`
}
