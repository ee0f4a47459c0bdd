package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quarrydocs/quarry/internal/core/domain"
	"github.com/quarrydocs/quarry/internal/core/ports/driven"
	"github.com/quarrydocs/quarry/internal/core/ports/driving"
	"github.com/quarrydocs/quarry/internal/logger"
)

// Ensure LifecycleService implements the interface.
var _ driving.LifecycleService = (*LifecycleService)(nil)

// LifecycleService tracks document versions through registration,
// supersession, obsoletion and expiry. Every transition appends an
// immutable event; versions are never deleted.
type LifecycleService struct {
	store driven.VersionStore

	// now is injectable for tests.
	now func() time.Time
}

// NewLifecycleService creates a lifecycle service backed by the store.
func NewLifecycleService(store driven.VersionStore) *LifecycleService {
	return &LifecycleService{
		store: store,
		now:   time.Now,
	}
}

// Register records a new version of a document. The previous Active
// version, if any, is marked Obsolete with a supersession event.
func (s *LifecycleService) Register(
	ctx context.Context, documentID, filePath, fileHash string, validFrom, validUntil *time.Time,
) (*domain.DocumentVersion, error) {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return nil, fmt.Errorf("register: %w: empty document ID", domain.ErrInvalidInput)
	}

	now := s.now()
	from := now
	if validFrom != nil {
		from = *validFrom
	}
	if validUntil != nil && !validUntil.After(from) {
		return nil, fmt.Errorf("register: %w: valid_until must be after valid_from", domain.ErrInvalidInput)
	}

	latest, err := s.store.LatestVersion(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	next := latest + 1

	version := &domain.DocumentVersion{
		DocumentID: documentID,
		Version:    next,
		FilePath:   filePath,
		FileHash:   fileHash,
		Status:     domain.StatusActive,
		CreatedAt:  now,
		ValidFrom:  from,
		ValidUntil: validUntil,
	}
	if err := s.store.SaveVersion(ctx, version); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	// Supersede the previous Active version after the new one lands, so a
	// mid-flight failure leaves a retrievable document rather than none.
	if prior, err := s.priorActive(ctx, documentID, next); err != nil {
		return nil, fmt.Errorf("register: %w", err)
	} else if prior != nil {
		reason := fmt.Sprintf("superseded by version %d", next)
		if err := s.transition(ctx, prior, domain.StatusObsolete, reason, "system"); err != nil {
			return nil, fmt.Errorf("register: %w", err)
		}
	}

	logger.Info("Registered %s version %d", documentID, next)
	return version, nil
}

// priorActive returns the latest Active version older than newVersion,
// or nil when none exists.
func (s *LifecycleService) priorActive(ctx context.Context, documentID string, newVersion int) (*domain.DocumentVersion, error) {
	versions, err := s.store.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	var prior *domain.DocumentVersion
	for i := range versions {
		v := &versions[i]
		if v.Status == domain.StatusActive && v.Version < newVersion {
			if prior == nil || v.Version > prior.Version {
				prior = v
			}
		}
	}
	return prior, nil
}

// Obsolete transitions a version to Obsolete. Version 0 targets the
// latest Active version.
func (s *LifecycleService) Obsolete(ctx context.Context, documentID string, version int, reason, actor string) error {
	return s.transitionByNumber(ctx, documentID, version, domain.StatusObsolete, reason, actor)
}

// Invalidate transitions a version to Invalid. Version 0 targets the
// latest Active version.
func (s *LifecycleService) Invalidate(ctx context.Context, documentID string, version int, reason, actor string) error {
	return s.transitionByNumber(ctx, documentID, version, domain.StatusInvalid, reason, actor)
}

func (s *LifecycleService) transitionByNumber(
	ctx context.Context, documentID string, versionNumber int, status domain.VersionStatus, reason, actor string,
) error {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return fmt.Errorf("%w: empty document ID", domain.ErrInvalidInput)
	}

	var target *domain.DocumentVersion
	var err error
	if versionNumber == 0 {
		target, err = s.store.LatestActive(ctx, documentID)
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("%s: %w", documentID, domain.ErrNoActiveVersion)
		}
	} else {
		target, err = s.store.GetVersion(ctx, documentID, versionNumber)
	}
	if err != nil {
		return err
	}

	return s.transition(ctx, target, status, reason, actor)
}

// transition flips a version's status, caps its validity window at the
// transition time and appends the event record.
func (s *LifecycleService) transition(
	ctx context.Context, version *domain.DocumentVersion, status domain.VersionStatus, reason, actor string,
) error {
	now := s.now()

	version.Status = status
	if version.ValidUntil == nil || version.ValidUntil.After(now) {
		until := now
		version.ValidUntil = &until
	}
	if err := s.store.SaveVersion(ctx, version); err != nil {
		return err
	}

	event := &domain.ObsoletionEvent{
		ID:          uuid.New().String(),
		DocumentID:  version.DocumentID,
		Version:     version.Version,
		ObsoletedAt: now,
		Reason:      reason,
		ObsoletedBy: actor,
	}
	if err := s.store.AppendEvent(ctx, event); err != nil {
		return err
	}

	logger.Info("Marked %s version %d %s (%s)", version.DocumentID, version.Version, status, reason)
	return nil
}

// ActiveDocuments returns the versions active at asOf, or at the
// current time when asOf is nil.
func (s *LifecycleService) ActiveDocuments(ctx context.Context, asOf *time.Time) ([]domain.DocumentVersion, error) {
	at := s.now()
	if asOf != nil {
		at = *asOf
	}

	versions, err := s.store.ListByStatus(ctx, domain.StatusActive)
	if err != nil {
		return nil, fmt.Errorf("active documents: %w", err)
	}

	active := make([]domain.DocumentVersion, 0, len(versions))
	for _, v := range versions {
		if v.ActiveAt(at) {
			active = append(active, v)
		}
	}
	return active, nil
}

// History returns all versions of a document, oldest first.
func (s *LifecycleService) History(ctx context.Context, documentID string) ([]domain.DocumentVersion, error) {
	versions, err := s.store.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	if len(versions) == 0 {
		return nil, fmt.Errorf("history: %s: %w", documentID, domain.ErrNotFound)
	}
	return versions, nil
}

// Events returns a document's obsoletion event log, oldest first.
func (s *LifecycleService) Events(ctx context.Context, documentID string) ([]domain.ObsoletionEvent, error) {
	events, err := s.store.ListEvents(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("events: %w", err)
	}
	return events, nil
}

// CleanupExpired sweeps Active versions whose validity window has passed
// into Obsolete. Sweep continues past individual failures.
func (s *LifecycleService) CleanupExpired(ctx context.Context) (int, error) {
	now := s.now()

	versions, err := s.store.ListByStatus(ctx, domain.StatusActive)
	if err != nil {
		return 0, fmt.Errorf("cleanup: %w", err)
	}

	swept := 0
	for i := range versions {
		v := &versions[i]
		if v.ValidUntil == nil || now.Before(*v.ValidUntil) {
			continue
		}
		if err := s.transition(ctx, v, domain.StatusObsolete, "expired automatically", "system"); err != nil {
			logger.Warn("Cleanup: %s version %d: %v", v.DocumentID, v.Version, err)
			continue
		}
		swept++
	}

	if swept > 0 {
		logger.Info("Cleanup: obsoleted %d expired versions", swept)
	}
	return swept, nil
}
