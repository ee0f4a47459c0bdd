package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/quarrydocs/quarry/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/quarrydocs/quarry/internal/core/domain"
	"github.com/quarrydocs/quarry/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to the
// cache and version store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.quarry/data/quarry.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".quarry", "data")
	}

	// Ensure directory exists
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "quarry.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	// Run migrations
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// CacheStore returns a CacheStore interface backed by this store.
func (s *Store) CacheStore() driven.CacheStore {
	return &cacheStore{store: s}
}

// VersionStore returns a VersionStore interface backed by this store.
func (s *Store) VersionStore() driven.VersionStore {
	return &versionStore{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	// Ensure schema_migrations table exists
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	// Get current version
	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	// Find all up migrations
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort and run migrations
	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// Extract version number (e.g., "001_initial.up.sql" -> 1)
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		// Read and execute migration
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Cache Store ====================

// cacheStore implements driven.CacheStore.
type cacheStore struct {
	store *Store
}

var _ driven.CacheStore = (*cacheStore)(nil)

// SaveEntry stores or replaces a cache entry.
func (s *cacheStore) SaveEntry(ctx context.Context, entry *domain.CacheEntry) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO embedding_cache (content_hash, embedding, model_name, content_length, created_at, last_accessed, access_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(content_hash) DO UPDATE SET
			embedding = excluded.embedding,
			model_name = excluded.model_name,
			content_length = excluded.content_length,
			last_accessed = excluded.last_accessed,
			access_count = excluded.access_count
	`, entry.ContentHash, float32SliceToBytes(entry.Embedding), entry.ModelName,
		entry.ContentLength, entry.CreatedAt.UTC(), entry.LastAccessed.UTC(), entry.AccessCount)

	if err != nil {
		return fmt.Errorf("saving cache entry: %w", err)
	}
	return nil
}

// DeleteEntries removes entries by content hash.
func (s *cacheStore) DeleteEntries(ctx context.Context, hashes []string) error {
	if len(hashes) == 0 {
		return nil
	}

	placeholders := strings.Repeat("?,", len(hashes))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, len(hashes))
	for i, hash := range hashes {
		args[i] = hash
	}

	query := fmt.Sprintf("DELETE FROM embedding_cache WHERE content_hash IN (%s)", placeholders)
	if _, err := s.store.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("deleting cache entries: %w", err)
	}
	return nil
}

// LoadEntries returns all persisted entries.
func (s *cacheStore) LoadEntries(ctx context.Context) ([]domain.CacheEntry, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT content_hash, embedding, model_name, content_length, created_at, last_accessed, access_count
		FROM embedding_cache
	`)
	if err != nil {
		return nil, fmt.Errorf("loading cache entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.CacheEntry
	for rows.Next() {
		var entry domain.CacheEntry
		var blob []byte
		if err := rows.Scan(&entry.ContentHash, &blob, &entry.ModelName,
			&entry.ContentLength, &entry.CreatedAt, &entry.LastAccessed, &entry.AccessCount); err != nil {
			return nil, fmt.Errorf("scanning cache entry: %w", err)
		}
		entry.Embedding = bytesToFloat32Slice(blob)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating cache entries: %w", err)
	}

	return entries, nil
}

// Clear removes all entries.
func (s *cacheStore) Clear(ctx context.Context) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM embedding_cache"); err != nil {
		return fmt.Errorf("clearing cache entries: %w", err)
	}
	return nil
}

// ==================== Version Store ====================

// versionStore implements driven.VersionStore.
type versionStore struct {
	store *Store
}

var _ driven.VersionStore = (*versionStore)(nil)

// SaveVersion stores or updates a document version.
func (s *versionStore) SaveVersion(ctx context.Context, version *domain.DocumentVersion) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO document_versions (document_id, version, file_path, file_hash, status, created_at, valid_from, valid_until)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(document_id, version) DO UPDATE SET
			file_path = excluded.file_path,
			file_hash = excluded.file_hash,
			status = excluded.status,
			valid_from = excluded.valid_from,
			valid_until = excluded.valid_until
	`, version.DocumentID, version.Version, version.FilePath, version.FileHash,
		string(version.Status), version.CreatedAt.UTC(), version.ValidFrom.UTC(),
		nullTime(version.ValidUntil))

	if err != nil {
		return fmt.Errorf("saving version: %w", err)
	}
	return nil
}

// GetVersion retrieves a specific version of a document.
func (s *versionStore) GetVersion(ctx context.Context, documentID string, version int) (*domain.DocumentVersion, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT document_id, version, file_path, file_hash, status, created_at, valid_from, valid_until
		FROM document_versions WHERE document_id = ? AND version = ?
	`, documentID, version)

	return scanVersionRow(row)
}

// LatestVersion returns the highest registered version number.
func (s *versionStore) LatestVersion(ctx context.Context, documentID string) (int, error) {
	var latest int
	row := s.store.db.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(version), 0) FROM document_versions WHERE document_id = ?
	`, documentID)
	if err := row.Scan(&latest); err != nil {
		return 0, fmt.Errorf("getting latest version: %w", err)
	}
	return latest, nil
}

// LatestActive returns the highest-numbered Active version.
func (s *versionStore) LatestActive(ctx context.Context, documentID string) (*domain.DocumentVersion, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT document_id, version, file_path, file_hash, status, created_at, valid_from, valid_until
		FROM document_versions
		WHERE document_id = ? AND status = ?
		ORDER BY version DESC LIMIT 1
	`, documentID, string(domain.StatusActive))

	return scanVersionRow(row)
}

// ListByDocument returns all versions of a document, oldest first.
func (s *versionStore) ListByDocument(ctx context.Context, documentID string) ([]domain.DocumentVersion, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT document_id, version, file_path, file_hash, status, created_at, valid_from, valid_until
		FROM document_versions WHERE document_id = ? ORDER BY version ASC
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("listing versions: %w", err)
	}
	defer rows.Close()

	return scanVersions(rows)
}

// ListByStatus returns all versions with the given status.
func (s *versionStore) ListByStatus(ctx context.Context, status domain.VersionStatus) ([]domain.DocumentVersion, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT document_id, version, file_path, file_hash, status, created_at, valid_from, valid_until
		FROM document_versions WHERE status = ? ORDER BY document_id ASC, version ASC
	`, string(status))
	if err != nil {
		return nil, fmt.Errorf("listing versions by status: %w", err)
	}
	defer rows.Close()

	return scanVersions(rows)
}

// AppendEvent appends an immutable obsoletion event.
func (s *versionStore) AppendEvent(ctx context.Context, event *domain.ObsoletionEvent) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO obsoletion_events (id, document_id, version, obsoleted_at, reason, obsoleted_by)
		VALUES (?, ?, ?, ?, ?, ?)
	`, event.ID, event.DocumentID, event.Version, event.ObsoletedAt.UTC(), event.Reason, event.ObsoletedBy)

	if err != nil {
		return fmt.Errorf("appending event: %w", err)
	}
	return nil
}

// ListEvents returns events for a document, oldest first.
func (s *versionStore) ListEvents(ctx context.Context, documentID string) ([]domain.ObsoletionEvent, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, document_id, version, obsoleted_at, reason, obsoleted_by
		FROM obsoletion_events WHERE document_id = ? ORDER BY obsoleted_at ASC, id ASC
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	var events []domain.ObsoletionEvent
	for rows.Next() {
		var event domain.ObsoletionEvent
		if err := rows.Scan(&event.ID, &event.DocumentID, &event.Version,
			&event.ObsoletedAt, &event.Reason, &event.ObsoletedBy); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating events: %w", err)
	}

	return events, nil
}

// ==================== Helpers ====================

// scanVersionRow scans a version from *sql.Row.
func scanVersionRow(row *sql.Row) (*domain.DocumentVersion, error) {
	var version domain.DocumentVersion
	var status string
	var validUntil sql.NullTime

	if err := row.Scan(&version.DocumentID, &version.Version, &version.FilePath,
		&version.FileHash, &status, &version.CreatedAt, &version.ValidFrom, &validUntil); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning version: %w", err)
	}

	version.Status = domain.VersionStatus(status)
	if validUntil.Valid {
		t := validUntil.Time
		version.ValidUntil = &t
	}

	return &version, nil
}

// scanVersions scans multiple version rows.
func scanVersions(rows *sql.Rows) ([]domain.DocumentVersion, error) {
	var versions []domain.DocumentVersion
	for rows.Next() {
		var version domain.DocumentVersion
		var status string
		var validUntil sql.NullTime
		if err := rows.Scan(&version.DocumentID, &version.Version, &version.FilePath,
			&version.FileHash, &status, &version.CreatedAt, &version.ValidFrom, &validUntil); err != nil {
			return nil, fmt.Errorf("scanning version: %w", err)
		}
		version.Status = domain.VersionStatus(status)
		if validUntil.Valid {
			t := validUntil.Time
			version.ValidUntil = &t
		}
		versions = append(versions, version)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating versions: %w", err)
	}
	return versions, nil
}

// nullTime converts a *time.Time to a nullable SQL value.
func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
