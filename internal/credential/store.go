// Package credential provides durable access to per-identity secret
// records. The store knows nothing about rate limits or HTTP; it only
// loads, saves, and lists records, and classifies storage conditions
// (missing record, read-only medium, corrupt row) into sentinel errors
// callers can act on.
package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/pysugar/connector-gate/internal/db/models"
	"gorm.io/gorm"
)

var (
	// ErrNotFound means no record exists for the provider/identity pair.
	// It is a clean outcome, not a fault: callers turn it into setup
	// guidance for the user.
	ErrNotFound = errors.New("credential not found")

	// ErrWriteDenied means the storage medium has no write access.
	// A record already read stays usable for the rest of the process;
	// callers surface a warning instead of failing.
	ErrWriteDenied = errors.New("credential store is not writable")

	// ErrCorruptRecord means a stored record cannot be parsed. Kept
	// distinct from ErrNotFound so corruption is never mistaken for
	// "not configured".
	ErrCorruptRecord = errors.New("credential record is corrupt")
)

// Store is durable key-value access to SecretRecords, tolerant of
// read-only storage. Writes are last-write-wins with no locking; the
// single-writer assumption is documented, not enforced.
type Store interface {
	Load(ctx context.Context, provider, identityKey string) (*models.SecretRecord, error)
	Save(ctx context.Context, rec *models.SecretRecord) error
	List(ctx context.Context, provider string) ([]string, error)
}

// GormStore persists records in SQLite via gorm.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an initialized database handle.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Load returns the record for one provider/identity pair. A missing row
// or a store that was never initialized both map to ErrNotFound.
func (s *GormStore) Load(ctx context.Context, provider, identityKey string) (*models.SecretRecord, error) {
	var rec models.SecretRecord
	err := s.db.WithContext(ctx).
		Where("provider = ? AND identity_key = ?", provider, identityKey).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) || isMissingTableError(err) {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, provider, identityKey)
	}
	if err != nil {
		return nil, fmt.Errorf("loading credential %s/%s: %w", provider, identityKey, err)
	}
	if err := validateRecord(&rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Save upserts the record keyed by (provider, identity_key). Writes on
// read-only media come back as ErrWriteDenied rather than raising.
func (s *GormStore) Save(ctx context.Context, rec *models.SecretRecord) error {
	if rec.Provider == "" || rec.IdentityKey == "" {
		return fmt.Errorf("saving credential: provider and identity key are required")
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	var existing models.SecretRecord
	err := s.db.WithContext(ctx).
		Where("provider = ? AND identity_key = ?", rec.Provider, rec.IdentityKey).
		First(&existing).Error
	if err == nil {
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
		if err := s.db.WithContext(ctx).Save(rec).Error; err != nil {
			return classifyWriteError(err)
		}
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) && !isMissingTableError(err) {
		return fmt.Errorf("saving credential %s/%s: %w", rec.Provider, rec.IdentityKey, err)
	}

	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return classifyWriteError(err)
	}
	return nil
}

// List returns the identity keys configured for a provider. The slice is
// finite and materialized up front so callers can decide ambiguity
// synchronously.
func (s *GormStore) List(ctx context.Context, provider string) ([]string, error) {
	var keys []string
	err := s.db.WithContext(ctx).
		Model(&models.SecretRecord{}).
		Where("provider = ?", provider).
		Order("identity_key").
		Pluck("identity_key", &keys).Error
	if isMissingTableError(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing credentials for %s: %w", provider, err)
	}
	return keys, nil
}

// Capabilities decodes the capability map of a record. Absent entries are
// decided by the provider's defaults at the call site. An unparseable
// value is corruption, not an empty map.
func Capabilities(rec *models.SecretRecord) (map[string]bool, error) {
	if rec.Capabilities == "" {
		return nil, nil
	}
	caps := make(map[string]bool)
	if err := json.Unmarshal([]byte(rec.Capabilities), &caps); err != nil {
		return nil, fmt.Errorf("%w: %s/%s: capabilities: %v", ErrCorruptRecord, rec.Provider, rec.IdentityKey, err)
	}
	return caps, nil
}

func validateRecord(rec *models.SecretRecord) error {
	if rec.AccessToken == "" && rec.RefreshToken == "" {
		return fmt.Errorf("%w: %s/%s: no secret material", ErrCorruptRecord, rec.Provider, rec.IdentityKey)
	}
	if _, err := Capabilities(rec); err != nil {
		return err
	}
	if rec.Metadata != "" && !json.Valid([]byte(rec.Metadata)) {
		return fmt.Errorf("%w: %s/%s: metadata is not valid JSON", ErrCorruptRecord, rec.Provider, rec.IdentityKey)
	}
	return nil
}

func classifyWriteError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, os.ErrPermission) {
		return fmt.Errorf("%w: %v", ErrWriteDenied, err)
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"readonly database",
		"read-only",
		"permission denied",
		"attempt to write a readonly",
	} {
		if strings.Contains(msg, marker) {
			return fmt.Errorf("%w: %v", ErrWriteDenied, err)
		}
	}
	return err
}

func isMissingTableError(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "no such table")
}
