package sql

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/workbenchapp/worknet-proposer/internal/domain"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// isUniqueViolation checks if an error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	// SQLite
	if strings.Contains(errStr, "UNIQUE constraint failed") {
		return true
	}
	// PostgreSQL
	if strings.Contains(errStr, "duplicate key value violates unique constraint") {
		return true
	}
	return false
}

// wrapUniqueError converts UNIQUE violations to domain.ErrAlreadyExists.
func wrapUniqueError(err error) error {
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

// Store implements storage.Storage on sqlite3 or postgres.
type Store struct {
	db     *sqlx.DB
	driver string
}

// New connects to the database and brings the schema up to date.
func New(driver, dsn string) (*Store, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if driver == "sqlite3" {
		// A single connection keeps ":memory:" databases shared.
		db.SetMaxOpenConns(1)
	}

	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect(driver); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db.DB, "migrations"); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db, driver: driver}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ============================================
// API Keys
// ============================================

func (s *Store) CreateAPIKey(ctx context.Context, key *domain.APIKey) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO api_keys (id, name, key_hash, key_prefix, created_at, last_used_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		key.ID, key.Name, key.KeyHash, key.KeyPrefix, key.CreatedAt, key.LastUsedAt)
	return wrapUniqueError(err)
}

func (s *Store) GetAPIKeyByHash(ctx context.Context, keyHash string) (*domain.APIKey, error) {
	var key domain.APIKey
	err := s.db.GetContext(ctx, &key,
		`SELECT id, name, key_hash, key_prefix, created_at, last_used_at FROM api_keys WHERE key_hash = $1`, keyHash)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &key, nil
}

func (s *Store) ListAPIKeys(ctx context.Context) ([]*domain.APIKey, error) {
	keys := []*domain.APIKey{}
	err := s.db.SelectContext(ctx, &keys,
		`SELECT id, name, key_hash, key_prefix, created_at, last_used_at FROM api_keys ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (s *Store) DeleteAPIKey(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM api_keys WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) UpdateAPIKeyLastUsed(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE api_keys SET last_used_at = $1 WHERE id = $2`, time.Now(), id)
	return err
}

func (s *Store) CountAPIKeys(ctx context.Context) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM api_keys`)
	return count, err
}

// ============================================
// Submissions
// ============================================

const submissionColumns = `id, operation_id, operation, kind, step, step_index, status, signature,
	message, logs, explorer_url, inspector_url, proposal_url, created_at, completed_at, submitted_by`

func (s *Store) CreateSubmission(ctx context.Context, sub *domain.Submission) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO submissions (`+submissionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		sub.ID, sub.OperationID, sub.Operation, sub.Kind, sub.Step, sub.StepIndex, sub.Status, sub.Signature,
		sub.Message, sub.Logs, sub.ExplorerURL, sub.InspectorURL, sub.ProposalURL, sub.CreatedAt, sub.CompletedAt,
		sub.SubmittedBy)
	return wrapUniqueError(err)
}

func (s *Store) UpdateSubmission(ctx context.Context, sub *domain.Submission) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE submissions SET status = $1, signature = $2, message = $3, logs = $4,
		 explorer_url = $5, inspector_url = $6, proposal_url = $7, completed_at = $8
		 WHERE id = $9`,
		sub.Status, sub.Signature, sub.Message, sub.Logs,
		sub.ExplorerURL, sub.InspectorURL, sub.ProposalURL, sub.CompletedAt, sub.ID)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) GetSubmission(ctx context.Context, id string) (*domain.Submission, error) {
	var sub domain.Submission
	err := s.db.GetContext(ctx, &sub,
		`SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (s *Store) ListSubmissions(ctx context.Context, limit, offset int) ([]*domain.Submission, error) {
	subs := []*domain.Submission{}
	err := s.db.SelectContext(ctx, &subs,
		`SELECT `+submissionColumns+` FROM submissions
		 ORDER BY created_at DESC, step_index DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	return subs, nil
}

func (s *Store) ListSubmissionsForOperation(ctx context.Context, operationID string) ([]*domain.Submission, error) {
	subs := []*domain.Submission{}
	err := s.db.SelectContext(ctx, &subs,
		`SELECT `+submissionColumns+` FROM submissions WHERE operation_id = $1 ORDER BY step_index`, operationID)
	if err != nil {
		return nil, err
	}
	return subs, nil
}
