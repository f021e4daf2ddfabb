package languagecatalog

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"gitlab.com/coderunner.net/internal/core/ports/primary"
	"gitlab.com/coderunner.net/internal/domain"
)

// Repository keeps language configurations in the language_config table so
// a fleet of runners can share one catalog.
type Repository struct {
	db     *sqlx.DB
	logger primary.Logger
}

type languageRow struct {
	ID                    string         `db:"id"`
	Name                  string         `db:"name"`
	Extension             string         `db:"extension"`
	Command               pq.StringArray `db:"command"`
	DefaultTimeoutMs      int64          `db:"default_timeout_ms"`
	Image                 string         `db:"image"`
	UnboundedAddressSpace bool           `db:"unbounded_address_space"`
	Active                bool           `db:"active"`
	CreatedAt             time.Time      `db:"created_at"`
	UpdatedAt             time.Time      `db:"updated_at"`
}

func (r languageRow) toDomain() domain.LanguageConfig {
	return domain.LanguageConfig{
		ID:                    r.ID,
		Name:                  r.Name,
		Extension:             r.Extension,
		Command:               []string(r.Command),
		DefaultTimeout:        time.Duration(r.DefaultTimeoutMs) * time.Millisecond,
		Image:                 r.Image,
		UnboundedAddressSpace: r.UnboundedAddressSpace,
	}
}

func NewRepository(db *sqlx.DB, logger primary.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// ListActive returns the active languages ordered by id.
func (r *Repository) ListActive(ctx context.Context) ([]domain.LanguageConfig, error) {
	query := `
		SELECT
			id, name, extension, command, default_timeout_ms,
			image, unbounded_address_space, active, created_at, updated_at
		FROM language_config
		WHERE active = true
		ORDER BY id
	`

	var rows []languageRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		r.logger.Error("Failed to list languages", "error", err)
		return nil, fmt.Errorf("failed to list languages: %w", err)
	}

	configs := make([]domain.LanguageConfig, 0, len(rows))
	for _, row := range rows {
		configs = append(configs, row.toDomain())
	}
	return configs, nil
}

// Save inserts or replaces a language and marks it active.
func (r *Repository) Save(ctx context.Context, cfg domain.LanguageConfig) error {
	if cfg.ID == "" {
		return fmt.Errorf("language id cannot be empty")
	}
	if len(cfg.Command) == 0 {
		return fmt.Errorf("language %q has no command", cfg.ID)
	}

	query := `
		INSERT INTO language_config (
			id, name, extension, command, default_timeout_ms,
			image, unbounded_address_space, active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, true, $8, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			extension = EXCLUDED.extension,
			command = EXCLUDED.command,
			default_timeout_ms = EXCLUDED.default_timeout_ms,
			image = EXCLUDED.image,
			unbounded_address_space = EXCLUDED.unbounded_address_space,
			active = true,
			updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.ExecContext(ctx, query,
		cfg.ID,
		cfg.Name,
		cfg.Extension,
		pq.Array(cfg.Command),
		cfg.DefaultTimeout.Milliseconds(),
		cfg.Image,
		cfg.UnboundedAddressSpace,
		time.Now().UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to save language", "id", cfg.ID, "error", err)
		return fmt.Errorf("failed to save language: %w", err)
	}

	r.logger.Info("Saved language", "id", cfg.ID)
	return nil
}

// SetActive hides or restores a language without deleting it.
func (r *Repository) SetActive(ctx context.Context, id string, active bool) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE language_config SET active = $2, updated_at = $3 WHERE id = $1`,
		id, active, time.Now().UTC())
	if err != nil {
		r.logger.Error("Failed to update language", "id", id, "error", err)
		return fmt.Errorf("failed to update language: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("language %q not found", id)
	}
	return nil
}

// EnsureSchema creates language_config and seeds it with defaults when empty.
func (r *Repository) EnsureSchema(ctx context.Context, defaults []domain.LanguageConfig) error {
	query := `
		CREATE TABLE IF NOT EXISTS language_config (
			id VARCHAR(50) PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			extension VARCHAR(16) NOT NULL,
			command TEXT[] NOT NULL,
			default_timeout_ms BIGINT NOT NULL,
			image TEXT NOT NULL DEFAULT '',
			unbounded_address_space BOOLEAN NOT NULL DEFAULT false,
			active BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMP WITH TIME ZONE NOT NULL,
			updated_at TIMESTAMP WITH TIME ZONE NOT NULL
		)
	`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		r.logger.Error("Failed to create language_config table", "error", err)
		return fmt.Errorf("failed to create language_config table: %w", err)
	}

	count := 0
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM language_config"); err != nil {
		return fmt.Errorf("failed to count languages: %w", err)
	}
	if count > 0 {
		return nil
	}
	for _, cfg := range defaults {
		if err := r.Save(ctx, cfg); err != nil {
			return err
		}
	}
	return nil
}
