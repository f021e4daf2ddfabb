package languagecatalog

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/coderunner.net/internal/adapter/logging"
	"gitlab.com/coderunner.net/internal/adapter/postgres/jobrepository"
	"gitlab.com/coderunner.net/internal/core/services/language"
	"gitlab.com/coderunner.net/internal/domain"
)

func newRepository(t *testing.T) *Repository {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := jobrepository.Connect(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.ExecContext(ctx, "DROP TABLE IF EXISTS language_config")
	require.NoError(t, err)
	repo := NewRepository(db, logging.NewNopLogger())
	require.NoError(t, repo.EnsureSchema(ctx, language.Defaults()))
	return repo
}

func TestSeedAndList(t *testing.T) {
	repo := newRepository(t)
	ctx := context.Background()

	langs, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, langs, len(language.Defaults()))

	registry, err := language.NewRegistry(langs)
	require.NoError(t, err)
	py, err := registry.Resolve("python")
	require.NoError(t, err)
	assert.Equal(t, ".py", py.Extension)
	assert.NotEmpty(t, py.Command)

	// seeding is skipped once the table has rows
	require.NoError(t, repo.EnsureSchema(ctx, []domain.LanguageConfig{{ID: "ruby", Extension: ".rb", Command: []string{"ruby"}, DefaultTimeout: time.Second}}))
	langs, err = repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, langs, len(language.Defaults()))
}

func TestSaveAndDeactivate(t *testing.T) {
	repo := newRepository(t)
	ctx := context.Background()

	ruby := domain.LanguageConfig{ID: "ruby", Name: "Ruby", Extension: ".rb", Command: []string{"ruby", "{file}"}, DefaultTimeout: 15 * time.Second}
	require.NoError(t, repo.Save(ctx, ruby))
	require.NoError(t, repo.SetActive(ctx, "shell", false))

	langs, err := repo.ListActive(ctx)
	require.NoError(t, err)
	ids := map[string]domain.LanguageConfig{}
	for _, l := range langs {
		ids[l.ID] = l
	}
	assert.NotContains(t, ids, "shell")
	assert.Equal(t, ruby, ids["ruby"])

	assert.Error(t, repo.SetActive(ctx, "cobol", true))
	assert.Error(t, repo.Save(ctx, domain.LanguageConfig{ID: "empty"}))
}
