package helpers

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"nppflow/database"
	"nppflow/domain/npp"
	"nppflow/logging"
)

// QuietLogger returns a logger that writes nowhere.
func QuietLogger() *logging.Logger {
	return logging.NewLoggerWithWriter(logging.DefaultConfig(), io.Discard)
}

// NewTestDatabase opens a migrated SQLite database in a temp dir, closed on cleanup.
func NewTestDatabase(t *testing.T) *database.Database {
	t.Helper()
	cfg := database.Config{
		Path:              filepath.Join(t.TempDir(), "nppflow.db"),
		MaxOpenConns:      4,
		MaxIdleConns:      2,
		ConnMaxLifetime:   time.Hour,
		ConnMaxIdleTime:   time.Minute,
		BusyTimeoutMs:     5000,
		EnableForeignKeys: true,
		EnableWAL:         true,
	}
	db, err := database.New(cfg, QuietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// SiteUser builds a site user with a contoso address.
func SiteUser(id int, name string) npp.User {
	return npp.User{ID: id, Title: name, Email: name + "@contoso.com"}
}
