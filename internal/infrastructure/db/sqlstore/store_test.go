package sqlstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/securetransact/escrow-api/internal/core/domain"
	"github.com/securetransact/escrow-api/internal/core/ports"
	"github.com/securetransact/escrow-api/internal/infrastructure/db/storetest"
)

func openSQLite(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), Config{Driver: DriverSQLite, DSN: filepath.Join(t.TempDir(), "escrow.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func TestSQLiteStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) ports.Store { return openSQLite(t) })
}

func TestSQLiteStore_InMemory(t *testing.T) {
	s, err := Open(context.Background(), Config{Driver: DriverSQLite})
	require.NoError(t, err)
	defer s.Close(context.Background())

	assert.Equal(t, DriverSQLite, s.Driver())
	assert.NoError(t, s.Ping(context.Background()))
}

func TestOpen_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "escrow.db")
	for i := 0; i < 2; i++ {
		s, err := Open(context.Background(), Config{Driver: DriverSQLite, DSN: path})
		require.NoError(t, err, "open #%d", i+1)
		require.NoError(t, s.Close(context.Background()))
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "oracle"})
	assert.Error(t, err)
}

func TestOpen_CreatesGooseVersionTable(t *testing.T) {
	s := openSQLite(t)
	var n int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='goose_db_version'`).Scan(&n))
	assert.Equal(t, 1, n)
}

func TestSQLiteStore_UnknownPartyIsRejected(t *testing.T) {
	s := openSQLite(t)
	err := s.Transactions().Create(context.Background(), &domain.Transaction{
		Title:       "Ghost deal",
		Status:      domain.StatusPendingAcceptance,
		BuyerID:     "no-such-user",
		SellerID:    domain.PlaceholderSellerID,
		CreatedDate: domain.Date{Year: 2025, Month: 3, Day: 14},
		LastUpdate:  domain.Date{Year: 2025, Month: 3, Day: 14},
	})
	assert.Equal(t, domain.KindValidationFailed, domain.KindOf(err))
}

// TestPostgresStore runs against a live server when POSTGRES_TEST_URL is set.
func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("POSTGRES_TEST_URL")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_URL not set")
	}
	storetest.Run(t, func(t *testing.T) ports.Store {
		s, err := Open(context.Background(), Config{Driver: DriverPostgres, DSN: dsn})
		require.NoError(t, err)
		_, err = s.DB().Exec(`TRUNCATE messages, transactions, users`)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close(context.Background()) })
		return s
	})
}
