package postgres

import (
	"errors"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockMigrate struct {
	upErr      error
	downErr    error
	version    uint
	dirty      bool
	versionErr error
	closed     bool
}

func (m *mockMigrate) Up() error   { return m.upErr }
func (m *mockMigrate) Down() error { return m.downErr }
func (m *mockMigrate) Version() (uint, bool, error) {
	return m.version, m.dirty, m.versionErr
}

func (m *mockMigrate) Close() (error, error) {
	m.closed = true
	return nil, nil
}

func TestMigrateURL(t *testing.T) {
	assert.Equal(t, "pgx5://user@localhost:5432/auth", migrateURL("postgres://user@localhost:5432/auth"))
	assert.Equal(t, "pgx5://localhost/auth", migrateURL("postgresql://localhost/auth"))
	assert.Equal(t, "pgx5://localhost/auth", migrateURL("pgx5://localhost/auth"))
}

func TestNewMigrator_InvalidURL(t *testing.T) {
	_, err := NewMigrator("badscheme://localhost:5432/testdb")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "initialize migrator")
}

func TestMigrator_Up(t *testing.T) {
	assert.NoError(t, (&Migrator{m: &mockMigrate{}}).Up())
	assert.NoError(t, (&Migrator{m: &mockMigrate{upErr: migrate.ErrNoChange}}).Up())

	err := (&Migrator{m: &mockMigrate{upErr: errors.New("syntax error")}}).Up()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "apply migrations")
}

func TestMigrator_Down(t *testing.T) {
	assert.NoError(t, (&Migrator{m: &mockMigrate{downErr: migrate.ErrNoChange}}).Down())
	assert.Error(t, (&Migrator{m: &mockMigrate{downErr: errors.New("locked")}}).Down())
}

func TestMigrator_Version(t *testing.T) {
	v, dirty, err := (&Migrator{m: &mockMigrate{versionErr: migrate.ErrNilVersion}}).Version()
	require.NoError(t, err)
	assert.Zero(t, v)
	assert.False(t, dirty)

	v, dirty, err = (&Migrator{m: &mockMigrate{version: 1, dirty: true}}).Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)
	assert.True(t, dirty)
}

func TestMigrator_Close(t *testing.T) {
	mm := &mockMigrate{}
	require.NoError(t, (&Migrator{m: mm}).Close())
	assert.True(t, mm.closed)
}

func TestEmbeddedMigrations(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "000001_create_users.up.sql")
	assert.Contains(t, names, "000001_create_users.down.sql")

	up, err := migrationsFS.ReadFile("migrations/000001_create_users.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(up), "CONSTRAINT users_email_key UNIQUE (email)")
}
