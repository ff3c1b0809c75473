package backup

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirk1998/secure-bank/pkg/errors"
)

func newTestManager(t *testing.T, key string) *Manager {
	t.Helper()
	m, err := NewManager(nil, t.TempDir(), key, 30, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	return m
}

func sealFixture(t *testing.T, m *Manager, content string) string {
	t.Helper()
	src := filepath.Join(m.backupDir, "snapshot.db")
	require.NoError(t, os.WriteFile(src, []byte(content), 0600))

	dst := src + encryptedSuffix
	require.NoError(t, m.encryptAndCompressFile(src, dst))
	require.NoError(t, m.createChecksumFile(dst))
	return dst
}

func TestRestore_RoundTrip(t *testing.T) {
	m := newTestManager(t, "backup-key")
	sealed := sealFixture(t, m, "SQLite format 3\x00 payload")

	require.NoError(t, m.VerifyBackup(sealed))

	out := filepath.Join(t.TempDir(), "restored.db")
	require.NoError(t, m.Restore(sealed, out))

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "SQLite format 3\x00 payload", string(got))
}

func TestRestore_WrongKey(t *testing.T) {
	m := newTestManager(t, "backup-key")
	sealed := sealFixture(t, m, "payload")

	other := newTestManager(t, "another-key")
	err := other.Restore(sealed, filepath.Join(t.TempDir(), "x.db"))
	assert.ErrorIs(t, err, errors.ErrRestoreFailed)
}

func TestVerifyBackup_Tampered(t *testing.T) {
	m := newTestManager(t, "backup-key")
	sealed := sealFixture(t, m, "payload")

	require.NoError(t, os.WriteFile(sealed, []byte("garbage"), 0600))
	assert.Error(t, m.VerifyBackup(sealed))
}

func TestCleanOldBackups(t *testing.T) {
	m := newTestManager(t, "backup-key")
	now := time.Now()
	m.now = func() time.Time { return now }

	old := filepath.Join(m.backupDir, "backup_old.db"+encryptedSuffix)
	fresh := filepath.Join(m.backupDir, "backup_new.db"+encryptedSuffix)
	require.NoError(t, os.WriteFile(old, []byte("x"), 0600))
	require.NoError(t, os.WriteFile(fresh, []byte("x"), 0600))
	require.NoError(t, os.Chtimes(old, now.AddDate(0, 0, -31), now.AddDate(0, 0, -31)))

	n, err := m.CleanOldBackups()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NoFileExists(t, old)
	assert.FileExists(t, fresh)
}
