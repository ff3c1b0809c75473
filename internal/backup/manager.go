// Package backup writes encrypted, compressed snapshots of the database
// and prunes them by age.
package backup

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/amirk1998/secure-bank/internal/database"
	"github.com/amirk1998/secure-bank/internal/metrics"
	"github.com/amirk1998/secure-bank/pkg/errors"
)

const encryptedSuffix = ".enc.gz"

type Manager struct {
	db            database.DBTX
	backupDir     string
	encryptionKey []byte
	retentionDays int
	logger        *slog.Logger
	now           func() time.Time
}

// NewManager creates a new backup manager
func NewManager(db database.DBTX, backupDir string, encryptionKey string, retentionDays int, logger *slog.Logger) (*Manager, error) {
	keyHash := sha256.Sum256([]byte(encryptionKey))

	if err := os.MkdirAll(backupDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	return &Manager{
		db:            db,
		backupDir:     backupDir,
		encryptionKey: keyHash[:],
		retentionDays: retentionDays,
		logger:        logger,
		now:           time.Now,
	}, nil
}

// CreateBackup creates an encrypted backup
func (m *Manager) CreateBackup(ctx context.Context) (string, error) {
	timestamp := m.now().UTC().Format("20060102_150405")
	backupPath := filepath.Join(m.backupDir, fmt.Sprintf("backup_%s.db", timestamp))

	if strings.ContainsRune(backupPath, '\'') {
		return "", fmt.Errorf("%w: backup path contains a quote", errors.ErrBackupFailed)
	}

	if _, err := m.db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", backupPath)); err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrBackupFailed, err)
	}

	encryptedPath := backupPath + encryptedSuffix
	err := m.encryptAndCompressFile(backupPath, encryptedPath)
	os.Remove(backupPath)
	if err != nil {
		return "", fmt.Errorf("%w: failed to encrypt backup: %v", errors.ErrBackupFailed, err)
	}

	if err := m.createChecksumFile(encryptedPath); err != nil {
		return "", fmt.Errorf("%w: failed to create checksum: %v", errors.ErrBackupFailed, err)
	}

	m.logger.Info("backup created", "path", encryptedPath)
	return encryptedPath, nil
}

// encryptAndCompressFile seals the file with AES-GCM and gzips the result.
func (m *Manager) encryptAndCompressFile(srcPath, dstPath string) error {
	plaintext, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("failed to read source file: %w", err)
	}

	gcm, err := m.gcm()
	if err != nil {
		return err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nonce, nonce, plaintext, nil)

	dstFile, err := os.OpenFile(dstPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer dstFile.Close()

	gzWriter := gzip.NewWriter(dstFile)
	if _, err := gzWriter.Write(ciphertext); err != nil {
		gzWriter.Close()
		return fmt.Errorf("failed to write compressed data: %w", err)
	}

	return gzWriter.Close()
}

func (m *Manager) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(m.encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// createChecksumFile creates SHA-256 checksum file
func (m *Manager) createChecksumFile(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}

	hash := sha256.Sum256(data)
	return os.WriteFile(filePath+".sha256", []byte(fmt.Sprintf("%x", hash)), 0600)
}

// VerifyBackup verifies backup integrity
func (m *Manager) VerifyBackup(backupPath string) error {
	storedChecksum, err := os.ReadFile(backupPath + ".sha256")
	if err != nil {
		return fmt.Errorf("failed to read checksum file: %w", err)
	}

	data, err := os.ReadFile(backupPath)
	if err != nil {
		return fmt.Errorf("failed to read backup file: %w", err)
	}

	hash := sha256.Sum256(data)
	if fmt.Sprintf("%x", hash) != strings.TrimSpace(string(storedChecksum)) {
		return fmt.Errorf("checksum mismatch: backup file may be corrupted")
	}

	return nil
}

// Restore verifies backupPath and writes the decrypted database to dstPath.
func (m *Manager) Restore(backupPath, dstPath string) error {
	if err := m.VerifyBackup(backupPath); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrRestoreFailed, err)
	}

	compressed, err := os.ReadFile(backupPath)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrRestoreFailed, err)
	}

	gzReader, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrRestoreFailed, err)
	}
	defer gzReader.Close()

	sealed, err := io.ReadAll(gzReader)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrRestoreFailed, err)
	}

	gcm, err := m.gcm()
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrRestoreFailed, err)
	}
	if len(sealed) < gcm.NonceSize() {
		return fmt.Errorf("%w: backup too short", errors.ErrRestoreFailed)
	}

	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", errors.ErrRestoreFailed, errors.ErrDecryptionFailed)
	}

	if err := os.WriteFile(dstPath, plaintext, 0600); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrRestoreFailed, err)
	}
	return nil
}

// CleanOldBackups removes backups older than the retention period.
func (m *Manager) CleanOldBackups() (int, error) {
	cutoffTime := m.now().AddDate(0, 0, -m.retentionDays)

	entries, err := os.ReadDir(m.backupDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read backup directory: %w", err)
	}

	deletedCount := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoffTime) {
			filePath := filepath.Join(m.backupDir, entry.Name())
			if err := os.Remove(filePath); err != nil {
				m.logger.Warn("failed to delete old backup", "path", filePath, "error", err)
				continue
			}
			deletedCount++
		}
	}

	if deletedCount > 0 {
		m.logger.Info("cleaned old backup files", "count", deletedCount)
	}

	return deletedCount, nil
}

// Run is one scheduled cycle: snapshot, then prune.
func (m *Manager) Run(ctx context.Context) error {
	path, err := m.CreateBackup(ctx)
	if err != nil {
		metrics.BackupsTotal.WithLabelValues("failure").Inc()
		m.logger.Error("scheduled backup failed", "error", err)
		return err
	}
	metrics.BackupsTotal.WithLabelValues("success").Inc()

	if err := m.VerifyBackup(path); err != nil {
		m.logger.Error("backup verification failed", "path", path, "error", err)
	}

	if _, err := m.CleanOldBackups(); err != nil {
		m.logger.Warn("backup cleanup failed", "error", err)
	}
	return nil
}
