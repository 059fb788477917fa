// Package database keeps point-in-time copies of the SQLite store.
package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/facebookgo/clock"
	"github.com/rs/zerolog"
)

const (
	backupPrefix = "backup_"
	backupSuffix = ".db"
)

// Snapshotter writes a consistent copy of its database to dest.
type Snapshotter interface {
	BackupTo(ctx context.Context, dest string) error
}

type BackupConfig struct {
	Enabled       bool
	Interval      time.Duration
	StoragePath   string
	RetentionDays int
}

type BackupService struct {
	source Snapshotter
	config BackupConfig
	clock  clock.Clock
	logger *zerolog.Logger
}

func NewBackupService(source Snapshotter, cfg BackupConfig, logger *zerolog.Logger) *BackupService {
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	l := logger.With().Str("component", "backup").Logger()
	return &BackupService{
		source: source,
		config: cfg,
		clock:  clock.New(),
		logger: &l,
	}
}

// WithClock replaces the clock used for scheduling, naming and retention.
func (s *BackupService) WithClock(c clock.Clock) *BackupService {
	s.clock = c
	return s
}

// Start runs a backup immediately and then every interval until ctx is done.
func (s *BackupService) Start(ctx context.Context) {
	if !s.config.Enabled {
		s.logger.Info().Msg("Backup service is disabled")
		return
	}

	s.logger.Info().Dur("interval", s.config.Interval).Msg("Backup service started")

	ticker := s.clock.Ticker(s.config.Interval)
	defer ticker.Stop()

	if _, err := s.PerformBackup(ctx); err != nil {
		s.logger.Error().Err(err).Msg("Initial backup failed")
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.PerformBackup(ctx); err != nil {
				s.logger.Error().Err(err).Msg("Scheduled backup failed")
			}
			s.CleanupOldBackups()
		}
	}
}

// PerformBackup writes one snapshot and returns its path.
func (s *BackupService) PerformBackup(ctx context.Context) (string, error) {
	if err := os.MkdirAll(s.config.StoragePath, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	timestamp := s.clock.Now().UTC().Format("20060102_150405")
	backupPath := filepath.Join(s.config.StoragePath, backupPrefix+timestamp+backupSuffix)

	s.logger.Info().Str("path", backupPath).Msg("Performing database backup")

	if err := s.source.BackupTo(ctx, backupPath); err != nil {
		return "", fmt.Errorf("backup to %s: %w", backupPath, err)
	}

	s.logger.Info().Str("path", backupPath).Msg("Backup completed successfully")
	return backupPath, nil
}

// CleanupOldBackups removes backup files older than the retention period.
// Other files in the directory are left alone.
func (s *BackupService) CleanupOldBackups() int {
	if s.config.RetentionDays <= 0 {
		return 0
	}

	files, err := os.ReadDir(s.config.StoragePath)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read backup directory for cleanup")
		return 0
	}

	cutoff := s.clock.Now().AddDate(0, 0, -s.config.RetentionDays)
	removed := 0

	for _, file := range files {
		name := file.Name()
		if file.IsDir() || !strings.HasPrefix(name, backupPrefix) || !strings.HasSuffix(name, backupSuffix) {
			continue
		}

		info, err := file.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoff) {
			s.logger.Info().Str("file", name).Msg("Deleting old backup")
			if err := os.Remove(filepath.Join(s.config.StoragePath, name)); err != nil {
				s.logger.Warn().Err(err).Str("file", name).Msg("Failed to delete old backup")
				continue
			}
			removed++
		}
	}
	return removed
}
