package config

import (
	"context"
	"os"
	"time"

	"grandresort/internal/models"

	"github.com/facebookgo/clock"
	"github.com/rs/zerolog"
)

const DefaultCatalogWatchInterval = 30 * time.Second

// WatchCatalog polls the catalog file and calls onUpdate with the rooms each
// time its modification time moves forward. Files that fail to load or
// validate are skipped until the next change. The current file is not
// reported; callers load it themselves at startup.
func WatchCatalog(ctx context.Context, path string, interval time.Duration, clk clock.Clock, logger *zerolog.Logger, onUpdate func([]models.Room)) error {
	if interval <= 0 {
		interval = DefaultCatalogWatchInterval
	}
	if clk == nil {
		clk = clock.New()
	}

	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	lastMod := info.ModTime()

	ticker := clk.Ticker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				info, err := os.Stat(path)
				if err != nil {
					continue // transient errors
				}
				if !info.ModTime().After(lastMod) {
					continue
				}
				rooms, err := LoadCatalog(path)
				if err != nil {
					logger.Warn().Err(err).Str("path", path).Msg("catalog reload skipped")
					continue
				}
				lastMod = info.ModTime()
				logger.Info().Str("path", path).Int("rooms", len(rooms)).Msg("catalog reloaded")
				if onUpdate != nil {
					onUpdate(rooms)
				}
			}
		}
	}()

	return nil
}
