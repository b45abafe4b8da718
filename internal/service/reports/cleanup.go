package reports

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"jalsaathi/internal/logging"
)

const (
	DefaultOrphanImageTTL       = 24 * time.Hour
	DefaultImageCleanupInterval = time.Hour
)

// RunImageCleaner removes uploads no report references once they are older
// than ttl. It blocks until ctx is done.
func (s *Service) RunImageCleaner(ctx context.Context, interval, ttl time.Duration) error {
	if interval <= 0 {
		interval = DefaultImageCleanupInterval
	}
	if ttl <= 0 {
		ttl = DefaultOrphanImageTTL
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := s.CleanupOrphanImages(ctx, ttl)
			if err != nil {
				logging.L().WithError(err).Warn("cleanup orphan images failed")
				continue
			}
			if n > 0 {
				logging.L().WithField("removed", n).Info("removed orphan issue images")
			}
		}
	}
}

// CleanupOrphanImages deletes unreferenced images created before now-ttl and
// reports how many were removed.
func (s *Service) CleanupOrphanImages(ctx context.Context, ttl time.Duration) (int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT i.id, i.stored_path FROM issue_images i
		WHERE i.created_at <= ?
		  AND NOT EXISTS (SELECT 1 FROM water_issues w WHERE w.image_url = i.url)`,
		s.now().Add(-ttl))
	if err != nil {
		return 0, err
	}
	type imageRow struct {
		id   int64
		path string
	}
	var images []imageRow
	for rows.Next() {
		var ir imageRow
		if err := rows.Scan(&ir.id, &ir.path); err != nil {
			rows.Close()
			return 0, err
		}
		images = append(images, ir)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	removed := 0
	for _, img := range images {
		if err := os.Remove(img.path); err != nil && !os.IsNotExist(err) {
			logging.L().WithError(err).WithField("path", img.path).Warn("remove orphan image failed")
			continue
		}
		if _, err := s.db.ExecContext(ctx, `DELETE FROM issue_images WHERE id = ?`, img.id); err != nil {
			logging.L().WithError(err).WithField("image", img.id).Warn("delete orphan image record failed")
			continue
		}
		removed++
		// prune the user directory once empty
		_ = os.Remove(filepath.Dir(img.path))
	}
	return removed, nil
}
