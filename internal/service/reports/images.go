package reports

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"jalsaathi/internal/models"
)

var (
	ErrImageTooLarge   = errors.New("image too large")
	ErrUnsupportedType = errors.New("unsupported image type")
)

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// SaveImage stores an uploaded photo under the user's directory and records it.
// The content type is sniffed from the bytes, not taken from the client.
func (s *Service) SaveImage(ctx context.Context, userID int64, fileName string, r io.Reader) (*models.IssueImage, error) {
	data, err := io.ReadAll(io.LimitReader(r, s.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.maxSize {
		return nil, ErrImageTooLarge
	}
	mimeType := http.DetectContentType(data)
	ext, ok := imageExtensions[mimeType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}

	userDir := strconv.FormatInt(userID, 10)
	dir := filepath.Join(s.baseDir, userDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	name := uuid.NewString() + ext
	path := filepath.Join(dir, name)
	if err := writeFile(path, data); err != nil {
		return nil, err
	}

	img := &models.IssueImage{
		UserID:     userID,
		FileName:   sanitizeName(fileName),
		StoredPath: path,
		MimeType:   mimeType,
		Size:       int64(len(data)),
		URL:        s.urlPath + "/" + userDir + "/" + name,
		CreatedAt:  s.now(),
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO issue_images (user_id, file_name, stored_path, mime_type, size, url, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		img.UserID, img.FileName, img.StoredPath, img.MimeType, img.Size, img.URL, img.CreatedAt,
	)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("record image: %w", err)
	}
	if img.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("image id: %w", err)
	}
	return img, nil
}

func writeFile(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create image file: %w", err)
	}
	if _, err := io.Copy(f, bytes.NewReader(data)); err != nil {
		f.Close()
		os.Remove(path)
		return fmt.Errorf("write image file: %w", err)
	}
	return f.Close()
}

func sanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "upload"
	}
	return name
}
