package reports

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"jalsaathi/internal/models"
)

var (
	ErrInvalidReport = errors.New("invalid report")
	ErrInvalidStatus = errors.New("invalid report status")
)

// NewReport is the citizen-supplied part of a report.
type NewReport struct {
	IssueType   string   `json:"issue_type"`
	Location    string   `json:"location"`
	Description string   `json:"description"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
	ImageURL    string   `json:"image_url,omitempty"`
}

// Service stores water-issue reports and their images.
type Service struct {
	db      *sql.DB
	baseDir string
	urlPath string
	maxSize int64
	now     func() time.Time
}

// NewService stores uploads under baseDir and exposes them below urlPath.
func NewService(db *sql.DB, baseDir, urlPath string, maxSize int64) *Service {
	if urlPath == "" {
		urlPath = "/uploads"
	}
	if maxSize <= 0 {
		maxSize = 5 << 20
	}
	return &Service{
		db:      db,
		baseDir: baseDir,
		urlPath: strings.TrimRight(urlPath, "/"),
		maxSize: maxSize,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (in *NewReport) normalize() error {
	in.IssueType = strings.TrimSpace(in.IssueType)
	in.Location = strings.TrimSpace(in.Location)
	in.Description = strings.TrimSpace(in.Description)
	if in.IssueType == "" || in.Location == "" || in.Description == "" {
		return fmt.Errorf("%w: issue type, location and description are required", ErrInvalidReport)
	}
	if (in.Latitude == nil) != (in.Longitude == nil) {
		return fmt.Errorf("%w: latitude and longitude must be given together", ErrInvalidReport)
	}
	if in.Latitude != nil && (*in.Latitude < -90 || *in.Latitude > 90 || *in.Longitude < -180 || *in.Longitude > 180) {
		return fmt.Errorf("%w: coordinate out of range", ErrInvalidReport)
	}
	return nil
}

// Create files a pending report for the user.
func (s *Service) Create(ctx context.Context, userID int64, in NewReport) (*models.Report, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}
	now := s.now()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO water_issues (user_id, issue_type, location, description, latitude, longitude, image_url, status, comments, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, '[]', ?, ?)`,
		userID, in.IssueType, in.Location, in.Description, in.Latitude, in.Longitude, in.ImageURL, models.ReportPending, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert report: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("report id: %w", err)
	}
	return &models.Report{
		ID:          id,
		UserID:      userID,
		IssueType:   in.IssueType,
		Location:    in.Location,
		Description: in.Description,
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		ImageURL:    in.ImageURL,
		Status:      models.ReportPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// List returns the user's reports, newest first.
func (s *Service) List(ctx context.Context, userID int64) ([]*models.Report, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, issue_type, location, description, latitude, longitude, image_url, status, comments, created_at, updated_at
		 FROM water_issues WHERE user_id = ? ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var out []*models.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Get returns one of the user's reports or sql.ErrNoRows.
func (s *Service) Get(ctx context.Context, userID, reportID int64) (*models.Report, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, issue_type, location, description, latitude, longitude, image_url, status, comments, created_at, updated_at
		 FROM water_issues WHERE id = ? AND user_id = ?`, reportID, userID)
	return scanReport(row)
}

// UpdateStatus moves a report to status and appends comment when non-empty.
func (s *Service) UpdateStatus(ctx context.Context, userID, reportID int64, status models.ReportStatus, comment string) (*models.Report, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	report, err := s.Get(ctx, userID, reportID)
	if err != nil {
		return nil, err
	}
	if c := strings.TrimSpace(comment); c != "" {
		report.Comments = append(report.Comments, c)
	}
	comments, err := json.Marshal(commentsOrEmpty(report.Comments))
	if err != nil {
		return nil, fmt.Errorf("encode comments: %w", err)
	}
	now := s.now()
	if _, err := s.db.ExecContext(ctx,
		`UPDATE water_issues SET status = ?, comments = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		status, string(comments), now, reportID, userID,
	); err != nil {
		return nil, fmt.Errorf("update report status: %w", err)
	}
	report.Status = status
	report.UpdatedAt = now
	return report, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReport(row rowScanner) (*models.Report, error) {
	var (
		r        models.Report
		lat, lon sql.NullFloat64
		status   string
		comments string
	)
	if err := row.Scan(&r.ID, &r.UserID, &r.IssueType, &r.Location, &r.Description, &lat, &lon,
		&r.ImageURL, &status, &comments, &r.CreatedAt, &r.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan report: %w", err)
	}
	if lat.Valid && lon.Valid {
		r.Latitude, r.Longitude = &lat.Float64, &lon.Float64
	}
	r.Status = models.ReportStatus(status)
	if comments != "" {
		if err := json.Unmarshal([]byte(comments), &r.Comments); err != nil {
			return nil, fmt.Errorf("decode comments: %w", err)
		}
	}
	return &r, nil
}

func commentsOrEmpty(c []string) []string {
	if c == nil {
		return []string{}
	}
	return c
}
