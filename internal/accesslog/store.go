package accesslog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zulandar/marquee/internal/models"
	"gorm.io/gorm"
)

// DefaultTimelineLimit matches the admin timeline page size.
const DefaultTimelineLimit = 500

// ErrNotFound is returned when an exit targets an unknown session id.
var ErrNotFound = errors.New("accesslog: not found")

// Entry describes a session being opened.
type Entry struct {
	ActorID   string
	SessionID string
	UserAgent string
	IPAddress string
	EntryTime time.Time
}

// Store persists access sessions with gorm.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// NewStore wraps a gorm connection.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Open inserts a new session and returns its id. EntryTime defaults to now.
func (s *Store) Open(ctx context.Context, e Entry) (string, error) {
	if strings.TrimSpace(e.ActorID) == "" {
		return "", fmt.Errorf("accesslog: actor_id is required")
	}
	if strings.TrimSpace(e.SessionID) == "" {
		return "", fmt.Errorf("accesslog: session_id is required")
	}
	if e.EntryTime.IsZero() {
		e.EntryTime = s.now()
	}

	row := models.AccessLog{
		ActorID:   e.ActorID,
		SessionID: e.SessionID,
		UserAgent: optional(e.UserAgent),
		IPAddress: optional(e.IPAddress),
		EntryTime: e.EntryTime,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return "", fmt.Errorf("accesslog: open: %w", err)
	}
	return row.ID, nil
}

// RecordExit stamps the exit time and duration on a session that has not
// been closed yet. It reports whether this call performed the write; a
// session that already has an exit time is left untouched. An exit earlier
// than the entry is clamped to the entry, so durations are never negative.
func (s *Store) RecordExit(ctx context.Context, id string, exit time.Time) (bool, error) {
	db := s.db.WithContext(ctx)

	var row models.AccessLog
	if err := db.Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, ErrNotFound
		}
		return false, fmt.Errorf("accesslog: exit %s: %w", id, err)
	}
	if row.ExitTime != nil {
		return false, nil
	}

	if exit.IsZero() {
		exit = s.now()
	}
	if exit.Before(row.EntryTime) {
		exit = row.EntryTime
	}
	duration := int(exit.Sub(row.EntryTime) / time.Second)

	// The exit_time IS NULL guard makes concurrent exits race-safe.
	result := db.Model(&models.AccessLog{}).
		Where("id = ? AND exit_time IS NULL", id).
		Updates(map[string]interface{}{
			"exit_time":        exit,
			"duration_seconds": duration,
		})
	if result.Error != nil {
		return false, fmt.Errorf("accesslog: exit %s: %w", id, result.Error)
	}
	return result.RowsAffected == 1, nil
}

// Get returns one session by id.
func (s *Store) Get(ctx context.Context, id string) (*models.AccessLog, error) {
	var row models.AccessLog
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("accesslog: get %s: %w", id, err)
	}
	return &row, nil
}

// Timeline returns the most recent sessions, newest first.
func (s *Store) Timeline(ctx context.Context, limit int) ([]models.AccessLog, error) {
	if limit <= 0 {
		limit = DefaultTimelineLimit
	}
	var rows []models.AccessLog
	if err := s.db.WithContext(ctx).
		Order("entry_time DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("accesslog: timeline: %w", err)
	}
	return rows, nil
}

// Since returns every session that started at or after the given time.
func (s *Store) Since(ctx context.Context, since time.Time) ([]models.AccessLog, error) {
	var rows []models.AccessLog
	if err := s.db.WithContext(ctx).
		Where("entry_time >= ?", since).
		Order("entry_time DESC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("accesslog: since %s: %w", since.Format(time.RFC3339), err)
	}
	return rows, nil
}

// ActorNames maps actor id to display name for labelling summaries.
func (s *Store) ActorNames(ctx context.Context) (map[string]string, error) {
	var actors []models.Actor
	if err := s.db.WithContext(ctx).Select("id", "name_ko").Find(&actors).Error; err != nil {
		return nil, fmt.Errorf("accesslog: actor names: %w", err)
	}
	names := make(map[string]string, len(actors))
	for _, a := range actors {
		names[a.ID] = a.NameKo
	}
	return names, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
