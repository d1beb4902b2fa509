package inquiry

import (
	"context"
	"fmt"
	"time"

	"github.com/zulandar/marquee/internal/models"
	"gorm.io/gorm"
)

// Store is the persistence the dispatcher depends on.
type Store interface {
	// SaveInquiry writes the submission exactly once.
	SaveInquiry(ctx context.Context, row *models.ContactInquiry) error

	// Assignments returns every assignment for the actor with Staff loaded.
	// An actor with no assignments yields an empty slice, not an error.
	Assignments(ctx context.Context, actorID string) ([]models.StaffAssignment, error)
}

// Contact is the public view of an assigned staff member; it never carries
// messaging credentials.
type Contact struct {
	Name           string  `json:"name"`
	Phone          *string `json:"phone"`
	AssignmentType string  `json:"assignment_type"`
}

// GormStore implements Store on top of gorm.
type GormStore struct {
	db *gorm.DB
}

// NewStore wraps a gorm connection.
func NewStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// SaveInquiry inserts the inquiry row.
func (s *GormStore) SaveInquiry(ctx context.Context, row *models.ContactInquiry) error {
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		return fmt.Errorf("inquiry: insert contact_inquiries: %w", err)
	}
	return nil
}

// Assignments loads the actor's assignments joined with their staff rows.
func (s *GormStore) Assignments(ctx context.Context, actorID string) ([]models.StaffAssignment, error) {
	var rows []models.StaffAssignment
	if err := s.db.WithContext(ctx).
		Preload("Staff").
		Where("actor_id = ?", actorID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("inquiry: assignments for %s: %w", actorID, err)
	}
	return rows, nil
}

// Contacts returns the public contact list shown next to the contact form.
func (s *GormStore) Contacts(ctx context.Context, actorID string) ([]Contact, error) {
	rows, err := s.Assignments(ctx, actorID)
	if err != nil {
		return nil, err
	}
	contacts := make([]Contact, 0, len(rows))
	for _, a := range rows {
		if a.Staff == nil {
			continue
		}
		contacts = append(contacts, Contact{
			Name:           a.Staff.Name,
			Phone:          a.Staff.Phone,
			AssignmentType: a.AssignmentType,
		})
	}
	return contacts, nil
}

// Count returns how many inquiries were stored since the given time.
func (s *GormStore) Count(ctx context.Context, since time.Time) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.ContactInquiry{}).
		Where("created_at >= ?", since).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("inquiry: count: %w", err)
	}
	return n, nil
}
