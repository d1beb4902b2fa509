package db

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/zulandar/marquee/internal/models"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Seed is the on-disk format for `mq seed`: actors, staff, and the
// actor-to-staff assignments that route inquiries.
type Seed struct {
	Actors      []SeedActor      `yaml:"actors"`
	Staff       []SeedStaff      `yaml:"staff"`
	Assignments []SeedAssignment `yaml:"assignments"`
}

// SeedActor is an actor row.
type SeedActor struct {
	ID     string `yaml:"id"`
	NameKo string `yaml:"name_ko"`
}

// SeedStaff is a staff row; staff are matched by name.
type SeedStaff struct {
	Name           string `yaml:"name"`
	Email          string `yaml:"email"`
	Phone          string `yaml:"phone"`
	TelegramToken  string `yaml:"telegram_token"`
	TelegramChatID string `yaml:"telegram_chat_id"`
	RoleType       string `yaml:"role_type"`
}

// SeedAssignment assigns the named staff member to an actor.
type SeedAssignment struct {
	ActorID string `yaml:"actor_id"`
	Staff   string `yaml:"staff"`
	Type    string `yaml:"type"`
}

// SeedResult reports what ApplySeed wrote.
type SeedResult struct {
	Actors      int
	Staff       int
	Assignments int
}

// LoadSeed reads and validates a seed file.
func LoadSeed(path string) (*Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("db: read seed %s: %w", path, err)
	}
	return ParseSeed(data)
}

// ParseSeed unmarshals and validates seed YAML.
func ParseSeed(data []byte) (*Seed, error) {
	var s Seed
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("db: parse seed: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Seed) validate() error {
	var errs []string
	staffNames := make(map[string]bool, len(s.Staff))
	for i, a := range s.Actors {
		if a.ID == "" {
			errs = append(errs, fmt.Sprintf("actors[%d].id is required", i))
		}
		if a.NameKo == "" {
			errs = append(errs, fmt.Sprintf("actors[%d].name_ko is required", i))
		}
	}
	for i, st := range s.Staff {
		if st.Name == "" {
			errs = append(errs, fmt.Sprintf("staff[%d].name is required", i))
			continue
		}
		staffNames[st.Name] = true
	}
	for i, a := range s.Assignments {
		if a.ActorID == "" {
			errs = append(errs, fmt.Sprintf("assignments[%d].actor_id is required", i))
		}
		if a.Type == "" {
			errs = append(errs, fmt.Sprintf("assignments[%d].type is required", i))
		}
		if !staffNames[a.Staff] {
			errs = append(errs, fmt.Sprintf("assignments[%d].staff %q is not defined in staff", i, a.Staff))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("db: seed validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// ApplySeed upserts actors and staff, then replaces the assignment set of
// every actor mentioned in the seed's assignments.
func ApplySeed(ctx context.Context, db *gorm.DB, s *Seed) (SeedResult, error) {
	var res SeedResult
	db = db.WithContext(ctx)

	for _, a := range s.Actors {
		actor := models.Actor{ID: a.ID, NameKo: a.NameKo}
		if err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name_ko"}),
		}).Create(&actor).Error; err != nil {
			return res, fmt.Errorf("db: seed actor %q: %w", a.ID, err)
		}
		res.Actors++
	}

	for _, st := range s.Staff {
		row := models.Staff{
			Name:           st.Name,
			Email:          optional(st.Email),
			Phone:          optional(st.Phone),
			TelegramToken:  optional(st.TelegramToken),
			TelegramChatID: optional(st.TelegramChatID),
			RoleType:       st.RoleType,
		}
		if row.RoleType == "" {
			row.RoleType = "manager"
		}
		if err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"email", "phone", "telegram_token", "telegram_chat_id", "role_type"}),
		}).Create(&row).Error; err != nil {
			return res, fmt.Errorf("db: seed staff %q: %w", st.Name, err)
		}
		res.Staff++
	}

	var staff []models.Staff
	if err := db.Find(&staff).Error; err != nil {
		return res, fmt.Errorf("db: seed: list staff: %w", err)
	}
	staffIDs := make(map[string]string, len(staff))
	for _, st := range staff {
		staffIDs[st.Name] = st.ID
	}

	byActor := make(map[string][]models.StaffAssignment)
	var order []string
	for _, a := range s.Assignments {
		if _, seen := byActor[a.ActorID]; !seen {
			order = append(order, a.ActorID)
		}
		byActor[a.ActorID] = append(byActor[a.ActorID], models.StaffAssignment{
			StaffID:        staffIDs[a.Staff],
			AssignmentType: a.Type,
		})
	}
	for _, actorID := range order {
		if err := ReplaceAssignments(ctx, db, actorID, byActor[actorID]); err != nil {
			return res, err
		}
		res.Assignments += len(byActor[actorID])
	}
	return res, nil
}

// ReplaceAssignments swaps an actor's whole assignment set in one
// transaction, so readers never observe the intermediate empty set on
// databases with transactional isolation.
func ReplaceAssignments(ctx context.Context, db *gorm.DB, actorID string, assignments []models.StaffAssignment) error {
	if actorID == "" {
		return fmt.Errorf("db: replace assignments: actorID is required")
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("actor_id = ?", actorID).Delete(&models.StaffAssignment{}).Error; err != nil {
			return err
		}
		if len(assignments) == 0 {
			return nil
		}
		rows := make([]models.StaffAssignment, len(assignments))
		for i, a := range assignments {
			rows[i] = models.StaffAssignment{
				ActorID:        actorID,
				StaffID:        a.StaffID,
				AssignmentType: a.AssignmentType,
			}
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return fmt.Errorf("db: replace assignments for %s: %w", actorID, err)
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
