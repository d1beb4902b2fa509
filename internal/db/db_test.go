package db

import (
	"context"
	"strings"
	"testing"

	"github.com/zulandar/marquee/internal/config"
	"github.com/zulandar/marquee/internal/models"
	"gorm.io/gorm"
)

// openTestDB opens an in-memory SQLite DB with every marquee table migrated.
// One connection keeps the in-memory database shared across transactions.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gormDB, err := Connect(config.DatabaseConfig{Driver: config.DriverSQLite, DSN: ":memory:"})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	if err := AutoMigrate(gormDB); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return gormDB
}

func TestMySQLDSN(t *testing.T) {
	tests := []struct {
		name     string
		user     string
		host     string
		port     int
		database string
		want     string
	}{
		{
			name:     "default local",
			user:     "root",
			host:     "127.0.0.1",
			port:     3306,
			database: "marquee",
			want:     "root@tcp(127.0.0.1:3306)/marquee?parseTime=true&charset=utf8mb4",
		},
		{
			name:     "custom host and port",
			user:     "app",
			host:     "10.0.0.5",
			port:     3307,
			database: "marquee_staging",
			want:     "app@tcp(10.0.0.5:3307)/marquee_staging?parseTime=true&charset=utf8mb4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MySQLDSN(tt.user, tt.host, tt.port, tt.database)
			if got != tt.want {
				t.Errorf("MySQLDSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDialector_PerDriver(t *testing.T) {
	tests := []struct {
		driver string
		want   string
	}{
		{config.DriverPostgres, "postgres"},
		{config.DriverMySQL, "mysql"},
		{config.DriverSQLite, "sqlite"},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			d, err := Dialector(config.DatabaseConfig{Driver: tt.driver, DSN: "x", Name: "marquee"})
			if err != nil {
				t.Fatalf("Dialector: %v", err)
			}
			if got := d.Name(); got != tt.want {
				t.Errorf("Name() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDialector_Unsupported(t *testing.T) {
	_, err := Dialector(config.DatabaseConfig{Driver: "oracle"})
	if err == nil {
		t.Fatal("expected error for unsupported driver")
	}
	if !strings.Contains(err.Error(), `unsupported driver "oracle"`) {
		t.Errorf("error = %q", err.Error())
	}
}

func TestAllModels_Count(t *testing.T) {
	if got := len(AllModels()); got != 5 {
		t.Errorf("len(AllModels()) = %d, want 5", got)
	}
}

func TestAutoMigrate_CreatesTables(t *testing.T) {
	gormDB := openTestDB(t)
	for _, table := range []string{"actors", "staff", "actor_staff_assignment", "access_logs", "contact_inquiries"} {
		if !gormDB.Migrator().HasTable(table) {
			t.Errorf("table %s not created", table)
		}
	}
}

func TestPing(t *testing.T) {
	gormDB := openTestDB(t)
	if err := Ping(context.Background(), gormDB); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}

const seedYAML = `
actors:
  - id: a1
    name_ko: 제인
  - id: a2
    name_ko: 민수
staff:
  - name: Kim
    phone: 010-0000-0000
    telegram_token: "123:abc"
    telegram_chat_id: "555"
  - name: Lee
assignments:
  - actor_id: a1
    staff: Kim
    type: sales
  - actor_id: a1
    staff: Lee
    type: advertising
  - actor_id: a2
    staff: Lee
    type: sales
`

func TestParseSeed_Valid(t *testing.T) {
	s, err := ParseSeed([]byte(seedYAML))
	if err != nil {
		t.Fatalf("ParseSeed: %v", err)
	}
	if len(s.Actors) != 2 || len(s.Staff) != 2 || len(s.Assignments) != 3 {
		t.Errorf("seed counts = %d/%d/%d", len(s.Actors), len(s.Staff), len(s.Assignments))
	}
}

func TestParseSeed_ValidationErrors(t *testing.T) {
	_, err := ParseSeed([]byte(`
actors:
  - name_ko: nobody
staff:
  - phone: "1"
assignments:
  - staff: Ghost
`))
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	for _, want := range []string{
		"actors[0].id is required",
		"staff[0].name is required",
		"assignments[0].actor_id is required",
		"assignments[0].type is required",
		`assignments[0].staff "Ghost" is not defined`,
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("error missing %q: %s", want, msg)
		}
	}
}

func TestApplySeed(t *testing.T) {
	gormDB := openTestDB(t)
	s, err := ParseSeed([]byte(seedYAML))
	if err != nil {
		t.Fatal(err)
	}

	res, err := ApplySeed(context.Background(), gormDB, s)
	if err != nil {
		t.Fatalf("ApplySeed: %v", err)
	}
	if res.Actors != 2 || res.Staff != 2 || res.Assignments != 3 {
		t.Errorf("result = %+v", res)
	}

	var assignments []models.StaffAssignment
	if err := gormDB.Preload("Staff").Where("actor_id = ?", "a1").Find(&assignments).Error; err != nil {
		t.Fatal(err)
	}
	if len(assignments) != 2 {
		t.Fatalf("a1 assignments = %d, want 2", len(assignments))
	}
	for _, a := range assignments {
		if a.Staff == nil {
			t.Fatalf("assignment %s has no staff preloaded", a.ID)
		}
		if a.Staff.Name == "Kim" && !a.Staff.HasTelegram() {
			t.Error("Kim should have telegram credentials")
		}
		if a.Staff.Name == "Lee" && a.Staff.HasTelegram() {
			t.Error("Lee should not have telegram credentials")
		}
	}
}

func TestApplySeed_Idempotent(t *testing.T) {
	gormDB := openTestDB(t)
	s, _ := ParseSeed([]byte(seedYAML))
	ctx := context.Background()

	if _, err := ApplySeed(ctx, gormDB, s); err != nil {
		t.Fatal(err)
	}
	if _, err := ApplySeed(ctx, gormDB, s); err != nil {
		t.Fatalf("second ApplySeed: %v", err)
	}

	var staffCount, assignmentCount int64
	gormDB.Model(&models.Staff{}).Count(&staffCount)
	gormDB.Model(&models.StaffAssignment{}).Count(&assignmentCount)
	if staffCount != 2 {
		t.Errorf("staff count = %d, want 2", staffCount)
	}
	if assignmentCount != 3 {
		t.Errorf("assignment count = %d, want 3 (replaced, not appended)", assignmentCount)
	}
}

func TestReplaceAssignments_ReplacesOnlyThatActor(t *testing.T) {
	gormDB := openTestDB(t)
	s, _ := ParseSeed([]byte(seedYAML))
	ctx := context.Background()
	if _, err := ApplySeed(ctx, gormDB, s); err != nil {
		t.Fatal(err)
	}

	var kim models.Staff
	if err := gormDB.Where("name = ?", "Kim").First(&kim).Error; err != nil {
		t.Fatal(err)
	}
	if err := ReplaceAssignments(ctx, gormDB, "a1", []models.StaffAssignment{
		{StaffID: kim.ID, AssignmentType: "casting"},
	}); err != nil {
		t.Fatalf("ReplaceAssignments: %v", err)
	}

	var a1, a2 []models.StaffAssignment
	gormDB.Where("actor_id = ?", "a1").Find(&a1)
	gormDB.Where("actor_id = ?", "a2").Find(&a2)
	if len(a1) != 1 || a1[0].AssignmentType != "casting" {
		t.Errorf("a1 assignments = %+v, want single casting", a1)
	}
	if len(a2) != 1 {
		t.Errorf("a2 assignments = %d, want 1 (untouched)", len(a2))
	}
}

func TestReplaceAssignments_EmptyClears(t *testing.T) {
	gormDB := openTestDB(t)
	s, _ := ParseSeed([]byte(seedYAML))
	ctx := context.Background()
	if _, err := ApplySeed(ctx, gormDB, s); err != nil {
		t.Fatal(err)
	}
	if err := ReplaceAssignments(ctx, gormDB, "a1", nil); err != nil {
		t.Fatalf("ReplaceAssignments: %v", err)
	}
	var count int64
	gormDB.Model(&models.StaffAssignment{}).Where("actor_id = ?", "a1").Count(&count)
	if count != 0 {
		t.Errorf("a1 assignments = %d, want 0", count)
	}
}

func TestReplaceAssignments_RequiresActor(t *testing.T) {
	err := ReplaceAssignments(context.Background(), nil, "", nil)
	if err == nil {
		t.Fatal("expected error for empty actorID")
	}
	if !strings.Contains(err.Error(), "actorID is required") {
		t.Errorf("error = %q", err.Error())
	}
}
