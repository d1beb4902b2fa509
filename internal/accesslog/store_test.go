package accesslog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/zulandar/marquee/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// openAccessLogTestDB opens an in-memory SQLite DB with access_logs and actors.
func openAccessLogTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.AccessLog{}, &models.Actor{}); err != nil {
		t.Fatalf("auto migrate: %v", err)
	}
	return db
}

var t0 = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func TestStore_OpenAndExit(t *testing.T) {
	store := NewStore(openAccessLogTestDB(t))
	ctx := context.Background()

	id, err := store.Open(ctx, Entry{ActorID: "a1", SessionID: "s1", UserAgent: "UA", EntryTime: t0})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if id == "" {
		t.Fatal("Open returned empty id")
	}

	wrote, err := store.RecordExit(ctx, id, t0.Add(95*time.Second+700*time.Millisecond))
	if err != nil {
		t.Fatalf("RecordExit: %v", err)
	}
	if !wrote {
		t.Error("RecordExit wrote = false, want true")
	}

	row, err := store.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if row.ExitTime == nil || !row.ExitTime.After(row.EntryTime) {
		t.Errorf("exit = %v, entry = %v", row.ExitTime, row.EntryTime)
	}
	if row.DurationSeconds == nil || *row.DurationSeconds != 95 {
		t.Errorf("duration = %v, want 95 (floored)", row.DurationSeconds)
	}
	if row.UserAgent == nil || *row.UserAgent != "UA" {
		t.Errorf("user agent = %v", row.UserAgent)
	}
}

func TestStore_SecondExitIsIgnored(t *testing.T) {
	store := NewStore(openAccessLogTestDB(t))
	ctx := context.Background()
	id, _ := store.Open(ctx, Entry{ActorID: "a1", SessionID: "s1", EntryTime: t0})

	if _, err := store.RecordExit(ctx, id, t0.Add(30*time.Second)); err != nil {
		t.Fatal(err)
	}
	wrote, err := store.RecordExit(ctx, id, t0.Add(10*time.Minute))
	if err != nil {
		t.Fatalf("second RecordExit: %v", err)
	}
	if wrote {
		t.Error("second RecordExit wrote = true, want false")
	}

	row, _ := store.Get(ctx, id)
	if *row.DurationSeconds != 30 {
		t.Errorf("duration = %d, want 30 (first exit kept)", *row.DurationSeconds)
	}
}

func TestStore_ExitBeforeEntryIsClamped(t *testing.T) {
	store := NewStore(openAccessLogTestDB(t))
	ctx := context.Background()
	id, _ := store.Open(ctx, Entry{ActorID: "a1", SessionID: "s1", EntryTime: t0})

	if _, err := store.RecordExit(ctx, id, t0.Add(-time.Minute)); err != nil {
		t.Fatal(err)
	}
	row, _ := store.Get(ctx, id)
	if *row.DurationSeconds != 0 {
		t.Errorf("duration = %d, want 0", *row.DurationSeconds)
	}
}

func TestStore_ExitUnknownID(t *testing.T) {
	store := NewStore(openAccessLogTestDB(t))
	_, err := store.RecordExit(context.Background(), "missing", t0)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestStore_OpenValidation(t *testing.T) {
	store := NewStore(openAccessLogTestDB(t))
	ctx := context.Background()
	if _, err := store.Open(ctx, Entry{SessionID: "s"}); err == nil {
		t.Error("expected error for missing actor_id")
	}
	if _, err := store.Open(ctx, Entry{ActorID: "a1"}); err == nil {
		t.Error("expected error for missing session_id")
	}
}

func TestStore_OpenDefaultsEntryTime(t *testing.T) {
	store := NewStore(openAccessLogTestDB(t))
	store.now = func() time.Time { return t0 }
	ctx := context.Background()

	id, err := store.Open(ctx, Entry{ActorID: "a1", SessionID: "s1"})
	if err != nil {
		t.Fatal(err)
	}
	row, _ := store.Get(ctx, id)
	if !row.EntryTime.Equal(t0) {
		t.Errorf("entry = %v, want %v", row.EntryTime, t0)
	}
}

func TestStore_TimelineNewestFirst(t *testing.T) {
	store := NewStore(openAccessLogTestDB(t))
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := store.Open(ctx, Entry{ActorID: "a1", SessionID: "s", EntryTime: t0.Add(time.Duration(i) * time.Minute)}); err != nil {
			t.Fatal(err)
		}
	}

	rows, err := store.Timeline(ctx, 3)
	if err != nil {
		t.Fatalf("Timeline: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	if !rows[0].EntryTime.Equal(t0.Add(4 * time.Minute)) {
		t.Errorf("rows[0].EntryTime = %v, want newest", rows[0].EntryTime)
	}
}

func TestStore_Since(t *testing.T) {
	store := NewStore(openAccessLogTestDB(t))
	ctx := context.Background()
	store.Open(ctx, Entry{ActorID: "a1", SessionID: "old", EntryTime: t0.Add(-48 * time.Hour)})
	store.Open(ctx, Entry{ActorID: "a1", SessionID: "new", EntryTime: t0})

	rows, err := store.Since(ctx, t0.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("Since: %v", err)
	}
	if len(rows) != 1 || rows[0].SessionID != "new" {
		t.Errorf("rows = %+v", rows)
	}
}

func TestStore_ActorNames(t *testing.T) {
	db := openAccessLogTestDB(t)
	db.Create(&models.Actor{ID: "a1", NameKo: "제인"})

	names, err := NewStore(db).ActorNames(context.Background())
	if err != nil {
		t.Fatalf("ActorNames: %v", err)
	}
	if names["a1"] != "제인" {
		t.Errorf("names = %v", names)
	}
}
