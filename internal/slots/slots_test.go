package slots

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/nerrad567/choreo-core/internal/infrastructure/config"
	"github.com/nerrad567/choreo-core/internal/infrastructure/database"
	"github.com/nerrad567/choreo-core/migrations"
)

func setupRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "slots.db"), WALMode: true, BusyTimeout: 5})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.Migrate(context.Background(), migrations.FS); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	return NewSQLiteRepository(db.DB)
}

func TestRepository_Seeded(t *testing.T) {
	repo := setupRepo(t)

	got, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 5 {
		t.Fatalf("len = %d, want 5", len(got))
	}
	for i, s := range got {
		if want := fmt.Sprintf("Slot %d", i+1); s.Name != want {
			t.Errorf("slot %d name = %q, want %q", i, s.Name, want)
		}
		if s.Data != "" {
			t.Errorf("slot %d data = %q, want empty", i, s.Data)
		}
	}
}

func TestRepository_Replace(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	want := []Slot{
		{Name: " Dance ", Data: `robot.say("hi")`},
		{Name: "Wave", Data: `robot.move_arm("left", 45)`},
	}
	if err := repo.Replace(ctx, want); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	got, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Name != "Dance" || got[0].Data != want[0].Data {
		t.Errorf("slot 0 = %+v", got[0])
	}
	if got[1].Name != "Wave" || got[1].Data != want[1].Data {
		t.Errorf("slot 1 = %+v", got[1])
	}
	if got[0].UpdatedAt.IsZero() || got[0].UpdatedAt.Year() == 1970 {
		t.Errorf("UpdatedAt = %v, want replace time", got[0].UpdatedAt)
	}
}

func TestRepository_ReplaceInvalidKeepsSlots(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	err := repo.Replace(ctx, []Slot{{Name: "ok"}, {Name: "  "}})
	if !errors.Is(err, ErrInvalidSlots) {
		t.Fatalf("Replace() error = %v, want ErrInvalidSlots", err)
	}

	got, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 5 {
		t.Errorf("len = %d, want seeded 5", len(got))
	}
}

func TestValidate(t *testing.T) {
	tooMany := make([]Slot, MaxSlots+1)
	for i := range tooMany {
		tooMany[i].Name = fmt.Sprintf("s%d", i)
	}

	tests := []struct {
		name    string
		slots   []Slot
		wantErr bool
	}{
		{"single", []Slot{{Name: "a"}}, false},
		{"empty list", nil, true},
		{"blank name", []Slot{{Name: ""}}, true},
		{"too many", tooMany, true},
		{"at limit", tooMany[:MaxSlots], false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.slots)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidSlots) {
				t.Errorf("error %v does not wrap ErrInvalidSlots", err)
			}
		})
	}
}
