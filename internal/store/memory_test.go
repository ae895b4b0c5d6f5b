package store_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/inboxpilot/inboxpilot/internal/store"
	"github.com/inboxpilot/inboxpilot/pkg/models"
)

func TestAppendTask_MonotonicIDs(t *testing.T) {
	s := store.NewMemoryStore("")
	ctx := context.Background()

	for want := 0; want < 3; want++ {
		id, err := s.AppendTask(ctx, &models.TaskRecord{Goal: "goal"})
		if err != nil {
			t.Fatalf("AppendTask: %v", err)
		}
		if id != want {
			t.Errorf("id = %d, want %d", id, want)
		}
	}

	records, err := s.ListTasks(ctx)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("len(records) = %d, want 3", len(records))
	}
}

func TestGetTask(t *testing.T) {
	s := store.NewMemoryStore("")
	ctx := context.Background()

	id, _ := s.AppendTask(ctx, &models.TaskRecord{Goal: "find unread mail"})

	record, err := s.GetTask(ctx, id)
	if err != nil {
		t.Fatalf("GetTask(%d): %v", id, err)
	}
	if record.Goal != "find unread mail" {
		t.Errorf("Goal = %q", record.Goal)
	}

	if _, err := s.GetTask(ctx, 99); err == nil {
		t.Error("GetTask(99): want error, got nil")
	}
}

func TestResetTasks_IDsRestartFromZero(t *testing.T) {
	s := store.NewMemoryStore("")
	ctx := context.Background()

	s.AppendTask(ctx, &models.TaskRecord{Goal: "one"})
	s.AppendTask(ctx, &models.TaskRecord{Goal: "two"})

	if err := s.ResetTasks(ctx); err != nil {
		t.Fatalf("ResetTasks: %v", err)
	}

	records, _ := s.ListTasks(ctx)
	if len(records) != 0 {
		t.Errorf("len(records) after reset = %d, want 0", len(records))
	}

	id, _ := s.AppendTask(ctx, &models.TaskRecord{Goal: "three"})
	if id != 0 {
		t.Errorf("first id after reset = %d, want 0", id)
	}
}

func TestExportTasks(t *testing.T) {
	s := store.NewMemoryStore("")
	ctx := context.Background()

	s.AppendTask(ctx, &models.TaskRecord{Goal: "export me"})

	path := filepath.Join(t.TempDir(), "history.json")
	if err := s.ExportTasks(ctx, path); err != nil {
		t.Fatalf("ExportTasks: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	var records []models.TaskRecord
	if err := json.Unmarshal(data, &records); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if len(records) != 1 || records[0].Goal != "export me" {
		t.Errorf("exported records = %+v", records)
	}
}

func TestSnapshot_SurvivesRestart(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s1 := store.NewMemoryStore(dir)
	s1.AppendTask(ctx, &models.TaskRecord{Goal: "persist me"})
	s1.AppendTask(ctx, &models.TaskRecord{Goal: "me too"})
	s1.Close()

	s2 := store.NewMemoryStore(dir)
	records, err := s2.ListTasks(ctx)
	if err != nil {
		t.Fatalf("ListTasks after reload: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len(records) after reload = %d, want 2", len(records))
	}
	if records[0].Goal != "persist me" {
		t.Errorf("records[0].Goal = %q", records[0].Goal)
	}

	// Ids keep counting from where the snapshot left off.
	id, _ := s2.AppendTask(ctx, &models.TaskRecord{Goal: "new"})
	if id != 2 {
		t.Errorf("id after reload = %d, want 2", id)
	}
}

func TestSnapshot_CorruptFileStartsFresh(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "history.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := store.NewMemoryStore(dir)
	records, err := s.ListTasks(context.Background())
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("len(records) = %d, want 0 for corrupt snapshot", len(records))
	}
}
