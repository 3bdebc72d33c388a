package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"bitbucket.org/wescanlabs/corescan_backend/models"
	"bitbucket.org/wescanlabs/corescan_backend/utils"
)

func newTestStore(t *testing.T) *BatchStore {
	t.Helper()
	s := NewBatchStore(filepath.Join(t.TempDir(), "batches.json"))
	if err := s.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return s
}

func appendBatch(t *testing.T, s *BatchStore, hole string) models.BatchRecord {
	t.Helper()
	rec, err := s.Append(models.NewBatch{HoleID: hole, Machine: "OREXPLORE"})
	if err != nil {
		t.Fatalf("Append(%s): %v", hole, err)
	}
	return rec
}

func TestInit_CreatesEmptyDocument(t *testing.T) {
	s := newTestStore(t)
	records, err := s.Load()
	if err != nil {
		t.Fatalf("Load after Init: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("expected empty store, got %d records", len(records))
	}
}

func TestInit_LeavesExistingFileAlone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batches.json")
	existing := `[{"batch_number": 7, "hole_id": "H1", "from": "1.0", "to": 2.0, "machine": "OREXPLORE", "comentarios": "", "status": "pending", "created_at": "2024-01-05T14:23:11.000000"}]`
	if err := os.WriteFile(path, []byte(existing), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewBatchStore(path)
	if err := s.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	records, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(records) != 1 || records[0].HoleID != "H1" {
		t.Fatalf("existing data lost: %+v", records)
	}
}

func TestLoad_RenumbersInStoredOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batches.json")
	existing := `[
        {"batch_number": 9, "hole_id": "A", "from": 0, "to": 1, "machine": "M", "comentarios": "", "status": "pending", "created_at": "2024-01-01T00:00:00.000000"},
        {"batch_number": 3, "hole_id": "B", "from": 1, "to": 2, "machine": "M", "comentarios": "", "status": "pending", "created_at": "2024-01-02T00:00:00.000000"}
    ]`
	if err := os.WriteFile(path, []byte(existing), 0o644); err != nil {
		t.Fatal(err)
	}

	records, err := NewBatchStore(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if records[0].BatchNumber != 1 || records[1].BatchNumber != 2 {
		t.Fatalf("expected contiguous numbering 1..2, got %d, %d", records[0].BatchNumber, records[1].BatchNumber)
	}
	if records[0].HoleID != "A" || records[1].HoleID != "B" {
		t.Fatalf("stored order must be preserved, got %s, %s", records[0].HoleID, records[1].HoleID)
	}
}

func TestLoad_MissingFileIsStorageError(t *testing.T) {
	s := NewBatchStore(filepath.Join(t.TempDir(), "nope.json"))
	_, err := s.Load()
	var storageErr *StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("expected StorageError for missing file, got %v", err)
	}
}

func TestLoad_CorruptFileIsStorageError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batches.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := NewBatchStore(path).Load()
	var storageErr *StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("expected StorageError for corrupt file, got %v", err)
	}
}

func TestAppend_AssignsDenseNumbers(t *testing.T) {
	s := newTestStore(t)
	for i, hole := range []string{"H1", "H2", "H3"} {
		rec := appendBatch(t, s, hole)
		if rec.BatchNumber != i+1 {
			t.Fatalf("expected batch_number %d, got %d", i+1, rec.BatchNumber)
		}
		if rec.Status != models.StatusPending {
			t.Fatalf("new batches start pending, got %s", rec.Status)
		}
		if rec.CreatedAt == "" {
			t.Fatal("created_at must be set on append")
		}
	}
}

func TestDelete_RenumbersSurvivors(t *testing.T) {
	s := newTestStore(t)
	appendBatch(t, s, "H1")
	appendBatch(t, s, "H2")
	appendBatch(t, s, "H3")

	if err := s.Delete(2); err != nil {
		t.Fatalf("Delete(2): %v", err)
	}

	records, err := s.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].BatchNumber != 1 || records[0].HoleID != "H1" {
		t.Fatalf("record 1 wrong: %+v", records[0])
	}
	if records[1].BatchNumber != 2 || records[1].HoleID != "H3" {
		t.Fatalf("survivors keep relative order and renumber: %+v", records[1])
	}
}

func TestDelete_NotFound(t *testing.T) {
	s := newTestStore(t)
	appendBatch(t, s, "H1")
	if err := s.Delete(42); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("expected ErrorRecordNotFound, got %v", err)
	}
}

func TestRenumberingInvariant_UnderMixedOperations(t *testing.T) {
	s := newTestStore(t)
	appendBatch(t, s, "H1")
	appendBatch(t, s, "H2")
	appendBatch(t, s, "H3")
	if err := s.Delete(1); err != nil {
		t.Fatal(err)
	}
	appendBatch(t, s, "H4")
	if err := s.Delete(2); err != nil {
		t.Fatal(err)
	}

	records, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	for i, rec := range records {
		if rec.BatchNumber != i+1 {
			t.Fatalf("numbers must stay dense 1..N: position %d has %d", i, rec.BatchNumber)
		}
	}
	holes := []string{records[0].HoleID, records[1].HoleID}
	if holes[0] != "H2" || holes[1] != "H4" {
		t.Fatalf("insertion order of survivors lost: %v", holes)
	}
}

func TestUpdate_MergesPartialFields(t *testing.T) {
	s := newTestStore(t)
	appendBatch(t, s, "H1")

	newHole := "H9"
	updated, err := s.Update(1, models.UpdateBatchInput{HoleID: &newHole})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.HoleID != "H9" {
		t.Fatalf("expected hole H9, got %s", updated.HoleID)
	}
	if updated.Machine != "OREXPLORE" {
		t.Fatalf("untouched fields must survive, got machine %q", updated.Machine)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Update(1, models.UpdateBatchInput{})
	if !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("expected ErrorRecordNotFound, got %v", err)
	}
}

func TestSave_RoundTripsHeterogeneousDepths(t *testing.T) {
	path := filepath.Join(t.TempDir(), "batches.json")
	existing := `[{"batch_number": 1, "hole_id": "H1", "from": "1.0", "to": 2.5, "machine": "M", "comentarios": "ok", "status": "pending", "created_at": "2024-01-05T14:23:11.000000"}]`
	if err := os.WriteFile(path, []byte(existing), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewBatchStore(path)
	records, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save(records); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var out []map[string]json.RawMessage
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("saved file is not valid JSON: %v", err)
	}
	if string(out[0]["from"]) != `"1.0"` {
		t.Fatalf("string depth token must survive a round trip, got %s", out[0]["from"])
	}
	if string(out[0]["to"]) != `2.5` {
		t.Fatalf("numeric depth token must survive a round trip, got %s", out[0]["to"])
	}
}

func TestSave_NoTempFileLeftBehind(t *testing.T) {
	dir := t.TempDir()
	s := NewBatchStore(filepath.Join(dir, "batches.json"))
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Append(models.NewBatch{HoleID: "H1", Machine: "M"}); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "batches.json" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Fatalf("expected only batches.json in %s, got %v", dir, names)
	}
}
