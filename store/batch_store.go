package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"bitbucket.org/wescanlabs/corescan_backend/models"
	"bitbucket.org/wescanlabs/corescan_backend/utils"
)

// StorageError marks a persisted document that could not be read or written.
// Callers must surface it; an unreadable store is never the same as an empty
// one.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("store %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// BatchStore owns the batches document. Every load-modify-save sequence runs
// under one mutex so the background monitor and request handlers cannot
// overwrite each other's updates.
type BatchStore struct {
	mu   sync.Mutex
	path string
}

func NewBatchStore(path string) *BatchStore {
	return &BatchStore{path: path}
}

// Init creates an empty batches document when none exists yet. An existing
// file is left untouched.
func (s *BatchStore) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return &StorageError{Op: "stat", Path: s.path, Err: err}
	}
	return s.saveLocked([]models.BatchRecord{})
}

func (s *BatchStore) Load() ([]models.BatchRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

func (s *BatchStore) Save(records []models.BatchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(records)
}

// Mutate runs fn over the current records and persists its result, all under
// the store lock. The monitor's reconcile writeback goes through here.
func (s *BatchStore) Mutate(fn func([]models.BatchRecord) ([]models.BatchRecord, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.loadLocked()
	if err != nil {
		return err
	}
	out, err := fn(records)
	if err != nil {
		return err
	}
	return s.saveLocked(out)
}

// Append assigns the next batch number and persists.
func (s *BatchStore) Append(input models.NewBatch) (models.BatchRecord, error) {
	var created models.BatchRecord
	err := s.Mutate(func(records []models.BatchRecord) ([]models.BatchRecord, error) {
		created = models.BatchRecord{
			BatchNumber: len(records) + 1,
			HoleID:      input.HoleID,
			From:        input.From,
			To:          input.To,
			Machine:     input.Machine,
			Comments:    input.Comments,
			Status:      models.StatusPending,
			CreatedAt:   models.NewTimestamp(),
		}
		return append(records, created), nil
	})
	if err != nil {
		return models.BatchRecord{}, err
	}
	return created, nil
}

// Update merges the provided fields into the record with the given number.
func (s *BatchStore) Update(batchNumber int, input models.UpdateBatchInput) (models.BatchRecord, error) {
	var updated models.BatchRecord
	err := s.Mutate(func(records []models.BatchRecord) ([]models.BatchRecord, error) {
		for i := range records {
			if records[i].BatchNumber != batchNumber {
				continue
			}
			if input.HoleID != nil {
				records[i].HoleID = *input.HoleID
			}
			if input.From != nil {
				records[i].From = *input.From
			}
			if input.To != nil {
				records[i].To = *input.To
			}
			if input.Machine != nil {
				records[i].Machine = *input.Machine
			}
			if input.Comments != nil {
				records[i].Comments = *input.Comments
			}
			updated = records[i]
			return records, nil
		}
		return nil, utils.ErrorRecordNotFound
	})
	if err != nil {
		return models.BatchRecord{}, err
	}
	return updated, nil
}

// Delete removes the record and renumbers the survivors contiguously.
func (s *BatchStore) Delete(batchNumber int) error {
	return s.Mutate(func(records []models.BatchRecord) ([]models.BatchRecord, error) {
		kept := make([]models.BatchRecord, 0, len(records))
		for _, r := range records {
			if r.BatchNumber != batchNumber {
				kept = append(kept, r)
			}
		}
		if len(kept) == len(records) {
			return nil, utils.ErrorRecordNotFound
		}
		return renumber(kept), nil
	})
}

func (s *BatchStore) loadLocked() ([]models.BatchRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, &StorageError{Op: "read", Path: s.path, Err: err}
	}

	var records []models.BatchRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, &StorageError{Op: "decode", Path: s.path, Err: err}
	}
	return renumber(records), nil
}

// saveLocked writes the whole document through a temp file in the same
// directory and renames it into place, so a crash mid-write never leaves a
// truncated file for the next load.
func (s *BatchStore) saveLocked(records []models.BatchRecord) error {
	if records == nil {
		records = []models.BatchRecord{}
	}
	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return &StorageError{Op: "encode", Path: s.path, Err: err}
	}
	return writeAtomic(s.path, data)
}

func renumber(records []models.BatchRecord) []models.BatchRecord {
	for i := range records {
		records[i].BatchNumber = i + 1
	}
	return records
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return &StorageError{Op: "write", Path: path, Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &StorageError{Op: "write", Path: path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &StorageError{Op: "write", Path: path, Err: err}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &StorageError{Op: "write", Path: path, Err: err}
	}
	return nil
}
