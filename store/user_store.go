package store

import (
	"encoding/json"
	"os"
	"sync"

	"bitbucket.org/wescanlabs/corescan_backend/models"
	"bitbucket.org/wescanlabs/corescan_backend/utils"
)

// UserStore owns the users document, a JSON object keyed by username.
type UserStore struct {
	mu   sync.Mutex
	path string
}

func NewUserStore(path string) *UserStore {
	return &UserStore{path: path}
}

func (s *UserStore) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return &StorageError{Op: "stat", Path: s.path, Err: err}
	}
	return s.saveLocked(map[string]models.User{})
}

func (s *UserStore) Load() (map[string]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

// Create adds a user with a bcrypt-hashed password. Duplicate usernames are
// rejected.
func (s *UserStore) Create(username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadLocked()
	if err != nil {
		return err
	}
	if _, exists := users[username]; exists {
		return utils.ErrorUserExists
	}

	hashed, err := utils.HashPassword(password)
	if err != nil {
		return err
	}
	users[username] = models.User{
		Password:  string(hashed),
		CreatedAt: models.NewTimestamp(),
	}
	return s.saveLocked(users)
}

// Authenticate checks a username/password pair against the stored hash.
func (s *UserStore) Authenticate(username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadLocked()
	if err != nil {
		return err
	}
	user, exists := users[username]
	if !exists {
		return utils.ErrorRecordNotFound
	}
	return utils.ComparePassword(user.Password, password)
}

func (s *UserStore) loadLocked() (map[string]models.User, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, &StorageError{Op: "read", Path: s.path, Err: err}
	}
	var users map[string]models.User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, &StorageError{Op: "decode", Path: s.path, Err: err}
	}
	if users == nil {
		users = map[string]models.User{}
	}
	return users, nil
}

func (s *UserStore) saveLocked(users map[string]models.User) error {
	data, err := json.MarshalIndent(users, "", "    ")
	if err != nil {
		return &StorageError{Op: "encode", Path: s.path, Err: err}
	}
	return writeAtomic(s.path, data)
}
