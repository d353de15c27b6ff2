package flows

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/vartikaresort/funpark-backend/internal/models"
)

// Persisted session keys
const (
	TokenKey = "token"
	UserKey  = "user"
)

// SessionStore persists the token and profile between runs
type SessionStore interface {
	Load() (string, *models.User, error)
	Save(token string, user *models.User) error
	Clear() error
}

// MemoryStore keeps the session in memory only
type MemoryStore struct {
	mu    sync.Mutex
	token string
	user  *models.User
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load() (string, *models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, copyUser(m.user), nil
}

func (m *MemoryStore) Save(token string, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = token
	m.user = copyUser(user)
	return nil
}

func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = ""
	m.user = nil
	return nil
}

// FileStore keeps the session in a JSON file with the keys "token" and "user"
type FileStore struct {
	path string
}

// NewFileStore creates a store backed by path
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Load() (string, *models.User, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return "", nil, fmt.Errorf("failed to parse session file: %w", err)
	}

	var token string
	if v, ok := raw[TokenKey]; ok {
		if err := json.Unmarshal(v, &token); err != nil {
			return "", nil, fmt.Errorf("failed to parse session token: %w", err)
		}
	}

	var user *models.User
	if v, ok := raw[UserKey]; ok && string(v) != "null" {
		user = &models.User{}
		if err := json.Unmarshal(v, user); err != nil {
			return "", nil, fmt.Errorf("failed to parse session user: %w", err)
		}
	}
	return token, user, nil
}

func (f *FileStore) Save(token string, user *models.User) error {
	data, err := json.MarshalIndent(map[string]any{TokenKey: token, UserKey: user}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}

func (f *FileStore) Clear() error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove session file: %w", err)
	}
	return nil
}

// EventKind identifies a session change
type EventKind int

const (
	EventLogin EventKind = iota + 1
	EventLogout
	EventProfileUpdated
)

// Event is delivered to subscribers after the session changes
type Event struct {
	Kind EventKind
	User *models.User
}

// Session is the single source of truth for the credential token and the
// user's profile. The presence of a token is the only authenticated signal.
type Session struct {
	mu          sync.RWMutex
	store       SessionStore
	token       string
	user        *models.User
	subscribers map[int]func(Event)
	nextID      int
}

// NewSession loads any persisted session from store
func NewSession(store SessionStore) (*Session, error) {
	token, user, err := store.Load()
	if err != nil {
		return nil, err
	}
	return &Session{
		store:       store,
		token:       token,
		user:        user,
		subscribers: make(map[int]func(Event)),
	}, nil
}

// Token returns the bearer token or an empty string
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// IsAuthenticated reports whether a token is present
func (s *Session) IsAuthenticated() bool {
	return s.Token() != ""
}

// User returns a copy of the stored profile
func (s *Session) User() (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return models.User{}, false
	}
	return *s.user, true
}

// Role returns the stored user's role; RoleRegularUser without a profile
func (s *Session) Role() models.Role {
	user, ok := s.User()
	if !ok {
		return models.RoleRegularUser
	}
	return user.Role
}

// Login stores a new token and profile
func (s *Session) Login(token string, user models.User) error {
	if token == "" {
		return errors.New("empty token")
	}
	if err := s.store.Save(token, &user); err != nil {
		return err
	}

	s.mu.Lock()
	s.token = token
	s.user = &user
	s.mu.Unlock()

	s.notify(Event{Kind: EventLogin, User: copyUser(&user)})
	return nil
}

// Logout forgets the token and profile
func (s *Session) Logout() error {
	if err := s.store.Clear(); err != nil {
		return err
	}

	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()

	s.notify(Event{Kind: EventLogout})
	return nil
}

// UpdateProfile replaces the stored profile, keeping the token
func (s *Session) UpdateProfile(user models.User) error {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()
	if token == "" {
		return errors.New("not logged in")
	}

	if err := s.store.Save(token, &user); err != nil {
		return err
	}

	s.mu.Lock()
	s.user = &user
	s.mu.Unlock()

	s.notify(Event{Kind: EventProfileUpdated, User: copyUser(&user)})
	return nil
}

// Subscribe registers fn for session events and returns a function that
// removes it. fn runs on the goroutine that changed the session.
func (s *Session) Subscribe(fn func(Event)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subscribers[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subscribers, id)
			s.mu.Unlock()
		})
	}
}

func (s *Session) notify(e Event) {
	s.mu.RLock()
	fns := make([]func(Event), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		fns = append(fns, fn)
	}
	s.mu.RUnlock()

	for _, fn := range fns {
		fn(e)
	}
}

func copyUser(u *models.User) *models.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}
