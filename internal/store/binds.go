package store

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
)

// MaxHoldSeconds bounds how long a bind may keep its input pressed.
const MaxHoldSeconds = 60

var (
	// ErrBindExists is returned when adding a bind for a gesture that already
	// has one without the overwrite flag.
	ErrBindExists = errors.New("bind already exists")
	// ErrInvalidHold is returned for a hold time outside [0, MaxHoldSeconds].
	ErrInvalidHold = errors.New("invalid hold time")
)

// Bind maps a gesture to an input.
type Bind struct {
	Bind         string  `json:"bind"`
	Toggle       bool    `json:"modo_toggle"`
	Hold         float64 `json:"tempo_pressionado"`
	Customizable bool    `json:"customizable"`
}

// BindStore persists gesture binds. Every mutation re-reads the file under the
// lock before writing it back.
type BindStore struct {
	path string
	mu   sync.Mutex
}

// NewBindStore opens the bind file in dir, seeding it when missing.
func NewBindStore(dir string) (*BindStore, error) {
	seed, err := seedFS.ReadFile("seed/" + BindsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed binds: %w", err)
	}
	s := &BindStore{path: filepath.Join(dir, BindsFile)}
	if err := ensureFile(s.path, seed); err != nil {
		return nil, fmt.Errorf("failed to create bind file: %w", err)
	}
	if _, err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *BindStore) load() (map[string]Bind, error) {
	binds := map[string]Bind{}
	if err := readJSON(s.path, &binds); err != nil {
		return nil, fmt.Errorf("failed to read binds: %w", err)
	}
	return binds, nil
}

// Get returns the bind for a gesture.
func (s *BindStore) Get(name string) (Bind, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	binds, err := s.load()
	if err != nil {
		return Bind{}, false, err
	}
	b, ok := binds[name]
	return b, ok, nil
}

// All returns every bind keyed by gesture name.
func (s *BindStore) All() (map[string]Bind, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Names returns the bound gesture names in sorted order.
func (s *BindStore) Names() ([]string, error) {
	binds, err := s.All()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(binds))
	for name := range binds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Exists reports whether name has a bind.
func (s *BindStore) Exists(name string) (bool, error) {
	_, ok, err := s.Get(name)
	return ok, err
}

// Add stores a bind for name. An existing bind is only replaced when overwrite
// is set, and keeps its customizable flag; new binds are customizable.
func (s *BindStore) Add(name, bind string, hold float64, toggle, overwrite bool) error {
	if name == "" {
		return fmt.Errorf("gesture name is required")
	}
	if hold < 0 || hold > MaxHoldSeconds {
		return fmt.Errorf("%v seconds: %w", hold, ErrInvalidHold)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	binds, err := s.load()
	if err != nil {
		return err
	}

	customizable := true
	if prev, ok := binds[name]; ok {
		if !overwrite {
			return fmt.Errorf("%q: %w", name, ErrBindExists)
		}
		customizable = prev.Customizable
	}
	binds[name] = Bind{Bind: bind, Toggle: toggle, Hold: hold, Customizable: customizable}

	if err := writeJSON(s.path, binds); err != nil {
		return fmt.Errorf("failed to save binds: %w", err)
	}
	return nil
}

// Remove deletes the bind for name. Removing a missing bind is not an error.
func (s *BindStore) Remove(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	binds, err := s.load()
	if err != nil {
		return err
	}
	if _, ok := binds[name]; !ok {
		return nil
	}
	delete(binds, name)

	if err := writeJSON(s.path, binds); err != nil {
		return fmt.Errorf("failed to save binds: %w", err)
	}
	return nil
}
