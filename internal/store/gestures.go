package store

import (
	"embed"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/ayusman/librasctl/internal/gesture"
)

//go:embed seed/*.json
var seedFS embed.FS

// File names inside the data directory.
const (
	LibraryFile = "libras_gestos.json"
	CustomFile  = "custom_gestos.json"
	BindsFile   = "binds_salvas.json"
)

var emptyGestureFile = []byte(`{"data_gestos": {}, "atributos_relevantes": {}}`)

// ErrGestureExists is returned when saving a custom gesture under a taken name
// without the overwrite flag.
var ErrGestureExists = errors.New("gesture already exists")

// ErrNotFound is returned when a named record does not exist.
var ErrNotFound = errors.New("not found")

// gestureFile is the on-disk shape of a gesture database.
type gestureFile struct {
	Gestures map[string]gesture.Vector `json:"data_gestos"`
	Relevant map[string][]string       `json:"atributos_relevantes"`
}

func (f gestureFile) database() (*gesture.Database, error) {
	defs := make([]gesture.Definition, 0, len(f.Gestures))
	for name, v := range f.Gestures {
		def := gesture.Definition{Name: name, Features: v}
		for _, s := range f.Relevant[name] {
			k, err := gesture.ParseKey(s)
			if err != nil {
				return nil, fmt.Errorf("gesture %q: %w", name, err)
			}
			def.Relevant = append(def.Relevant, k)
		}
		defs = append(defs, def)
	}
	return gesture.NewDatabase(defs...)
}

// GestureStore holds the library (right hand) and custom (left hand) gesture
// databases. Readers get immutable snapshots; saves swap them atomically.
type GestureStore struct {
	libraryPath string
	customPath  string

	mu      sync.Mutex // serializes custom file writes
	library atomic.Pointer[gesture.Database]
	custom  atomic.Pointer[gesture.Database]
}

// NewGestureStore opens the gesture files in dir, seeding the library from the
// built-in defaults and the custom set as empty when they are missing.
func NewGestureStore(dir string) (*GestureStore, error) {
	seed, err := seedFS.ReadFile("seed/" + LibraryFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed library: %w", err)
	}

	s := &GestureStore{
		libraryPath: filepath.Join(dir, LibraryFile),
		customPath:  filepath.Join(dir, CustomFile),
	}
	if err := ensureFile(s.libraryPath, seed); err != nil {
		return nil, fmt.Errorf("failed to create library file: %w", err)
	}
	if err := ensureFile(s.customPath, emptyGestureFile); err != nil {
		return nil, fmt.Errorf("failed to create custom file: %w", err)
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads both files from disk.
func (s *GestureStore) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	lib, err := loadDatabase(s.libraryPath)
	if err != nil {
		return fmt.Errorf("failed to load library gestures: %w", err)
	}
	custom, err := loadDatabase(s.customPath)
	if err != nil {
		return fmt.Errorf("failed to load custom gestures: %w", err)
	}
	s.library.Store(lib)
	s.custom.Store(custom)
	return nil
}

func loadDatabase(path string) (*gesture.Database, error) {
	var f gestureFile
	if err := readJSON(path, &f); err != nil {
		return nil, err
	}
	return f.database()
}

// Library returns the current right-hand database.
func (s *GestureStore) Library() *gesture.Database {
	return s.library.Load()
}

// Custom returns the current left-hand database.
func (s *GestureStore) Custom() *gesture.Database {
	return s.custom.Load()
}

// Lookup finds a gesture by name in either database, library first.
func (s *GestureStore) Lookup(name string) (gesture.Definition, bool) {
	if def, ok := s.Library().Lookup(name); ok {
		return def, true
	}
	return s.Custom().Lookup(name)
}

// SaveCustom adds or replaces a custom gesture. Names already used by the
// library are rejected, as are taken custom names unless overwrite is set.
func (s *GestureStore) SaveCustom(def gesture.Definition, overwrite bool) error {
	if def.Name == "" {
		return fmt.Errorf("gesture name is required")
	}
	if _, ok := s.Library().Lookup(def.Name); ok {
		return fmt.Errorf("%q is a library gesture: %w", def.Name, ErrGestureExists)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.readCustom()
	if err != nil {
		return err
	}
	if _, ok := f.Gestures[def.Name]; ok && !overwrite {
		return fmt.Errorf("%q: %w", def.Name, ErrGestureExists)
	}

	f.Gestures[def.Name] = def.Features
	relevant := make([]string, len(def.Relevant))
	for i, k := range def.Relevant {
		relevant[i] = string(k)
	}
	f.Relevant[def.Name] = relevant

	return s.commitCustom(f)
}

// RemoveCustom deletes a custom gesture.
func (s *GestureStore) RemoveCustom(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.readCustom()
	if err != nil {
		return err
	}
	if _, ok := f.Gestures[name]; !ok {
		return fmt.Errorf("custom gesture %q: %w", name, ErrNotFound)
	}
	delete(f.Gestures, name)
	delete(f.Relevant, name)

	return s.commitCustom(f)
}

// readCustom reads the custom file fresh so concurrent external edits are not
// overwritten with a stale copy.
func (s *GestureStore) readCustom() (gestureFile, error) {
	var f gestureFile
	if err := readJSON(s.customPath, &f); err != nil {
		return f, fmt.Errorf("failed to read custom gestures: %w", err)
	}
	if f.Gestures == nil {
		f.Gestures = map[string]gesture.Vector{}
	}
	if f.Relevant == nil {
		f.Relevant = map[string][]string{}
	}
	return f, nil
}

func (s *GestureStore) commitCustom(f gestureFile) error {
	db, err := f.database()
	if err != nil {
		return err
	}
	if err := writeJSON(s.customPath, f); err != nil {
		return fmt.Errorf("failed to save custom gestures: %w", err)
	}
	s.custom.Store(db)
	return nil
}
