package browser

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-json-experiment/json"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionInfo is what surf remembers about a persistent browser between runs.
type SessionInfo struct {
	WSURL    string `json:"ws_url"`
	Profile  string `json:"profile"`
	Headful  bool   `json:"headful"`
	PID      int    `json:"pid"`
	TargetID string `json:"target_id"`
	Engine   string `json:"engine,omitempty"`
}

// Store keeps one JSON file per named session under <home>/sessions.
type Store struct {
	dir string
}

func NewStore(home string) *Store {
	return &Store{dir: filepath.Join(home, "sessions")}
}

func (s *Store) path(name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid session name %q", name)
	}
	return filepath.Join(s.dir, name+".json"), nil
}

func (s *Store) Save(name string, info SessionInfo) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(info)
	if err != nil {
		return err
	}
	return os.WriteFile(p, data, 0o644)
}

func (s *Store) Load(name string) (*SessionInfo, error) {
	p, err := s.path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("session %q: %w", name, ErrSessionNotFound)
	}
	if err != nil {
		return nil, err
	}
	var info SessionInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("session %q: %w", name, err)
	}
	return &info, nil
}

func (s *Store) Remove(name string) error {
	p, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("session %q: %w", name, ErrSessionNotFound)
	} else if err != nil {
		return err
	}
	return nil
}

// List returns the stored session names in lexical order.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	slices.Sort(names)
	return names, nil
}
