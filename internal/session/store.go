package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/charmbracelet/log"
)

// persisted is the on-disk session shape. It round-trips without loss.
type persisted struct {
	SessionID string    `json:"session_id"`
	CreatedAt time.Time `json:"created_at"`
	QuestID   string    `json:"quest_id,omitempty"`
	QuestTask string    `json:"quest_task,omitempty"`
	Messages  []Entry   `json:"messages"`
	SavedAt   time.Time `json:"saved_at"`
}

// Info summarizes a stored session file.
type Info struct {
	Filename     string
	SessionID    string
	CreatedAt    time.Time
	QuestTask    string
	MessageCount int
}

// Store persists sessions as whole JSON files under a directory.
// Files are read-modify-written whole; concurrent writers are out of scope.
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create sessions dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save writes the manager's state to a timestamped file and returns its path.
func (s *Store) Save(m *Manager) (string, error) {
	data, err := json.MarshalIndent(persisted{
		SessionID: m.SessionID,
		CreatedAt: m.CreatedAt,
		QuestID:   m.QuestID,
		QuestTask: m.QuestTask,
		Messages:  m.entries,
		SavedAt:   time.Now(),
	}, "", "  ")
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("session_%s_%s.json", m.SessionID, time.Now().Format("20060102_150405"))
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	log.Info("session saved", "path", path, "messages", len(m.entries))
	return path, nil
}

// Load reads a session file into a fresh Manager. A missing or corrupt
// file degrades to a new empty session rather than failing the process.
func (s *Store) Load(filename string) *Manager {
	m := NewManager()

	data, err := os.ReadFile(filepath.Join(s.dir, filename))
	if err != nil {
		log.Warn("session not loaded, starting fresh", "file", filename, "err", err)
		return m
	}
	var p persisted
	if err := json.Unmarshal(data, &p); err != nil {
		log.Warn("corrupt session file, starting fresh", "file", filename, "err", err)
		return m
	}

	if p.SessionID != "" {
		m.SessionID = p.SessionID
	}
	if !p.CreatedAt.IsZero() {
		m.CreatedAt = p.CreatedAt
	}
	m.QuestID = p.QuestID
	m.QuestTask = p.QuestTask
	m.entries = p.Messages
	log.Info("session loaded", "file", filename, "messages", len(m.entries))
	return m
}

// LoadMostRecent loads the newest stored session, or a fresh one when the
// store is empty.
func (s *Store) LoadMostRecent() *Manager {
	infos, err := s.List()
	if err != nil || len(infos) == 0 {
		return NewManager()
	}
	return s.Load(infos[0].Filename)
}

// List returns stored sessions, newest first. Unreadable files are skipped.
func (s *Store) List() ([]Info, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "session_*.json"))
	if err != nil {
		return nil, err
	}

	var infos []Info
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var p persisted
		if err := json.Unmarshal(data, &p); err != nil {
			continue
		}
		infos = append(infos, Info{
			Filename:     filepath.Base(path),
			SessionID:    p.SessionID,
			CreatedAt:    p.CreatedAt,
			QuestTask:    p.QuestTask,
			MessageCount: len(p.Messages),
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.After(infos[j].CreatedAt)
	})
	return infos, nil
}
