// Package session stores the conversation transcript, estimates its token
// footprint, and prunes it back under budget. Entries are append-only
// during a cycle; pruning removes or truncates entries but never reorders
// or fabricates them.
package session

import (
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// Role identifies who produced a transcript entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleSystem    Role = "system"
)

// Entry is one transcript record. ToolName and Success are only
// meaningful when Role is RoleTool.
type Entry struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	ToolName  string    `json:"tool_name,omitempty"`
	Success   bool      `json:"success"`
}

const (
	// Floors preserved by pruning: recent conversational turns are the
	// most valuable, so they are the last to go.
	minToolEntries         = 2
	minConversationEntries = 5

	// truncateFloor is the minimum content length truncation leaves.
	truncateFloor = 200

	truncationMarker = "\n... (truncated for context)"
)

// Manager holds the live transcript plus quest bookkeeping. It is not
// safe for concurrent use; the runtime is single-threaded by design.
type Manager struct {
	SessionID string
	CreatedAt time.Time

	QuestID    string
	QuestTask  string
	questStart time.Time

	entries []Entry
}

// NewManager creates an empty session with a fresh ID.
func NewManager() *Manager {
	return &Manager{
		SessionID: shortID(),
		CreatedAt: time.Now(),
	}
}

func shortID() string {
	return uuid.NewString()[:8]
}

// Add appends an entry verbatim.
func (m *Manager) Add(e Entry) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	m.entries = append(m.entries, e)
}

// AddUser appends a user entry.
func (m *Manager) AddUser(content string) {
	m.Add(Entry{Role: RoleUser, Content: content})
}

// AddAssistant appends an assistant entry.
func (m *Manager) AddAssistant(content string) {
	m.Add(Entry{Role: RoleAssistant, Content: content})
}

// AddSystem appends a system entry.
func (m *Manager) AddSystem(content string) {
	m.Add(Entry{Role: RoleSystem, Content: content})
}

// AddToolResult appends a tool-role entry describing an execution outcome.
func (m *Manager) AddToolResult(toolName string, success bool, output string) {
	status := "success"
	if !success {
		status = "error"
	}
	m.Add(Entry{
		Role:     RoleTool,
		Content:  fmt.Sprintf("[Tool: %s] (%s)\n%s", toolName, status, output),
		ToolName: toolName,
		Success:  success,
	})
}

// Entries returns the live transcript slice. Callers must not reorder it.
func (m *Manager) Entries() []Entry {
	return m.entries
}

// Len returns the number of transcript entries.
func (m *Manager) Len() int {
	return len(m.entries)
}

// EstimateTokens approximates the transcript's token footprint. Tokens are
// never measured exactly: conversational text runs about 3 chars/token,
// tool output about 5, everything else about 4, plus one structural token
// per entry.
func (m *Manager) EstimateTokens() int {
	total := 0
	for _, e := range m.entries {
		switch e.Role {
		case RoleUser, RoleAssistant:
			total += len(e.Content) / 3
		case RoleTool:
			total += len(e.Content) / 5
		default:
			total += len(e.Content) / 4
		}
	}
	return total + len(m.entries)
}

// Prune reduces the transcript until its estimate fits maxTokens, or no
// further reduction is possible. In strict order: drop the oldest tool
// entries (keeping 2), drop the oldest user/assistant entries (keeping 5),
// then repeatedly halve the longest remaining entries in place (floor 200
// chars, truncation marker appended). Surviving entries keep their order.
func (m *Manager) Prune(maxTokens int) {
	before := m.EstimateTokens()
	if before <= maxTokens {
		return
	}

	m.dropOldest(RoleTool, minToolEntries, maxTokens)
	if m.EstimateTokens() > maxTokens {
		m.dropOldestConversation(maxTokens)
	}
	if m.EstimateTokens() > maxTokens {
		m.truncateLongest(maxTokens)
	}

	log.Debug("pruned context",
		"before_tokens", before,
		"after_tokens", m.EstimateTokens(),
		"entries", len(m.entries))
}

func (m *Manager) dropOldest(role Role, keep int, maxTokens int) {
	for m.EstimateTokens() > maxTokens && m.countRole(role) > keep {
		m.removeFirst(func(e Entry) bool { return e.Role == role })
	}
}

func (m *Manager) dropOldestConversation(maxTokens int) {
	isConversation := func(e Entry) bool {
		return e.Role == RoleUser || e.Role == RoleAssistant
	}
	count := 0
	for _, e := range m.entries {
		if isConversation(e) {
			count++
		}
	}
	for m.EstimateTokens() > maxTokens && count > minConversationEntries {
		m.removeFirst(isConversation)
		count--
	}
}

func (m *Manager) countRole(role Role) int {
	n := 0
	for _, e := range m.entries {
		if e.Role == role {
			n++
		}
	}
	return n
}

func (m *Manager) removeFirst(match func(Entry) bool) {
	for i, e := range m.entries {
		if match(e) {
			m.entries = append(m.entries[:i], m.entries[i+1:]...)
			return
		}
	}
}

// truncateLongest cuts the longest entries to half their length, longest
// first, repeating the pass until under budget or nothing can shrink.
func (m *Manager) truncateLongest(maxTokens int) {
	for m.EstimateTokens() > maxTokens {
		var candidates []int
		for i, e := range m.entries {
			if len(e.Content) > truncateFloor {
				candidates = append(candidates, i)
			}
		}
		if len(candidates) == 0 {
			return
		}
		sort.Slice(candidates, func(a, b int) bool {
			return len(m.entries[candidates[a]].Content) > len(m.entries[candidates[b]].Content)
		})

		shrunk := false
		for _, idx := range candidates {
			if m.EstimateTokens() <= maxTokens {
				return
			}
			content := m.entries[idx].Content
			newLen := len(content) / 2
			if newLen < truncateFloor {
				newLen = truncateFloor
			}
			// Skip when the marker would not leave the entry any shorter.
			if newLen+len(truncationMarker) >= len(content) {
				continue
			}
			m.entries[idx].Content = content[:newLen] + truncationMarker
			shrunk = true
		}
		if !shrunk {
			return
		}
	}
}

// StartQuest records a new quest and returns its ID.
func (m *Manager) StartQuest(task string) string {
	m.QuestID = shortID()
	m.QuestTask = task
	m.questStart = time.Now()
	log.Info("quest started", "quest_id", m.QuestID, "task", truncateForLog(task))
	return m.QuestID
}

// EndQuest closes the active quest.
func (m *Manager) EndQuest(success bool) {
	if m.QuestID != "" {
		log.Info("quest ended",
			"quest_id", m.QuestID,
			"success", success,
			"duration", time.Since(m.questStart))
	}
	m.QuestID = ""
	m.QuestTask = ""
	m.questStart = time.Time{}
}

// Clear resets the transcript and assigns a fresh session ID.
func (m *Manager) Clear() {
	m.entries = nil
	m.QuestID = ""
	m.QuestTask = ""
	m.questStart = time.Time{}
	m.SessionID = shortID()
}

func truncateForLog(s string) string {
	if len(s) > 50 {
		return s[:50] + "..."
	}
	return s
}
