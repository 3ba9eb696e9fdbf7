package session

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimateTokensByRole(t *testing.T) {
	m := NewManager()
	m.AddUser(strings.Repeat("a", 30))      // 30/3 = 10
	m.AddToolResult("read", true, "")       // content "[Tool: read] (success)\n" -> 23/5 = 4
	m.AddSystem(strings.Repeat("b", 40))    // 40/4 = 10
	m.AddAssistant(strings.Repeat("c", 9))  // 9/3 = 3

	// Per-entry overhead of 1 token, 4 entries.
	expected := 10 + len("[Tool: read] (success)\n")/5 + 10 + 3 + 4
	assert.Equal(t, expected, m.EstimateTokens())
}

func TestPruneNoOpWithinBudget(t *testing.T) {
	m := NewManager()
	m.AddUser("short")
	m.AddAssistant("also short")

	before := len(m.Entries())
	m.Prune(100000)
	assert.Equal(t, before, len(m.Entries()))
}

func TestPruneDropsOldestToolEntriesFirst(t *testing.T) {
	m := NewManager()
	big := strings.Repeat("x", 3000)
	m.AddToolResult("read", true, big)
	m.AddToolResult("grep", true, big)
	m.AddToolResult("find", true, big)
	m.AddToolResult("shell", true, big)
	m.AddUser("keep me")
	m.AddAssistant("and me")

	m.Prune(1500)

	var toolNames []string
	for _, e := range m.Entries() {
		if e.Role == RoleTool {
			toolNames = append(toolNames, e.ToolName)
		}
	}
	// Oldest tool entries removed first, floor of 2 preserved.
	require.Len(t, toolNames, 2)
	assert.Equal(t, []string{"find", "shell"}, toolNames)
}

func TestPrunePreservesFloorsAndOrder(t *testing.T) {
	m := NewManager()
	big := strings.Repeat("z", 5000)
	for i := 0; i < 4; i++ {
		m.AddToolResult("read", true, big)
	}
	for i := 0; i < 8; i++ {
		if i%2 == 0 {
			m.AddUser(big)
		} else {
			m.AddAssistant(big)
		}
	}

	budget := 10
	m.Prune(budget)

	tools, conversation := 0, 0
	for _, e := range m.Entries() {
		switch e.Role {
		case RoleTool:
			tools++
		case RoleUser, RoleAssistant:
			conversation++
		}
	}

	// Either within budget, or the floors held and remaining reduction
	// came from truncation alone.
	if m.EstimateTokens() > budget {
		assert.Equal(t, 2, tools)
		assert.Equal(t, 5, conversation)
		for _, e := range m.Entries() {
			assert.LessOrEqual(t, len(e.Content), truncateFloor+len(truncationMarker))
		}
	}

	// Tool entries still precede conversation entries: order preserved.
	lastTool := -1
	firstConversation := len(m.Entries())
	for i, e := range m.Entries() {
		if e.Role == RoleTool && i > lastTool {
			lastTool = i
		}
		if (e.Role == RoleUser || e.Role == RoleAssistant) && i < firstConversation {
			firstConversation = i
		}
	}
	assert.Less(t, lastTool, firstConversation)
}

func TestPruneTruncatesLongestFirst(t *testing.T) {
	m := NewManager()
	// Stay at the floors so only truncation can reduce.
	m.AddToolResult("read", true, "small")
	m.AddToolResult("grep", true, "small")
	m.AddUser(strings.Repeat("u", 10000))
	m.AddAssistant("tiny")
	m.AddUser("tiny")
	m.AddAssistant("tiny")
	m.AddUser("tiny")

	m.Prune(500)

	entries := m.Entries()
	assert.Contains(t, entries[2].Content, truncationMarker)
	assert.Equal(t, "tiny", entries[3].Content, "short entries are never touched")
	assert.LessOrEqual(t, m.EstimateTokens(), 500)
}

func TestPruneNeverFabricates(t *testing.T) {
	m := NewManager()
	original := strings.Repeat("q", 4000)
	m.AddUser(original)

	m.Prune(10)

	entries := m.Entries()
	require.Len(t, entries, 1)
	body := strings.TrimSuffix(entries[0].Content, truncationMarker)
	assert.True(t, strings.HasPrefix(original, body), "truncated content must be a prefix of the original")
}

func TestQuestLifecycle(t *testing.T) {
	m := NewManager()
	id := m.StartQuest("refactor the parser")

	assert.NotEmpty(t, id)
	assert.Len(t, id, 8)
	assert.Equal(t, id, m.QuestID)
	assert.Equal(t, "refactor the parser", m.QuestTask)

	m.EndQuest(true)
	assert.Empty(t, m.QuestID)
	assert.Empty(t, m.QuestTask)
}

func TestClearResetsIdentity(t *testing.T) {
	m := NewManager()
	oldID := m.SessionID
	m.AddUser("hello")

	m.Clear()

	assert.Empty(t, m.Entries())
	assert.NotEqual(t, oldID, m.SessionID)
}

func TestStoreRoundTrip(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	m := NewManager()
	m.StartQuest("write tests")
	m.AddUser("please write tests")
	m.AddAssistant("on it")
	m.AddToolResult("write", true, "wrote foo_test.go")

	path, err := store.Save(m)
	require.NoError(t, err)
	require.FileExists(t, path)

	loaded := store.Load(strings.TrimPrefix(path, store.dir+"/"))
	assert.Equal(t, m.SessionID, loaded.SessionID)
	assert.Equal(t, m.QuestID, loaded.QuestID)
	assert.Equal(t, m.QuestTask, loaded.QuestTask)
	require.Len(t, loaded.Entries(), 3)
	assert.Equal(t, m.Entries()[2].ToolName, loaded.Entries()[2].ToolName)
	assert.Equal(t, m.Entries()[2].Success, loaded.Entries()[2].Success)
	assert.Equal(t, m.Entries()[0].Content, loaded.Entries()[0].Content)
}

func TestStoreLoadMissingDegradesToFresh(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	m := store.Load("session_nope.json")
	require.NotNil(t, m)
	assert.Empty(t, m.Entries())
	assert.NotEmpty(t, m.SessionID)
}

func TestStoreLoadMostRecent(t *testing.T) {
	store, err := NewStore(t.TempDir())
	require.NoError(t, err)

	first := NewManager()
	first.AddUser("older")
	_, err = store.Save(first)
	require.NoError(t, err)

	second := NewManager()
	second.CreatedAt = first.CreatedAt.Add(1)
	second.AddUser("newer")
	_, err = store.Save(second)
	require.NoError(t, err)

	loaded := store.LoadMostRecent()
	require.Len(t, loaded.Entries(), 1)
	assert.Equal(t, "newer", loaded.Entries()[0].Content)
}
