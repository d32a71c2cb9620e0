// Package conversation holds the per-conversation mutable state: the bounded
// turn history used to seed query condensation, and the exchange accumulator
// used to format recent context. State is never shared across conversations;
// within one conversation the Manager tolerates concurrent requests.
package conversation

import (
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// Role is the closed set of turn authors.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single immutable conversation turn.
type Turn struct {
	Role      Role
	Content   string
	Timestamp string // ISO-8601
}

// MaxTurnContentLen bounds the content carried per turn, counted in runes to
// match the request validation limit. Longer content is truncated, not
// rejected, so stale oversized history cannot fail a request.
const MaxTurnContentLen = 4096

// NewTurn creates a turn stamped with the current time. Content beyond
// MaxTurnContentLen is truncated on a rune boundary.
func NewTurn(role Role, content string) Turn {
	if utf8.RuneCountInString(content) > MaxTurnContentLen {
		content = string([]rune(content)[:MaxTurnContentLen])
	}
	return Turn{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// History is an ordered, capacity-bounded sequence of turns. Eviction is
// FIFO on the oldest turn.
type History struct {
	capacity int
	turns    []Turn
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = 10
	}
	return &History{capacity: capacity}
}

// Add appends a turn, evicting the oldest when over capacity.
func (h *History) Add(turn Turn) {
	h.turns = append(h.turns, turn)
	if len(h.turns) > h.capacity {
		h.turns = h.turns[len(h.turns)-h.capacity:]
	}
}

func (h *History) Len() int {
	return len(h.turns)
}

func (h *History) Empty() bool {
	return len(h.turns) == 0
}

// Turns returns the retained turns in insertion order.
func (h *History) Turns() []Turn {
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

// Format renders the history as alternating "User:"/"Assistant:" lines for
// inclusion in a condensation prompt.
func (h *History) Format() string {
	var b strings.Builder
	for i, turn := range h.turns {
		label := "User"
		if turn.Role == RoleAssistant {
			label = "Assistant"
		}
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(fmt.Sprintf("%s: %s", label, turn.Content))
	}
	return b.String()
}

// Manager accumulates completed user/assistant exchanges for one logical
// conversation. Capacity-bounded, oldest exchange evicted first. Safe for
// concurrent use: parallel requests can carry the same conversation id.
type Manager struct {
	mu         sync.Mutex
	maxHistory int
	history    []exchange
}

type exchange struct {
	User      string
	Bot       string
	Timestamp time.Time
}

// contextWindow is how many recent exchanges GetContext looks back over.
const contextWindow = 5

func NewManager(maxHistory int) *Manager {
	if maxHistory <= 0 {
		maxHistory = 10
	}
	return &Manager{maxHistory: maxHistory}
}

// AddExchange records a completed user/bot exchange.
func (m *Manager) AddExchange(userInput, botResponse string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.history = append(m.history, exchange{
		User:      userInput,
		Bot:       botResponse,
		Timestamp: time.Now(),
	})

	// Keep only recent history
	if len(m.history) > m.maxHistory {
		m.history = m.history[len(m.history)-m.maxHistory:]
	}
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.history)
}

// ContextHistory converts the most recent exchanges into a turn history for
// condensation. Same window as GetContext.
func (m *Manager) ContextHistory(capacity int) *History {
	m.mu.Lock()
	defer m.mu.Unlock()

	h := NewHistory(capacity)
	start := 0
	if len(m.history) > contextWindow {
		start = len(m.history) - contextWindow
	}
	for _, ex := range m.history[start:] {
		h.Add(NewTurn(RoleUser, ex.User))
		h.Add(NewTurn(RoleAssistant, ex.Bot))
	}
	return h
}

// GetContext formats the most recent exchanges as alternating
// "User:"/"Assistant:" lines. Empty string when no history exists.
func (m *Manager) GetContext() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.history) == 0 {
		return ""
	}

	start := 0
	if len(m.history) > contextWindow {
		start = len(m.history) - contextWindow
	}

	var parts []string
	for _, ex := range m.history[start:] {
		parts = append(parts, fmt.Sprintf("User: %s", ex.User))
		parts = append(parts, fmt.Sprintf("Assistant: %s", ex.Bot))
	}
	return strings.Join(parts, "\n")
}
