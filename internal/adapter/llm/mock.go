package llm

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/goccy/go-json"
)

var candidateLine = regexp.MustCompile(`(?m)^Product \d+: .*\(ID: ([^)\s]+)\)\s*$`)

// MockLLM replays scripted replies in order. Once the script is exhausted it
// answers with a well-formed list built from the candidate ids in the prompt,
// which makes it usable as an offline stand-in.
type MockLLM struct {
	mu      sync.Mutex
	replies []Reply
	prompts []string
	count   int
}

// Reply is one scripted answer. A non-nil Err is returned instead of Text.
type Reply struct {
	Text string
	Err  error
}

func NewMockLLM(replies ...Reply) *MockLLM {
	return &MockLLM{replies: replies}
}

func (m *MockLLM) GenerateWithSystem(ctx context.Context, system, user string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.prompts = append(m.prompts, user)
	m.count++
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if len(m.replies) > 0 {
		r := m.replies[0]
		m.replies = m.replies[1:]
		return r.Text, r.Err
	}
	return echoCandidates(user, 5)
}

// Calls returns how many times the model was called.
func (m *MockLLM) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.count
}

// Prompts returns the user prompts received so far.
func (m *MockLLM) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.prompts...)
}

func (m *MockLLM) ModelName() string {
	return "mock"
}

type echoEntry struct {
	ProductID      string  `json:"product_id"`
	RelevanceScore float64 `json:"relevance_score"`
	Explanation    string  `json:"explanation"`
}

func echoCandidates(prompt string, limit int) (string, error) {
	var entries []echoEntry
	seen := make(map[string]struct{})
	for _, m := range candidateLine.FindAllStringSubmatch(prompt, -1) {
		id := strings.TrimSpace(m[1])
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		entries = append(entries, echoEntry{
			ProductID:      id,
			RelevanceScore: 1 - float64(len(entries))*0.1,
			Explanation:    fmt.Sprintf("Candidate %d from the retrieval step.", len(entries)+1),
		})
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	if entries == nil {
		entries = []echoEntry{}
	}
	data, err := json.Marshal(entries)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
