package insta

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/junaidulhaq9898/blacckainew-sub000/internal/ai"
)

type mockStore struct {
	mu sync.Mutex

	autosByPost map[string]*Automation
	autosByID   map[string]*Automation
	keywords    map[string]*Keyword
	recentByIG  map[string]*Automation
	history     []ChatMessage

	saved          []ChatMessage
	commentCounts  map[int64]int
	dmCounts       map[int64]int
	intents        []*DispatchIntent
	completed      []string
	keywordLookups []string
}

func newMockStore() *mockStore {
	return &mockStore{
		autosByPost:   map[string]*Automation{},
		autosByID:     map[string]*Automation{},
		keywords:      map[string]*Keyword{},
		recentByIG:    map[string]*Automation{},
		commentCounts: map[int64]int{},
		dmCounts:      map[int64]int{},
	}
}

func (m *mockStore) AutomationByPost(_ context.Context, postID string) (*Automation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.autosByPost[postID]; ok {
		return a, nil
	}
	return nil, ErrNotFound
}

func (m *mockStore) AutomationByID(_ context.Context, id string) (*Automation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.autosByID[id]; ok {
		return a, nil
	}
	return nil, ErrNotFound
}

func (m *mockStore) KeywordByText(_ context.Context, text string) (*Keyword, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keywordLookups = append(m.keywordLookups, text)
	if k, ok := m.keywords[strings.ToLower(text)]; ok {
		return k, nil
	}
	return nil, ErrNotFound
}

func (m *mockStore) RecentAutomationByInstagramID(_ context.Context, igID string) (*Automation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if a, ok := m.recentByIG[igID]; ok {
		return a, nil
	}
	return nil, ErrNotFound
}

func (m *mockStore) ChatHistory(_ context.Context, a, b string) ([]ChatMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ChatMessage
	for _, msg := range m.history {
		if (msg.SenderID == a && msg.ReceiverID == b) || (msg.SenderID == b && msg.ReceiverID == a) {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *mockStore) SaveChatMessage(_ context.Context, msg *ChatMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, *msg)
	return nil
}

func (m *mockStore) AddCommentResponse(_ context.Context, listenerID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commentCounts[listenerID]++
	return nil
}

func (m *mockStore) AddDMResponse(_ context.Context, listenerID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dmCounts[listenerID]++
	return nil
}

func (m *mockStore) CreateIntent(_ context.Context, in *DispatchIntent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intents = append(m.intents, in)
	return nil
}

func (m *mockStore) CompleteIntent(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completed = append(m.completed, id)
	return nil
}

type dmCall struct {
	from, to, text, token string
}

type mockOutbound struct {
	mu sync.Mutex

	probeFail bool
	replyErr  error
	dmErr     error

	comments []dmCall
	dms      []dmCall
	probes   int
}

func (m *mockOutbound) ReplyToComment(_ context.Context, commentID, text, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.replyErr != nil {
		return m.replyErr
	}
	m.comments = append(m.comments, dmCall{to: commentID, text: text, token: token})
	return nil
}

func (m *mockOutbound) SendDM(_ context.Context, fromID, toID, text, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dmErr != nil {
		return m.dmErr
	}
	m.dms = append(m.dms, dmCall{from: fromID, to: toID, text: text, token: token})
	return nil
}

func (m *mockOutbound) ProbeToken(_ context.Context, _ string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probes++
	return !m.probeFail
}

type mockAI struct {
	mu sync.Mutex

	reply string
	err   error

	calls      int
	lastSystem string
	lastTurns  []ai.Message
}

func (m *mockAI) GetReply(_ context.Context, system string, turns []ai.Message) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.lastSystem = system
	m.lastTurns = turns
	return m.reply, m.err
}

type memDedup struct {
	mu     sync.Mutex
	claims map[string]time.Time
	err    error
}

func newMemDedup() *memDedup {
	return &memDedup{claims: map[string]time.Time{}}
}

func (m *memDedup) ClaimEvent(_ context.Context, eventID string, expiresAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	if exp, ok := m.claims[eventID]; ok && exp.After(time.Now()) {
		return false, nil
	}
	m.claims[eventID] = expiresAt
	return true, nil
}

func (m *memDedup) PurgeExpired(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, exp := range m.claims {
		if exp.Before(time.Now()) {
			delete(m.claims, id)
			n++
		}
	}
	return n, nil
}

var errBoom = errors.New("boom")

func testAutomation(id string, plan Plan, mode ListenerMode) *Automation {
	return &Automation{
		ID:        id,
		AccountID: "acct-" + id,
		Active:    true,
		Plan:      plan,
		Listener: &Listener{
			ID:           1,
			AutomationID: id,
			Mode:         mode,
			Prompt:       "Thanks!",
			CommentReply: "Thanks!",
		},
		Integrations: []Integration{
			{ID: 1, AccountID: "acct-" + id, Token: "tok-" + id, InstagramID: "page1"},
		},
		CreatedAt: time.Now(),
	}
}

func newTestService(store *mockStore, outbound *mockOutbound, aiClient ai.AI, dedup DedupStore) Service {
	log := zap.NewNop()
	return NewService(
		NewResolver(store, log),
		NewResponder(aiClient, store, log),
		NewDispatcher(store, outbound, log),
		NewDedupGuard(dedup, time.Hour, log),
		outbound,
		log,
	)
}
