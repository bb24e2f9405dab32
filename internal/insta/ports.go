package insta

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound — строка не найдена, это не сбой.
var ErrNotFound = errors.New("insta: not found")

type Plan string

const (
	PlanFree Plan = "FREE"
	PlanPro  Plan = "PRO"
)

type ListenerMode string

const (
	ListenerStatic ListenerMode = "STATIC"
	ListenerAI     ListenerMode = "SMARTAI"
)

type TriggerType string

const (
	TriggerComment TriggerType = "COMMENT"
	TriggerDM      TriggerType = "DM"
)

type Integration struct {
	ID          int64
	AccountID   string
	Token       string
	ExpiresAt   time.Time
	InstagramID string
}

type Listener struct {
	ID           int64
	AutomationID string
	Mode         ListenerMode
	Prompt       string
	CommentReply string
	CommentCount int64
	DMCount      int64
}

type Keyword struct {
	ID           int64
	AutomationID string
	Word         string
}

type Automation struct {
	ID           string
	AccountID    string
	Name         string
	Active       bool
	Plan         Plan
	Triggers     []TriggerType
	Listener     *Listener
	Integrations []Integration
	CreatedAt    time.Time
}

type ChatMessage struct {
	ID           int64
	AutomationID string
	SenderID     string
	ReceiverID   string
	Message      string
	CreatedAt    time.Time
}

type IntentKind string

const (
	IntentCommentReply IntentKind = "COMMENT_REPLY"
	IntentDM           IntentKind = "DM"
)

type DispatchIntent struct {
	ID        string
	EventID   string
	Kind      IntentKind
	CreatedAt time.Time
}

// Outcome — итог обработки одного webhook. Всегда уходит наружу как 200.
type Outcome string

const (
	OutcomeCommentProcessed Outcome = "Comment processed"
	OutcomeMessageProcessed Outcome = "Message processed"
	OutcomeDuplicate        Outcome = "Duplicate event"
	OutcomeNoAutomation     Outcome = "No automation found"
	OutcomeInvalidToken     Outcome = "Invalid token"
	OutcomeIgnored          Outcome = "Ignored"
	OutcomeInvalidPayload   Outcome = "Invalid payload"
)

// Store — persistence, заполняется внешним дашбордом
type Store interface {
	AutomationByPost(ctx context.Context, postID string) (*Automation, error)
	AutomationByID(ctx context.Context, id string) (*Automation, error)
	KeywordByText(ctx context.Context, text string) (*Keyword, error)
	RecentAutomationByInstagramID(ctx context.Context, instagramID string) (*Automation, error)

	ChatHistory(ctx context.Context, a, b string) ([]ChatMessage, error)
	SaveChatMessage(ctx context.Context, msg *ChatMessage) error

	AddCommentResponse(ctx context.Context, listenerID int64) error
	AddDMResponse(ctx context.Context, listenerID int64) error

	CreateIntent(ctx context.Context, in *DispatchIntent) error
	CompleteIntent(ctx context.Context, id string) error
}

type DedupStore interface {
	ClaimEvent(ctx context.Context, eventID string, expiresAt time.Time) (bool, error)
	PurgeExpired(ctx context.Context) (int64, error)
}

type Outbound interface {
	ReplyToComment(ctx context.Context, commentID, text, token string) error
	SendDM(ctx context.Context, fromID, toID, text, token string) error
	ProbeToken(ctx context.Context, token string) bool
}

type Service interface {
	HandleWebhook(ctx context.Context, p *WebhookPayload) Outcome
}
