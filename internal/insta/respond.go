package insta

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/junaidulhaq9898/blacckainew-sub000/internal/ai"
)

// MaxReplyLen — жёсткий лимит исходящего текста.
const MaxReplyLen = 50

// FallbackGreeting replaces the reply whenever generation fails or comes
// back empty. A broken AI call narrows the text, it never aborts the event.
const FallbackGreeting = "Hello! Thanks for reaching out :)"

// Truncate cuts text over the limit to 47 chars plus an ellipsis. Applying
// it to an already short string is a no-op.
func Truncate(s string) string {
	if len(s) <= MaxReplyLen {
		return s
	}
	return s[:MaxReplyLen-3] + "..."
}

// Responder decides between the listener's canned text and an AI-composed
// reply, gated by the owning account's plan.
type Responder struct {
	ai    ai.AI
	store Store
	log   *zap.Logger
}

func NewResponder(aiClient ai.AI, store Store, log *zap.Logger) *Responder {
	return &Responder{ai: aiClient, store: store, log: log}
}

// CommentDM builds the DM half of the comment pipeline. The keyword lookup
// over the comment text runs before the plan branch; the message path does
// it the other way around, and that difference is kept on purpose.
func (r *Responder) CommentDM(ctx context.Context, auto *Automation, commentText string) string {
	system := auto.Listener.Prompt
	if p, ok := r.keywordPrompt(ctx, commentText); ok {
		system = p
	}

	if auto.Plan != PlanPro || auto.Listener.Mode != ListenerAI {
		return Truncate(auto.Listener.Prompt)
	}

	return r.generate(ctx, system, []ai.Message{{Role: "user", Text: commentText}})
}

// MessageReply builds the reply for a DM. Paid tier gets one completion
// with the listener prompt (possibly overridden by a keyword in the current
// message) plus the trailing two conversation turns.
func (r *Responder) MessageReply(ctx context.Context, auto *Automation, entryID, text string, history []ChatMessage) string {
	if auto.Plan != PlanPro || auto.Listener.Mode != ListenerAI {
		return Truncate(auto.Listener.Prompt)
	}

	system := auto.Listener.Prompt
	if p, ok := r.keywordPrompt(ctx, text); ok {
		system = p
	}

	turns := contextTurns(history, entryID, 2)
	turns = append(turns, ai.Message{Role: "user", Text: text})

	return r.generate(ctx, system, turns)
}

func (r *Responder) generate(ctx context.Context, system string, turns []ai.Message) string {
	out, err := r.ai.GetReply(ctx, system, turns)
	if err != nil || strings.TrimSpace(out) == "" {
		r.log.Warn("generation failed, falling back", zap.Error(err))
		return FallbackGreeting
	}
	return Truncate(out)
}

// keywordPrompt — промпт автоматизации, чей keyword совпал с текстом.
func (r *Responder) keywordPrompt(ctx context.Context, text string) (string, bool) {
	kw, err := r.store.KeywordByText(ctx, text)
	if err != nil {
		return "", false
	}
	sib, err := r.store.AutomationByID(ctx, kw.AutomationID)
	if err != nil || sib.Listener == nil || sib.Listener.Prompt == "" {
		return "", false
	}
	return sib.Listener.Prompt, true
}

// contextTurns maps the trailing n chat messages onto completion roles:
// what the account sent is "assistant", everything else is "user".
func contextTurns(history []ChatMessage, accountID string, n int) []ai.Message {
	start := len(history) - n
	if start < 0 {
		start = 0
	}
	out := make([]ai.Message, 0, n)
	for _, m := range history[start:] {
		role := "user"
		if m.SenderID == accountID {
			role = "assistant"
		}
		out = append(out, ai.Message{Role: role, Text: m.Message})
	}
	return out
}
