package insta

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

// Resolver maps a classified event to the automation that should answer it.
type Resolver struct {
	store Store
	log   *zap.Logger
}

func NewResolver(store Store, log *zap.Logger) *Resolver {
	return &Resolver{store: store, log: log}
}

// ResolveComment finds the automation linked to the commented post. The
// owning account must hold at least one integration token, and the listener
// must carry both a prompt and a comment reply.
func (r *Resolver) ResolveComment(ctx context.Context, ev *CommentEvent) (*Automation, Outcome) {
	auto, err := r.store.AutomationByPost(ctx, ev.PostID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			r.log.Warn("automation lookup by post failed",
				zap.String("post_id", ev.PostID), zap.Error(err))
		}
		return nil, OutcomeNoAutomation
	}

	if len(auto.Integrations) == 0 {
		return nil, OutcomeNoAutomation
	}
	l := auto.Listener
	if l == nil || l.Prompt == "" || l.CommentReply == "" {
		return nil, OutcomeNoAutomation
	}

	return auto, ""
}

// ResolveMessage tries, in order: continuation of an open conversation,
// keyword match, then the account's most recent automation. Conversation
// state wins over keyword rules. The returned history is the full ordered
// exchange between the two participants.
func (r *Resolver) ResolveMessage(ctx context.Context, ev *MessageEvent) (*Automation, []ChatMessage, Outcome) {
	history, err := r.store.ChatHistory(ctx, ev.SenderID, ev.RecipientID)
	if err != nil {
		r.log.Warn("chat history lookup failed",
			zap.String("sender_id", ev.SenderID), zap.Error(err))
		history = nil
	}

	auto := r.continuation(ctx, history)

	if auto == nil {
		if kw, err := r.store.KeywordByText(ctx, ev.Text); err == nil {
			auto = r.byID(ctx, kw.AutomationID)
		}
	}

	if auto == nil {
		a, err := r.store.RecentAutomationByInstagramID(ctx, ev.RecipientID)
		if err != nil {
			if !errors.Is(err, ErrNotFound) {
				r.log.Warn("fallback automation lookup failed",
					zap.String("recipient_id", ev.RecipientID), zap.Error(err))
			}
			return nil, nil, OutcomeNoAutomation
		}
		auto = a
	}

	if auto.Listener == nil || auto.Listener.Prompt == "" {
		return nil, nil, OutcomeNoAutomation
	}

	return auto, history, ""
}

// continuation resumes the automation tagged on the most recent message of
// the conversation, if any.
func (r *Resolver) continuation(ctx context.Context, history []ChatMessage) *Automation {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].AutomationID != "" {
			return r.byID(ctx, history[i].AutomationID)
		}
	}
	return nil
}

func (r *Resolver) byID(ctx context.Context, id string) *Automation {
	auto, err := r.store.AutomationByID(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			r.log.Warn("automation lookup failed", zap.String("automation_id", id), zap.Error(err))
		}
		return nil
	}
	return auto
}

// SelectIntegration prefers the token of the page that received the event,
// falling back to the account's first integration.
func SelectIntegration(a *Automation, entryID string) (Integration, bool) {
	for _, in := range a.Integrations {
		if in.InstagramID == entryID {
			return in, true
		}
	}
	if len(a.Integrations) > 0 {
		return a.Integrations[0], true
	}
	return Integration{}, false
}
