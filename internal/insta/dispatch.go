package insta

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Dispatcher sends replies through the platform API and records what
// happened: intent rows around each send, chat history, listener counters.
// Every send is its own failure domain; nothing here bubbles up to HTTP.
type Dispatcher struct {
	store    Store
	outbound Outbound
	log      *zap.Logger
}

func NewDispatcher(store Store, outbound Outbound, log *zap.Logger) *Dispatcher {
	return &Dispatcher{store: store, outbound: outbound, log: log}
}

// HandleComment replies under the comment, then (unless the comment is
// itself a reply) DMs the commenter. A failed comment reply does not block
// the DM half.
func (d *Dispatcher) HandleComment(ctx context.Context, ev *CommentEvent, auto *Automation, token, dmText string) Outcome {
	reply := Truncate(auto.Listener.CommentReply)

	if d.withIntent(ctx, ev.CommentID, IntentCommentReply, func() error {
		return d.outbound.ReplyToComment(ctx, ev.CommentID, reply, token)
	}) {
		if err := d.store.AddCommentResponse(ctx, auto.Listener.ID); err != nil {
			d.log.Warn("comment counter increment failed",
				zap.String("automation_id", auto.ID), zap.Error(err))
		}
	}

	if !ev.IsReply {
		d.sendDM(ctx, auto, ev.CommentID, ev.EntryID, ev.CommenterID, ev.Text, dmText, token)
	}

	return OutcomeCommentProcessed
}

// HandleMessage answers a DM and records both sides of the exchange.
func (d *Dispatcher) HandleMessage(ctx context.Context, ev *MessageEvent, auto *Automation, token, text string) Outcome {
	d.sendDM(ctx, auto, ev.DedupKey(), ev.RecipientID, ev.SenderID, ev.Text, text, token)
	return OutcomeMessageProcessed
}

// sendDM отправляет ответ, пишет обе реплики в историю и крутит счётчик.
func (d *Dispatcher) sendDM(ctx context.Context, auto *Automation, eventID, fromID, toID, inbound, outbound, token string) {
	sent := d.withIntent(ctx, eventID, IntentDM, func() error {
		return d.outbound.SendDM(ctx, fromID, toID, Truncate(outbound), token)
	})
	if !sent {
		return
	}

	d.record(ctx, &ChatMessage{
		AutomationID: auto.ID,
		SenderID:     toID,
		ReceiverID:   fromID,
		Message:      inbound,
	})
	d.record(ctx, &ChatMessage{
		AutomationID: auto.ID,
		SenderID:     fromID,
		ReceiverID:   toID,
		Message:      Truncate(outbound),
	})

	if err := d.store.AddDMResponse(ctx, auto.Listener.ID); err != nil {
		d.log.Warn("dm counter increment failed",
			zap.String("automation_id", auto.ID), zap.Error(err))
	}
}

// withIntent writes a provisional dispatch intent, runs the send, and marks
// the intent done on success. Returns whether the send went through.
func (d *Dispatcher) withIntent(ctx context.Context, eventID string, kind IntentKind, send func() error) bool {
	intent := &DispatchIntent{ID: uuid.NewString(), EventID: eventID, Kind: kind}
	if err := d.store.CreateIntent(ctx, intent); err != nil {
		d.log.Warn("intent create failed",
			zap.String("event_id", eventID), zap.Error(err))
	}

	if err := send(); err != nil {
		d.log.Error("dispatch failed",
			zap.String("event_id", eventID),
			zap.String("kind", string(kind)),
			zap.Error(err))
		return false
	}

	if err := d.store.CompleteIntent(ctx, intent.ID); err != nil {
		d.log.Warn("intent complete failed",
			zap.String("intent_id", intent.ID), zap.Error(err))
	}
	return true
}

func (d *Dispatcher) record(ctx context.Context, msg *ChatMessage) {
	if err := d.store.SaveChatMessage(ctx, msg); err != nil {
		d.log.Warn("chat message save failed",
			zap.String("automation_id", msg.AutomationID), zap.Error(err))
	}
}
