package insta

import "fmt"

// CommentEvent — коммент под постом аккаунта.
type CommentEvent struct {
	EntryID     string
	CommentID   string
	PostID      string
	CommenterID string
	Text        string
	IsReply     bool
}

// MessageEvent — входящий DM.
type MessageEvent struct {
	EntryID     string
	MID         string
	SenderID    string
	RecipientID string
	Text        string
}

// Classified is the result of narrowing a valid payload: exactly one of
// Comment or Message is set, otherwise Outcome is the terminal ack.
type Classified struct {
	Comment *CommentEvent
	Message *MessageEvent
	Outcome Outcome
}

// Classify inspects the first entry of a validated payload. Read receipts
// and echoes of our own messages stop here and never reach the resolver.
func Classify(p *WebhookPayload) Classified {
	entry := p.Entry[0]

	for i := range entry.Changes {
		ch := &entry.Changes[i]
		if ch.Field != "comments" {
			continue
		}
		return Classified{Comment: &CommentEvent{
			EntryID:     entry.ID,
			CommentID:   ch.Value.ID,
			PostID:      ch.Value.Media.ID,
			CommenterID: ch.Value.From.ID,
			Text:        ch.Value.Text,
			IsReply:     ch.Value.ParentID != "",
		}}
	}

	if len(entry.Messaging) > 0 {
		m := entry.Messaging[0]
		if m.Read != nil {
			return Classified{Outcome: OutcomeIgnored}
		}
		if m.Message == nil || m.Message.IsEcho {
			return Classified{Outcome: OutcomeIgnored}
		}
		return Classified{Message: &MessageEvent{
			EntryID:     entry.ID,
			MID:         m.Message.MID,
			SenderID:    m.Sender.ID,
			RecipientID: m.Recipient.ID,
			Text:        m.Message.Text,
		}}
	}

	return Classified{Outcome: OutcomeIgnored}
}

// DedupKey returns the platform event id used by the dedup guard.
func (e *CommentEvent) DedupKey() string {
	return "comment:" + e.CommentID
}

func (e *MessageEvent) DedupKey() string {
	if e.MID != "" {
		return "message:" + e.MID
	}
	// mid бывает пустым — собираем ключ из участников
	return fmt.Sprintf("message:%s:%s:%s", e.SenderID, e.RecipientID, e.Text)
}
