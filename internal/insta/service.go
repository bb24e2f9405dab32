package insta

import (
	"context"

	"go.uber.org/zap"
)

type service struct {
	resolver   *Resolver
	responder  *Responder
	dispatcher *Dispatcher
	dedup      *DedupGuard
	outbound   Outbound
	log        *zap.Logger
}

func NewService(
	resolver *Resolver,
	responder *Responder,
	dispatcher *Dispatcher,
	dedup *DedupGuard,
	outbound Outbound,
	log *zap.Logger,
) Service {
	return &service{
		resolver:   resolver,
		responder:  responder,
		dispatcher: dispatcher,
		dedup:      dedup,
		outbound:   outbound,
		log:        log,
	}
}

// HandleWebhook runs one delivery through the pipeline:
// classify -> dedup claim -> resolve -> token check -> respond -> dispatch.
// Каждая ветка, которая не может продолжить, отвечает нейтральным ACK.
func (s *service) HandleWebhook(ctx context.Context, p *WebhookPayload) Outcome {
	cl := Classify(p)

	switch {
	case cl.Comment != nil:
		ev := cl.Comment
		s.log.Info("comment event",
			zap.String("comment_id", ev.CommentID),
			zap.String("post_id", ev.PostID),
			zap.Bool("is_reply", ev.IsReply))
		return s.dedup.Run(ctx, ev.DedupKey(), func(ctx context.Context) Outcome {
			return s.processComment(ctx, ev)
		})

	case cl.Message != nil:
		ev := cl.Message
		s.log.Info("message event",
			zap.String("sender_id", ev.SenderID),
			zap.String("recipient_id", ev.RecipientID))
		return s.dedup.Run(ctx, ev.DedupKey(), func(ctx context.Context) Outcome {
			return s.processMessage(ctx, ev)
		})

	default:
		return cl.Outcome
	}
}

func (s *service) processComment(ctx context.Context, ev *CommentEvent) Outcome {
	auto, outcome := s.resolver.ResolveComment(ctx, ev)
	if outcome != "" {
		return outcome
	}

	integ, ok := SelectIntegration(auto, ev.EntryID)
	if !ok {
		return OutcomeNoAutomation
	}
	if !s.outbound.ProbeToken(ctx, integ.Token) {
		s.log.Warn("token probe failed", zap.String("automation_id", auto.ID))
		return OutcomeInvalidToken
	}

	dmText := s.responder.CommentDM(ctx, auto, ev.Text)
	return s.dispatcher.HandleComment(ctx, ev, auto, integ.Token, dmText)
}

func (s *service) processMessage(ctx context.Context, ev *MessageEvent) Outcome {
	auto, history, outcome := s.resolver.ResolveMessage(ctx, ev)
	if outcome != "" {
		return outcome
	}

	integ, ok := SelectIntegration(auto, ev.EntryID)
	if !ok {
		return OutcomeNoAutomation
	}
	if !s.outbound.ProbeToken(ctx, integ.Token) {
		s.log.Warn("token probe failed", zap.String("automation_id", auto.ID))
		return OutcomeInvalidToken
	}

	text := s.responder.MessageReply(ctx, auto, ev.EntryID, ev.Text, history)
	return s.dispatcher.HandleMessage(ctx, ev, auto, integ.Token, text)
}
