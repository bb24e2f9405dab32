package insta

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

type store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) Store {
	return &store{db: db}
}

func NewDedupStore(db *sql.DB) DedupStore {
	return &store{db: db}
}

const automationCols = `a.id, a.account_id, a.name, a.active, a.plan, a.created_at`

func (s *store) AutomationByPost(ctx context.Context, postID string) (*Automation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+automationCols+`
		FROM automations a
		JOIN posts p ON p.automation_id = a.id
		WHERE p.post_id = $1
		  AND a.active = true
		  AND EXISTS (SELECT 1 FROM integrations i WHERE i.account_id = a.account_id)
		ORDER BY a.created_at DESC
		LIMIT 1
	`, postID)
	return s.hydrate(ctx, row)
}

func (s *store) AutomationByID(ctx context.Context, id string) (*Automation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+automationCols+`
		FROM automations a
		WHERE a.id = $1
	`, id)
	return s.hydrate(ctx, row)
}

func (s *store) KeywordByText(ctx context.Context, text string) (*Keyword, error) {
	var k Keyword
	err := s.db.QueryRowContext(ctx, `
		SELECT id, automation_id, word
		FROM keywords
		WHERE lower(word) = lower($1)
		LIMIT 1
	`, text).Scan(&k.ID, &k.AutomationID, &k.Word)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &k, nil
}

func (s *store) RecentAutomationByInstagramID(ctx context.Context, instagramID string) (*Automation, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+automationCols+`
		FROM automations a
		JOIN integrations i ON i.account_id = a.account_id
		WHERE i.instagram_id = $1 AND a.active = true
		ORDER BY a.created_at DESC
		LIMIT 1
	`, instagramID)
	return s.hydrate(ctx, row)
}

// hydrate дочитывает listener, triggers и integrations к автоматизации.
func (s *store) hydrate(ctx context.Context, row *sql.Row) (*Automation, error) {
	var a Automation
	var plan string
	if err := row.Scan(&a.ID, &a.AccountID, &a.Name, &a.Active, &plan, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	a.Plan = Plan(plan)

	l, err := s.listenerFor(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	a.Listener = l

	a.Triggers, err = s.triggersFor(ctx, a.ID)
	if err != nil {
		return nil, err
	}

	a.Integrations, err = s.integrationsFor(ctx, a.AccountID)
	if err != nil {
		return nil, err
	}

	return &a, nil
}

func (s *store) listenerFor(ctx context.Context, automationID string) (*Listener, error) {
	var l Listener
	var mode string
	var commentReply sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, automation_id, mode, prompt, comment_reply, comment_count, dm_count
		FROM listeners
		WHERE automation_id = $1
	`, automationID).Scan(
		&l.ID,
		&l.AutomationID,
		&mode,
		&l.Prompt,
		&commentReply,
		&l.CommentCount,
		&l.DMCount,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	l.Mode = ListenerMode(mode)
	l.CommentReply = commentReply.String
	return &l, nil
}

func (s *store) triggersFor(ctx context.Context, automationID string) ([]TriggerType, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT type FROM triggers WHERE automation_id = $1
	`, automationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TriggerType
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		out = append(out, TriggerType(t))
	}
	return out, rows.Err()
}

func (s *store) integrationsFor(ctx context.Context, accountID string) ([]Integration, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, token, expires_at, instagram_id
		FROM integrations
		WHERE account_id = $1
		ORDER BY id ASC
	`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Integration
	for rows.Next() {
		var in Integration
		if err := rows.Scan(&in.ID, &in.AccountID, &in.Token, &in.ExpiresAt, &in.InstagramID); err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, rows.Err()
}

func (s *store) ChatHistory(ctx context.Context, a, b string) ([]ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, automation_id, sender_id, receiver_id, message, created_at
		FROM chat_messages
		WHERE (sender_id = $1 AND receiver_id = $2)
		   OR (sender_id = $2 AND receiver_id = $1)
		ORDER BY created_at ASC
	`, a, b)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ChatMessage
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.ID, &m.AutomationID, &m.SenderID, &m.ReceiverID, &m.Message, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *store) SaveChatMessage(ctx context.Context, msg *ChatMessage) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_messages (automation_id, sender_id, receiver_id, message)
		VALUES ($1, $2, $3, $4)
	`,
		msg.AutomationID,
		msg.SenderID,
		msg.ReceiverID,
		msg.Message,
	)
	return err
}

func (s *store) AddCommentResponse(ctx context.Context, listenerID int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE listeners SET comment_count = comment_count + 1 WHERE id = $1
	`, listenerID)
	return err
}

func (s *store) AddDMResponse(ctx context.Context, listenerID int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE listeners SET dm_count = dm_count + 1 WHERE id = $1
	`, listenerID)
	return err
}

// ClaimEvent — атомарный check-and-set: протухшую запись можно перехватить,
// живая блокирует повтор.
func (s *store) ClaimEvent(ctx context.Context, eventID string, expiresAt time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO webhook_dedup (event_id, expires_at)
		VALUES ($1, $2)
		ON CONFLICT (event_id) DO UPDATE SET expires_at = EXCLUDED.expires_at
		WHERE webhook_dedup.expires_at < now()
	`, eventID, expiresAt)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *store) PurgeExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM webhook_dedup WHERE expires_at < now()
	`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *store) CreateIntent(ctx context.Context, in *DispatchIntent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO dispatch_intents (id, event_id, kind, status)
		VALUES ($1, $2, $3, 'PENDING')
	`,
		in.ID,
		in.EventID,
		string(in.Kind),
	)
	return err
}

func (s *store) CompleteIntent(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE dispatch_intents SET status = 'SENT' WHERE id = $1
	`, id)
	return err
}
