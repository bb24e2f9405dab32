package insta

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Форма вебхука Instagram Graph: entry[] c messaging[] или changes[].
type WebhookPayload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry" validate:"required,min=1,dive"`
}

type Entry struct {
	ID        string      `json:"id" validate:"required"`
	Time      int64       `json:"time"`
	Messaging []Messaging `json:"messaging" validate:"omitempty,dive"`
	Changes   []Change    `json:"changes" validate:"omitempty,dive"`
}

type Messaging struct {
	Sender    Party        `json:"sender"`
	Recipient Party        `json:"recipient"`
	Message   *MessageBody `json:"message"`
	Read      *ReadReceipt `json:"read"`
}

type Party struct {
	ID string `json:"id"`
}

type MessageBody struct {
	MID    string `json:"mid"`
	Text   string `json:"text"`
	IsEcho bool   `json:"is_echo"`
}

type ReadReceipt struct {
	MID string `json:"mid"`
}

type Change struct {
	Field string      `json:"field" validate:"required"`
	Value ChangeValue `json:"value"`
}

type ChangeValue struct {
	ID       string `json:"id"`
	Text     string `json:"text"`
	ParentID string `json:"parent_id"`
	From     *Party `json:"from"`
	Media    *Media `json:"media"`
}

type Media struct {
	ID string `json:"id"`
}

var validate = validator.New()

// ParsePayload narrows a raw webhook body into a typed payload. A rejection
// means "ignore this delivery", not a server fault.
func ParsePayload(body []byte) (*WebhookPayload, error) {
	var p WebhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	if err := validate.Struct(&p); err != nil {
		return nil, fmt.Errorf("validate payload: %w", err)
	}

	// условные правила, которые не выразить тегами
	for i := range p.Entry {
		for j := range p.Entry[i].Messaging {
			m := &p.Entry[i].Messaging[j]
			if m.Sender.ID == "" || m.Recipient.ID == "" {
				return nil, errors.New("messaging element missing sender or recipient id")
			}
			if m.Message == nil && m.Read == nil {
				return nil, errors.New("messaging element missing message body")
			}
		}
		for j := range p.Entry[i].Changes {
			c := &p.Entry[i].Changes[j]
			if c.Field != "comments" {
				continue
			}
			if c.Value.Media == nil || c.Value.Media.ID == "" {
				return nil, errors.New("comment change missing media id")
			}
			if c.Value.From == nil || c.Value.From.ID == "" {
				return nil, errors.New("comment change missing from id")
			}
		}
	}

	return &p, nil
}
