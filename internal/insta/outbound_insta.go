package insta

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// InstaOutbound — клиент Graph API: ответы на комменты, DM, проверка и
// продление токена. Лимитер держит нас ниже порога платформы.
type InstaOutbound struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	log     *zap.Logger
}

func NewInstaOutbound(baseURL string, timeout time.Duration, rps float64, log *zap.Logger) *InstaOutbound {
	return &InstaOutbound{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(rate.Limit(rps), int(rps)+1),
		log:     log,
	}
}

func (c *InstaOutbound) ReplyToComment(ctx context.Context, commentID, text, token string) error {
	return c.post(ctx, "/"+commentID+"/replies", token, map[string]any{
		"message": text,
	})
}

func (c *InstaOutbound) SendDM(ctx context.Context, fromID, toID, text, token string) error {
	return c.post(ctx, "/"+fromID+"/messages", token, map[string]any{
		"recipient": map[string]string{"id": toID},
		"message":   map[string]string{"text": text},
	})
}

// ProbeToken — лёгкая проверка личности. Любой сбой = токен не годится.
func (c *InstaOutbound) ProbeToken(ctx context.Context, token string) bool {
	if err := c.limiter.Wait(ctx); err != nil {
		return false
	}

	u := c.baseURL + "/me?fields=id&access_token=" + url.QueryEscape(token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn("token probe request failed", zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// RefreshToken exchanges a long-lived token for a fresh one. The pipeline
// never calls this; the onboarding side does, before tokens go stale.
func (c *InstaOutbound) RefreshToken(ctx context.Context, token string) (string, time.Time, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", time.Time{}, err
	}

	u := c.baseURL + "/refresh_access_token?grant_type=ig_refresh_token&access_token=" + url.QueryEscape(token)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", time.Time{}, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", time.Time{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", time.Time{}, errors.New("graph api error: " + resp.Status + " body=" + string(b))
	}

	var out struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", time.Time{}, err
	}

	return out.AccessToken, time.Now().Add(time.Duration(out.ExpiresIn) * time.Second), nil
}

func (c *InstaOutbound) post(ctx context.Context, path, token string, body any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	b, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		c.baseURL+path,
		bytes.NewReader(b),
	)
	if err != nil {
		return err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return errors.New(
			"graph api error: " +
				resp.Status +
				" body=" + string(respBody),
		)
	}

	return nil
}
