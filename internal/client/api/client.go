// Package api is the client transport to the backend. Every response that carries
// remaining_actions is applied to the entitlement cache.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ai-textassist-be/internal/client/entitlement"
	"ai-textassist-be/internal/client/kvstore"
	"ai-textassist-be/internal/client/ledger"
	"ai-textassist-be/internal/dto"
	"ai-textassist-be/internal/pkg/serverutils"
	"ai-textassist-be/internal/tier"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	TokenKey       = "session_token"
	DefaultTimeout = 30 * time.Second
)

type Client struct {
	baseURL string
	http    *http.Client
	store   kvstore.Store
	cache   *entitlement.Cache
}

func NewClient(baseURL string, store kvstore.Store, cache *entitlement.Cache) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   DefaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		store: store,
		cache: cache,
	}
}

func (c *Client) Token() string {
	raw, ok, err := c.store.Get(TokenKey)
	if err != nil || !ok {
		return ""
	}
	return string(raw)
}

func (c *Client) HasToken() bool {
	return c.Token() != ""
}

// Logout drops the session and the cached entitlement.
func (c *Client) Logout() error {
	if err := c.store.Delete(TokenKey); err != nil {
		return err
	}
	return c.cache.Clear()
}

func (c *Client) Login(ctx context.Context, email, password string) (*dto.LoginResponse, error) {
	var res dto.LoginResponse
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", dto.LoginRequest{Email: email, Password: password}, &res, false); err != nil {
		return nil, err
	}
	if err := c.store.Set(TokenKey, []byte(res.AccessToken)); err != nil {
		return nil, err
	}
	if err := c.cache.UpdateFromBackend(statusUpdate(&res.Entitlement)); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Me(ctx context.Context) (*dto.MeResponse, error) {
	var res dto.MeResponse
	if err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, &res, true); err != nil {
		return nil, err
	}
	if err := c.cache.UpdateFromBackend(statusUpdate(&res.Entitlement)); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) SubscriptionStatus(ctx context.Context) (*dto.EntitlementStatus, error) {
	var res dto.EntitlementStatus
	if err := c.do(ctx, http.MethodGet, "/api/subscription/status", nil, &res, true); err != nil {
		return nil, err
	}
	if err := c.cache.UpdateFromBackend(statusUpdate(&res)); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) VerifyPurchase(ctx context.Context, ev ledger.Event) (*dto.VerifyPurchaseResponse, error) {
	req := dto.VerifyPurchaseRequest{
		TransactionId:         ev.TransactionID,
		OriginalTransactionId: ev.OriginalTransactionID,
		ProductId:             ev.ProductID,
	}
	var res dto.VerifyPurchaseResponse
	if err := c.do(ctx, http.MethodPost, "/api/subscription/verify", req, &res, true); err != nil {
		return nil, err
	}
	t, _ := tier.Parse(res.Tier)
	if err := c.cache.UpdateFromBackend(entitlement.Update{
		Tier:             t,
		RemainingActions: res.RemainingActions,
		Status:           res.Status,
		ExpiresAt:        res.ExpiresAt,
		CancelledAt:      res.CancelledAt,
	}); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Correct(ctx context.Context, text string) (*dto.ActionResponse, error) {
	var res dto.ActionResponse
	if err := c.do(ctx, http.MethodPost, "/api/actions/correct", dto.CorrectRequest{Text: text}, &res, true); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Translate(ctx context.Context, text, targetLanguage string) (*dto.ActionResponse, error) {
	var res dto.ActionResponse
	req := dto.TranslateRequest{Text: text, TargetLanguage: targetLanguage}
	if err := c.do(ctx, http.MethodPost, "/api/actions/translate", req, &res, true); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) History(ctx context.Context, limit, offset int, favorites bool) (*dto.HistoryListResponse, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
	if favorites {
		q.Set("favorites", "true")
	}
	path := "/api/history"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var res dto.HistoryListResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &res, true); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) SetFavorite(ctx context.Context, id uuid.UUID, isFavorite bool) error {
	return c.do(ctx, http.MethodPatch, "/api/history/"+id.String()+"/favorite", dto.SetFavoriteRequest{IsFavorite: &isFavorite}, nil, true)
}

func (c *Client) DeleteHistory(ctx context.Context, id uuid.UUID) error {
	return c.do(ctx, http.MethodDelete, "/api/history/"+id.String(), nil, nil, true)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}, authed bool) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		token := c.Token()
		if token == "" {
			return &Error{Status: http.StatusUnauthorized, Code: dto.ErrCodeUnauthorized, Message: "not logged in"}
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &transientError{err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &transientError{err: err}
	}
	// A superseded request must not touch the cache.
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var env serverutils.BaseResponse[json.RawMessage]
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 500 {
			return &Error{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("api: decode %s %s: %w", method, path, err)
	}

	if resp.StatusCode == http.StatusUnauthorized && authed {
		_ = c.Logout()
		return &Error{Status: resp.StatusCode, Code: dto.ErrCodeUnauthorized, Message: env.Message}
	}

	if env.RemainingActions != nil {
		if err := c.cache.ApplyRemaining(*env.RemainingActions); err != nil {
			return err
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{
			Status:           resp.StatusCode,
			Code:             env.ErrorCode,
			Message:          env.Message,
			Limit:            env.Limit,
			RemainingActions: env.RemainingActions,
		}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("api: decode %s %s data: %w", method, path, err)
		}
	}
	return nil
}

func statusUpdate(s *dto.EntitlementStatus) entitlement.Update {
	t, _ := tier.Parse(s.Tier)
	return entitlement.Update{
		Tier:             t,
		RemainingActions: s.RemainingActions,
		Status:           s.Status,
		ExpiresAt:        s.ExpiresAt,
		CancelledAt:      s.CancelledAt,
	}
}
