package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/postloop/autopublisher/internal/domain"
)

// WebhookGateway implements Publisher, Notifier, Producer and Entitlements
// against a single HTTP backend (the surrounding product's internal API).
// Base URL and timeout are injected from config so tests can point to a
// local mock server.
type WebhookGateway struct {
	baseURL    string
	httpClient *http.Client
}

func NewWebhookGateway(baseURL string, timeout time.Duration) *WebhookGateway {
	return &WebhookGateway{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type publishRequest struct {
	TenantID   string `json:"tenant_id"`
	ContentRef string `json:"content_ref"`
}

type publishResponse struct {
	MessageID string `json:"messageId"`
	Status    string `json:"status"`
}

func (g *WebhookGateway) Publish(ctx context.Context, tenantID, contentRef string) (*PublishResult, error) {
	var resp publishResponse
	err := g.post(ctx, "/publish", publishRequest{TenantID: tenantID, ContentRef: contentRef}, &resp)
	if err != nil {
		return nil, err
	}
	return &PublishResult{MessageID: resp.MessageID}, nil
}

type notifyRequest struct {
	TenantID string   `json:"tenant_id"`
	Message  string   `json:"message"`
	Actions  []Action `json:"actions,omitempty"`
}

func (g *WebhookGateway) Notify(ctx context.Context, tenantID, message string, actions []Action) error {
	return g.post(ctx, "/notify", notifyRequest{TenantID: tenantID, Message: message, Actions: actions}, nil)
}

type planTopicsRequest struct {
	TenantID string `json:"tenant_id"`
	Count    int    `json:"count"`
}

type planTopicsResponse struct {
	Topics []TopicSuggestion `json:"topics"`
}

func (g *WebhookGateway) PlanTopics(ctx context.Context, tenantID string, count int) ([]TopicSuggestion, error) {
	var resp planTopicsResponse
	if err := g.post(ctx, "/plan-topics", planTopicsRequest{TenantID: tenantID, Count: count}, &resp); err != nil {
		return nil, err
	}
	return resp.Topics, nil
}

type generateRequest struct {
	TenantID  string `json:"tenant_id"`
	Topic     string `json:"topic"`
	Format    string `json:"format"`
	WithCover bool   `json:"with_cover"`
}

type generateResponse struct {
	ContentRef string `json:"content_ref"`
}

func (g *WebhookGateway) Generate(ctx context.Context, tenantID, topic, format string, withCover bool) (string, error) {
	var resp generateResponse
	err := g.post(ctx, "/generate", generateRequest{
		TenantID: tenantID, Topic: topic, Format: format, WithCover: withCover,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.ContentRef, nil
}

type entitlementResponse struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason,omitempty"`
}

func (g *WebhookGateway) CheckPublish(ctx context.Context, tenantID string) error {
	var resp entitlementResponse
	if err := g.post(ctx, "/entitlements/publish", publishRequest{TenantID: tenantID}, &resp); err != nil {
		return err
	}
	if !resp.Allowed {
		return domain.ErrLimitReached
	}
	return nil
}

func (g *WebhookGateway) CheckGeneration(ctx context.Context, tenantID string) error {
	var resp entitlementResponse
	if err := g.post(ctx, "/entitlements/generation", publishRequest{TenantID: tenantID}, &resp); err != nil {
		return err
	}
	if !resp.Allowed {
		return domain.ErrBudgetExhausted
	}
	return nil
}

func (g *WebhookGateway) RecordPublish(ctx context.Context, tenantID string) error {
	return g.post(ctx, "/entitlements/publish/record", publishRequest{TenantID: tenantID}, nil)
}

// post sends a JSON body and optionally decodes a JSON response. 2xx is
// success; anything else is an error carrying the status code.
func (g *WebhookGateway) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected gateway status: %d", resp.StatusCode)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// compile-time checks that WebhookGateway implements every gateway interface
var (
	_ Publisher    = (*WebhookGateway)(nil)
	_ Notifier     = (*WebhookGateway)(nil)
	_ Producer     = (*WebhookGateway)(nil)
	_ Entitlements = (*WebhookGateway)(nil)
)
