package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"artmarket/internal/config"
	"artmarket/internal/domain"
)

// HTTPIdentityProvider resolves bearer tokens against the external identity
// service. The core trusts the resolution; it never verifies credentials
// itself.
type HTTPIdentityProvider struct {
	endpoint string
	client   *http.Client
}

func NewHTTPIdentityProvider(cfg config.IdentityConfig) *HTTPIdentityProvider {
	return &HTTPIdentityProvider{
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

func (p *HTTPIdentityProvider) Resolve(ctx context.Context, token string) (*domain.Identity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity provider unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("identity provider rejected token: status %d", resp.StatusCode)
	}

	var payload struct {
		ID          string `json:"id"`
		Email       string `json:"email"`
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode identity response: %w", err)
	}

	return &domain.Identity{
		ID:          payload.ID,
		Email:       payload.Email,
		DisplayName: payload.DisplayName,
	}, nil
}
