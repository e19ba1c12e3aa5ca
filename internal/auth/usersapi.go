package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// UsersAPIResolver asks the users service who the caller is.
type UsersAPIResolver struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewUsersAPIResolver targets baseURL (e.g. https://gateway/users-api) authenticating with apiKey.
func NewUsersAPIResolver(baseURL, apiKey string, client *http.Client) *UsersAPIResolver {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	return &UsersAPIResolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  client,
	}
}

// Resolve fetches /users/{userID}, forwarding the caller's Authorization header.
func (r *UsersAPIResolver) Resolve(ctx context.Context, userID, authorization string) (Identity, error) {
	if userID == "" {
		return Identity{}, ErrUnknownUser
	}

	endpoint := fmt.Sprintf("%s/users/%s", r.baseURL, url.PathEscape(userID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Identity{}, fmt.Errorf("build identity request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if r.apiKey != "" {
		req.Header.Set("x-api-key", r.apiKey)
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("identity request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return Identity{}, fmt.Errorf("%w: identity service returned %d", ErrUnknownUser, resp.StatusCode)
	}

	var identity Identity
	if err := json.NewDecoder(resp.Body).Decode(&identity); err != nil {
		return Identity{}, fmt.Errorf("decode identity: %w", err)
	}
	if identity.UserType == "" {
		return Identity{}, fmt.Errorf("%w: missing user_type", ErrUnknownUser)
	}
	return identity, nil
}
