package orchestrate

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// DefaultIAMURL is the IBM Cloud IAM token endpoint.
const DefaultIAMURL = "https://iam.cloud.ibm.com/identity/token"

const (
	apiKeyGrantType = "urn:ibm:params:oauth:grant-type:apikey"
	// Tokens are refreshed this long before IAM says they expire.
	expirySkew = time.Minute
)

// TokenSource exchanges an IBM Cloud API key for IAM access tokens and
// caches them until shortly before expiry.
type TokenSource struct {
	apiKey     string
	url        string
	httpClient *http.Client
	now        func() time.Time

	mu      sync.Mutex
	token   string
	expires time.Time
}

func NewTokenSource(apiKey, iamURL string) *TokenSource {
	if iamURL == "" {
		iamURL = DefaultIAMURL
	}
	return &TokenSource{
		apiKey: apiKey,
		url:    iamURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		now: time.Now,
	}
}

type iamResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	Expiration  int64  `json:"expiration"`
}

// Token returns a cached token or fetches a new one.
func (s *TokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && s.now().Before(s.expires) {
		return s.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", apiKeyGrantType)
	form.Set("apikey", s.apiKey)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("iam token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", &RetryableError{StatusCode: resp.StatusCode, Message: string(body)}
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("iam token status %d: %s", resp.StatusCode, truncate(string(body), 200))
	}

	var out iamResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("iam token: no access_token in response")
	}

	now := s.now()
	var expires time.Time
	switch {
	case out.Expiration > 0:
		expires = time.Unix(out.Expiration, 0)
	case out.ExpiresIn > 0:
		expires = now.Add(time.Duration(out.ExpiresIn) * time.Second)
	}
	s.token = out.AccessToken
	s.expires = expires.Add(-expirySkew)
	return s.token, nil
}

// Invalidate drops the cached token.
func (s *TokenSource) Invalidate() {
	s.mu.Lock()
	s.token = ""
	s.expires = time.Time{}
	s.mu.Unlock()
}
