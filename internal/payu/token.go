package payu

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// tokenScope enumerates the API permissions requested with each grant.
const tokenScope = "create_payment_links read_transactions read_payment_links read_invoices"

// DefaultExpiryMargin is how long before the real expiry a cached token is
// already treated as stale.
const DefaultExpiryMargin = 60 * time.Second

// accessToken is a cached bearer credential. Replaced atomically as a whole,
// never field by field.
type accessToken struct {
	value     string
	tokenType string
	expiresAt time.Time
}

func (t accessToken) valid(now time.Time, margin time.Duration) bool {
	return t.value != "" && now.Before(t.expiresAt.Add(-margin))
}

// TokenSource obtains and caches an OAuth2 client-credentials token from the
// PayU accounts endpoint. Safe for concurrent use: reads of a still-valid
// token take a shared lock, and at most one grant request is in flight at a
// time — concurrent callers share the single refresh result.
type TokenSource struct {
	httpClient *http.Client
	tokenURL   string
	creds      Credentials
	margin     time.Duration
	logger     *logrus.Entry

	mu      sync.RWMutex
	current accessToken

	group singleflight.Group

	// now is swappable for expiry tests.
	now func() time.Time
}

// TokenOption configures a TokenSource.
type TokenOption func(*TokenSource)

// WithExpiryMargin overrides the refresh safety margin.
func WithExpiryMargin(d time.Duration) TokenOption {
	return func(t *TokenSource) {
		if d > 0 {
			t.margin = d
		}
	}
}

// WithTokenLogger supplies a custom log entry.
func WithTokenLogger(l *logrus.Entry) TokenOption {
	return func(t *TokenSource) {
		if l != nil {
			t.logger = l
		}
	}
}

// NewTokenSource creates a token source for the given credentials.
func NewTokenSource(httpClient *http.Client, tokenURL string, creds Credentials, opts ...TokenOption) *TokenSource {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	t := &TokenSource{
		httpClient: httpClient,
		tokenURL:   tokenURL,
		creds:      creds,
		margin:     DefaultExpiryMargin,
		logger:     logrus.WithField("component", "token-source"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Token returns a bearer token that is valid for at least the configured
// margin. It performs a client-credentials grant when the cache is empty or
// stale; concurrent callers never trigger redundant grants.
func (t *TokenSource) Token(ctx context.Context) (string, error) {
	t.mu.RLock()
	cached := t.current
	t.mu.RUnlock()

	if cached.valid(t.now(), t.margin) {
		return cached.value, nil
	}

	v, err, _ := t.group.Do("grant", func() (interface{}, error) {
		// A refresh may have completed while this caller queued.
		t.mu.RLock()
		current := t.current
		t.mu.RUnlock()
		if current.valid(t.now(), t.margin) {
			return current.value, nil
		}

		tok, err := t.grant(ctx)
		if err != nil {
			return "", err
		}

		t.mu.Lock()
		t.current = tok
		t.mu.Unlock()

		t.logger.WithField("expires_at", tok.expiresAt.Format(time.RFC3339)).Info("access token refreshed")
		return tok.value, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Invalidate drops the cached token if it still matches value. A refresh
// that raced in between is left untouched.
func (t *TokenSource) Invalidate(value string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current.value == value {
		t.current = accessToken{}
	}
}

// grant performs one client-credentials request. No retries here: the retry
// policy belongs to the API client.
func (t *TokenSource) grant(ctx context.Context) (accessToken, error) {
	form := url.Values{
		"client_id":     {t.creds.ClientID},
		"client_secret": {t.creds.ClientSecret},
		"grant_type":    {"client_credentials"},
		"scope":         {tokenScope},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return accessToken{}, NewNetworkError(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return accessToken{}, NewAuthError("token endpoint unreachable: " + err.Error())
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return accessToken{}, NewAuthError("reading token response: " + err.Error())
	}

	if resp.StatusCode != http.StatusOK {
		t.logger.WithField("status", resp.StatusCode).Error("token grant rejected")
		return accessToken{}, &Error{
			Code:       ErrCodeAuth,
			Message:    "client credentials rejected by PayU",
			StatusCode: resp.StatusCode,
		}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return accessToken{}, NewAuthError("decoding token response: " + err.Error())
	}
	if tr.AccessToken == "" {
		return accessToken{}, NewAuthError("token response missing access_token")
	}

	tokenType := tr.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	lifetime := time.Duration(tr.ExpiresIn) * time.Second
	if lifetime <= 0 {
		lifetime = 5 * time.Minute
	}

	return accessToken{
		value:     tr.AccessToken,
		tokenType: tokenType,
		expiresAt: t.now().Add(lifetime),
	}, nil
}
