package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	pkgerrors "github.com/DevBuyLocal/LocalBuy-sub000/pkg/errors"
	"github.com/DevBuyLocal/LocalBuy-sub000/pkg/logger"
)

// Provider holds the session credential issued by the backend and tells the
// rest of the app when one becomes available. The token is opaque to us
// apart from its expiry claim; the backend signed it and the backend
// verifies it.
type Provider interface {
	// SetToken installs a credential. Callbacks registered with
	// OnAuthenticated fire only when this transitions the provider from
	// unauthenticated to authenticated.
	SetToken(ctx context.Context, token string) error
	// Token implements api.CredentialSource.
	Token() (string, bool)
	Authenticated() bool
	Clear(ctx context.Context)
	// OnAuthenticated registers a callback invoked after a successful
	// absent-to-present credential transition.
	OnAuthenticated(fn func(ctx context.Context))
}

type provider struct {
	logger *logger.Logger
	now    func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt *time.Time
	callbacks []func(ctx context.Context)
}

// NewProvider initializes an empty credential holder.
func NewProvider(logg *logger.Logger) (Provider, error) {
	if logg == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "auth provider requires a logger")
	}
	return &provider{logger: logg, now: time.Now}, nil
}

func (p *provider) SetToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "token is required")
	}

	expiresAt, err := tokenExpiry(token)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "parse token")
	}
	if expiresAt != nil && !expiresAt.After(p.now()) {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "token is expired")
	}

	p.mu.Lock()
	wasAuthenticated := p.liveLocked()
	p.token = token
	p.expiresAt = expiresAt
	callbacks := append([]func(ctx context.Context){}, p.callbacks...)
	p.mu.Unlock()

	if wasAuthenticated {
		return nil
	}

	p.logger.Info(ctx, "session credential installed")
	for _, fn := range callbacks {
		fn(ctx)
	}
	return nil
}

func (p *provider) Token() (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.liveLocked() {
		return "", false
	}
	return p.token, true
}

func (p *provider) Authenticated() bool {
	_, ok := p.Token()
	return ok
}

func (p *provider) Clear(ctx context.Context) {
	p.mu.Lock()
	had := p.token != ""
	p.token = ""
	p.expiresAt = nil
	p.mu.Unlock()
	if had {
		p.logger.Info(ctx, "session credential cleared")
	}
}

func (p *provider) OnAuthenticated(fn func(ctx context.Context)) {
	if fn == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.callbacks = append(p.callbacks, fn)
}

// liveLocked reports whether the held token exists and has not expired.
// Callers must hold p.mu.
func (p *provider) liveLocked() bool {
	if p.token == "" {
		return false
	}
	if p.expiresAt != nil && !p.expiresAt.After(p.now()) {
		return false
	}
	return true
}

// tokenExpiry reads the exp claim without verifying the signature. We do
// not hold the backend's signing key; expiry is only used to avoid sending
// requests that are guaranteed a 401.
func tokenExpiry(token string) (*time.Time, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return nil, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, err
	}
	if exp == nil {
		return nil, nil
	}
	t := exp.Time
	return &t, nil
}
