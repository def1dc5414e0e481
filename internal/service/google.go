package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"slices"
	"strconv"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/jellydator/ttlcache/v2"
)

const (
	GoogleCertsURL = "https://www.googleapis.com/oauth2/v3/certs"

	jwksCacheKey     = "jwks"
	defaultJWKSTTL   = time.Hour
	identityLeeway   = time.Minute
	maxJWKSBodyBytes = 1 << 20
)

var (
	googleIssuers = []string{"accounts.google.com", "https://accounts.google.com"}
	maxAgeRe      = regexp.MustCompile(`max-age=(\d+)`)
)

// FederatedIdentity is what the identity provider vouches for
type FederatedIdentity struct {
	Subject       string
	Email         string
	Name          string
	EmailVerified bool
}

// IdentityVerifier checks an identity token issued by an external provider
type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (*FederatedIdentity, error)
}

type googleClaims struct {
	jwt.Claims
	Email         string `json:"email"`
	EmailVerified any    `json:"email_verified"`
	Name          string `json:"name"`
}

// GoogleVerifier validates Google ID tokens against Google's published keys.
// The key set is cached for as long as Google's Cache-Control header allows.
type GoogleVerifier struct {
	clientID   string
	certsURL   string
	httpClient *http.Client
	keys       *ttlcache.Cache
	now        func() time.Time
}

func NewGoogleVerifier(clientID, certsURL string, client *http.Client) (*GoogleVerifier, error) {
	if clientID == "" {
		return nil, errors.New("no google client id provided")
	}

	if certsURL == "" {
		certsURL = GoogleCertsURL
	}

	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	keys := ttlcache.NewCache()
	keys.SkipTTLExtensionOnHit(true)

	return &GoogleVerifier{
		clientID:   clientID,
		certsURL:   certsURL,
		httpClient: client,
		keys:       keys,
		now:        time.Now,
	}, nil
}

func (g *GoogleVerifier) Close() error {
	return g.keys.Close()
}

func (g *GoogleVerifier) Verify(ctx context.Context, token string) (*FederatedIdentity, error) {
	if token == "" {
		return nil, newErr(ErrValidation, "No identity token provided")
	}

	parsed, err := jwt.ParseSigned(token, []jose.SignatureAlgorithm{jose.RS256})
	if err != nil {
		return nil, wrapErr(ErrUnauthorized, "Google authentication failed", err)
	}

	keys, err := g.keySet(ctx)
	if err != nil {
		return nil, wrapErr(ErrDependency, "Google authentication failed", err)
	}

	var claims googleClaims
	if err := parsed.Claims(keys, &claims); err != nil {
		return nil, wrapErr(ErrUnauthorized, "Google authentication failed", err)
	}

	if err := claims.ValidateWithLeeway(jwt.Expected{Time: g.now()}, identityLeeway); err != nil {
		return nil, wrapErr(ErrUnauthorized, "Google authentication failed", err)
	}

	if !claims.Audience.Contains(g.clientID) {
		return nil, newErr(ErrUnauthorized, "Google authentication failed")
	}

	if !slices.Contains(googleIssuers, claims.Issuer) {
		return nil, newErr(ErrUnauthorized, "Google authentication failed")
	}

	if claims.Email == "" {
		return nil, newErr(ErrUnauthorized, "Google account has no email address")
	}

	return &FederatedIdentity{
		Subject:       claims.Subject,
		Email:         claims.Email,
		Name:          claims.Name,
		EmailVerified: truthy(claims.EmailVerified),
	}, nil
}

func (g *GoogleVerifier) keySet(ctx context.Context) (*jose.JSONWebKeySet, error) {
	if v, err := g.keys.Get(jwksCacheKey); err == nil {
		return v.(*jose.JSONWebKeySet), nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.certsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build certs request: %w", err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("certs request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("certs request failed: status=%d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxJWKSBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read certs: %w", err)
	}

	var set jose.JSONWebKeySet
	if err := json.Unmarshal(body, &set); err != nil {
		return nil, fmt.Errorf("decode certs: %w", err)
	}

	if err := g.keys.SetWithTTL(jwksCacheKey, &set, cacheTTL(resp.Header.Get("Cache-Control"))); err != nil {
		return nil, fmt.Errorf("cache certs: %w", err)
	}

	return &set, nil
}

func cacheTTL(cacheControl string) time.Duration {
	m := maxAgeRe.FindStringSubmatch(cacheControl)
	if m == nil {
		return defaultJWKSTTL
	}

	sec, err := strconv.Atoi(m[1])
	if err != nil || sec <= 0 {
		return defaultJWKSTTL
	}

	return time.Duration(sec) * time.Second
}

func truthy(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		ok, _ := strconv.ParseBool(b)
		return ok
	default:
		return false
	}
}
