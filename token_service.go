package auth

import (
	"context"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// DefaultTokenExpiration is the session lifetime when none is configured
const DefaultTokenExpiration = time.Hour

// DefaultSigningKeyID is the kid used when the config does not name one
const DefaultSigningKeyID = "default"

// TokenServiceImpl implements the TokenService interface
type TokenServiceImpl struct {
	signingKey  []byte
	keyID       string
	keys        *keyfunc.JWKS
	ttl         time.Duration
	issuer      string
	audience    jwt.ClaimStrings
	revocations RevocationStore
	now         func() time.Time
	logger      Logger
}

// TokenServiceOption configures the token service
type TokenServiceOption func(*TokenServiceImpl)

// WithRevocationStore enables the deny-list check on validation
func WithRevocationStore(store RevocationStore) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		ts.revocations = store
	}
}

// WithTokenClock overrides the clock used for issuance and expiry
func WithTokenClock(now func() time.Time) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if now != nil {
			ts.now = now
		}
	}
}

// WithTokenLogger sets the logger
func WithTokenLogger(logger Logger) TokenServiceOption {
	return func(ts *TokenServiceImpl) {
		if logger != nil {
			ts.logger = logger
		}
	}
}

// NewTokenService creates a new TokenService instance from config.
// Retired keys are accepted for verification but never used to sign.
func NewTokenService(cfg Config, opts ...TokenServiceOption) *TokenServiceImpl {
	ttl := cfg.GetTokenExpiration()
	if ttl <= 0 {
		ttl = DefaultTokenExpiration
	}

	keyID := cfg.GetSigningKeyID()
	if keyID == "" {
		keyID = DefaultSigningKeyID
	}

	ts := &TokenServiceImpl{
		signingKey: []byte(cfg.GetSigningKey()),
		keyID:      keyID,
		ttl:        ttl,
		issuer:     cfg.GetIssuer(),
		audience:   jwt.ClaimStrings(cfg.GetAudience()),
		now:        time.Now,
		logger:     defLogger(),
	}

	given := map[string]keyfunc.GivenKey{
		keyID: hmacGivenKey(ts.signingKey),
	}
	for kid, key := range cfg.GetRetiredSigningKeys() {
		if kid == keyID || key == "" {
			continue
		}
		given[kid] = hmacGivenKey([]byte(key))
	}
	ts.keys = keyfunc.NewGiven(given)

	for _, opt := range opts {
		if opt != nil {
			opt(ts)
		}
	}

	return ts
}

func hmacGivenKey(key []byte) keyfunc.GivenKey {
	return keyfunc.NewGivenCustom(key, keyfunc.GivenKeyOptions{
		Algorithm: jwt.SigningMethodHS256.Alg(),
	})
}

// TTL returns the configured session lifetime
func (ts *TokenServiceImpl) TTL() time.Duration {
	return ts.ttl
}

// Generate creates a session token with the default lifetime
func (ts *TokenServiceImpl) Generate(identity Identity) (string, time.Time, error) {
	return ts.Issue(identity, IssueOptions{})
}

// SignClaims signs arbitrary JWT claims using the current signing key.
func (ts *TokenServiceImpl) SignClaims(claims *JWTClaims) (string, error) {
	if claims == nil {
		return "", goerrors.New("claims must not be nil", goerrors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = ts.keyID

	signedString, err := token.SignedString(ts.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// Validate parses and validates a token string, returning structured claims
func (ts *TokenServiceImpl) Validate(tokenString string) (AuthClaims, error) {
	return ts.ValidateContext(context.Background(), tokenString)
}

// ValidateContext validates the token and checks it against the deny-list
func (ts *TokenServiceImpl) ValidateContext(ctx context.Context, tokenString string) (AuthClaims, error) {
	if tokenString == "" {
		return nil, ErrTokenMalformed
	}

	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(ts.now),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, ts.keys.Keyfunc, parserOptions...)
	if err != nil {
		return nil, ts.mapParseError(err)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		ts.logger.Error("TokenService validate could not decode or validate claims")
		return nil, ErrUnableToDecodeSession
	}

	if claims.IssuedAt().IsZero() || claims.UserID() == "" {
		return nil, ErrTokenMalformed
	}

	// exp is caller controlled at mint time, iat + ttl is not
	if !ts.now().Before(claims.IssuedAt().Add(ts.ttl)) {
		return nil, ErrTokenExpired
	}

	if ts.revocations != nil && claims.TokenID() != "" {
		revoked, err := ts.revocations.IsRevoked(ctx, claims.TokenID())
		if err != nil {
			ts.logger.Error("TokenService revocation lookup failed", "error", err)
			return nil, err
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}

	return claims, nil
}

// Revoke puts the token id on the deny-list until the token would expire
func (ts *TokenServiceImpl) Revoke(ctx context.Context, claims AuthClaims) error {
	if claims == nil || claims.TokenID() == "" {
		return nil
	}
	if ts.revocations == nil {
		ts.logger.Warn("TokenService revoke called without a revocation store", "jti", claims.TokenID())
		return nil
	}

	until := claims.Expires()
	if iatLimit := claims.IssuedAt().Add(ts.ttl); until.IsZero() || iatLimit.Before(until) {
		until = iatLimit
	}

	return ts.revocations.Revoke(ctx, claims.TokenID(), until)
}

func (ts *TokenServiceImpl) mapParseError(err error) error {
	switch {
	case goerrors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case goerrors.Is(err, jwt.ErrTokenSignatureInvalid),
		goerrors.Is(err, keyfunc.ErrKIDNotFound),
		goerrors.Is(err, jwt.ErrTokenUnverifiable):
		return ErrTokenInvalidSignature.Clone().WithMetadata(map[string]any{
			"cause": err.Error(),
		})
	default:
		return goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithCode(ErrTokenMalformed.Code).
			WithTextCode(ErrTokenMalformed.TextCode)
	}
}

func (ts *TokenServiceImpl) tokenDefaults() tokenDefaults {
	var aud jwt.ClaimStrings
	if len(ts.audience) > 0 {
		aud = make(jwt.ClaimStrings, len(ts.audience))
		copy(aud, ts.audience)
	}

	return tokenDefaults{
		issuer:   ts.issuer,
		audience: aud,
		ttl:      ts.ttl,
		now:      ts.now,
	}
}
