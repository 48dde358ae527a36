package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	goerrors "github.com/goliatone/go-errors"
)

// IssueOptions controls how a session token is issued.
type IssueOptions struct {
	// TTL overrides the default token expiration. Zero uses TokenService defaults.
	// It only moves the exp claim: validation still enforces iat + configured TTL.
	TTL time.Duration
	// IssuedAt overrides the issuance time. Zero uses the service clock.
	IssuedAt time.Time
}

type tokenDefaults struct {
	issuer   string
	audience jwt.ClaimStrings
	ttl      time.Duration
	now      func() time.Time
}

// Issue mints a signed session token for identity
func (ts *TokenServiceImpl) Issue(identity Identity, opts IssueOptions) (string, time.Time, error) {
	claims, expiresAt, err := buildSessionClaims(ts.tokenDefaults(), identity, opts)
	if err != nil {
		return "", time.Time{}, err
	}

	token, err := ts.SignClaims(claims)
	if err != nil {
		return "", time.Time{}, err
	}

	return token, expiresAt, nil
}

func buildSessionClaims(defaults tokenDefaults, identity Identity, opts IssueOptions) (*JWTClaims, time.Time, error) {
	if identity == nil {
		return nil, time.Time{}, goerrors.New("identity is required", goerrors.CategoryBadInput)
	}
	if identity.ID() == "" {
		return nil, time.Time{}, goerrors.New("identity id is required", goerrors.CategoryBadInput)
	}

	ttl := opts.TTL
	if ttl == 0 {
		ttl = defaults.ttl
	}
	if ttl < 0 {
		return nil, time.Time{}, goerrors.New("token TTL must be non-negative", goerrors.CategoryBadInput)
	}

	issuedAt := opts.IssuedAt
	if issuedAt.IsZero() {
		if defaults.now != nil {
			issuedAt = defaults.now()
		} else {
			issuedAt = time.Now()
		}
	}

	expiresAt := issuedAt.Add(ttl)

	claims := &JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    defaults.issuer,
			Subject:   identity.ID(),
			Audience:  defaults.audience,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UID:       identity.ID(),
		UserEmail: identity.Email(),
		UserRole:  identity.Role(),
		OrgID:     identity.OrganizationID(),
	}

	ensureTokenID(&claims.RegisteredClaims)

	return claims, expiresAt, nil
}

func ensureTokenID(claims *jwt.RegisteredClaims) {
	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}
}
