package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	id "pixkeys/pkg/domain"
	dErrors "pixkeys/pkg/domain-errors"
)

// Claims carries the account owner the token acts for.
type Claims struct {
	OwnerID string `json:"owner_id"`
	jwt.RegisteredClaims
}

// JWTService signs and checks HS256 access tokens for one issuer/audience pair.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
	clock      func() time.Time
	leeway     time.Duration
	parser     *jwt.Parser
}

type Option func(*JWTService)

// WithClock replaces time.Now for issuing and validating.
func WithClock(clock func() time.Time) Option {
	return func(s *JWTService) { s.clock = clock }
}

// WithLeeway tolerates clock skew with the token issuer.
func WithLeeway(d time.Duration) Option {
	return func(s *JWTService) { s.leeway = d }
}

func NewJWTService(signingKey, issuer, audience string, opts ...Option) *JWTService {
	s := &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		clock:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(s.leeway),
		jwt.WithTimeFunc(s.clock),
	)
	return s
}

// Issue signs a token for ownerID. pixctl and tests mint tokens this way;
// in production the identity provider does.
func (s *JWTService) Issue(ownerID id.OwnerID, ttl time.Duration) (string, error) {
	now := s.clock()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		OwnerID: ownerID.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ownerID.String(),
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(s.signingKey)
}

func (s *JWTService) ValidateToken(raw string) (*Claims, error) {
	claims := &Claims{}
	if _, err := s.parser.ParseWithClaims(raw, claims, s.key); err != nil {
		return nil, rejection(err)
	}
	return claims, nil
}

func (s *JWTService) key(*jwt.Token) (any, error) {
	return s.signingKey, nil
}

func rejection(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return dErrors.New(dErrors.CodeUnauthorized, "token has expired")
	case errors.Is(err, jwt.ErrTokenNotValidYet), errors.Is(err, jwt.ErrTokenUsedBeforeIssued):
		return dErrors.New(dErrors.CodeUnauthorized, "token is not valid yet")
	case errors.Is(err, jwt.ErrTokenInvalidAudience), errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return dErrors.New(dErrors.CodeUnauthorized, "token was issued for another service")
	default:
		return dErrors.Wrap(err, dErrors.CodeUnauthorized, "invalid token")
	}
}
