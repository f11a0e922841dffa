package identityprovider

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/moffittboard/moffittboard/internal/domain"
	"github.com/moffittboard/moffittboard/internal/identity"
	"github.com/moffittboard/moffittboard/internal/strutils"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const leeway = 30 * time.Second

// Claims are the registered claims plus the verified email of the account
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

type JWTVerifier struct {
	secret  []byte
	issuer  string
	nowFunc func() time.Time

	tracer trace.Tracer
}

// Verify HS256 tokens signed with secret. issuer is checked when not empty.
func NewJWTVerifier(secret string, issuer string, nowFunc func() time.Time) *JWTVerifier {
	return &JWTVerifier{
		secret:  []byte(secret),
		issuer:  issuer,
		nowFunc: nowFunc,

		tracer: otel.Tracer("moffittboard/identityprovider/jwt"),
	}
}

func (v *JWTVerifier) Verify(ctx context.Context, token string) (identity.Identity, error) {
	_, span := v.tracer.Start(ctx, "JWTVerifier.Verify")
	defer span.End()

	id, err := v.verify(token)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return identity.Identity{}, err
	}
	return id, nil
}

func (v *JWTVerifier) verify(token string) (identity.Identity, error) {
	if token == "" {
		return identity.Identity{}, fmt.Errorf("%w: missing token", domain.ErrUnauthenticated)
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(leeway),
		jwt.WithTimeFunc(v.nowFunc),
	}
	if v.issuer != "" {
		options = append(options, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, options...)
	if err != nil {
		return identity.Identity{}, fmt.Errorf("%w: %w", domain.ErrUnauthenticated, err)
	}
	if !parsed.Valid {
		return identity.Identity{}, fmt.Errorf("%w: invalid token", domain.ErrUnauthenticated)
	}

	if claims.Subject == "" {
		return identity.Identity{}, fmt.Errorf("%w: missing subject", domain.ErrUnauthenticated)
	}
	email, err := strutils.NormalizeEmail(claims.Email)
	if err != nil {
		return identity.Identity{}, fmt.Errorf("%w: invalid email claim: %w", domain.ErrUnauthenticated, err)
	}

	return identity.Identity{
		Subject: claims.Subject,
		Email:   email,
	}, nil
}

var _ IdentityProvider = (*JWTVerifier)(nil)
