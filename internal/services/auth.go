package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dagra27407/spinalith-site-sub000/internal/platform/ctxutil"
	"github.com/dagra27407/spinalith-site-sub000/internal/platform/logger"
)

// ServiceSubject is the subject carried by tokens this process mints for itself.
const ServiceSubject = "service:assistant-router"

type AuthService interface {
	// SetContextFromToken verifies an HS256 bearer token and attaches the
	// subject and raw token to ctx.
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	// MintServiceToken issues a short-lived token for internal stage hops
	// that have no caller token to forward (sweeper, temporal).
	MintServiceToken() (string, error)
}

type JWTClaims struct {
	jwt.RegisteredClaims
}

type authService struct {
	log          *logger.Logger
	jwtSecretKey string
	serviceTTL   time.Duration
	now          func() time.Time
}

func NewAuthService(log *logger.Logger, jwtSecretKey string, serviceTTL time.Duration) AuthService {
	if serviceTTL <= 0 {
		serviceTTL = 5 * time.Minute
	}
	return &authService{
		log:          log.With("service", "AuthService"),
		jwtSecretKey: jwtSecretKey,
		serviceTTL:   serviceTTL,
		now:          time.Now,
	}
}

func (as *authService) MintServiceToken() (string, error) {
	if strings.TrimSpace(as.jwtSecretKey) == "" {
		return "", fmt.Errorf("jwt secret not configured")
	}
	now := as.now()
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ServiceSubject,
			ExpiresAt: jwt.NewNumericDate(now.Add(as.serviceTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(as.jwtSecretKey))
}

func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if tokenString == "" {
		return ctx, fmt.Errorf("missing token")
	}
	if strings.TrimSpace(as.jwtSecretKey) == "" {
		return ctx, fmt.Errorf("jwt secret not configured")
	}
	parsedToken, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(as.jwtSecretKey), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(as.now))
	if err != nil {
		return ctx, fmt.Errorf("failed to parse token: %w", err)
	}
	claims, ok := parsedToken.Claims.(*JWTClaims)
	if !ok || !parsedToken.Valid {
		return ctx, fmt.Errorf("invalid or expired JWT token")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return ctx, fmt.Errorf("token has no subject")
	}
	ctx = ctxutil.WithAuthData(ctx, &ctxutil.AuthData{
		Subject: claims.Subject,
		Token:   tokenString,
	})
	return ctx, nil
}
