package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nmalenkov/storefront/internal/events"
	"github.com/nmalenkov/storefront/internal/models"
	"github.com/nmalenkov/storefront/internal/repo"
	pkg_hash "github.com/nmalenkov/storefront/pkg/hash"
	"github.com/nmalenkov/storefront/pkg/jwtutil"
	"github.com/nmalenkov/storefront/pkg/logging"
	"github.com/nmalenkov/storefront/pkg/tokens"
)

const (
	accessTTL  = 15 * time.Minute
	refreshTTL = 7 * 24 * time.Hour
)

type AuthService struct {
	Repo          *repo.GormRepo
	JWTSecret     []byte
	RefreshSecret []byte
	Producer      *events.Producer
}

type LoginResult struct {
	AccessToken  string
	RefreshToken string
	AccessExp    time.Time
	RefreshExp   time.Time
	IsAdmin      bool
}

func (s *AuthService) CreateAccessToken(role, sub string, accessExp time.Time) (string, error) {
	accessClaims := tokens.AccessClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(accessExp),
		},
	}

	tokenAccess := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims)
	return tokenAccess.SignedString(s.JWTSecret)
}

func (s *AuthService) CreateRefreshToken(sub string, refreshExp time.Time) (raw, jti string, err error) {
	jti = jwtutil.NewJTI()
	refreshClaims := tokens.RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(refreshExp),
			ID:        jti,
		},
	}

	tokenRefresh := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims)
	raw, err = tokenRefresh.SignedString(s.RefreshSecret)
	if err != nil {
		return "", "", err
	}
	return raw, jti, nil
}

func (s *AuthService) Register(ctx context.Context, email, name, password string) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	pwHash, err := pkg_hash.HashPassword(password)
	if err != nil {
		l.Error("register_error", "reason", "cannot hash password", "error", err)
		return nil, err
	}

	user := models.User{
		Email:        email,
		Name:         name,
		PasswordHash: pwHash,
		Role:         models.RoleUser,
	}
	if err := s.Repo.CreateUserIfNotExists(ctx, &user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExists) {
			return nil, fmt.Errorf("%w: user already exists", ErrConflict)
		}
		return nil, err
	}

	if err := s.Producer.PublishEvent(ctx, events.TopicUserEvents, fmt.Sprint(user.ID), map[string]any{
		"type":    "user_registered",
		"user_id": user.ID,
		"email":   user.Email,
	}); err != nil {
		l.Warn("event publish failed", "error", err)
	}

	return &user, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login")

	user, err := s.Repo.UserByCredentials(ctx, email, password)
	if err != nil {
		if errors.Is(err, repo.ErrInvalidCredentials) {
			return nil, fmt.Errorf("%w: invalid email or password", ErrUnauthorized)
		}
		l.Error("login_error", "error", err)
		return nil, err
	}

	return s.issueTokens(ctx, user)
}

// Refresh redeems a refresh token for a fresh pair. Redemption is
// single-use: the stored row is replaced inside one transaction, so a
// replayed token fails with ErrUnauthorized.
func (s *AuthService) Refresh(ctx context.Context, rawRefresh string) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	claims, err := tokens.RefreshClaimsFromToken(rawRefresh, s.RefreshSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid refresh token", ErrUnauthorized)
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid refresh token", ErrUnauthorized)
	}

	user, err := s.Repo.UserByID(ctx, uint(userID))
	if err != nil {
		return nil, fmt.Errorf("%w: unknown user", ErrUnauthorized)
	}

	refreshExp := time.Now().Add(refreshTTL)
	newRaw, newJTI, err := s.CreateRefreshToken(claims.Subject, refreshExp)
	if err != nil {
		l.Error("refresh_error", "error", err)
		return nil, err
	}

	replacement := models.RefreshToken{
		Token:     jwtutil.Sha256Hex(newRaw),
		JTI:       newJTI,
		UserID:    user.ID,
		ExpiresAt: refreshExp.Unix(),
	}
	if err := s.Repo.RedeemRefreshToken(ctx, claims.ID, &replacement); err != nil {
		if errors.Is(err, repo.ErrRefreshNotFound) || errors.Is(err, repo.ErrRefreshExpired) {
			return nil, fmt.Errorf("%w: refresh token expired or already used", ErrUnauthorized)
		}
		l.Error("refresh_error", "error", err)
		return nil, err
	}

	accessExp := time.Now().Add(accessTTL)
	accessToken, err := s.CreateAccessToken(user.Role, claims.Subject, accessExp)
	if err != nil {
		l.Error("refresh_error", "error", err)
		return nil, err
	}

	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: newRaw,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
		IsAdmin:      user.Role == models.RoleAdmin,
	}, nil
}

func (s *AuthService) Logout(ctx context.Context, rawRefresh string) error {
	return s.Repo.DeleteRefreshByDigest(ctx, jwtutil.Sha256Hex(rawRefresh))
}

func (s *AuthService) issueTokens(ctx context.Context, user *models.User) (*LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.issue_tokens")
	sub := strconv.FormatUint(uint64(user.ID), 10)

	accessExp := time.Now().Add(accessTTL)
	accessToken, err := s.CreateAccessToken(user.Role, sub, accessExp)
	if err != nil {
		l.Error("token_error", "error", err)
		return nil, err
	}

	refreshExp := time.Now().Add(refreshTTL)
	rawRefresh, jti, err := s.CreateRefreshToken(sub, refreshExp)
	if err != nil {
		l.Error("token_error", "error", err)
		return nil, err
	}

	if err := s.Repo.AddRefreshToken(ctx, &models.RefreshToken{
		Token:     jwtutil.Sha256Hex(rawRefresh),
		JTI:       jti,
		UserID:    user.ID,
		ExpiresAt: refreshExp.Unix(),
	}); err != nil {
		l.Error("token_error", "error", err)
		return nil, err
	}

	return &LoginResult{
		AccessToken:  accessToken,
		RefreshToken: rawRefresh,
		AccessExp:    accessExp,
		RefreshExp:   refreshExp,
		IsAdmin:      user.Role == models.RoleAdmin,
	}, nil
}
