package service

import (
	"errors"
	"time"

	"github.com/altostack/contactvault/internal/dto"
	apperrors "github.com/altostack/contactvault/internal/errors"
	"github.com/golang-jwt/jwt/v5"
)

const claimTypeRefresh = "refresh"

type JWTService struct {
	secretKey       string
	accessDuration  time.Duration
	refreshDuration time.Duration
}

func NewJWTService(secretKey string, accessDuration, refreshDuration time.Duration) *JWTService {
	if accessDuration <= 0 {
		accessDuration = 15 * time.Minute
	}
	if refreshDuration <= 0 {
		refreshDuration = 7 * 24 * time.Hour
	}
	return &JWTService{
		secretKey:       secretKey,
		accessDuration:  accessDuration,
		refreshDuration: refreshDuration,
	}
}

// AccessDuration reports the configured access token lifetime
func (s *JWTService) AccessDuration() time.Duration {
	return s.accessDuration
}

// GenerateSessionTokens issues an access/refresh pair carrying the user's
// identity claims. Both are signed with the same HS256 secret; the refresh
// token is marked with a typ claim so it cannot authorize API requests.
func (s *JWTService) GenerateSessionTokens(user *dto.UserResponse) (accessToken, refreshToken string, err error) {
	now := time.Now()

	accessToken, err = s.sign(jwt.MapClaims{
		"user_id":     user.ID,
		"email":       user.Email,
		"is_verified": user.IsVerified,
		"iat":         now.Unix(),
		"exp":         now.Add(s.accessDuration).Unix(),
	})
	if err != nil {
		return "", "", err
	}

	refreshToken, err = s.sign(jwt.MapClaims{
		"user_id":     user.ID,
		"email":       user.Email,
		"is_verified": user.IsVerified,
		"typ":         claimTypeRefresh,
		"iat":         now.Unix(),
		"exp":         now.Add(s.refreshDuration).Unix(),
	})
	if err != nil {
		return "", "", err
	}

	return accessToken, refreshToken, nil
}

func (s *JWTService) sign(claims jwt.MapClaims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secretKey))
}

// ValidateToken validates signature and expiry. Expired tokens are reported
// distinctly from malformed or tampered ones so callers can prompt
// re-authentication instead of rejecting outright.
func (s *JWTService) ValidateToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(s.secretKey), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.WrapError(apperrors.ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, apperrors.ErrInvalidToken
	}

	return claims, nil
}

// RefreshSession validates a refresh token and mints a new session pair from
// its embedded identity claims.
func (s *JWTService) RefreshSession(refreshToken string) (*dto.TokenPairResponse, error) {
	claims, err := s.ValidateToken(refreshToken)
	if err != nil {
		return nil, apperrors.ErrInvalidRefreshToken
	}

	if typ, _ := claims["typ"].(string); typ != claimTypeRefresh {
		return nil, apperrors.ErrInvalidRefreshToken
	}

	userID, ok := claims["user_id"].(float64)
	if !ok {
		return nil, apperrors.ErrInvalidRefreshToken
	}
	email, _ := claims["email"].(string)
	isVerified, _ := claims["is_verified"].(bool)

	user := &dto.UserResponse{
		ID:         uint(userID),
		Email:      email,
		IsVerified: isVerified,
	}

	access, refresh, err := s.GenerateSessionTokens(user)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	return &dto.TokenPairResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(s.accessDuration.Seconds()),
	}, nil
}

// TokenRemainingLifetime returns how long until the token's exp claim, or
// zero when it is missing or already past. Used to size revocation TTLs.
func (s *JWTService) TokenRemainingLifetime(claims jwt.MapClaims) time.Duration {
	exp, ok := claims["exp"].(float64)
	if !ok {
		return 0
	}
	remaining := time.Until(time.Unix(int64(exp), 0))
	if remaining < 0 {
		return 0
	}
	return remaining
}
