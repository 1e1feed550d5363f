package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/altostack/contactvault/internal/dto"
	apperrors "github.com/altostack/contactvault/internal/errors"
	"github.com/altostack/contactvault/internal/model"
	"github.com/altostack/contactvault/internal/repository"
	"github.com/altostack/contactvault/pkg/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const resetTokenLifetime = time.Hour

type UserService struct {
	repoUser   *repository.UserRepository
	jwtService *JWTService
	revocation RevocationStore
	mailer     Mailer
}

func NewUserService(repo *repository.UserRepository, jwtService *JWTService, revocation RevocationStore, mailer Mailer) *UserService {
	return &UserService{
		repoUser:   repo,
		jwtService: jwtService,
		revocation: revocation,
		mailer:     mailer,
	}
}

// hashPassword hashes password using bcrypt
func (s *UserService) hashPassword(password string) (string, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashedPassword), nil
}

// checkPassword verifies password against hash
func (s *UserService) checkPassword(hashedPassword, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil
}

func toUserResponse(user *model.User) dto.UserResponse {
	return dto.UserResponse{
		ID:         user.ID,
		Email:      user.Email,
		IsVerified: user.IsVerified,
		LastLogin:  user.LastLogin,
		CreatedAt:  user.CreatedAt,
		UpdatedAt:  user.UpdatedAt,
	}
}

// Register creates an unverified user and hands a verification token to the
// mailer. Mailer failure does not roll the registration back.
func (s *UserService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.UserResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	logger.GetLogger().Info("Registering user",
		zap.String("email", email),
	)

	if _, err := s.repoUser.GetByEmail(ctx, email); err == nil {
		return nil, apperrors.ErrEmailExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	hashedPassword, err := s.hashPassword(req.Password)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	user := &model.User{
		Email:             email,
		Password:          hashedPassword,
		VerificationToken: uuid.NewString(),
		IsVerified:        false,
	}

	if err := s.repoUser.Create(ctx, user); err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if err := s.mailer.SendVerificationEmail(user.Email, user.VerificationToken); err != nil {
		logger.GetLogger().Warn("Verification email delivery failed",
			zap.Uint("user_id", user.ID),
			zap.Error(err),
		)
	}

	response := toUserResponse(user)
	return &response, nil
}

// Login verifies credentials and issues a session pair. Unknown email and
// wrong password fail identically so account existence is not disclosed.
func (s *UserService) Login(ctx context.Context, email, password string) (*dto.LoginResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.repoUser.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.GetLogger().Info("Login failed: unknown email",
				zap.String("email", email),
			)
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if !s.checkPassword(user.Password, password) {
		logger.GetLogger().Warn("Login failed: incorrect password",
			zap.Uint("user_id", user.ID),
		)
		return nil, apperrors.ErrInvalidCredentials
	}

	if !user.IsVerified {
		logger.GetLogger().Info("Login rejected: email not verified",
			zap.Uint("user_id", user.ID),
		)
		return nil, apperrors.ErrNotVerified
	}

	if err := s.repoUser.UpdateLastLogin(ctx, user.ID); err != nil {
		logger.GetLogger().Warn("Failed to update last login",
			zap.Uint("user_id", user.ID),
			zap.Error(err),
		)
		// Non-fatal
	}

	userResp := toUserResponse(user)
	access, refresh, err := s.jwtService.GenerateSessionTokens(&userResp)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	logger.GetLogger().Info("User logged in",
		zap.Uint("user_id", user.ID),
	)

	return &dto.LoginResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int(s.jwtService.AccessDuration().Seconds()),
		User:         userResp,
	}, nil
}

// Logout adds the presented bearer token to the revocation set
func (s *UserService) Logout(ctx context.Context, rawToken string) error {
	if err := s.revocation.Revoke(ctx, rawToken); err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}
	return nil
}

// RefreshSession mints a new session pair from a valid refresh token
func (s *UserService) RefreshSession(ctx context.Context, refreshToken string) (*dto.TokenPairResponse, error) {
	revoked, err := s.revocation.IsRevoked(ctx, refreshToken)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	if revoked {
		return nil, apperrors.ErrInvalidRefreshToken
	}

	return s.jwtService.RefreshSession(refreshToken)
}

// VerifyEmail confirms the account that holds the token
func (s *UserService) VerifyEmail(ctx context.Context, token string) (*dto.UserResponse, error) {
	if token == "" {
		return nil, apperrors.ErrInvalidToken
	}

	user, err := s.repoUser.GetByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidToken
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if err := s.repoUser.MarkVerified(ctx, user.ID); err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	logger.GetLogger().Info("Email verified",
		zap.Uint("user_id", user.ID),
	)

	user.IsVerified = true
	user.VerificationToken = ""
	response := toUserResponse(user)
	return &response, nil
}

// RequestPasswordReset issues a time-bounded reset token. Unknown emails
// succeed silently so the endpoint cannot be used to probe accounts.
func (s *UserService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.repoUser.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.GetLogger().Info("Password reset requested for unknown email")
			return nil
		}
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	token := uuid.NewString()
	expiresAt := time.Now().UTC().Add(resetTokenLifetime)
	if err := s.repoUser.SetResetToken(ctx, user.ID, token, &expiresAt); err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if err := s.mailer.SendPasswordResetEmail(user.Email, token); err != nil {
		logger.GetLogger().Warn("Password reset email delivery failed",
			zap.Uint("user_id", user.ID),
			zap.Error(err),
		)
	}

	return nil
}

// ResetPassword replaces the password hash when the reset token matches and
// has not expired. The token is invalidated in the same update.
func (s *UserService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return apperrors.ErrInvalidToken
	}

	user, err := s.repoUser.GetByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.ErrInvalidToken
		}
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if user.ResetTokenExpires == nil || time.Now().UTC().After(*user.ResetTokenExpires) {
		return apperrors.ErrInvalidToken
	}

	hashedPassword, err := s.hashPassword(newPassword)
	if err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if err := s.repoUser.UpdatePassword(ctx, user.ID, hashedPassword); err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	logger.GetLogger().Info("Password reset completed",
		zap.Uint("user_id", user.ID),
	)

	return nil
}
