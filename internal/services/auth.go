package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/yungbote/doubtclear-backend/internal/apierr"
	"github.com/yungbote/doubtclear-backend/internal/logger"
	"github.com/yungbote/doubtclear-backend/internal/repos"
	"github.com/yungbote/doubtclear-backend/internal/types"
	"github.com/yungbote/doubtclear-backend/internal/utils"
)

type AuthService interface {
	Register(ctx context.Context, email, password, fullName string) (*types.UserProfile, string, error)
	Login(ctx context.Context, email, password string) (*types.UserProfile, string, error)
	ValidateToken(tokenString string) (uuid.UUID, error)
}

type authService struct {
	db  *gorm.DB
	log *logger.Logger

	userProfileRepo repos.UserProfileRepo
	jwtSecret       []byte
	tokenTTL        time.Duration
}

func NewAuthService(db *gorm.DB, baseLog *logger.Logger, userProfileRepo repos.UserProfileRepo) AuthService {
	log := baseLog.With("service", "AuthService")
	secret := utils.GetEnv("JWT_SECRET", "", log)
	if secret == "" {
		log.Warn("JWT_SECRET is not set; using an insecure development secret")
		secret = "dev-secret-do-not-use"
	}
	ttlHours := utils.GetEnvAsInt("JWT_TTL_HOURS", 72, log)
	return &authService{
		db:              db,
		log:             log,
		userProfileRepo: userProfileRepo,
		jwtSecret:       []byte(secret),
		tokenTTL:        time.Duration(ttlHours) * time.Hour,
	}
}

func (s *authService) Register(ctx context.Context, email, password, fullName string) (*types.UserProfile, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	fullName = strings.TrimSpace(fullName)
	if email == "" || !strings.Contains(email, "@") {
		return nil, "", fmt.Errorf("%w: a valid email is required", apierr.ErrValidation)
	}
	if len(password) < 8 {
		return nil, "", fmt.Errorf("%w: password must be at least 8 characters", apierr.ErrValidation)
	}
	if fullName == "" {
		return nil, "", fmt.Errorf("%w: full name is required", apierr.ErrValidation)
	}

	exists, err := s.userProfileRepo.EmailExists(ctx, nil, email)
	if err != nil {
		return nil, "", fmt.Errorf("check email: %w", err)
	}
	if exists {
		return nil, "", fmt.Errorf("%w: email already registered", apierr.ErrConflict)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	now := time.Now()
	user := &types.UserProfile{
		ID:        uuid.New(),
		Email:     email,
		Password:  string(hash),
		FullName:  fullName,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.userProfileRepo.Create(ctx, nil, []*types.UserProfile{user}); err != nil {
		return nil, "", fmt.Errorf("create user: %w", err)
	}

	token, err := s.issueToken(user.ID)
	if err != nil {
		return nil, "", err
	}
	s.log.Info("User registered", "user_id", user.ID)
	return user, token, nil
}

func (s *authService) Login(ctx context.Context, email, password string) (*types.UserProfile, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, "", fmt.Errorf("%w: email and password are required", apierr.ErrValidation)
	}

	user, err := s.userProfileRepo.GetByEmail(ctx, nil, email)
	if err != nil {
		return nil, "", fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, "", fmt.Errorf("%w: invalid credentials", apierr.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, "", fmt.Errorf("%w: invalid credentials", apierr.ErrUnauthorized)
	}

	token, err := s.issueToken(user.ID)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *authService) issueToken(userID uuid.UUID) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (s *authService) ValidateToken(tokenString string) (uuid.UUID, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, fmt.Errorf("%w: invalid token", apierr.ErrUnauthorized)
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || claims.Subject == "" {
		return uuid.Nil, fmt.Errorf("%w: invalid token claims", apierr.ErrUnauthorized)
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid token subject", apierr.ErrUnauthorized)
	}
	return userID, nil
}
