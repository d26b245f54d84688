package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"examprep_backend/internal/config"
	"examprep_backend/internal/model"
	"examprep_backend/internal/repository"
	"examprep_backend/internal/util"
	"examprep_backend/pkg/logger"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct {
	UserRepo *repository.UserRepository
	Cfg      *config.Config
	Now      func() time.Time
}

func NewAuthService(userRepo *repository.UserRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		UserRepo: userRepo,
		Cfg:      cfg,
		Now:      time.Now,
	}
}

type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// LoginResult 登录成功返回的令牌和用户
type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      *model.User `json:"user"`
}

var legacyHashPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// NormalizeEmail 邮箱去除首尾空格并转小写
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	email := NormalizeEmail(in.Email)
	if email == "" || len(in.Password) < 8 {
		return nil, fmt.Errorf("%w: email and a password of at least 8 characters are required", util.ErrValidation)
	}

	_, err := s.UserRepo.FindByEmail(ctx, email)
	if err == nil {
		return nil, util.ErrEmailRegistered
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %v", util.ErrStoreUnavailable, err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		Email:        email,
		PasswordHash: string(hashedPassword),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Role:         model.Student,
	}
	if err := s.UserRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrStoreUnavailable, err)
	}
	return user, nil
}

// Login 旧版 SHA-256 十六进制哈希校验通过后升级为 bcrypt
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.UserRepo.FindByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrStoreUnavailable, err)
	}

	switch {
	case legacyHashPattern.MatchString(user.PasswordHash):
		sum := sha256.Sum256([]byte(password))
		if subtle.ConstantTimeCompare([]byte(hex.EncodeToString(sum[:])), []byte(user.PasswordHash)) != 1 {
			return nil, util.ErrInvalidCredentials
		}
		s.upgradeHash(ctx, user, password)
	default:
		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
			return nil, util.ErrInvalidCredentials
		}
	}

	now := s.Now()
	if err := s.UserRepo.TouchLastLogin(ctx, user.ID, now); err != nil {
		logger.Log.Warn("Failed to update last login", zap.Uint("userId", user.ID), zap.Error(err))
	} else {
		user.LastLoginAt = &now
	}

	token, err := util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, ExpiresAt: now.Add(s.Cfg.JWT.ExpireTime), User: user}, nil
}

func (s *AuthService) upgradeHash(ctx context.Context, user *model.User, password string) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logger.Log.Warn("Failed to hash password for upgrade", zap.Error(err))
		return
	}
	if err := s.UserRepo.UpdatePasswordHash(ctx, user.ID, string(hashed)); err != nil {
		logger.Log.Warn("Failed to upgrade legacy password hash", zap.Uint("userId", user.ID), zap.Error(err))
		return
	}
	user.PasswordHash = string(hashed)
	logger.Log.Info("Upgraded legacy password hash", zap.Uint("userId", user.ID))
}

func (s *AuthService) Profile(ctx context.Context, userID uint) (*model.User, error) {
	user, err := s.UserRepo.FindByID(ctx, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrStoreUnavailable, err)
	}
	return user, nil
}

func (s *AuthService) UpdateProfile(ctx context.Context, userID uint, firstName, lastName string) (*model.User, error) {
	if err := s.UserRepo.UpdateProfile(ctx, userID, strings.TrimSpace(firstName), strings.TrimSpace(lastName)); err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrStoreUnavailable, err)
	}
	return s.Profile(ctx, userID)
}
