package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"quant_bench_go/internal/model"
	"quant_bench_go/internal/repository"
	"quant_bench_go/pkg/database"
	"quant_bench_go/pkg/hash"
	"quant_bench_go/pkg/log"
	"quant_bench_go/pkg/token"

	"gorm.io/gorm"
)

type UserService interface {
	Register(username, email, password string) (*model.User, error)
	Login(username, password string) (accessToken, refreshToken string, err error)
	Logout(tokenString string) error
	GetProfile(username string) (*model.User, error)
	FindByID(userID uint) (*model.User, error)
}

type userService struct {
	userRepo   repository.UserRepository
	JWTManager *token.JWTManager
}

func NewUserService(userRepo repository.UserRepository, jwtManager *token.JWTManager) UserService {
	return &userService{
		userRepo:   userRepo,
		JWTManager: jwtManager,
	}
}

func (s *userService) Register(username, email, password string) (*model.User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" || email == "" || password == "" {
		return nil, ErrInvalidInput
	}

	// 1. 检查用户名是否已被占用
	existingUser, err := s.userRepo.FindByUsername(username)
	if err != nil {
		// 查无记录是正常分支，继续注册
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	} else if existingUser != nil {
		return nil, ErrUserAlreadyExists
	}

	// 2. 检查邮箱是否已被占用
	existingUser, err = s.userRepo.FindByEmail(email)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	} else if existingUser != nil {
		return nil, ErrUserAlreadyExists
	}

	// 3. 密码进行哈希
	hashedPassword, err := hash.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	// 4. 创建新用户
	newUser := &model.User{
		Username: username,
		Email:    email,
		Password: hashedPassword,
		Role:     "USER",
	}
	if err := s.userRepo.Create(newUser); err != nil {
		return nil, err
	}
	return newUser, nil
}

func (s *userService) Login(username, password string) (accessToken, refreshToken string, err error) {
	if s.JWTManager == nil {
		return "", "", ErrInternal
	}

	// 1. 检查用户是否存在
	existingUser, err := s.userRepo.FindByUsername(username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// 用户不存在，返回统一的凭证错误，防止用户枚举
			return "", "", ErrInvalidCredentials
		}
		// 真正的数据库错误：记日志，对外返回通用错误
		log.Errorf("Login: failed to query user %q: %v", username, err)
		return "", "", ErrInternal
	}
	if existingUser == nil {
		return "", "", ErrInvalidCredentials
	}

	// 2. 检查密码是否正确。密码错误与"用户不存在"返回相同错误，防止用户枚举
	if !hash.CheckPasswordHash(password, existingUser.Password) {
		return "", "", ErrInvalidCredentials
	}

	// 3. 生成JWT令牌（使用数据库中的 Username，避免大小写/规范化不一致）
	accessToken, refreshToken, err = s.JWTManager.GenerateToken(existingUser.ID, existingUser.Username, existingUser.Role)
	if err != nil {
		log.Errorf("Login: failed to generate token for user %q: %v", existingUser.Username, err)
		return "", "", ErrInternal
	}
	return accessToken, refreshToken, nil
}

// Logout 把 token 写入 Redis 黑名单，key 前缀与认证中间件保持一致。
// 黑名单过期时间与 token 剩余有效期对齐，过期后自动清理。
func (s *userService) Logout(tokenString string) error {
	if s.JWTManager == nil || database.RDB == nil {
		return ErrInternal
	}

	claims, err := s.JWTManager.VerifyToken(tokenString)
	if err != nil || claims == nil {
		return ErrInvalidCredentials
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		// 已过期的 token 无需拉黑
		return nil
	}

	blacklistKey := "token_blacklist:" + tokenString
	if err := database.RDB.Set(context.Background(), blacklistKey, "1", ttl).Err(); err != nil {
		log.Error("Logout: failed to blacklist token", err)
		return ErrInternal
	}
	return nil
}

func (s *userService) GetProfile(username string) (*model.User, error) {
	user, err := s.userRepo.FindByUsername(username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		log.Errorf("GetProfile: failed to query user %q: %v", username, err)
		return nil, ErrInternal
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *userService) FindByID(userID uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, ErrInternal
	}
	return user, nil
}
