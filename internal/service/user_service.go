// Package service 包含了应用的业务逻辑层。
package service

import (
	"errors"

	"profile-media-go/internal/model"
	"profile-media-go/internal/repository"
	"profile-media-go/pkg/hash"
	"profile-media-go/pkg/token"

	"gorm.io/gorm"
)

// UserService 接口定义了用户认证边界的业务操作。
// 媒体核心只消费已认证的调用者身份，这里提供让服务可独立运行的最小实现。
type UserService interface {
	Register(username, password string) (*model.User, error)
	Login(username, password string) (accessToken string, err error)
	GetByUsername(username string) (*model.User, error)
}

// userService 是 UserService 接口的实现。
type userService struct {
	userRepo   repository.UserRepository
	jwtManager *token.JWTManager
}

// NewUserService 创建一个新的 UserService 实例。
func NewUserService(userRepo repository.UserRepository, jwtManager *token.JWTManager) UserService {
	return &userService{userRepo: userRepo, jwtManager: jwtManager}
}

// Register 处理用户注册的业务逻辑。
func (s *userService) Register(username, password string) (*model.User, error) {
	_, err := s.userRepo.FindByUsername(username)
	if err == nil {
		return nil, errors.New("用户名已存在")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashedPassword, err := hash.HashPassword(password)
	if err != nil {
		return nil, err
	}

	newUser := &model.User{
		Username: username,
		Password: hashedPassword,
		Role:     "USER", // 默认角色
	}
	if err := s.userRepo.Create(newUser); err != nil {
		return nil, err
	}
	return newUser, nil
}

// Login 校验凭据并签发 access token。
func (s *userService) Login(username, password string) (string, error) {
	user, err := s.userRepo.FindByUsername(username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", errors.New("用户名或密码错误")
		}
		return "", err
	}

	if !hash.CheckPassword(password, user.Password) {
		return "", errors.New("用户名或密码错误")
	}

	return s.jwtManager.GenerateToken(user.ID, user.Username, user.Role)
}

// GetByUsername 根据用户名获取用户，供认证中间件使用。
func (s *userService) GetByUsername(username string) (*model.User, error) {
	return s.userRepo.FindByUsername(username)
}
