package service

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/classpoint/classpoint-api/internal/dto"
	"github.com/classpoint/classpoint-api/internal/models"
	"github.com/classpoint/classpoint-api/internal/repository"
)

// AuthService handles registration and login. Self-registration only ever
// creates student accounts.
type AuthService interface {
	Register(ctx context.Context, req dto.RegisterRequest) (dto.UserResponse, error)
	Login(ctx context.Context, req dto.LoginRequest) (dto.LoginResponse, error)
}

type authService struct {
	users     repository.UserRepository
	jwtSecret []byte
	jwtExpiry time.Duration
	logger    zerolog.Logger
	now       func() time.Time
}

// NewAuthService constructs the auth service.
func NewAuthService(users repository.UserRepository, jwtSecret string, jwtExpiry time.Duration, logger zerolog.Logger, now func() time.Time) AuthService {
	return &authService{
		users:     users,
		jwtSecret: []byte(jwtSecret),
		jwtExpiry: jwtExpiry,
		logger:    logger.With().Str("component", "auth_service").Logger(),
		now:       now,
	}
}

func (s *authService) Register(ctx context.Context, req dto.RegisterRequest) (dto.UserResponse, error) {
	taken, err := s.users.UsernameTaken(ctx, req.Username, 0)
	if err != nil {
		return dto.UserResponse{}, err
	}
	if taken {
		return dto.UserResponse{}, ErrUsernameTaken
	}

	taken, err = s.users.EmailTaken(ctx, req.Email, 0)
	if err != nil {
		return dto.UserResponse{}, err
	}
	if taken {
		return dto.UserResponse{}, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return dto.UserResponse{}, err
	}

	email := req.Email
	user := models.User{
		Username: req.Username,
		Email:    &email,
		Password: string(hash),
		Role:     models.RoleStudent,
	}
	if err := s.users.Create(ctx, &user); err != nil {
		return dto.UserResponse{}, err
	}

	s.logger.Info().Uint("user_id", user.ID).Str("username", user.Username).Msg("student registered")
	return dto.NewUserResponse(user), nil
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (dto.LoginResponse, error) {
	user, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.LoginResponse{}, ErrInvalidCredentials
		}
		return dto.LoginResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return dto.LoginResponse{}, ErrInvalidCredentials
	}

	user.Role = models.NormalizeRole(user.Role)
	token, err := s.issueToken(user)
	if err != nil {
		return dto.LoginResponse{}, err
	}

	s.logger.Info().Uint("user_id", user.ID).Str("role", user.Role).Msg("login succeeded")
	return dto.LoginResponse{
		UserResponse: dto.NewUserResponse(user),
		Token:        token,
	}, nil
}

func (s *authService) issueToken(user models.User) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":  user.ID,
		"role": user.Role,
		"iat":  now.Unix(),
		"exp":  now.Add(s.jwtExpiry).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
}
