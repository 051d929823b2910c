package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/classpoint/classpoint-api/internal/dto"
	"github.com/classpoint/classpoint-api/internal/repository"
)

// UserService covers account administration. Balance overrides are routed
// through the reconciler so manual adjustments are logged in one place.
type UserService interface {
	Get(ctx context.Context, id uint) (dto.UserResponse, error)
	ListStudents(ctx context.Context) ([]dto.UserResponse, error)
	Update(ctx context.Context, id uint, req dto.UserUpdateRequest) (dto.UserResponse, error)
	Delete(ctx context.Context, id uint) error
}

type userService struct {
	users      repository.UserRepository
	reconciler PointsReconciler
	logger     zerolog.Logger
	now        func() time.Time
}

// NewUserService constructs the user administration service.
func NewUserService(users repository.UserRepository, reconciler PointsReconciler, logger zerolog.Logger, now func() time.Time) UserService {
	return &userService{
		users:      users,
		reconciler: reconciler,
		logger:     logger.With().Str("component", "user_service").Logger(),
		now:        now,
	}
}

func (s *userService) Get(ctx context.Context, id uint) (dto.UserResponse, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}
		return dto.UserResponse{}, err
	}
	return dto.NewUserResponse(user), nil
}

func (s *userService) ListStudents(ctx context.Context) ([]dto.UserResponse, error) {
	students, err := s.users.ListStudents(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]dto.UserResponse, 0, len(students))
	for _, student := range students {
		out = append(out, dto.NewUserResponse(student))
	}
	return out, nil
}

func (s *userService) Update(ctx context.Context, id uint, req dto.UserUpdateRequest) (dto.UserResponse, error) {
	if req.Username == nil && req.Email == nil && req.Password == nil && req.Points == nil {
		return dto.UserResponse{}, ErrNoUpdates
	}

	if _, err := s.users.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.UserResponse{}, ErrUserNotFound
		}
		return dto.UserResponse{}, err
	}

	updates := map[string]interface{}{}
	if req.Username != nil {
		taken, err := s.users.UsernameTaken(ctx, *req.Username, id)
		if err != nil {
			return dto.UserResponse{}, err
		}
		if taken {
			return dto.UserResponse{}, ErrUsernameTaken
		}
		updates["username"] = *req.Username
	}
	if req.Email != nil {
		taken, err := s.users.EmailTaken(ctx, *req.Email, id)
		if err != nil {
			return dto.UserResponse{}, err
		}
		if taken {
			return dto.UserResponse{}, ErrEmailTaken
		}
		updates["email"] = *req.Email
	}
	if req.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			return dto.UserResponse{}, err
		}
		updates["password"] = string(hash)
	}
	if len(updates) > 0 {
		updates["updated_at"] = s.now()
		if err := s.users.Update(ctx, id, updates); err != nil {
			return dto.UserResponse{}, err
		}
	}

	if req.Points != nil {
		if err := s.reconciler.SetStudentBalance(ctx, id, *req.Points); err != nil {
			return dto.UserResponse{}, err
		}
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return dto.UserResponse{}, err
	}

	s.logger.Info().Uint("user_id", id).Msg("account updated")
	return dto.NewUserResponse(user), nil
}

func (s *userService) Delete(ctx context.Context, id uint) error {
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	s.logger.Info().Uint("user_id", id).Msg("account deleted")
	return nil
}
