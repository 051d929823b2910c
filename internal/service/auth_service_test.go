package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/classpoint/classpoint-api/internal/dto"
	"github.com/classpoint/classpoint-api/internal/models"
	"github.com/classpoint/classpoint-api/internal/repository"
)

const testJWTSecret = "test-secret"

func newAuthService(db *gorm.DB) AuthService {
	return NewAuthService(repository.NewUserRepository(db), testJWTSecret, time.Hour, zerolog.Nop(), time.Now)
}

func TestRegisterAndLogin(t *testing.T) {
	db := testDB(t)
	svc := newAuthService(db)

	user, err := svc.Register(context.Background(), dto.RegisterRequest{
		Username: "alice",
		Email:    "alice@example.com",
		Password: "hunter2hunter2",
	})
	require.NoError(t, err)
	require.Equal(t, models.RoleStudent, user.Role)
	require.Equal(t, 0, user.Points)

	// passwords are stored hashed
	var stored models.User
	require.NoError(t, db.First(&stored, user.UserID).Error)
	require.NotEqual(t, "hunter2hunter2", stored.Password)

	resp, err := svc.Login(context.Background(), dto.LoginRequest{Username: "alice", Password: "hunter2hunter2"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Token)
	require.Equal(t, "alice", resp.Username)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	db := testDB(t)
	svc := newAuthService(db)

	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "hunter2hunter2",
	})
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), dto.RegisterRequest{
		Username: "alice", Email: "other@example.com", Password: "hunter2hunter2",
	})
	require.ErrorIs(t, err, ErrUsernameTaken)

	_, err = svc.Register(context.Background(), dto.RegisterRequest{
		Username: "alice2", Email: "alice@example.com", Password: "hunter2hunter2",
	})
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	db := testDB(t)
	svc := newAuthService(db)

	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "hunter2hunter2",
	})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), dto.LoginRequest{Username: "alice", Password: "wrong-password"})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), dto.LoginRequest{Username: "nobody", Password: "hunter2hunter2"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginTokenClaims(t *testing.T) {
	db := testDB(t)
	svc := newAuthService(db)

	registered, err := svc.Register(context.Background(), dto.RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "hunter2hunter2",
	})
	require.NoError(t, err)

	resp, err := svc.Login(context.Background(), dto.LoginRequest{Username: "alice", Password: "hunter2hunter2"})
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(resp.Token, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(testJWTSecret), nil
	})
	require.NoError(t, err)
	require.EqualValues(t, registered.UserID, claims["sub"])
	require.Equal(t, models.RoleStudent, claims["role"])
}

func TestLoginTokenUsesInjectedClock(t *testing.T) {
	db := testDB(t)
	fixed := time.Date(2026, 3, 1, 18, 30, 0, 0, time.UTC)
	svc := NewAuthService(repository.NewUserRepository(db), testJWTSecret, time.Hour, zerolog.Nop(), func() time.Time { return fixed })

	_, err := svc.Register(context.Background(), dto.RegisterRequest{
		Username: "alice", Email: "alice@example.com", Password: "hunter2hunter2",
	})
	require.NoError(t, err)

	resp, err := svc.Login(context.Background(), dto.LoginRequest{Username: "alice", Password: "hunter2hunter2"})
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(resp.Token, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(testJWTSecret), nil
	}, jwt.WithoutClaimsValidation())
	require.NoError(t, err)
	require.EqualValues(t, fixed.Unix(), claims["iat"])
	require.EqualValues(t, fixed.Add(time.Hour).Unix(), claims["exp"])
}

func TestLoginNormalizesLegacyRole(t *testing.T) {
	db := testDB(t)
	svc := newAuthService(db)

	hashed := seedTutor(t, db, "legacy")
	require.NoError(t, db.Model(&models.User{}).Where("id = ?", hashed.ID).
		Updates(map[string]interface{}{"role": "teacher", "password": mustHash(t, "hunter2hunter2")}).Error)

	resp, err := svc.Login(context.Background(), dto.LoginRequest{Username: "legacy", Password: "hunter2hunter2"})
	require.NoError(t, err)
	require.Equal(t, models.RoleTutor, resp.Role)
}
