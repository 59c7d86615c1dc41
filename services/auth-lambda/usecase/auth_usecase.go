package usecase

import (
	"context"
	"errors"
	"net/http"
	"strings"

	apperrors "github.com/digioh-event-services/common/errors"
	"github.com/digioh-event-services/common/hash"
	"github.com/digioh-event-services/common/jwt"
	"github.com/digioh-event-services/common/logger"
	"github.com/digioh-event-services/common/validator"
	"github.com/digioh-event-services/services/auth-lambda/models"
	"github.com/digioh-event-services/services/auth-lambda/repository"
)

// UserStore is implemented by *repository.UserRepository
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id int) (*models.User, error)
	Create(ctx context.Context, email, passwordHash, role string) (int, error)
	SetRole(ctx context.Context, id int, role string) error
}

// AuthUseCase handles authentication business logic
type AuthUseCase struct {
	users UserStore
	log   *logger.Logger
}

// NewAuthUseCase creates a new auth use case
func NewAuthUseCase() *AuthUseCase {
	return NewAuthUseCaseWith(repository.NewUserRepository())
}

// NewAuthUseCaseWith builds the use case over users
func NewAuthUseCaseWith(users UserStore) *AuthUseCase {
	return &AuthUseCase{
		users: users,
		log:   logger.Default().With("service", "auth"),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Login verifies credentials and issues a token.
// Unknown email and wrong password give the same error.
func (uc *AuthUseCase) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validator.Struct(req); err != nil {
		return nil, err
	}

	user, err := uc.users.FindByEmail(ctx, req.Email)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if user == nil || !hash.VerifyPassword(req.Password, user.PasswordHash) {
		uc.log.WithContext(ctx).Warn("login failed", "email", req.Email)
		return nil, apperrors.InvalidCredentials()
	}

	token, err := jwt.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, apperrors.Internal("failed to generate token").WithCause(err)
	}
	return &models.AuthResponse{Token: token}, nil
}

// SignUp creates a user with the default role and issues a token
func (uc *AuthUseCase) SignUp(ctx context.Context, req models.SignUpRequest) (*models.AuthResponse, error) {
	req.Email = normalizeEmail(req.Email)
	if err := validator.Struct(req); err != nil {
		return nil, err
	}

	id, err := uc.createUser(ctx, req.Email, req.Password, jwt.RoleUser)
	if err != nil {
		return nil, err
	}

	token, err := jwt.GenerateToken(id, req.Email, jwt.RoleUser)
	if err != nil {
		return nil, apperrors.Internal("failed to generate token").WithCause(err)
	}

	uc.log.WithContext(ctx).LogEvent(logger.EventLog{
		Event:    "user_signed_up",
		UserID:   id,
		EntityID: int64(id),
		Entity:   "user",
		Action:   "create",
		Success:  true,
	})
	return &models.AuthResponse{Message: "User created successfully", Token: token}, nil
}

// errUserExists is AlreadyExists with the 400 status sign-up clients expect
func errUserExists() *apperrors.AppError {
	e := apperrors.AlreadyExists("User")
	e.HTTPStatus = http.StatusBadRequest
	return e
}

// createUser rejects a taken email
func (uc *AuthUseCase) createUser(ctx context.Context, email, password, role string) (int, error) {
	existing, err := uc.users.FindByEmail(ctx, email)
	if err != nil {
		return 0, apperrors.DatabaseError(err)
	}
	if existing != nil {
		return 0, errUserExists()
	}

	hashed, err := hash.HashPassword(password)
	if err != nil {
		return 0, apperrors.Internal("failed to hash password").WithCause(err)
	}
	id, err := uc.users.Create(ctx, email, hashed, role)
	if errors.Is(err, repository.ErrDuplicateEmail) {
		return 0, errUserExists()
	}
	if err != nil {
		return 0, apperrors.DatabaseError(err)
	}
	return id, nil
}

// EnsureAdmin creates an admin account, or promotes an existing one.
// Used by cmd/create_admin.
func (uc *AuthUseCase) EnsureAdmin(ctx context.Context, email, password string) (int, error) {
	email = normalizeEmail(email)
	if err := validator.Struct(models.SignUpRequest{Email: email, Password: password}); err != nil {
		return 0, err
	}

	existing, err := uc.users.FindByEmail(ctx, email)
	if err != nil {
		return 0, apperrors.DatabaseError(err)
	}
	if existing != nil {
		if existing.Role != jwt.RoleAdmin {
			if err := uc.users.SetRole(ctx, existing.ID, jwt.RoleAdmin); err != nil {
				return 0, apperrors.DatabaseError(err)
			}
		}
		return existing.ID, nil
	}
	return uc.createUser(ctx, email, password, jwt.RoleAdmin)
}

// Profile returns the email of the token's user
func (uc *AuthUseCase) Profile(ctx context.Context, userID int) (*models.Profile, error) {
	if userID <= 0 {
		return nil, apperrors.Unauthorized("Unauthorized")
	}
	user, err := uc.users.FindByID(ctx, userID)
	if err != nil {
		return nil, apperrors.DatabaseError(err)
	}
	if user == nil {
		return nil, apperrors.NotFound("User")
	}
	return &models.Profile{Email: user.Email}, nil
}
