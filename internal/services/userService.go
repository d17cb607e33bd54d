package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"

	"spendly/internal/metrics"
	"spendly/internal/models"
	"spendly/internal/repositories"
)

const (
	MinPasswordLength = 6
	bcryptCost        = 8
)

// UserService defines the interface for user-related business logic.
type UserService interface {
	RegisterUser(ctx context.Context, in *models.Register) (*models.User, error)
	LoginUser(ctx context.Context, creds *models.Login) (*models.User, error)
	ChangePassword(ctx context.Context, userID primitive.ObjectID, in *models.PasswordChange) error
	GetTotalUsers(ctx context.Context) (int64, error)
	TrackTotalUsers(ctx context.Context, interval time.Duration)
}

// userService implements UserService using a UserRepository.
type userService struct {
	userRepo repositories.UserRepository
	email    EmailService
}

// NewUserService creates a new UserService. email may be nil.
func NewUserService(userRepo repositories.UserRepository, email EmailService) UserService {
	return &userService{userRepo: userRepo, email: email}
}

func (s *userService) GetTotalUsers(ctx context.Context) (int64, error) {
	return s.userRepo.CountAll(ctx)
}

// TrackTotalUsers refreshes the total-users gauge every interval until ctx ends.
func (s *userService) TrackTotalUsers(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		s.refreshTotalUsers(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *userService) refreshTotalUsers(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	count, err := s.GetTotalUsers(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Error updating total users gauge")
		return
	}
	metrics.TotalUsers.Set(float64(count))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *userService) RegisterUser(ctx context.Context, in *models.Register) (*models.User, error) {
	email := normalizeEmail(in.Email)
	fullname := strings.TrimSpace(in.Fullname)
	log.Debug().Str("email", email).Msg("Attempting to register user")
	if fullname == "" || email == "" || in.Password == "" {
		log.Warn().Msg("Fullname, email, and password are required for registration")
		return nil, fmt.Errorf("fullname, email and password are required")
	}
	if !strings.Contains(email, "@") {
		return nil, fmt.Errorf("invalid email address")
	}
	if len(in.Password) < MinPasswordLength {
		return nil, fmt.Errorf("invalid password: must be at least %d characters", MinPasswordLength)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcryptCost)
	if err != nil {
		log.Error().Err(err).Msg("Failed to hash password during registration")
		return nil, fmt.Errorf("failed to hash password")
	}

	user := &models.User{
		Fullname: fullname,
		Email:    email,
		Password: string(hashedPassword),
	}
	createdUser, err := s.userRepo.Create(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			log.Warn().Str("email", email).Msg("Email already exists during user insertion")
			return nil, fmt.Errorf("user already exists with this email")
		}
		return nil, err
	}

	createdUser.Password = "" // Clear password before returning
	metrics.NewUsersTotal.Inc()
	log.Info().Str("user_id", createdUser.ID.Hex()).Str("email", createdUser.Email).Msg("User registered successfully")
	return createdUser, nil
}

func (s *userService) LoginUser(ctx context.Context, creds *models.Login) (*models.User, error) {
	email := normalizeEmail(creds.Email)
	log.Debug().Str("email", email).Msg("Attempting user login")
	if email == "" || creds.Password == "" {
		return nil, fmt.Errorf("email and password are required")
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			metrics.LoginAttemptsTotal.WithLabelValues("failed").Inc()
			log.Warn().Str("email", email).Msg("Invalid credentials during login attempt")
			return nil, fmt.Errorf("invalid credentials")
		}
		log.Error().Err(err).Str("email", email).Msg("Error finding user for login")
		return nil, fmt.Errorf("internal server error")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(creds.Password)); err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("failed").Inc()
		log.Warn().Str("email", email).Msg("Invalid credentials (password mismatch) during login attempt")
		return nil, fmt.Errorf("invalid credentials")
	}

	user.Password = ""
	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	log.Info().Str("user_id", user.ID.Hex()).Msg("User logged in successfully")
	return user, nil
}

func (s *userService) ChangePassword(ctx context.Context, userID primitive.ObjectID, in *models.PasswordChange) error {
	log.Debug().Str("user_id", userID.Hex()).Msg("Attempting to change password")
	if in.CurrentPassword == "" || in.NewPassword == "" {
		return fmt.Errorf("current and new password are required")
	}
	if len(in.NewPassword) < MinPasswordLength {
		return fmt.Errorf("invalid password: must be at least %d characters", MinPasswordLength)
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			log.Warn().Str("user_id", userID.Hex()).Msg("User not found for password change")
			return fmt.Errorf("user not found")
		}
		log.Error().Err(err).Str("user_id", userID.Hex()).Msg("Failed to fetch user for password change")
		return fmt.Errorf("failed to fetch user")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(in.CurrentPassword)); err != nil {
		metrics.PasswordChangesTotal.WithLabelValues("failed").Inc()
		log.Warn().Str("user_id", userID.Hex()).Msg("Wrong current password on password change")
		return fmt.Errorf("current password is incorrect")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.NewPassword), bcryptCost)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID.Hex()).Msg("Failed to hash new password")
		return fmt.Errorf("failed to hash password")
	}
	if err := s.userRepo.UpdatePassword(ctx, userID, string(hashed)); err != nil {
		if err == mongo.ErrNoDocuments {
			return fmt.Errorf("user not found")
		}
		return err
	}

	metrics.PasswordChangesTotal.WithLabelValues("success").Inc()
	log.Info().Str("user_id", userID.Hex()).Msg("Password changed successfully")

	if s.email != nil && s.email.Enabled() {
		if err := s.email.SendEmail(user.Email, "Your Spendly password was changed", passwordChangedEmail(user.Fullname)); err != nil {
			log.Warn().Err(err).Str("user_id", userID.Hex()).Msg("Failed to send password change notice")
		}
	}
	return nil
}
