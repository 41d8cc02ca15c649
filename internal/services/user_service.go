package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	apperrors "ibooks/internal/errors"
	"ibooks/internal/logger"
	"ibooks/internal/models"
)

// userService handles user-related business logic.
type userService struct {
	db *gorm.DB
}

// NewUserService creates a new UserServicer.
func NewUserService(db *gorm.DB) UserServicer {
	return &userService{db: db}
}

// Register creates a self-service account. The very first user becomes admin.
func (s *userService) Register(ctx context.Context, username, password string) (*models.User, error) {
	var user *models.User
	err := runInTx(ctx, s.db, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Count(&count).Error; err != nil {
			return internal(err)
		}
		role := models.RoleUser
		if count == 0 {
			role = models.RoleAdmin
		}

		var err error
		user, err = s.insertUser(tx, CreateUserInput{
			Username: username,
			Password: password,
			Role:     role,
			IsActive: true,
			TimeZone: models.DefaultTimeZone,
		})
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Authenticate verifies credentials of an active user.
func (s *userService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, internal(err)
	}
	if !user.IsActive {
		return nil, apperrors.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.ErrInvalidCredentials
	}
	return &user, nil
}

// GetUserByID retrieves a user by ID
func (s *userService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, lookupError(err, apperrors.ErrUserNotFound)
	}
	return &user, nil
}

// ListUsers returns all users ordered by id.
func (s *userService) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&users).Error; err != nil {
		return nil, internal(err)
	}
	return users, nil
}

// CreateUser creates a user on behalf of an admin.
func (s *userService) CreateUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	var user *models.User
	err := runInTx(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		user, err = s.insertUser(tx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// UpdateUser applies a partial update. Role and active-flag changes are
// checked against the active admin count inside the same transaction.
func (s *userService) UpdateUser(ctx context.Context, actorID, userID uint, in UpdateUserInput) (*models.User, error) {
	var user models.User
	err := runInTx(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.First(&user, userID).Error; err != nil {
			return lookupError(err, apperrors.ErrUserNotFound)
		}

		if actorID == user.ID {
			if in.Role != nil && *in.Role != user.Role {
				return apperrors.WithMessage(apperrors.ErrInvalidInput, "You cannot change your own role")
			}
			if in.IsActive != nil && !*in.IsActive {
				return apperrors.WithMessage(apperrors.ErrInvalidInput, "You cannot disable yourself")
			}
		}

		losesAdmin := user.IsAdmin() && user.IsActive &&
			((in.Role != nil && *in.Role != models.RoleAdmin) || (in.IsActive != nil && !*in.IsActive))
		if losesAdmin {
			if err := ensureAnotherActiveAdmin(tx, user.ID); err != nil {
				return err
			}
		}

		updates := map[string]interface{}{}
		if in.Password != nil {
			if *in.Password == "" {
				return apperrors.WithMessage(apperrors.ErrInvalidInput, "password must not be empty")
			}
			hash, err := hashPassword(*in.Password)
			if err != nil {
				return err
			}
			updates["password_hash"] = hash
		}
		if in.Role != nil {
			updates["role"] = *in.Role
		}
		if in.IsActive != nil {
			updates["is_active"] = *in.IsActive
		}
		if in.TimeZone != nil {
			tz, err := normalizeTimeZone(*in.TimeZone)
			if err != nil {
				return err
			}
			updates["time_zone"] = tz
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&user).Updates(updates).Error; err != nil {
			return internal(err)
		}
		return tx.First(&user, user.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// EnsureAdmin creates the bootstrap admin when the users table is empty.
// It reports whether a user was created.
func (s *userService) EnsureAdmin(ctx context.Context, username, password string) (*models.User, bool, error) {
	var (
		user    *models.User
		created bool
	)
	err := runInTx(ctx, s.db, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Count(&count).Error; err != nil {
			return internal(err)
		}
		if count > 0 {
			return nil
		}
		var err error
		user, err = s.insertUser(tx, CreateUserInput{
			Username: username,
			Password: password,
			Role:     models.RoleAdmin,
			IsActive: true,
			TimeZone: models.DefaultTimeZone,
		})
		created = err == nil
		return err
	})
	if err != nil {
		return nil, false, err
	}
	if created {
		logger.Get().Infow("seeded admin user", "username", user.Username, "user_id", user.ID)
	}
	return user, created, nil
}

// insertUser validates and inserts a user together with its default categories.
func (s *userService) insertUser(tx *gorm.DB, in CreateUserInput) (*models.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || len(username) > 50 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "username must be 1-50 characters")
	}
	if in.Password == "" || len(in.Password) > 128 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "password must be 1-128 characters")
	}
	role := in.Role
	if role == "" {
		role = models.RoleUser
	}
	if role != models.RoleAdmin && role != models.RoleUser {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "role must be admin or user")
	}
	tz, err := normalizeTimeZone(in.TimeZone)
	if err != nil {
		return nil, err
	}

	var count int64
	if err := tx.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return nil, internal(err)
	}
	if count > 0 {
		return nil, apperrors.ErrUsernameTaken
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     username,
		PasswordHash: hash,
		IsActive:     in.IsActive,
		Role:         role,
		TimeZone:     tz,
	}
	if err := tx.Create(user).Error; err != nil {
		return nil, internal(err)
	}
	if err := seedDefaultCategories(tx, user.ID); err != nil {
		return nil, err
	}
	return user, nil
}

// ensureAnotherActiveAdmin fails with ErrLastAdmin when userID is the only active admin.
func ensureAnotherActiveAdmin(tx *gorm.DB, userID uint) error {
	var others int64
	if err := tx.Model(&models.User{}).
		Where("role = ? AND is_active = ? AND id <> ?", models.RoleAdmin, true, userID).
		Count(&others).Error; err != nil {
		return internal(err)
	}
	if others == 0 {
		return apperrors.ErrLastAdmin
	}
	return nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", internal(err)
	}
	return string(hash), nil
}

func normalizeTimeZone(tz string) (string, error) {
	tz = strings.TrimSpace(tz)
	if tz == "" {
		return models.DefaultTimeZone, nil
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return "", apperrors.WithMessage(apperrors.ErrInvalidInput, "invalid timeZone")
	}
	return tz, nil
}
