package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/taskmanager/auth-service/internal/models"
)

// CreateUser persists a new user. A unique-index violation on username
// or email comes back as ErrDuplicate, the caller must not rely on the
// pre-checks alone.
func (r *GormRepo) CreateUser(ctx context.Context, u *models.User) error {
	return translate(r.DB.WithContext(ctx).Create(u).Error)
}

func (r *GormRepo) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := r.DB.WithContext(ctx).Preload("Roles").
		Where("username = ?", username).First(&user).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *GormRepo) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := r.DB.WithContext(ctx).Preload("Roles").First(&user, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *GormRepo) UsernameExists(ctx context.Context, username string) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("username = ?", username).Count(&count).Error
	return count > 0, err
}

func (r *GormRepo) EmailExists(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("email = ?", email).Count(&count).Error
	return count > 0, err
}

// RecordLoginFailure bumps the failed-attempt counter in a single
// UPDATE so concurrent failures on the same account never undercount.
// The row locks itself once the new count reaches threshold. Returns
// whether the account is locked after this failure.
func (r *GormRepo) RecordLoginFailure(ctx context.Context, userID uint, threshold int) (bool, error) {
	now := time.Now()
	err := r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"failed_login_attempts": gorm.Expr("failed_login_attempts + 1"),
			"account_locked":        gorm.Expr("account_locked OR failed_login_attempts + 1 >= ?", threshold),
			"lock_time":             gorm.Expr("CASE WHEN failed_login_attempts + 1 >= ? THEN ? ELSE lock_time END", threshold, now),
		}).Error
	if err != nil {
		return false, err
	}

	var user models.User
	if err := r.DB.WithContext(ctx).Select("account_locked").First(&user, userID).Error; err != nil {
		return false, translate(err)
	}
	return user.AccountLocked, nil
}

// ResetLoginFailures zeroes the counter after a successful credential
// check. The lock flag is deliberately left alone, unlocking is an
// administrative action.
func (r *GormRepo) ResetLoginFailures(ctx context.Context, userID uint) error {
	return r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("failed_login_attempts", 0).Error
}
