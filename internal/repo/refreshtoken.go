package repo

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/taskmanager/auth-service/internal/models"
)

// IssueRefreshToken persists a fresh opaque session token for the user.
// The value is a random UUID, unique-indexed; collisions are not a
// practical concern but would surface as ErrDuplicate.
func (r *GormRepo) IssueRefreshToken(ctx context.Context, userID uint, ttl time.Duration) (*models.RefreshToken, error) {
	now := time.Now()
	token := models.RefreshToken{
		Token:     uuid.NewString(),
		UserID:    userID,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
	if err := r.DB.WithContext(ctx).Create(&token).Error; err != nil {
		return nil, translate(err)
	}
	return &token, nil
}

func (r *GormRepo) RefreshTokenByValue(ctx context.Context, value string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	err := r.DB.WithContext(ctx).Where("token = ?", value).First(&token).Error
	if err != nil {
		return nil, translate(err)
	}
	return &token, nil
}

// RevokeRefreshToken marks the token revoked. Revoking an already
// revoked token is a no-op success; an unknown value is ErrNotFound.
func (r *GormRepo) RevokeRefreshToken(ctx context.Context, value string) error {
	res := r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("token = ?", value).
		Update("revoked", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// RevokeAllForUser revokes every live token the user owns and reports
// how many were revoked. Other users' tokens are untouched.
func (r *GormRepo) RevokeAllForUser(ctx context.Context, userID uint) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("user_id = ? AND revoked = ?", userID, false).
		Update("revoked", true)
	return res.RowsAffected, res.Error
}
