package repo

import (
	"context"

	"github.com/taskmanager/auth-service/internal/models"
)

func (r *GormRepo) RoleByName(ctx context.Context, name string) (*models.Role, error) {
	var role models.Role
	err := r.DB.WithContext(ctx).Where("name = ?", name).First(&role).Error
	if err != nil {
		return nil, translate(err)
	}
	return &role, nil
}

// EnsureRoles seeds the role table at startup. Existing rows are left
// as they are.
func (r *GormRepo) EnsureRoles(ctx context.Context, names ...string) error {
	for _, name := range names {
		role := models.Role{Name: name}
		if err := r.DB.WithContext(ctx).
			Where("name = ?", name).FirstOrCreate(&role).Error; err != nil {
			return err
		}
	}
	return nil
}
