package gate

import (
	"context"

	"gorm.io/gorm"

	"gestifac/internal/models"
)

// DBResolver resolves a user's profile from the users/roles tables.
type DBResolver struct {
	DB *gorm.DB
}

func NewDBResolver(db *gorm.DB) *DBResolver { return &DBResolver{DB: db} }

func (r *DBResolver) Resolve(ctx context.Context, userID uint) (Profile, error) {
	var user models.User
	if err := r.DB.WithContext(ctx).Preload("Role").First(&user, userID).Error; err != nil {
		return Profile{}, err
	}
	if !user.Actif {
		return Profile{}, ErrUnauthorized
	}
	return Profile{
		RoleID:      user.RoleID,
		Name:        user.Role.Name,
		Permissions: ParseList(user.Role.Permissions),
	}, nil
}
