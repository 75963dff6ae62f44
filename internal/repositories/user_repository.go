package repositories

import (
	"context"
	"errors"

	"github.com/raite-app/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository defines the interface for user profile operations
type UserRepository interface {
	GetByUID(ctx context.Context, uid string) (*models.User, error)
	GetDisplayInfo(ctx context.Context, uid string) (models.UserCompact, error)
	Upsert(ctx context.Context, user *models.User) error
	Update(ctx context.Context, uid string, updates map[string]interface{}) error
}

// PostgresUserRepository implements UserRepository for PostgreSQL
type PostgresUserRepository struct {
	db *gorm.DB
}

// NewPostgresUserRepository creates a new PostgresUserRepository
func NewPostgresUserRepository(db *gorm.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// GetByUID retrieves a profile by Firebase UID
func (r *PostgresUserRepository) GetByUID(ctx context.Context, uid string) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("uid = ?", uid).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetDisplayInfo resolves the name and photo used to enrich notifications
// and sessions.
func (r *PostgresUserRepository) GetDisplayInfo(ctx context.Context, uid string) (models.UserCompact, error) {
	user, err := r.GetByUID(ctx, uid)
	if err != nil {
		return models.UserCompact{}, err
	}
	return user.ToCompact(), nil
}

// Upsert creates the profile row or refreshes it on conflict with the UID.
func (r *PostgresUserRepository) Upsert(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "uid"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "email", "photo_url", "role"}),
		}).
		Create(user).Error
}

// Update applies a partial profile update
func (r *PostgresUserRepository) Update(ctx context.Context, uid string, updates map[string]interface{}) error {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("uid = ?", uid).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
