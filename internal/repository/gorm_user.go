package repository

import (
	"context"

	"faqdesk/backend/internal/models"

	"gorm.io/gorm"
)

type gormUserRepository struct {
	db *gorm.DB
}

func (r *gormUserRepository) Create(ctx context.Context, user *models.User) error {
	return translate(r.db.WithContext(ctx).Create(user).Error)
}

func (r *gormUserRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *gormUserRepository) GetByLoginID(ctx context.Context, loginID string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("login_id = ?", loginID).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *gormUserRepository) GetByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("identifier = ?", identifier).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (r *gormUserRepository) Save(ctx context.Context, user *models.User) error {
	return translate(r.db.WithContext(ctx).Save(user).Error)
}

func (r *gormUserRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.User{}).Count(&n).Error
	return n, err
}

type gormStaffRepository struct {
	db *gorm.DB
}

func (r *gormStaffRepository) Create(ctx context.Context, staff *models.StaffMember) error {
	return translate(r.db.WithContext(ctx).Create(staff).Error)
}

func (r *gormStaffRepository) GetByUserID(ctx context.Context, userID uint) (*models.StaffMember, error) {
	var staff models.StaffMember
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&staff).Error; err != nil {
		return nil, translate(err)
	}
	return &staff, nil
}

func (r *gormStaffRepository) Save(ctx context.Context, staff *models.StaffMember) error {
	return translate(r.db.WithContext(ctx).Save(staff).Error)
}

func (r *gormStaffRepository) List(ctx context.Context) ([]models.StaffMember, error) {
	var staff []models.StaffMember
	err := r.db.WithContext(ctx).Order("id ASC").Find(&staff).Error
	return staff, err
}
