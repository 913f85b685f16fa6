package postgres

import (
	"context"

	"gorm.io/gorm"

	"github.com/printdesk/printdesk/pkg/model"
)

type CustomerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

func (r *CustomerRepository) GetByID(ctx context.Context, id string) (*model.Customer, error) {
	var customer model.Customer
	err := r.db.WithContext(ctx).First(&customer, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *CustomerRepository) ListAdmins(ctx context.Context) ([]model.Customer, error) {
	var admins []model.Customer
	err := r.db.WithContext(ctx).
		Where("role = ?", model.RoleAdmin).
		Find(&admins).Error
	return admins, err
}
