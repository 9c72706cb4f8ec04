// Package catalog reads vehicles and users owned by neighbouring services.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/chachabrian/carbid-backend/internal/apperrors"
	"github.com/chachabrian/carbid-backend/internal/models"
	"gorm.io/gorm"
)

type Catalog struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Catalog {
	return &Catalog{db: db}
}

func (c *Catalog) GetVehicle(ctx context.Context, id string) (*models.Vehicle, error) {
	var v models.Vehicle
	if err := c.db.WithContext(ctx).First(&v, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.NotFound, "vehicle not found")
		}
		return nil, fmt.Errorf("get vehicle: %w", err)
	}
	return &v, nil
}

func (c *Catalog) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := c.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.NotFound, "user not found")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}
