package database

import (
	"database/sql"

	"github.com/google/uuid"

	"github.com/SachinxShrivastav33/thess/internal/models"
)

// ServiceRepository reads the service catalog. The booking core never
// writes to it.
type ServiceRepository struct {
	db DB
}

// NewServiceRepository creates a new ServiceRepository
func NewServiceRepository(db DB) *ServiceRepository {
	return &ServiceRepository{db: db}
}

// GetServiceByID retrieves a catalog service. Returns nil when not found.
func (r *ServiceRepository) GetServiceByID(serviceID uuid.UUID) (*models.Service, error) {
	var service models.Service
	query := `
		SELECT id, title, description, category, price, creator_id, created_at, updated_at
		FROM services
		WHERE id = $1`

	err := r.db.Get(&service, query, serviceID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &service, nil
}
