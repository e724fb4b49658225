package addresses

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aurumly/bullion-backend/pkg/db/models"
	pkgerrors "github.com/aurumly/bullion-backend/pkg/errors"
)

// Service exposes ownership-checked address lookups. A lookup by someone
// other than the owner reports NotFound, never Forbidden, so address ids
// cannot be probed.
type Service interface {
	GetOwned(ctx context.Context, addressID, customerID uuid.UUID) (*models.Address, error)
	List(ctx context.Context, customerID uuid.UUID) ([]models.Address, error)
	Create(ctx context.Context, input CreateInput) (*models.Address, error)
}

type service struct {
	repo Repository
}

// CreateInput captures a new delivery address.
type CreateInput struct {
	CustomerID uuid.UUID
	Line1      string
	Line2      string
	City       string
	Region     string
	PostalCode string
	Phone      string
}

// NewService wires an address service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("address repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetOwned(ctx context.Context, addressID, customerID uuid.UUID) (*models.Address, error) {
	if addressID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "address id required")
	}
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	address, err := s.repo.FindByID(ctx, addressID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load address")
	}
	if address.CustomerID != customerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "address not found")
	}
	return address, nil
}

func (s *service) List(ctx context.Context, customerID uuid.UUID) ([]models.Address, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	records, err := s.repo.ListByCustomer(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list addresses")
	}
	return records, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Address, error) {
	if input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id required")
	}
	if strings.TrimSpace(input.Line1) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "line1 required")
	}
	if strings.TrimSpace(input.City) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "city required")
	}

	address := &models.Address{
		ID:         uuid.New(),
		CustomerID: input.CustomerID,
		Line1:      strings.TrimSpace(input.Line1),
		Line2:      strings.TrimSpace(input.Line2),
		City:       strings.TrimSpace(input.City),
		Region:     strings.TrimSpace(input.Region),
		PostalCode: strings.TrimSpace(input.PostalCode),
		Phone:      strings.TrimSpace(input.Phone),
	}
	if err := s.repo.Create(ctx, address); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create address")
	}
	return address, nil
}
