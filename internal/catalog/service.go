package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/aurumly/bullion-backend/pkg/db/models"
	pkgerrors "github.com/aurumly/bullion-backend/pkg/errors"
)

// Service exposes catalog lookups to the redemption pipeline and the public
// product listing.
type Service interface {
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error)
	ListByMaterial(ctx context.Context, materialID uuid.UUID) ([]models.Product, error)
}

type service struct {
	repo Repository
}

// NewService wires a catalog service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	products, err := s.repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	return products, nil
}

func (s *service) ListByMaterial(ctx context.Context, materialID uuid.UUID) ([]models.Product, error) {
	if materialID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "material id required")
	}
	products, err := s.repo.ListByMaterial(ctx, materialID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return products, nil
}
