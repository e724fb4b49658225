package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/aurumly/bullion-backend/pkg/db/models"
	"github.com/aurumly/bullion-backend/pkg/enums"
	pkgerrors "github.com/aurumly/bullion-backend/pkg/errors"
)

// Service is the narrow user directory: phone lookups for OTP delivery and
// role checks for assignment targets.
type Service interface {
	Get(ctx context.Context, userID uuid.UUID) (*models.User, error)
	Phone(ctx context.Context, userID uuid.UUID) (string, error)
	HasRole(ctx context.Context, userID uuid.UUID, role enums.UserRole) (bool, error)
}

type service struct {
	repo Repository
}

// NewService wires a user directory service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("user repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	return user, nil
}

func (s *service) Phone(ctx context.Context, userID uuid.UUID) (string, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(user.Phone) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "user has no phone on file")
	}
	return user.Phone, nil
}

func (s *service) HasRole(ctx context.Context, userID uuid.UUID, role enums.UserRole) (bool, error) {
	user, err := s.Get(ctx, userID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return false, nil
		}
		return false, err
	}
	return user.IsActive && user.Role == role, nil
}
