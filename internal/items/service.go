package items

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/calderaworks/mes-backend/pkg/db/models"
	"github.com/calderaworks/mes-backend/pkg/enums"
	pkgerrors "github.com/calderaworks/mes-backend/pkg/errors"
)

// Service exposes item master operations.
type Service interface {
	CreateItem(ctx context.Context, input CreateItemInput) (*models.Item, error)
	GetItem(ctx context.Context, id uuid.UUID) (*models.Item, error)
	ListItems(ctx context.Context, orgID uuid.UUID, limit int) ([]models.Item, error)
}

type service struct {
	repo Repository
}

// CreateItemInput captures the fields required to register an item.
type CreateItemInput struct {
	OrgID       uuid.UUID
	SKU         string
	Name        string
	Description *string
	ItemType    enums.ItemType
	UOMCode     string
}

// NewService wires an item service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("item repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CreateItem(ctx context.Context, input CreateItemInput) (*models.Item, error) {
	if input.OrgID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "org id is required")
	}
	sku := strings.TrimSpace(input.SKU)
	if sku == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	itemType := input.ItemType
	if itemType == "" {
		itemType = enums.ItemTypePurchased
	}
	if !itemType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid item type %q", input.ItemType))
	}
	uom := strings.TrimSpace(input.UOMCode)
	if uom == "" {
		uom = "EA"
	}

	existing, err := s.repo.FindBySKU(ctx, input.OrgID, sku)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup item by sku")
	}
	if existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, fmt.Sprintf("item with sku %q already exists", sku))
	}

	item := &models.Item{
		ID:          uuid.New(),
		OrgID:       input.OrgID,
		SKU:         sku,
		Name:        strings.TrimSpace(input.Name),
		Description: input.Description,
		ItemType:    itemType,
		UOMCode:     uom,
		Active:      true,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create item")
	}
	return item, nil
}

func (s *service) GetItem(ctx context.Context, id uuid.UUID) (*models.Item, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup item")
	}
	if item == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
	}
	return item, nil
}

func (s *service) ListItems(ctx context.Context, orgID uuid.UUID, limit int) ([]models.Item, error) {
	if orgID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "org id is required")
	}
	items, err := s.repo.List(ctx, orgID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list items")
	}
	return items, nil
}
