package bom

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/calderaworks/mes-backend/pkg/db"
	"github.com/calderaworks/mes-backend/pkg/db/models"
	"github.com/calderaworks/mes-backend/pkg/enums"
	pkgerrors "github.com/calderaworks/mes-backend/pkg/errors"
)

// ComponentInput is one component line on a BOM.
type ComponentInput struct {
	ComponentItemID uuid.UUID
	QuantityPer     decimal.Decimal
	UOMCode         string
	ScrapFactor     decimal.Decimal
	Position        int
}

// CreateBOMInput creates a new BOM revision for an item. Any previously
// active revision is superseded in the same transaction.
type CreateBOMInput struct {
	OrgID  uuid.UUID
	ItemID uuid.UUID
	Notes  *string
	Lines  []ComponentInput
}

// AddComponentInput appends a component line to an existing BOM.
type AddComponentInput struct {
	BOMID uuid.UUID
	ComponentInput
}

// ExplodeInput drives a multi-level requirement calculation. StartLevel is the
// level tag stamped on the direct components; zero means 1. The whole sub-tree
// is always returned, sub-assembly components tagged one level deeper per hop.
type ExplodeInput struct {
	OrgID      uuid.UUID
	ItemID     uuid.UUID
	Quantity   decimal.Decimal
	StartLevel int
}

// ExplosionLine is one row of the requirement calculation. Direct components
// carry the starting level; sub-assembly components sit deeper.
// HasBOM marks intermediate assemblies that expand further.
type ExplosionLine struct {
	ItemID   uuid.UUID       `json:"item_id"`
	Quantity decimal.Decimal `json:"quantity"`
	Level    int             `json:"level"`
	UOMCode  string          `json:"uom_code"`
	HasBOM   bool            `json:"has_bom"`
}

// Service manages bill-of-material revisions and runs the explosion engine.
type Service interface {
	CreateBOM(ctx context.Context, input CreateBOMInput) (*models.BOMHeader, error)
	AddComponent(ctx context.Context, input AddComponentInput) (*models.BOMLine, error)
	Components(ctx context.Context, bomID uuid.UUID) ([]models.BOMLine, error)
	Explode(ctx context.Context, input ExplodeInput) ([]ExplosionLine, error)
	FindHeader(ctx context.Context, bomID uuid.UUID) (*models.BOMHeader, error)
	ActiveForItem(ctx context.Context, orgID, itemID uuid.UUID) (*models.BOMHeader, error)
}

type service struct {
	client *db.Client
	repo   Repository
}

// NewService wires the BOM service.
func NewService(client *db.Client, repo Repository) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	if repo == nil {
		return nil, fmt.Errorf("bom repository required")
	}
	return &service{client: client, repo: repo}, nil
}

func (s *service) CreateBOM(ctx context.Context, input CreateBOMInput) (*models.BOMHeader, error) {
	if input.OrgID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "org id is required")
	}
	if input.ItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id is required")
	}
	for _, line := range input.Lines {
		if err := validateLine(input.ItemID, line); err != nil {
			return nil, err
		}
	}

	item, err := s.repo.FindItem(ctx, input.ItemID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read item")
	}
	if item == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "item not found")
	}

	header := &models.BOMHeader{
		ID:     uuid.New(),
		OrgID:  input.OrgID,
		ItemID: input.ItemID,
		Status: enums.BOMStatusActive,
		Notes:  input.Notes,
	}

	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		latest, err := repo.LatestRevision(ctx, input.OrgID, input.ItemID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read latest revision")
		}
		header.Revision = latest + 1

		if err := repo.SupersedeActive(ctx, input.OrgID, input.ItemID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "supersede active bom")
		}
		if err := repo.CreateHeader(ctx, header); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create bom header")
		}

		for _, line := range input.Lines {
			if _, err := s.insertLine(ctx, repo, header, line); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return header, nil
}

func (s *service) AddComponent(ctx context.Context, input AddComponentInput) (*models.BOMLine, error) {
	if input.BOMID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bom id is required")
	}

	header, err := s.repo.FindHeaderByID(ctx, input.BOMID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read bom header")
	}
	if header == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "bom not found")
	}
	if header.Status != enums.BOMStatusActive && header.Status != enums.BOMStatusDraft {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot modify a %s bom", header.Status))
	}
	if err := validateLine(header.ItemID, input.ComponentInput); err != nil {
		return nil, err
	}

	var line *models.BOMLine
	err = s.client.WithTx(ctx, func(tx *gorm.DB) error {
		line, err = s.insertLine(ctx, s.repo.WithTx(tx), header, input.ComponentInput)
		return err
	})
	if err != nil {
		return nil, err
	}
	return line, nil
}

// insertLine checks the component exists and writes the line. The component
// may not be the BOM's own produced item.
func (s *service) insertLine(ctx context.Context, repo Repository, header *models.BOMHeader, input ComponentInput) (*models.BOMLine, error) {
	component, err := repo.FindItem(ctx, input.ComponentItemID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read component item")
	}
	if component == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "component item not found")
	}

	uom := input.UOMCode
	if uom == "" {
		uom = component.UOMCode
	}
	line := &models.BOMLine{
		ID:              uuid.New(),
		BOMID:           header.ID,
		ComponentItemID: input.ComponentItemID,
		QuantityPer:     input.QuantityPer,
		UOMCode:         uom,
		ScrapFactor:     input.ScrapFactor,
		Position:        input.Position,
	}
	if err := repo.CreateLine(ctx, line); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create bom line")
	}
	return line, nil
}

func (s *service) Components(ctx context.Context, bomID uuid.UUID) ([]models.BOMLine, error) {
	if bomID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bom id is required")
	}
	header, err := s.repo.FindHeaderByID(ctx, bomID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read bom header")
	}
	if header == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "bom not found")
	}
	lines, err := s.repo.ListLines(ctx, bomID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bom lines")
	}
	return lines, nil
}

func (s *service) FindHeader(ctx context.Context, bomID uuid.UUID) (*models.BOMHeader, error) {
	if bomID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bom id is required")
	}
	header, err := s.repo.FindHeaderByID(ctx, bomID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read bom header")
	}
	if header == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "bom not found")
	}
	return header, nil
}

// ActiveForItem returns the currently active revision for an item.
func (s *service) ActiveForItem(ctx context.Context, orgID, itemID uuid.UUID) (*models.BOMHeader, error) {
	if orgID == uuid.Nil || itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "org id and item id are required")
	}
	header, err := s.repo.FindActiveByItem(ctx, orgID, itemID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read active bom")
	}
	if header == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active bom for item")
	}
	return header, nil
}

func (s *service) Explode(ctx context.Context, input ExplodeInput) ([]ExplosionLine, error) {
	if input.OrgID == uuid.Nil || input.ItemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "org id and item id are required")
	}
	if !input.Quantity.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}

	header, err := s.repo.FindActiveByItem(ctx, input.OrgID, input.ItemID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read active bom")
	}
	if header == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no active bom for item")
	}

	start := input.StartLevel
	if start <= 0 {
		start = 1
	}

	out := []ExplosionLine{}
	path := map[uuid.UUID]struct{}{input.ItemID: {}}
	if err := s.explode(ctx, input.OrgID, header, input.Quantity, start, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// explode walks one BOM depth-first, carrying the set of items on the current
// path so cycles fail instead of recursing forever.
func (s *service) explode(ctx context.Context, orgID uuid.UUID, header *models.BOMHeader, qty decimal.Decimal, level int, path map[uuid.UUID]struct{}, out *[]ExplosionLine) error {
	lines, err := s.repo.ListLines(ctx, header.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bom lines")
	}

	one := decimal.NewFromInt(1)
	for _, line := range lines {
		if _, seen := path[line.ComponentItemID]; seen {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "circular BOM reference")
		}

		required := qty.Mul(line.QuantityPer)
		if line.ScrapFactor.IsPositive() {
			required = required.Mul(one.Add(line.ScrapFactor))
		}

		child, err := s.repo.FindActiveByItem(ctx, orgID, line.ComponentItemID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read component bom")
		}

		*out = append(*out, ExplosionLine{
			ItemID:   line.ComponentItemID,
			Quantity: required,
			Level:    level,
			UOMCode:  line.UOMCode,
			HasBOM:   child != nil,
		})

		if child == nil {
			continue
		}
		path[line.ComponentItemID] = struct{}{}
		if err := s.explode(ctx, orgID, child, required, level+1, path, out); err != nil {
			return err
		}
		delete(path, line.ComponentItemID)
	}
	return nil
}

func validateLine(parentItemID uuid.UUID, input ComponentInput) error {
	if input.ComponentItemID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "component item id is required")
	}
	if input.ComponentItemID == parentItemID {
		return pkgerrors.New(pkgerrors.CodeValidation, "a bom cannot list its own produced item as a component")
	}
	if !input.QuantityPer.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity per assembly must be positive")
	}
	if input.ScrapFactor.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "scrap factor cannot be negative")
	}
	return nil
}
