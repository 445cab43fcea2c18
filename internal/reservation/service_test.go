package reservation

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/calderaworks/mes-backend/internal/bom"
	"github.com/calderaworks/mes-backend/internal/inventory"
	"github.com/calderaworks/mes-backend/pkg/config"
	"github.com/calderaworks/mes-backend/pkg/db"
	"github.com/calderaworks/mes-backend/pkg/db/models"
	"github.com/calderaworks/mes-backend/pkg/enums"
	pkgerrors "github.com/calderaworks/mes-backend/pkg/errors"
)

type testEnv struct {
	client    *db.Client
	boms      bom.Service
	inventory inventory.Service
	svc       Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	cfg := config.DBConfig{
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
		Driver: "sqlite",
	}
	client, err := db.New(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	if err := client.DB().AutoMigrate(
		&models.Item{},
		&models.BOMHeader{},
		&models.BOMLine{},
		&models.InventoryBalance{},
		&models.InventoryTransaction{},
		&models.ComponentReservation{},
	); err != nil {
		t.Fatalf("automigrate: %v", err)
	}

	boms, err := bom.NewService(client, bom.NewRepository(client.DB()))
	if err != nil {
		t.Fatalf("bom service: %v", err)
	}
	inv, err := inventory.NewService(inventory.NewRepository(client.DB()))
	if err != nil {
		t.Fatalf("inventory service: %v", err)
	}
	svc, err := NewService(NewRepository(client.DB()), boms, inv)
	if err != nil {
		t.Fatalf("reservation service: %v", err)
	}
	return &testEnv{client: client, boms: boms, inventory: inv, svc: svc}
}

func (e *testEnv) seedItem(t *testing.T, orgID uuid.UUID, sku string) *models.Item {
	t.Helper()
	item := &models.Item{
		ID: uuid.New(), OrgID: orgID, SKU: sku, Name: sku,
		ItemType: enums.ItemTypePurchased, UOMCode: "EA", Active: true,
	}
	if err := e.client.DB().Create(item).Error; err != nil {
		t.Fatalf("seed item %s: %v", sku, err)
	}
	return item
}

func (e *testEnv) seedStock(t *testing.T, itemID, locationID uuid.UUID, qty int64) {
	t.Helper()
	_, err := e.inventory.IncreaseOnHand(context.Background(), e.client.DB(), inventory.MovementInput{
		ItemID: itemID, LocationID: locationID,
		Quantity: decimal.NewFromInt(qty),
		Type:     enums.TransactionPurchaseReceipt,
	})
	if err != nil {
		t.Fatalf("seed stock: %v", err)
	}
}

func (e *testEnv) balance(t *testing.T, itemID, locationID uuid.UUID) *models.InventoryBalance {
	t.Helper()
	balance, err := e.inventory.GetBalance(context.Background(), itemID, locationID)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	return balance
}

// buildBOM creates an active BOM for parent with the given component lines.
func (e *testEnv) buildBOM(t *testing.T, orgID, parentID uuid.UUID, lines []bom.ComponentInput) *models.BOMHeader {
	t.Helper()
	header, err := e.boms.CreateBOM(context.Background(), bom.CreateBOMInput{
		OrgID: orgID, ItemID: parentID, Lines: lines,
	})
	if err != nil {
		t.Fatalf("CreateBOM: %v", err)
	}
	return header
}

func TestReserveSuccess(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID, locationID, workOrderID := uuid.New(), uuid.New(), uuid.New()

	table := env.seedItem(t, orgID, "TABLE")
	leg := env.seedItem(t, orgID, "LEG")
	top := env.seedItem(t, orgID, "TOP")
	header := env.buildBOM(t, orgID, table.ID, []bom.ComponentInput{
		{ComponentItemID: leg.ID, QuantityPer: decimal.NewFromInt(4)},
		{ComponentItemID: top.ID, QuantityPer: decimal.NewFromInt(1)},
	})
	env.seedStock(t, leg.ID, locationID, 50)
	env.seedStock(t, top.ID, locationID, 10)

	outcome, err := env.svc.Reserve(ctx, env.client.DB(), ReserveInput{
		BOMID: header.ID, WorkOrderID: workOrderID, LocationID: locationID,
		Quantity: decimal.NewFromInt(10),
	})
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if !outcome.Reserved {
		t.Fatalf("expected reservation to succeed: %+v", outcome.Shortages)
	}
	if len(outcome.Components) != 2 {
		t.Fatalf("expected 2 reservation rows, got %d", len(outcome.Components))
	}

	if got := env.balance(t, leg.ID, locationID); !got.Allocated.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("expected 40 legs allocated, got %s", got.Allocated)
	}
	if got := env.balance(t, top.ID, locationID); !got.Allocated.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected 10 tops allocated, got %s", got.Allocated)
	}
}

func TestReserveAllOrNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID, locationID, workOrderID := uuid.New(), uuid.New(), uuid.New()

	table := env.seedItem(t, orgID, "TABLE")
	leg := env.seedItem(t, orgID, "LEG")
	top := env.seedItem(t, orgID, "TOP")
	header := env.buildBOM(t, orgID, table.ID, []bom.ComponentInput{
		{ComponentItemID: leg.ID, QuantityPer: decimal.NewFromInt(4)},
		{ComponentItemID: top.ID, QuantityPer: decimal.NewFromInt(1)},
	})
	env.seedStock(t, leg.ID, locationID, 50)
	env.seedStock(t, top.ID, locationID, 3) // 10 needed

	outcome, err := env.svc.Reserve(ctx, env.client.DB(), ReserveInput{
		BOMID: header.ID, WorkOrderID: workOrderID, LocationID: locationID,
		Quantity: decimal.NewFromInt(10),
	})
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if outcome.Reserved {
		t.Fatal("expected reservation to fail on shortage")
	}
	if len(outcome.Shortages) != 1 {
		t.Fatalf("expected 1 shortage, got %+v", outcome.Shortages)
	}
	shortage := outcome.Shortages[0]
	if shortage.ItemID != top.ID {
		t.Fatalf("expected shortage on top, got %s", shortage.ItemID)
	}
	if !shortage.Required.Equal(decimal.NewFromInt(10)) ||
		!shortage.Available.Equal(decimal.NewFromInt(3)) ||
		!shortage.Shortage.Equal(decimal.NewFromInt(7)) {
		t.Fatalf("unexpected shortage math: %+v", shortage)
	}

	// nothing may be allocated, not even the component that had cover
	if got := env.balance(t, leg.ID, locationID); !got.Allocated.IsZero() {
		t.Fatalf("legs allocated despite shortage: %s", got.Allocated)
	}
	rows, err := NewRepository(env.client.DB()).ListByWorkOrder(ctx, workOrderID)
	if err != nil {
		t.Fatalf("list reservations: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no reservation rows, got %d", len(rows))
	}
}

// drainingInventory delegates to the real inventory service but draws down the
// raced item's stock right before its allocation, mimicking a competing writer
// that wins between the availability pre-check and the allocation itself.
type drainingInventory struct {
	inventory.Service
	client     *db.Client
	racedItem  uuid.UUID
	locationID uuid.UUID
	drainQty   int64
	fired      bool
}

func (d *drainingInventory) IncreaseAllocated(ctx context.Context, tx *gorm.DB, input inventory.MovementInput) (*models.InventoryBalance, error) {
	if !d.fired && input.ItemID == d.racedItem {
		d.fired = true
		if _, err := d.Service.DecreaseOnHand(ctx, d.client.DB(), inventory.MovementInput{
			ItemID: d.racedItem, LocationID: d.locationID,
			Quantity: decimal.NewFromInt(d.drainQty),
			Type:     enums.TransactionAdjustment,
		}); err != nil {
			return nil, err
		}
	}
	return d.Service.IncreaseAllocated(ctx, tx, input)
}

func TestReserveRaceReportsShortage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID, locationID, workOrderID := uuid.New(), uuid.New(), uuid.New()

	table := env.seedItem(t, orgID, "TABLE")
	leg := env.seedItem(t, orgID, "LEG")
	top := env.seedItem(t, orgID, "TOP")
	header := env.buildBOM(t, orgID, table.ID, []bom.ComponentInput{
		{ComponentItemID: leg.ID, QuantityPer: decimal.NewFromInt(1)},
		{ComponentItemID: top.ID, QuantityPer: decimal.NewFromInt(1)},
	})
	env.seedStock(t, leg.ID, locationID, 10)
	env.seedStock(t, top.ID, locationID, 10)

	// race the component that allocates second so the first one is already
	// pinned and has to be unwound
	first, raced := leg, top
	if raced.ID.String() < first.ID.String() {
		first, raced = raced, first
	}
	inv := &drainingInventory{
		Service: env.inventory, client: env.client,
		racedItem: raced.ID, locationID: locationID, drainQty: 9,
	}
	svc, err := NewService(NewRepository(env.client.DB()), env.boms, inv)
	if err != nil {
		t.Fatalf("reservation service: %v", err)
	}

	outcome, err := svc.Reserve(ctx, env.client.DB(), ReserveInput{
		BOMID: header.ID, WorkOrderID: workOrderID, LocationID: locationID,
		Quantity: decimal.NewFromInt(10),
	})
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if outcome.Reserved {
		t.Fatal("expected reservation to fail when the balance drains mid-flight")
	}
	if len(outcome.Shortages) != 1 {
		t.Fatalf("expected 1 shortage, got %+v", outcome.Shortages)
	}
	shortage := outcome.Shortages[0]
	if shortage.ItemID != raced.ID {
		t.Fatalf("expected shortage on raced item, got %s", shortage.ItemID)
	}
	if !shortage.Required.Equal(decimal.NewFromInt(10)) ||
		!shortage.Available.Equal(decimal.NewFromInt(1)) ||
		!shortage.Shortage.Equal(decimal.NewFromInt(9)) {
		t.Fatalf("unexpected shortage math: %+v", shortage)
	}

	// the component pinned before the race must be fully unwound
	if got := env.balance(t, first.ID, locationID); !got.Allocated.IsZero() {
		t.Fatalf("first component still allocated after race: %s", got.Allocated)
	}
	rows, err := NewRepository(env.client.DB()).ListByWorkOrder(ctx, workOrderID)
	if err != nil {
		t.Fatalf("list reservations: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected no reservation rows, got %d", len(rows))
	}
}

func TestReserveAggregatesLeafDemand(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID, locationID, workOrderID := uuid.New(), uuid.New(), uuid.New()

	bike := env.seedItem(t, orgID, "BIKE")
	wheel := env.seedItem(t, orgID, "WHEEL")
	bolt := env.seedItem(t, orgID, "BOLT")

	// bike needs 2 wheels and 4 bolts directly; each wheel needs 8 bolts
	bikeBOM := env.buildBOM(t, orgID, bike.ID, []bom.ComponentInput{
		{ComponentItemID: wheel.ID, QuantityPer: decimal.NewFromInt(2)},
		{ComponentItemID: bolt.ID, QuantityPer: decimal.NewFromInt(4)},
	})
	env.buildBOM(t, orgID, wheel.ID, []bom.ComponentInput{
		{ComponentItemID: bolt.ID, QuantityPer: decimal.NewFromInt(8)},
	})
	env.seedStock(t, bolt.ID, locationID, 100)

	outcome, err := env.svc.Reserve(ctx, env.client.DB(), ReserveInput{
		BOMID: bikeBOM.ID, WorkOrderID: workOrderID, LocationID: locationID,
		Quantity: decimal.NewFromInt(5),
	})
	if err != nil {
		t.Fatalf("Reserve: %v", err)
	}
	if !outcome.Reserved {
		t.Fatalf("expected success, got shortages %+v", outcome.Shortages)
	}

	// 5*(4 + 2*8) = 100 bolts; wheels are sub-assemblies, not reserved
	if len(outcome.Components) != 1 {
		t.Fatalf("expected 1 leaf component, got %d", len(outcome.Components))
	}
	if got := env.balance(t, bolt.ID, locationID); !got.Allocated.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected 100 bolts allocated, got %s", got.Allocated)
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID, locationID, workOrderID := uuid.New(), uuid.New(), uuid.New()

	table := env.seedItem(t, orgID, "TABLE")
	leg := env.seedItem(t, orgID, "LEG")
	header := env.buildBOM(t, orgID, table.ID, []bom.ComponentInput{
		{ComponentItemID: leg.ID, QuantityPer: decimal.NewFromInt(4)},
	})
	env.seedStock(t, leg.ID, locationID, 20)

	if _, err := env.svc.Reserve(ctx, env.client.DB(), ReserveInput{
		BOMID: header.ID, WorkOrderID: workOrderID, LocationID: locationID,
		Quantity: decimal.NewFromInt(5),
	}); err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	released, err := env.svc.Release(ctx, env.client.DB(), workOrderID)
	if err != nil {
		t.Fatalf("Release: %v", err)
	}
	if !released {
		t.Fatal("expected first release to report work done")
	}
	if got := env.balance(t, leg.ID, locationID); !got.Allocated.IsZero() || !got.OnHand.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("release did not restore balance: %+v", got)
	}

	// second release finds nothing and succeeds
	released, err = env.svc.Release(ctx, env.client.DB(), workOrderID)
	if err != nil {
		t.Fatalf("second Release: %v", err)
	}
	if released {
		t.Fatal("expected second release to be a no-op")
	}
}

func TestConsumeDrawsDownStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID, locationID, workOrderID := uuid.New(), uuid.New(), uuid.New()

	table := env.seedItem(t, orgID, "TABLE")
	leg := env.seedItem(t, orgID, "LEG")
	header := env.buildBOM(t, orgID, table.ID, []bom.ComponentInput{
		{ComponentItemID: leg.ID, QuantityPer: decimal.NewFromInt(4)},
	})
	env.seedStock(t, leg.ID, locationID, 20)

	if _, err := env.svc.Reserve(ctx, env.client.DB(), ReserveInput{
		BOMID: header.ID, WorkOrderID: workOrderID, LocationID: locationID,
		Quantity: decimal.NewFromInt(5),
	}); err != nil {
		t.Fatalf("Reserve: %v", err)
	}

	if err := env.svc.Consume(ctx, env.client.DB(), workOrderID); err != nil {
		t.Fatalf("Consume: %v", err)
	}

	got := env.balance(t, leg.ID, locationID)
	if !got.OnHand.IsZero() || !got.Allocated.IsZero() {
		t.Fatalf("expected stock fully consumed, got %+v", got)
	}

	rows, err := NewRepository(env.client.DB()).ListByWorkOrder(ctx, workOrderID)
	if err != nil {
		t.Fatalf("list reservations: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("expected reservations consumed, got %d rows", len(rows))
	}
}

func TestAddFinishedGoods(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID, locationID, workOrderID := uuid.New(), uuid.New(), uuid.New()
	table := env.seedItem(t, orgID, "TABLE")

	if err := env.svc.AddFinishedGoods(ctx, env.client.DB(), table.ID, locationID, workOrderID, decimal.NewFromInt(8)); err != nil {
		t.Fatalf("AddFinishedGoods: %v", err)
	}
	if got := env.balance(t, table.ID, locationID); !got.OnHand.Equal(decimal.NewFromInt(8)) {
		t.Fatalf("expected 8 on hand, got %s", got.OnHand)
	}

	entries, err := env.inventory.ListTransactions(ctx, table.ID, 10)
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(entries) != 1 || entries[0].TransactionType != enums.TransactionMfgProduction {
		t.Fatalf("expected one mfg_production entry, got %+v", entries)
	}
}

func TestReserveEmptyBOM(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	orgID := uuid.New()
	table := env.seedItem(t, orgID, "TABLE")
	header := env.buildBOM(t, orgID, table.ID, nil)

	_, err := env.svc.Reserve(ctx, env.client.DB(), ReserveInput{
		BOMID: header.ID, WorkOrderID: uuid.New(), LocationID: uuid.New(),
		Quantity: decimal.NewFromInt(1),
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict for empty bom, got %v", err)
	}
}
