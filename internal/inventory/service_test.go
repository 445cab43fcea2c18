package inventory

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/calderaworks/mes-backend/pkg/db/models"
	"github.com/calderaworks/mes-backend/pkg/enums"
	pkgerrors "github.com/calderaworks/mes-backend/pkg/errors"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.InventoryBalance{}, &models.InventoryTransaction{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return conn
}

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := newTestDB(t)
	svc, err := NewService(NewRepository(conn))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, conn
}

func receipt(itemID, locationID uuid.UUID, qty int64) MovementInput {
	return MovementInput{
		ItemID:     itemID,
		LocationID: locationID,
		Quantity:   decimal.NewFromInt(qty),
		Type:       enums.TransactionPurchaseReceipt,
	}
}

func TestIncreaseOnHandCreatesBalance(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	itemID, locationID := uuid.New(), uuid.New()

	balance, err := svc.IncreaseOnHand(ctx, conn, receipt(itemID, locationID, 25))
	if err != nil {
		t.Fatalf("IncreaseOnHand: %v", err)
	}
	if !balance.OnHand.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("expected on_hand 25, got %s", balance.OnHand)
	}
	if !balance.Allocated.IsZero() {
		t.Fatalf("expected allocated 0, got %s", balance.Allocated)
	}

	balance, err = svc.IncreaseOnHand(ctx, conn, receipt(itemID, locationID, 5))
	if err != nil {
		t.Fatalf("second IncreaseOnHand: %v", err)
	}
	if !balance.OnHand.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("expected on_hand 30, got %s", balance.OnHand)
	}
}

func TestDecreaseOnHandProtectsAllocation(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	itemID, locationID := uuid.New(), uuid.New()

	if _, err := svc.IncreaseOnHand(ctx, conn, receipt(itemID, locationID, 10)); err != nil {
		t.Fatalf("seed stock: %v", err)
	}
	if _, err := svc.IncreaseAllocated(ctx, conn, MovementInput{
		ItemID: itemID, LocationID: locationID,
		Quantity: decimal.NewFromInt(6),
		Type:     enums.TransactionReservation,
	}); err != nil {
		t.Fatalf("allocate: %v", err)
	}

	// only 4 are free; removing 5 would strand the allocation
	_, err := svc.DecreaseOnHand(ctx, conn, MovementInput{
		ItemID: itemID, LocationID: locationID,
		Quantity: decimal.NewFromInt(5),
		Type:     enums.TransactionAdjustment,
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	balance, err := svc.GetBalance(ctx, itemID, locationID)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if !balance.OnHand.Equal(decimal.NewFromInt(10)) || !balance.Allocated.Equal(decimal.NewFromInt(6)) {
		t.Fatalf("balance mutated on failed decrease: %+v", balance)
	}
}

func TestIncreaseAllocatedCannotExceedOnHand(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	itemID, locationID := uuid.New(), uuid.New()

	if _, err := svc.IncreaseOnHand(ctx, conn, receipt(itemID, locationID, 3)); err != nil {
		t.Fatalf("seed stock: %v", err)
	}

	_, err := svc.IncreaseAllocated(ctx, conn, MovementInput{
		ItemID: itemID, LocationID: locationID,
		Quantity: decimal.NewFromInt(4),
		Type:     enums.TransactionReservation,
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeInsufficientStock {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	appErr := pkgerrors.As(err)
	if appErr == nil {
		t.Fatalf("expected app error, got %T", err)
	}
	details, ok := appErr.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected shortage details, got %v", appErr.Details())
	}
	if details["available"] != "3" {
		t.Fatalf("expected available 3 in details, got %v", details["available"])
	}
}

func TestDecreaseAllocatedBelowZero(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	itemID, locationID := uuid.New(), uuid.New()

	if _, err := svc.IncreaseOnHand(ctx, conn, receipt(itemID, locationID, 5)); err != nil {
		t.Fatalf("seed stock: %v", err)
	}

	_, err := svc.DecreaseAllocated(ctx, conn, MovementInput{
		ItemID: itemID, LocationID: locationID,
		Quantity: decimal.NewFromInt(1),
		Type:     enums.TransactionReleaseReservation,
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestZeroQuantityIsNoOp(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	itemID, locationID := uuid.New(), uuid.New()

	balance, err := svc.IncreaseOnHand(ctx, conn, receipt(itemID, locationID, 0))
	if err != nil {
		t.Fatalf("zero increase: %v", err)
	}
	if !balance.OnHand.IsZero() {
		t.Fatalf("expected zero balance, got %s", balance.OnHand)
	}

	var count int64
	if err := conn.Model(&models.InventoryTransaction{}).Count(&count).Error; err != nil {
		t.Fatalf("count transactions: %v", err)
	}
	if count != 0 {
		t.Fatalf("zero movement must not write audit rows, found %d", count)
	}
}

func TestNegativeQuantityRejected(t *testing.T) {
	svc, conn := newTestService(t)

	_, err := svc.IncreaseOnHand(context.Background(), conn, MovementInput{
		ItemID: uuid.New(), LocationID: uuid.New(),
		Quantity: decimal.NewFromInt(-1),
		Type:     enums.TransactionPurchaseReceipt,
	})
	if pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestMovementsAppendAuditTrail(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	itemID, locationID := uuid.New(), uuid.New()

	if _, err := svc.IncreaseOnHand(ctx, conn, receipt(itemID, locationID, 10)); err != nil {
		t.Fatalf("receipt: %v", err)
	}
	if _, err := svc.DecreaseOnHand(ctx, conn, MovementInput{
		ItemID: itemID, LocationID: locationID,
		Quantity: decimal.NewFromInt(4),
		Type:     enums.TransactionMfgConsumption,
	}); err != nil {
		t.Fatalf("consume: %v", err)
	}

	entries, err := svc.ListTransactions(ctx, itemID, 10)
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 audit rows, got %d", len(entries))
	}

	byType := map[enums.InventoryTransactionType]decimal.Decimal{}
	for _, entry := range entries {
		byType[entry.TransactionType] = entry.Quantity
	}
	if !byType[enums.TransactionPurchaseReceipt].Equal(decimal.NewFromInt(10)) {
		t.Fatalf("expected +10 receipt entry, got %s", byType[enums.TransactionPurchaseReceipt])
	}
	if !byType[enums.TransactionMfgConsumption].Equal(decimal.NewFromInt(-4)) {
		t.Fatalf("expected -4 consumption entry, got %s", byType[enums.TransactionMfgConsumption])
	}
}

func TestStaleVersionUpdateTouchesNothing(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	itemID, locationID := uuid.New(), uuid.New()

	if _, err := svc.IncreaseOnHand(ctx, conn, receipt(itemID, locationID, 10)); err != nil {
		t.Fatalf("seed stock: %v", err)
	}

	repo := NewRepository(conn)
	ok, err := repo.UpdateBalanceCAS(ctx, itemID, locationID, 99, decimal.NewFromInt(1), decimal.Zero)
	if err != nil {
		t.Fatalf("stale CAS: %v", err)
	}
	if ok {
		t.Fatal("stale version update must touch zero rows")
	}

	balance, err := svc.GetBalance(ctx, itemID, locationID)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if !balance.OnHand.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("balance clobbered by stale writer: %s", balance.OnHand)
	}
}

// Goroutines race IncreaseAllocated against one balance. Whatever mix of
// wins, shortage rejections, and version-conflict give-ups falls out, the
// allocation booked must match the winners exactly and never exceed on hand.
func TestConcurrentAllocationNeverOversells(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	itemID, locationID := uuid.New(), uuid.New()

	if _, err := svc.IncreaseOnHand(ctx, conn, receipt(itemID, locationID, 10)); err != nil {
		t.Fatalf("seed stock: %v", err)
	}

	// one sqlite connection serializes statements but goroutines still
	// interleave between the balance read and the versioned write, which is
	// exactly the window the version check has to close
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	// 8 workers asking 3 each against 10 on hand: at most 3 can win
	const workers = 8
	ask := decimal.NewFromInt(3)

	var wg sync.WaitGroup
	errs := make([]error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.IncreaseAllocated(ctx, conn, MovementInput{
				ItemID: itemID, LocationID: locationID,
				Quantity: ask,
				Type:     enums.TransactionReservation,
			})
		}(i)
	}
	wg.Wait()

	wins := 0
	for i, err := range errs {
		if err == nil {
			wins++
			continue
		}
		switch pkgerrors.CodeOf(err) {
		case pkgerrors.CodeInsufficientStock, pkgerrors.CodeDependency:
			// rejected on availability, or gave up after losing the version
			// race too often; both leave the balance untouched
		default:
			t.Errorf("worker %d: unexpected error %v", i, err)
		}
	}
	if wins > 3 {
		t.Fatalf("expected at most 3 winners for 10 on hand, got %d", wins)
	}

	balance, err := svc.GetBalance(ctx, itemID, locationID)
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if !balance.Allocated.Equal(ask.Mul(decimal.NewFromInt(int64(wins)))) {
		t.Fatalf("allocated %s does not match %d winners", balance.Allocated, wins)
	}
	if balance.Allocated.GreaterThan(balance.OnHand) {
		t.Fatalf("oversold: allocated %s exceeds on hand %s", balance.Allocated, balance.OnHand)
	}

	entries, err := svc.ListTransactions(ctx, itemID, workers+1)
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	reservations := 0
	for _, entry := range entries {
		if entry.TransactionType == enums.TransactionReservation {
			reservations++
		}
	}
	if reservations != wins {
		t.Fatalf("expected %d reservation audit rows, got %d", wins, reservations)
	}
}

func TestGetBalanceMissingReturnsZero(t *testing.T) {
	svc, _ := newTestService(t)

	balance, err := svc.GetBalance(context.Background(), uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if !balance.OnHand.IsZero() || !balance.Allocated.IsZero() {
		t.Fatalf("expected virtual zero balance, got %+v", balance)
	}
}
