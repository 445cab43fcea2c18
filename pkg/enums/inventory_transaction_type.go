package enums

import "fmt"

// InventoryTransactionType classifies ledger movements in the audit trail.
type InventoryTransactionType string

const (
	TransactionSalesOrder         InventoryTransactionType = "sales_order"
	TransactionPurchaseReceipt    InventoryTransactionType = "purchase_receipt"
	TransactionMfgConsumption     InventoryTransactionType = "mfg_consumption"
	TransactionMfgProduction      InventoryTransactionType = "mfg_production"
	TransactionAdjustment         InventoryTransactionType = "adjustment"
	TransactionTransfer           InventoryTransactionType = "transfer"
	TransactionReservation        InventoryTransactionType = "reservation"
	TransactionReleaseReservation InventoryTransactionType = "release_reservation"
)

var validInventoryTransactionTypes = []InventoryTransactionType{
	TransactionSalesOrder,
	TransactionPurchaseReceipt,
	TransactionMfgConsumption,
	TransactionMfgProduction,
	TransactionAdjustment,
	TransactionTransfer,
	TransactionReservation,
	TransactionReleaseReservation,
}

// String implements fmt.Stringer.
func (t InventoryTransactionType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known InventoryTransactionType.
func (t InventoryTransactionType) IsValid() bool {
	for _, candidate := range validInventoryTransactionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseInventoryTransactionType converts raw input into an InventoryTransactionType.
func ParseInventoryTransactionType(value string) (InventoryTransactionType, error) {
	for _, candidate := range validInventoryTransactionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid inventory transaction type %q", value)
}
