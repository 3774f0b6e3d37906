package settlement

import (
	"math"
	"time"
)

// TransferRecord is one successful merchant transfer within a batch run.
type TransferRecord struct {
	MerchantID uint    `json:"merchant_id"`
	TransferID string  `json:"transfer_id"`
	Amount     float64 `json:"amount"`
	ItemCount  int     `json:"item_count"`
}

// MerchantError is one skipped or failed merchant within a batch run.
// Every skipped unit must appear here; no silent partial success.
type MerchantError struct {
	MerchantID uint   `json:"merchant_id"`
	Reason     string `json:"reason"`
}

// BatchResult is the aggregate outcome of one batch settlement run.
// Processed and Failed count payout items, not merchants.
type BatchResult struct {
	BatchID   string           `json:"batch_id"`
	Processed int              `json:"processed"`
	Failed    int              `json:"failed"`
	Transfers []TransferRecord `json:"transfers"`
	Errors    []MerchantError  `json:"errors"`
	RanAt     time.Time        `json:"ran_at"`
}

// MinorUnits converts a decimal EUR amount to integer cents, rounding
// half-up at the cent boundary. The tiny offset counteracts binary float
// representation (12.345 is stored just below 12.345 and would otherwise
// round down).
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount*100 + 1e-7))
}
