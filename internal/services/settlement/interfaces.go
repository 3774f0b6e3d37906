package settlement

import "context"

// TransferClient initiates funds transfers to merchant connected accounts.
// Amounts are integer minor currency units (cents); the conversion from
// decimal EUR happens at this boundary and nowhere else.
type TransferClient interface {
	CreateTransfer(ctx context.Context, amountCents int64, currency, destinationAccountID, correlation string) (transferID string, err error)
}
