// Package stripeclient is the single place that talks to Stripe. It
// implements the transfer, fee-lookup and account interfaces the services
// depend on; everything above it stays processor-agnostic.
package stripeclient

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v72"
	"github.com/stripe/stripe-go/v72/account"
	"github.com/stripe/stripe-go/v72/balancetransaction"
	"github.com/stripe/stripe-go/v72/charge"
	"github.com/stripe/stripe-go/v72/transfer"

	"brontie/internal/services/connect"
)

type Client struct{}

// New configures the Stripe API key and returns the client.
func New(secretKey string) *Client {
	stripe.Key = secretKey
	return &Client{}
}

// CreateTransfer moves amountCents to the merchant's connected account.
// The correlation tag lands in the transfer group for reconciliation.
func (c *Client) CreateTransfer(ctx context.Context, amountCents int64, currency, destinationAccountID, correlation string) (string, error) {
	params := &stripe.TransferParams{
		Amount:        stripe.Int64(amountCents),
		Currency:      stripe.String(currency),
		Destination:   stripe.String(destinationAccountID),
		TransferGroup: stripe.String(correlation),
	}
	params.Context = ctx

	t, err := transfer.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe transfer: %w", err)
	}
	return t.ID, nil
}

// GetActualFee resolves the real processor fee for a charge via its balance
// transaction. Amounts come back in minor units; converted to decimal EUR.
func (c *Client) GetActualFee(ctx context.Context, paymentRef string) (float64, error) {
	chParams := &stripe.ChargeParams{}
	chParams.Context = ctx
	ch, err := charge.Get(paymentRef, chParams)
	if err != nil {
		return 0, fmt.Errorf("stripe charge lookup: %w", err)
	}
	if ch.BalanceTransaction == nil {
		return 0, fmt.Errorf("charge %s has no balance transaction", paymentRef)
	}

	btParams := &stripe.BalanceTransactionParams{}
	btParams.Context = ctx
	bt, err := balancetransaction.Get(ch.BalanceTransaction.ID, btParams)
	if err != nil {
		return 0, fmt.Errorf("stripe balance transaction lookup: %w", err)
	}
	return float64(bt.Fee) / 100, nil
}

// GetAccount retrieves connected-account capability flags.
func (c *Client) GetAccount(ctx context.Context, accountID string) (connect.AccountStatus, error) {
	params := &stripe.AccountParams{}
	params.Context = ctx

	acct, err := account.GetByID(accountID, params)
	if err != nil {
		return connect.AccountStatus{}, fmt.Errorf("stripe account lookup: %w", err)
	}
	return connect.AccountStatus{
		ChargesEnabled:   acct.ChargesEnabled,
		PayoutsEnabled:   acct.PayoutsEnabled,
		DetailsSubmitted: acct.DetailsSubmitted,
	}, nil
}
