package httpapi

import (
	"time"

	"payflow/payment"
	"payflow/payout"
)

type paymentJSON struct {
	ID             string            `json:"id"`
	IdempotencyKey string            `json:"idempotencyKey"`
	Status         string            `json:"status"`
	Amount         int64             `json:"amount"`
	Currency       string            `json:"currency"`
	MerchantID     string            `json:"merchantId"`
	CustomerID     string            `json:"customerId,omitempty"`
	TransactionIDs []string          `json:"transactionIds,omitempty"`
	FailureCode    string            `json:"failureCode,omitempty"`
	FailureMessage string            `json:"failureMessage,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	CreatedAt      time.Time         `json:"createdAt"`
	UpdatedAt      time.Time         `json:"updatedAt"`
	CompletedAt    *time.Time        `json:"completedAt,omitempty"`
	Version        int64             `json:"version"`
}

func paymentView(p payment.Payment) paymentJSON {
	return paymentJSON{
		ID:             p.ID,
		IdempotencyKey: p.IdempotencyKey,
		Status:         string(p.Status),
		Amount:         p.Amount,
		Currency:       p.Currency,
		MerchantID:     p.MerchantID,
		CustomerID:     p.CustomerID,
		TransactionIDs: p.TransactionIDs,
		FailureCode:    p.FailureCode,
		FailureMessage: p.FailureMessage,
		Metadata:       p.Metadata,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
		CompletedAt:    p.CompletedAt,
		Version:        p.Version,
	}
}

type payoutJSON struct {
	ID                   string     `json:"id"`
	MerchantID           string     `json:"merchantId"`
	Status               string     `json:"status"`
	AttentionLevel       string     `json:"attentionLevel"`
	AttentionReason      string     `json:"attentionReason,omitempty"`
	ItemCount            int        `json:"itemCount"`
	SettledCount         int        `json:"settledCount"`
	FailedCount          int        `json:"failedCount"`
	GrossAmount          int64      `json:"grossAmount"`
	FeeAmount            int64      `json:"feeAmount"`
	NetAmount            int64      `json:"netAmount"`
	SettledAmount        int64      `json:"settledAmount"`
	Currency             string     `json:"currency"`
	BankAccountMasked    string     `json:"bankAccountMasked"`
	SettlementDays       int        `json:"settlementDays"`
	CreatedAt            time.Time  `json:"createdAt"`
	ProcessedAt          *time.Time `json:"processedAt,omitempty"`
	ExpectedSettlementAt *time.Time `json:"expectedSettlementAt,omitempty"`
	SettledAt            *time.Time `json:"settledAt,omitempty"`
	FailureReason        string     `json:"failureReason,omitempty"`
	ReconciliationNotes  string     `json:"reconciliationNotes,omitempty"`
	LastReconciledAt     *time.Time `json:"lastReconciledAt,omitempty"`
	Version              int64      `json:"version"`
}

func payoutView(b payout.Batch) payoutJSON {
	return payoutJSON{
		ID:                   b.ID,
		MerchantID:           b.MerchantID,
		Status:               string(b.Status),
		AttentionLevel:       string(b.AttentionLevel),
		AttentionReason:      b.AttentionReason,
		ItemCount:            b.ItemCount,
		SettledCount:         b.SettledCount,
		FailedCount:          b.FailedCount,
		GrossAmount:          b.GrossAmount,
		FeeAmount:            b.FeeAmount,
		NetAmount:            b.NetAmount,
		SettledAmount:        b.SettledAmount,
		Currency:             b.Currency,
		BankAccountMasked:    b.BankAccountMasked,
		SettlementDays:       b.SettlementDays,
		CreatedAt:            b.CreatedAt,
		ProcessedAt:          b.ProcessedAt,
		ExpectedSettlementAt: b.ExpectedSettlementAt,
		SettledAt:            b.SettledAt,
		FailureReason:        b.FailureReason,
		ReconciliationNotes:  b.ReconciliationNotes,
		LastReconciledAt:     b.LastReconciledAt,
		Version:              b.Version,
	}
}
