package payment

import (
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	ErrBalanceNotFound     = errors.New("balance not found")
	ErrTransactionNotFound = errors.New("payment transaction not found")
	ErrInvalidAmount       = errors.New("payment amount must be greater than 0")
)

type TxStatus string

const (
	TxApproved TxStatus = "APPROVED"
	TxRejected TxStatus = "REJECTED"
	TxRefunded TxStatus = "REFUNDED"
)

type UserBalance struct {
	UserID  int     `json:"userId"`
	Balance float64 `json:"balance"`
}

// Transaction is keyed by order id: one payment per order.
type Transaction struct {
	OrderID   uuid.UUID
	UserID    int
	Amount    float64
	Status    TxStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Severity int

const (
	SeverityInfo Severity = iota + 1
	SeverityWarn
	SeverityError
)

// AuditEntry is one line of the append-only payment audit log.
type AuditEntry struct {
	OrderID  uuid.UUID
	At       time.Time
	Message  string
	Severity Severity
}

// SeedBalances are the accounts a fresh payment store starts with.
var SeedBalances = []UserBalance{
	{UserID: 1, Balance: 1000},
	{UserID: 2, Balance: 50},
}
