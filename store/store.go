package store

import (
	"time"

	"github.com/go-errors/errors"

	"chainpe.com/payment-gateway/models"
)

// ErrNotFound is returned when a session id has no record.
var ErrNotFound = errors.New("payment session not found")

// SessionStore is the narrow contract the settlement engine has with the
// relational store. The store is the single source of truth for session
// status; every status write goes through the conditional update.
type SessionStore interface {
	GetPaymentSession(id string) (*models.PaymentSession, error)

	// CompareAndSetStatus transitions the session from expected to next
	// in a single conditional write. It returns false when the session
	// was not in the expected status anymore, which the caller treats as
	// lost contention, not an error. TxHash and paidAt are only recorded
	// on the Paid transition.
	CompareAndSetStatus(id string, expected models.PaymentStatus, next models.PaymentStatus, txHash string, paidAt *time.Time) (bool, error)

	// ListMerchantDestinations returns every active merchant with a
	// non-empty settlement address.
	ListMerchantDestinations() ([]*models.MerchantDestination, error)
}
