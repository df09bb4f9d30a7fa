package models

import (
	"time"

	"github.com/google/uuid"
)

type PaymentStatus string

const (
	StatusCreated PaymentStatus = "created"
	StatusPaid    PaymentStatus = "paid"
	StatusExpired PaymentStatus = "expired"
)

// PaymentSession is one merchant-issued payment request. The session id
// doubles as the transaction memo the customer attaches on-chain.
type PaymentSession struct {
	Id             string
	MerchantId     uuid.UUID
	AmountFiat     string
	FiatCurrency   string
	AmountExpected string
	Status         PaymentStatus
	TxHash         string
	CreatedAt      time.Time
	PaidAt         *time.Time
}

// ExpiredAt reports whether the session's payment window has elapsed at
// the given instant. Only meaningful while the session is still created.
func (s *PaymentSession) ExpiredAt(now time.Time, window time.Duration) bool {
	return now.After(s.CreatedAt.Add(window))
}

type Merchant struct {
	Id             uuid.UUID
	Name           string
	Email          string
	StellarAddress string
	WebhookUrl     string
	IsActive       bool
	CreatedAt      time.Time
}

// MerchantDestination is the slice of a merchant the settlement engine
// cares about: where payments land and where notifications go.
type MerchantDestination struct {
	MerchantId uuid.UUID
	Address    string
	WebhookUrl string
}
