package sqlite

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"chainpe.com/payment-gateway/models"
	"chainpe.com/payment-gateway/rates"
)

// CreatePaymentSession is the issuance write: it computes the expected
// settlement amount from the fiat request and stores the session in
// Created state. The generated id doubles as the on-chain memo.
func (prdb *liteDb) CreatePaymentSession(merchantId uuid.UUID, amountFiat decimal.Decimal, currency string) (*models.PaymentSession, error) {
	session := &models.PaymentSession{
		Id:             rates.NewSessionId(),
		MerchantId:     merchantId,
		AmountFiat:     amountFiat.StringFixed(2),
		FiatCurrency:   strings.ToUpper(currency),
		AmountExpected: rates.ConvertFiat(amountFiat, currency),
		Status:         models.StatusCreated,
		CreatedAt:      time.Now().UTC(),
	}

	err := prdb.InsertPaymentSession(session)
	if err != nil {
		return nil, err
	}
	return session, nil
}
