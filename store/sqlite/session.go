package sqlite

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"chainpe.com/payment-gateway/log"
	"chainpe.com/payment-gateway/models"
	"chainpe.com/payment-gateway/store"
)

func (prdb *liteDb) createTablePaymentSession() error {
	return prdb.exec(`
	CREATE TABLE IF NOT EXISTS PaymentSession (
		Id             TEXT NOT NULL PRIMARY KEY,
		MerchantId     TEXT NOT NULL,
		AmountFiat     TEXT NOT NULL,
		FiatCurrency   TEXT NOT NULL,
		AmountExpected TEXT NOT NULL,
		Status         TEXT NOT NULL,
		TxHash         TEXT NULL,
		CreatedAt      TIMESTAMP NOT NULL,
		PaidAt         TIMESTAMP NULL,
		FOREIGN KEY(MerchantId) REFERENCES Merchant(Id)
	)
	`)
}

func (prdb *liteDb) InsertPaymentSession(item *models.PaymentSession) error {
	tx, err := prdb.db.Begin()
	if err != nil {
		log.Error(err)
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO PaymentSession (
		Id,
		MerchantId,
		AmountFiat,
		FiatCurrency,
		AmountExpected,
		Status,
		TxHash,
		CreatedAt,
		PaidAt
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);
`)
	if err != nil {
		log.Error(err)
		return err
	}
	defer stmt.Close()
	_, err = stmt.Exec(
		item.Id,
		item.MerchantId.String(),
		item.AmountFiat,
		item.FiatCurrency,
		item.AmountExpected,
		string(item.Status),
		item.TxHash,
		item.CreatedAt,
		item.PaidAt,
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (prdb *liteDb) GetPaymentSession(id string) (*models.PaymentSession, error) {
	query := `SELECT
		Id,
		MerchantId,
		AmountFiat,
		FiatCurrency,
		AmountExpected,
		Status,
		TxHash,
		CreatedAt,
		PaidAt
	FROM PaymentSession
	WHERE Id=?;
	`
	row := prdb.db.QueryRow(query, id)

	item := &models.PaymentSession{}
	var merchantId string
	var status string
	var txHash sql.NullString
	var paidAt sql.NullTime

	err := row.Scan(
		&item.Id,
		&merchantId,
		&item.AmountFiat,
		&item.FiatCurrency,
		&item.AmountExpected,
		&status,
		&txHash,
		&item.CreatedAt,
		&paidAt,
	)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	item.MerchantId, err = uuid.Parse(merchantId)
	if err != nil {
		return nil, err
	}
	item.Status = models.PaymentStatus(status)
	if txHash.Valid {
		item.TxHash = txHash.String
	}
	if paidAt.Valid {
		t := paidAt.Time
		item.PaidAt = &t
	}
	return item, nil
}

// CompareAndSetStatus is the single authoritative state change. The
// status predicate in the WHERE clause makes concurrent transition
// attempts race on the row, not on an earlier read.
func (prdb *liteDb) CompareAndSetStatus(id string, expected models.PaymentStatus, next models.PaymentStatus, txHash string, paidAt *time.Time) (bool, error) {
	query := `UPDATE PaymentSession SET Status=?, TxHash=?, PaidAt=?
	WHERE Id=? AND Status=?;
	`
	stmt, err := prdb.db.Prepare(query)
	if err != nil {
		return false, err
	}
	defer stmt.Close()

	var hash sql.NullString
	if txHash != "" {
		hash = sql.NullString{String: txHash, Valid: true}
	}
	var paid sql.NullTime
	if paidAt != nil {
		paid = sql.NullTime{Time: *paidAt, Valid: true}
	}

	res, err := stmt.Exec(string(next), hash, paid, id, string(expected))
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}
