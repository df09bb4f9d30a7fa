package sqlite

import (
	"database/sql"

	"github.com/google/uuid"

	"chainpe.com/payment-gateway/log"
	"chainpe.com/payment-gateway/models"
)

func (prdb *liteDb) createTableMerchant() error {
	return prdb.exec(`
	CREATE TABLE IF NOT EXISTS Merchant (
		Id             TEXT NOT NULL PRIMARY KEY,
		Name           TEXT NOT NULL,
		Email          TEXT NOT NULL UNIQUE,
		StellarAddress TEXT NULL,
		WebhookUrl     TEXT NULL,
		IsActive       INTEGER NOT NULL DEFAULT 1,
		CreatedAt      TIMESTAMP NOT NULL
	)
	`)
}

func (prdb *liteDb) InsertMerchant(item *models.Merchant) error {
	tx, err := prdb.db.Begin()
	if err != nil {
		log.Error(err)
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO Merchant (
		Id,
		Name,
		Email,
		StellarAddress,
		WebhookUrl,
		IsActive,
		CreatedAt
	)
	VALUES (?, ?, ?, ?, ?, ?, ?);
`)
	if err != nil {
		log.Error(err)
		return err
	}
	defer stmt.Close()
	_, err = stmt.Exec(
		item.Id.String(),
		item.Name,
		item.Email,
		item.StellarAddress,
		item.WebhookUrl,
		item.IsActive,
		item.CreatedAt,
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

func (prdb *liteDb) ListMerchantDestinations() ([]*models.MerchantDestination, error) {
	query := `SELECT Id, StellarAddress, WebhookUrl
	FROM Merchant
	WHERE IsActive=1 AND StellarAddress IS NOT NULL AND StellarAddress != '';
	`
	rows, err := prdb.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []*models.MerchantDestination{}
	for rows.Next() {
		var id string
		var address string
		var webhookUrl sql.NullString

		err := rows.Scan(&id, &address, &webhookUrl)
		if err != nil {
			return nil, err
		}
		merchantId, err := uuid.Parse(id)
		if err != nil {
			return nil, err
		}
		item := &models.MerchantDestination{
			MerchantId: merchantId,
			Address:    address,
		}
		if webhookUrl.Valid {
			item.WebhookUrl = webhookUrl.String
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
