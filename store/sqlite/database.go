package sqlite

import (
	"database/sql"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

func New(path string) (*liteDb, error) {
	sessionDb := &liteDb{path: path}
	return sessionDb, sessionDb.init()
}

type liteDb struct {
	mutext sync.Mutex
	path   string
	db     *sql.DB
}

func (prdb *liteDb) init() error {
	prdb.mutext.Lock()
	defer prdb.mutext.Unlock()

	err := prdb.Open()
	if err != nil {
		return err
	}
	return prdb.createTables()
}

func (prdb *liteDb) createTables() error {
	err := prdb.createTableMerchant()
	if err != nil {
		return err
	}
	return prdb.createTablePaymentSession()
}

func (prdb *liteDb) exec(sql string) error {
	_, err := prdb.db.Exec(sql)
	if err != nil {
		return err
	}
	return nil
}

func (prdb *liteDb) Open() error {
	db, err := sql.Open("sqlite3", prdb.path)
	if err != nil {
		return err
	}

	prdb.db = db
	return nil
}

func (prdb *liteDb) Close() error {
	if prdb.db != nil {
		return prdb.db.Close()
	}
	return nil
}
