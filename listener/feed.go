package listener

import (
	"github.com/stellar/go/clients/horizonclient"
	hProtocol "github.com/stellar/go/protocols/horizon"
	"github.com/stellar/go/protocols/horizon/operations"

	"chainpe.com/payment-gateway/config"
	"chainpe.com/payment-gateway/log"
	"chainpe.com/payment-gateway/models"
)

const assetTypeNative = "native"

// OperationSource is the slice of the horizon client the feed needs.
type OperationSource interface {
	Payments(request horizonclient.OperationRequest) (operations.OperationsPage, error)
	TransactionDetail(txHash string) (hProtocol.Transaction, error)
}

// Feed turns one address's horizon payment operations into settlement
// events. The cursor lives here, owned by the loop that drives the feed;
// it is not shared and not persisted. Losing it on restart is safe
// because reconciliation is idempotent.
type Feed struct {
	source  OperationSource
	address string
	cfg     *config.LedgerConfig
	cursor  string
}

func NewFeed(source OperationSource, address string, cfg *config.LedgerConfig) *Feed {
	return &Feed{
		source:  source,
		address: address,
		cfg:     cfg,
		cursor:  cfg.StartCursor,
	}
}

// FetchNext returns the next page of settlement events past the cursor,
// in ledger order, advancing the cursor over every record seen. Records
// that are not payment-bearing or carry an unsupported asset are
// dropped but still advance the cursor.
func (f *Feed) FetchNext() ([]*models.SettlementEvent, error) {
	page, err := f.source.Payments(horizonclient.OperationRequest{
		ForAccount: f.address,
		Cursor:     f.cursor,
		Order:      horizonclient.OrderAsc,
		Limit:      uint(f.cfg.PageLimit),
		Join:       "transactions",
	})
	if err != nil {
		return nil, err
	}

	events := []*models.SettlementEvent{}
	for _, record := range page.Embedded.Records {
		f.cursor = record.PagingToken()

		event := f.translate(record)
		if event == nil {
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

// Payment-bearing operation kinds only; everything else is ignored.
func (f *Feed) translate(record operations.Operation) *models.SettlementEvent {
	switch op := record.(type) {
	case operations.Payment:
		return f.fromPayment(op)
	case operations.PathPayment:
		return f.fromPayment(op.Payment)
	case operations.PathPaymentStrictSend:
		return f.fromPayment(op.Payment)
	}
	return nil
}

func (f *Feed) fromPayment(op operations.Payment) *models.SettlementEvent {
	var asset models.Asset
	switch {
	case op.Asset.Type == assetTypeNative:
		asset = models.NativeAsset()
	case op.Asset.Code == f.cfg.SettlementAssetCode && op.Asset.Issuer == f.cfg.SettlementAssetIssuer:
		asset = models.CreditAsset(op.Asset.Code, op.Asset.Issuer)
	default:
		log.Debugf("Payment %s carries unsupported asset %s:%s, ignoring", op.TransactionHash, op.Asset.Code, op.Asset.Issuer)
		return nil
	}

	return &models.SettlementEvent{
		TxHash:      op.TransactionHash,
		Destination: op.To,
		Asset:       asset,
		Amount:      op.Amount,
		Memo:        f.memoFor(op),
		Cursor:      op.Base.PagingToken(),
	}
}

// memoFor prefers the transaction joined into the operation record and
// falls back to a transaction lookup when horizon did not include it.
func (f *Feed) memoFor(op operations.Payment) string {
	if op.Base.Transaction != nil {
		return op.Base.Transaction.Memo
	}

	tx, err := f.source.TransactionDetail(op.TransactionHash)
	if err != nil {
		log.Warnf("Could not load transaction %s for memo: %v", op.TransactionHash, err)
		return ""
	}
	return tx.Memo
}
