package models

// AssetClass distinguishes the two settlement rails the engine accepts.
type AssetClass int

const (
	AssetUnsupported AssetClass = iota
	AssetSettlement
	AssetNative
)

type Asset struct {
	Native bool
	Code   string
	Issuer string
}

func NativeAsset() Asset {
	return Asset{Native: true}
}

func CreditAsset(code string, issuer string) Asset {
	return Asset{Code: code, Issuer: issuer}
}

// SettlementEvent is one payment-bearing ledger operation, already
// narrowed to the fields reconciliation needs. Amount stays a decimal
// string until validation.
type SettlementEvent struct {
	TxHash      string
	Destination string
	Asset       Asset
	Amount      string
	Memo        string
	Cursor      string
}
