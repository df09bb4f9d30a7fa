package horizon

import (
	"net/http"

	"github.com/stellar/go/clients/horizonclient"

	"chainpe.com/payment-gateway/config"
)

// NewHorizonClient builds a horizon client for the configured network.
// The stock testnet/pubnet clients are reused when the URL matches.
func NewHorizonClient(cfg *config.LedgerConfig) *horizonclient.Client {
	switch cfg.HorizonUrl {
	case "", horizonclient.DefaultTestNetClient.HorizonURL:
		return horizonclient.DefaultTestNetClient
	case horizonclient.DefaultPublicNetClient.HorizonURL:
		return horizonclient.DefaultPublicNetClient
	}

	return &horizonclient.Client{
		HorizonURL: cfg.HorizonUrl,
		HTTP:       http.DefaultClient,
	}
}
