package listener

import (
	"github.com/stellar/go/strkey"

	"chainpe.com/payment-gateway/log"
	"chainpe.com/payment-gateway/models"
	"chainpe.com/payment-gateway/store"
)

// WatchSet resolves the current set of merchant destinations to poll.
// It is a read-only view over the store, refreshed by the supervisor.
type WatchSet struct {
	store store.SessionStore
}

func NewWatchSet(st store.SessionStore) *WatchSet {
	return &WatchSet{store: st}
}

// CurrentAddresses returns the registered destinations keyed by address.
// Syntactically invalid addresses are dropped with a warning; an empty
// result leaves the engine idle, it is not an error.
func (ws *WatchSet) CurrentAddresses() (map[string]*models.MerchantDestination, error) {
	destinations, err := ws.store.ListMerchantDestinations()
	if err != nil {
		return nil, err
	}

	current := map[string]*models.MerchantDestination{}
	for _, destination := range destinations {
		if !strkey.IsValidEd25519PublicKey(destination.Address) {
			log.Warnf("Skipping invalid stellar address %q for merchant %v", destination.Address, destination.MerchantId)
			continue
		}
		current[destination.Address] = destination
	}

	if len(current) == 0 {
		log.Warn("No merchant addresses to watch")
	}
	return current, nil
}
