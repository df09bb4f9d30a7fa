package reconciler

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	boom "github.com/tylertreat/BoomFilters"
	"go.opentelemetry.io/otel/api/key"

	"chainpe.com/payment-gateway/common"
	"chainpe.com/payment-gateway/config"
	"chainpe.com/payment-gateway/log"
	"chainpe.com/payment-gateway/models"
	"chainpe.com/payment-gateway/store"
)

const seenFilterCapacity = 100000

// Notifier receives a task for every successful Paid transition.
type Notifier interface {
	Enqueue(task *models.NotificationTask)
}

// Reconciler drives the session state machine: Created -> Paid on a
// validated settlement event, Created -> Expired on a lapsed read. Both
// transitions go through the store's conditional write, so replaying an
// event or racing another observer can never produce a second effective
// transition.
type Reconciler struct {
	store      store.SessionStore
	notifier   Notifier
	settlement models.Asset
	tolerance  decimal.Decimal
	nativeRate decimal.Decimal
	expiry     time.Duration

	// seen short-circuits transactions this process already reconciled.
	// The inverse bloom filter has no false positives, so a hit is a
	// real duplicate; misses just fall through to the store check.
	seen *boom.InverseBloomFilter
}

func New(st store.SessionStore, notifier Notifier, cfg *config.ReconcilerConfig, settlement models.Asset) (*Reconciler, error) {
	tolerance, err := decimal.NewFromString(cfg.AmountTolerance)
	if err != nil {
		return nil, err
	}
	nativeRate, err := decimal.NewFromString(cfg.NativeAssetRate)
	if err != nil {
		return nil, err
	}

	return &Reconciler{
		store:      st,
		notifier:   notifier,
		settlement: settlement,
		tolerance:  tolerance,
		nativeRate: nativeRate,
		expiry:     cfg.SessionExpiry,
		seen:       boom.NewInverseBloomFilter(seenFilterCapacity),
	}, nil
}

// Reconcile validates one settlement event against its session and, when
// every check passes, performs the Paid transition and enqueues the
// merchant notification. Attribution failures (bad memo, wrong address,
// wrong asset, amount out of tolerance) are skips, not errors; only
// store faults are returned. The bool result reports whether this call
// settled the session.
func (r *Reconciler) Reconcile(ctx context.Context, event *models.SettlementEvent) (bool, error) {
	tracer := common.CreateTracer("chainpe/reconciler")
	_, span := tracer.Start(ctx, "reconcile-event")
	defer span.End()
	span.SetAttributes(key.String("tx_hash", event.TxHash))

	if event.Memo == "" {
		log.Debugf("Payment %s has no memo, skipping", event.TxHash)
		return false, nil
	}

	if r.seen.TestAndAdd([]byte(event.TxHash + "|" + event.Cursor)) {
		log.Debugf("Payment %s already processed, skipping", event.TxHash)
		return false, nil
	}

	session, err := r.store.GetPaymentSession(event.Memo)
	if errors.Is(err, store.ErrNotFound) {
		log.Infof("No payment session found for memo %q, skipping tx %s", event.Memo, event.TxHash)
		return false, nil
	}
	if err != nil {
		return false, err
	}

	session, err = r.EnsureFresh(session)
	if err != nil {
		return false, err
	}
	if session.Status != models.StatusCreated {
		log.Infof("Session %s already %s, skipping tx %s", session.Id, session.Status, event.TxHash)
		return false, nil
	}

	destination, err := r.destinationFor(session.MerchantId)
	if err != nil {
		return false, err
	}
	if destination == nil {
		log.Warnf("Session %s has no registered merchant destination, skipping tx %s", session.Id, event.TxHash)
		return false, nil
	}
	if destination.Address != event.Destination {
		log.Warnf("Payment destination %s does not match merchant address %s for session %s", event.Destination, destination.Address, session.Id)
		return false, nil
	}

	expected, ok := r.checkAmount(session, event)
	if !ok {
		return false, nil
	}

	now := time.Now().UTC()
	settled, err := r.store.CompareAndSetStatus(session.Id, models.StatusCreated, models.StatusPaid, event.TxHash, &now)
	if err != nil {
		return false, err
	}
	if !settled {
		// Lost the race against a concurrent observer of a redundant
		// event. The winner's transition stands.
		log.Infof("Session %s settled concurrently, skipping tx %s", session.Id, event.TxHash)
		return false, nil
	}

	log.Infof("Session %s paid by tx %s (%s %s)", session.Id, event.TxHash, expected.String(), r.settlement.Code)

	if destination.WebhookUrl == "" {
		log.Warnf("No webhook url configured for merchant %v", session.MerchantId)
		return true, nil
	}

	r.notifier.Enqueue(&models.NotificationTask{
		SessionId:  session.Id,
		WebhookUrl: destination.WebhookUrl,
		Payload: models.WebhookPayload{
			Event:     models.WebhookEventPaymentSuccess,
			SessionId: session.Id,
			Amount:    session.AmountExpected,
			Currency:  r.settlement.Code,
			TxHash:    event.TxHash,
		},
	})
	return true, nil
}

// EnsureFresh applies the lazy expiry transition: a session still in
// Created past its payment window flips to Expired on read. Callers get
// back the session with its authoritative status.
func (r *Reconciler) EnsureFresh(session *models.PaymentSession) (*models.PaymentSession, error) {
	if session.Status != models.StatusCreated {
		return session, nil
	}
	if !session.ExpiredAt(time.Now().UTC(), r.expiry) {
		return session, nil
	}

	expired, err := r.store.CompareAndSetStatus(session.Id, models.StatusCreated, models.StatusExpired, "", nil)
	if err != nil {
		return session, err
	}
	if !expired {
		// Someone settled or expired it between our read and the write;
		// re-read for the authoritative status.
		return r.store.GetPaymentSession(session.Id)
	}

	log.Infof("Session %s expired (created %v, window %v)", session.Id, session.CreatedAt, r.expiry)
	session.Status = models.StatusExpired
	return session, nil
}

func (r *Reconciler) destinationFor(merchantId uuid.UUID) (*models.MerchantDestination, error) {
	destinations, err := r.store.ListMerchantDestinations()
	if err != nil {
		return nil, err
	}
	for _, destination := range destinations {
		if destination.MerchantId == merchantId {
			return destination, nil
		}
	}
	return nil, nil
}

func (r *Reconciler) classify(asset models.Asset) models.AssetClass {
	if asset.Native {
		return models.AssetNative
	}
	if asset.Code == r.settlement.Code && asset.Issuer == r.settlement.Issuer {
		return models.AssetSettlement
	}
	return models.AssetUnsupported
}

// checkAmount classifies the event's asset, scales the expectation for
// the native fallback rail, and enforces the absolute tolerance.
func (r *Reconciler) checkAmount(session *models.PaymentSession, event *models.SettlementEvent) (decimal.Decimal, bool) {
	var zero decimal.Decimal

	class := r.classify(event.Asset)
	if class == models.AssetUnsupported {
		log.Infof("Payment %s carries unsupported asset %s:%s, skipping", event.TxHash, event.Asset.Code, event.Asset.Issuer)
		return zero, false
	}

	expected, err := decimal.NewFromString(session.AmountExpected)
	if err != nil {
		log.Errorf("Session %s has malformed expected amount %q: %v", session.Id, session.AmountExpected, err)
		return zero, false
	}
	received, err := decimal.NewFromString(event.Amount)
	if err != nil {
		log.Errorf("Payment %s has malformed amount %q: %v", event.TxHash, event.Amount, err)
		return zero, false
	}

	if class == models.AssetNative {
		expected = expected.Mul(r.nativeRate)
	}

	if received.Sub(expected).Abs().GreaterThan(r.tolerance) {
		log.Warnf("Payment amount mismatch for session %s: expected %s, received %s (tx %s)", session.Id, expected.String(), received.String(), event.TxHash)
		return zero, false
	}
	return expected, true
}
