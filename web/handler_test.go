package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"

	"chainpe.com/payment-gateway/models"
	"chainpe.com/payment-gateway/store"
)

type fakeStore struct {
	sessions map[string]*models.PaymentSession
}

func (f *fakeStore) GetPaymentSession(id string) (*models.PaymentSession, error) {
	session, ok := f.sessions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	copied := *session
	return &copied, nil
}

func (f *fakeStore) CompareAndSetStatus(id string, expected models.PaymentStatus, next models.PaymentStatus, txHash string, paidAt *time.Time) (bool, error) {
	session, ok := f.sessions[id]
	if !ok || session.Status != expected {
		return false, nil
	}
	session.Status = next
	return true, nil
}

func (f *fakeStore) ListMerchantDestinations() ([]*models.MerchantDestination, error) {
	return nil, nil
}

// expiringFreshener flips lapsed Created sessions, mirroring the
// reconciler's lazy expiry.
type expiringFreshener struct {
	st     *fakeStore
	window time.Duration
}

func (e *expiringFreshener) EnsureFresh(session *models.PaymentSession) (*models.PaymentSession, error) {
	if session.Status != models.StatusCreated || !session.ExpiredAt(time.Now().UTC(), e.window) {
		return session, nil
	}
	_, err := e.st.CompareAndSetStatus(session.Id, models.StatusCreated, models.StatusExpired, "", nil)
	if err != nil {
		return session, err
	}
	session.Status = models.StatusExpired
	return session, nil
}

func testRouter(st *fakeStore) *mux.Router {
	router := mux.NewRouter()
	AddHandlers(router, &statusServer{
		store:  st,
		fresh:  &expiringFreshener{st: st, window: 15 * time.Minute},
		router: router,
	})
	return router
}

func TestGetSession(t *testing.T) {
	assert := assert.New(t)

	st := &fakeStore{sessions: map[string]*models.PaymentSession{
		"pay_abc123": {
			Id:             "pay_abc123",
			MerchantId:     uuid.New(),
			AmountFiat:     "50.00",
			FiatCurrency:   "USD",
			AmountExpected: "50.00",
			Status:         models.StatusPaid,
			TxHash:         "tx1",
			CreatedAt:      time.Now().UTC(),
		},
	}}

	req := httptest.NewRequest("GET", "/api/sessions/pay_abc123", nil)
	rec := httptest.NewRecorder()
	testRouter(st).ServeHTTP(rec, req)

	assert.Equal(http.StatusOK, rec.Code)

	var body sessionResponse
	assert.NoError(json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal("pay_abc123", body.Id)
	assert.Equal("paid", body.Status)
	assert.Equal("50.00", body.Amount)
	assert.Equal("tx1", body.TxHash)
}

func TestGetSessionNotFound(t *testing.T) {
	st := &fakeStore{sessions: map[string]*models.PaymentSession{}}

	req := httptest.NewRequest("GET", "/api/sessions/pay_missing", nil)
	rec := httptest.NewRecorder()
	testRouter(st).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetSessionExpiresOnRead(t *testing.T) {
	assert := assert.New(t)

	st := &fakeStore{sessions: map[string]*models.PaymentSession{
		"pay_old": {
			Id:             "pay_old",
			MerchantId:     uuid.New(),
			AmountFiat:     "50.00",
			FiatCurrency:   "USD",
			AmountExpected: "50.00",
			Status:         models.StatusCreated,
			CreatedAt:      time.Now().UTC().Add(-time.Hour),
		},
	}}

	req := httptest.NewRequest("GET", "/api/sessions/pay_old", nil)
	rec := httptest.NewRecorder()
	testRouter(st).ServeHTTP(rec, req)

	assert.Equal(http.StatusOK, rec.Code)

	var body sessionResponse
	assert.NoError(json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal("expired", body.Status)
	assert.Equal(models.StatusExpired, st.sessions["pay_old"].Status)
}

func TestHealth(t *testing.T) {
	st := &fakeStore{sessions: map[string]*models.PaymentSession{}}

	req := httptest.NewRequest("GET", "/health", nil)
	rec := httptest.NewRecorder()
	testRouter(st).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
