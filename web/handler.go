package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"chainpe.com/payment-gateway/log"
	"chainpe.com/payment-gateway/models"
	"chainpe.com/payment-gateway/store"
)

// SessionFreshener applies the lazy expiry transition on read.
type SessionFreshener interface {
	EnsureFresh(session *models.PaymentSession) (*models.PaymentSession, error)
}

type StatusServer interface {
	Start()
	Shutdown(ctx context.Context)
}

type statusServer struct {
	server *http.Server
	store  store.SessionStore
	fresh  SessionFreshener
	router *mux.Router
}

type sessionResponse struct {
	Id           string     `json:"id"`
	Status       string     `json:"status"`
	AmountFiat   string     `json:"amount_fiat"`
	FiatCurrency string     `json:"fiat_currency"`
	Amount       string     `json:"amount"`
	TxHash       string     `json:"tx_hash,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	PaidAt       *time.Time `json:"paid_at,omitempty"`
}

func NewServer(port int, st store.SessionStore, fresh SessionFreshener) StatusServer {
	router := mux.NewRouter()

	srv := &statusServer{
		store:  st,
		fresh:  fresh,
		router: router,
	}
	AddHandlers(router, srv)
	srv.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: handlers.CombinedLoggingHandler(log.Writer(), router),
	}
	return srv
}

func (s *statusServer) Start() {
	log.Infof("Start status server %v", s.server.Addr)
	err := s.server.ListenAndServe()

	if err != nil && err != http.ErrServerClosed {
		panic(err)
	}
}

func (s *statusServer) Shutdown(ctx context.Context) {
	err := s.server.Shutdown(ctx)

	if err != nil {
		log.Errorf("connection shutdown failed %s", err.Error())
	}
}

func AddHandlers(router *mux.Router, srv *statusServer) {
	router.HandleFunc("/version", func(rw http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(rw, "dev_version")
	})
	router.HandleFunc("/health", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(http.StatusOK)
		fmt.Fprintln(rw, "ok")
	})
	router.HandleFunc("/api/sessions/{sessionId}", srv.HandleGetSession).Methods("GET")
}

// HandleGetSession is the one read surface of the engine: checkout pages
// poll it for the session status. Reading is also what triggers the lazy
// expiry sweep.
func (s *statusServer) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionId := mux.Vars(r)["sessionId"]

	session, err := s.store.GetPaymentSession(sessionId)
	if errors.Is(err, store.ErrNotFound) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	if err != nil {
		log.Errorf("Session lookup failed for %s: %v", sessionId, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	session, err = s.fresh.EnsureFresh(session)
	if err != nil {
		log.Errorf("Expiry check failed for %s: %v", sessionId, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	err = json.NewEncoder(w).Encode(&sessionResponse{
		Id:           session.Id,
		Status:       string(session.Status),
		AmountFiat:   session.AmountFiat,
		FiatCurrency: session.FiatCurrency,
		Amount:       session.AmountExpected,
		TxHash:       session.TxHash,
		CreatedAt:    session.CreatedAt,
		PaidAt:       session.PaidAt,
	})
	if err != nil {
		log.Errorf("Error:%v", err)
	}
}
