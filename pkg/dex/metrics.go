package dex

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the exchange metrics. A nil *Metrics records nothing.
type Metrics struct {
	Matches       prometheus.Counter
	MatchFailures *prometheus.CounterVec
	Cancels       prometheus.Counter
	Txns          *prometheus.CounterVec
}

// NewMetrics creates the metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Matches: f.NewCounter(prometheus.CounterOpts{
			Name: "dex_matches_total",
			Help: "Total number of settled matches",
		}),
		MatchFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dex_match_failures_total",
			Help: "Total number of rejected matches by reason",
		}, []string{"reason"}),
		Cancels: f.NewCounter(prometheus.CounterOpts{
			Name: "dex_cancels_total",
			Help: "Total number of order cancellations",
		}),
		Txns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dex_txns_total",
			Help: "Total number of applied transactions by type and result",
		}, []string{"type", "result"}),
	}
}

func (m *Metrics) matched() {
	if m == nil {
		return
	}
	m.Matches.Inc()
}

func (m *Metrics) matchFailed(err error) {
	if m == nil {
		return
	}
	m.MatchFailures.WithLabelValues(errorReason(err)).Inc()
}

func (m *Metrics) cancelled() {
	if m == nil {
		return
	}
	m.Cancels.Inc()
}

func (m *Metrics) txn(t TxnType, err error) {
	if m == nil {
		return
	}

	result := "ok"
	if err != nil {
		result = errorReason(err)
	}
	m.Txns.WithLabelValues(t.String(), result).Inc()
}

func errorReason(err error) string {
	var (
		notFillable *NotFillableError
		invalidSig  *InvalidSignatureError
		balance     *InsufficientBalanceError
	)

	switch {
	case errors.Is(err, ErrTokenMismatch):
		return "token_mismatch"
	case errors.Is(err, ErrRelayerMismatch):
		return "relayer_mismatch"
	case errors.Is(err, ErrUnprofitableSpread):
		return "unprofitable_spread"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrMalformedOrder):
		return "malformed_order"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrInvalidTxnSig):
		return "invalid_txn_sig"
	case errors.Is(err, ErrBadNonce):
		return "bad_nonce"
	case errors.Is(err, ErrUnknownTxn):
		return "unknown_txn"
	case errors.As(err, &notFillable):
		return "not_fillable"
	case errors.As(err, &invalidSig):
		return "invalid_signature"
	case errors.As(err, &balance):
		return "insufficient_balance"
	default:
		return "other"
	}
}
