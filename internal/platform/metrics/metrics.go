package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Orders created successfully.",
	})

	OrdersFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Order creation failures by reason.",
	}, []string{"reason"})

	Payments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payments_total",
		Help: "Payment attempts by final status.",
	}, []string{"status"})

	// CompensationReleaseFailures counts inventory releases that failed during
	// compensation and now need manual reconciliation.
	CompensationReleaseFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "compensation_release_failures_total",
		Help: "Inventory release failures during saga compensation.",
	})

	SettlementMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_messages_total",
		Help: "Settlement consumer outcomes per message.",
	}, []string{"result"})
)
