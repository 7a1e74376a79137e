package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	reservationsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "bungalow",
			Name:      "reservations_created_total",
			Help:      "Count of reservations created by customers.",
		},
	)

	reservationTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bungalow",
			Name:      "reservation_transitions_total",
			Help:      "Count of status and payment changes by action and result.",
		},
		[]string{"action", "result"},
	)

	calendarRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bungalow",
			Name:      "calendar_requests_total",
			Help:      "Count of calendar aggregations by cache outcome.",
		},
		[]string{"cache"},
	)

	priceLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bungalow",
			Name:      "price_lookups_total",
			Help:      "Count of effective price lookups by price source.",
		},
		[]string{"source"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(reservationsCreated, reservationTransitions, calendarRequests, priceLookups)
	})
}

func IncReservationCreated() {
	reservationsCreated.Inc()
}

// IncTransition records one transition attempt; result is "applied",
// "noop" or the error code the caller saw.
func IncTransition(action, result string) {
	reservationTransitions.WithLabelValues(action, result).Inc()
}

func IncCalendarRequest(cache string) {
	calendarRequests.WithLabelValues(cache).Inc()
}

// IncPriceLookup records whether the price came from the base rate or a
// seasonal discount.
func IncPriceLookup(source string) {
	priceLookups.WithLabelValues(source).Inc()
}
