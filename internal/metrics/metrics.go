package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/kirinyoku/museum-tix/internal/domain"
	"github.com/kirinyoku/museum-tix/internal/lifecycle"
)

const namespace = "museumtix"

// Metrics holds the application collectors. Each instance registers on its
// own registerer so tests can build isolated copies.
type Metrics struct {
	bookings             *prometheus.CounterVec
	cancellations        *prometheus.CounterVec
	refunded             prometheus.Counter
	notificationFailures *prometheus.CounterVec
	ticketsByStatus      *prometheus.GaugeVec
	dbUp                 prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		bookings: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "bookings_total",
				Help:      "Tickets booked, by payment status at booking time",
			},
			[]string{"payment_status"},
		),
		cancellations: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cancellations_total",
				Help:      "Tickets cancelled, by refund tier",
			},
			[]string{"tier"},
		),
		refunded: f.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "refunded_amount_total",
				Help:      "Sum of refunded amounts",
			},
		),
		notificationFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notification_failures_total",
				Help:      "Emails that could not be delivered, by kind",
			},
			[]string{"kind"},
		),
		ticketsByStatus: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "tickets",
				Help:      "Stored tickets by status",
			},
			[]string{"status"},
		),
		dbUp: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "database_up",
				Help:      "1 while the background health check reaches the database",
			},
		),
	}
}

func (m *Metrics) ObserveBooking(t domain.Ticket) {
	m.bookings.WithLabelValues(string(t.PaymentStatus)).Inc()
}

func (m *Metrics) ObserveCancellation(c lifecycle.Cancellation) {
	m.cancellations.WithLabelValues(string(c.Tier)).Inc()
	if c.Refunded() {
		m.refunded.Add(c.RefundAmount.InexactFloat64())
	}
}

func (m *Metrics) NotificationFailed(kind string) {
	m.notificationFailures.WithLabelValues(kind).Inc()
}

// SetTicketsByStatus replaces the status gauges. Statuses missing from
// counts are reported as zero.
func (m *Metrics) SetTicketsByStatus(counts []domain.StatusCount) {
	for _, s := range []domain.TicketStatus{domain.TicketBooked, domain.TicketConfirmed, domain.TicketCancelled, domain.TicketRefunded} {
		m.ticketsByStatus.WithLabelValues(string(s)).Set(0)
	}
	for _, c := range counts {
		m.ticketsByStatus.WithLabelValues(string(c.Status)).Set(float64(c.Count))
	}
}

func (m *Metrics) SetDatabaseUp(up bool) {
	if up {
		m.dbUp.Set(1)
		return
	}
	m.dbUp.Set(0)
}
