package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		paymentsInitiated,
		paymentVerifications,
		paymentVerifyDuration,
		paymentsRevenue,
		notificationsTotal,
		jobRuns,
	)
}

var (
	paymentsInitiated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_payments_initiated_total",
			Help: "Payment transactions created, by plan and invoice outcome.",
		},
		[]string{"plan", "result"},
	)

	// result: completed|failed|already_completed|already_failed|lost_race|error
	paymentVerifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_payment_verifications_total",
			Help: "Payment verifications by outcome.",
		},
		[]string{"result"},
	)

	paymentVerifyDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "billing_payment_verify_duration_seconds",
			Help:    "Duration of payment verification in seconds.",
			Buckets: []float64{0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"result"},
	)

	paymentsRevenue = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_payments_revenue_total",
			Help: "Value of completed payments by currency.",
		},
		[]string{"currency"},
	)

	// kind: success|failure, status: sent|error
	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_payment_notifications_total",
			Help: "Payment outcome emails by kind and delivery status.",
		},
		[]string{"kind", "status"},
	)

	jobRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "billing_job_runs_total",
			Help: "Background job runs by job and result.",
		},
		[]string{"job", "result"},
	)
)

func IncPaymentInitiated(plan, result string) {
	paymentsInitiated.WithLabelValues(norm(plan), norm(result)).Inc()
}

func ObservePaymentVerification(result string, elapsed time.Duration) {
	paymentVerifications.WithLabelValues(norm(result)).Inc()
	paymentVerifyDuration.WithLabelValues(norm(result)).Observe(elapsed.Seconds())
}

func AddPaymentRevenue(currency string, amount int64) {
	paymentsRevenue.WithLabelValues(norm(currency)).Add(float64(amount))
}

func IncNotification(kind, status string) {
	notificationsTotal.WithLabelValues(norm(kind), norm(status)).Inc()
}

func IncJobRun(job, result string) {
	jobRuns.WithLabelValues(norm(job), norm(result)).Inc()
}
