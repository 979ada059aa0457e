package service

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

type serviceMetrics struct {
	credentialsIssued metric.Int64Counter
	usageRecorded     metric.Int64Counter
	webhookEvents     metric.Int64Counter
}

func newServiceMetrics() serviceMetrics {
	meter := otel.Meter("entitlement-service")

	credentialsIssued, _ := meter.Int64Counter("credentials_issued_total",
		metric.WithDescription("Bearer credentials issued at register/login"))
	usageRecorded, _ := meter.Int64Counter("usage_records_total",
		metric.WithDescription("Usage ledger inserts for first use of a domain"))
	webhookEvents, _ := meter.Int64Counter("webhook_events_total",
		metric.WithDescription("Payment provider webhook events by type and outcome"))

	return serviceMetrics{
		credentialsIssued: credentialsIssued,
		usageRecorded:     usageRecorded,
		webhookEvents:     webhookEvents,
	}
}
