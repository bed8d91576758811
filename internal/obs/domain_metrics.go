package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// BookingsCreated counts stored bookings by the pricing source used.
	BookingsCreated *prometheus.CounterVec
	// BookingVisitors counts visitor heads booked, by pricing category.
	BookingVisitors *prometheus.CounterVec
	// PricingFallbacks counts reads served from the last-known or default tier table.
	PricingFallbacks prometheus.Counter
	// ReportExports counts CSV exports and archive runs by kind and outcome.
	ReportExports *prometheus.CounterVec
	// TicketScans counts gate verifications by outcome.
	TicketScans *prometheus.CounterVec
	// RateLimited counts requests rejected by the booking rate limiter.
	RateLimited prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		BookingsCreated = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_created_total",
			Help:      "Count of stored bookings by pricing source.",
		}, []string{"pricing"})
		BookingVisitors = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_visitors_total",
			Help:      "Visitor heads booked by pricing category.",
		}, []string{"category"})
		PricingFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pricing_fallback_total",
			Help:      "Tier table reads answered from the fallback table.",
		})
		ReportExports = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_exports_total",
			Help:      "CSV exports and report archive runs by kind and outcome.",
		}, []string{"kind", "outcome"})
		TicketScans = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ticket_scans_total",
			Help:      "Gate ticket verifications by outcome.",
		}, []string{"outcome"})
		RateLimited = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_rate_limited_total",
			Help:      "Booking submissions rejected by the rate limiter.",
		})

		mustRegisterCollector(reg, BookingsCreated, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				BookingsCreated = v
			}
		})
		mustRegisterCollector(reg, BookingVisitors, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				BookingVisitors = v
			}
		})
		mustRegisterCollector(reg, PricingFallbacks, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				PricingFallbacks = v
			}
		})
		mustRegisterCollector(reg, ReportExports, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ReportExports = v
			}
		})
		mustRegisterCollector(reg, TicketScans, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				TicketScans = v
			}
		})
		mustRegisterCollector(reg, RateLimited, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Counter); ok {
				RateLimited = v
			}
		})
	})
}

// ObserveExport records a report export outcome. Safe before registration.
func ObserveExport(kind, outcome string) {
	if ReportExports != nil {
		ReportExports.WithLabelValues(kind, outcome).Inc()
	}
}

// ObserveScan records a ticket scan outcome. Safe before registration.
func ObserveScan(outcome string) {
	if TicketScans != nil {
		TicketScans.WithLabelValues(outcome).Inc()
	}
}

// ObservePricingFallback records a fallback tier read. Safe before registration.
func ObservePricingFallback() {
	if PricingFallbacks != nil {
		PricingFallbacks.Inc()
	}
}

// ObserveRateLimited records a rejected booking submission. Safe before registration.
func ObserveRateLimited() {
	if RateLimited != nil {
		RateLimited.Inc()
	}
}

// ObserveBooking records a stored booking and its visitor categories.
func ObserveBooking(pricingSource string, categories []string) {
	if BookingsCreated != nil {
		BookingsCreated.WithLabelValues(pricingSource).Inc()
	}
	if BookingVisitors != nil {
		for _, c := range categories {
			BookingVisitors.WithLabelValues(c).Inc()
		}
	}
}

func mustRegisterCollector(reg prometheus.Registerer, collector prometheus.Collector, reuse func(prometheus.Collector)) {
	if err := reg.Register(collector); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if reuse != nil {
				reuse(are.ExistingCollector)
			}
			return
		}
		panic(fmt.Errorf("register domain metric: %w", err))
	}
}
