// Package metrics exposes btmgrd's Prometheus instrumentation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// -------------------------------------------------------------------------
// Prometheus Metric Constants
// -------------------------------------------------------------------------

const (
	namespace = "btmgrd"
	subsystem = "bt"
)

// Label names.
const (
	labelAdapterAddress = "adapter_address"
	labelProfile        = "profile"
	labelOutcome        = "outcome"
	labelRequest        = "request"
	labelDirection      = "direction"
	labelCategory       = "category"
	labelMethod         = "method"
)

// -------------------------------------------------------------------------
// Collector — Prometheus Bluetooth Metrics
// -------------------------------------------------------------------------

// Collector holds all btmgrd Prometheus metrics.
//
//   - Adapters/Devices gauges track current inventory size.
//   - Pairing counters track attempts and their outcome.
//   - Profile connect/disconnect counters track session churn per profile.
//   - AVRCP request counters track remote-control command volume.
//   - OPP counters track object push transfer volume and size.
//   - RPC counters and a duration histogram cover every dispatched call,
//     regardless of category, mirroring interceptor-level instrumentation.
type Collector struct {
	// Adapters tracks the number of adapters currently known to the daemon.
	Adapters prometheus.Gauge

	// Devices tracks the number of devices currently in the inventory,
	// labeled by owning adapter.
	Devices *prometheus.GaugeVec

	// PairingAttempts counts pairing attempts per adapter.
	PairingAttempts *prometheus.CounterVec

	// PairingOutcomes counts completed pairing attempts by outcome
	// ("success", "rejected", "timeout", "cancelled").
	PairingOutcomes *prometheus.CounterVec

	// ProfileConnects counts successful profile connection establishments,
	// labeled by profile name.
	ProfileConnects *prometheus.CounterVec

	// ProfileDisconnects counts profile disconnections, labeled by profile
	// name.
	ProfileDisconnects *prometheus.CounterVec

	// AVRCPRequests counts AVRCP remote-control requests, labeled by
	// request kind (e.g. "play", "pause", "volumeUp").
	AVRCPRequests *prometheus.CounterVec

	// OPPTransfers counts completed OPP transfers by direction
	// ("push", "pull") and outcome.
	OPPTransfers *prometheus.CounterVec

	// OPPBytesTransferred sums bytes moved by OPP transfers, labeled by
	// direction.
	OPPBytesTransferred *prometheus.CounterVec

	// RPCCalls counts dispatched RPC calls by category, method, and
	// outcome.
	RPCCalls *prometheus.CounterVec

	// RPCDuration observes dispatch latency by category and method.
	RPCDuration *prometheus.HistogramVec
}

// NewCollector creates a Collector with all metrics registered against the
// provided prometheus.Registerer. If reg is nil, prometheus.DefaultRegisterer
// is used.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := newMetrics()

	reg.MustRegister(
		c.Adapters,
		c.Devices,
		c.PairingAttempts,
		c.PairingOutcomes,
		c.ProfileConnects,
		c.ProfileDisconnects,
		c.AVRCPRequests,
		c.OPPTransfers,
		c.OPPBytesTransferred,
		c.RPCCalls,
		c.RPCDuration,
	)

	return c
}

// newMetrics creates all Prometheus metric vectors without registering them.
func newMetrics() *Collector {
	return &Collector{
		Adapters: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "adapters",
			Help:      "Number of Bluetooth adapters currently known to the daemon.",
		}),

		Devices: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "devices",
			Help:      "Number of devices currently in the inventory.",
		}, []string{labelAdapterAddress}),

		PairingAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "pairing_attempts_total",
			Help:      "Total pairing attempts initiated.",
		}, []string{labelAdapterAddress}),

		PairingOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "pairing_outcomes_total",
			Help:      "Total completed pairing attempts by outcome.",
		}, []string{labelAdapterAddress, labelOutcome}),

		ProfileConnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "profile_connects_total",
			Help:      "Total profile connection establishments.",
		}, []string{labelProfile}),

		ProfileDisconnects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "profile_disconnects_total",
			Help:      "Total profile disconnections.",
		}, []string{labelProfile}),

		AVRCPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "avrcp_requests_total",
			Help:      "Total AVRCP remote-control requests.",
		}, []string{labelRequest}),

		OPPTransfers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "opp_transfers_total",
			Help:      "Total completed OPP transfers by direction and outcome.",
		}, []string{labelDirection, labelOutcome}),

		OPPBytesTransferred: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "opp_bytes_transferred_total",
			Help:      "Total bytes moved by OPP transfers.",
		}, []string{labelDirection}),

		RPCCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "rpc_calls_total",
			Help:      "Total dispatched RPC calls by category, method, and outcome.",
		}, []string{labelCategory, labelMethod, labelOutcome}),

		RPCDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "rpc_duration_seconds",
			Help:      "RPC dispatch latency by category and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{labelCategory, labelMethod}),
	}
}

// -------------------------------------------------------------------------
// Inventory
// -------------------------------------------------------------------------

// SetAdapters sets the current adapter count.
func (c *Collector) SetAdapters(n int) {
	c.Adapters.Set(float64(n))
}

// SetDevices sets the current device count for an adapter.
func (c *Collector) SetDevices(adapterAddress string, n int) {
	c.Devices.WithLabelValues(adapterAddress).Set(float64(n))
}

// -------------------------------------------------------------------------
// Pairing
// -------------------------------------------------------------------------

// IncPairingAttempts increments the pairing attempt counter for an adapter.
func (c *Collector) IncPairingAttempts(adapterAddress string) {
	c.PairingAttempts.WithLabelValues(adapterAddress).Inc()
}

// RecordPairingOutcome increments the outcome counter for a completed
// pairing attempt. outcome is one of "success", "rejected", "timeout",
// "cancelled".
func (c *Collector) RecordPairingOutcome(adapterAddress, outcome string) {
	c.PairingOutcomes.WithLabelValues(adapterAddress, outcome).Inc()
}

// -------------------------------------------------------------------------
// Profiles
// -------------------------------------------------------------------------

// IncProfileConnect increments the connect counter for a profile.
func (c *Collector) IncProfileConnect(profile string) {
	c.ProfileConnects.WithLabelValues(profile).Inc()
}

// IncProfileDisconnect increments the disconnect counter for a profile.
func (c *Collector) IncProfileDisconnect(profile string) {
	c.ProfileDisconnects.WithLabelValues(profile).Inc()
}

// IncAVRCPRequest increments the request counter for an AVRCP command.
func (c *Collector) IncAVRCPRequest(request string) {
	c.AVRCPRequests.WithLabelValues(request).Inc()
}

// -------------------------------------------------------------------------
// OPP
// -------------------------------------------------------------------------

// RecordOPPTransfer records a completed OPP transfer's direction, outcome,
// and byte count. direction is "push" or "pull".
func (c *Collector) RecordOPPTransfer(direction, outcome string, bytes int64) {
	c.OPPTransfers.WithLabelValues(direction, outcome).Inc()
	if bytes > 0 {
		c.OPPBytesTransferred.WithLabelValues(direction).Add(float64(bytes))
	}
}

// -------------------------------------------------------------------------
// RPC Dispatch
// -------------------------------------------------------------------------

// RecordRPCCall records one dispatched RPC call's outcome and latency.
// outcome is "ok" or "error".
func (c *Collector) RecordRPCCall(category, method, outcome string, duration time.Duration) {
	c.RPCCalls.WithLabelValues(category, method, outcome).Inc()
	c.RPCDuration.WithLabelValues(category, method).Observe(duration.Seconds())
}
