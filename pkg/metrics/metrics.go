package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OTPRequests counts issued one-time passcodes.
	OTPRequests = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "phonegate_otp_requests_total",
			Help: "Total number of one-time passcodes issued",
		},
	)

	// AuthAttempts records OTP verification attempts by result
	// (success|not_found|already_used|error).
	AuthAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "phonegate_auth_attempts_total",
			Help: "Total number of OTP verification attempts",
		},
		[]string{"result"},
	)

	// InviteRedemptions counts invite code redemption attempts by result
	// (success|already_redeemed|self_redemption|not_found|error).
	InviteRedemptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "phonegate_invite_redemptions_total",
			Help: "Total number of invite code redemption attempts",
		},
		[]string{"result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "phonegate_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
