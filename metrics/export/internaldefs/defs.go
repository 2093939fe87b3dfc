package internaldefs

import (
	"strconv"
	"strings"

	"github.com/MrEthical07/authgate"
)

// Namespace prefixes every exported series.
const Namespace = "authgate"

// BucketCount is the number of latency buckets including +Inf.
const BucketCount = len(authgate.LatencyBucketBounds) + 1

// CounterDef names one exported counter.
type CounterDef struct {
	ID   authgate.MetricID
	Name string
	Help string
}

// HistogramDef names one exported histogram.
type HistogramDef struct {
	ID   authgate.MetricID
	Name string
	Help string
}

var counterHelp = map[authgate.MetricID]string{
	authgate.MetricLoginSuccess:          "Successful password logins.",
	authgate.MetricLoginFailure:          "Failed password logins.",
	authgate.MetricLoginRateLimited:      "Login attempts rejected by the login throttle.",
	authgate.MetricGuestLogin:            "Guest sessions issued.",
	authgate.MetricRefreshSuccess:        "Successful refresh operations.",
	authgate.MetricRefreshFailure:        "Refresh tokens that failed verification.",
	authgate.MetricRefreshRevoked:        "Refresh tokens rejected as superseded or logged out.",
	authgate.MetricLogout:                "Logouts of registered users.",
	authgate.MetricRegisterSuccess:       "Registered users.",
	authgate.MetricRegisterDuplicate:     "Registrations rejected for a taken username.",
	authgate.MetricPasswordChangeSuccess: "Successful password changes.",
	authgate.MetricPasswordChangeFailure: "Failed password changes.",
	authgate.MetricProviderLoginSuccess:  "Successful federated logins.",
	authgate.MetricProviderLoginFailure:  "Rejected federated credentials.",
	authgate.MetricVerifySuccess:         "Access tokens verified.",
	authgate.MetricVerifyFailure:         "Access tokens rejected.",
	authgate.MetricRateLimitHit:          "API requests rejected by the rate limiter.",
}

// CounterDefs lists every counter in MetricID order.
var CounterDefs = buildCounterDefs()

// HistogramDefs lists every histogram.
var HistogramDefs = []HistogramDef{
	{ID: authgate.MetricVerifyLatency, Name: Namespace + "_verify_latency_seconds", Help: "Access token verification latency."},
}

// HistogramBounds are the upper bounds in seconds as Prometheus "le" labels.
var HistogramBounds = buildBounds(func(s string) string { return s }, "+Inf")

// HistogramBoundSuffix are the bounds as metric-name-safe suffixes.
var HistogramBoundSuffix = buildBounds(func(s string) string { return strings.ReplaceAll(s, ".", "_") }, "inf")

// UpperBounds are the finite bucket bounds in seconds.
func UpperBounds() []float64 {
	out := make([]float64, len(authgate.LatencyBucketBounds))
	for i, d := range authgate.LatencyBucketBounds {
		out[i] = d.Seconds()
	}
	return out
}

func buildCounterDefs() []CounterDef {
	defs := make([]CounterDef, 0, len(counterHelp))
	for id := authgate.MetricID(0); id.String() != "unknown"; id++ {
		help, ok := counterHelp[id]
		if !ok {
			continue
		}
		defs = append(defs, CounterDef{ID: id, Name: Namespace + "_" + id.String() + "_total", Help: help})
	}
	return defs
}

func buildBounds(format func(string) string, last string) []string {
	out := make([]string, 0, BucketCount)
	for _, d := range authgate.LatencyBucketBounds {
		out = append(out, format(strconv.FormatFloat(d.Seconds(), 'f', -1, 64)))
	}
	return append(out, last)
}

// NormalizeBuckets copies raw into a fixed-size array, zero-filling.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts to running totals.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
