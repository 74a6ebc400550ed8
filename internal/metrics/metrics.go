package metrics

import (
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Operation label values.
const (
	OpDownload = "download"
	OpUpload   = "upload"
	OpStat     = "stat"
	OpList     = "list"
	OpBucket   = "bucket"
)

var (
	Transfers = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "imagedata_s3",
		Name:      "transfers_total",
		Help:      "Completed object-store calls by operation.",
	}, []string{"op"})
	TransferBytes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "imagedata_s3",
		Name:      "transfer_bytes_total",
		Help:      "Bytes moved between the object store and local staging.",
	}, []string{"op"})
	Errors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "imagedata_s3",
		Name:      "errors_total",
		Help:      "Failed object-store calls by operation.",
	}, []string{"op"})
	StagingDirs = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "imagedata_s3",
		Name:      "staging_dirs_active",
		Help:      "Local staging directories not yet removed.",
	})
)

// Init registers collectors; call once from main.
func Init() {
	prometheus.MustRegister(Transfers, TransferBytes, Errors, StagingDirs)
}

// Serve starts a /metrics server on the given addr (e.g., ":9090"). Non-blocking when run in goroutine.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}

// AddrFromEnv returns listen address from METRICS_ADDR, or "" when metrics are off.
func AddrFromEnv() string {
	return os.Getenv("METRICS_ADDR")
}
