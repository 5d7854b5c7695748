package service

import (
	"encoding/json"
	"log"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Tier and retry-outcome label values.
const (
	tierRemote        = "remote"
	tierLocalFallback = "local_fallback"

	retryPromoted = "promoted"
	retryFailed   = "failed"
	retryNoop     = "noop"
)

var (
	uploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wastemap_uploads_total",
		Help: "Completed upload attempts by resulting tier.",
	}, []string{"tier"})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wastemap_upload_retries_total",
		Help: "Retry reconciler invocations by outcome.",
	}, []string{"outcome"})

	downloadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wastemap_file_downloads_total",
		Help: "File download streams opened, by serving tier.",
	}, []string{"tier"})

	tierCleanupFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wastemap_tier_cleanup_failures_total",
		Help: "Best-effort file removals that failed, by tier.",
	}, []string{"tier"})
)

// logCleanupFailure emits a JSON log line for a swallowed file-cleanup error.
// These are expected during partial failures and never surface to the caller.
func logCleanupFailure(id int64, path string, err error) {
	entry := map[string]any{
		"ts":        time.Now().UTC().Format(time.RFC3339Nano),
		"level":     "warn",
		"msg":       "file_cleanup_failed",
		"record_id": id,
		"path":      path,
		"error":     err.Error(),
	}
	if b, merr := json.Marshal(entry); merr == nil {
		log.SetFlags(0)
		log.Println(string(b))
	}
}
