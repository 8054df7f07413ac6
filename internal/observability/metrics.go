package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inkwell_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// LikesToggled counts like toggles by target kind and resulting state.
	LikesToggled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_likes_toggled_total",
		Help: "Total number of like toggles",
	}, []string{"target", "state"})

	// CommentsWritten counts comment creations and deletions.
	CommentsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_comments_written_total",
		Help: "Total number of comment writes by operation",
	}, []string{"operation"})

	// SuggestionVotes counts suggestion votes by type.
	SuggestionVotes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_suggestion_votes_total",
		Help: "Total number of suggestion votes by type",
	}, []string{"type"})

	// ImageUploads counts image uploads to the image host by outcome.
	ImageUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inkwell_image_uploads_total",
		Help: "Total number of image uploads by outcome",
	}, []string{"outcome"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

// LikeState returns the label used for LikesToggled.
func LikeState(liked bool) string {
	if liked {
		return "liked"
	}
	return "unliked"
}
