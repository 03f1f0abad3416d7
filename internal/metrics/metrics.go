// Package metrics exports sculpting engine counters to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Faultbox/sculptor/internal/logger"
	"github.com/Faultbox/sculptor/internal/sculpt/spatial"
)

const stageLabel = "stage"

var (
	identifyQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sculptor_identify_queries_total",
		Help: "Ray casts against the spatial index, by the cascade stage that answered.",
	}, []string{stageLabel})

	identifyTriTests = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sculptor_identify_tri_tests",
		Help:    "Ray-triangle tests per ray cast.",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})

	patchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sculptor_patch_triangles",
		Help:    "Triangles painted per frame.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})

	queueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sculptor_queue_depth",
		Help: "Work left queued at the end of a frame.",
	}, []string{"queue"})

	frameSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sculptor_frame_seconds",
		Help:    "Time spent on brush work per frame.",
		Buckets: prometheus.ExponentialBuckets(0.0005, 2, 10),
	})

	meshInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "sculptor_mesh_elements",
		Help: "Size of the loaded mesh.",
	}, []string{"element"})
)

// ObserveQuery records one spatial index query. It has the signature of
// spatial.Index.OnIdentify.
func ObserveQuery(q spatial.Query) {
	identifyQueries.With(prometheus.Labels{stageLabel: q.Stage.String()}).Inc()
	identifyTriTests.Observe(float64(q.Tris))
}

// ObserveFrame records a frame's brush work.
func ObserveFrame(painted int, took time.Duration) {
	if painted > 0 {
		patchSize.Observe(float64(painted))
	}
	frameSeconds.Observe(took.Seconds())
}

// SetQueues records the stroke patch, stroke path and normal queue depths.
func SetQueues(patch, segments, normals int) {
	queueDepth.WithLabelValues("patch").Set(float64(patch))
	queueDepth.WithLabelValues("segments").Set(float64(segments))
	queueDepth.WithLabelValues("normals").Set(float64(normals))
}

// SetMesh records the loaded mesh size.
func SetMesh(verts, tris, bins int) {
	meshInfo.WithLabelValues("verts").Set(float64(verts))
	meshInfo.WithLabelValues("tris").Set(float64(tris))
	meshInfo.WithLabelValues("bins").Set(float64(bins))
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	log := logger.Named("metrics")
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("metrics shutdown", zap.Error(err))
		}
	}()

	log.Info("serving metrics", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
