package obs

import (
	"runtime"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// BuildInfo describes the running binary and the backend it was started with.
type BuildInfo struct {
	Version string
	Commit  string
	// Store is the configured persistence backend, "postgres" or "memory".
	Store string
}

var (
	buildInfoOnce sync.Once

	buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "build_info",
			Help: "Build and runtime information of the sopline API; always 1.",
		},
		[]string{"version", "commit", "store", "go_version"},
	)
)

// InitBuildInfo registers build_info once and publishes info. Calling it
// again replaces the published labels.
func InitBuildInfo(info BuildInfo) {
	buildInfoOnce.Do(func() {
		prometheus.MustRegister(buildInfo)
	})
	buildInfo.Reset()
	buildInfo.WithLabelValues(info.Version, info.Commit, info.Store, runtime.Version()).Set(1)
}
