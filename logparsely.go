// Package logparsely captures the stdout of shell commands, interprets each
// line as a (possibly nested) JSON record, and persists it into per-source
// SQLite tables whose columns grow as new fields are observed.
package logparsely

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	cfg "github.com/loykin/logparsely/internal/config"
	"github.com/loykin/logparsely/internal/flatten"
	"github.com/loykin/logparsely/internal/ingest"
	"github.com/loykin/logparsely/internal/lifecycle"
	"github.com/loykin/logparsely/internal/metrics"
	"github.com/loykin/logparsely/internal/storage"
	"github.com/loykin/logparsely/internal/widetable"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

// Conn is the shared, lock-guarded SQLite handle for one run.
type Conn = storage.Conn

// State carries the stop broadcast and the outstanding-sources counter.
type State = lifecycle.State

type Config = cfg.Config

// RawUnparsableColumn is the reserved fallback column present in every
// capture table.
const RawUnparsableColumn = widetable.RawUnparsableColumn

// NewState creates the lifecycle state shared by all sources of a run.
func NewState() *State { return lifecycle.New() }

// OpenStorage opens (creating if needed) the capture database at path.
func OpenStorage(path string) (*Conn, error) { return storage.Open(path) }

// DefaultStoragePath returns a fresh generated database path under the
// default logs directory.
func DefaultStoragePath() string { return storage.DefaultPath("") }

// PurgeGenerated removes generated capture databases under the default logs
// directory and returns how many files were deleted.
func PurgeGenerated() (int, error) { return storage.Purge("") }

// AddSource starts capturing one source command into its own table.
// It returns once the ingestion and monitor goroutines are scheduled.
func AddSource(command string, conn *Conn, state *State) error {
	return ingest.AddSource(command, conn, state)
}

// TableName reports the table identifier a source command maps to.
func TableName(command string) string { return widetable.TableName(command) }

// Flatten converts a decoded JSON object into the flat column-to-text map
// that gets persisted.
func Flatten(obj map[string]any) map[string]string { return flatten.Flatten(obj) }

func LoadConfig(path string) (*Config, error) { return cfg.Load(path) }

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }

// ServeMetrics starts an HTTP server on addr exposing /metrics using the default registry.
// It returns any immediate listen error; otherwise it runs the server in the caller goroutine.
func ServeMetrics(addr string) error {
	http.Handle("/metrics", metrics.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           nil,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv.ListenAndServe()
}
