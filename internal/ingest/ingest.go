// Package ingest supervises source processes: it spawns each source command,
// streams its stdout into a capture table, and tears the process down on the
// shared stop broadcast.
package ingest

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"

	"github.com/loykin/logparsely/internal/flatten"
	"github.com/loykin/logparsely/internal/lifecycle"
	"github.com/loykin/logparsely/internal/metrics"
	"github.com/loykin/logparsely/internal/storage"
	"github.com/loykin/logparsely/internal/widetable"
)

// ErrLaunch marks a source process that could not be spawned.
var ErrLaunch = errors.New("failed to launch source")

// AddSource spawns command via the platform shell and wires its stdout into a
// dedicated ingestion goroutine. A second monitor goroutine kills the process
// when the stop broadcast fires and is the only place that decrements the
// shared counter, on every exit path. AddSource itself returns as soon as
// both goroutines are scheduled; lifecycle is tracked via state only.
func AddSource(command string, conn *storage.Conn, state *lifecycle.State) error {
	cmd := shellCommand(command)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrLaunch, command, err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrLaunch, command, err)
	}

	table := widetable.TableName(command)
	state.Enter()
	metrics.SourceStarted()

	// closed by the ingestion goroutine once the stream is fully drained
	readDone := make(chan struct{})

	go runIngestion(stdout, table, conn, cmd, readDone)
	go runMonitor(cmd, table, state, readDone)

	slog.Info("source added", "command", command, "table", table, "pid", cmd.Process.Pid)
	return nil
}

// runIngestion opens the capture table and inserts one record per line until
// the stream ends. It never decrements the shared counter; on a store setup
// failure it kills the child so the monitor can reap and decrement.
func runIngestion(r io.Reader, table string, conn *storage.Conn, cmd *exec.Cmd, readDone chan struct{}) {
	defer close(readDone)
	ctx := context.Background()

	tbl, err := widetable.Open(ctx, table, conn)
	if err != nil {
		slog.Error("failed to open capture table, aborting source", "table", table, "error", err)
		kill(cmd)
		return
	}

	br := bufio.NewReader(r)
	for {
		line, readErr := br.ReadString('\n')
		trimmed := strings.TrimRight(line, "\r\n")
		// a bare trailing fragment at EOF is not a line; everything else is
		if trimmed != "" || readErr == nil {
			ingestLine(ctx, tbl, conn, table, trimmed)
		}
		if readErr != nil {
			if readErr != io.EOF {
				slog.Warn("error reading source output", "table", table, "error", readErr)
			}
			return
		}
	}
}

// ingestLine parses one line as a JSON object and inserts its flattened form.
// Unparsable lines and non-object values are routed to the fallback column
// verbatim; a failed insert is logged and the stream continues.
func ingestLine(ctx context.Context, tbl *widetable.Table, conn *storage.Conn, table, line string) {
	metrics.IncLine(table)
	var rec map[string]string
	if obj, err := flatten.ParseObject(line); err == nil {
		rec = flatten.Flatten(obj)
	} else {
		metrics.IncUnparsable(table)
		rec = map[string]string{widetable.RawUnparsableColumn: line}
	}
	if err := tbl.Insert(ctx, conn, rec); err != nil {
		slog.Error("failed to insert record", "table", table, "error", err)
	}
}

// runMonitor waits for either the stop broadcast or natural end of stream,
// kills the child when asked to stop, reaps it, and decrements the shared
// counter exactly once.
func runMonitor(cmd *exec.Cmd, table string, state *lifecycle.State, readDone <-chan struct{}) {
	defer func() {
		metrics.SourceDone()
		state.Leave()
	}()

	select {
	case <-state.StopChan():
		slog.Info("stop signal received, terminating source", "table", table)
		kill(cmd)
		// the kill surfaces as EOF on the pipe; wait for the reader to drain
		<-readDone
	case <-readDone:
	}

	if err := cmd.Wait(); err != nil {
		slog.Debug("source process exited", "table", table, "error", err)
	} else {
		slog.Debug("source process exited", "table", table)
	}
}
