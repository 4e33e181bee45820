//go:build !windows

package logparsely

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestCaptureThroughPublicAPI(t *testing.T) {
	conn, err := OpenStorage(filepath.Join(t.TempDir(), "capture.db"))
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	state := NewState()
	command := `printf '{"service":{"name":"api"},"codes":[200,404]}\n'`
	if err := AddSource(command, conn, state); err != nil {
		t.Fatalf("add source: %v", err)
	}

	done := make(chan struct{})
	go func() {
		state.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatalf("capture did not finish")
	}

	db, release, err := conn.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()

	var name, code0, code1 string
	row := db.QueryRow(`SELECT "service.name","codes[0]","codes[1]" FROM "` + TableName(command) + `"`)
	if err := row.Scan(&name, &code0, &code1); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if name != "api" || code0 != "200" || code1 != "404" {
		t.Fatalf("unexpected row: %q %q %q", name, code0, code1)
	}
}

func TestDefaultStoragePathConvention(t *testing.T) {
	p := DefaultStoragePath()
	if !strings.HasSuffix(p, "-logparsely.db") {
		t.Fatalf("unexpected generated path %q", p)
	}
}
