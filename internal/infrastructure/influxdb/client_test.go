package influxdb_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/webstone-core/internal/infrastructure/config"
	"github.com/nerrad567/webstone-core/internal/infrastructure/influxdb"
)

// fakeInflux answers /ping and records line protocol posted to /api/v2/write.
type fakeInflux struct {
	*httptest.Server

	mu        sync.Mutex
	lines     []string
	writes    chan struct{}
	failWrite bool
}

func newFakeInflux(t *testing.T) *fakeInflux {
	t.Helper()
	f := &fakeInflux{writes: make(chan struct{}, 16)}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ping":
			w.WriteHeader(http.StatusNoContent)
		case "/api/v2/write":
			body, _ := io.ReadAll(r.Body)
			f.mu.Lock()
			f.lines = append(f.lines, strings.Split(strings.TrimSpace(string(body)), "\n")...)
			fail := f.failWrite
			f.mu.Unlock()
			if fail {
				http.Error(w, `{"code":"invalid","message":"bucket not found"}`, http.StatusBadRequest)
			} else {
				w.WriteHeader(http.StatusNoContent)
			}
			f.writes <- struct{}{}
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeInflux) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lines...)
}

func (f *fakeInflux) config() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           f.URL,
		Token:         "test-token",
		Org:           "webstone",
		Bucket:        "telemetry",
		BatchSize:     100,
		FlushInterval: 60,
	}
}

func connect(t *testing.T, f *fakeInflux) *influxdb.Client {
	t.Helper()
	client, err := influxdb.Connect(f.config())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { client.Close() }) //nolint:errcheck // Test cleanup
	return client
}

func TestConnect(t *testing.T) {
	client := connect(t, newFakeInflux(t))

	if !client.IsConnected() {
		t.Error("IsConnected() = false after Connect()")
	}
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

func TestConnect_Disabled(t *testing.T) {
	_, err := influxdb.Connect(config.InfluxDBConfig{Enabled: false})
	if !errors.Is(err, influxdb.ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
}

func TestConnect_Unreachable(t *testing.T) {
	f := newFakeInflux(t)
	cfg := f.config()
	f.Close()

	_, err := influxdb.Connect(cfg)
	if !errors.Is(err, influxdb.ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestConnect_DefaultsForNonPositiveBatching(t *testing.T) {
	f := newFakeInflux(t)
	cfg := f.config()
	cfg.BatchSize = -1
	cfg.FlushInterval = 0

	client, err := influxdb.Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	client.Close()
}

func TestRecordBlockState(t *testing.T) {
	f := newFakeInflux(t)
	client := connect(t, f)

	registryID := uuid.MustParse("11111111-1111-4111-8111-111111111111")
	blockID := uuid.MustParse("22222222-2222-4222-8222-222222222222")

	client.RecordBlockState(registryID, blockID, true, 7)
	client.WriteBlockState(registryID.String(), blockID.String(), false, 0, time.Unix(1700000000, 0))
	client.Flush()

	select {
	case <-f.writes:
	case <-time.After(5 * time.Second):
		t.Fatal("no write reached the server")
	}

	lines := f.recorded()
	if len(lines) != 2 {
		t.Fatalf("lines = %q, want 2", lines)
	}
	wantPrefix := "block_state,block_id=" + blockID.String() + ",registry_id=" + registryID.String() + " "
	for _, line := range lines {
		if !strings.HasPrefix(line, wantPrefix) {
			t.Errorf("line %q does not start with %q", line, wantPrefix)
		}
	}
	if !strings.Contains(lines[0], "power=7i,powered=1i") {
		t.Errorf("first line fields = %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], "power=0i,powered=0i 1700000000000000000") {
		t.Errorf("second line = %q", lines[1])
	}
}

func TestWriteErrorsReachCallback(t *testing.T) {
	f := newFakeInflux(t)
	f.failWrite = true
	client := connect(t, f)

	gotErr := make(chan error, 1)
	client.SetOnError(func(err error) {
		select {
		case gotErr <- err:
		default:
		}
	})

	client.RecordBlockState(uuid.New(), uuid.New(), true, 15)
	client.Flush()

	select {
	case err := <-gotErr:
		if err == nil {
			t.Error("callback received nil error")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("write error not delivered")
	}
}

func TestClose(t *testing.T) {
	f := newFakeInflux(t)
	client, err := influxdb.Connect(f.config())
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if client.IsConnected() {
		t.Error("IsConnected() = true after Close()")
	}
	if err := client.HealthCheck(context.Background()); !errors.Is(err, influxdb.ErrNotConnected) {
		t.Errorf("HealthCheck() after Close error = %v", err)
	}

	// Writes and flushes after close are dropped.
	client.RecordBlockState(uuid.New(), uuid.New(), true, 1)
	client.Flush()
	if err := client.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if len(f.recorded()) != 0 {
		t.Errorf("points written after Close: %q", f.recorded())
	}
}

func TestClose_Nil(t *testing.T) {
	var client *influxdb.Client
	if err := client.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v", err)
	}
}
