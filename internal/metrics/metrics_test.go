package metrics

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spacefn/internal/engine"
	"spacefn/internal/input"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMetrics_Counters(t *testing.T) {
	m := New(quietLogger())

	m.EventRead(input.Key(input.KeySpace, input.Press))
	m.EventRead(input.Key(input.KeySpace, input.Release))
	m.EventRead(input.Event{Type: input.TypeSyn, Code: input.SynReport})
	m.EventRead(input.Event{Type: input.TypeMsc, Code: 4, Value: 57})
	m.EventWritten(input.Key(input.KeySpace, input.Press))
	m.Tap()
	m.LayerActivated(engine.CauseRelease)
	m.LayerActivated(engine.CauseTimeout)
	m.LayerActivated(engine.CauseTimeout)
	m.BufferOverflow()
	m.StateChanged(int(engine.StateLayerActive))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.eventsRead.WithLabelValues(ClassKey)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsRead.WithLabelValues(ClassSyn)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsRead.WithLabelValues(ClassOther)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsWritten))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.taps))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.layerActivations.WithLabelValues(engine.CauseTimeout)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.bufferOverflows))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.state))

	s, err := m.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, Snapshot{
		EventsRead:      4,
		EventsWritten:   1,
		Taps:            1,
		LayerRelease:    1,
		LayerTimeout:    2,
		BufferOverflows: 1,
		State:           engine.StateLayerActive,
	}, s)
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.EventRead(input.Key(input.KeySpace, input.Press))
		m.EventWritten(input.Key(input.KeySpace, input.Press))
		m.Tap()
		m.LayerActivated(engine.CauseRelease)
		m.BufferOverflow()
		m.StateChanged(1)
	})

	s, err := m.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, Snapshot{}, s)
}

func TestMetrics_ObservesEngine(t *testing.T) {
	m := New(quietLogger())
	in := &sliceReader{events: []input.Event{
		input.Key(input.KeySpace, input.Press),
		input.Key(input.KeySpace, input.Release),
	}}
	out := &discardWriter{}

	e := engine.New(in, out, engine.Options{Observer: m, Logger: quietLogger()})
	err := e.Run(context.Background())
	require.ErrorIs(t, err, io.EOF)

	s, err := m.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, 2.0, s.EventsRead)
	assert.Equal(t, 2.0, s.EventsWritten)
	assert.Equal(t, 1.0, s.Taps)
	assert.Equal(t, engine.StateIdle, s.State)
}

func TestMetrics_Serve(t *testing.T) {
	m := New(quietLogger())
	m.Tap()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	addr, err := m.Serve(ctx, "127.0.0.1:0")
	require.NoError(t, err)

	resp, err := http.Get("http://" + addr.String() + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "spacefn_taps_total 1")
	assert.Contains(t, string(body), `spacefn_layer_activations_total{cause="timeout"} 0`)
}

func TestMetrics_Liveness(t *testing.T) {
	m := New(quietLogger())
	m.StateChanged(int(engine.StateDeciding))

	rec := httptest.NewRecorder()
	m.LivenessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "alive", body["status"])
	assert.Equal(t, "deciding", body["state"])
}

func TestMetrics_ServeBadAddress(t *testing.T) {
	m := New(quietLogger())

	_, err := m.Serve(context.Background(), "256.0.0.1:bad")
	assert.Error(t, err)
}

func TestMetrics_Report(t *testing.T) {
	var buf syncBuffer
	m := New(slog.New(slog.NewTextHandler(&buf, nil)))
	m.Tap()
	m.LayerActivated(engine.CauseRelease)

	m.report()

	out := buf.String()
	assert.Contains(t, out, "msg=stats")
	assert.Contains(t, out, "taps=1")
	assert.Contains(t, out, "layer_release=1")
	assert.Contains(t, out, "state=idle")
}

func TestMetrics_StartReporter(t *testing.T) {
	var buf syncBuffer
	m := New(slog.New(slog.NewTextHandler(&buf, nil)))

	stop, err := m.StartReporter(20 * time.Millisecond)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		return strings.Contains(buf.String(), "msg=stats")
	}, 2*time.Second, 10*time.Millisecond)
	assert.NoError(t, stop())
}

func TestMetrics_StartReporterDisabled(t *testing.T) {
	m := New(quietLogger())

	stop, err := m.StartReporter(0)
	require.NoError(t, err)
	assert.NoError(t, stop())
}

type sliceReader struct {
	events []input.Event
}

func (r *sliceReader) ReadEvent(context.Context, time.Time) (input.Event, error) {
	if len(r.events) == 0 {
		return input.Event{}, io.EOF
	}
	ev := r.events[0]
	r.events = r.events[1:]
	return ev, nil
}

type discardWriter struct{}

func (discardWriter) WriteEvent(input.Event) error { return nil }
