package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"image-verify/internal"
	"image-verify/internal/logging"
	"image-verify/internal/model"
	"image-verify/internal/recorder"
)

func init() {
	gin.SetMode(gin.TestMode)
}

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

func whitePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func testConfig(t *testing.T, reference []byte) internal.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := internal.DefaultConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.ReferenceImagePath = filepath.Join(dir, "reference.png")
	cfg.VerificationsDB = filepath.Join(dir, "verifications.db")
	cfg.RecorderTimeout = time.Second
	cfg.ErrorsLogPath = filepath.Join(dir, "errors.log")
	require.NoError(t, os.WriteFile(cfg.ReferenceImagePath, reference, 0o644))
	return cfg
}

func upload(t *testing.T, h http.Handler, data []byte) int {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="a.png"`)
	hdr.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/verify", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w.Code
}

func TestBuildAndRunRecordsVerifications(t *testing.T) {
	ref := whitePNG(t)
	cfg := testConfig(t, ref)
	out := &syncBuffer{}
	log := logging.NewWriter(out, out)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc, err := Build(ctx, cfg, log)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	assert.Equal(t, http.StatusOK, upload(t, svc.Handler(), ref))
	assert.Equal(t, http.StatusOK, upload(t, svc.Handler(), ref))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("service did not stop")
	}

	snap := svc.Stats().Snapshot()
	assert.Equal(t, int64(2), snap.Total)
	assert.Equal(t, int64(2), snap.Matches)
	assert.Equal(t, 100.0, snap.AvgSimilarity)

	logs := out.String()
	assert.Contains(t, logs, "recorder: sqlite enabled")
	assert.Contains(t, logs, "report: process verifications=2 matches=2")
	assert.Contains(t, logs, "report: stored verifications=2 matches=2")
}

func TestBuildRejectsBadSchedule(t *testing.T) {
	cfg := testConfig(t, whitePNG(t))
	cfg.ReportSchedule = "every now and then"

	_, err := Build(context.Background(), cfg, logging.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "report schedule")
}

func TestBuildWithMissingReferenceStillServes(t *testing.T) {
	cfg := testConfig(t, whitePNG(t))
	cfg.ReferenceImagePath = filepath.Join(t.TempDir(), "absent.png")
	cfg.VerificationsDB = ""
	out := &syncBuffer{}

	svc, err := Build(context.Background(), cfg, logging.NewWriter(out, out))
	require.NoError(t, err)
	assert.Contains(t, out.String(), "reference image not available at startup")

	w := httptest.NewRecorder()
	svc.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestFormatSnapshot(t *testing.T) {
	since := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	got := formatSnapshot("stored", model.StatsSnapshot{Total: 4, Matches: 3, Mismatches: 1, AvgSimilarity: 87.5, Since: since})
	assert.Equal(t, "stored verifications=4 matches=3 mismatches=1 avg=87.50% since=2024-05-01T12:00:00Z", got)

	assert.Equal(t, fmt.Sprintf("process verifications=0 matches=0 mismatches=0 avg=%.2f%% since=-", 0.0),
		formatSnapshot("process", model.StatsSnapshot{}))
}

type fakeAlerter struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeAlerter) Send(_ context.Context, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeAlerter) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func TestReportIncludesRecentErrors(t *testing.T) {
	cfg := testConfig(t, whitePNG(t))
	cfg.VerificationsDB = ""
	require.NoError(t, os.WriteFile(cfg.ErrorsLogPath, []byte("ERROR first\nERROR second\n"), 0o644))

	svc, err := Build(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	fa := &fakeAlerter{}
	svc.alerts = fa

	svc.report()

	msgs := fa.messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "process verifications=0")
	assert.Contains(t, msgs[0], "recent errors:\nERROR first\nERROR second")
}

func TestCheckMemoryThresholds(t *testing.T) {
	out := &syncBuffer{}
	fa := &fakeAlerter{}
	s := &Service{log: logging.NewWriter(out, out), alerts: fa}
	var lastWarn time.Time

	assert.False(t, s.checkMemory(memSample{heap: 10 << 20, goroutines: 20}, &lastWarn))
	assert.Empty(t, fa.messages())

	assert.False(t, s.checkMemory(memSample{heap: 700 << 20, goroutines: 20}, &lastWarn))
	assert.False(t, lastWarn.IsZero())
	assert.Len(t, fa.messages(), 1)

	// warnings are rate limited
	assert.False(t, s.checkMemory(memSample{heap: 700 << 20, goroutines: 20}, &lastWarn))
	assert.Len(t, fa.messages(), 1)

	assert.True(t, s.checkMemory(memSample{heap: 10 << 20, goroutines: goroutineCritThreshold}, &lastWarn))
	assert.True(t, s.checkMemory(memSample{heap: memCritThresholdBytes, goroutines: 20}, &lastWarn))
	assert.Len(t, fa.messages(), 3)
	assert.Contains(t, out.String(), "CRITICAL heap usage")
}

type stalledSink struct{}

func (stalledSink) Name() string { return "stalled" }

func (stalledSink) Record(ctx context.Context, _ model.VerificationRecord) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestStalledSinkDoesNotTripMemoryWatcher(t *testing.T) {
	cfg := internal.DefaultConfig()
	s := &Service{log: logging.Discard()}
	d := recorder.NewDispatcher(stalledSink{}, logging.Discard(), 10*time.Millisecond, cfg.RecorderWorkers, cfg.RecorderQueue)

	for i := 0; i < goroutineCritThreshold; i++ {
		d.Notify(model.VerificationRecord{ID: fmt.Sprintf("r%d", i)})
	}

	var lastWarn time.Time
	sample := readMemSample()
	assert.Less(t, sample.goroutines, goroutineWarnThreshold)
	assert.False(t, s.checkMemory(sample, &lastWarn))
	assert.Positive(t, d.Dropped())

	d.Close()
}
