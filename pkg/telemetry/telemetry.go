package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"chatforum/pkg/state"
)

// Minimal, low-overhead request telemetry for local usage.
// - By default only slow requests are logged (see slowThreshold).
// - Per-request spans are only recorded when a request is sampled.

type ctxKeyType struct{}

var (
	writerOnce    sync.Once
	writerCh      chan []byte
	requestCtr    uint64
	spanCtr       uint64
	sampleRate    = 0.001
	slowThreshold = 200 * time.Millisecond
)

// Span is a simple span relative to request start (milliseconds).
type Span struct {
	ID       string         `json:"id"`
	ParentID string         `json:"parent_id,omitempty"`
	Op       string         `json:"op"`
	StartMs  int64          `json:"start_ms"`
	Duration int64          `json:"duration_ms"`
	Data     map[string]any `json:"data,omitempty"`
}

// Trace holds the per-request spans and metadata.
type Trace struct {
	RequestID string `json:"request_id"`
	Op        string `json:"op"`
	StartMs   int64  `json:"start_ms"`
	Duration  int64  `json:"duration_ms"`
	Status    int    `json:"status"`
	Spans     []Span `json:"spans,omitempty"`

	startTime time.Time
	mu        sync.Mutex
	spanStack []string
}

// initWriter lazily starts a background writer that appends lines to the
// telemetry state dir.
func initWriter() {
	writerCh = make(chan []byte, 1024)
	go func() {
		dir := state.PathsVar.Telemetry
		if dir == "" {
			dir = filepath.Join("state", "telemetry")
		}
		_ = os.MkdirAll(dir, 0o755)
		f, err := os.OpenFile(filepath.Join(dir, "telemetry.jsonl"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return
		}
		defer f.Close()
		for b := range writerCh {
			_, _ = f.Write(append(b, '\n'))
		}
	}()
}

// Middleware wraps the provided handler and records request timing and
// sampled spans.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		reqID := genRequestID()
		sampled := shouldSample(r)

		var tr *Trace
		if sampled {
			tr = &Trace{
				RequestID: reqID,
				Op:        r.URL.Path,
				startTime: start,
				StartMs:   start.UnixNano() / 1e6,
			}
			rootID := genSpanID()
			tr.Spans = append(tr.Spans, Span{ID: rootID, Op: tr.Op})
			tr.spanStack = append(tr.spanStack, rootID)
			r = r.WithContext(context.WithValue(r.Context(), ctxKeyType{}, tr))
		}

		srw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(srw, r)

		dur := time.Since(start)
		if tr != nil {
			tr.mu.Lock()
			tr.Status = srw.status
			tr.Duration = dur.Milliseconds()
			b := renderTrace(tr)
			tr.mu.Unlock()
			enqueue(b)
			return
		}

		// not sampled: only slow requests get a lightweight line
		if dur > slowThreshold {
			line := fmt.Sprintf("SLOW %s op=%s duration_ms=%d status=%d", reqID, r.URL.Path, dur.Milliseconds(), srw.status)
			enqueue([]byte(line))
		}
	})
}

func enqueue(b []byte) {
	writerOnce.Do(initWriter)
	select {
	case writerCh <- b:
	default:
		// drop rather than block the request path
	}
}

// StartSpan returns an end function. When the request is not sampled the
// returned function is a no-op.
func StartSpan(ctx context.Context, name string) func() {
	tr, ok := ctx.Value(ctxKeyType{}).(*Trace)
	if !ok {
		return func() {}
	}
	startRel := time.Since(tr.startTime).Milliseconds()
	id := genSpanID()

	tr.mu.Lock()
	parent := ""
	if len(tr.spanStack) > 0 {
		parent = tr.spanStack[len(tr.spanStack)-1]
	}
	tr.Spans = append(tr.Spans, Span{ID: id, ParentID: parent, Op: name, StartMs: startRel})
	tr.spanStack = append(tr.spanStack, id)
	idx := len(tr.Spans) - 1
	tr.mu.Unlock()

	return func() {
		endRel := time.Since(tr.startTime).Milliseconds()
		tr.mu.Lock()
		if idx < len(tr.Spans) {
			tr.Spans[idx].Duration = endRel - tr.Spans[idx].StartMs
		}
		if len(tr.spanStack) > 0 {
			tr.spanStack = tr.spanStack[:len(tr.spanStack)-1]
		}
		tr.mu.Unlock()
	}
}

// SetSpanData attaches a key/value to the active span for the request.
func SetSpanData(ctx context.Context, key string, value any) {
	tr, ok := ctx.Value(ctxKeyType{}).(*Trace)
	if !ok {
		return
	}
	tr.mu.Lock()
	defer tr.mu.Unlock()
	if len(tr.spanStack) == 0 {
		return
	}
	top := tr.spanStack[len(tr.spanStack)-1]
	for i := len(tr.Spans) - 1; i >= 0; i-- {
		if tr.Spans[i].ID == top {
			if tr.Spans[i].Data == nil {
				tr.Spans[i].Data = make(map[string]any)
			}
			tr.Spans[i].Data[key] = value
			return
		}
	}
}

// SetRequestOp lets a handler override the top-level operation name.
func SetRequestOp(ctx context.Context, op string) {
	tr, ok := ctx.Value(ctxKeyType{}).(*Trace)
	if !ok {
		return
	}
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.Op = op
	if len(tr.Spans) > 0 {
		tr.Spans[0].Op = op
	}
}

// renderTrace renders a sampled trace as an indented text block. Digest
// builds get a compact single-line summary since they dominate traffic.
func renderTrace(t *Trace) []byte {
	for _, sp := range t.Spans {
		if strings.Contains(sp.Op, "build_digest") {
			return []byte(fmt.Sprintf("REQ %s op=build_digest duration_ms=%d status=%d", t.RequestID, t.Duration, t.Status))
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "REQUEST %s op=%s start_ms=%d duration_ms=%d status=%d\n", t.RequestID, t.Op, t.StartMs, t.Duration, t.Status)

	children := make(map[string][]Span)
	for _, sp := range t.Spans {
		children[sp.ParentID] = append(children[sp.ParentID], sp)
	}
	var printSpan func(id string, depth int)
	printSpan = func(id string, depth int) {
		list := children[id]
		sort.SliceStable(list, func(i, j int) bool { return list[i].StartMs < list[j].StartMs })
		for _, sp := range list {
			indent := strings.Repeat("  ", depth)
			dataStr := ""
			if len(sp.Data) > 0 {
				var parts []string
				for k, v := range sp.Data {
					parts = append(parts, fmt.Sprintf("%s=%v", k, v))
				}
				dataStr = " data=" + strings.Join(parts, ",")
			}
			fmt.Fprintf(&b, "%s- %s id=%s start_ms=%d duration_ms=%d%s\n", indent, sp.Op, sp.ID, sp.StartMs, sp.Duration, dataStr)
			printSpan(sp.ID, depth+1)
		}
	}
	printSpan("", 1)
	return []byte(b.String())
}

// Sampling decision. `X-Debug-Telemetry: 1` forces a full trace.
func shouldSample(r *http.Request) bool {
	if r.Header.Get("X-Debug-Telemetry") == "1" {
		return true
	}
	if sampleRate <= 0 {
		return false
	}
	denom := int64(1 / sampleRate)
	if denom <= 1 {
		return true
	}
	n := int64(atomic.AddUint64(&requestCtr, 1))
	return (n % denom) == 0
}

func genRequestID() string {
	n := atomic.AddUint64(&requestCtr, 1)
	return "r-" + time.Now().Format("20060102T150405") + "-" + strconv.FormatUint(n, 10)
}

func genSpanID() string {
	return "s-" + strconv.FormatUint(atomic.AddUint64(&spanCtr, 1), 10)
}

// SetSampleRate sets the approximate full-trace sampling rate (0..1).
func SetSampleRate(r float64) {
	if r < 0 {
		r = 0
	}
	if r > 1 {
		r = 1
	}
	sampleRate = r
}

// SetSlowThreshold sets the duration above which non-sampled requests
// get a lightweight log line.
func SetSlowThreshold(d time.Duration) {
	if d < 0 {
		d = 0
	}
	slowThreshold = d
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
