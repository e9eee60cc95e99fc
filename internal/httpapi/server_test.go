package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamed0406/subprober/internal/scheduler"
	"github.com/hamed0406/subprober/internal/sink"
)

type fakeScan struct{ p scheduler.Progress }

func (f fakeScan) Progress() scheduler.Progress { return f.p }

type fakeResults struct {
	recent  []sink.Record
	written uint64
}

func (f fakeResults) Recent() []sink.Record { return f.recent }
func (f fakeResults) Written() uint64       { return f.written }

func newTestServer() *Server {
	return NewServer(zap.NewNop(),
		fakeScan{p: scheduler.Progress{
			Total:    1000,
			Done:     250,
			InFlight: 16,
			Found:    3,
			Errored:  1,
			Interval: 450 * time.Millisecond,
		}},
		fakeResults{
			recent: []sink.Record{
				{Target: "www.example.test", Value: "127.0.0.1"},
				{Target: "mail.example.test", Value: "127.0.0.2"},
			},
			written: 2,
		})
}

func TestHealthz(t *testing.T) {
	ts := httptest.NewServer(newTestServer().Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ok" {
		t.Fatalf("body = %q", body)
	}
}

func TestProgressEndpoint(t *testing.T) {
	ts := httptest.NewServer(newTestServer().Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/progress")
	if err != nil {
		t.Fatalf("GET /api/progress: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type = %q", ct)
	}

	var p scheduler.Progress
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Total != 1000 || p.Done != 250 || p.InFlight != 16 || p.Found != 3 || p.Errored != 1 {
		t.Fatalf("progress = %+v", p)
	}
	if p.Interval != 450*time.Millisecond {
		t.Fatalf("interval = %v", p.Interval)
	}
}

func TestResultsEndpoint(t *testing.T) {
	ts := httptest.NewServer(newTestServer().Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/results")
	if err != nil {
		t.Fatalf("GET /api/results: %v", err)
	}
	defer resp.Body.Close()

	var out struct {
		Written uint64        `json:"written"`
		Recent  []sink.Record `json:"recent"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Written != 2 || len(out.Recent) != 2 {
		t.Fatalf("results = %+v", out)
	}
	if out.Recent[0].Target != "www.example.test" || out.Recent[0].Value != "127.0.0.1" {
		t.Fatalf("recent[0] = %+v", out.Recent[0])
	}
}

func TestCORSHeaders(t *testing.T) {
	ts := httptest.NewServer(newTestServer().Router())
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/progress", nil)
	req.Header.Set("Origin", "http://dashboard.local")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET with origin: %v", err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow-origin = %q", got)
	}
}
