package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	cfgpkg "github.com/reedlab/reed-tpse/internal/config"
	appmetrics "github.com/reedlab/reed-tpse/internal/metrics"
)

func testServer(connected bool) *Server {
	cfg := cfgpkg.HTTPConfig{Addr: ":0", ReadTimeout: time.Second, WriteTimeout: time.Second}
	reg := appmetrics.NewRegistry()
	handler := appmetrics.Handler(reg)
	return New(cfg, "/metrics", handler, func() Status {
		return Status{
			Port:      "/dev/ttyACM0",
			Product:   "XR100",
			Connected: connected,
		}
	})
}

func TestHealthzReadyzMetrics(t *testing.T) {
	srv := testServer(true)

	// healthz
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	srv.srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("/healthz code=%d", rr.Code)
	}

	// readyz ok
	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/readyz", nil)
	srv.srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("/readyz code=%d", rr.Code)
	}

	// metrics
	rr = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	srv.srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics code=%d", rr.Code)
	}
}

func TestReadyzNotReady(t *testing.T) {
	srv := testServer(false)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	srv.srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("/readyz code=%d, expected 503", rr.Code)
	}
}

func TestStatus(t *testing.T) {
	srv := testServer(true)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	srv.srv.Handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("/status code=%d", rr.Code)
	}

	var st Status
	if err := json.Unmarshal(rr.Body.Bytes(), &st); err != nil {
		t.Fatalf("/status 非JSON: %v", err)
	}
	if st.Port != "/dev/ttyACM0" || st.Product != "XR100" || !st.Connected {
		t.Fatalf("/status 内容异常: %+v", st)
	}
}
