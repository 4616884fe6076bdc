package observability_test

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"hotel_reviews/internal/adapters/observability"
	"hotel_reviews/internal/domain"
)

func scrape(t *testing.T) string {
	t.Helper()
	reg := observability.InitRegistry()
	mh := observability.MetricsHandler(reg)
	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	mh.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("metrics status: %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	return string(body)
}

func TestMetricsRegistryAndHandler(t *testing.T) {
	// record one sample so counters are non-zero
	observability.ObserveHTTP("/test", "GET", 200, 12*time.Millisecond)

	out := scrape(t)
	if !strings.Contains(out, "hotelreviews_http_requests_total") {
		t.Fatalf("expected hotelreviews_http_requests_total in output")
	}
}

func TestObserveStore_ResultLabels(t *testing.T) {
	observability.ObserveStore("TopReviews", nil, time.Millisecond)
	observability.ObserveStore("TopReviews", fmt.Errorf("wrap: %w", domain.ErrDataIntegrity), time.Millisecond)
	observability.ObserveStore("ListHotels", io.ErrUnexpectedEOF, time.Millisecond)

	out := scrape(t)
	for _, want := range []string{
		`hotelreviews_store_operations_total{op="TopReviews",result="ok"}`,
		`hotelreviews_store_operations_total{op="TopReviews",result="integrity"}`,
		`hotelreviews_store_operations_total{op="ListHotels",result="error"}`,
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in output", want)
		}
	}
}

func TestServe_ExposesAppRegistry(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	reg := observability.InitRegistry()
	observability.ObserveStore("GetHotel", nil, time.Millisecond)
	observability.Serve(addr, reg)

	var body string
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := http.Get("http://" + addr + "/metrics")
		if err == nil {
			b, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			body = string(b)
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	for _, want := range []string{"hotelreviews_store_operations_total", "go_goroutines"} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %s from metrics server, got %q", want, body)
		}
	}
}
