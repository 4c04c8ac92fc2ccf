package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newWeatherServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/geocode", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("name") {
		case "London":
			_, _ = w.Write([]byte(`{"results":[{"name":"London","country":"United Kingdom","latitude":51.5085,"longitude":-0.1257}]}`))
		default:
			_, _ = w.Write([]byte(`{}`))
		}
	})
	mux.HandleFunc("/forecast", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("latitude") != "51.5085" {
			t.Errorf("latitude = %s", r.URL.Query().Get("latitude"))
		}
		_, _ = w.Write([]byte(`{"current":{"temperature_2m":12.5,"wind_speed_10m":9,"weather_code":61},"current_units":{"temperature_2m":"°C","wind_speed_10m":"km/h"}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_Current(t *testing.T) {
	srv := newWeatherServer(t)
	client := NewClient(Config{GeocodeURL: srv.URL + "/geocode", ForecastURL: srv.URL + "/forecast"})

	report, err := client.Current(context.Background(), " London ")
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if report.Temperature != 12.5 || report.Code != 61 {
		t.Errorf("report = %+v", report)
	}

	want := "London, United Kingdom: rain, 12.5°C, wind 9 km/h"
	if got := report.Summary(); got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}
}

func TestClient_CurrentErrors(t *testing.T) {
	srv := newWeatherServer(t)
	client := NewClient(Config{GeocodeURL: srv.URL + "/geocode", ForecastURL: srv.URL + "/forecast"})

	if _, err := client.Current(context.Background(), "Atlantis"); err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not found, got %v", err)
	}
	if _, err := client.Current(context.Background(), "  "); err == nil {
		t.Error("expected error for empty location")
	}

	broken := NewClient(Config{GeocodeURL: srv.URL + "/missing", ForecastURL: srv.URL + "/forecast"})
	if _, err := broken.Current(context.Background(), "London"); err == nil || !strings.Contains(err.Error(), "404") {
		t.Errorf("expected status error, got %v", err)
	}
}

func TestDescribe(t *testing.T) {
	tests := map[int]string{0: "clear sky", 2: "partly cloudy", 45: "fog", 63: "rain", 73: "snow", 95: "thunderstorm", 30: "unknown conditions"}
	for code, want := range tests {
		if got := Describe(code); got != want {
			t.Errorf("Describe(%d) = %q, want %q", code, got, want)
		}
	}
}
