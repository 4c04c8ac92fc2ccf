// Package weather looks up current conditions for a place name using the
// Open-Meteo geocoding and forecast APIs.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client handles communication with the weather service.
type Client struct {
	geocodeURL  string
	forecastURL string
	httpClient  *http.Client
}

// Config holds client configuration.
type Config struct {
	GeocodeURL  string
	ForecastURL string
	Timeout     time.Duration
}

// Report is the current weather at a resolved location.
type Report struct {
	Location    string
	Country     string
	Temperature float64
	TempUnit    string
	WindSpeed   float64
	WindUnit    string
	Code        int
}

// Summary renders the report as one line of text.
func (r Report) Summary() string {
	place := r.Location
	if r.Country != "" {
		place += ", " + r.Country
	}
	return fmt.Sprintf("%s: %s, %s%s, wind %s %s",
		place, Describe(r.Code),
		strconv.FormatFloat(r.Temperature, 'f', -1, 64), r.TempUnit,
		strconv.FormatFloat(r.WindSpeed, 'f', -1, 64), r.WindUnit)
}

// NewClient creates a new weather client.
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		geocodeURL:  cfg.GeocodeURL,
		forecastURL: cfg.ForecastURL,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
	}
}

type geocodeResponse struct {
	Results []struct {
		Name      string  `json:"name"`
		Country   string  `json:"country"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"results"`
}

type forecastResponse struct {
	Current struct {
		Temperature float64 `json:"temperature_2m"`
		WindSpeed   float64 `json:"wind_speed_10m"`
		WeatherCode int     `json:"weather_code"`
	} `json:"current"`
	CurrentUnits struct {
		Temperature string `json:"temperature_2m"`
		WindSpeed   string `json:"wind_speed_10m"`
	} `json:"current_units"`
}

// Current resolves location and returns its current conditions.
func (c *Client) Current(ctx context.Context, location string) (Report, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return Report{}, fmt.Errorf("location is empty")
	}

	var geo geocodeResponse
	q := url.Values{}
	q.Set("name", location)
	q.Set("count", "1")
	if err := c.getJSON(ctx, c.geocodeURL, q, &geo); err != nil {
		return Report{}, fmt.Errorf("geocode %q: %w", location, err)
	}
	if len(geo.Results) == 0 {
		return Report{}, fmt.Errorf("location %q not found", location)
	}
	place := geo.Results[0]

	var fc forecastResponse
	q = url.Values{}
	q.Set("latitude", strconv.FormatFloat(place.Latitude, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(place.Longitude, 'f', 4, 64))
	q.Set("current", "temperature_2m,wind_speed_10m,weather_code")
	if err := c.getJSON(ctx, c.forecastURL, q, &fc); err != nil {
		return Report{}, fmt.Errorf("forecast %q: %w", place.Name, err)
	}

	return Report{
		Location:    place.Name,
		Country:     place.Country,
		Temperature: fc.Current.Temperature,
		TempUnit:    fc.CurrentUnits.Temperature,
		WindSpeed:   fc.Current.WindSpeed,
		WindUnit:    fc.CurrentUnits.WindSpeed,
		Code:        fc.Current.WeatherCode,
	}, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("weather service returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Describe maps a WMO weather code to text.
func Describe(code int) string {
	switch {
	case code == 0:
		return "clear sky"
	case code <= 3:
		return "partly cloudy"
	case code == 45 || code == 48:
		return "fog"
	case code >= 51 && code <= 57:
		return "drizzle"
	case code >= 61 && code <= 67:
		return "rain"
	case code >= 71 && code <= 77:
		return "snow"
	case code >= 80 && code <= 82:
		return "rain showers"
	case code == 85 || code == 86:
		return "snow showers"
	case code >= 95:
		return "thunderstorm"
	}
	return "unknown conditions"
}
