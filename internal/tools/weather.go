package tools

import (
	"context"

	"github.com/ashutoshrp06/switchboard/internal/capability"
	"github.com/ashutoshrp06/switchboard/internal/weather"
)

// Forecaster looks up current conditions by place name.
type Forecaster interface {
	Current(ctx context.Context, location string) (weather.Report, error)
}

// WeatherTool reports the current weather for a location.
type WeatherTool struct {
	forecaster Forecaster
}

func NewWeatherTool(f Forecaster) *WeatherTool { return &WeatherTool{forecaster: f} }

func (w *WeatherTool) Name() string { return "get_weather" }

func (w *WeatherTool) Description() string {
	return "Get the current weather (conditions, temperature, wind) for a city or place name."
}

func (w *WeatherTool) Parameters() capability.Schema {
	return capability.Schema{
		{Name: "location", Type: capability.TypeString, Description: "City or place name, e.g. London", Required: true},
	}
}

func (w *WeatherTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	report, err := w.forecaster.Current(ctx, capability.String(args, "location"))
	if err != nil {
		return "", err
	}
	return report.Summary(), nil
}
