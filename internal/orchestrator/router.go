package orchestrator

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/ashutoshrp06/switchboard/internal/engine"
	"github.com/ashutoshrp06/switchboard/pkg/models"
)

// Route is the parsed outcome of a classification.
type Route struct {
	Marker string
	Agent  *engine.Agent
	Text   string
}

// Direct reports whether the classification carried no known marker.
func (r Route) Direct() bool { return r.Agent == nil }

// Router implements classification-only routing: a classifier answers with a
// marker and the matching specialist runs on the raw user input.
type Router struct {
	classifier *engine.Agent
	routes     map[string]*engine.Agent
	pattern    *regexp.Regexp
}

// NewRouter builds a router over marker -> agent routes.
func NewRouter(classifier *engine.Agent, routes map[string]*engine.Agent) *Router {
	markers := make([]string, 0, len(routes))
	normalized := make(map[string]*engine.Agent, len(routes))
	for m, a := range routes {
		m = strings.ToUpper(m)
		normalized[m] = a
		markers = append(markers, regexp.QuoteMeta(m))
	}
	// Longest first so that a marker that prefixes another cannot shadow it.
	sort.Slice(markers, func(i, j int) bool {
		if len(markers[i]) != len(markers[j]) {
			return len(markers[i]) > len(markers[j])
		}
		return markers[i] < markers[j]
	})

	var pattern *regexp.Regexp
	if len(markers) > 0 {
		pattern = regexp.MustCompile(`(?i)\b(` + strings.Join(markers, "|") + `)\b`)
	}
	return &Router{classifier: classifier, routes: normalized, pattern: pattern}
}

// Classify maps classifier text to a Route. The earliest marker wins.
func (r *Router) Classify(text string) Route {
	route := Route{Text: text}
	if r.pattern == nil {
		return route
	}
	m := r.pattern.FindString(text)
	if m == "" {
		return route
	}
	route.Marker = strings.ToUpper(m)
	route.Agent = r.routes[route.Marker]
	return route
}

// Handle classifies input and either runs the routed agent on it or returns the
// classifier's text verbatim.
func (r *Router) Handle(ctx context.Context, input string) (string, *models.State, Route, error) {
	verdict, state, err := r.classifier.Ask(ctx, input)
	if err != nil {
		return "", state, Route{}, err
	}

	route := r.Classify(verdict)
	if route.Direct() {
		return verdict, state, route, nil
	}

	answer, routed, err := route.Agent.Ask(ctx, input)
	return answer, routed, route, err
}
