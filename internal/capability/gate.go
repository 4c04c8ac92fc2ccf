package capability

import (
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"

	xerrors "github.com/ashutoshrp06/switchboard/pkg/errors"
)

// Destination is one allow-listed delivery target.
type Destination struct {
	Name     string `mapstructure:"name" yaml:"name"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
}

// AllowList is an immutable, ordered mapping of destination name to endpoint.
type AllowList struct {
	names     []string
	endpoints map[string]string
}

// NewAllowList builds an allow-list preserving the given order. Names are stored
// without a leading "#". Duplicate or empty names are rejected.
func NewAllowList(dests []Destination) (*AllowList, error) {
	al := &AllowList{endpoints: make(map[string]string, len(dests))}
	for _, d := range dests {
		name := normalizeDestination(d.Name)
		if name == "" {
			return nil, fmt.Errorf("destination name is required")
		}
		if _, dup := al.endpoints[name]; dup {
			return nil, fmt.Errorf("duplicate destination: %s", name)
		}
		al.names = append(al.names, name)
		al.endpoints[name] = d.Endpoint
	}
	return al, nil
}

// Names returns the permitted destinations in configured order.
func (a *AllowList) Names() []string {
	return append([]string(nil), a.names...)
}

// Endpoint returns the endpoint for a permitted destination.
func (a *AllowList) Endpoint(name string) (string, bool) {
	ep, ok := a.endpoints[normalizeDestination(name)]
	return ep, ok
}

// Check returns an Unauthorized error listing the permitted destinations when name is not allowed.
func (a *AllowList) Check(name string) error {
	if _, ok := a.Endpoint(name); ok {
		return nil
	}

	msg := fmt.Sprintf("destination %q is not permitted; allowed destinations: %s",
		name, strings.Join(a.names, ", "))
	if suggestion := a.suggest(name); suggestion != "" {
		msg += fmt.Sprintf(" (did you mean %q?)", suggestion)
	}
	return xerrors.New(xerrors.CodeUnauthorized, msg)
}

// Gate returns an Authorizer that checks the named argument against the allow-list.
func (a *AllowList) Gate(field string) Authorizer {
	return func(args map[string]any) error {
		return a.Check(String(args, field))
	}
}

func (a *AllowList) suggest(name string) string {
	name = normalizeDestination(name)
	if name == "" {
		return ""
	}
	matches := fuzzy.Find(name, a.names)
	if len(matches) == 0 {
		return ""
	}
	return a.names[matches[0].Index]
}

// normalizeDestination accepts "#team" as well as "team".
func normalizeDestination(name string) string {
	return strings.TrimPrefix(strings.TrimSpace(name), "#")
}
