package dto

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

type StreamQualifier string

const (
	QualifierNone       StreamQualifier = ""
	QualifierClientID   StreamQualifier = "client_id"
	QualifierCommandID  StreamQualifier = "command_id"
	QualifierSensorType StreamQualifier = "sensor_type"
)

// qualifierPlaceholder is substituted by the escaped qualifier value.
const qualifierPlaceholder = "{id}"

// StreamDescriptor maps a logical stream name onto an upstream SSE path.
type StreamDescriptor struct {
	Name      string          `json:"name" yaml:"name"`
	Path      string          `json:"path" yaml:"path"`
	Qualifier StreamQualifier `json:"qualifier,omitempty" yaml:"qualifier,omitempty"`
	// ClientScoped streams already target a single client, so no client_id
	// filter is appended to them.
	ClientScoped bool `json:"client_scoped,omitempty" yaml:"client_scoped,omitempty"`
}

func (d StreamDescriptor) validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return fmt.Errorf("stream descriptor without name")
	}
	if !strings.HasPrefix(d.Path, "/") {
		return fmt.Errorf("stream %q: path %q must be absolute", d.Name, d.Path)
	}
	switch d.Qualifier {
	case QualifierNone:
		return nil
	case QualifierClientID, QualifierCommandID, QualifierSensorType:
		if !strings.Contains(d.Path, qualifierPlaceholder) {
			return fmt.Errorf("stream %q: qualified path %q lacks %s", d.Name, d.Path, qualifierPlaceholder)
		}
		return nil
	default:
		return fmt.Errorf("stream %q: unknown qualifier %q", d.Name, d.Qualifier)
	}
}

// ResolvedStream is a descriptor plus the concrete upstream path.
type ResolvedStream struct {
	Descriptor StreamDescriptor
	Path       string
}

// StreamCatalog is the static stream descriptor table. It is assembled while
// hydrating and only read afterwards.
type StreamCatalog struct {
	descriptors map[string]StreamDescriptor
}

func NewStreamCatalog(descriptors ...StreamDescriptor) (*StreamCatalog, error) {
	c := &StreamCatalog{descriptors: make(map[string]StreamDescriptor, len(descriptors))}
	if err := c.Merge(descriptors); err != nil {
		return nil, err
	}
	return c, nil
}

func DefaultStreamCatalog() *StreamCatalog {
	c, _ := NewStreamCatalog(
		StreamDescriptor{Name: "gps", Path: "/api/stream/gps"},
		StreamDescriptor{Name: "alerts", Path: "/api/stream/alerts"},
		StreamDescriptor{Name: "readings", Path: "/api/stream/readings"},
		StreamDescriptor{Name: "dashboard", Path: "/api/stream/dashboard"},
		StreamDescriptor{Name: "clients", Path: "/api/stream/clients"},
		StreamDescriptor{Name: "commands", Path: "/api/stream/commands"},
		StreamDescriptor{Name: "client", Path: "/api/stream/clients/{id}", Qualifier: QualifierClientID, ClientScoped: true},
		StreamDescriptor{Name: "command", Path: "/api/stream/commands/{id}", Qualifier: QualifierCommandID},
		StreamDescriptor{Name: "sensor", Path: "/api/stream/sensors/{id}", Qualifier: QualifierSensorType},
	)
	return c
}

// Merge adds or replaces descriptors by name. Nothing is applied when any
// descriptor is invalid.
func (c *StreamCatalog) Merge(descriptors []StreamDescriptor) error {
	for _, d := range descriptors {
		if err := d.validate(); err != nil {
			return err
		}
	}
	for _, d := range descriptors {
		c.descriptors[d.Name] = d
	}
	return nil
}

// Types lists the registered stream names in sorted order.
func (c *StreamCatalog) Types() []string {
	out := make([]string, 0, len(c.descriptors))
	for name := range c.descriptors {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func (c *StreamCatalog) Lookup(name string) (StreamDescriptor, bool) {
	d, ok := c.descriptors[name]
	return d, ok
}

// Resolve maps a stream request onto its upstream path.
func (c *StreamCatalog) Resolve(req StreamRequest) (ResolvedStream, error) {
	d, ok := c.descriptors[req.Type]
	if !ok {
		return ResolvedStream{}, fmt.Errorf("%w: %q", ErrUnknownStreamType, req.Type)
	}

	var value string
	switch d.Qualifier {
	case QualifierNone:
		return ResolvedStream{Descriptor: d, Path: d.Path}, nil
	case QualifierClientID:
		value = req.ClientID
	case QualifierCommandID:
		value = req.CommandID
	case QualifierSensorType:
		value = req.SensorType
		// A sensor type that names a plain stream shares that stream's path.
		if direct, found := c.descriptors[value]; found && direct.Qualifier == QualifierNone {
			return ResolvedStream{Descriptor: d, Path: direct.Path}, nil
		}
	}

	value = strings.TrimSpace(value)
	if value == "" {
		return ResolvedStream{}, fmt.Errorf("%w: stream %q requires %s", ErrMissingQualifier, d.Name, d.Qualifier)
	}
	return ResolvedStream{
		Descriptor: d,
		Path:       strings.ReplaceAll(d.Path, qualifierPlaceholder, url.PathEscape(value)),
	}, nil
}
