package dto

import (
	"errors"
	"reflect"
	"testing"
)

func TestStreamCatalog_Resolve_Golden(t *testing.T) {
	t.Parallel()

	catalog := DefaultStreamCatalog()

	tests := []struct {
		name             string
		req              StreamRequest
		wantPath         string
		wantClientScoped bool
		wantErr          error
	}{
		{
			name:     "plain stream",
			req:      StreamRequest{Type: "alerts"},
			wantPath: "/api/stream/alerts",
		},
		{
			name:     "sensor type naming a registered stream shares its path",
			req:      StreamRequest{Type: "sensor", SensorType: "gps"},
			wantPath: "/api/stream/gps",
		},
		{
			name:     "other sensor types use the sensors route",
			req:      StreamRequest{Type: "sensor", SensorType: "temperature"},
			wantPath: "/api/stream/sensors/temperature",
		},
		{
			name:     "command id is path escaped",
			req:      StreamRequest{Type: "command", CommandID: "a b/c"},
			wantPath: "/api/stream/commands/a%20b%2Fc",
		},
		{
			name:             "client stream is client scoped",
			req:              StreamRequest{Type: "client", ClientID: "truck-7"},
			wantPath:         "/api/stream/clients/truck-7",
			wantClientScoped: true,
		},
		{
			name:    "missing command id",
			req:     StreamRequest{Type: "command"},
			wantErr: ErrMissingQualifier,
		},
		{
			name:    "blank sensor type",
			req:     StreamRequest{Type: "sensor", SensorType: "  "},
			wantErr: ErrMissingQualifier,
		},
		{
			name:    "unknown type",
			req:     StreamRequest{Type: "weather"},
			wantErr: ErrUnknownStreamType,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := catalog.Resolve(tt.req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err=%v want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve err: %v", err)
			}
			if got.Path != tt.wantPath {
				t.Fatalf("path=%q want %q", got.Path, tt.wantPath)
			}
			if got.Descriptor.ClientScoped != tt.wantClientScoped {
				t.Fatalf("client scoped=%v want %v", got.Descriptor.ClientScoped, tt.wantClientScoped)
			}
		})
	}
}

func TestStreamCatalog_Merge_Golden(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		in        []StreamDescriptor
		wantErr   bool
		wantTypes []string
	}{
		{
			name:      "adds and overrides",
			in:        []StreamDescriptor{{Name: "gps", Path: "/api/v2/stream/gps"}, {Name: "fuel", Path: "/api/stream/fuel"}},
			wantTypes: []string{"fuel", "gps"},
		},
		{
			name:    "relative path rejected",
			in:      []StreamDescriptor{{Name: "fuel", Path: "api/stream/fuel"}},
			wantErr: true,
		},
		{
			name:    "qualified path needs placeholder",
			in:      []StreamDescriptor{{Name: "fuel", Path: "/api/stream/fuel", Qualifier: QualifierClientID}},
			wantErr: true,
		},
		{
			name:    "unknown qualifier",
			in:      []StreamDescriptor{{Name: "fuel", Path: "/api/stream/{id}", Qualifier: "vin"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c, err := NewStreamCatalog(StreamDescriptor{Name: "gps", Path: "/api/stream/gps"})
			if err != nil {
				t.Fatalf("NewStreamCatalog: %v", err)
			}
			err = c.Merge(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err=%v wantErr=%v", err, tt.wantErr)
			}
			if tt.wantErr {
				if !reflect.DeepEqual(c.Types(), []string{"gps"}) {
					t.Fatalf("failed merge must not apply, types=%v", c.Types())
				}
				return
			}
			if !reflect.DeepEqual(c.Types(), tt.wantTypes) {
				t.Fatalf("types=%v want %v", c.Types(), tt.wantTypes)
			}
			if d, _ := c.Lookup("gps"); d.Path != "/api/v2/stream/gps" {
				t.Fatalf("gps path=%q not overridden", d.Path)
			}
		})
	}
}
