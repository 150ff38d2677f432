package dto

import "testing"

func TestExtraHeaders_SetAndString_Golden(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		want    map[string]string
		wantErr bool
	}{
		{
			name: "single header",
			in:   "X-Fleet=1",
			want: map[string]string{"X-Fleet": "1"},
		},
		{
			name: "multiple headers canonicalised and trimmed",
			in:   "x-a=1, x-b = two",
			want: map[string]string{"X-A": "1", "X-B": "two"},
		},
		{
			name: "empty segments skipped",
			in:   "X-A=1,,",
			want: map[string]string{"X-A": "1"},
		},
		{
			name:    "missing separator errors",
			in:      "X-A",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			eh := make(ExtraHeaders)
			err := eh.Set(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Set err=%v wantErr=%v", err, tt.wantErr)
			}
			for k, v := range tt.want {
				if eh[k] != v {
					t.Fatalf("eh[%q]=%q want %q", k, eh[k], v)
				}
			}
			// String() should be valid JSON
			if s := eh.String(); len(s) == 0 || s[0] != '{' {
				t.Fatalf("String()=%q not json object", s)
			}
		})
	}
}
