package protocol

import "testing"

func TestParseType(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    string
		wantErr bool
	}{
		{"valid frame", `{"type":"touch","x":100,"y":200}`, "touch", false},
		{"type only", `{"type":"ping"}`, "ping", false},
		{"missing type", `{"x":100}`, "", true},
		{"empty type", `{"type":""}`, "", true},
		{"not json", `not json at all`, "", true},
		{"truncated", `{"type":"tou`, "", true},
		{"empty frame", ``, "", true},
		{"wrong type kind", `{"type":42}`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseType([]byte(tt.data))
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseType() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseType() = %q, want %q", got, tt.want)
			}
		})
	}
}
