package utils

import "testing"

func TestParseFromSize(t *testing.T) {
	tests := []struct {
		name     string
		from     string
		size     string
		wantFrom int
		wantSize int
		wantErr  bool
	}{
		{"defaults", "", "", 0, 10, false},
		{"explicit", "20", "50", 20, 50, false},
		{"negative from", "-1", "10", 0, 0, true},
		{"zero size", "0", "0", 0, 0, true},
		{"garbage", "abc", "10", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, size, err := ParseFromSize(tt.from, tt.size)

			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && (from != tt.wantFrom || size != tt.wantSize) {
				t.Fatalf("got (%d,%d), want (%d,%d)", from, size, tt.wantFrom, tt.wantSize)
			}
		})
	}
}
