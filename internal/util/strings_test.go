package util

import "testing"

func TestSafeTruncate(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		maxLen int
		want   string
	}{
		{
			name:   "string shorter than maxLen",
			input:  "short",
			maxLen: 10,
			want:   "short",
		},
		{
			name:   "string equal to maxLen",
			input:  "exactly10c",
			maxLen: 10,
			want:   "exactly10c",
		},
		{
			name:   "string longer than maxLen",
			input:  "this-is-a-very-long-document-id",
			maxLen: 8,
			want:   "this-is-",
		},
		{
			name:   "empty string",
			input:  "",
			maxLen: 5,
			want:   "",
		},
		{
			name:   "maxLen is zero",
			input:  "test",
			maxLen: 0,
			want:   "",
		},
		{
			name:   "maxLen is negative (edge case)",
			input:  "test",
			maxLen: -1,
			want:   "",
		},
		{
			name:   "unicode characters",
			input:  "hello世界test",
			maxLen: 8,
			want:   "hello世",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SafeTruncate(tt.input, tt.maxLen)
			if got != tt.want {
				t.Errorf("SafeTruncate(%q, %d) = %q, want %q", tt.input, tt.maxLen, got, tt.want)
			}
		})
	}
}

func TestClampLimit(t *testing.T) {
	tests := []struct {
		name     string
		limit    int
		maxLimit int
		want     int
	}{
		{name: "within bounds", limit: 25, maxLimit: 100, want: 25},
		{name: "equal to max", limit: 100, maxLimit: 100, want: 100},
		{name: "above max", limit: 500, maxLimit: 100, want: 100},
		{name: "zero means max", limit: 0, maxLimit: 100, want: 100},
		{name: "negative means max", limit: -3, maxLimit: 100, want: 100},
		{name: "no max configured", limit: 500, maxLimit: 0, want: 500},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampLimit(tt.limit, tt.maxLimit); got != tt.want {
				t.Errorf("ClampLimit(%d, %d) = %d, want %d", tt.limit, tt.maxLimit, got, tt.want)
			}
		})
	}
}
