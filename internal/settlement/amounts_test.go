package settlement

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAmountCents(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want int64
		ok   bool
	}{
		{name: "all digits are minor units", in: "4999", want: 4999, ok: true},
		{name: "decimal string is major units", in: "49.99", want: 4999, ok: true},
		{name: "whole decimal is major units", in: "50.00", want: 5000, ok: true},
		{name: "whitespace trimmed", in: " 4999 ", want: 4999, ok: true},
		{name: "empty absent", in: "", ok: false},
		{name: "garbage absent", in: "free", ok: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseAmountCents(tt.in)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
