package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTTLSeconds(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"15m", 900},
		{"7d", 604800},
		{"30s", 30},
		{"2h", 7200},
		{"3600", 3600},
		{"1d", 86400},
		{"0", 0},
		{"", 0},
		{"garbage", 0},
		{"m15", 0},
		{"15mm", 0},
		{"-15m", 0},
	}

	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, ParseTTLSeconds(tc.in))
		})
	}
}
