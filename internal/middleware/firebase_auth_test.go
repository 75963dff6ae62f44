package middleware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		token  string
		ok     bool
	}{
		{name: "valid", header: "Bearer abc123", token: "abc123", ok: true},
		{name: "case insensitive scheme", header: "bearer abc123", token: "abc123", ok: true},
		{name: "missing header", header: "", ok: false},
		{name: "no token", header: "Bearer ", ok: false},
		{name: "wrong scheme", header: "Basic abc123", ok: false},
		{name: "token only", header: "abc123", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, ok := bearerToken(tt.header)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.token, token)
		})
	}
}
