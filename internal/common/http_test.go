package common_test

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-masala/internal/common"
)

func TestClientIP(t *testing.T) {
	cases := []struct {
		name       string
		forwarded  string
		realIP     string
		remoteAddr string
		want       string
	}{
		{name: "first forwarded hop", forwarded: "203.0.113.7, 10.0.0.1", want: "203.0.113.7"},
		{name: "garbage forwarded hop skipped", forwarded: "not-an-ip, 203.0.113.9", want: "203.0.113.9"},
		{name: "real ip header", realIP: "198.51.100.4", want: "198.51.100.4"},
		{name: "remote addr fallback", remoteAddr: "192.0.2.1:5123", want: "192.0.2.1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/v1/products", nil)
			if tc.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tc.forwarded)
			}
			if tc.realIP != "" {
				r.Header.Set("X-Real-IP", tc.realIP)
			}
			if tc.remoteAddr != "" {
				r.RemoteAddr = tc.remoteAddr
			}
			require.Equal(t, tc.want, common.ClientIP(r))
		})
	}
}

func TestNewPagination(t *testing.T) {
	p := common.NewPagination(2, 20, 41)
	require.Equal(t, 2, p.Page)
	require.Equal(t, 20, p.PerPage)
	require.Equal(t, 41, p.TotalItems)
	require.Equal(t, 3, p.TotalPages)

	empty := common.NewPagination(1, 20, 0)
	require.Equal(t, 0, empty.TotalPages)
}
