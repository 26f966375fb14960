package voter

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		headers map[string]string
		peer    string
		want    string
	}{
		{"forwarded first entry", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}, "10.0.0.9", "203.0.113.7"},
		{"forwarded wins over real ip", map[string]string{"X-Forwarded-For": "203.0.113.7", "X-Real-IP": "198.51.100.2"}, "", "203.0.113.7"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.2"}, "10.0.0.9", "198.51.100.2"},
		{"cloudflare", map[string]string{"CF-Connecting-IP": "192.0.2.44"}, "10.0.0.9", "192.0.2.44"},
		{"peer with port", nil, "10.0.0.9:51234", "10.0.0.9"},
		{"ipv6 peer with port", nil, "[2001:db8::1]:443", "2001:db8::1"},
		{"nothing", nil, "", LoopbackAddress},
		{"blank forwarded falls through", map[string]string{"X-Forwarded-For": " , 10.0.0.1"}, "10.0.0.9", "10.0.0.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := http.Header{}
			for k, v := range tt.headers {
				h.Set(k, v)
			}
			assert.Equal(t, tt.want, ClientIP(h, tt.peer))
		})
	}
}

func TestDeriver_ID(t *testing.T) {
	t.Parallel()

	d := NewDeriver("salt-one")
	id := d.ID("203.0.113.7")

	assert.Len(t, id, 64)
	assert.Equal(t, id, d.ID("203.0.113.7"), "same address must map to same voter")
	assert.NotEqual(t, id, d.ID("203.0.113.8"))
	assert.NotEqual(t, id, NewDeriver("salt-two").ID("203.0.113.7"), "salt must change the id")

	long := NewDeriver(strings.Repeat("x", 200))
	assert.Len(t, long.ID("203.0.113.7"), 64)
}

func TestIsLoopback(t *testing.T) {
	t.Parallel()

	assert.True(t, IsLoopback("127.0.0.1"))
	assert.True(t, IsLoopback("::1"))
	assert.True(t, IsLoopback("localhost"))
	assert.False(t, IsLoopback("203.0.113.7"))
	assert.False(t, IsLoopback("not-an-ip"))
}
