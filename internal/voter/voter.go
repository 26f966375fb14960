// Package voter derives the coarse, anonymous identifier used to make votes
// idempotent per network origin.
package voter

import (
	"encoding/hex"
	"net"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// LoopbackAddress is used when no usable origin address is available.
const LoopbackAddress = "127.0.0.1"

// Headers is the subset of request headers consulted for the client address.
type Headers interface {
	Get(key string) string
}

// ClientIP picks the client address from proxy headers in priority order:
// the first X-Forwarded-For entry, X-Real-IP, CF-Connecting-IP, then the
// socket peer address.
func ClientIP(h Headers, peer string) string {
	if forwarded := h.Get("X-Forwarded-For"); forwarded != "" {
		first := strings.TrimSpace(strings.Split(forwarded, ",")[0])
		if first != "" {
			return stripPort(first)
		}
	}
	if realIP := strings.TrimSpace(h.Get("X-Real-IP")); realIP != "" {
		return stripPort(realIP)
	}
	if cfIP := strings.TrimSpace(h.Get("CF-Connecting-IP")); cfIP != "" {
		return stripPort(cfIP)
	}
	if peer = strings.TrimSpace(peer); peer != "" {
		return stripPort(peer)
	}
	return LoopbackAddress
}

func stripPort(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

// IsLoopback reports whether ip refers to the local machine.
func IsLoopback(ip string) bool {
	if ip == "localhost" {
		return true
	}
	parsed := net.ParseIP(ip)
	return parsed != nil && parsed.IsLoopback()
}

// Deriver turns client addresses into salted voter ids.
type Deriver struct {
	salt []byte
}

// NewDeriver returns a Deriver keyed with salt. blake2b accepts keys up to 64
// bytes, so longer salts are folded through an unkeyed hash first.
func NewDeriver(salt string) *Deriver {
	key := []byte(salt)
	if len(key) > blake2b.Size {
		sum := blake2b.Sum512(key)
		key = sum[:]
	}
	return &Deriver{salt: key}
}

// ID returns the hex voter id for a client address.
func (d *Deriver) ID(clientIP string) string {
	h, err := blake2b.New256(d.salt)
	if err != nil {
		// Key length is bounded in NewDeriver.
		panic(err)
	}
	h.Write([]byte(clientIP))
	return hex.EncodeToString(h.Sum(nil))
}

// FromRequest derives the voter id for a request.
func (d *Deriver) FromRequest(h Headers, peer string) string {
	return d.ID(ClientIP(h, peer))
}
