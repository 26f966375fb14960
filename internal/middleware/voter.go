package middleware

import (
	"github.com/gofiber/fiber/v2"

	"commentboard/internal/voter"
)

// VoterIDLocal is the Fiber locals key holding the derived voter id.
const VoterIDLocal = "voterID"

// ClientIPLocal is the Fiber locals key holding the resolved client address.
const ClientIPLocal = "clientIP"

// VoterIdentity resolves the client address from proxy headers and stores it
// together with the salted voter id in locals.
func VoterIdentity(d *voter.Deriver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ip := voter.ClientIP(fiberHeaders{c}, c.IP())
		c.Locals(ClientIPLocal, ip)
		c.Locals(VoterIDLocal, d.ID(ip))
		return c.Next()
	}
}

type fiberHeaders struct {
	c *fiber.Ctx
}

func (h fiberHeaders) Get(key string) string {
	return h.c.Get(key)
}

// VoterID returns the voter id stored by VoterIdentity, or "".
func VoterID(c *fiber.Ctx) string {
	id, _ := c.Locals(VoterIDLocal).(string)
	return id
}

// ClientIP returns the client address stored by VoterIdentity, or "".
func ClientIP(c *fiber.Ctx) string {
	ip, _ := c.Locals(ClientIPLocal).(string)
	return ip
}
