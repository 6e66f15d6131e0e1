package middleware

import (
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// IPWhitelist restricts access to the listed IPs and CIDR blocks. An empty
// list allows everyone. Entries that parse as neither are skipped; config
// validation rejects them before the server starts.
func IPWhitelist(allowedIPs []string, logger *zap.Logger) gin.HandlerFunc {
	var networks []*net.IPNet
	var ips []net.IP

	for _, entry := range allowedIPs {
		if _, network, err := net.ParseCIDR(entry); err == nil {
			networks = append(networks, network)
			continue
		}
		if ip := net.ParseIP(entry); ip != nil {
			ips = append(ips, ip)
		}
	}

	allowed := func(clientIP net.IP) bool {
		for _, ip := range ips {
			if ip.Equal(clientIP) {
				return true
			}
		}
		for _, network := range networks {
			if network.Contains(clientIP) {
				return true
			}
		}
		return false
	}

	return func(c *gin.Context) {
		if len(networks) == 0 && len(ips) == 0 {
			c.Next()
			return
		}

		clientIP := net.ParseIP(c.ClientIP())
		if clientIP == nil || !allowed(clientIP) {
			logger.Warn("request from address not in allowed_ips", zap.String("client_ip", c.ClientIP()))
			c.AbortWithStatus(http.StatusForbidden)
			return
		}

		c.Next()
	}
}
