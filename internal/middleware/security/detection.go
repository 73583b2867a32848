package security

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
)

// DetectionMetrics tracks security detection events
type DetectionMetrics struct {
	SuspiciousRequests int64
}

// Detector resolves client addresses behind trusted proxies and flags
// requests probing for files or injection.
type Detector struct {
	suspicious     atomic.Int64
	trustedProxies []*net.IPNet
}

var suspiciousPatterns = []string{
	"../", "..\\", ".env", ".git", ".ssh", "wp-admin", "phpmyadmin",
	"etc/passwd", "cmd.exe", "<script", "union select",
}

// NewDetector creates a new security detector
func NewDetector() *Detector {
	return &Detector{
		trustedProxies: []*net.IPNet{
			parseCIDR("127.0.0.0/8"),
			parseCIDR("10.0.0.0/8"),
			parseCIDR("172.16.0.0/12"),
			parseCIDR("192.168.0.0/16"),
			parseCIDR("::1/128"),
		},
	}
}

func parseCIDR(cidr string) *net.IPNet {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(fmt.Sprintf("failed to parse trusted proxy CIDR %s: %v", cidr, err))
	}
	return network
}

// DetectSuspiciousRequest reports whether the path or query looks like a probe.
func (d *Detector) DetectSuspiciousRequest(r *http.Request) bool {
	path := strings.ToLower(r.URL.Path)
	query := r.URL.RawQuery
	if decoded, err := url.QueryUnescape(query); err == nil {
		query = decoded
	}
	query = strings.ToLower(query)

	suspicious := len(r.URL.String()) > 2048
	for _, pattern := range suspiciousPatterns {
		if strings.Contains(path, pattern) || strings.Contains(query, pattern) {
			suspicious = true
			break
		}
	}

	if suspicious {
		d.suspicious.Add(1)
	}
	return suspicious
}

// Middleware logs suspicious requests; it never blocks them.
func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if d.DetectSuspiciousRequest(r) {
			slog.WarnContext(r.Context(), "Suspicious request",
				"client_ip", d.ExtractClientIP(r),
				"method", r.Method,
				"path", r.URL.Path)
		}
		next.ServeHTTP(w, r)
	})
}

// ExtractClientIP extracts the real client IP, validating forwarded headers
func (d *Detector) ExtractClientIP(r *http.Request) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}

	parsedDirectIP := net.ParseIP(directIP)
	if parsedDirectIP == nil {
		return directIP
	}

	if d.isTrustedProxy(parsedDirectIP) {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			clientIP := strings.TrimSpace(strings.Split(xff, ",")[0])
			if net.ParseIP(clientIP) != nil {
				return clientIP
			}
		}
		if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
			if net.ParseIP(xri) != nil {
				return xri
			}
		}
	}

	return directIP
}

func (d *Detector) isTrustedProxy(ip net.IP) bool {
	for _, network := range d.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// GetMetrics returns current security metrics
func (d *Detector) GetMetrics() DetectionMetrics {
	return DetectionMetrics{SuspiciousRequests: d.suspicious.Load()}
}

// AddTrustedProxy adds a trusted proxy network
func (d *Detector) AddTrustedProxy(cidr string) error {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return fmt.Errorf("invalid CIDR %s: %w", cidr, err)
	}
	d.trustedProxies = append(d.trustedProxies, network)
	return nil
}
