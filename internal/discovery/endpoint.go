package discovery

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/muurk/rtinspect/internal/urls"
)

// TXT record keys advertised by a realtime endpoint
const (
	// MetaTLS is "1" when the endpoint only accepts TLS
	MetaTLS = "tls"

	// MetaProjectRef carries the project ref of a local stack
	MetaProjectRef = "ref"

	// MetaVersion is the realtime server version
	MetaVersion = "version"
)

// Endpoint represents a realtime service discovered on the network
type Endpoint struct {
	// Instance is the mDNS service instance name (e.g., "realtime-dev")
	Instance string

	// Hostname is the mDNS hostname (e.g., "devbox.local.")
	Hostname string

	// IP is the preferred address (IPv4 when available)
	IP string

	// Port is the realtime port
	Port int

	// Metadata contains the TXT record data (e.g., "ref=abc", "tls=1")
	Metadata map[string]string

	// DiscoveredAt is when the endpoint was discovered
	DiscoveredAt time.Time
}

// String returns a human-readable representation of the endpoint
func (e *Endpoint) String() string {
	return fmt.Sprintf("Realtime %s (%s) at %s", e.Instance, e.Hostname, e.hostPort())
}

// ProjectURL returns the base URL of the endpoint
func (e *Endpoint) ProjectURL() string {
	scheme := "http"
	if e.TLS() {
		scheme = "https"
	}
	return scheme + "://" + e.hostPort()
}

// WebSocketURL returns the websocket URL authenticated with apiKey
func (e *Endpoint) WebSocketURL(apiKey string) (string, error) {
	return urls.RealtimeURL(e.ProjectURL(), apiKey)
}

// TLS reports whether the endpoint advertises TLS
func (e *Endpoint) TLS() bool {
	return e.GetMetadata(MetaTLS) == "1"
}

// ProjectRef returns the advertised project ref, if any
func (e *Endpoint) ProjectRef() string {
	return e.GetMetadata(MetaProjectRef)
}

// GetMetadata retrieves a metadata value by key, or returns empty string if not found
func (e *Endpoint) GetMetadata(key string) string {
	if e.Metadata == nil {
		return ""
	}
	return e.Metadata[key]
}

func (e *Endpoint) hostPort() string {
	return net.JoinHostPort(e.IP, strconv.Itoa(e.Port))
}
