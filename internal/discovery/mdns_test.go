package discovery

import (
	"net"
	"testing"
	"time"

	"github.com/grandcat/zeroconf"
)

func TestParseServiceEntry(t *testing.T) {
	tests := []struct {
		name     string
		entry    *zeroconf.ServiceEntry
		wantNil  bool
		wantIP   string
		wantPort int
	}{
		{
			name: "IPv4 endpoint",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "realtime-dev"},
				HostName:      "devbox.local.",
				Port:          4000,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.4.16")},
				Text:          []string{"ref=abc", "tls=0"},
			},
			wantIP:   "192.168.4.16",
			wantPort: 4000,
		},
		{
			name: "no port specified (should default)",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "realtime-dev"},
				HostName:      "devbox.local.",
				AddrIPv4:      []net.IP{net.ParseIP("10.0.0.5")},
			},
			wantIP:   "10.0.0.5",
			wantPort: DefaultPort,
		},
		{
			name: "IPv6 only",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "realtime-v6"},
				HostName:      "devbox.local.",
				Port:          4000,
				AddrIPv6:      []net.IP{net.ParseIP("fe80::1")},
			},
			wantIP:   "fe80::1",
			wantPort: 4000,
		},
		{
			name: "both families (should prefer IPv4)",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "realtime-dual"},
				Port:          4000,
				AddrIPv4:      []net.IP{net.ParseIP("192.168.1.50")},
				AddrIPv6:      []net.IP{net.ParseIP("fe80::2")},
			},
			wantIP:   "192.168.1.50",
			wantPort: 4000,
		},
		{
			name: "no address",
			entry: &zeroconf.ServiceEntry{
				ServiceRecord: zeroconf.ServiceRecord{Instance: "realtime-dev"},
				Port:          4000,
			},
			wantNil: true,
		},
		{
			name: "no instance name",
			entry: &zeroconf.ServiceEntry{
				Port:     4000,
				AddrIPv4: []net.IP{net.ParseIP("192.168.1.1")},
			},
			wantNil: true,
		},
		{
			name:    "nil entry",
			entry:   nil,
			wantNil: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			endpoint := parseServiceEntry(tt.entry)

			if tt.wantNil {
				if endpoint != nil {
					t.Errorf("parseServiceEntry() = %v, want nil", endpoint)
				}
				return
			}

			if endpoint == nil {
				t.Fatal("parseServiceEntry() = nil, want endpoint")
			}
			if endpoint.IP != tt.wantIP {
				t.Errorf("endpoint.IP = %v, want %v", endpoint.IP, tt.wantIP)
			}
			if endpoint.Port != tt.wantPort {
				t.Errorf("endpoint.Port = %v, want %v", endpoint.Port, tt.wantPort)
			}
			if endpoint.Instance != tt.entry.Instance {
				t.Errorf("endpoint.Instance = %v, want %v", endpoint.Instance, tt.entry.Instance)
			}
			if time.Since(endpoint.DiscoveredAt) > time.Second {
				t.Errorf("endpoint.DiscoveredAt is not recent: %v", endpoint.DiscoveredAt)
			}
		})
	}
}

func TestParseServiceEntry_Metadata(t *testing.T) {
	entry := &zeroconf.ServiceEntry{
		ServiceRecord: zeroconf.ServiceRecord{Instance: "realtime-dev"},
		Port:          4000,
		AddrIPv4:      []net.IP{net.ParseIP("192.168.4.16")},
		Text:          []string{"ref=abc", "version=2.30.1", "flag", "filter=id=eq.1"},
	}

	endpoint := parseServiceEntry(entry)
	if endpoint == nil {
		t.Fatal("parseServiceEntry() = nil, want endpoint")
	}

	expected := map[string]string{
		"ref":     "abc",
		"version": "2.30.1",
		"flag":    "",
		"filter":  "id=eq.1",
	}

	if len(endpoint.Metadata) != len(expected) {
		t.Errorf("endpoint.Metadata has %d entries, want %d", len(endpoint.Metadata), len(expected))
	}
	for key, want := range expected {
		if got, ok := endpoint.Metadata[key]; !ok {
			t.Errorf("endpoint.Metadata missing key %q", key)
		} else if got != want {
			t.Errorf("endpoint.Metadata[%q] = %q, want %q", key, got, want)
		}
	}

	if endpoint.ProjectRef() != "abc" {
		t.Errorf("ProjectRef() = %q, want abc", endpoint.ProjectRef())
	}
}

func TestNewScanner(t *testing.T) {
	scanner := NewScanner()

	if scanner == nil {
		t.Fatal("NewScanner() = nil, want scanner")
	}
	if scanner.Timeout != DefaultScanTimeout {
		t.Errorf("scanner.Timeout = %v, want %v", scanner.Timeout, DefaultScanTimeout)
	}
}

// Live mDNS discovery needs multicast on the test host and is not covered here.
