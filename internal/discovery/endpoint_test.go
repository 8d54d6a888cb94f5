package discovery

import "testing"

func TestEndpoint_String(t *testing.T) {
	endpoint := &Endpoint{
		Instance: "realtime-dev",
		Hostname: "devbox.local.",
		IP:       "192.168.4.16",
		Port:     4000,
	}

	expected := "Realtime realtime-dev (devbox.local.) at 192.168.4.16:4000"
	if endpoint.String() != expected {
		t.Errorf("Endpoint.String() = %v, want %v", endpoint.String(), expected)
	}
}

func TestEndpoint_ProjectURL(t *testing.T) {
	tests := []struct {
		name     string
		endpoint *Endpoint
		expected string
	}{
		{
			name:     "plain",
			endpoint: &Endpoint{IP: "192.168.4.16", Port: 4000},
			expected: "http://192.168.4.16:4000",
		},
		{
			name:     "tls",
			endpoint: &Endpoint{IP: "10.0.0.5", Port: 443, Metadata: map[string]string{MetaTLS: "1"}},
			expected: "https://10.0.0.5:443",
		},
		{
			name:     "IPv6",
			endpoint: &Endpoint{IP: "fe80::1", Port: 4000},
			expected: "http://[fe80::1]:4000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.endpoint.ProjectURL(); got != tt.expected {
				t.Errorf("Endpoint.ProjectURL() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestEndpoint_WebSocketURL(t *testing.T) {
	endpoint := &Endpoint{IP: "192.168.4.16", Port: 4000, Metadata: map[string]string{MetaTLS: "1"}}

	got, err := endpoint.WebSocketURL("anon")
	if err != nil {
		t.Fatalf("WebSocketURL() error = %v", err)
	}
	want := "wss://192.168.4.16:4000/realtime/v1/websocket?apikey=anon&vsn=1.0.0"
	if got != want {
		t.Errorf("WebSocketURL() = %v, want %v", got, want)
	}
}

func TestEndpoint_GetMetadata_NilMap(t *testing.T) {
	endpoint := &Endpoint{}

	if got := endpoint.GetMetadata("anything"); got != "" {
		t.Errorf("Endpoint.GetMetadata() with nil map = %v, want empty string", got)
	}
	if endpoint.TLS() {
		t.Error("TLS() should be false without metadata")
	}
}
