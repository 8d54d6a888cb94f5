package urls

import (
	"fmt"
	"net/url"
	"strings"
)

// DefaultAPIURL is the platform API that serves project settings.
const DefaultAPIURL = "https://api.supabase.com"

// ProjectURLTemplate builds the public URL of a hosted project from its ref.
const ProjectURLTemplate = "https://%s.supabase.co"

// RealtimePath is the websocket endpoint path of the realtime service.
const RealtimePath = "/realtime/v1/websocket"

// ProtocolVersion is the channel protocol version sent as vsn.
const ProtocolVersion = "1.0.0"

// RealtimeAuthorization documents channel policies evaluated for
// impersonated users.
const RealtimeAuthorization = "https://supabase.com/docs/guides/realtime/authorization"

// APIKeys explains the anon and service_role keys.
const APIKeys = "https://supabase.com/docs/guides/api/api-keys"

// ProjectURL returns the public URL of a hosted project.
func ProjectURL(projectRef string) string {
	return fmt.Sprintf(ProjectURLTemplate, projectRef)
}

// SettingsURL returns the settings endpoint for projectRef under apiURL.
func SettingsURL(apiURL, projectRef string) string {
	return strings.TrimRight(apiURL, "/") + "/platform/props/project/" + url.PathEscape(projectRef) + "/settings"
}

// RealtimeURL turns a project URL (http, https, ws or wss) into the
// websocket endpoint with the apikey and vsn query parameters.
func RealtimeURL(projectURL, apiKey string) (string, error) {
	u, err := url.Parse(projectURL)
	if err != nil {
		return "", fmt.Errorf("invalid project URL %q: %w", projectURL, err)
	}

	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws":
		u.Scheme = "ws"
	default:
		return "", fmt.Errorf("invalid project URL %q: unsupported scheme %q", projectURL, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid project URL %q: missing host", projectURL)
	}

	if !strings.HasSuffix(u.Path, RealtimePath) {
		u.Path = strings.TrimRight(u.Path, "/") + RealtimePath
	}

	q := u.Query()
	q.Set("apikey", apiKey)
	q.Set("vsn", ProtocolVersion)
	u.RawQuery = q.Encode()

	return u.String(), nil
}
