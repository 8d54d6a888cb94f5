// Package urls centralizes the endpoints and documentation links used
// throughout the application.
//
// Usage:
//
//	wsURL, err := urls.RealtimeURL(urls.ProjectURL(ref), cfg.Token)
//	fmt.Printf("For more information, see: %s\n", urls.RealtimeAuthorization)
package urls
