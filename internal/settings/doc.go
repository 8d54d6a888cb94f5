// Package settings supplies the credential records used by a realtime test
// connection.
//
// Credentials are labeled secret values (for example the "anon" and
// "service_role" API keys of a project). They come from a Source: either the
// platform settings endpoint (Client) or a local YAML file (FileSource) for a
// self-hosted stack. A Provider holds the current list and notifies
// subscribers whenever the list changes.
//
// # Usage Example
//
//	client := settings.NewClient(apiURL, accessToken, projectRef)
//	provider := settings.NewProvider(client)
//
//	sub := provider.Subscribe(func(creds []settings.Credential) {
//	    if anon, ok := settings.FindByLabel(creds, settings.AnonLabel); ok {
//	        fmt.Println("anon key is", logging.Mask(anon.Value))
//	    }
//	})
//	defer sub.Unsubscribe()
//
//	go provider.Poll(ctx, 30*time.Second)
//
// # Failures
//
// Fetch failures never clear the current list. Refresh returns the error to
// the caller, Poll logs it and keeps the previous credentials.
package settings
