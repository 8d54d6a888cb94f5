// Package inspector runs a realtime test connection.
//
// A Client dials the realtime websocket endpoint with the configured API key,
// joins the configured channel and delivers every frame it receives. The
// channel access token is the impersonated user's JWT when one is set, so the
// messages that arrive are exactly those the channel policies allow for that
// user.
//
// # Usage Example
//
//	client := inspector.NewClient(projectURL)
//	messages := make(chan *protocol.Message, 64)
//
//	go func() {
//	    for msg := range messages {
//	        fmt.Println(msg.Event, string(msg.Payload))
//	    }
//	}()
//
//	err := client.Run(ctx, store.Config(), messages)
//
// Run blocks until ctx is cancelled or the connection fails. It closes the
// messages channel when it returns. Reconnect by calling Run again with the
// latest Config.
package inspector
