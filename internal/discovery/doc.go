// Package discovery finds realtime servers on the local network with mDNS.
//
// A local development stack can advertise its realtime service as
// "_realtime._tcp" in the "local." domain. TXT records may carry the project
// ref ("ref=..."), the server version and whether TLS is required ("tls=1").
//
// # Usage Example
//
//	endpoints, err := discovery.NewScanner().Scan(ctx)
//	if err != nil {
//	    return err
//	}
//	for _, ep := range endpoints {
//	    fmt.Println(ep.Instance, ep.ProjectURL())
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - The server must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
