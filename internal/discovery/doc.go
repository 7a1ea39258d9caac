// Package discovery finds Moonraker instances on the local network via mDNS.
//
// Moonraker advertises "_moonraker._tcp" when its [zeroconf] component is
// enabled. Each announcement is turned into a Printer carrying the address,
// port and TXT metadata needed to open the Moonraker websocket.
//
// # Usage Example
//
//	printers, err := discovery.Scan(ctx, 5*time.Second)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, p := range printers {
//	    fmt.Printf("%s -> %s\n", p.Instance, p.WebsocketURL())
//	}
//
// # Network Requirements
//
// - Requires multicast support on the network interface
// - Printers must be on the same local network segment
// - Firewall must allow mDNS (UDP port 5353)
package discovery
