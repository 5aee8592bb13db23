package node

import "net"

// newListener binds addr (host:port) before the HTTP server starts
// serving, so Start can report a bind failure synchronously instead of
// only discovering it inside the serving goroutine.
func newListener(addr string) (net.Listener, error) {
	return net.Listen("tcp", addr)
}
