/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package testutil

import (
	"fmt"
	"net"
	"strconv"
	"time"
)

const pollInterval = time.Millisecond * 10

// GetLocalFreeTCPPort returns a TCP port on 127.0.0.1 that nobody listens to at the moment.
func GetLocalFreeTCPPort() int {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		panic(err)
	}
	defer func() { _ = ln.Close() }()
	return ln.Addr().(*net.TCPAddr).Port
}

// GetLocalAddrWithFreeTCPPort returns 127.0.0.1:<free-tcp-port>.
func GetLocalAddrWithFreeTCPPort() string {
	return net.JoinHostPort("127.0.0.1", strconv.Itoa(GetLocalFreeTCPPort()))
}

// WaitListeningServer waits until a TCP connection to addr can be established.
func WaitListeningServer(addr string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	return poll(deadline, "listening server at "+addr, func() bool {
		conn, err := net.DialTimeout("tcp", addr, time.Until(deadline))
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	})
}

// WaitPortAndListeningServer waits until getPort returns a positive port and the server listens to it.
func WaitPortAndListeningServer(host string, getPort func() int, timeout time.Duration) (int, error) {
	deadline := time.Now().Add(timeout)
	var port int
	if err := poll(deadline, "listening port", func() bool {
		port = getPort()
		return port > 0
	}); err != nil {
		return 0, err
	}
	return port, WaitListeningServer(net.JoinHostPort(host, strconv.Itoa(port)), time.Until(deadline))
}

func poll(deadline time.Time, what string, ready func() bool) error {
	for {
		if ready() {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("timed out waiting for %s", what)
		}
		time.Sleep(pollInterval)
	}
}
