package deployer

import (
	"fmt"
	"net"
)

// FreePort returns a TCP port on the loopback interface that was free at the time of the
// call. Concurrent test runs use it to avoid sharing a port.
func FreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// PortAvailable reports whether the port can be bound on the loopback interface, which is
// how tests check that a stopped site really released it.
func PortAvailable(port int) bool {
	l, err := net.Listen("tcp", fmt.Sprintf("127.0.0.1:%d", port))
	if err != nil {
		return false
	}
	l.Close()
	return true
}

// LocalBaseURL returns "http://localhost:<port>/".
func LocalBaseURL(port int) string {
	return fmt.Sprintf("http://localhost:%d/", port)
}
