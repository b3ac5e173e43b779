package domain

import (
	"net"
	"strconv"
)

// Endpoint is a (host, port) pair identifying either an upstream RFLink
// gateway or the downstream bridge listener.
type Endpoint struct {
	Host string
	Port int
}

// Address returns the endpoint in host:port form, suitable for net.Dial.
func (e Endpoint) Address() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// String implements fmt.Stringer.
func (e Endpoint) String() string {
	return e.Address()
}

// Source is a configured upstream gateway. A source with an empty host or a
// zero port is disabled: it is skipped at startup without being an error.
type Source struct {
	// Name identifies the source in logs and alerts (e.g. "RFLINK1")
	Name string

	// Host is the gateway IP address or hostname
	Host string

	// Port is the gateway TCP port; zero means absent
	Port int
}

// Enabled returns true when both host and port are present.
func (s Source) Enabled() bool {
	return s.Host != "" && s.Port > 0
}

// Endpoint returns the source's (host, port) pair.
func (s Source) Endpoint() Endpoint {
	return Endpoint{Host: s.Host, Port: s.Port}
}
