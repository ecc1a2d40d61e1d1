package testutil

import (
	"bufio"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/cory-johannsen/diceengine/internal/frontend/telnet"
)

// TelnetClient is a line-oriented Telnet test client. It discards option
// negotiation and ANSI color codes so tests can match plain text.
type TelnetClient struct {
	conn    net.Conn
	reader  *bufio.Reader
	t       testing.TB
	timeout time.Duration
}

// NewTelnetClient dials addr and returns a client closed on test cleanup.
//
// Precondition: addr must be a valid "host:port" string with a listening server.
// Postcondition: Returns a connected TelnetClient or fails the test.
func NewTelnetClient(t testing.TB, addr string) *TelnetClient {
	t.Helper()
	start := time.Now()

	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		t.Fatalf("connecting to %s: %v [%s]", addr, err, time.Since(start))
	}
	t.Cleanup(func() { _ = conn.Close() })

	return &TelnetClient{
		conn:    conn,
		reader:  bufio.NewReader(conn),
		t:       t,
		timeout: 5 * time.Second,
	}
}

// ReadUntil reads until the color-stripped output contains substr.
//
// Precondition: substr must be non-empty.
// Postcondition: Returns the stripped output read so far, or fails on timeout.
func (c *TelnetClient) ReadUntil(substr string) string {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(c.timeout))

	var raw strings.Builder
	for {
		b, err := c.reader.ReadByte()
		if err != nil {
			c.t.Fatalf("reading until %q: got %q, error: %v", substr, telnet.StripANSI(raw.String()), err)
		}
		if b == telnet.IAC {
			c.skipCommand()
			continue
		}
		raw.WriteByte(b)
		if plain := telnet.StripANSI(raw.String()); strings.Contains(plain, substr) {
			return plain
		}
	}
}

// skipCommand drops the remainder of a three-byte IAC option command.
func (c *TelnetClient) skipCommand() {
	cmd, err := c.reader.ReadByte()
	if err != nil {
		return
	}
	switch cmd {
	case telnet.WILL, telnet.WONT, telnet.DO, telnet.DONT:
		_, _ = c.reader.ReadByte()
	}
}

// Send writes text followed by \r\n.
//
// Postcondition: text + \r\n is written to the connection, or the test fails.
func (c *TelnetClient) Send(text string) {
	c.t.Helper()
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.timeout))
	if _, err := fmt.Fprintf(c.conn, "%s\r\n", text); err != nil {
		c.t.Fatalf("sending %q: %v", text, err)
	}
}

// Command sends text and returns the output up to the next prompt ending in "> ".
func (c *TelnetClient) Command(text string) string {
	c.t.Helper()
	c.Send(text)
	return c.ReadUntil("]> ")
}

// Close closes the underlying connection.
func (c *TelnetClient) Close() {
	_ = c.conn.Close()
}
