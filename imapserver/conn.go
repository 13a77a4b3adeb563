package imapserver

import (
	"bufio"
	"fmt"
	"io"
	"net"
	"runtime/debug"
	"strings"
)

// maxLineLength bounds a single line read from the client, command or
// literal continuation.
const maxLineLength = 64 * 1024

type conn struct {
	conn    net.Conn
	server  *Server
	br      *bufio.Reader
	bw      *bufio.Writer
	session *Session
}

func newConn(c net.Conn, server *Server) *conn {
	return &conn{
		conn:   c,
		server: server,
		br:     bufio.NewReaderSize(c, maxLineLength),
		bw:     bufio.NewWriter(c),
	}
}

func (c *conn) serve() {
	logger := c.server.logger()
	defer func() {
		if v := recover(); v != nil {
			logger.Printf("panic serving %v: %v\n%s", c.conn.RemoteAddr(), v, debug.Stack())
		}
		c.conn.Close()
	}()

	c.session = c.server.NewSession()
	defer c.session.Close()

	if err := c.write(c.session.Greeting()); err != nil {
		logger.Printf("failed to write greeting: %v", err)
		return
	}

	for !c.session.Closing() {
		b, isPrefix, err := c.br.ReadLine()
		if err == io.EOF {
			return
		} else if err != nil {
			logger.Printf("failed to read command: %v", err)
			return
		} else if isPrefix {
			logger.Printf("line too long from %v", c.conn.RemoteAddr())
			c.write("* BYE line too long\r\n")
			return
		}
		line := string(b)
		c.debug("C: ", line)

		if err := c.write(c.session.SendLine(line)); err != nil {
			logger.Printf("failed to write response: %v", err)
			return
		}
	}
}

func (c *conn) write(s string) error {
	if s == "" {
		return nil
	}
	for _, line := range strings.SplitAfter(strings.TrimSuffix(s, "\r\n"), "\r\n") {
		c.debug("S: ", strings.TrimSuffix(line, "\r\n"))
	}
	if _, err := c.bw.WriteString(s); err != nil {
		return err
	}
	return c.bw.Flush()
}

func (c *conn) debug(prefix, line string) {
	if w := c.server.options.DebugWriter; w != nil {
		fmt.Fprintf(w, "%v%v %v\n", prefix, c.conn.RemoteAddr(), line)
	}
}
