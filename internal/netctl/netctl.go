// Package netctl implements the optional control socket: a Unix-domain
// listener that accepts newline-delimited messages from cooperating shell
// wrappers and forwards them to the running app as ordinary command lines,
// the same ones a user could type at the prompt.
package netctl

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Handler is the app-side hook the server drives. Root returns the
// starting root of the active panel; Dispatch runs one command line
// exactly as if it had been typed and committed with enter.
type Handler interface {
	Root() string
	Dispatch(line string)
}

// Server listens on a Unix socket at Path and feeds every accepted
// connection's messages to Handler. Each connection is handled on its own
// goroutine; messages within a connection are processed in arrival order.
type Server struct {
	Path    string
	Handler Handler
	Logger  *slog.Logger

	mu sync.Mutex
	ln net.Listener
}

// New builds a Server. logger may be nil, in which case log output is
// discarded.
func New(path string, h Handler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Server{Path: path, Handler: h, Logger: logger}
}

// Serve binds the socket and accepts connections until Close is called.
// It removes a stale socket file left behind by a crashed prior instance
// before binding.
func (s *Server) Serve() error {
	if s.Path == "" {
		return fmt.Errorf("netctl: empty socket path")
	}
	_ = os.Remove(s.Path)
	ln, err := net.Listen("unix", s.Path)
	if err != nil {
		return fmt.Errorf("netctl: listen %s: %w", s.Path, err)
	}
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.closed() {
				return nil
			}
			s.Logger.Warn("netctl: accept", "err", err)
			continue
		}
		go s.handleConn(conn)
	}
}

func (s *Server) closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ln == nil
}

// Close shuts down the listener and removes the socket file.
func (s *Server) Close() error {
	s.mu.Lock()
	ln := s.ln
	s.ln = nil
	s.mu.Unlock()
	if ln == nil {
		return nil
	}
	err := ln.Close()
	_ = os.Remove(s.Path)
	return err
}

// handleConn reads one message per connection, per the §6 framing: the
// first line names the message kind, further lines (if any) carry its
// payload. The connection is closed after one message, matching a
// fire-and-forget shell wrapper that opens, sends, and exits.
func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	connID := uuid.New().String()
	log := s.Logger.With("conn", connID)

	r := bufio.NewReader(conn)
	kind, err := readLine(r)
	if err != nil {
		log.Debug("netctl: read kind", "err", err)
		return
	}

	switch kind {
	case "HI":
		log.Debug("netctl: handshake")
	case "GET_ROOT":
		root := s.Handler.Root()
		fmt.Fprintf(conn, "ROOT\n%s\n", root)
	case "CMD":
		line, err := readLine(r)
		if err != nil {
			log.Warn("netctl: CMD missing payload", "err", err)
			return
		}
		s.Handler.Dispatch(line)
	case "SEQ":
		line, err := readLine(r)
		if err != nil {
			log.Warn("netctl: SEQ missing line", "err", err)
			return
		}
		sep, err := readLine(r)
		if err != nil {
			sep = ";"
		}
		for _, step := range strings.Split(line, sep) {
			step = strings.TrimSpace(step)
			if step == "" {
				continue
			}
			s.Handler.Dispatch(step)
		}
	default:
		log.Warn("netctl: unknown message kind", "kind", kind)
	}
}

func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimRight(line, "\n\r"), nil
}
