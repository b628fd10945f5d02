package control

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"

	"github.com/sirupsen/logrus"
)

// Command pairs a decoded Request with the channel its handler must use to
// deliver the Response. The pipeline drains Commands once per tick so
// control-channel operations never run concurrently with frame processing
// (spec §6, §7).
type Command struct {
	Req   Request
	Reply chan Response
}

// Server accepts control-socket connections and forwards one Command per
// request line onto Commands. Each connection is served by its own
// goroutine; replies are serialized back by whichever goroutine owns that
// connection.
type Server struct {
	Commands chan Command

	path string
	ln   net.Listener
	log  *logrus.Logger
}

// Listen creates (replacing any stale socket file) and starts listening on
// the Unix-domain socket at path.
func Listen(path string, log *logrus.Logger) (*Server, error) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", path, err)
	}
	return &Server{
		Commands: make(chan Command, 8),
		path:     path,
		ln:       ln,
		log:      log,
	}, nil
}

// Serve accepts connections until the listener is closed.
func (s *Server) Serve() {
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			return
		}
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()
	scanner := bufio.NewScanner(conn)
	enc := json.NewEncoder(conn)

	for scanner.Scan() {
		var req Request
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			_ = enc.Encode(Response{OK: false, Error: fmt.Sprintf("bad request: %v", err)})
			continue
		}

		reply := make(chan Response, 1)
		s.Commands <- Command{Req: req, Reply: reply}
		resp := <-reply
		if err := enc.Encode(resp); err != nil {
			if s.log != nil {
				s.log.Warnf("control: write reply: %v", err)
			}
			return
		}
	}
}

// Close stops accepting connections and removes the socket file.
func (s *Server) Close() error {
	err := s.ln.Close()
	_ = os.Remove(s.path)
	return err
}
