package control

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// SendRequest dials the control socket at path, writes req as one
// newline-delimited JSON line, and reads back a single Response. Used by
// the CLI front end for every subcommand that talks to a running daemon.
func SendRequest(path string, req Request) (Response, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return Response{}, fmt.Errorf("connect to daemon at %s: %w", path, err)
	}
	defer conn.Close()

	enc := json.NewEncoder(conn)
	if err := enc.Encode(req); err != nil {
		return Response{}, fmt.Errorf("send request: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return Response{}, fmt.Errorf("read reply: %w", err)
		}
		return Response{}, fmt.Errorf("daemon closed connection without a reply")
	}

	var resp Response
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		return Response{}, fmt.Errorf("decode reply: %w", err)
	}
	return resp, nil
}
