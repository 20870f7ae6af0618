package ipc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	log "log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"time"
)

const DefaultSocketPath = "/tmp/orin-assistant.sock"

const (
	CmdTrigger = "trigger"
	CmdSleep   = "sleep"
	CmdExit    = "exit"
	CmdStatus  = "status"
)

type ControlMessage struct {
	Cmd string `json:"cmd"`
}

type Reply struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// Handler answers one control message.
type Handler func(ControlMessage) Reply

type Server struct {
	path string
	ln   net.Listener
	wg   sync.WaitGroup
}

// Listen serves control messages on a unix socket at path. A stale socket
// file is removed first.
func Listen(path string, handler Handler) (*Server, error) {
	if path == "" {
		path = DefaultSocketPath
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen: %w", err)
	}

	s := &Server{path: path, ln: ln}
	s.wg.Add(1)
	go s.serve(handler)
	return s, nil
}

func (s *Server) Close() error {
	err := s.ln.Close()
	s.wg.Wait()
	os.Remove(s.path)
	return err
}

func (s *Server) serve(handler Handler) {
	defer s.wg.Done()
	for {
		conn, err := s.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			log.Warn("Failed to accept control connection", "err", err)
			continue
		}
		go handleConn(conn, handler)
	}
}

func handleConn(conn net.Conn, handler Handler) {
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(10 * time.Second))

	var msg ControlMessage
	if err := json.NewDecoder(conn).Decode(&msg); err != nil {
		log.Warn("Bad control message", "err", err)
		json.NewEncoder(conn).Encode(Reply{Message: "bad message"})
		return
	}
	msg.Cmd = strings.ToLower(strings.TrimSpace(msg.Cmd))

	log.Debug("Control message", "cmd", msg.Cmd)
	if err := json.NewEncoder(conn).Encode(handler(msg)); err != nil {
		log.Warn("Failed to reply", "cmd", msg.Cmd, "err", err)
	}
}

// SendCommand delivers cmd to the daemon and returns its reply.
func SendCommand(path, cmd string) (Reply, error) {
	if path == "" {
		path = DefaultSocketPath
	}
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return Reply{}, err
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(10 * time.Second))

	if err := json.NewEncoder(conn).Encode(ControlMessage{Cmd: cmd}); err != nil {
		return Reply{}, fmt.Errorf("send: %w", err)
	}

	var r Reply
	if err := json.NewDecoder(bufio.NewReader(conn)).Decode(&r); err != nil {
		return Reply{}, fmt.Errorf("read reply: %w", err)
	}
	return r, nil
}
