package main

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"os"
	"sync"

	codelet "github.com/Paranoid-AF/codelet"
	defaults "github.com/Paranoid-AF/codelet/default"
	"github.com/Paranoid-AF/codelet/generate"
	"github.com/Paranoid-AF/codelet/metrics"
)

// maxRequestSize bounds a single request line. Requests carry the whole
// document, so the scanner's 64KB default is too small.
const maxRequestSize = 16 << 20

// Completer processes a completion request and returns a response.
type Completer interface {
	Complete(ctx context.Context, req *codelet.Request) *codelet.Response
	Close()
}

// Server listens on a Unix domain socket for completion requests.
type Server struct {
	listener net.Listener
	sockPath string

	// newEngine builds a fresh engine on reload. Nil disables reload.
	newEngine func() Completer

	mu     sync.RWMutex
	engine Completer
}

// NewServer creates a new IPC server bound to the given socket path.
// rec may be nil.
func NewServer(sockPath string, rec *metrics.Recorder) (*Server, error) {
	newEngine := func() Completer { return generate.NewEngine(rec) }
	srv, err := NewServerWithCompleter(sockPath, newEngine())
	if err != nil {
		return nil, err
	}
	srv.newEngine = newEngine
	return srv, nil
}

// NewServerWithCompleter creates a new IPC server with a custom Completer.
func NewServerWithCompleter(sockPath string, completer Completer) (*Server, error) {
	// Remove stale socket file if it exists
	if err := os.Remove(sockPath); err != nil && !os.IsNotExist(err) {
		completer.Close()
		return nil, err
	}

	listener, err := net.Listen("unix", sockPath)
	if err != nil {
		completer.Close()
		return nil, err
	}

	return &Server{
		listener: listener,
		sockPath: sockPath,
		engine:   completer,
	}, nil
}

// Serve accepts connections and handles requests.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(conn)
	}
}

// Close shuts down the server, the engine, and removes the socket file.
func (s *Server) Close() {
	s.mu.Lock()
	s.engine.Close()
	s.mu.Unlock()
	s.listener.Close()
	os.Remove(s.sockPath)
}

func (s *Server) currentEngine() Completer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.engine
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), maxRequestSize)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			slog.Warn("failed to read request", "error", err)
		}
		return
	}

	raw := scanner.Bytes()
	slog.Debug("request", "bytes", len(raw))

	// Check if this is a config request (has "action" field)
	var cfgReq codelet.ConfigRequest
	if err := json.Unmarshal(raw, &cfgReq); err == nil && cfgReq.Action != "" {
		s.handleConfigRequest(conn, &cfgReq)
		return
	}

	var req codelet.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		slog.Warn("invalid request", "error", err)
		return
	}

	resp := s.currentEngine().Complete(context.Background(), &req)
	resp.RequestID = req.RequestID

	writeJSON(conn, resp)
}

func (s *Server) handleConfigRequest(conn net.Conn, req *codelet.ConfigRequest) {
	var resp codelet.ConfigResponse

	switch req.Action {
	case "get":
		cfg, err := codelet.LoadConfig()
		if err != nil {
			resp.Error = &codelet.Error{
				Code:    codelet.CodeConfigError,
				Message: err.Error(),
			}
		} else {
			resp.Config = cfg
		}

	case "reload":
		s.reloadEngine()
		cfg, err := codelet.LoadConfig()
		if err != nil {
			resp.Error = &codelet.Error{
				Code:    codelet.CodeConfigError,
				Message: err.Error(),
			}
		} else {
			resp.Config = cfg
		}

	case "defaults":
		resp.Config = codelet.DefaultConfig()

	case "default_prompt":
		resp.Prompt = defaults.DefaultPrompt

	case "validate":
		cfg, err := codelet.LoadConfig()
		if err != nil {
			resp.Error = &codelet.Error{
				Code:    codelet.CodeConfigError,
				Message: err.Error(),
			}
		} else {
			resp.Warnings = codelet.ValidateConfig(cfg)
		}

	default:
		resp.Error = &codelet.Error{
			Code:    codelet.CodeUnknownAction,
			Message: "unknown config action: " + req.Action,
		}
	}

	writeJSON(conn, &resp)
}

// reloadEngine swaps in an engine built from the current config files.
// Requests already running keep the engine they started with.
func (s *Server) reloadEngine() {
	if s.newEngine == nil {
		slog.Warn("engine reload not supported")
		return
	}

	engine := s.newEngine()

	s.mu.Lock()
	old := s.engine
	s.engine = engine
	s.mu.Unlock()

	old.Close()
	slog.Info("engine reloaded")
}

func writeJSON(conn net.Conn, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal response", "error", err)
		return
	}

	slog.Debug("response", "data", string(data))

	conn.Write(append(data, '\n'))
}
