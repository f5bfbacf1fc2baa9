package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	inkling "github.com/Paranoid-AF/inkling"
	"github.com/Paranoid-AF/inkling/complete"
	defaults "github.com/Paranoid-AF/inkling/default"
)

// Engine produces suggestions for the daemon.
type Engine interface {
	complete.Completer
	// Configured reports whether a credential is available.
	Configured() bool
}

// EngineFactory builds an Engine from the current config and store.
// It is called at startup and on every "reload".
type EngineFactory func() Engine

// sessionEntry tracks a cancellable in-flight request for a session.
type sessionEntry struct {
	requestID int
	cancel    context.CancelFunc
}

// Server listens on a Unix domain socket for completion requests.
type Server struct {
	listener  net.Listener
	sockPath  string
	newEngine EngineFactory

	mu       sync.Mutex
	engine   Engine
	sessions map[string]sessionEntry
}

// NewServer creates an IPC server bound to sockPath, building its engine
// with newEngine.
func NewServer(sockPath string, newEngine EngineFactory) (*Server, error) {
	// Remove stale socket file if it exists
	if err := os.Remove(sockPath); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	listener, err := net.Listen("unix", sockPath)
	if err != nil {
		return nil, err
	}

	return &Server{
		listener:  listener,
		sockPath:  sockPath,
		newEngine: newEngine,
		engine:    newEngine(),
		sessions:  make(map[string]sessionEntry),
	}, nil
}

// Serve accepts connections and handles requests.
func (s *Server) Serve() error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go s.handleConn(conn)
	}
}

// Close cancels in-flight requests, stops listening and removes the socket file.
func (s *Server) Close() {
	s.mu.Lock()
	for sid, entry := range s.sessions {
		entry.cancel()
		delete(s.sessions, sid)
	}
	s.mu.Unlock()
	s.listener.Close()
	os.Remove(s.sockPath)
}

func (s *Server) currentEngine() Engine {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	if !scanner.Scan() {
		return
	}

	raw := scanner.Bytes()
	slog.Debug("request", "data", string(raw))

	// Config requests carry an "action" field.
	var cfgReq inkling.ConfigRequest
	if err := json.Unmarshal(raw, &cfgReq); err == nil && cfgReq.Action != "" {
		writeJSON(conn, s.handleConfigRequest(&cfgReq))
		return
	}

	var req inkling.Request
	if err := json.Unmarshal(raw, &req); err != nil {
		slog.Warn("invalid request", "error", err)
		writeJSON(conn, &inkling.Response{Error: &inkling.Error{
			Code:    inkling.CodeInvalidRequest,
			Message: err.Error(),
		}})
		return
	}

	// Cancel any in-flight request for this session and create a new context.
	ctx, cancel := context.WithCancel(context.Background())
	sid := req.SessionID
	reqID := req.RequestID
	if sid != "" {
		s.mu.Lock()
		if prev, ok := s.sessions[sid]; ok {
			prev.cancel()
		}
		s.sessions[sid] = sessionEntry{requestID: reqID, cancel: cancel}
		s.mu.Unlock()
	}
	defer func() {
		cancel()
		if sid != "" {
			s.mu.Lock()
			if cur, ok := s.sessions[sid]; ok && cur.requestID == reqID {
				delete(s.sessions, sid)
			}
			s.mu.Unlock()
		}
	}()

	resp := s.complete(ctx, &req)

	// If cancelled, skip writing; the client has already moved on.
	if ctx.Err() != nil {
		slog.Debug("request superseded", "session_id", sid, "request_id", reqID)
		return
	}

	resp.RequestID = req.RequestID
	writeJSON(conn, resp)
}

func (s *Server) complete(ctx context.Context, req *inkling.Request) *inkling.Response {
	if req.Prompt == "" {
		return &inkling.Response{Error: &inkling.Error{
			Code:    inkling.CodeInvalidRequest,
			Message: "prompt is required",
		}}
	}

	engine := s.currentEngine()
	if !engine.Configured() {
		return &inkling.Response{Error: &inkling.Error{
			Code:    inkling.CodeNotConfigured,
			Message: inkling.ErrAuthenticationMissing.Error(),
		}}
	}

	start := time.Now()
	text, err := engine.Complete(ctx, req)
	if err != nil {
		if ctx.Err() == nil {
			slog.Warn("completion failed", "request_id", req.RequestID, "error", err, "elapsed", time.Since(start))
		}
		return &inkling.Response{Error: &inkling.Error{
			Code:    inkling.CodeAPIError,
			Message: err.Error(),
		}}
	}
	slog.Info("completed", "request_id", req.RequestID, "elapsed", time.Since(start))
	return &inkling.Response{Suggestion: text}
}

func (s *Server) handleConfigRequest(req *inkling.ConfigRequest) *inkling.ConfigResponse {
	var resp inkling.ConfigResponse

	switch req.Action {
	case "get":
		cfg, err := inkling.LoadConfig()
		if err != nil {
			resp.Error = &inkling.Error{
				Code:    inkling.CodeConfigError,
				Message: err.Error(),
			}
		} else {
			resp.Config = cfg
		}

	case "reload":
		s.reloadEngine()
		cfg, _ := inkling.LoadConfig()
		resp.Config = cfg
		resp.Configured = s.currentEngine().Configured()

	case "defaults":
		resp.Config = inkling.DefaultConfig()

	case "default_prompt":
		resp.Prompt = strings.TrimSpace(defaults.DefaultPrompt)

	case "validate":
		cfg, err := inkling.LoadConfig()
		if err != nil {
			resp.Error = &inkling.Error{
				Code:    inkling.CodeConfigError,
				Message: err.Error(),
			}
		} else {
			resp.Warnings = inkling.ValidateConfig(cfg)
		}

	case "status":
		resp.Configured = s.currentEngine().Configured()

	default:
		resp.Error = &inkling.Error{
			Code:    inkling.CodeUnknownAction,
			Message: "unknown config action: " + req.Action,
		}
	}
	return &resp
}

// reloadEngine swaps in an engine built from the current config. Requests
// already running keep the engine they started with.
func (s *Server) reloadEngine() {
	engine := s.newEngine()
	s.mu.Lock()
	s.engine = engine
	s.mu.Unlock()
	slog.Info("engine reloaded", "configured", engine.Configured())
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
