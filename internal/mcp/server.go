package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/arturoeanton/certify-ai/internal/domain"
	"github.com/arturoeanton/certify-ai/internal/port"
	"github.com/arturoeanton/certify-ai/internal/service"
)

// Assistant is the part of the study assistant exposed as MCP tools.
type Assistant interface {
	GenerateNotes(ctx context.Context, subjectID, topic string) (*service.Notes, error)
	GenerateRoadmap(ctx context.Context, subjectID, goal string) (*domain.Roadmap, error)
}

// AuditWriter records tool calls.
type AuditWriter interface {
	WriteAudit(userID, action, resource, resourceID, details, ip, userAgent string) error
}

// subject is the user id tool calls are attributed to.
const subject = "mcp"

// Server implements the Model Context Protocol (MCP) server.
// It exposes the study assistant to external AI agents.
type Server struct {
	assistant Assistant
	audit     AuditWriter
	name      string
	version   string
	srv       *http.Server
}

// NewServer creates a new MCP server listening on port. audit may be nil.
func NewServer(assistant Assistant, audit AuditWriter, name, version, port string) *Server {
	s := &Server{
		assistant: assistant,
		audit:     audit,
		name:      name,
		version:   version,
	}
	s.srv = &http.Server{
		Addr:              ":" + port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Tool represents an MCP tool definition.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// JSONRPCRequest represents a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response.
type JSONRPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC error.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// JSON-RPC error codes.
const (
	codeParseError     = -32700
	codeInvalidParams  = -32602
	codeMethodNotFound = -32601
	codeInternalError  = -32603
)

type rpcFailure struct {
	code int
	err  error
}

func (f *rpcFailure) Error() string { return f.err.Error() }

// rpcError maps err onto a JSON-RPC code and a message safe to hand to clients.
func rpcError(err error) (int, string) {
	var (
		failure    *rpcFailure
		validation *port.ValidationError
		upstream   *port.UpstreamError
	)
	switch {
	case errors.As(err, &failure):
		return failure.code, failure.Error()
	case errors.As(err, &validation):
		return codeInvalidParams, validation.Error()
	case errors.As(err, &upstream):
		return codeInternalError, upstream.Service + " unavailable"
	default:
		return codeInternalError, "internal error"
	}
}

// Handler returns the HTTP handler serving /mcp and /mcp/sse.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/mcp", s.handleRPC)
	mux.HandleFunc("/mcp/sse", s.handleSSE)
	return mux
}

// Start begins the MCP server on the configured port. It returns nil after
// Shutdown.
func (s *Server) Start() error {
	slog.Info("MCP server starting", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for in-flight calls.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req JSONRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, nil, codeParseError, "parse error")
		return
	}

	var result interface{}
	var err error

	switch req.Method {
	case "tools/list":
		result = listTools()
	case "tools/call":
		result, err = s.callTool(r.Context(), req.Params)
	case "initialize":
		result = map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"serverInfo": map[string]string{
				"name":    s.name,
				"version": s.version,
			},
			"capabilities": map[string]interface{}{
				"tools": map[string]bool{"listChanged": false},
			},
		}
	default:
		writeError(w, req.ID, codeMethodNotFound, "method not found")
		return
	}

	if err != nil {
		code, msg := rpcError(err)
		if code == codeInternalError {
			slog.Error("mcp tool call failed", "method", req.Method, "error", err)
		}
		writeError(w, req.ID, code, msg)
		return
	}

	writeResult(w, req.ID, result)
}

func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: endpoint\ndata: /mcp\n\n")
	flusher.Flush()

	<-r.Context().Done()
}

func listTools() map[string]interface{} {
	tools := []Tool{
		{
			Name:        "generate_notes",
			Description: "Write structured study notes on a topic",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"topic": {"type": "string", "description": "Subject to write notes about"}
				},
				"required": ["topic"]
			}`),
		},
		{
			Name:        "generate_roadmap",
			Description: "Produce a phased learning roadmap towards a goal",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"goal": {"type": "string", "description": "What the learner wants to achieve"}
				},
				"required": ["goal"]
			}`),
		},
		{
			Name:        "sanitize_course_name",
			Description: "Show the filename-safe token and certificate filename for a course name",
			InputSchema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"course_name": {"type": "string", "description": "Course name as entered by the user"},
					"subject_id": {"type": "string", "description": "Optional user id for the filename"}
				},
				"required": ["course_name"]
			}`),
		},
	}
	return map[string]interface{}{"tools": tools}
}

func textContent(text string) []map[string]interface{} {
	return []map[string]interface{}{{"type": "text", "text": text}}
}

func (s *Server) callTool(ctx context.Context, params json.RawMessage) (interface{}, error) {
	var req struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, &rpcFailure{codeInvalidParams, fmt.Errorf("invalid params: %w", err)}
	}
	if len(req.Arguments) == 0 {
		req.Arguments = json.RawMessage("{}")
	}

	s.record(req.Name)

	switch req.Name {
	case "generate_notes":
		var args struct {
			Topic string `json:"topic"`
		}
		if err := json.Unmarshal(req.Arguments, &args); err != nil {
			return nil, &rpcFailure{codeInvalidParams, fmt.Errorf("invalid arguments: %w", err)}
		}

		notes, err := s.assistant.GenerateNotes(ctx, subject, args.Topic)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{"content": textContent(notes.Notes)}, nil

	case "generate_roadmap":
		var args struct {
			Goal string `json:"goal"`
		}
		if err := json.Unmarshal(req.Arguments, &args); err != nil {
			return nil, &rpcFailure{codeInvalidParams, fmt.Errorf("invalid arguments: %w", err)}
		}

		roadmap, err := s.assistant.GenerateRoadmap(ctx, subject, args.Goal)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"content": textContent(roadmap.Raw),
			"roadmap": roadmap,
		}, nil

	case "sanitize_course_name":
		var args struct {
			CourseName string `json:"course_name"`
			SubjectID  string `json:"subject_id"`
		}
		if err := json.Unmarshal(req.Arguments, &args); err != nil {
			return nil, &rpcFailure{codeInvalidParams, fmt.Errorf("invalid arguments: %w", err)}
		}

		course := strings.TrimSpace(args.CourseName)
		if course == "" {
			course = domain.DefaultCourseName
		}
		token := domain.SafeCourseToken(course)
		result := map[string]interface{}{
			"content": textContent(token),
			"token":   token,
		}
		if args.SubjectID != "" {
			result["filename"] = domain.ArtifactFilename(domain.CertificatePrefix, args.SubjectID, token)
		}
		return result, nil

	default:
		return nil, &rpcFailure{codeInvalidParams, fmt.Errorf("unknown tool: %s", req.Name)}
	}
}

func (s *Server) record(tool string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.WriteAudit(subject, domain.AuditActionMCPCall, "mcp", tool, "{}", "", ""); err != nil {
		slog.Error("failed to write audit log", "error", err)
	}
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := JSONRPCResponse{JSONRPC: "2.0", ID: id, Result: result}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func writeError(w http.ResponseWriter, id interface{}, code int, message string) {
	resp := JSONRPCResponse{JSONRPC: "2.0", ID: id, Error: &RPCError{Code: code, Message: message}}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
