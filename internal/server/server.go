package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/vomment/vomment/internal/marker"
	"github.com/vomment/vomment/internal/note"
	"github.com/vomment/vomment/internal/storage"
)

// Server exposes the voice-note orchestrator over a small HTTP API so
// external UIs (editor plugins, web frontends) can drive it.
type Server struct {
	svc  *note.Service
	port string
}

// StatusResponse represents the JSON response for the status endpoint
type StatusResponse struct {
	Recording bool   `json:"recording"`
	Playback  string `json:"playback"`
	Token     string `json:"token,omitempty"`
	Backend   string `json:"backend"`
	Author    string `json:"author,omitempty"`
}

// NotesResponse represents the JSON response for the notes endpoint
type NotesResponse struct {
	Files      []note.FileNotes `json:"files"`
	TotalCount int              `json:"total_count"`
}

// CreateRequest represents a request to finish a recording and embed
// the marker at a file position
type CreateRequest struct {
	Path    string `json:"path"`
	Line    int    `json:"line"`
	Author  string `json:"author,omitempty"`
	Comment string `json:"comment,omitempty"`
}

// GenericResponse represents a generic API response
type GenericResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// New creates a new control server instance
func New(svc *note.Service, port string) *Server {
	return &Server{svc: svc, port: port}
}

// Start starts the control server
func (s *Server) Start() error {
	http.HandleFunc("/api/status", s.handleStatus)
	http.HandleFunc("/api/notes", s.handleNotes)
	http.HandleFunc("/api/record/start", s.handleRecordStart)
	http.HandleFunc("/api/record/cancel", s.handleRecordCancel)
	http.HandleFunc("/api/record/finish", s.handleRecordFinish)
	http.HandleFunc("/api/play", s.handlePlay)
	http.HandleFunc("/api/pause", s.handlePause)
	http.HandleFunc("/api/stop", s.handleStop)
	http.HandleFunc("/api/delete", s.handleDelete)
	http.HandleFunc("/api/delete-all", s.handleDeleteAll)
	http.HandleFunc("/api/audio/", s.handleAudioStream)

	localIP := getLocalIP()

	slog.Info("Starting vomment control server",
		"port", s.port,
		"local_url", fmt.Sprintf("http://%s:%s", localIP, s.port),
		"localhost_url", fmt.Sprintf("http://localhost:%s", s.port))

	return http.ListenAndServe(":"+s.port, nil)
}

// handleStatus returns the recording and playback state
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	session := s.svc.Playback()
	resp := StatusResponse{
		Recording: s.svc.Recording(),
		Playback:  string(session.State),
		Backend:   string(s.svc.Backend()),
		Author:    s.svc.DefaultAuthor(),
	}
	if session.State != note.StateStopped {
		resp.Token = session.Token.Embed()
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// handleNotes returns every marker found in the workspace, grouped by
// file. Orphaned markers stay listed, flagged as unresolvable.
func (s *Server) handleNotes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	files, err := s.svc.Scan(r.Context())
	if err != nil {
		s.sendErrorResponse(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to scan workspace: %v", err),
			"operation", "scan")
		return
	}

	total := 0
	for _, fn := range files {
		total += len(fn.Notes)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(NotesResponse{Files: files, TotalCount: total})
}

func (s *Server) handleRecordStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if err := s.svc.StartRecording(r.Context()); err != nil {
		s.sendErrorResponse(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to start recording: %v", err),
			"operation", "record_start")
		return
	}

	s.sendSuccess(w, "Recording started")
}

func (s *Server) handleRecordCancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	s.svc.CancelRecording()
	s.sendSuccess(w, "Recording cancelled")
}

// handleRecordFinish stops the active recording, stores the audio and
// embeds the marker at the requested file position
func (s *Server) handleRecordFinish(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.sendErrorResponse(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if req.Path == "" {
		s.sendErrorResponse(w, http.StatusBadRequest, "File path is required")
		return
	}

	created, err := s.svc.FinishRecording(r.Context(), note.CreateRequest{
		Path:    req.Path,
		Line:    req.Line,
		Author:  req.Author,
		Comment: req.Comment,
	})
	if err != nil {
		s.sendErrorResponse(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to finish recording: %v", err),
			"operation", "record_finish", "path", req.Path)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":  true,
		"token":    created.Token,
		"duration": created.Duration,
		"backend":  string(created.Backend),
	})
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if err := r.ParseForm(); err != nil {
		s.sendErrorResponse(w, http.StatusBadRequest, "Failed to parse form")
		return
	}

	raw := r.FormValue("token")
	if raw == "" {
		s.sendErrorResponse(w, http.StatusBadRequest, "Token is required")
		return
	}

	if err := s.svc.Play(r.Context(), marker.ParseToken(raw)); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, storage.ErrAudioNotFound) {
			status = http.StatusNotFound
		}
		s.sendErrorResponse(w, status,
			fmt.Sprintf("Failed to play: %v", err),
			"operation", "play", "token", raw)
		return
	}

	s.sendSuccess(w, "Playing")
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	s.svc.TogglePause()
	s.sendSuccess(w, string(s.svc.Playback().State))
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	s.svc.StopPlayback()
	s.sendSuccess(w, "Stopped")
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	if err := r.ParseForm(); err != nil {
		s.sendErrorResponse(w, http.StatusBadRequest, "Failed to parse form")
		return
	}

	raw := r.FormValue("token")
	path := r.FormValue("path")
	if raw == "" || path == "" {
		s.sendErrorResponse(w, http.StatusBadRequest, "Token and path are required")
		return
	}

	if err := s.svc.Delete(r.Context(), marker.ParseToken(raw), path); err != nil {
		s.sendErrorResponse(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to delete: %v", err),
			"operation", "delete", "token", raw)
		return
	}

	s.sendSuccess(w, "Voice note deleted")
}

func (s *Server) handleDeleteAll(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.sendErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	if err := s.svc.DeleteAll(r.Context()); err != nil {
		s.sendErrorResponse(w, http.StatusInternalServerError,
			fmt.Sprintf("Failed to delete all: %v", err),
			"operation", "delete_all")
		return
	}

	s.sendSuccess(w, "All voice notes deleted")
}

// handleAudioStream serves the resolved audio of a note so browser
// UIs can play it without a local helper process
func (s *Server) handleAudioStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	raw := strings.TrimPrefix(r.URL.Path, "/api/audio/")
	if raw == "" {
		http.Error(w, "Token required", http.StatusBadRequest)
		return
	}

	// Validate token (prevent path traversal via file-style tokens)
	if strings.Contains(raw, "..") || strings.Contains(raw, "/") || strings.Contains(raw, "\\") {
		http.Error(w, "Invalid token", http.StatusBadRequest)
		return
	}

	path, err := s.svc.ResolveAudio(r.Context(), marker.ParseToken(raw))
	if err != nil {
		http.Error(w, "Audio not found", http.StatusNotFound)
		return
	}

	info, err := os.Stat(path)
	if err != nil {
		http.Error(w, "Error accessing file", http.StatusInternalServerError)
		return
	}

	f, err := os.Open(path)
	if err != nil {
		http.Error(w, "Error opening file", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Accept-Ranges", "bytes")
	http.ServeContent(w, r, filepath.Base(path), info.ModTime(), f)
}

func (s *Server) sendSuccess(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(GenericResponse{Success: true, Message: message})
}

// sendErrorResponse logs the error and sends a JSON error response to the client
func (s *Server) sendErrorResponse(w http.ResponseWriter, statusCode int, errorMsg string, logContext ...interface{}) {
	logFields := []interface{}{"error_message", errorMsg, "status_code", statusCode}
	logFields = append(logFields, logContext...)
	slog.Error("Sending error response to client", logFields...)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(GenericResponse{Success: false, Error: errorMsg})
}

func getLocalIP() string {
	// Try to connect to a remote address to determine local IP
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "localhost"
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)
	return localAddr.IP.String()
}
