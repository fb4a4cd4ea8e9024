package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/livetemplate/tinkerpen"
	"github.com/livetemplate/tinkerpen/internal/assets"
	"github.com/livetemplate/tinkerpen/internal/export"
)

// maxBodyBytes bounds request bodies; fragments are hand-edited text.
const maxBodyBytes = 5 << 20

// sessionState is the JSON view of a session.
type sessionState struct {
	SessionID string `json:"sessionId"`
	tinkerpen.Snapshot
}

func newSessionState(id string, snap tinkerpen.Snapshot) sessionState {
	return sessionState{SessionID: id, Snapshot: snap}
}

// CreateSessionRequest is the optional body of POST /api/sessions.
type CreateSessionRequest struct {
	HTML        string `json:"html"`
	CSS         string `json:"css"`
	JS          string `json:"js"`
	AutoRefresh *bool  `json:"autoRefresh,omitempty"`
}

// FragmentRequest is the body of PUT /api/sessions/{id}/fragments/{kind}.
type FragmentRequest struct {
	Text string `json:"text"`
}

// AutoRefreshRequest is the body of PUT /api/sessions/{id}/auto-refresh.
type AutoRefreshRequest struct {
	Enabled bool `json:"enabled"`
}

// TabRequest is the body of PUT /api/sessions/{id}/tab.
type TabRequest struct {
	Tab string `json:"tab"`
}

// CopyResponse is returned by POST /api/sessions/{id}/copy.
type CopyResponse struct {
	Text string `json:"text"`
}

// exportErrorResponse carries an export failure and its hint.
type exportErrorResponse struct {
	Error string `json:"error"`
	Hint  string `json:"hint,omitempty"`
}

// handleEditor serves the editor page bound to a fresh session.
func (s *Server) handleEditor(w http.ResponseWriter, r *http.Request) {
	sess, err := s.NewSession()
	if err != nil {
		log.Printf("[Server] Failed to create session: %v", err)
		http.Error(w, "Failed to open project", http.StatusInternalServerError)
		return
	}

	page, err := assets.RenderEditor(assets.EditorPage{Title: s.config.Title, SessionID: sess.ID})
	if err != nil {
		s.sessions.Delete(sess.ID)
		log.Printf("[Server] %v", err)
		http.Error(w, "Editor not available", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(page)
}

func (s *Server) handleHelp(w http.ResponseWriter, r *http.Request) {
	page, err := assets.RenderHelp(s.config.Title)
	if err != nil {
		log.Printf("[Server] %v", err)
		http.Error(w, "Help not available", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

// handleAsset serves embedded client assets.
func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	var (
		data        []byte
		err         error
		contentType string
	)
	switch chi.URLParam(r, "name") {
	case "tinkerpen.js":
		data, err = assets.GetClientJS()
		contentType = "application/javascript"
	case "tinkerpen.css":
		data, err = assets.GetClientCSS()
		contentType = "text/css"
	default:
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, "Asset not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// handlePreview serves the assembled document as a sandboxed page.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.Get(chi.URLParam(r, "id"))
	if !ok {
		http.Error(w, "Session not found or expired", http.StatusNotFound)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Content-Security-Policy", previewCSP)
	h.Set("Cache-Control", "no-store")
	io.WriteString(w, sess.Controller.Document())
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if r.ContentLength != 0 {
		if err := decodeBody(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	var opts []tinkerpen.Option
	if req.AutoRefresh != nil {
		opts = append(opts, tinkerpen.WithAutoRefresh(*req.AutoRefresh))
	}

	sess := s.sessions.Create(tinkerpen.Fragments{HTML: req.HTML, CSS: req.CSS, JS: req.JS}, false, opts...)
	writeJSON(w, http.StatusCreated, newSessionState(sess.ID, sess.Controller.Snapshot()))
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	s.writeState(w, sess)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if !s.sessions.Delete(chi.URLParam(r, "id")) {
		writeJSONError(w, http.StatusNotFound, "session not found or expired")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetFragment(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	kind, err := tinkerpen.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req FragmentRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := sess.Controller.SetFragment(kind, req.Text); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeState(w, sess)
}

func (s *Server) handleSetAutoRefresh(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req AutoRefreshRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess.Controller.SetAutoRefresh(req.Enabled)
	s.writeState(w, sess)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Controller.Refresh()
	s.writeState(w, sess)
}

func (s *Server) handleSelectTab(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var req TabRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := sess.Controller.SelectTab(tinkerpen.Kind(req.Tab)); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeState(w, sess)
}

func (s *Server) handleFormat(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	sess.Controller.FormatHTML()
	s.writeState(w, sess)
}

// handleCopy returns the pretty document; the browser writes it to the
// clipboard.
func (s *Server) handleCopy(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	text, err := export.Copy(sess.Controller, nil)
	if err != nil {
		writeExportError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CopyResponse{Text: text})
}

func (s *Server) handleProjectFile(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	file, found := export.LookupProjectFile(sess.Controller.Fragments(), chi.URLParam(r, "name"))
	if !found {
		writeJSONError(w, http.StatusNotFound, "unknown project file")
		return
	}

	h := w.Header()
	h.Set("Content-Type", file.MIMEType+"; charset=utf-8")
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	io.WriteString(w, file.Content)
}

// handleScreenshot captures the document currently shown in the preview.
func (s *Server) handleScreenshot(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	png, err := s.Screenshot(r.Context(), sess)
	if err != nil {
		log.Printf("[Capture] Screenshot for session %s failed: %v", sess.ID, err)
		writeExportError(w, err)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "image/png")
	h.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.ScreenshotFile))
	w.Write(png)
}

// session resolves {id} or writes a 404.
func (s *Server) session(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	sess, ok := s.sessions.Get(chi.URLParam(r, "id"))
	if !ok {
		writeJSONError(w, http.StatusNotFound, "session not found or expired")
	}
	return sess, ok
}

func (s *Server) writeState(w http.ResponseWriter, sess *Session) {
	writeJSON(w, http.StatusOK, newSessionState(sess.ID, sess.Controller.Snapshot()))
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("request body required: %w", io.EOF)
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

// writeExportError maps an export failure to a status code.
func writeExportError(w http.ResponseWriter, err error) {
	status := http.StatusUnprocessableEntity
	if errors.Is(err, tinkerpen.ErrCaptureUnavailable) {
		status = http.StatusServiceUnavailable
	}

	resp := exportErrorResponse{Error: err.Error()}
	var exportErr *tinkerpen.ExportError
	if errors.As(err, &exportErr) {
		resp.Hint = exportErr.Hint
	}
	writeJSON(w, status, resp)
}
