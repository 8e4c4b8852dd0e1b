package app

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"scopilot/api/internal/auth"
	"scopilot/api/internal/authpw"
	"scopilot/api/internal/export"
	"scopilot/api/internal/rbac"
	"scopilot/api/internal/scoping"
	"scopilot/api/internal/session"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"database": map[string]any{"status": "ok"},
			"sessions": map[string]any{"status": "ok"},
		}

		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["database"] = map[string]any{"status": "error", "error": err.Error()}
		}
		if err := s.service.PingSessions(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["sessions"] = map[string]any{"status": "error", "error": err.Error()}
		}

		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	// Auth routes (no session required)
	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/signup" {
		s.handleAuthSignUp(w, r)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/signin" {
		s.handleAuthSignIn(w, r)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/session" {
		token := bearerToken(r)
		if token == "" {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "userName": nil})
			return
		}
		sess, err := s.service.SessionFromToken(r.Context(), token)
		if err != nil {
			writeJSON(w, http.StatusOK, map[string]any{"authenticated": false, "userName": nil})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"authenticated": true,
			"userName":      sess.UserName,
			"userId":        sess.UserID,
			"role":          sess.Role,
		})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/session/refresh" {
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		sess, err := s.service.Refresh(r.Context(), body.RefreshToken)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Refresh token invalid", nil)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"accessToken":  sess.Token,
			"refreshToken": sess.RefreshToken,
			"userName":     sess.UserName,
			"userId":       sess.UserID,
			"role":         sess.Role,
			"expiresAt":    sess.ExpiresAt.Unix(),
		})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/session/logout" {
		sess := Session{}
		if token := bearerToken(r); token != "" {
			if parsed, err := s.service.SessionFromToken(r.Context(), token); err == nil {
				sess = parsed
			}
		}
		var body struct {
			RefreshToken string `json:"refreshToken"`
		}
		_ = decodeBody(r, &body)
		_ = s.service.Logout(r.Context(), sess, body.RefreshToken)
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	sess, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/change-password" {
		s.handleChangePassword(w, r, sess)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/search" {
		if !s.service.Can(sess.Role, rbac.ActionRead) {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
			return
		}
		query := r.URL.Query()
		limit := 20
		if raw := query.Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "limit must be an integer", nil)
				return
			}
			limit = parsed
		}
		offset := 0
		if raw := query.Get("offset"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "offset must be an integer", nil)
				return
			}
			offset = parsed
		}
		payload, err := s.service.Search(r.Context(), sess, strings.TrimSpace(query.Get("q")), strings.TrimSpace(query.Get("phase")), limit, offset)
		if err != nil {
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusOK, payload)
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) >= 2 && parts[0] == "api" && parts[1] == "projects" {
		s.handleProjects(w, r, sess, parts)
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleProjects(w http.ResponseWriter, r *http.Request, sess Session, parts []string) {
	// /api/projects
	if len(parts) == 2 {
		switch r.Method {
		case http.MethodGet:
			if !s.service.Can(sess.Role, rbac.ActionRead) {
				writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
				return
			}
			summaries, err := s.service.ListProjects(r.Context(), sess)
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"projects": summaries})
			return
		case http.MethodPost:
			if !s.service.Can(sess.Role, rbac.ActionWrite) {
				writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
				return
			}
			var body struct {
				Name        string `json:"name"`
				Description string `json:"description"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			project, err := s.service.CreateProject(r.Context(), sess, body.Name, body.Description)
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusCreated, project)
			return
		}
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}

	// /api/projects/watch (SSE) — before project-id routes so "watch" is not
	// taken for an id.
	if len(parts) == 3 && parts[2] == "watch" && r.Method == http.MethodGet {
		s.handleWatch(w, r, sess)
		return
	}

	projectID := parts[2]

	// /api/projects/{id}
	if len(parts) == 3 {
		switch r.Method {
		case http.MethodGet:
			project, err := s.service.GetProject(r.Context(), sess, projectID)
			if err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, project)
			return
		case http.MethodPut:
			var body struct {
				Name        string `json:"name"`
				Description string `json:"description"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			project, err := s.service.UpdateProjectDetails(r.Context(), sess, projectID, body.Name, body.Description)
			s.respondProject(w, project, err)
			return
		case http.MethodDelete:
			if err := s.service.DeleteProject(r.Context(), sess, projectID); err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
			return
		}
		writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}

	if len(parts) == 4 {
		switch parts[3] {
		case "notes":
			if r.Method == http.MethodPut {
				var body struct {
					Notes string `json:"notes"`
				}
				if err := decodeBody(r, &body); err != nil {
					writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
					return
				}
				project, err := s.service.UpdateNotes(r.Context(), sess, projectID, body.Notes)
				s.respondProject(w, project, err)
				return
			}
		case "progress":
			if r.Method == http.MethodGet {
				report, err := s.service.Progress(r.Context(), sess, projectID)
				if err != nil {
					status, code, message, details := mapError(err)
					writeError(w, status, code, message, details)
					return
				}
				writeJSON(w, http.StatusOK, report)
				return
			}
		case "export":
			if r.Method == http.MethodGet {
				s.handleExport(w, r, sess, projectID)
				return
			}
		case "history":
			if r.Method == http.MethodGet {
				limit := 50
				if raw := r.URL.Query().Get("limit"); raw != "" {
					parsed, err := strconv.Atoi(raw)
					if err != nil {
						writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "limit must be an integer", nil)
						return
					}
					limit = parsed
				}
				entries, err := s.service.History(r.Context(), sess, projectID, limit)
				if err != nil {
					status, code, message, details := mapError(err)
					writeError(w, status, code, message, details)
					return
				}
				writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
				return
			}
		case "stakeholders":
			if r.Method == http.MethodPost {
				var body scoping.Stakeholder
				if err := decodeBody(r, &body); err != nil {
					writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
					return
				}
				project, err := s.service.AddStakeholder(r.Context(), sess, projectID, body)
				s.respondProject(w, project, err)
				return
			}
		case "scenario-selection":
			if r.Method == http.MethodPut {
				var body struct {
					ScenarioID string `json:"scenarioId"`
				}
				if err := decodeBody(r, &body); err != nil {
					writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
					return
				}
				project, err := s.service.SelectScenario(r.Context(), sess, projectID, body.ScenarioID)
				s.respondProject(w, project, err)
				return
			}
		}
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	if len(parts) == 5 {
		switch parts[3] {
		case "history":
			if r.Method == http.MethodGet {
				snapshot, err := s.service.HistorySnapshot(r.Context(), sess, projectID, parts[4])
				if err != nil {
					status, code, message, details := mapError(err)
					writeError(w, status, code, message, details)
					return
				}
				writeJSON(w, http.StatusOK, snapshot)
				return
			}
		case "stakeholders":
			stakeholderID := parts[4]
			switch r.Method {
			case http.MethodPut:
				var body scoping.Stakeholder
				if err := decodeBody(r, &body); err != nil {
					writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
					return
				}
				body.ID = stakeholderID
				project, err := s.service.UpdateStakeholder(r.Context(), sess, projectID, body)
				s.respondProject(w, project, err)
				return
			case http.MethodDelete:
				project, err := s.service.RemoveStakeholder(r.Context(), sess, projectID, stakeholderID)
				s.respondProject(w, project, err)
				return
			}
		}
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	// /api/projects/{id}/scenarios/{slot}/sections/{sectionId}
	if len(parts) == 7 && parts[3] == "scenarios" && parts[5] == "sections" && r.Method == http.MethodPut {
		slot, err := scoping.ParseSlot(parts[4])
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown scenario slot", nil)
			return
		}
		var body scoping.ScenarioContentUpdate
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		project, err := s.service.UpdateScenarioSection(r.Context(), sess, projectID, slot, parts[6], body)
		s.respondProject(w, project, err)
		return
	}

	// /api/projects/{id}/phases/{phase}/...
	if len(parts) >= 6 && parts[3] == "phases" {
		phase, err := scoping.ParsePhase(parts[4])
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown phase", nil)
			return
		}
		s.handlePhase(w, r, sess, projectID, phase, parts[5:])
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

// handlePhase routes everything under /api/projects/{id}/phases/{phase}.
// rest starts at the segment after the phase name.
func (s *HTTPServer) handlePhase(w http.ResponseWriter, r *http.Request, sess Session, projectID string, phase scoping.Phase, rest []string) {
	if !s.service.Can(sess.Role, rbac.ActionWrite) {
		writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
		return
	}
	ctx := r.Context()

	switch rest[0] {
	case "checklist":
		if len(rest) == 1 && r.Method == http.MethodPost {
			var body struct {
				Text string `json:"text"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			project, err := s.service.AddChecklistItem(ctx, sess, projectID, phase, body.Text)
			s.respondProject(w, project, err)
			return
		}
		if len(rest) == 2 && rest[1] == "reorder" && r.Method == http.MethodPut {
			var body struct {
				Source      int `json:"source"`
				Destination int `json:"destination"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			project, err := s.service.ReorderChecklist(ctx, sess, projectID, phase, body.Source, body.Destination)
			s.respondProject(w, project, err)
			return
		}
		if len(rest) == 2 {
			itemID := rest[1]
			switch r.Method {
			case http.MethodPut:
				var body struct {
					Checked  *bool `json:"checked"`
					IsHidden *bool `json:"isHidden"`
				}
				if err := decodeBody(r, &body); err != nil {
					writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
					return
				}
				project, err := s.service.UpdateChecklistItem(ctx, sess, projectID, phase, itemID, body.Checked, body.IsHidden)
				s.respondProject(w, project, err)
				return
			case http.MethodDelete:
				project, err := s.service.DeleteChecklistItem(ctx, sess, projectID, phase, itemID)
				s.respondProject(w, project, err)
				return
			}
		}
	case "sections":
		if len(rest) == 1 && r.Method == http.MethodPost {
			var body scoping.NewSectionInput
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			project, err := s.service.AddSection(ctx, sess, projectID, phase, body)
			s.respondProject(w, project, err)
			return
		}
		if len(rest) == 2 && rest[1] == "reorder" && r.Method == http.MethodPut {
			var body struct {
				Source      int `json:"source"`
				Destination int `json:"destination"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			project, err := s.service.ReorderSections(ctx, sess, projectID, phase, body.Source, body.Destination)
			s.respondProject(w, project, err)
			return
		}
		if len(rest) == 2 {
			sectionID := rest[1]
			switch r.Method {
			case http.MethodPut:
				var body scoping.SectionUpdate
				if err := decodeBody(r, &body); err != nil {
					writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
					return
				}
				project, err := s.service.UpdateSection(ctx, sess, projectID, phase, sectionID, body)
				s.respondProject(w, project, err)
				return
			case http.MethodDelete:
				project, err := s.service.DeleteSection(ctx, sess, projectID, phase, sectionID)
				s.respondProject(w, project, err)
				return
			}
		}
	case "validation":
		if len(rest) == 1 && r.Method == http.MethodPut {
			var body struct {
				Validated bool   `json:"validated"`
				Comment   string `json:"comment"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			project, err := s.service.SetValidation(ctx, sess, projectID, phase, body.Validated, body.Comment)
			s.respondProject(w, project, err)
			return
		}
	case "approvals":
		if len(rest) == 2 && r.Method == http.MethodPut {
			var body struct {
				Approved bool `json:"approved"`
			}
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			project, err := s.service.SetApproval(ctx, sess, projectID, phase, rest[1], body.Approved)
			s.respondProject(w, project, err)
			return
		}
		if len(rest) == 3 && rest[2] == "request" && r.Method == http.MethodPost {
			if err := s.service.RequestApproval(ctx, sess, projectID, phase, rest[1]); err != nil {
				status, code, message, details := mapError(err)
				writeError(w, status, code, message, details)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
			return
		}
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request, sess Session, projectID string) {
	if !s.service.Can(sess.Role, rbac.ActionExport) {
		writeError(w, http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
		return
	}
	query := r.URL.Query()

	phase, err := scoping.ParsePhase(query.Get("phase"))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown phase", nil)
		return
	}

	format := export.FormatPDF
	switch query.Get("format") {
	case "", "pdf":
	case "docx":
		format = export.FormatDOCX
	default:
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "format must be pdf or docx", nil)
		return
	}

	external := query.Get("external") == "true" || query.Get("external") == "1"

	result, err := s.service.Export(r.Context(), sess, projectID, phase, format, external)
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}

	header := w.Header()
	header.Set("Content-Type", result.MimeType)
	header.Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	header.Set("Content-Length", strconv.Itoa(len(result.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

// handleWatch streams post-write project snapshots over SSE until the client
// disconnects.
func (s *HTTPServer) handleWatch(w http.ResponseWriter, r *http.Request, sess Session) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Streaming unsupported", nil)
		return
	}

	events, cancel := s.service.Subscribe(sess)
	defer cancel()

	header := w.Header()
	header.Set("Content-Type", "text/event-stream")
	header.Set("Cache-Control", "no-cache")
	header.Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	heartbeat := time.NewTicker(25 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case event := <-events:
			payload, err := json.Marshal(event)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, payload)
			flusher.Flush()
		}
	}
}

// respondProject collapses the common "mutation returns the full snapshot"
// ending shared by every project write route.
func (s *HTTPServer) respondProject(w http.ResponseWriter, project scoping.Project, err error) {
	if err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}
	writeJSON(w, http.StatusOK, project)
}

func (s *HTTPServer) requireSession(w http.ResponseWriter, r *http.Request) (Session, bool) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return Session{}, false
	}
	sess, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) || errors.Is(err, auth.ErrInvalidToken) {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
			return Session{}, false
		}
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Session lookup failed", nil)
		return Session{}, false
	}
	return sess, true
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush lets the watch stream push events through the recorder.
func (r *statusRecorder) Flush() {
	if flusher, ok := r.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, sql.ErrNoRows) {
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	}
	if errors.Is(err, session.ErrSessionNotFound) {
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}
	if errors.Is(err, auth.ErrInvalidToken) || errors.Is(err, auth.ErrExpiredToken) {
		return http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}

// Auth handlers for email/password authentication

func (s *HTTPServer) handleAuthSignUp(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email       string `json:"email"`
		Password    string `json:"password"`
		DisplayName string `json:"displayName"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}

	user, err := s.service.AuthPasswordService().SignUp(r.Context(), authpw.SignUpRequest{
		Email:       body.Email,
		Password:    body.Password,
		DisplayName: body.DisplayName,
	})
	if err != nil {
		if errors.Is(err, authpw.ErrEmailTaken) {
			writeError(w, http.StatusConflict, "EMAIL_EXISTS", "Email already registered", nil)
			return
		}
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
		return
	}

	sess, err := s.service.CreateSession(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SESSION_FAILED", "Failed to create session", nil)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"accessToken":  sess.Token,
		"refreshToken": sess.RefreshToken,
		"userId":       sess.UserID,
		"userName":     sess.UserName,
		"role":         sess.Role,
		"expiresAt":    sess.ExpiresAt.Unix(),
	})
}

func (s *HTTPServer) handleAuthSignIn(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}

	user, err := s.service.AuthPasswordService().SignIn(r.Context(), authpw.SignInRequest{
		Email:    body.Email,
		Password: body.Password,
	})
	if err != nil {
		if errors.Is(err, authpw.ErrAccountDeactivated) {
			writeError(w, http.StatusForbidden, "ACCOUNT_DEACTIVATED", "Account deactivated", nil)
			return
		}
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
		return
	}

	sess, err := s.service.CreateSession(r.Context(), user.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "SESSION_FAILED", "Failed to create session", nil)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"accessToken":  sess.Token,
		"refreshToken": sess.RefreshToken,
		"userId":       sess.UserID,
		"userName":     sess.UserName,
		"role":         sess.Role,
		"expiresAt":    sess.ExpiresAt.Unix(),
	})
}

func (s *HTTPServer) handleChangePassword(w http.ResponseWriter, r *http.Request, sess Session) {
	var body struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}

	if err := s.service.AuthPasswordService().ChangePassword(r.Context(), sess.UserID, body.CurrentPassword, body.NewPassword); err != nil {
		if errors.Is(err, authpw.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Current password is incorrect", nil)
			return
		}
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
