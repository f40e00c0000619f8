package server

import (
	"encoding/json"
	"io"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/kiban/internal/extract"
	"github.com/hyperjump/kiban/internal/models"
)

type ingestRequest struct {
	Text     string                 `json:"text"`
	Filename string                 `json:"filename"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

func (s *Server) handleIngestDocument(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	meta := req.Metadata
	if meta == nil {
		meta = map[string]interface{}{}
	}
	if req.Filename != "" {
		meta[models.MetaKeyFilename] = req.Filename
	}
	s.logger.Debug("ingest request", zap.String("filename", req.Filename), zap.Int("bytes", len(req.Text)))

	if !s.engine.Ingest(r.Context(), req.Text, meta) {
		s.respondError(w, http.StatusUnprocessableEntity, "document rejected: empty or insufficient content")
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"filename": req.Filename, "status": "ingested"})
}

func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	ext := filepath.Ext(header.Filename)
	if !extract.Supported(ext) {
		s.respondError(w, http.StatusUnsupportedMediaType, "unsupported file type: "+ext)
		return
	}
	content, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to read upload")
		return
	}
	text, err := extract.Extract(content, ext)
	if err != nil {
		s.logger.Error("extraction failed", zap.String("filename", header.Filename), zap.Error(err))
		s.respondError(w, http.StatusUnprocessableEntity, "failed to extract text: "+err.Error())
		return
	}

	meta := map[string]interface{}{
		models.MetaKeyFilename: header.Filename,
		"content_type":         header.Header.Get("Content-Type"),
		"size_bytes":           header.Size,
	}
	if !s.engine.Ingest(r.Context(), text, meta) {
		s.respondError(w, http.StatusUnprocessableEntity, "document rejected: empty or insufficient content")
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]string{"filename": header.Filename, "status": "ingested"})
}

type documentSummary struct {
	ID       int                    `json:"id"`
	Filename string                 `json:"filename"`
	Chunks   int                    `json:"chunks"`
	Metadata map[string]interface{} `json:"metadata"`
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs := s.engine.Documents()
	summaries := make([]documentSummary, len(docs))
	for i, doc := range docs {
		summaries[i] = documentSummary{
			ID:       doc.ID,
			Filename: doc.Filename(),
			Chunks:   len(doc.Chunks),
			Metadata: doc.Metadata,
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"documents": summaries,
		"total":     len(summaries),
	})
}

func (s *Server) handleClearDocuments(w http.ResponseWriter, r *http.Request) {
	stats := s.engine.Clear()
	s.logger.Info("knowledge base cleared",
		zap.Int("documents", stats.DocumentsRemoved), zap.Int("chunks", stats.ChunksRemoved))
	s.respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var query models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&query); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request", zap.String("query", query.Query), zap.Int("top_k", query.TopK))
	s.respondJSON(w, http.StatusOK, s.engine.Search(r.Context(), query.Query, query.TopK))
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Message == "" {
		s.respondError(w, http.StatusBadRequest, "message is required")
		return
	}

	answer := s.engine.Ask(r.Context(), req.Message)
	answer.SessionID = req.SessionID
	if s.history != nil {
		sessionID, err := s.history.Record(r.Context(), req.SessionID, req.Message, answer.Response, answer.Confidence)
		if err != nil {
			s.logger.Warn("failed to record chat history", zap.Error(err))
		} else {
			answer.SessionID = sessionID
		}
	}
	s.respondJSON(w, http.StatusOK, answer)
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.respondError(w, http.StatusNotImplemented, "chat history not enabled")
		return
	}
	sessionID := chi.URLParam(r, "sessionID")
	messages, err := s.history.Messages(r.Context(), sessionID)
	if err != nil {
		s.logger.Error("failed to load chat history", zap.String("session_id", sessionID), zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"session_id": sessionID,
		"messages":   messages,
		"total":      len(messages),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.engine.Status()
	resp := map[string]interface{}{
		"documents":           status.Documents,
		"chunks":              status.Chunks,
		"mode":                status.Mode,
		"embedding_available": status.EmbeddingAvailable,
		"store_size_bytes":    status.StoreSizeBytes,
	}
	if s.history != nil {
		if n, err := s.history.CountSessions(r.Context()); err == nil {
			resp["chat_sessions"] = n
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
