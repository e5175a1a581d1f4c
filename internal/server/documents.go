package server

import (
	"net/http"
	"strconv"
)

// The document endpoints serve artifacts that outlive the in-memory job
// records. They require a configured document store.

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	if s.docs == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "document persistence is disabled"})
		return
	}
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxListLimit {
			writeError(w, validationf("limit must be between 1 and %d", maxListLimit))
			return
		}
		limit = n
	}

	docs, err := s.docs.ListDocuments(r.Context(), userID(r), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	if s.docs == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "document persistence is disabled"})
		return
	}
	doc, err := s.docs.GetDocument(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if s.docs == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "document persistence is disabled"})
		return
	}
	if err := s.docs.DeleteDocument(r.Context(), userID(r), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
