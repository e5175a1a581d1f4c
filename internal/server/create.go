package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/raphaelgruber/studyforge/internal/extract"
	"github.com/raphaelgruber/studyforge/internal/jobs"
	"github.com/raphaelgruber/studyforge/internal/models"
)

// createdResponse acknowledges an accepted job. The estimate is a UX hint in
// seconds; the job may finish earlier or later.
type createdResponse struct {
	JobID         string  `json:"jobId"`
	EstimatedTime float64 `json:"estimatedTime"`
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return validationf("invalid request body: %v", err)
	}
	return nil
}

// accept creates the job, detaches its worker and acknowledges the request.
// Everything that can fail validation has already been checked by the caller;
// errors past this point live on the job record.
func (s *Server) accept(w http.ResponseWriter, user string, t jobs.Type, data jobs.Data, contentLength, itemCount int) {
	job, err := s.store.Create(user, t, data)
	if err != nil {
		writeError(w, err)
		return
	}
	s.pipeline.Start(job)

	writeJSON(w, http.StatusAccepted, createdResponse{
		JobID:         job.ID,
		EstimatedTime: jobs.EstimateDuration(t, contentLength, itemCount).Seconds(),
	})
}

// handleUpload accepts a multipart document upload, spools it to disk and
// starts a file_upload job.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadSize)
	if err := r.ParseMultipartForm(4 << 20); err != nil {
		writeError(w, validationf("invalid multipart body: %v", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, validationf("missing file field"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if _, err := extract.DetectFormat(header.Filename, contentType); err != nil {
		writeError(w, validationf("%v", err))
		return
	}

	tmp, err := os.CreateTemp(s.cfg.UploadDir, "studyforge-*"+filepath.Ext(header.Filename))
	if err != nil {
		writeError(w, fmt.Errorf("create spool file: %w", err))
		return
	}
	size, err := io.Copy(tmp, file)
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		writeError(w, fmt.Errorf("spool upload: %w", err))
		return
	}

	s.accept(w, userID(r), jobs.TypeFileUpload, jobs.UploadData{
		FileName:    header.Filename,
		ContentType: contentType,
		SizeBytes:   size,
		TempPath:    tmp.Name(),
	}, int(size), 0)
}

type uploadTextRequest struct {
	Text     string `json:"text"`
	FileName string `json:"fileName"`
}

// handleUploadText starts a file_upload job from pasted plain text.
func (s *Server) handleUploadText(w http.ResponseWriter, r *http.Request) {
	var req uploadTextRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		writeError(w, validationf("text is required"))
		return
	}
	if int64(len(text)) > s.cfg.MaxUploadSize {
		writeError(w, validationf("text exceeds %d bytes", s.cfg.MaxUploadSize))
		return
	}

	s.accept(w, userID(r), jobs.TypeFileUpload, jobs.UploadData{
		FileName:  req.FileName,
		SizeBytes: int64(len(text)),
		RawText:   text,
	}, len(text), 0)
}

// sourceRef is the common input reference of the generation endpoints: either
// inline text or the id of a completed document job whose extracted text is
// snapshotted into the new job.
type sourceRef struct {
	SourceJobID string `json:"sourceJobId"`
	Text        string `json:"text"`
}

// resolveText validates the reference synchronously so a bad source is a
// request error, not a failed job.
func (s *Server) resolveText(user string, ref sourceRef) (string, error) {
	if ref.SourceJobID == "" {
		text := strings.TrimSpace(ref.Text)
		if text == "" {
			return "", validationf("either sourceJobId or text is required")
		}
		return text, nil
	}

	src, err := s.store.Get(ref.SourceJobID)
	if err != nil {
		return "", err
	}
	if src.UserID != user {
		return "", fmt.Errorf("job %s: %w", ref.SourceJobID, jobs.ErrNotFound)
	}
	if src.Status != jobs.StatusCompleted {
		return "", fmt.Errorf("source job %s is %s, not completed: %w", ref.SourceJobID, src.Status, jobs.ErrConflict)
	}
	result, ok := src.Result.(jobs.UploadResult)
	if !ok {
		return "", validationf("source job %s is not a document job", ref.SourceJobID)
	}
	if result.Text == "" {
		return "", validationf("source job %s holds no extracted text", ref.SourceJobID)
	}
	return result.Text, nil
}

func validSummaryLength(l models.SummaryLength) bool {
	switch l {
	case "", models.SummaryShort, models.SummaryMedium, models.SummaryLong:
		return true
	}
	return false
}

type summaryRequest struct {
	sourceRef
	Length   models.SummaryLength `json:"length"`
	Language string               `json:"language"`
}

func (s *Server) handleCreateSummary(w http.ResponseWriter, r *http.Request) {
	var req summaryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if !validSummaryLength(req.Length) {
		writeError(w, validationf("unsupported summary length: %s", req.Length))
		return
	}
	user := userID(r)
	text, err := s.resolveText(user, req.sourceRef)
	if err != nil {
		writeError(w, err)
		return
	}

	s.accept(w, user, jobs.TypeSummary, jobs.SummaryData{
		Text:          text,
		SourceJobID:   req.SourceJobID,
		ContentLength: len(text),
		Length:        req.Length,
		Language:      req.Language,
	}, len(text), 1)
}

type multiSummaryRequest struct {
	sourceRef
	Lengths []models.SummaryLength `json:"lengths"`
}

func (s *Server) handleCreateMultiSummary(w http.ResponseWriter, r *http.Request) {
	var req multiSummaryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if len(req.Lengths) == 0 {
		req.Lengths = []models.SummaryLength{models.SummaryShort, models.SummaryMedium, models.SummaryLong}
	}
	for _, l := range req.Lengths {
		if l == "" || !validSummaryLength(l) {
			writeError(w, validationf("unsupported summary length: %s", l))
			return
		}
	}
	user := userID(r)
	text, err := s.resolveText(user, req.sourceRef)
	if err != nil {
		writeError(w, err)
		return
	}

	s.accept(w, user, jobs.TypeMultiSummary, jobs.MultiSummaryData{
		Text:          text,
		SourceJobID:   req.SourceJobID,
		ContentLength: len(text),
		Lengths:       req.Lengths,
	}, len(text), len(req.Lengths))
}

type examRequest struct {
	sourceRef
	QuestionCount int    `json:"questionCount"`
	Difficulty    string `json:"difficulty"`
}

func (s *Server) handleCreateExam(w http.ResponseWriter, r *http.Request) {
	var req examRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	count := req.QuestionCount
	if count == 0 {
		count = 10
	}
	if count < 1 || count > 100 {
		writeError(w, validationf("questionCount must be between 1 and 100"))
		return
	}
	switch req.Difficulty {
	case "", "easy", "medium", "hard":
	default:
		writeError(w, validationf("unsupported difficulty: %s", req.Difficulty))
		return
	}
	user := userID(r)
	text, err := s.resolveText(user, req.sourceRef)
	if err != nil {
		writeError(w, err)
		return
	}

	s.accept(w, user, jobs.TypeExam, jobs.ExamData{
		Text:          text,
		SourceJobID:   req.SourceJobID,
		ContentLength: len(text),
		QuestionCount: count,
		Difficulty:    req.Difficulty,
	}, len(text), count)
}

type questionsRequest struct {
	sourceRef
	Types        []models.QuestionType `json:"types"`
	CountPerType int                   `json:"countPerType"`
}

func (s *Server) handleCreateQuestions(w http.ResponseWriter, r *http.Request) {
	var req questionsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if len(req.Types) == 0 {
		writeError(w, validationf("at least one question type is required"))
		return
	}
	for _, qt := range req.Types {
		if !models.ValidQuestionType(qt) {
			writeError(w, validationf("unsupported question type: %s", qt))
			return
		}
	}
	count := req.CountPerType
	if count == 0 {
		count = 5
	}
	if count < 1 || count > 50 {
		writeError(w, validationf("countPerType must be between 1 and 50"))
		return
	}
	user := userID(r)
	text, err := s.resolveText(user, req.sourceRef)
	if err != nil {
		writeError(w, err)
		return
	}

	s.accept(w, user, jobs.TypeQuestions, jobs.QuestionsData{
		Text:          text,
		SourceJobID:   req.SourceJobID,
		ContentLength: len(text),
		Types:         req.Types,
		CountPerType:  count,
	}, len(text), count*len(req.Types))
}
