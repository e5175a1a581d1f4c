package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/raphaelgruber/studyforge/internal/extract"
	"github.com/raphaelgruber/studyforge/internal/jobs"
	"github.com/raphaelgruber/studyforge/internal/metrics"
	"github.com/raphaelgruber/studyforge/internal/models"
)

// runUpload extracts an uploaded document, analyzes it and persists it.
// The spool file is removed whether the job succeeds or fails.
func (p *Pipeline) runUpload(ctx context.Context, job jobs.Job) error {
	data, ok := job.Data.(jobs.UploadData)
	if !ok {
		return fmt.Errorf("unexpected payload %T for %s job", job.Data, job.Type)
	}
	if data.TempPath != "" {
		defer func() {
			if err := os.Remove(data.TempPath); err != nil && !os.IsNotExist(err) {
				slog.Warn("removing spool file failed", "path", data.TempPath, "error", err)
			}
		}()
	}

	if err := p.checkpoint(ctx, job.ID, 10); err != nil {
		return err
	}

	var (
		res *extract.Result
		err error
	)
	start := time.Now()
	if data.TempPath != "" {
		ectx, cancel := context.WithTimeout(ctx, p.extractTimeout)
		res, err = extract.File(ectx, data.TempPath, data.FileName, data.ContentType)
		cancel()
	} else {
		res = extract.FromText(data.RawText)
	}
	if err != nil {
		return fmt.Errorf("extract %s: %w", data.FileName, err)
	}
	p.metrics.RecordTiming(metrics.OpExtraction, time.Since(start))

	if err := p.checkpoint(ctx, job.ID, 50); err != nil {
		return err
	}

	// Analysis enriches the metadata but never fails the upload.
	var (
		analysis *models.ContentAnalysis
		usage    models.Usage
	)
	if p.gen != nil && res.Text != "" {
		analysisStart := time.Now()
		actx, cancel := context.WithTimeout(ctx, p.llmTimeout)
		a, u, aerr := p.gen.Analyze(actx, res.Text)
		cancel()
		usage.Add(u)
		if aerr != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Warn("content analysis failed", "job_id", job.ID, "error", aerr)
		} else {
			analysis = &a
			res.Metadata.Language = a.Language
			res.Metadata.Subject = a.Subject
			p.metrics.RecordLLMUsage(metrics.OpAnalysis, time.Since(analysisStart), u.InputTokens, u.OutputTokens)
		}
	}

	if err := p.checkpoint(ctx, job.ID, 85); err != nil {
		return err
	}

	documentID := ""
	if p.docs != nil {
		saveStart := time.Now()
		doc, serr := p.docs.CreateDocument(ctx, models.DocumentInput{
			UserID:     job.UserID,
			Title:      documentTitle(data, res),
			FileName:   data.FileName,
			SourceType: sourceType(data),
			Text:       res.Text,
			Metadata:   res.Metadata,
		})
		if serr != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			slog.Warn("persisting document failed", "job_id", job.ID, "error", serr)
		} else {
			documentID = models.MustRecordIDString(doc.ID)
			p.metrics.RecordTiming(metrics.OpDocumentSave, time.Since(saveStart))
		}
	}

	return p.complete(job, jobs.UploadResult{
		DocumentID: documentID,
		Text:       res.Text,
		Metadata:   res.Metadata,
		Analysis:   analysis,
	}, usage)
}

func documentTitle(data jobs.UploadData, res *extract.Result) string {
	if res.Metadata.Title != "" {
		return res.Metadata.Title
	}
	if data.FileName != "" {
		return strings.TrimSuffix(data.FileName, filepath.Ext(data.FileName))
	}
	return "Pasted text"
}

func sourceType(data jobs.UploadData) string {
	if data.TempPath != "" {
		return "upload"
	}
	return "text"
}
