package intake

import (
	"context"
	"fmt"
	"time"

	"roofing-backend/internal/projects"
	"roofing-backend/internal/queue"
	"roofing-backend/internal/shared/metrics"
	"roofing-backend/internal/shared/telemetry"
	"roofing-backend/internal/usage"
)

// Record is one queue delivery: an opaque id for ack bookkeeping plus the raw
// JSON body.
type Record struct {
	ID   string
	Body string
}

// ItemFailure identifies one record that could not be processed.
type ItemFailure struct {
	ItemID string
	Err    error
}

// Report summarizes a batch run.
type Report struct {
	Succeeded int
	Failed    []ItemFailure
}

// Processor drives one record through fetch, extract, resolve, persist and
// notify. Resolve, usage accounting and notification are best effort; only
// fetch, extract dispatch and persistence can fail a record.
type Processor struct {
	Fetcher  *Fetcher
	Engine   *Engine
	Writer   *Writer
	Resolver *projects.Resolver
	Projects projects.Repo
	Notifier *Notifier
	Usage    *usage.Service

	// Parse decodes a raw record body. The worker installs its typed parser
	// here; the default is a plain JSON decode.
	Parse func(body string) (queue.Message, error)

	now func() time.Time
}

// NewProcessor constructs a Processor.
func NewProcessor(fetcher *Fetcher, engine *Engine, writer *Writer, resolver *projects.Resolver, projectRepo projects.Repo, notifier *Notifier, usageSvc *usage.Service) *Processor {
	return &Processor{
		Fetcher:  fetcher,
		Engine:   engine,
		Writer:   writer,
		Resolver: resolver,
		Projects: projectRepo,
		Notifier: notifier,
		Usage:    usageSvc,
		Parse: func(body string) (queue.Message, error) {
			return queue.DecodeMessage([]byte(body))
		},
		now: time.Now,
	}
}

// ProcessBatch handles records sequentially. One record's failure never
// blocks the rest; a panic inside a record is contained and counted as that
// record's failure.
func (p *Processor) ProcessBatch(ctx context.Context, records []Record) Report {
	var report Report
	for _, record := range records {
		metrics.IncIntakeRecordsReceived()
		start := p.now()

		err := p.processOne(ctx, record)
		metrics.ObserveIntakeDurationMs(float64(p.now().Sub(start).Milliseconds()))

		if err != nil {
			metrics.IncIntakeRecordsFailed()
			telemetry.Error("intake.record.failed", map[string]any{
				"record_id": record.ID,
				"err":       err.Error(),
			})
			report.Failed = append(report.Failed, ItemFailure{ItemID: record.ID, Err: err})
			continue
		}
		metrics.IncIntakeRecordsProcessed()
		report.Succeeded++
	}
	return report
}

func (p *Processor) processOne(ctx context.Context, record Record) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	msg, err := p.Parse(record.Body)
	if err != nil {
		return fmt.Errorf("decode record: %w", err)
	}

	art, err := ArtifactFromMessage(msg)
	if err != nil {
		return err
	}

	data, mediaType, err := p.Fetcher.Fetch(ctx, art)
	if err != nil {
		return err
	}

	ext := p.Engine.Extract(ctx, data, mediaType, art.MessageText)
	if ext.Degraded {
		metrics.IncExtractionsDegraded()
		telemetry.Warn("intake.extraction.degraded", map[string]any{
			"tenant_id": art.TenantID,
			"record_id": record.ID,
			"reason":    ext.Reason,
		})
	}

	projectID := p.resolveProject(ctx, art, ext)

	doc, err := p.Writer.Write(ctx, art, projectID, mediaType, data, ext)
	if err != nil {
		return err
	}

	telemetry.Info("intake.document.processed", map[string]any{
		"tenant_id":     art.TenantID,
		"document_id":   doc.ID,
		"document_type": doc.DocumentType,
		"project_id":    doc.ProjectID,
		"source":        doc.Source,
	})

	if p.Usage != nil {
		delta := usage.Delta{DocumentsProcessed: 1}
		if err := p.Usage.Increment(ctx, art.TenantID, p.now(), delta); err != nil {
			telemetry.Warn("intake.usage.increment_failed", map[string]any{
				"tenant_id": art.TenantID,
				"err":       err.Error(),
			})
		}
	}

	if p.Notifier != nil {
		sent := p.Notifier.Notify(ctx, art, doc, p.projectName(ctx, art.TenantID, doc.ProjectID))
		if sent && p.Usage != nil {
			if err := p.Usage.Increment(ctx, art.TenantID, p.now(), usage.Delta{WhatsAppSent: 1}); err != nil {
				telemetry.Warn("intake.usage.increment_failed", map[string]any{
					"tenant_id": art.TenantID,
					"err":       err.Error(),
				})
			}
		}
	}
	return nil
}

// resolveProject picks the project to file under. An explicit project id from
// the producer wins; otherwise the model's suggestion is matched against the
// tenant's catalog. Resolution failures leave the document unfiled.
func (p *Processor) resolveProject(ctx context.Context, art Artifact, ext Extraction) string {
	if art.ProjectID != "" {
		return art.ProjectID
	}
	if p.Resolver == nil {
		return ""
	}
	projectID, err := p.Resolver.Resolve(ctx, art.TenantID, ext.Result.SuggestedProject)
	if err != nil {
		telemetry.Warn("intake.resolve.failed", map[string]any{
			"tenant_id": art.TenantID,
			"hint":      ext.Result.SuggestedProject,
			"err":       err.Error(),
		})
		return ""
	}
	return projectID
}

func (p *Processor) projectName(ctx context.Context, tenantID, projectID string) string {
	if projectID == "" || p.Projects == nil {
		return ""
	}
	project, err := p.Projects.GetByID(ctx, tenantID, projectID)
	if err != nil {
		return ""
	}
	return project.Name
}
