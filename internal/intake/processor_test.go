package intake

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"roofing-backend/internal/documents"
	"roofing-backend/internal/projects"
	"roofing-backend/internal/queue"
	"roofing-backend/internal/usage"
	"roofing-backend/internal/users"
)

type processorFixture struct {
	processor *Processor
	store     *memStore
	docs      *documents.MemoryRepo
	projects  *projects.MemoryRepo
	users     *users.MemoryRepo
	usage     *usage.Service
	sender    *fakeSender
	extractor *fakeExtractor
	media     *fakeDownloader
}

func newProcessorFixture() *processorFixture {
	store := newMemStore()
	docs := documents.NewMemoryRepo()
	projectRepo := projects.NewMemoryRepo()
	userRepo := users.NewMemoryRepo()
	usageSvc := usage.NewService(usage.NewMemoryStore())
	sender := &fakeSender{}
	extractor := &fakeExtractor{output: `{"document_type":"invoice","confidence":0.9,"extracted_text":"INVOICE","summary":"An invoice.","suggested_project":"Oak St"}`}
	media := &fakeDownloader{data: []byte("jpeg"), mimeType: "image/jpeg"}

	processor := NewProcessor(
		&Fetcher{Media: media, Store: store},
		&Engine{Extractor: extractor},
		NewWriter(store, "docs-bucket", docs),
		&projects.Resolver{Repo: projectRepo},
		projectRepo,
		&Notifier{Users: userRepo, Sender: sender},
		usageSvc,
	)

	return &processorFixture{
		processor: processor,
		store:     store,
		docs:      docs,
		projects:  projectRepo,
		users:     userRepo,
		usage:     usageSvc,
		sender:    sender,
		extractor: extractor,
		media:     media,
	}
}

func record(t *testing.T, id string, msg queue.Message) Record {
	t.Helper()
	body, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return Record{ID: id, Body: string(body)}
}

func TestProcessBatchHappyPath(t *testing.T) {
	fx := newProcessorFixture()
	fx.users.Put(users.User{ID: "u1", TenantID: "t1", PhoneNumber: "15550001111"})
	if err := fx.projects.Create(context.Background(), projects.Project{
		ID: "p1", TenantID: "t1", Name: "Oak St Reroof", CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("seed project: %v", err)
	}

	report := fx.processor.ProcessBatch(context.Background(), []Record{
		record(t, "r1", queue.Message{Type: queue.TypeWhatsAppMedia, TenantID: "t1", UserID: "u1", MediaID: "m1", MediaType: "image/jpeg"}),
	})

	if report.Succeeded != 1 || len(report.Failed) != 0 {
		t.Fatalf("report = %+v", report)
	}
	docs, _ := fx.docs.ListByTenant(context.Background(), "t1", 10, 0)
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	doc := docs[0]
	if doc.ProjectID != "p1" {
		t.Errorf("project id = %q, want resolved p1", doc.ProjectID)
	}
	if doc.DocumentType != DocTypeInvoice {
		t.Errorf("document type = %q", doc.DocumentType)
	}
	if !strings.Contains(doc.BlobKey, "t1/projects/p1/invoice/") {
		t.Errorf("blob key = %q", doc.BlobKey)
	}

	if len(fx.sender.body) != 1 || !strings.Contains(fx.sender.body[0], "An invoice. Filed to: Oak St Reroof") {
		t.Errorf("notification = %v", fx.sender.body)
	}

	u, err := fx.usage.Current(context.Background(), "t1", time.Now())
	if err != nil {
		t.Fatalf("usage: %v", err)
	}
	if u.DocumentsProcessed != 1 {
		t.Errorf("documents processed = %d", u.DocumentsProcessed)
	}
	if u.WhatsAppSent != 1 {
		t.Errorf("whatsapp sent = %d", u.WhatsAppSent)
	}
}

func TestProcessBatchIsolatesFailures(t *testing.T) {
	fx := newProcessorFixture()

	report := fx.processor.ProcessBatch(context.Background(), []Record{
		{ID: "bad-json", Body: "{{{"},
		record(t, "good", queue.Message{Type: queue.TypeWhatsAppMedia, TenantID: "t1", MediaID: "m1", MediaType: "image/jpeg"}),
		record(t, "no-tenant", queue.Message{Type: queue.TypeWhatsAppMedia, MediaID: "m2"}),
	})

	if report.Succeeded != 1 {
		t.Fatalf("succeeded = %d, want 1", report.Succeeded)
	}
	if len(report.Failed) != 2 {
		t.Fatalf("failed = %d, want 2", len(report.Failed))
	}
	failedIDs := map[string]bool{}
	for _, f := range report.Failed {
		failedIDs[f.ItemID] = true
	}
	if !failedIDs["bad-json"] || !failedIDs["no-tenant"] {
		t.Fatalf("failed ids = %v", report.Failed)
	}
}

func TestProcessExplicitProjectSkipsResolver(t *testing.T) {
	fx := newProcessorFixture()
	// Another project matches the model's suggestion; the explicit id from
	// the conversation must win.
	if err := fx.projects.Create(context.Background(), projects.Project{
		ID: "suggested", TenantID: "t1", Name: "Oak St", CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("seed project: %v", err)
	}
	if err := fx.projects.Create(context.Background(), projects.Project{
		ID: "explicit", TenantID: "t1", Name: "Pine Ave", CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("seed project: %v", err)
	}

	report := fx.processor.ProcessBatch(context.Background(), []Record{
		record(t, "r1", queue.Message{Type: queue.TypeWhatsAppMedia, TenantID: "t1", ProjectID: "explicit", MediaID: "m1", MediaType: "image/jpeg"}),
	})
	if report.Succeeded != 1 {
		t.Fatalf("report = %+v", report)
	}
	docs, _ := fx.docs.ListByTenant(context.Background(), "t1", 10, 0)
	if docs[0].ProjectID != "explicit" {
		t.Fatalf("project id = %q, want explicit", docs[0].ProjectID)
	}
}

func TestProcessUnresolvedSuggestionStaysUnfiled(t *testing.T) {
	fx := newProcessorFixture()

	report := fx.processor.ProcessBatch(context.Background(), []Record{
		record(t, "r1", queue.Message{Type: queue.TypeWhatsAppMedia, TenantID: "t1", MediaID: "m1", MediaType: "image/jpeg"}),
	})
	if report.Succeeded != 1 {
		t.Fatalf("report = %+v", report)
	}
	docs, _ := fx.docs.ListByTenant(context.Background(), "t1", 10, 0)
	if docs[0].ProjectID != "" {
		t.Fatalf("project id = %q, want unfiled", docs[0].ProjectID)
	}
	if !strings.Contains(docs[0].BlobKey, "t1/general/invoice/") {
		t.Fatalf("blob key = %q", docs[0].BlobKey)
	}
}

func TestProcessDegradedStillPersists(t *testing.T) {
	fx := newProcessorFixture()
	fx.users.Put(users.User{ID: "u1", TenantID: "t1", PhoneNumber: "15550001111"})
	fx.extractor.output = "the model refused to answer"

	report := fx.processor.ProcessBatch(context.Background(), []Record{
		record(t, "r1", queue.Message{Type: queue.TypeWhatsAppMedia, TenantID: "t1", UserID: "u1", MediaID: "m1", MediaType: "image/jpeg"}),
	})
	if report.Succeeded != 1 {
		t.Fatalf("report = %+v", report)
	}
	docs, _ := fx.docs.ListByTenant(context.Background(), "t1", 10, 0)
	doc := docs[0]
	if doc.DocumentType != DocTypeOther {
		t.Errorf("document type = %q, want other", doc.DocumentType)
	}
	if doc.Metadata.Confidence != 0.5 {
		t.Errorf("confidence = %v, want 0.5", doc.Metadata.Confidence)
	}
	if len(fx.sender.body) != 1 || !strings.Contains(fx.sender.body[0], "(Not linked to a project yet)") {
		t.Errorf("notification = %v", fx.sender.body)
	}
}

func TestProcessFetchFailureFailsRecord(t *testing.T) {
	fx := newProcessorFixture()
	fx.media.err = context.DeadlineExceeded

	report := fx.processor.ProcessBatch(context.Background(), []Record{
		record(t, "r1", queue.Message{Type: queue.TypeWhatsAppMedia, TenantID: "t1", MediaID: "m1"}),
	})
	if report.Succeeded != 0 || len(report.Failed) != 1 {
		t.Fatalf("report = %+v", report)
	}
	docs, _ := fx.docs.ListByTenant(context.Background(), "t1", 10, 0)
	if len(docs) != 0 {
		t.Fatalf("no document should persist, got %d", len(docs))
	}
}
