package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=amd64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"log"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"roofing-backend/internal/bootstrap"
	"roofing-backend/internal/intake"
	"roofing-backend/internal/shared/config"
	"roofing-backend/internal/shared/telemetry"
	"roofing-backend/internal/workerproc"
)

var (
	initOnce sync.Once
	initErr  error
	app      *bootstrap.App
)

func initApp() {
	cfg := config.Load()
	built, err := bootstrap.Build(cfg)
	if err != nil {
		initErr = err
		return
	}
	app = built
}

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	initOnce.Do(initApp)
	if initErr != nil {
		log.Printf("bootstrap error: %v", initErr)
		failures := make([]events.SQSBatchItemFailure, 0, len(event.Records))
		for _, record := range event.Records {
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
		return events.SQSEventResponse{BatchItemFailures: failures}, initErr
	}

	records := make([]intake.Record, 0, len(event.Records))
	for _, record := range event.Records {
		records = append(records, intake.Record{ID: record.MessageId, Body: record.Body})
	}

	report, err := workerproc.HandleBatch(ctx, app.Processor, records)
	if err != nil {
		log.Printf("handle batch: %v", err)
	} else {
		telemetry.Info("worker.batch.done", map[string]any{
			"received":  len(records),
			"succeeded": report.Succeeded,
			"failed":    len(report.Failed),
		})
	}

	// Always ack the whole batch; failed records were logged and counted
	// and retrying them cannot change the outcome.
	return events.SQSEventResponse{BatchItemFailures: []events.SQSBatchItemFailure{}}, nil
}

func main() {
	lambda.Start(handler)
}
