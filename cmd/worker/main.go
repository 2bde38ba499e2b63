package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"roofing-backend/internal/bootstrap"
	"roofing-backend/internal/intake"
	"roofing-backend/internal/shared/config"
	"roofing-backend/internal/shared/telemetry"
	"roofing-backend/internal/workerproc"
)

const (
	defaultVisibilitySeconds = 300
	defaultWaitSeconds       = 20
	defaultMailPollMinutes   = 5
)

func main() {
	cfg := config.Load()

	queueURL := strings.TrimSpace(cfg.DocumentQueueURL)
	if queueURL == "" {
		log.Fatal("DOCUMENT_QUEUE_URL is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	visibilitySeconds := envInt("RB_SQS_VISIBILITY_TIMEOUT_SECONDS", defaultVisibilitySeconds)
	waitSeconds := envInt("RB_SQS_WAIT_TIME_SECONDS", defaultWaitSeconds)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		log.Fatalf("load aws config: %v", err)
	}
	var sqsClient sqsAPI = sqs.NewFromConfig(awsCfg)

	app, err := bootstrap.Build(cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}

	if app.MailPoller != nil {
		interval := time.Duration(envInt("RB_MAIL_POLL_INTERVAL_MINUTES", defaultMailPollMinutes)) * time.Minute
		go runMailPoller(ctx, app, interval)
	}

	log.Printf("worker started queue=%s visibility=%ds", queueURL, visibilitySeconds)

	for {
		select {
		case <-ctx.Done():
			log.Printf("shutdown requested")
			return
		default:
		}

		resp, err := sqsClient.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     int32(waitSeconds),
			VisibilityTimeout:   int32(visibilitySeconds),
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			log.Printf("receive message: %v", err)
			continue
		}
		if len(resp.Messages) == 0 {
			continue
		}

		records := make([]intake.Record, 0, len(resp.Messages))
		for _, msg := range resp.Messages {
			records = append(records, intake.Record{
				ID:   aws.ToString(msg.MessageId),
				Body: aws.ToString(msg.Body),
			})
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

		// The batch is acked whole: failed records are logged and counted
		// but not redelivered, matching the dead-letter policy being the
		// queue's concern.
		for _, msg := range resp.Messages {
			deleteMessage(ctx, sqsClient, queueURL, msg)
		}
	}
}

func runMailPoller(ctx context.Context, app *bootstrap.App, interval time.Duration) {
	log.Printf("mail poller started interval=%s", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if err := app.MailPoller.PollAll(ctx); err != nil {
			telemetry.Error("mailpoll.sweep.failed", map[string]any{"err": err.Error()})
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

func deleteMessage(ctx context.Context, client sqsAPI, queueURL string, msg sqstypes.Message) {
	receipt := aws.ToString(msg.ReceiptHandle)
	if receipt == "" {
		telemetry.Error("worker.delete.failed", map[string]any{
			"sqs_message_id": aws.ToString(msg.MessageId),
			"error":          "missing receipt handle",
		})
		return
	}
	if _, err := client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(queueURL),
		ReceiptHandle: aws.String(receipt),
	}); err != nil {
		telemetry.Error("worker.delete.failed", map[string]any{
			"sqs_message_id": aws.ToString(msg.MessageId),
			"error":          err.Error(),
		})
	}
}

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val <= 0 {
		return def
	}
	return val
}
