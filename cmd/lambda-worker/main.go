package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=amd64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"log"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"content-analyzer/internal/bootstrap"
	"content-analyzer/internal/shared/config"
	"content-analyzer/internal/shared/metrics"
	"content-analyzer/internal/shared/telemetry"
	"content-analyzer/internal/shared/util"
	"content-analyzer/internal/workerproc"
)

var (
	initOnce sync.Once
	initErr  error
	app      *bootstrap.App
)

func initApp() {
	cfg := config.Load()
	built, err := bootstrap.Build(context.Background(), cfg)
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

	failures := make([]events.SQSBatchItemFailure, 0)
	for _, record := range event.Records {
		if err := process(ctx, app.Worker, record); err != nil {
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
	}

	return events.SQSEventResponse{BatchItemFailures: failures}, nil
}

// process returns an error only when the record should be redelivered.
func process(ctx context.Context, proc *workerproc.Processor, record events.SQSMessage) error {
	metrics.IncJobsReceived()
	fields := map[string]any{"sqs_message_id": record.MessageId}

	msg, _, err := workerproc.ParseMessage(record.Body)
	if err != nil {
		fields["error"] = err.Error()
		telemetry.Error("worker.message.decode_failed", fields)
		metrics.IncJobsDeletedUnrecoverable()
		return nil
	}
	fields["source_key"] = msg.SourceKey

	rec, err := proc.Process(ctx, msg)
	if err != nil {
		fields["error"] = util.SanitizeError(err)
		telemetry.Error("worker.message.failed", fields)
		if workerproc.Permanent(err) {
			metrics.IncJobsDeletedUnrecoverable()
			return nil
		}
		metrics.IncJobsFailed()
		return err
	}
	fields["result_id"] = rec.ID
	telemetry.Info("worker.message.completed", fields)
	metrics.IncJobsCompleted()
	return nil
}

func main() {
	lambda.Start(handler)
}
