package trigger

import (
	"context"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"
)

// SQSHandler is a Lambda handler for SQS batches. Messages whose files hit a
// retryable error are reported back as batch item failures so only they are
// redelivered.
type SQSHandler struct {
	proc Processor
}

// NewSQSHandler returns a handler that processes files with proc.
func NewSQSHandler(proc Processor) *SQSHandler {
	return &SQSHandler{proc: proc}
}

// Handle processes every message in ev. It never returns an error, so a bad
// message cannot cause redelivery of the whole batch.
func (h *SQSHandler) Handle(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	for _, msg := range ev.Records {
		res := Handle(ctx, h.proc, "sqs", []byte(msg.Body))
		if res == Failed {
			slog.Warn("message will be redelivered", "message_id", msg.MessageId)
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{
				ItemIdentifier: msg.MessageId,
			})
		}
	}
	return resp, nil
}
