package sqs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	dispatch "cronkeeper/internal/dispatch/iface"
	"cronkeeper/internal/domain"
	"cronkeeper/internal/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// SendMessageAPI is the part of the SQS client the dispatcher uses
type SendMessageAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// DispatcherConfig holds configuration for the SQS dispatcher
type DispatcherConfig struct {
	QueueURL string
}

type sqsDispatcher struct {
	client SendMessageAPI
	config DispatcherConfig
	fifo   bool
	logger logger.Logger
}

// NewSQSDispatcher creates a dispatcher that sends each execution request as
// a JSON message. FIFO queues are grouped by job id and deduplicated by execution id.
func NewSQSDispatcher(client SendMessageAPI, config DispatcherConfig, log logger.Logger) (dispatch.Dispatcher, error) {
	if config.QueueURL == "" {
		return nil, errors.New("sqs queue url is required")
	}
	return &sqsDispatcher{
		client: client,
		config: config,
		fifo:   strings.HasSuffix(config.QueueURL, ".fifo"),
		logger: log.With(logger.String("component", "sqs_dispatcher")),
	}, nil
}

func (d *sqsDispatcher) Dispatch(ctx context.Context, req *domain.ExecutionRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal execution request: %w", err)
	}

	jobID := strconv.FormatInt(req.JobID, 10)
	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(d.config.QueueURL),
		MessageBody: aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"job_id": {
				DataType:    aws.String("Number"),
				StringValue: aws.String(jobID),
			},
			"trigger_type": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(req.TriggerType)),
			},
		},
	}
	if d.fifo {
		input.MessageGroupId = aws.String(jobID)
		input.MessageDeduplicationId = aws.String(req.ExecutionID)
	}

	out, err := d.client.SendMessage(ctx, input)
	if err != nil {
		d.logger.Error("failed to send execution request to SQS",
			logger.String("queue_url", d.config.QueueURL),
			logger.Int64("job_id", req.JobID),
			logger.Error(err))
		return fmt.Errorf("failed to send message: %w", err)
	}

	d.logger.Debug("execution request sent to queue",
		logger.Int64("job_id", req.JobID),
		logger.String("execution_id", req.ExecutionID),
		logger.String("message_id", aws.ToString(out.MessageId)))
	return nil
}
