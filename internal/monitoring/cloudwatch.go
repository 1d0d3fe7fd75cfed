// Package monitoring ships application log lines to CloudWatch Logs.
//
// Writes are best effort: every failure is logged locally and swallowed so
// request handling never depends on the logging service.
package monitoring

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/aws/smithy-go"

	"github.com/emilythestrangee/blog/backend/internal/metrics"
)

// Sink appends one message to a log stream. Implementations never fail;
// a nil result means the message was dropped.
type Sink interface {
	Log(ctx context.Context, message, group, stream string) *cloudwatchlogs.PutLogEventsOutput
}

// LogsAPI is the subset of the CloudWatch Logs client the sink calls.
type LogsAPI interface {
	CreateLogGroup(ctx context.Context, params *cloudwatchlogs.CreateLogGroupInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogGroupOutput, error)
	CreateLogStream(ctx context.Context, params *cloudwatchlogs.CreateLogStreamInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error)
	PutLogEvents(ctx context.Context, params *cloudwatchlogs.PutLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error)
}

// CloudWatchSink writes to CloudWatch Logs, creating the group and stream on demand.
type CloudWatchSink struct {
	client  LogsAPI
	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time
}

// NewCloudWatchSink builds a sink. A zero timeout leaves calls bounded only by ctx.
func NewCloudWatchSink(client LogsAPI, l *slog.Logger, timeout time.Duration) *CloudWatchSink {
	return &CloudWatchSink{
		client:  client,
		logger:  l,
		timeout: timeout,
		now:     time.Now,
	}
}

// Log ensures group and stream exist and appends message stamped with the current time.
func (s *CloudWatchSink) Log(ctx context.Context, message, group, stream string) *cloudwatchlogs.PutLogEventsOutput {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	_, err := s.client.CreateLogGroup(ctx, &cloudwatchlogs.CreateLogGroupInput{
		LogGroupName: aws.String(group),
	})
	if err != nil && !alreadyExists(err) {
		return s.fail("create_group", group, stream, err)
	}

	_, err = s.client.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  aws.String(group),
		LogStreamName: aws.String(stream),
	})
	if err != nil && !alreadyExists(err) {
		return s.fail("create_stream", group, stream, err)
	}

	out, err := s.client.PutLogEvents(ctx, &cloudwatchlogs.PutLogEventsInput{
		LogGroupName:  aws.String(group),
		LogStreamName: aws.String(stream),
		LogEvents: []types.InputLogEvent{
			{
				Timestamp: aws.Int64(s.now().UnixMilli()),
				Message:   aws.String(message),
			},
		},
	})
	if err != nil {
		return s.fail("put_events", group, stream, err)
	}

	s.logger.Info("logged to cloudwatch", "group", group, "stream", stream, "message", message)
	return out
}

func (s *CloudWatchSink) fail(step, group, stream string, err error) *cloudwatchlogs.PutLogEventsOutput {
	metrics.LogSinkFailures.WithLabelValues(step).Inc()
	s.logger.Error("error logging to cloudwatch",
		"step", step,
		"group", group,
		"stream", stream,
		"code", errorCode(err),
		"error", err,
	)
	return nil
}

func alreadyExists(err error) bool {
	var exists *types.ResourceAlreadyExistsException
	return errors.As(err, &exists)
}

// errorCode is the AWS error code, or "transport" when the call never got a service response.
func errorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return "transport"
}

// NopSink drops every message. It is used when CloudWatch is disabled.
type NopSink struct{}

func (NopSink) Log(context.Context, string, string, string) *cloudwatchlogs.PutLogEventsOutput {
	return nil
}
