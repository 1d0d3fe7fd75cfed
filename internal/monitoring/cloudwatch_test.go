package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emilythestrangee/blog/backend/internal/testutil"
)

type fakeLogs struct {
	groupErr  error
	streamErr error
	putErr    error

	calls []string
	put   *cloudwatchlogs.PutLogEventsInput
}

func (f *fakeLogs) CreateLogGroup(_ context.Context, in *cloudwatchlogs.CreateLogGroupInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogGroupOutput, error) {
	f.calls = append(f.calls, "group:"+aws.ToString(in.LogGroupName))
	return &cloudwatchlogs.CreateLogGroupOutput{}, f.groupErr
}

func (f *fakeLogs) CreateLogStream(_ context.Context, in *cloudwatchlogs.CreateLogStreamInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error) {
	f.calls = append(f.calls, "stream:"+aws.ToString(in.LogStreamName))
	return &cloudwatchlogs.CreateLogStreamOutput{}, f.streamErr
}

func (f *fakeLogs) PutLogEvents(_ context.Context, in *cloudwatchlogs.PutLogEventsInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error) {
	f.calls = append(f.calls, "put")
	f.put = in
	if f.putErr != nil {
		return nil, f.putErr
	}
	return &cloudwatchlogs.PutLogEventsOutput{NextSequenceToken: aws.String("1")}, nil
}

func TestCloudWatchSink_Log(t *testing.T) {
	exists := &types.ResourceAlreadyExistsException{Message: aws.String("exists")}
	down := errors.New("dial tcp: connection refused")

	tests := []struct {
		name          string
		client        *fakeLogs
		expectResult  bool
		expectedCalls []string
	}{
		{
			name:          "fresh group and stream",
			client:        &fakeLogs{},
			expectResult:  true,
			expectedCalls: []string{"group:BlogLogs", "stream:PostCreation", "put"},
		},
		{
			name:          "group and stream already exist",
			client:        &fakeLogs{groupErr: exists, streamErr: exists},
			expectResult:  true,
			expectedCalls: []string{"group:BlogLogs", "stream:PostCreation", "put"},
		},
		{
			name:          "group creation fails",
			client:        &fakeLogs{groupErr: down},
			expectedCalls: []string{"group:BlogLogs"},
		},
		{
			name:          "stream creation fails",
			client:        &fakeLogs{groupErr: exists, streamErr: down},
			expectedCalls: []string{"group:BlogLogs", "stream:PostCreation"},
		},
		{
			name:          "put fails",
			client:        &fakeLogs{putErr: down},
			expectedCalls: []string{"group:BlogLogs", "stream:PostCreation", "put"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := NewCloudWatchSink(tt.client, testutil.Logger(), 0)

			out := sink.Log(context.Background(), "New post created: Test Post", "BlogLogs", "PostCreation")

			if tt.expectResult {
				assert.NotNil(t, out)
			} else {
				assert.Nil(t, out)
			}
			assert.Equal(t, tt.expectedCalls, tt.client.calls)
		})
	}
}

func TestCloudWatchSink_LogSendsSingleTimestampedEvent(t *testing.T) {
	client := &fakeLogs{}
	sink := NewCloudWatchSink(client, testutil.Logger(), 0)
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	sink.now = func() time.Time { return fixed }

	require.NotNil(t, sink.Log(context.Background(), "hello", "g", "s"))

	require.NotNil(t, client.put)
	assert.Equal(t, "g", aws.ToString(client.put.LogGroupName))
	assert.Equal(t, "s", aws.ToString(client.put.LogStreamName))
	require.Len(t, client.put.LogEvents, 1)
	assert.Equal(t, fixed.UnixMilli(), aws.ToInt64(client.put.LogEvents[0].Timestamp))
	assert.Equal(t, "hello", aws.ToString(client.put.LogEvents[0].Message))
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "ResourceAlreadyExistsException", errorCode(&types.ResourceAlreadyExistsException{}))
	assert.Equal(t, "ThrottlingException", errorCode(&smithy.GenericAPIError{Code: "ThrottlingException"}))
	assert.Equal(t, "transport", errorCode(errors.New("dial tcp: connection refused")))
}

func TestNopSink(t *testing.T) {
	assert.Nil(t, NopSink{}.Log(context.Background(), "m", "g", "s"))
}

// fakeCloudWatch speaks enough of the awsJson1_1 protocol for the three calls the sink makes.
type fakeCloudWatch struct {
	mu      sync.Mutex
	groups  map[string]bool
	streams map[string]bool
	events  []string
}

func (f *fakeCloudWatch) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var body struct {
		LogGroupName  string `json:"logGroupName"`
		LogStreamName string `json:"logStreamName"`
		LogEvents     []struct {
			Message   string `json:"message"`
			Timestamp int64  `json:"timestamp"`
		} `json:"logEvents"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	w.Header().Set("Content-Type", "application/x-amz-json-1.1")
	target := r.Header.Get("X-Amz-Target")
	switch {
	case strings.HasSuffix(target, ".CreateLogGroup"):
		if f.groups[body.LogGroupName] {
			alreadyExistsResponse(w)
			return
		}
		f.groups[body.LogGroupName] = true
		_, _ = w.Write([]byte(`{}`))
	case strings.HasSuffix(target, ".CreateLogStream"):
		key := body.LogGroupName + "/" + body.LogStreamName
		if f.streams[key] {
			alreadyExistsResponse(w)
			return
		}
		f.streams[key] = true
		_, _ = w.Write([]byte(`{}`))
	case strings.HasSuffix(target, ".PutLogEvents"):
		for _, e := range body.LogEvents {
			f.events = append(f.events, e.Message)
		}
		_, _ = w.Write([]byte(`{"nextSequenceToken":"49590302713916113"}`))
	default:
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"__type":"InvalidOperationException","message":"unexpected target"}`))
	}
}

func alreadyExistsResponse(w http.ResponseWriter) {
	w.WriteHeader(http.StatusBadRequest)
	_, _ = w.Write([]byte(`{"__type":"ResourceAlreadyExistsException","message":"The specified resource already exists."}`))
}

func newSDKClient(endpoint string) *cloudwatchlogs.Client {
	return cloudwatchlogs.New(cloudwatchlogs.Options{
		Region:           "us-east-1",
		BaseEndpoint:     aws.String(endpoint),
		Credentials:      credentials.NewStaticCredentialsProvider("AKIDEXAMPLE", "secret", ""),
		RetryMaxAttempts: 1,
	})
}

func TestCloudWatchSink_WithSDKClient_ExistingGroupAndStream(t *testing.T) {
	fake := &fakeCloudWatch{
		groups:  map[string]bool{"BlogLogs": true},
		streams: map[string]bool{"BlogLogs/PostCreation": true},
	}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	sink := NewCloudWatchSink(newSDKClient(srv.URL), testutil.Logger(), 5*time.Second)

	out := sink.Log(context.Background(), "New post created: Test Post", "BlogLogs", "PostCreation")
	require.NotNil(t, out)
	assert.Equal(t, "49590302713916113", aws.ToString(out.NextSequenceToken))
	assert.Equal(t, []string{"New post created: Test Post"}, fake.events)

	// Repeating the call is safe and appends another event.
	require.NotNil(t, sink.Log(context.Background(), "again", "BlogLogs", "PostCreation"))
	assert.Len(t, fake.events, 2)
}

func TestCloudWatchSink_WithSDKClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	sink := NewCloudWatchSink(newSDKClient(endpoint), testutil.Logger(), 5*time.Second)

	assert.NotPanics(t, func() {
		assert.Nil(t, sink.Log(context.Background(), "lost", "BlogLogs", "PostCreation"))
	})
}
