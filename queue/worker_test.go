package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HugeFrog24/media-scorer/utils"
)

// memoryQueue hands out its messages once, then blocks until cancelled.
type memoryQueue struct {
	mu       sync.Mutex
	messages []Message
	results  []JobResult
	requeued []Message
	done     chan struct{}
	expected int
}

func newMemoryQueue(expected int, jobs ...interface{}) *memoryQueue {
	q := &memoryQueue{done: make(chan struct{}), expected: expected}
	for _, job := range jobs {
		body, _ := json.Marshal(job)
		q.messages = append(q.messages, Message{Body: string(body)})
	}
	return q
}

func (q *memoryQueue) ReceiveMessages(ctx context.Context) ([]Message, error) {
	q.mu.Lock()
	messages := q.messages
	q.messages = nil
	q.mu.Unlock()
	if len(messages) > 0 {
		return messages, nil
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (q *memoryQueue) SendResult(ctx context.Context, result interface{}) error {
	// Round-trip through JSON like the redis list does.
	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	var decoded JobResult
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	q.results = append(q.results, decoded)
	if len(q.results) == q.expected {
		close(q.done)
	}
	return nil
}

func (q *memoryQueue) Requeue(ctx context.Context, msg Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.requeued = append([]Message{msg}, q.requeued...)
	return nil
}

func runWorker(t *testing.T, q *memoryQueue, analyzer utils.Analyzer) map[string]JobResult {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	worker := NewWorker(q, analyzer, utils.DefaultVariants(utils.DefaultGenerationConfig()), 2, time.Second, nil)

	stopped := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(stopped)
	}()

	select {
	case <-q.done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for results")
	}
	cancel()
	<-stopped

	byID := make(map[string]JobResult)
	for _, result := range q.results {
		byID[result.JobID] = result
	}
	return byID
}

func TestWorkerProcessesJobs(t *testing.T) {
	q := newMemoryQueue(3,
		Job{JobID: "1", Variant: "score", MIMEType: "image/png", Media: []byte("png"), Metadata: json.RawMessage(`{"user":7}`)},
		Job{JobID: "2", Variant: "tags", FileName: "cat.jpg", Media: []byte("jpg")},
		Job{JobID: "3", Variant: "score", MIMEType: "image/png", Media: []byte("bad")},
	)
	analyzer := &utils.MockAnalyzer{
		AnalyzeFunc: func(ctx context.Context, asset utils.MediaAsset, variant utils.Variant) (*utils.Outcome, error) {
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline)
			switch string(asset.Data) {
			case "png":
				return &utils.Outcome{Variant: variant.Name, Score: &utils.ScoreRecord{Score: 82, Reason: "clear smiling face"}}, nil
			case "jpg":
				assert.Equal(t, "image/jpeg", asset.MIMEType)
				return &utils.Outcome{Variant: variant.Name, Tags: &utils.TagList{Tags: []utils.Tag{{Tag: "cat", Confidence: 0.9}}}}, nil
			default:
				return nil, &utils.InvocationError{Variant: variant.Name, Err: errors.New("model unavailable")}
			}
		},
	}

	results := runWorker(t, q, analyzer)

	require.Len(t, results, 3)
	assert.Empty(t, results["1"].Error)
	assert.JSONEq(t, `{"user":7}`, string(results["1"].Metadata))
	assert.Equal(t, "score", results["1"].Variant)
	assert.NotNil(t, results["1"].Result)

	assert.Empty(t, results["2"].Error)
	assert.Equal(t, "tags", results["2"].Variant)

	assert.Contains(t, results["3"].Error, "model unavailable")
	assert.Nil(t, results["3"].Result)
}

func TestWorkerReportsBadJobs(t *testing.T) {
	q := newMemoryQueue(2,
		Job{JobID: "a", Variant: "caption", MIMEType: "image/png", Media: []byte("x")},
		Job{JobID: "b", Variant: "tags", MIMEType: "image/png"},
	)
	analyzer := &utils.MockAnalyzer{
		AnalyzeFunc: func(ctx context.Context, asset utils.MediaAsset, variant utils.Variant) (*utils.Outcome, error) {
			t.Error("analyzer should not be called")
			return nil, nil
		},
	}

	results := runWorker(t, q, analyzer)

	assert.Contains(t, results["a"].Error, "unknown variant")
	assert.Contains(t, results["b"].Error, "no media")
}

func TestWorkerSkipsUndecodableMessages(t *testing.T) {
	q := newMemoryQueue(1, Job{JobID: "ok", Variant: "tags", MIMEType: "image/png", Media: []byte("x")})
	q.messages = append([]Message{{Body: "not json"}}, q.messages...)
	analyzer := &utils.MockAnalyzer{
		AnalyzeFunc: func(ctx context.Context, asset utils.MediaAsset, variant utils.Variant) (*utils.Outcome, error) {
			return &utils.Outcome{Variant: variant.Name, Tags: &utils.TagList{}}, nil
		},
	}

	results := runWorker(t, q, analyzer)

	require.Len(t, results, 1)
	assert.Empty(t, results["ok"].Error)
}

func TestWorkerRequeuesUnstartedJobsOnShutdown(t *testing.T) {
	q := newMemoryQueue(-1,
		Job{JobID: "running", Variant: "tags", MIMEType: "image/png", Media: []byte("x")},
		Job{JobID: "waiting-1", Variant: "tags", MIMEType: "image/png", Media: []byte("y")},
		Job{JobID: "waiting-2", Variant: "tags", MIMEType: "image/png", Media: []byte("z")},
	)
	started := make(chan struct{})
	analyzer := &utils.MockAnalyzer{
		AnalyzeFunc: func(ctx context.Context, asset utils.MediaAsset, variant utils.Variant) (*utils.Outcome, error) {
			close(started)
			<-ctx.Done()
			// Hold the only slot a little longer so shutdown wins the race for it.
			time.Sleep(50 * time.Millisecond)
			return nil, ctx.Err()
		},
	}
	ctx, cancel := context.WithCancel(context.Background())
	worker := NewWorker(q, analyzer, utils.DefaultVariants(utils.DefaultGenerationConfig()), 1, time.Minute, nil)

	stopped := make(chan struct{})
	go func() {
		worker.Start(ctx)
		close(stopped)
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("first job never started")
	}
	cancel()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}

	var ids []string
	for _, msg := range q.requeued {
		var job Job
		require.NoError(t, json.Unmarshal([]byte(msg.Body), &job))
		ids = append(ids, job.JobID)
	}
	assert.Equal(t, []string{"waiting-1", "waiting-2"}, ids)

	require.Len(t, q.results, 1)
	assert.Equal(t, "running", q.results[0].JobID)
	assert.Contains(t, q.results[0].Error, context.Canceled.Error())
}
