package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talent-scout-go/internal/types"
)

type fakeSink struct {
	name  string
	err   error
	delay time.Duration

	mu      sync.Mutex
	records []*ScreeningRecord
}

func (f *fakeSink) Name() string { return f.name }

func (f *fakeSink) Write(ctx context.Context, record *ScreeningRecord) error {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, record)
	return f.err
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

type saveCall struct {
	sink string
	err  error
}

type recordingRecorder struct {
	mu    sync.Mutex
	saves []saveCall
}

func (r *recordingRecorder) ObserveTurn(string) {}
func (r *recordingRecorder) ObserveCompletion(string, time.Duration) {}
func (r *recordingRecorder) ObserveStageTransition(string, string) {}
func (r *recordingRecorder) ObserveSessionStarted() {}
func (r *recordingRecorder) ObserveSessionEnded(string) {}
func (r *recordingRecorder) ObserveQueueWait(time.Duration) {}
func (r *recordingRecorder) ObserveSave(sink string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.saves = append(r.saves, saveCall{sink: sink, err: err})
}

func fixedClock() time.Time { return fixedNow }

func TestCompositeSaver_Save(t *testing.T) {
	primary := &fakeSink{name: "local"}
	mysql := &fakeSink{name: "mysql"}
	rec := &recordingRecorder{}
	saver := NewCompositeSaver(primary, WithSinks(mysql, nil), WithClock(fixedClock), WithRecorder(rec))

	profile := types.CandidateProfile{FullName: "Jane Doe", Email: "jane@x.io"}
	id, err := saver.Save(context.Background(), profile, []*schema.Message{schema.UserMessage("bye")})

	require.NoError(t, err)
	assert.Equal(t, GenerateSessionID("jane@x.io", "2025-03-03T21:06:07.00000089Z"), id)
	require.Equal(t, 1, primary.count())
	assert.Equal(t, 1, mysql.count())
	assert.Same(t, primary.records[0], mysql.records[0])
	assert.Len(t, rec.saves, 2)
}

func TestCompositeSaver_PrimaryFailure(t *testing.T) {
	primary := &fakeSink{name: "local", err: errors.New("disk full")}
	mysql := &fakeSink{name: "mysql"}
	saver := NewCompositeSaver(primary, WithSinks(mysql))

	id, err := saver.Save(context.Background(), types.CandidateProfile{}, nil)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Empty(t, id)
	assert.Zero(t, mysql.count(), "主存储失败时不应写入外部存储")
}

func TestCompositeSaver_SinkFailureTolerated(t *testing.T) {
	primary := &fakeSink{name: "local"}
	broken := &fakeSink{name: "minio", err: errors.New("bucket missing")}
	slow := &fakeSink{name: "mysql", delay: time.Second}
	rec := &recordingRecorder{}
	saver := NewCompositeSaver(primary,
		WithSinks(broken, slow),
		WithRecorder(rec),
		WithSinkTimeout(20*time.Millisecond),
	)

	id, err := saver.Save(context.Background(), types.CandidateProfile{Email: "a@b.io"}, nil)

	require.NoError(t, err)
	assert.NotEmpty(t, id)

	var failed []string
	for _, s := range rec.saves {
		if s.err != nil {
			failed = append(failed, s.sink)
		}
	}
	assert.ElementsMatch(t, []string{"minio", "mysql"}, failed)
}

func TestCompositeSaver_CanceledCallerDoesNotCancelSinks(t *testing.T) {
	primary := &fakeSink{name: "local"}
	sink := &fakeSink{name: "rabbitmq", delay: 10 * time.Millisecond}
	saver := NewCompositeSaver(primary, WithSinks(sink))

	ctx, cancel := context.WithCancel(context.Background())
	// 主存储同步写入后再取消
	go func() {
		for primary.count() == 0 {
			time.Sleep(time.Millisecond)
		}
		cancel()
	}()

	_, err := saver.Save(ctx, types.CandidateProfile{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, sink.count())
}
