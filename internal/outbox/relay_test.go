package outbox

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"talent-scout-go/internal/storage/models"
)

func TestApplyPublishResult_Success(t *testing.T) {
	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	msg := &models.OutboxMessage{Status: models.OutboxStatusPending, RetryCount: 2, ErrorMessage: "old"}

	applyPublishResult(msg, nil, now)

	assert.Equal(t, models.OutboxStatusSent, msg.Status)
	require.NotNil(t, msg.ProcessedAt)
	assert.Equal(t, now, *msg.ProcessedAt)
	assert.Empty(t, msg.ErrorMessage)
}

func TestApplyPublishResult_RetriesUntilFailed(t *testing.T) {
	msg := &models.OutboxMessage{Status: models.OutboxStatusPending}
	pubErr := errors.New("channel closed")

	for i := 1; i < maxRetryCount; i++ {
		applyPublishResult(msg, pubErr, time.Now())
		assert.Equal(t, models.OutboxStatusPending, msg.Status, "第 %d 次失败后仍应等待重试", i)
	}
	applyPublishResult(msg, pubErr, time.Now())

	assert.Equal(t, models.OutboxStatusFailed, msg.Status)
	assert.Equal(t, maxRetryCount, msg.RetryCount)
	assert.Equal(t, "channel closed", msg.ErrorMessage)
	assert.Nil(t, msg.ProcessedAt)
}

func TestNewMessageRelay_Options(t *testing.T) {
	r := NewMessageRelay(nil, nil, WithPollingInterval(time.Second), WithBatchSize(3), WithBatchSize(0))
	assert.Equal(t, time.Second, r.pollingInterval)
	assert.Equal(t, 3, r.batchSize)

	r.Stop()
	r.Stop()
}
