package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/portfolio-service/internal/models"
)

type mockReader struct {
	msgs   chan kafka.Message
	closed bool
}

func newMockReader(msgs ...kafka.Message) *mockReader {
	ch := make(chan kafka.Message, len(msgs))
	for _, m := range msgs {
		ch <- m
	}
	return &mockReader{msgs: ch}
}

func (r *mockReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.msgs:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *mockReader) Close() error {
	r.closed = true
	return nil
}

type MockRecomputer struct {
	mock.Mock
}

func (m *MockRecomputer) Recompute(ctx context.Context, accountID string) error {
	args := m.Called(ctx, accountID)
	return args.Error(0)
}

func (m *MockRecomputer) RecomputeAll(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockRecomputer) ReloadTickers(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func eventMessage(t *testing.T, eventType, accountID string) kafka.Message {
	t.Helper()
	data, err := json.Marshal(models.PortfolioEvent{
		EventType: eventType,
		AccountID: accountID,
		Timestamp: time.Now().UTC(),
	})
	require.NoError(t, err)
	return kafka.Message{Key: []byte(accountID), Value: data}
}

func newTestConsumer(r messageReader, h Recomputer) *Consumer {
	return &Consumer{reader: r, topic: "portfolio-events", handler: h, log: zerolog.New(io.Discard)}
}

func TestProcessMessage_HoldingsChanged(t *testing.T) {
	h := new(MockRecomputer)
	h.On("Recompute", mock.Anything, "acc-1").Return(nil)
	c := newTestConsumer(newMockReader(), h)

	err := c.processMessage(context.Background(), eventMessage(t, models.EventHoldingsChanged, "acc-1"))

	require.NoError(t, err)
	h.AssertExpectations(t)
}

func TestProcessMessage_HoldingsChangedWithoutAccount(t *testing.T) {
	h := new(MockRecomputer)
	c := newTestConsumer(newMockReader(), h)

	err := c.processMessage(context.Background(), eventMessage(t, models.EventHoldingsChanged, ""))

	require.Error(t, err)
	h.AssertNotCalled(t, "Recompute", mock.Anything, mock.Anything)
}

func TestProcessMessage_RefreshRequested(t *testing.T) {
	t.Run("single account", func(t *testing.T) {
		h := new(MockRecomputer)
		h.On("Recompute", mock.Anything, "acc-2").Return(nil)
		c := newTestConsumer(newMockReader(), h)

		require.NoError(t, c.processMessage(context.Background(), eventMessage(t, models.EventRefreshRequested, "acc-2")))
		h.AssertExpectations(t)
		h.AssertNotCalled(t, "RecomputeAll", mock.Anything)
	})

	t.Run("all accounts", func(t *testing.T) {
		h := new(MockRecomputer)
		h.On("RecomputeAll", mock.Anything).Return(nil)
		c := newTestConsumer(newMockReader(), h)

		require.NoError(t, c.processMessage(context.Background(), eventMessage(t, models.EventRefreshRequested, "")))
		h.AssertExpectations(t)
	})
}

func TestProcessMessage_TickersRefreshed(t *testing.T) {
	h := new(MockRecomputer)
	h.On("ReloadTickers", mock.Anything).Return(nil)
	h.On("RecomputeAll", mock.Anything).Return(nil)
	c := newTestConsumer(newMockReader(), h)

	require.NoError(t, c.processMessage(context.Background(), eventMessage(t, models.EventTickersRefreshed, "")))
	h.AssertExpectations(t)
}

func TestProcessMessage_TickersReloadFails(t *testing.T) {
	h := new(MockRecomputer)
	h.On("ReloadTickers", mock.Anything).Return(errors.New("db down"))
	c := newTestConsumer(newMockReader(), h)

	err := c.processMessage(context.Background(), eventMessage(t, models.EventTickersRefreshed, ""))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	h.AssertNotCalled(t, "RecomputeAll", mock.Anything)
}

func TestProcessMessage_IgnoresOtherEvents(t *testing.T) {
	h := new(MockRecomputer)
	c := newTestConsumer(newMockReader(), h)

	require.NoError(t, c.processMessage(context.Background(), eventMessage(t, models.EventPerformanceComputed, "acc-1")))
	h.AssertNotCalled(t, "Recompute", mock.Anything, mock.Anything)
	h.AssertNotCalled(t, "RecomputeAll", mock.Anything)
}

func TestProcessMessage_InvalidJSON(t *testing.T) {
	c := newTestConsumer(newMockReader(), new(MockRecomputer))

	err := c.processMessage(context.Background(), kafka.Message{Value: []byte("{not json")})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unmarshal")
}

func TestStart_ProcessesUntilCancelled(t *testing.T) {
	reader := newMockReader(
		eventMessage(t, models.EventHoldingsChanged, "acc-1"),
		kafka.Message{Value: []byte("garbage")},
		eventMessage(t, models.EventHoldingsChanged, "acc-2"),
	)

	done := make(chan struct{}, 2)
	h := new(MockRecomputer)
	h.On("Recompute", mock.Anything, mock.AnythingOfType("string")).Return(nil).Run(func(mock.Arguments) {
		done <- struct{}{}
	})

	c := newTestConsumer(reader, h)
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() { errCh <- c.Start(ctx) }()

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for recompute")
		}
	}
	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not stop")
	}

	assert.True(t, reader.closed)
	h.AssertCalled(t, "Recompute", mock.Anything, "acc-1")
	h.AssertCalled(t, "Recompute", mock.Anything, "acc-2")
}
