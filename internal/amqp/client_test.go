package amqp

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"

	"fintrack/internal/core"
)

func TestExponentialBackoff(t *testing.T) {
	want := []time.Duration{time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second, 30 * time.Second}
	for attempt, w := range want {
		if got := exponentialBackoff(attempt); got != w {
			t.Fatalf("attempt %d: backoff %v, want %v", attempt, got, w)
		}
	}
	if got := exponentialBackoff(40); got != maxBackoff {
		t.Fatalf("large attempt not capped: %v", got)
	}
}

func TestIsConnectionError(t *testing.T) {
	cases := map[string]struct {
		err  error
		want bool
	}{
		"nil":             {nil, false},
		"closed sentinel": {fmt.Errorf("publish: %w", amqp091.ErrClosed), true},
		"refused":         {errors.New("dial tcp: connection refused"), true},
		"eof":             {errors.New("unexpected EOF"), true},
		"pipe":            {errors.New("write: broken pipe"), true},
		"closed network":  {errors.New("use of closed network connection"), true},
		"precondition":    {errors.New("PRECONDITION_FAILED - inequivalent arg"), false},
	}
	for name, tc := range cases {
		if got := isConnectionError(tc.err); got != tc.want {
			t.Fatalf("%s: isConnectionError = %v, want %v", name, got, tc.want)
		}
	}
}

func TestBreakerOpensAfterMaxFailures(t *testing.T) {
	c := &Client{}
	for i := 0; i < maxFailures-1; i++ {
		c.recordFailure()
	}
	if c.isCircuitOpen() {
		t.Fatalf("open after %d failures", maxFailures-1)
	}

	c.recordFailure()
	if !c.isCircuitOpen() {
		t.Fatal("closed after max failures")
	}

	c.recordSuccess()
	if c.isCircuitOpen() || atomic.LoadInt64(&c.failureCount) != 0 {
		t.Fatal("success did not reset the breaker")
	}
}

func TestBreakerHalfOpen(t *testing.T) {
	c := &Client{state: StateOpen, lastFailure: time.Now().Add(-openTimeout - time.Second)}

	if c.isCircuitOpen() {
		t.Fatal("breaker still open after the timeout")
	}
	if s := atomic.LoadInt32(&c.state); s != StateHalfOpen {
		t.Fatalf("state %d, want half-open", s)
	}

	c.recordFailure()
	if !c.isCircuitOpen() {
		t.Fatal("a half-open failure should reopen the breaker")
	}
}

func TestPublishShortCircuits(t *testing.T) {
	tx := core.Transaction{ID: 9, UserID: 1, Type: core.Expense, Amount: 5, Category: "Food", Date: core.NewDate(2024, 5, 1)}

	open := &Client{state: StateOpen, lastFailure: time.Now()}
	if err := open.PublishTransactionRecorded(context.Background(), tx); !errors.Is(err, ErrCircuitOpen) {
		t.Fatalf("open breaker: err = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := (&Client{}).PublishTransactionRecorded(ctx, tx); !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled ctx: err = %v", err)
	}
}

func TestTransactionRecordedMessage(t *testing.T) {
	tx := core.Transaction{ID: 12, UserID: 7, Type: core.Income, Amount: 10, Category: "Salary", Date: core.NewDate(2024, 2, 29)}

	msg := NewTransactionRecorded(tx)
	if msg.TransactionID != 12 || msg.UserID != 7 || msg.Period != "2024-02" {
		t.Fatalf("unexpected message: %+v", msg)
	}
	if msg.MessageID == "" || NewTransactionRecorded(tx).MessageID == msg.MessageID {
		t.Fatal("message ids must be set and unique")
	}

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	back, err := TransactionRecordedFromJSON(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if back.MessageID != msg.MessageID || back.Period != msg.Period || !back.Timestamp.Equal(msg.Timestamp) {
		t.Fatalf("decoded %+v, want %+v", back, msg)
	}

	if _, err := TransactionRecordedFromJSON([]byte(`{"transaction_id":"nope"}`)); err == nil {
		t.Fatal("expected an error for a mistyped field")
	}
}
