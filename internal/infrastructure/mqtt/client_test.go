package mqtt

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// Unit tests for the MQTT client. These run without a broker: input
// validation happens before any connectivity check, so a zero-value
// Client exercises the full validation path and then ErrNotConnected.
// Broker-dependent coverage lives in integration_test.go.

// =============================================================================
// Connection State Tests
// =============================================================================

func TestIsConnected_InitialState(t *testing.T) {
	c := &Client{}

	if c.IsConnected() {
		t.Error("IsConnected() = true for zero-value client, want false")
	}
}

func TestClose_NilClient(t *testing.T) {
	c := &Client{}

	if err := c.Close(); err != nil {
		t.Errorf("Close() error = %v, want nil", err)
	}
}

func TestHealthCheck_Disconnected(t *testing.T) {
	c := &Client{}

	err := c.HealthCheck(context.Background())
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}
}

func TestHealthCheck_CancelledContext(t *testing.T) {
	c := &Client{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := c.HealthCheck(ctx)
	if err == nil {
		t.Fatal("HealthCheck() expected error for cancelled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("HealthCheck() error = %v, want context.Canceled", err)
	}
}

// =============================================================================
// Publish Validation Tests
// =============================================================================

func TestPublish_EmptyTopic(t *testing.T) {
	c := &Client{}

	err := c.Publish("", []byte("payload"), 1, false)
	if !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Publish() error = %v, want ErrInvalidTopic", err)
	}
}

func TestPublish_InvalidQoS(t *testing.T) {
	c := &Client{}

	err := c.Publish("command/kitchen/blinds", []byte("payload"), 3, false)
	if !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Publish() error = %v, want ErrInvalidQoS", err)
	}
}

func TestPublish_PayloadTooLarge(t *testing.T) {
	c := &Client{}

	payload := make([]byte, maxPayloadSize+1)

	err := c.Publish("command/kitchen/blinds", payload, 1, false)
	if err == nil {
		t.Fatal("Publish() expected error for oversize payload")
	}
	if !errors.Is(err, ErrPublishFailed) {
		t.Errorf("Publish() error = %v, want ErrPublishFailed", err)
	}
}

func TestPublish_NotConnected(t *testing.T) {
	c := &Client{}

	err := c.Publish("command/kitchen/blinds", []byte("payload"), 1, false)
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Publish() error = %v, want ErrNotConnected", err)
	}
}

func TestPublishString_NotConnected(t *testing.T) {
	c := &Client{}

	err := c.PublishString("command/kitchen/blinds", "payload", 1, false)
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("PublishString() error = %v, want ErrNotConnected", err)
	}
}

// =============================================================================
// Subscribe Validation Tests
// =============================================================================

func TestSubscribe_EmptyTopic(t *testing.T) {
	c := &Client{}

	err := c.Subscribe("", 1, func(topic string, payload []byte) error { return nil })
	if !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Subscribe() error = %v, want ErrInvalidTopic", err)
	}
}

func TestSubscribe_InvalidQoS(t *testing.T) {
	c := &Client{}

	err := c.Subscribe("conductor/status/task", 3, func(topic string, payload []byte) error { return nil })
	if !errors.Is(err, ErrInvalidQoS) {
		t.Errorf("Subscribe() error = %v, want ErrInvalidQoS", err)
	}
}

func TestSubscribe_NilHandler(t *testing.T) {
	c := &Client{}

	err := c.Subscribe("conductor/status/task", 1, nil)
	if !errors.Is(err, ErrSubscribeFailed) {
		t.Errorf("Subscribe() error = %v, want ErrSubscribeFailed", err)
	}
}

func TestSubscribe_NotConnected(t *testing.T) {
	c := &Client{}

	err := c.Subscribe("conductor/status/task", 1, func(topic string, payload []byte) error { return nil })
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Subscribe() error = %v, want ErrNotConnected", err)
	}
}

func TestUnsubscribe_NotConnected(t *testing.T) {
	c := &Client{}

	err := c.Unsubscribe("conductor/status/task")
	if !errors.Is(err, ErrNotConnected) {
		t.Errorf("Unsubscribe() error = %v, want ErrNotConnected", err)
	}
}

func TestSubscriptionCount_Empty(t *testing.T) {
	c := &Client{}

	if got := c.SubscriptionCount(); got != 0 {
		t.Errorf("SubscriptionCount() = %d, want 0", got)
	}
	if c.HasSubscription("conductor/status/task") {
		t.Error("HasSubscription() = true for zero-value client")
	}
}

// =============================================================================
// Topic Builder Tests
// =============================================================================

func TestTopicBuilders(t *testing.T) {
	tests := []struct {
		name     string
		build    func() string
		expected string
	}{
		{
			name: "Command",
			build: func() string {
				return Topics{}.Command("kitchen", "blinds")
			},
			expected: "command/kitchen/blinds",
		},
		{
			name: "CommandGarden",
			build: func() string {
				return Topics{}.Command("garden", "irrigation")
			},
			expected: "command/garden/irrigation",
		},
		{
			name: "ServiceStatus",
			build: func() string {
				return Topics{}.ServiceStatus()
			},
			expected: "conductor/status/service",
		},
		{
			name: "TaskStatus",
			build: func() string {
				return Topics{}.TaskStatus()
			},
			expected: "conductor/status/task",
		},
		{
			name: "Control",
			build: func() string {
				return Topics{}.Control()
			},
			expected: "conductor/control",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.build()
			if got != tt.expected {
				t.Errorf("%s = %q, want %q", tt.name, got, tt.expected)
			}
		})
	}
}

// =============================================================================
// Status Payload Tests
// =============================================================================

func TestBuildOnlinePayload(t *testing.T) {
	payload := buildOnlinePayload("conductor-test")

	if !strings.Contains(payload, `"status":"online"`) {
		t.Errorf("online payload missing status field: %s", payload)
	}
	if !strings.Contains(payload, `"client_id":"conductor-test"`) {
		t.Errorf("online payload missing client_id: %s", payload)
	}
}

func TestBuildOfflinePayload(t *testing.T) {
	payload := buildOfflinePayload("conductor-test")

	if !strings.Contains(payload, `"status":"offline"`) {
		t.Errorf("offline payload missing status field: %s", payload)
	}
	if !strings.Contains(payload, `"reason":"graceful_shutdown"`) {
		t.Errorf("offline payload missing reason: %s", payload)
	}
}

// =============================================================================
// Callback and Logger Tests
// =============================================================================

func TestSetCallbacks(t *testing.T) {
	c := &Client{}

	c.SetOnConnect(func() {})
	c.SetOnDisconnect(func(err error) {})

	// Clearing callbacks must be safe too.
	c.SetOnConnect(nil)
	c.SetOnDisconnect(nil)
}

func TestSetLogger(t *testing.T) {
	c := &Client{}

	logger := &captureLogger{}
	c.SetLogger(logger)

	if c.getLogger() == nil {
		t.Error("getLogger() = nil after SetLogger()")
	}

	c.SetLogger(nil)

	if c.getLogger() != nil {
		t.Error("getLogger() should be nil after SetLogger(nil)")
	}
}

// captureLogger implements Logger for testing.
type captureLogger struct {
	errors []string
	warns  []string
}

func (l *captureLogger) Error(msg string, args ...any) {
	l.errors = append(l.errors, msg)
}

func (l *captureLogger) Warn(msg string, args ...any) {
	l.warns = append(l.warns, msg)
}
