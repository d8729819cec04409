//go:build integration

package mqtt

import (
	"sync"
	"testing"
	"time"

	"github.com/hearthward/conductor/internal/infrastructure/config"
)

// Integration tests against a live broker at 127.0.0.1:1883.
//
// Run with:
//   go test -tags=integration -v ./internal/infrastructure/mqtt/...
//
// Timing-dependent; prefer -count=1 in CI.

func integrationConfig(clientID string) config.MQTTConfig {
	return config.MQTTConfig{
		Broker: config.MQTTBrokerConfig{
			Host:     "127.0.0.1",
			Port:     1883,
			ClientID: clientID,
		},
		QoS: 1,
		Reconnect: config.MQTTReconnectConfig{
			InitialDelay: 1,
			MaxDelay:     5,
		},
	}
}

// TestIntegration_SubscriptionTracking checks the bookkeeping that
// reconnect restoration relies on, across subscribe and unsubscribe.
func TestIntegration_SubscriptionTracking(t *testing.T) {
	client, err := Connect(integrationConfig("conductor-int-sub-track"))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	topics := []string{
		Topics{}.Command("kitchen", "blinds"),
		Topics{}.Command("lounge", "blinds"),
		Topics{}.TaskStatus(),
	}
	handler := func(topic string, payload []byte) error { return nil }

	for _, topic := range topics {
		if err := client.Subscribe(topic, 1, handler); err != nil {
			t.Fatalf("Subscribe(%s) error = %v", topic, err)
		}
	}

	if got := client.SubscriptionCount(); got != len(topics) {
		t.Errorf("SubscriptionCount() = %d, want %d", got, len(topics))
	}
	for _, topic := range topics {
		if !client.HasSubscription(topic) {
			t.Errorf("HasSubscription(%s) = false, want true", topic)
		}
	}

	if err := client.Unsubscribe(topics[0]); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	if got := client.SubscriptionCount(); got != len(topics)-1 {
		t.Errorf("SubscriptionCount() after unsubscribe = %d, want %d", got, len(topics)-1)
	}
	if client.HasSubscription(topics[0]) {
		t.Errorf("HasSubscription(%s) = true after unsubscribe", topics[0])
	}
}

// TestIntegration_MessageRoundtrip publishes a task command from one
// client and receives it on another.
func TestIntegration_MessageRoundtrip(t *testing.T) {
	pubClient, err := Connect(integrationConfig("conductor-int-pub"))
	if err != nil {
		t.Fatalf("Connect() publisher error = %v", err)
	}
	defer pubClient.Close()

	subClient, err := Connect(integrationConfig("conductor-int-sub"))
	if err != nil {
		t.Fatalf("Connect() subscriber error = %v", err)
	}
	defer subClient.Close()

	topic := Topics{}.Command("kitchen", "blinds")
	expected := `{"action":"open","position":100}`

	received := make(chan string, 1)
	var once sync.Once

	err = subClient.Subscribe(topic, 1, func(_ string, p []byte) error {
		once.Do(func() { received <- string(p) })
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	// Give the broker a beat to settle the subscription.
	time.Sleep(100 * time.Millisecond)

	if err := pubClient.PublishString(topic, expected, 1, false); err != nil {
		t.Fatalf("PublishString() error = %v", err)
	}

	select {
	case msg := <-received:
		if msg != expected {
			t.Errorf("received %q, want %q", msg, expected)
		}
	case <-time.After(5 * time.Second):
		t.Error("timeout waiting for message")
	}
}

// TestIntegration_WildcardReceivesAllCommands subscribes with a
// wildcard pattern and checks commands from two locations arrive.
func TestIntegration_WildcardReceivesAllCommands(t *testing.T) {
	pubClient, err := Connect(integrationConfig("conductor-int-wild-pub"))
	if err != nil {
		t.Fatalf("Connect() publisher error = %v", err)
	}
	defer pubClient.Close()

	subClient, err := Connect(integrationConfig("conductor-int-wild-sub"))
	if err != nil {
		t.Fatalf("Connect() subscriber error = %v", err)
	}
	defer subClient.Close()

	var mu sync.Mutex
	seen := make(map[string]bool)
	err = subClient.Subscribe(TopicPrefixCommand+"/+/+", 1, func(topic string, _ []byte) error {
		mu.Lock()
		seen[topic] = true
		mu.Unlock()
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	time.Sleep(100 * time.Millisecond)

	for _, loc := range []string{"kitchen", "garden"} {
		topic := Topics{}.Command(loc, "lights")
		if err := pubClient.PublishString(topic, `{"on":true}`, 1, false); err != nil {
			t.Fatalf("PublishString(%s) error = %v", topic, err)
		}
	}

	deadline := time.After(5 * time.Second)
	for {
		mu.Lock()
		n := len(seen)
		mu.Unlock()
		if n == 2 {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("received %d of 2 wildcard messages", n)
		case <-time.After(50 * time.Millisecond):
		}
	}
}

// TestIntegration_LoggerSet sets and clears the handler logger.
func TestIntegration_LoggerSet(t *testing.T) {
	client, err := Connect(integrationConfig("conductor-int-logger"))
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer client.Close()

	client.SetLogger(&mockLogger{})
	if client.getLogger() == nil {
		t.Error("getLogger() = nil after SetLogger()")
	}

	client.SetLogger(nil)
	if client.getLogger() != nil {
		t.Error("getLogger() should be nil after SetLogger(nil)")
	}
}

// mockLogger implements Logger for integration tests.
type mockLogger struct {
	errors []string
	warns  []string
	mu     sync.Mutex
}

func (l *mockLogger) Error(msg string, args ...any) {
	l.mu.Lock()
	l.errors = append(l.errors, msg)
	l.mu.Unlock()
}

func (l *mockLogger) Warn(msg string, args ...any) {
	l.mu.Lock()
	l.warns = append(l.warns, msg)
	l.mu.Unlock()
}
