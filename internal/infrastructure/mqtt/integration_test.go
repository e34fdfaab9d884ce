//go:build integration

package mqtt

import (
	"encoding/json"
	"testing"
	"time"
)

// These tests need a broker at 127.0.0.1:1883:
//
//	go test -tags=integration ./internal/infrastructure/mqtt/...

func connectForTest(t *testing.T, clientID string) *Client {
	t.Helper()
	cfg := testConfig()
	cfg.Broker.ClientID = clientID
	cfg.TopicPrefix = "webstone-it"

	client, err := Connect(cfg)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	t.Cleanup(func() { client.Close() }) //nolint:errcheck // Test cleanup
	return client
}

func TestIntegration_StateRoundtrip(t *testing.T) {
	client := connectForTest(t, "webstone-it-roundtrip")
	topics := client.Topics()

	received := make(chan string, 1)
	err := client.Subscribe(topics.AllStates(), 1, func(topic string, _ []byte) error {
		received <- topic
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	if !client.HasSubscription(topics.AllStates()) {
		t.Fatal("subscription not tracked")
	}

	if err := client.Publish(topics.State("block-1"), []byte(`{"powered":true}`), 1, false); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case topic := <-received:
		if topic != topics.State("block-1") {
			t.Errorf("topic = %q", topic)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("message not received")
	}

	if err := client.Unsubscribe(topics.AllStates()); err != nil {
		t.Fatalf("Unsubscribe() error = %v", err)
	}
	if client.SubscriptionCount() != 0 {
		t.Errorf("SubscriptionCount() = %d", client.SubscriptionCount())
	}
}

func TestIntegration_OnlineStatusRetained(t *testing.T) {
	connectForTest(t, "webstone-it-status")
	observer := connectForTest(t, "webstone-it-observer")

	statuses := make(chan statusPayload, 4)
	err := observer.Subscribe(observer.Topics().SystemStatus(), 1, func(_ string, payload []byte) error {
		var s statusPayload
		if err := json.Unmarshal(payload, &s); err != nil {
			return err
		}
		statuses <- s
		return nil
	})
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	select {
	case s := <-statuses:
		if s.Status != "online" {
			t.Errorf("status = %+v", s)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("retained status not received")
	}
}
