package notifications

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestNormalizeChannels(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{name: "empty defaults to normal", in: nil, want: []string{"normal"}},
		{name: "keeps valid order", in: []string{"popup", "line"}, want: []string{"popup", "line"}},
		{name: "drops unknown", in: []string{"sms", "normal"}, want: []string{"normal"}},
		{name: "dedupes", in: []string{"line", "line", "normal"}, want: []string{"line", "normal"}},
		{name: "all unknown defaults", in: []string{"sms", "email"}, want: []string{"normal"}},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := normalizeChannels(tc.in); !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("normalizeChannels(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestQueuedConstructors(t *testing.T) {
	n := Queued("Title", "Body", "info")
	if n.Title != "Title" || n.Message != "Body" || n.Type != "info" {
		t.Fatalf("unexpected fields: %+v", n)
	}
	if !reflect.DeepEqual(n.Channels, []string{"normal"}) {
		t.Fatalf("expected default channel, got %v", n.Channels)
	}

	n = QueuedWithData("Title", "Body", "success", map[string]uint{"report_id": 7}, "normal", "line")
	if n.Data == nil {
		t.Fatal("expected data payload")
	}
	if !reflect.DeepEqual(n.Channels, []string{"normal", "line"}) {
		t.Fatalf("expected channels preserved, got %v", n.Channels)
	}
}

func TestQueuedNotificationRoundTrip(t *testing.T) {
	// the worker must read back exactly what EnqueueOrCreate wrote
	n := QueuedWithData("Order update", "Order RK-1 shipped", "info", map[string]any{"order_id": float64(3)}, "popup")
	n.UserIDs = []uint{1, 2}

	b, err := json.Marshal(n)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var got queuedNotification
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if !reflect.DeepEqual(got.UserIDs, n.UserIDs) {
		t.Fatalf("user ids lost: %v", got.UserIDs)
	}
	if got.Title != n.Title || got.Type != n.Type {
		t.Fatalf("fields lost: %+v", got)
	}
	if !reflect.DeepEqual(got.Channels, []string{"popup"}) {
		t.Fatalf("channels lost: %v", got.Channels)
	}
}
