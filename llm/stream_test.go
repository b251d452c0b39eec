package llm

import (
	"context"
	"testing"
)

// stubProvider is a minimal Provider for wiring tests.
type stubProvider struct {
	name string
}

func (s *stubProvider) Name() string  { return s.name }
func (s *stubProvider) Model() string { return "stub-model" }

func (s *stubProvider) Send(_ context.Context, _ MessageRequest) (*MessageResponse, error) {
	return &MessageResponse{Content: []ContentBlock{Text("stub")}, StopReason: StopEndTurn}, nil
}

func (s *stubProvider) Stream(_ context.Context, _ MessageRequest) (<-chan StreamEvent, error) {
	events := make(chan StreamEvent, 8)
	events <- BlockStartEvent(0, Text(""))
	events <- TextDeltaEvent(0, "stub")
	events <- BlockStopEvent(0)
	events <- MessageDeltaEvent(StopEndTurn, nil)
	events <- StreamEvent{Kind: EventMessageStop}
	close(events)
	return events, nil
}

func TestStreamEventConstructors(t *testing.T) {
	tests := []struct {
		name      string
		event     StreamEvent
		wantKind  string
		wantDelta string
	}{
		{"text delta", TextDeltaEvent(0, "hi"), EventContentBlockDelta, DeltaText},
		{"thinking delta", ThinkingDeltaEvent(1, "hm"), EventContentBlockDelta, DeltaThinking},
		{"input json delta", InputJSONDeltaEvent(2, `{"a":`), EventContentBlockDelta, DeltaInputJSON},
		{"signature delta", SignatureDeltaEvent(1, "sig"), EventContentBlockDelta, DeltaSignature},
		{"block stop", BlockStopEvent(0), EventContentBlockStop, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.event.Kind != tt.wantKind {
				t.Errorf("kind = %q, want %q", tt.event.Kind, tt.wantKind)
			}
			if tt.event.Delta != tt.wantDelta {
				t.Errorf("delta = %q, want %q", tt.event.Delta, tt.wantDelta)
			}
		})
	}
}

func TestStubProviderStreamShape(t *testing.T) {
	provider := &stubProvider{name: "stub"}
	events, err := provider.Stream(context.Background(), MessageRequest{})
	if err != nil {
		t.Fatalf("stream failed: %v", err)
	}

	var kinds []string
	for event := range events {
		kinds = append(kinds, event.Kind)
	}

	want := []string{
		EventContentBlockStart,
		EventContentBlockDelta,
		EventContentBlockStop,
		EventMessageDelta,
		EventMessageStop,
	}
	if len(kinds) != len(want) {
		t.Fatalf("got %d events, want %d", len(kinds), len(want))
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("event %d = %q, want %q", i, kinds[i], want[i])
		}
	}
}
