package hermes

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestSelectionSubjectsInStream(t *testing.T) {
	id := "3f2a"
	subjects := []string{
		SubjectSelectionRequest,
		SubjectSelectionCompleted(id),
		SubjectSelectionEmpty(id),
		SubjectSelectionPenalized(id),
	}
	for _, s := range subjects {
		if !strings.HasPrefix(s, "slate.") {
			t.Errorf("subject %q is outside the slate.> stream", s)
		}
	}
	if got := SubjectSelectionCompleted(id); got != "slate.selection.3f2a.completed" {
		t.Errorf("unexpected completed subject %q", got)
	}
}

func TestSelectionCompletedEventNullWelfare(t *testing.T) {
	data, err := json.Marshal(SelectionCompletedEvent{SelectionID: "x", ChosenIndex: -1})
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	v, ok := raw["welfare"]
	if !ok {
		t.Fatal("welfare key should always be present")
	}
	if v != nil {
		t.Errorf("expected null welfare, got %v", v)
	}
}

func TestSelectionRequestEventDecodesItems(t *testing.T) {
	payload := `{"request_id":"r1","candidates":[[{"relevance":0.7,"creator_score":0.5,"engagement":0.5,"misinfo":0.0,"polarization":0.0,"category":"news|politics"}]]}`
	var ev SelectionRequestEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if len(ev.Candidates) != 1 || len(ev.Candidates[0]) != 1 {
		t.Fatalf("unexpected candidates %+v", ev.Candidates)
	}
	if ev.Candidates[0][0].Relevance != 0.7 || ev.Candidates[0][0].Category != "news|politics" {
		t.Errorf("unexpected item %+v", ev.Candidates[0][0])
	}
}
