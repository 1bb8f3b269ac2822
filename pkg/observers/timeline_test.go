package observers

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nareswara/intervox/pkg/metrics"
)

func TestTimelineObserverWritesJSONL(t *testing.T) {
	dir := t.TempDir()
	obs := NewTimelineObserver(dir)
	defer obs.Close()

	obs.RecordEvent(metrics.MetricsEvent{
		Name: "phase_change",
		Time: time.Now(),
		Tags: map[string]string{"session_id": "sess-1"},
		Fields: map[string]any{
			"from": "Idle",
			"to":   "Connecting",
		},
	})
	obs.RecordEvent(metrics.MetricsEvent{
		Name: "turn_committed",
		Time: time.Now(),
		Tags: map[string]string{"session_id": "sess-1"},
	})

	data, err := os.ReadFile(filepath.Join(dir, "sess-1.jsonl"))
	if err != nil {
		t.Fatalf("read timeline: %v", err)
	}
	var first timelineEvent
	if err := json.Unmarshal([]byte(splitFirstLine(data)), &first); err != nil {
		t.Fatalf("decode first line: %v", err)
	}
	if first.Event != "phase_change" || first.SessionID != "sess-1" {
		t.Fatalf("unexpected first entry: %+v", first)
	}
}

func TestTimelineObserverIgnoresMissingSession(t *testing.T) {
	dir := t.TempDir()
	obs := NewTimelineObserver(dir)
	defer obs.Close()

	obs.RecordEvent(metrics.MetricsEvent{Name: "phase_change", Time: time.Now()})

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no artifacts, got %d", len(entries))
	}
}

func splitFirstLine(data []byte) string {
	for i, b := range data {
		if b == '\n' {
			return string(data[:i])
		}
	}
	return string(data)
}
