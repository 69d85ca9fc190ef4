package usage

import (
	"encoding/json"
	"os"
	"testing"
)

func TestTotals_RecordWritesStatusFile(t *testing.T) {
	port := 65432
	defer os.Remove(StatusFilePath(port))

	tot := NewTotals(port)
	tot.Record(100, 20, 8192)

	b, err := os.ReadFile(StatusFilePath(port))
	if err != nil {
		t.Fatalf("expected status file to exist: %v", err)
	}
	var doc struct {
		InputTokens        int     `json:"input_tokens"`
		OutputTokens       int     `json:"output_tokens"`
		TotalTokens        int     `json:"total_tokens"`
		ContextWindow      int     `json:"context_window"`
		ContextLeftPercent float64 `json:"context_left_percent"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		t.Fatalf("could not decode status file: %v", err)
	}
	if doc.InputTokens != 100 || doc.OutputTokens != 20 || doc.TotalTokens != 120 {
		t.Fatalf("unexpected totals: %+v", doc)
	}
	if doc.ContextWindow != 8192 {
		t.Fatalf("expected context window 8192, got %d", doc.ContextWindow)
	}
}

func TestTotals_Accumulates(t *testing.T) {
	port := 65433
	defer os.Remove(StatusFilePath(port))

	tot := NewTotals(port)
	tot.Record(10, 5, 8192)
	tot.Record(10, 5, 8192)

	if tot.InputTotal != 20 || tot.OutputTotal != 10 {
		t.Fatalf("expected accumulated totals, got input=%d output=%d", tot.InputTotal, tot.OutputTotal)
	}
}

func TestTotals_Remove(t *testing.T) {
	port := 65434
	tot := NewTotals(port)
	tot.Record(1, 1, 8192)
	if _, err := os.Stat(StatusFilePath(port)); err != nil {
		t.Fatalf("expected status file to exist before Remove: %v", err)
	}
	tot.Remove()
	if _, err := os.Stat(StatusFilePath(port)); !os.IsNotExist(err) {
		t.Fatalf("expected status file to be gone after Remove, stat err = %v", err)
	}
}

func TestEstimateTokensFromChars(t *testing.T) {
	if got := EstimateTokensFromChars(40); got != 10 {
		t.Fatalf("expected 40 chars / 4 = 10 tokens, got %d", got)
	}
}
