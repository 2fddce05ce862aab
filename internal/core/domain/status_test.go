package domain

import "testing"

var allStatuses = []DocumentStatus{
	StatusQueued,
	StatusParsing,
	StatusProcessing,
	StatusOCRProcessing,
	StatusTextExtraction,
	StatusSummarizing,
	StatusCompleted,
	StatusFailed,
}

func TestCanAdvanceForwardOnly(t *testing.T) {
	if !CanAdvance(StatusQueued, StatusParsing) {
		t.Fatalf("QUEUED -> PARSING must be allowed")
	}
	if !CanAdvance(StatusQueued, StatusOCRProcessing) {
		t.Fatalf("stage skip QUEUED -> OCR_PROCESSING must be allowed")
	}
	if !CanAdvance(StatusSummarizing, StatusCompleted) {
		t.Fatalf("SUMMARIZING -> COMPLETED must be allowed")
	}
	if CanAdvance(StatusProcessing, StatusParsing) {
		t.Fatalf("backward edges are never allowed")
	}
	if CanAdvance(StatusParsing, StatusParsing) {
		t.Fatalf("self edges are never allowed")
	}
}

func TestTerminalStatusesAcceptNothing(t *testing.T) {
	for _, terminal := range []DocumentStatus{StatusCompleted, StatusFailed} {
		for _, to := range allStatuses {
			if CanAdvance(terminal, to) {
				t.Fatalf("%s must accept no outgoing edge, allowed -> %s", terminal, to)
			}
		}
	}
}

func TestFailedNotReachableThroughAdvance(t *testing.T) {
	for _, from := range allStatuses {
		if CanAdvance(from, StatusFailed) {
			t.Fatalf("FAILED must only be reachable through Fail, allowed from %s", from)
		}
	}
}

func TestProgressTotalAndAnchored(t *testing.T) {
	want := map[DocumentStatus]int{
		StatusQueued:         0,
		StatusParsing:        20,
		StatusProcessing:     40,
		StatusOCRProcessing:  50,
		StatusTextExtraction: 70,
		StatusSummarizing:    90,
		StatusCompleted:      100,
		StatusFailed:         0,
	}
	for s, p := range want {
		if got := Progress(s); got != p {
			t.Fatalf("Progress(%s) = %d, want %d", s, got, p)
		}
	}
	if got := Progress(DocumentStatus("SHIPPED")); got != 0 {
		t.Fatalf("unknown status must map to 0, got %d", got)
	}
}

func TestProgressMonotonicAlongEdges(t *testing.T) {
	for _, from := range allStatuses {
		for _, to := range allStatuses {
			if CanAdvance(from, to) && Progress(to) < Progress(from) {
				t.Fatalf("progress must not regress along %s -> %s", from, to)
			}
		}
	}
}

func TestCompletedSteps(t *testing.T) {
	if steps := CompletedSteps(StatusQueued); len(steps) != 0 {
		t.Fatalf("QUEUED has no completed steps, got %v", steps)
	}
	steps := CompletedSteps(StatusTextExtraction)
	want := []string{"PARSING", "PROCESSING", "OCR_PROCESSING"}
	if len(steps) != len(want) {
		t.Fatalf("CompletedSteps(TEXT_EXTRACTION) = %v, want %v", steps, want)
	}
	for i := range want {
		if steps[i] != want[i] {
			t.Fatalf("CompletedSteps(TEXT_EXTRACTION) = %v, want %v", steps, want)
		}
	}
	if steps := CompletedSteps(StatusFailed); len(steps) != 0 {
		t.Fatalf("FAILED reports no completed steps, got %v", steps)
	}
}

func TestInitialStageByProcessingType(t *testing.T) {
	cases := map[ProcessingType]Stage{
		ProcessingTypeText:        StageParse,
		ProcessingTypeTable:       StageOCR,
		ProcessingTypeImage:       StageOCR,
		ProcessingTypeHandwritten: StageOCR,
		ProcessingTypeComplex:     StageOCR,
	}
	for pt, want := range cases {
		got, ok := InitialStage(pt)
		if !ok || got != want {
			t.Fatalf("InitialStage(%s) = %s, want %s", pt, got, want)
		}
	}
	if _, ok := InitialStage(ProcessingType("VIDEO")); ok {
		t.Fatalf("unknown processing type must have no stage")
	}
}

func TestResolveTitlesOrderAndDrops(t *testing.T) {
	ids := ResolveTitles(
		[]string{"B", "A", "C", ""},
		map[string]string{"A": "id-a", "B": "id-b", "C": ""},
	)
	if len(ids) != 2 || ids[0] != "id-b" || ids[1] != "id-a" {
		t.Fatalf("expected input order preserved with unresolved dropped, got %v", ids)
	}
}
