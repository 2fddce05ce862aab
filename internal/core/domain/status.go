package domain

// DocumentStatus is the authoritative lifecycle state of a document. It is
// written only by the pipeline machinery (dispatch, worker signals, explicit
// failure), never directly by client requests.
type DocumentStatus string

const (
	StatusQueued         DocumentStatus = "QUEUED"
	StatusParsing        DocumentStatus = "PARSING"
	StatusProcessing     DocumentStatus = "PROCESSING"
	StatusOCRProcessing  DocumentStatus = "OCR_PROCESSING"
	StatusTextExtraction DocumentStatus = "TEXT_EXTRACTION"
	StatusSummarizing    DocumentStatus = "SUMMARIZING"
	StatusCompleted      DocumentStatus = "COMPLETED"
	StatusFailed         DocumentStatus = "FAILED"
)

// statusRank orders the pipeline. Transitions move strictly forward; a stage
// may be skipped (an IMAGE document goes QUEUED -> OCR_PROCESSING directly)
// but never revisited.
var statusRank = map[DocumentStatus]int{
	StatusQueued:         0,
	StatusParsing:        1,
	StatusProcessing:     2,
	StatusOCRProcessing:  3,
	StatusTextExtraction: 4,
	StatusSummarizing:    5,
	StatusCompleted:      6,
}

var statusProgress = map[DocumentStatus]int{
	StatusQueued:         0,
	StatusParsing:        20,
	StatusProcessing:     40,
	StatusOCRProcessing:  50,
	StatusTextExtraction: 70,
	StatusSummarizing:    90,
	StatusCompleted:      100,
	StatusFailed:         0,
}

// KnownStatus reports whether s belongs to the closed status set.
func KnownStatus(s DocumentStatus) bool {
	if s == StatusFailed {
		return true
	}
	_, ok := statusRank[s]
	return ok
}

// IsTerminal reports whether no further transitions are accepted from s.
func (s DocumentStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanAdvance reports whether the edge from -> to is in the transition graph.
// FAILED is not reachable through advance; Fail is the only way in.
func CanAdvance(from, to DocumentStatus) bool {
	if from.IsTerminal() || to == StatusFailed {
		return false
	}
	fromRank, ok := statusRank[from]
	if !ok {
		return false
	}
	toRank, ok := statusRank[to]
	if !ok {
		return false
	}
	return toRank > fromRank
}

// Progress maps a status to a display percentage. Pure and total over the
// enumerated statuses; unknown values map to 0.
func Progress(s DocumentStatus) int {
	return statusProgress[s]
}

// pipelineSteps are the intermediate steps reported to clients, in order.
var pipelineSteps = []DocumentStatus{
	StatusParsing,
	StatusProcessing,
	StatusOCRProcessing,
	StatusTextExtraction,
	StatusSummarizing,
}

// CompletedSteps lists the pipeline steps already passed for a status.
// A FAILED document reports none; the failure reason travels separately.
func CompletedSteps(s DocumentStatus) []string {
	rank, ok := statusRank[s]
	if !ok {
		return []string{}
	}
	steps := make([]string, 0, len(pipelineSteps))
	for _, step := range pipelineSteps {
		if statusRank[step] < rank {
			steps = append(steps, string(step))
		}
	}
	return steps
}

// RemainingSteps counts pipeline steps not yet passed, used for completion
// estimates. Terminal statuses have none.
func RemainingSteps(s DocumentStatus) int {
	if s.IsTerminal() {
		return 0
	}
	rank, ok := statusRank[s]
	if !ok {
		return 0
	}
	remaining := 0
	for _, step := range pipelineSteps {
		if statusRank[step] >= rank {
			remaining++
		}
	}
	return remaining + 1 // the COMPLETED hop itself
}
