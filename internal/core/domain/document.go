package domain

import "time"

// ProcessingType describes how a submitted document must be processed and
// therefore which pipeline stage receives it first.
type ProcessingType string

const (
	ProcessingTypeText        ProcessingType = "TEXT"
	ProcessingTypeTable       ProcessingType = "TABLE"
	ProcessingTypeImage       ProcessingType = "IMAGE"
	ProcessingTypeHandwritten ProcessingType = "HANDWRITTEN"
	ProcessingTypeComplex     ProcessingType = "COMPLEX"
)

// KnownProcessingType reports whether t belongs to the closed set.
func KnownProcessingType(t ProcessingType) bool {
	switch t {
	case ProcessingTypeText, ProcessingTypeTable, ProcessingTypeImage,
		ProcessingTypeHandwritten, ProcessingTypeComplex:
		return true
	default:
		return false
	}
}

// Stage is one phase of the processing pipeline. Each stage is backed by its
// own durable queue; consumers are independent worker services.
type Stage string

const (
	StageParse          Stage = "parse"
	StageOCR            Stage = "ocr"
	StageTextExtraction Stage = "text-extraction"
	StageSummarize      Stage = "summarize"
)

// initialStageByType selects the first pipeline stage for a processing type.
// Extending the pipeline means adding a row here, not touching call sites.
var initialStageByType = map[ProcessingType]Stage{
	ProcessingTypeText:        StageParse,
	ProcessingTypeTable:       StageOCR,
	ProcessingTypeImage:       StageOCR,
	ProcessingTypeHandwritten: StageOCR,
	ProcessingTypeComplex:     StageOCR,
}

// InitialStage returns the queue a freshly submitted document is dispatched to.
func InitialStage(t ProcessingType) (Stage, bool) {
	stage, ok := initialStageByType[t]
	return stage, ok
}

type Document struct {
	ID             string         `json:"id"`
	UserID         string         `json:"userId"`
	Name           string         `json:"name"`
	Description    string         `json:"description,omitempty"`
	Size           int64          `json:"size"`
	MimeType       string         `json:"mimeType"`
	ProcessingType ProcessingType `json:"processingType"`
	CollectionID   string         `json:"collectionId,omitempty"`
	Tags           []string       `json:"tags,omitempty"`
	HasSummary     bool           `json:"hasSummary"`
	HasEntities    bool           `json:"hasEntities"`
	PageCount      int            `json:"pageCount,omitempty"`
	Status         DocumentStatus `json:"status"`
	Error          string         `json:"error,omitempty"`
	StorageKey     string         `json:"-"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

// StageMessage is the envelope enqueued to a stage queue. Exactly one message
// is in flight per document; workers producing follow-up stages reuse this
// envelope with an incremented attempt counter.
type StageMessage struct {
	DocumentID     string         `json:"documentId"`
	UserID         string         `json:"userId"`
	StorageKey     string         `json:"storageKey"`
	MimeType       string         `json:"mimeType"`
	ProcessingType ProcessingType `json:"processingType"`
	Attempt        int            `json:"attempt"`
	EnqueuedAt     time.Time      `json:"enqueuedAt"`
}

// MetadataEdit carries client-editable document fields. Status is never part
// of it; only the pipeline machinery moves status.
type MetadataEdit struct {
	Name        *string
	Description *string
	Tags        *[]string
}

// ProcessingStatusView is the derived, client-facing processing state.
type ProcessingStatusView struct {
	DocumentID              string         `json:"documentId"`
	Status                  DocumentStatus `json:"status"`
	CurrentStep             string         `json:"currentStep"`
	Progress                int            `json:"progress"`
	EstimatedCompletionTime *time.Time     `json:"estimatedCompletionTime,omitempty"`
	CompletedSteps          []string       `json:"completedSteps"`
	ElapsedTime             int64          `json:"elapsedTime"`
	Error                   string         `json:"error,omitempty"`
}
