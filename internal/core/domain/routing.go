package domain

// AgentTarget identifies a downstream agent service. The set is closed:
// routing to anything else is a caller error, no call is attempted.
type AgentTarget string

const (
	TargetExtractionAgent AgentTarget = "extraction-agent"
	TargetSearchAgent     AgentTarget = "search-agent"
	TargetGenerationAgent AgentTarget = "generation-agent"
)

// KnownTarget reports whether t belongs to the closed target set.
func KnownTarget(t AgentTarget) bool {
	switch t {
	case TargetExtractionAgent, TargetSearchAgent, TargetGenerationAgent:
		return true
	default:
		return false
	}
}

// RouteRequest is one routing gateway call. DocumentTitles and TitleToIDMap
// let callers reference documents by human-readable title; the gateway
// resolves them to canonical ids before dispatch.
type RouteRequest struct {
	TargetAgent    string            `json:"targetAgent"`
	AgentPayload   map[string]any    `json:"agentPayload"`
	TitleToIDMap   map[string]string `json:"titleToIdMap,omitempty"`
	DocumentTitles []string          `json:"documentTitles,omitempty"`
}

// ForwardContext carries the inbound call context propagated downstream:
// the bearer token verbatim and a correlation id (generated when absent).
type ForwardContext struct {
	Authorization string
	CorrelationID string
}

// RouteResult is the uniform envelope returned to routing callers.
type RouteResult struct {
	TargetAgent    string         `json:"targetAgent"`
	RequestPayload map[string]any `json:"requestPayload"`
	AgentResponse  any            `json:"agentResponse"`
}

// AgentResult is the canonical agent response shape. Downstream agents that
// already speak it are passed through; everything else is wrapped.
type AgentResult struct {
	AgentID     string   `json:"agentId"`
	Prompt      string   `json:"prompt,omitempty"`
	DocumentIDs []string `json:"documentIds,omitempty"`
	ExecutionID string   `json:"executionId,omitempty"`
	Response    any      `json:"response"`
	CompletedAt string   `json:"completedAt,omitempty"`
	FullResult  any      `json:"fullResult,omitempty"`
}

// ResolveTitles maps titles to canonical ids, preserving input order.
// Titles absent from the map are dropped, not errored.
func ResolveTitles(titles []string, titleToID map[string]string) []string {
	ids := make([]string, 0, len(titles))
	for _, title := range titles {
		if id, ok := titleToID[title]; ok && id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}
