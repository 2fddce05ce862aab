package usecase

import (
	"fmt"

	"github.com/lexygraph/docflow/internal/core/domain"
)

// NormalizeAgentResponse reshapes a decoded downstream body into one of the
// caller-facing shapes. Detection is structural: a body carrying agentId and
// response is an agent result; anything else is wrapped under a default
// envelope instead of failing the call.
func NormalizeAgentResponse(target string, body map[string]any) any {
	if body == nil {
		return &domain.AgentResult{AgentID: target}
	}
	if _, hasAgent := body["agentId"]; hasAgent {
		if _, hasResponse := body["response"]; hasResponse {
			return agentResultFromBody(body)
		}
	}
	return &domain.AgentResult{
		AgentID:  target,
		Response: body,
	}
}

func agentResultFromBody(body map[string]any) *domain.AgentResult {
	result := &domain.AgentResult{
		AgentID:     stringField(body, "agentId"),
		Prompt:      stringField(body, "prompt"),
		ExecutionID: stringField(body, "executionId"),
		Response:    body["response"],
		CompletedAt: stringField(body, "completedAt"),
		FullResult:  body["fullResult"],
	}
	if raw, ok := body["documentIds"].([]any); ok {
		ids := make([]string, 0, len(raw))
		for _, v := range raw {
			ids = append(ids, fmt.Sprint(v))
		}
		result.DocumentIDs = ids
	}
	return result
}

func stringField(body map[string]any, key string) string {
	s, _ := body[key].(string)
	return s
}
