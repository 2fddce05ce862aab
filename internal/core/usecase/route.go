package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/lexygraph/docflow/internal/core/domain"
	"github.com/lexygraph/docflow/internal/core/ports"
)

const gatewaySource = "docflow-gateway"

// RouteAgentUseCase is the routing gateway. Each call is an independent
// BUILD -> DISPATCH -> (SUCCESS | RETRY -> DISPATCH | FAIL) pipeline with no
// shared mutable state; retry and timeout discipline live in the caller port.
type RouteAgentUseCase struct {
	endpoints map[domain.AgentTarget]string
	caller    ports.AgentCaller
}

func NewRouteAgentUseCase(endpoints map[domain.AgentTarget]string, caller ports.AgentCaller) *RouteAgentUseCase {
	return &RouteAgentUseCase{
		endpoints: endpoints,
		caller:    caller,
	}
}

func (uc *RouteAgentUseCase) Route(ctx context.Context, req domain.RouteRequest, fwd domain.ForwardContext) (*domain.RouteResult, error) {
	target := domain.AgentTarget(strings.ToLower(strings.TrimSpace(req.TargetAgent)))
	if !domain.KnownTarget(target) {
		return nil, domain.WrapError(domain.ErrBadTarget, "route request",
			fmt.Errorf("target %q", req.TargetAgent))
	}
	url, ok := uc.endpoints[target]
	if !ok || url == "" {
		return nil, domain.WrapError(domain.ErrBadTarget, "route request",
			fmt.Errorf("target %q has no configured endpoint", target))
	}

	payload := buildPayload(req)
	headers := buildForwardHeaders(fwd)

	body, err := uc.caller.Call(ctx, url, payload, headers)
	if err != nil {
		return nil, err
	}

	return &domain.RouteResult{
		TargetAgent:    string(target),
		RequestPayload: payload,
		AgentResponse:  NormalizeAgentResponse(string(target), body),
	}, nil
}

// buildPayload copies the caller payload and synthesizes documentIds from
// title resolution when the payload carries none.
func buildPayload(req domain.RouteRequest) map[string]any {
	payload := make(map[string]any, len(req.AgentPayload)+1)
	for k, v := range req.AgentPayload {
		payload[k] = v
	}

	if len(documentIDsFromPayload(payload)) > 0 {
		return payload
	}
	if len(req.DocumentTitles) == 0 || len(req.TitleToIDMap) == 0 {
		return payload
	}
	if ids := domain.ResolveTitles(req.DocumentTitles, req.TitleToIDMap); len(ids) > 0 {
		payload["documentIds"] = ids
	}
	return payload
}

// documentIDsFromPayload reads document ids under the canonical key or the
// legacy snake_case one.
func documentIDsFromPayload(payload map[string]any) []string {
	for _, key := range []string{"documentIds", "document_ids"} {
		raw, ok := payload[key].([]any)
		if !ok {
			if typed, ok := payload[key].([]string); ok && len(typed) > 0 {
				return typed
			}
			continue
		}
		ids := make([]string, 0, len(raw))
		for _, v := range raw {
			ids = append(ids, fmt.Sprint(v))
		}
		if len(ids) > 0 {
			return ids
		}
	}
	return nil
}

func buildForwardHeaders(fwd domain.ForwardContext) map[string]string {
	headers := make(map[string]string, 4)
	if strings.TrimSpace(fwd.Authorization) != "" {
		headers["Authorization"] = fwd.Authorization
	}
	correlationID := strings.TrimSpace(fwd.CorrelationID)
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	headers["X-Request-Id"] = correlationID
	headers["X-Correlation-Id"] = correlationID
	headers["X-Gateway-Source"] = gatewaySource
	return headers
}
