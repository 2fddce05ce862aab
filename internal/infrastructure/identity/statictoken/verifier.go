package statictoken

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/lexygraph/docflow/internal/core/domain"
)

// Verifier resolves bearer tokens to user ids from a static table. It stands
// in for an identity provider in single-tenant deployments.
type Verifier struct {
	tokens map[string]string
}

// New builds a verifier from "token:userID" pairs.
func New(pairs []string) (*Verifier, error) {
	tokens := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		token, userID, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok || token == "" || userID == "" {
			return nil, fmt.Errorf("malformed token pair %q, want token:user", pair)
		}
		tokens[token] = userID
	}
	return &Verifier{tokens: tokens}, nil
}

func (v *Verifier) Verify(_ context.Context, token string) (string, error) {
	token = strings.TrimSpace(strings.TrimPrefix(token, "Bearer "))
	if token == "" {
		return "", domain.WrapError(domain.ErrUnauthorized, "verify token", fmt.Errorf("empty bearer token"))
	}
	for known, userID := range v.tokens {
		if subtle.ConstantTimeCompare([]byte(known), []byte(token)) == 1 {
			return userID, nil
		}
	}
	return "", domain.WrapError(domain.ErrUnauthorized, "verify token", fmt.Errorf("unknown token"))
}
