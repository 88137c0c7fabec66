// Package policy evaluates route access decisions with OPA.
package policy

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"github.com/open-policy-agent/opa/rego"
)

// Actions checked by the HTTP layer.
const (
	ActionProfileRead         = "profile:read"
	ActionProfileOnboard      = "profile:onboard"
	ActionCertificateGenerate = "certificate:generate"
	ActionAIChat              = "ai:chat"
	ActionAINotes             = "ai:notes"
	ActionAIRoadmap           = "ai:roadmap"
	ActionAuditRead           = "audit:read"
)

// Query is the rule every policy module must define.
const Query = "data.certify.authz.allow"

//go:embed default.rego
var DefaultPolicy string

// Input is the document a decision is made on.
type Input struct {
	Action    string `json:"action"`
	Role      string `json:"role"`
	Onboarded bool   `json:"onboarded"`
}

// Engine is a prepared OPA query.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine compiles policyContent.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query(Query),
		rego.Module("authz.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// Load compiles the policy at path, or the embedded default when path is empty.
func Load(ctx context.Context, path string) (*Engine, error) {
	if path == "" {
		return NewEngine(ctx, DefaultPolicy)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return NewEngine(ctx, string(content))
}

// Allow reports whether the policy grants in. An undefined result denies.
func (e *Engine) Allow(ctx context.Context, in Input) (bool, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(in))
	if err != nil {
		return false, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return false, nil
	}

	allowed, ok := results[0].Expressions[0].Value.(bool)
	return ok && allowed, nil
}
