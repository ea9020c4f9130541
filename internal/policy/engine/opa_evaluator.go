package engine

import (
	"context"
	"fmt"
	"log"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"

	"nutriflow/auth/internal/policy/repository"
	userdomain "nutriflow/auth/internal/user/domain"
)

// Default Rego policy: active accounts may access themselves, disabled
// accounts may not. Stored policies extend or replace this.
const defaultRegoPolicy = `package nutriflow.account_access

default allow = false
default reason = "account access denied"

allow if {
	input.user.status == "active"
}

reason = "account disabled" if {
	input.user.status == "disabled"
}
`

// OPAEvaluator evaluates account-access policies using OPA Rego.
type OPAEvaluator struct {
	policyRepo repository.Repository
}

// NewOPAEvaluator returns an OPA-based policy evaluator. policyRepo may be
// nil; then only the built-in default policy is evaluated.
func NewOPAEvaluator(policyRepo repository.Repository) *OPAEvaluator {
	return &OPAEvaluator{policyRepo: policyRepo}
}

// HealthCheck verifies that the in-process OPA Rego engine can compile and evaluate the default policy.
// Does not call the policy repo or database. Returns nil on success.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	modules := map[string]string{"policy_0.rego": defaultRegoPolicy}
	compiler, err := ast.CompileModules(modules)
	if err != nil {
		return fmt.Errorf("compile default policy: %w", err)
	}
	minimalInput := map[string]interface{}{
		"user": map[string]interface{}{
			"id":     "",
			"email":  "",
			"status": "active",
		},
	}
	q := rego.New(
		rego.Query("data.nutriflow.account_access.allow"),
		rego.Compiler(compiler),
		rego.Input(minimalInput),
	)
	rs, err := q.Eval(ctx)
	if err != nil {
		return fmt.Errorf("eval default policy: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return fmt.Errorf("policy query returned no result")
	}
	return nil
}

// EvaluateAccess evaluates account-access policy using OPA Rego policies.
// On evaluation failure access is denied; sessions must not outlive a broken
// policy set.
func (e *OPAEvaluator) EvaluateAccess(ctx context.Context, user *userdomain.User) (AccessResult, error) {
	input := buildInput(user)

	var policies []string
	if e.policyRepo != nil {
		enabled, err := e.policyRepo.ListEnabled(ctx)
		if err != nil {
			log.Printf("policy: failed to load policies: %v", err)
		} else {
			for _, p := range enabled {
				if p.Enabled && p.Rules != "" {
					policies = append(policies, p.Rules)
				}
			}
		}
	}

	// Use the default policy if no stored policies exist.
	if len(policies) == 0 {
		policies = []string{defaultRegoPolicy}
	}

	result, err := e.evaluatePolicies(ctx, policies, input)
	if err != nil {
		log.Printf("policy: evaluation failed: %v, denying access", err)
		return AccessResult{Allow: false, Reason: "policy evaluation failed"}, nil
	}
	return result, nil
}

func buildInput(user *userdomain.User) map[string]interface{} {
	userMap := map[string]interface{}{
		"id":     "",
		"email":  "",
		"status": "",
	}
	if user != nil {
		userMap["id"] = user.ID
		userMap["email"] = user.Email
		userMap["status"] = string(user.Status)
	}
	return map[string]interface{}{"user": userMap}
}

func (e *OPAEvaluator) evaluatePolicies(ctx context.Context, policies []string, input map[string]interface{}) (AccessResult, error) {
	modules := make(map[string]string)
	for i, policy := range policies {
		modules[fmt.Sprintf("policy_%d.rego", i)] = policy
	}

	compiler, err := ast.CompileModules(modules)
	if err != nil {
		return AccessResult{}, fmt.Errorf("compile policies: %w", err)
	}

	out := AccessResult{Allow: false, Reason: "account access denied"}

	allowQuery := rego.New(
		rego.Query("data.nutriflow.account_access.allow"),
		rego.Compiler(compiler),
		rego.Input(input),
	)
	allowRS, err := allowQuery.Eval(ctx)
	if err != nil {
		return AccessResult{}, fmt.Errorf("eval allow: %w", err)
	}
	if len(allowRS) > 0 && len(allowRS[0].Expressions) > 0 {
		if v, ok := allowRS[0].Expressions[0].Value.(bool); ok {
			out.Allow = v
		}
	}

	reasonQuery := rego.New(
		rego.Query("data.nutriflow.account_access.reason"),
		rego.Compiler(compiler),
		rego.Input(input),
	)
	reasonRS, err := reasonQuery.Eval(ctx)
	if err == nil && len(reasonRS) > 0 && len(reasonRS[0].Expressions) > 0 {
		if v, ok := reasonRS[0].Expressions[0].Value.(string); ok && v != "" {
			out.Reason = v
		}
	}
	if out.Allow {
		out.Reason = ""
	}

	return out, nil
}
