// Package policy decides which screens a visitor may open, using an OPA
// Rego policy.
package policy

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/v1/rego"
)

// Decision is the outcome of a route check. When Allow is false the visitor
// is sent to Redirect instead.
type Decision struct {
	Allow    bool  `json:"allow"`
	Redirect Route `json:"redirect,omitempty"`
}

// Input is the document the policy is evaluated against.
type Input struct {
	Route         Route `json:"route"`
	Authenticated bool  `json:"authenticated"`
}

// Engine is the OPA policy engine.
type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine creates a new policy engine with the given policy content.
func NewEngine(ctx context.Context, policyContent string) (*Engine, error) {
	r := rego.New(
		rego.Query("data.route_policy.decision"),
		rego.Module("route_policy.rego", policyContent),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}

	return &Engine{query: query}, nil
}

// NewDefaultEngine creates an engine with DefaultPolicy.
func NewDefaultEngine(ctx context.Context) (*Engine, error) {
	return NewEngine(ctx, DefaultPolicy)
}

// Evaluate checks whether the visitor may open the route.
func (e *Engine) Evaluate(ctx context.Context, in Input) (Decision, error) {
	results, err := e.query.Eval(ctx, rego.EvalInput(in))
	if err != nil {
		return Decision{}, fmt.Errorf("failed to evaluate policy: %w", err)
	}

	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return Decision{Allow: true}, nil
	}

	obj, ok := results[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return Decision{}, fmt.Errorf("unexpected policy result %T", results[0].Expressions[0].Value)
	}
	d := Decision{}
	d.Allow, _ = obj["allow"].(bool)
	if r, ok := obj["redirect"].(string); ok {
		d.Redirect = Route(r)
	}
	if !d.Allow && d.Redirect == "" {
		d.Redirect = RouteHome
	}
	return d, nil
}

// Resolve returns the route the visitor ends up on when asking for route.
func (e *Engine) Resolve(ctx context.Context, route Route, authenticated bool) (Route, error) {
	d, err := e.Evaluate(ctx, Input{Route: route, Authenticated: authenticated})
	if err != nil {
		return "", err
	}
	if d.Allow {
		return route, nil
	}
	return d.Redirect, nil
}

// DefaultPolicy guards the member screens and keeps signed-in visitors away
// from the login and register screens.
const DefaultPolicy = `
package route_policy

protected := {"/dashboard", "/models", "/credits", "/chat"}

guest_only := {"/login", "/register"}

default decision := {"allow": true}

decision := {"allow": false, "redirect": "/login"} if {
	protected[input.route]
	not input.authenticated
}

decision := {"allow": false, "redirect": "/dashboard"} if {
	guest_only[input.route]
	input.authenticated
}
`
