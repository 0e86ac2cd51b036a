// Package policy evaluates operator-supplied Rego deny rules against a
// transfer before it is admitted.
package policy

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/open-policy-agent/opa/rego"
)

// Query is the rule set every policy module must define.
const Query = "data.bridgehub.transfer.deny"

// DefaultModule is used when no policy path is configured.
const DefaultModule = `package bridgehub.transfer

deny[msg] {
	input.source_chain == input.destination_chain
	msg := "source and destination chain must differ"
}

deny[msg] {
	input.sender == input.recipient
	input.source_chain == input.destination_chain
	msg := "transfer to self on the same chain"
}
`

var ErrDenied = errors.New("transfer denied by policy")

// Input is the document exposed to rules as `input`.
type Input struct {
	Sender           string `json:"sender"`
	Recipient        string `json:"recipient"`
	Amount           uint64 `json:"amount"`
	SourceChain      uint64 `json:"source_chain"`
	DestinationChain uint64 `json:"destination_chain"`
	Token            string `json:"token,omitempty"`
	Tier             string `json:"tier"`
	Jurisdiction     string `json:"jurisdiction"`
}

type Engine struct {
	query rego.PreparedEvalQuery
}

// NewEngine compiles a single Rego module given as source.
func NewEngine(ctx context.Context, module string) (*Engine, error) {
	return prepare(ctx, rego.Module("bridgehub.rego", module))
}

// NewEngineFromPath loads every .rego file under path.
func NewEngineFromPath(ctx context.Context, path string) (*Engine, error) {
	return prepare(ctx, rego.Load([]string{path}, nil))
}

func prepare(ctx context.Context, source func(*rego.Rego)) (*Engine, error) {
	r := rego.New(
		rego.Query(Query),
		rego.StrictBuiltinErrors(true),
		source,
	)
	prepared, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare transfer policy: %w", err)
	}
	return &Engine{query: prepared}, nil
}

// Evaluate returns the sorted deny reasons for input. An empty result
// admits the transfer.
func (e *Engine) Evaluate(ctx context.Context, input Input) ([]string, error) {
	if e == nil {
		return nil, errors.New("policy engine is nil")
	}
	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, fmt.Errorf("evaluate transfer policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return nil, nil
	}
	raw, ok := results[0].Expressions[0].Value.([]any)
	if !ok {
		return nil, fmt.Errorf("deny must be a set of strings, got %T", results[0].Expressions[0].Value)
	}
	reasons := make([]string, 0, len(raw))
	for _, v := range raw {
		msg, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("deny reason must be a string, got %T", v)
		}
		reasons = append(reasons, msg)
	}
	sort.Strings(reasons)
	return reasons, nil
}

// Check fails with ErrDenied when any rule denies input.
func (e *Engine) Check(ctx context.Context, input Input) error {
	reasons, err := e.Evaluate(ctx, input)
	if err != nil {
		return err
	}
	if len(reasons) > 0 {
		return fmt.Errorf("%w: %s", ErrDenied, strings.Join(reasons, "; "))
	}
	return nil
}
