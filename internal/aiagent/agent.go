// Package aiagent defines the text-to-structured-object collaborator used
// by the specification validator, image qualifier, and transcript aligner.
// Every consumer in this codebase treats a failing or disabled Agent as
// best-effort: callers always carry a deterministic fallback and must never
// let an agent failure become a hard gate.
package aiagent

import "context"

// Agent is a fixed-system-prompt, structured-response text service. Each
// call site supplies its own system/user prompt pair and unmarshals the
// returned JSON into its own response shape.
type Agent interface {
	// Complete sends systemPrompt and userPrompt to the underlying model and
	// returns the raw JSON text of a single structured response. Callers are
	// responsible for json.Unmarshal-ing the result into their own type and
	// for falling back deterministically on any error.
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)

	// Enabled reports whether the agent is configured and should be tried at
	// all; a disabled agent is equivalent to one that always errors, but lets
	// callers skip the call (and its log noise) entirely.
	Enabled() bool
}
