package middleware

import (
	"fmt"
	"sort"
	"strings"
)

// Operation names a gated catalog action.
type Operation string

const (
	OpUpload         Operation = "upload"
	OpList           Operation = "list"
	OpReorder        Operation = "reorder"
	OpEvents         Operation = "events"
	OpStream         Operation = "stream"
	OpShareLink      Operation = "share_link"
	OpViewByID       Operation = "view_by_id"
	OpViewByFilename Operation = "view_by_filename"
)

// DefaultPolicy mirrors the service as it has always been deployed: catalog
// writes and listing need a principal; public delivery, share links and view
// counters do not.
func DefaultPolicy() map[Operation]bool {
	return map[Operation]bool{
		OpUpload:         true,
		OpList:           true,
		OpReorder:        true,
		OpEvents:         true,
		OpStream:         false,
		OpShareLink:      false,
		OpViewByID:       false,
		OpViewByFilename: false,
	}
}

// Policy is the operation -> requiresAuth table consulted by the AccessGate.
type Policy struct {
	rules map[Operation]bool
}

// NewPolicy applies overrides (keyed by operation name) on top of the
// defaults. Unknown operation names are rejected.
func NewPolicy(overrides map[string]bool) (*Policy, error) {
	rules := DefaultPolicy()
	for name, required := range overrides {
		op := Operation(strings.ToLower(strings.TrimSpace(name)))
		if _, ok := rules[op]; !ok {
			return nil, fmt.Errorf("unknown access policy operation %q", name)
		}
		rules[op] = required
	}
	return &Policy{rules: rules}, nil
}

// RequiresAuth reports whether op needs an authenticated principal. Unknown
// operations are gated.
func (p *Policy) RequiresAuth(op Operation) bool {
	required, ok := p.rules[op]
	if !ok {
		return true
	}
	return required
}

// String renders the table in a stable order for startup logs.
func (p *Policy) String() string {
	ops := make([]string, 0, len(p.rules))
	for op := range p.rules {
		ops = append(ops, string(op))
	}
	sort.Strings(ops)

	parts := make([]string, 0, len(ops))
	for _, op := range ops {
		parts = append(parts, fmt.Sprintf("%s=%t", op, p.rules[Operation(op)]))
	}
	return strings.Join(parts, ",")
}
