package harness

import (
	"context"
	"fmt"
	"slices"
)

// AssertionError is a failed final-state assertion.
type AssertionError struct {
	Type     string
	Tenant   string
	Expected string
	Actual   string
}

func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion %s (tenant=%s) failed: expected %s, actual %s",
		e.Type, e.Tenant, e.Expected, e.Actual)
}

// evaluateAssertions returns one message per failed assertion.
func (h *Harness) evaluateAssertions(ctx context.Context, assertions []Assertion) []string {
	var msgs []string
	for i, a := range assertions {
		if err := h.evaluate(ctx, a); err != nil {
			msgs = append(msgs, fmt.Sprintf("assertions[%d]: %v", i, err))
		}
	}
	return msgs
}

func (h *Harness) evaluate(ctx context.Context, a Assertion) error {
	tenant := h.tenant(a.Tenant)

	switch a.Type {
	case AssertCommandCount:
		recs, err := h.manager.List(ctx, tenant)
		if err != nil {
			return err
		}
		if len(recs) != a.Count {
			return &AssertionError{
				Type:     a.Type,
				Tenant:   tenant,
				Expected: fmt.Sprintf("%d commands", a.Count),
				Actual:   fmt.Sprintf("%d commands", len(recs)),
			}
		}

	case AssertHistoryCount:
		execs, err := h.manager.History(ctx, tenant, 0)
		if err != nil {
			return err
		}
		if len(execs) != a.Count {
			return &AssertionError{
				Type:     a.Type,
				Tenant:   tenant,
				Expected: fmt.Sprintf("%d executions", a.Count),
				Actual:   fmt.Sprintf("%d executions", len(execs)),
			}
		}

	case AssertPublished:
		cmd, ok := h.publisher.Published(tenant)
		if !ok {
			return &AssertionError{
				Type:     a.Type,
				Tenant:   tenant,
				Expected: fmt.Sprintf("published %v", a.Commands),
				Actual:   "nothing published",
			}
		}
		names := make([]string, len(cmd.Options))
		for i, opt := range cmd.Options {
			names[i] = opt.Name
		}
		if !slices.Equal(names, a.Commands) {
			return &AssertionError{
				Type:     a.Type,
				Tenant:   tenant,
				Expected: fmt.Sprintf("published %v", a.Commands),
				Actual:   fmt.Sprintf("published %v", names),
			}
		}

	case AssertRetracted:
		if cmd, ok := h.publisher.Published(tenant); ok {
			return &AssertionError{
				Type:     a.Type,
				Tenant:   tenant,
				Expected: "no published command",
				Actual:   fmt.Sprintf("%q with %d sub-commands", cmd.Name, len(cmd.Options)),
			}
		}
	}
	return nil
}
