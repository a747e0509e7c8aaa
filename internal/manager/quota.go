package manager

import "fmt"

// DefaultMaxCommands is the platform's limit on sub-commands of one
// grouping command.
const DefaultMaxCommands = 25

// QuotaExceededError is wrapped by the SUBMISSION_REJECTED error returned
// when a tenant already holds the maximum number of commands.
type QuotaExceededError struct {
	Tenant string
	Count  int // Commands currently registered
	Limit  int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("tenant %s already has %d commands (limit %d)", e.Tenant, e.Count, e.Limit)
}

// checkQuota returns a *QuotaExceededError if one more command would exceed limit.
func checkQuota(tenant string, count, limit int) error {
	if count >= limit {
		return &QuotaExceededError{Tenant: tenant, Count: count, Limit: limit}
	}
	return nil
}
