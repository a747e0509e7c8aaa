package manager

import "context"

// tenantLock is an exclusive lock whose waiters give up when their context
// is done.
type tenantLock chan struct{}

func newTenantLock() tenantLock {
	return make(tenantLock, 1)
}

// Lock blocks until the lock is held or ctx is done.
func (l tenantLock) Lock(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case l <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Unlock releases the lock.
func (l tenantLock) Unlock() {
	<-l
}
