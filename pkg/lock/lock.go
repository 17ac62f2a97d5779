// Package lock guards a database file against a second owning process.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gofrs/flock"
	"go.uber.org/zap"

	srvErrors "github.com/kubev2v/inventory-scan-agent/pkg/errors"
)

type InstanceLock struct {
	path string
	lock *flock.Flock
}

// Acquire takes the lock at path, retrying with exponential backoff while
// another process holds it. After timeout it gives up with an
// InstanceLockedError. A timeout <= 0 tries exactly once.
func Acquire(ctx context.Context, path string, timeout time.Duration) (*InstanceLock, error) {
	l := &InstanceLock{path: path, lock: flock.New(path)}

	opts := []backoff.RetryOption{}
	if timeout > 0 {
		eb := backoff.NewExponentialBackOff()
		eb.InitialInterval = 50 * time.Millisecond
		eb.MaxInterval = time.Second
		opts = append(opts, backoff.WithBackOff(eb), backoff.WithMaxElapsedTime(timeout))
	} else {
		opts = append(opts, backoff.WithMaxTries(1))
	}

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		ok, err := l.lock.TryLock()
		if err != nil {
			return struct{}{}, backoff.Permanent(fmt.Errorf("acquire lock %s: %w", path, err))
		}
		if !ok {
			zap.S().Named("lock").Debugw("lock held by another process", "path", path)
			return struct{}{}, srvErrors.NewInstanceLockedError(path)
		}
		return struct{}{}, nil
	}, opts...)
	if err != nil {
		return nil, err
	}

	zap.S().Named("lock").Debugw("lock acquired", "path", path)
	return l, nil
}

func (l *InstanceLock) Path() string {
	return l.path
}

func (l *InstanceLock) Release() error {
	if err := l.lock.Unlock(); err != nil {
		return fmt.Errorf("release lock %s: %w", l.path, err)
	}
	return nil
}
