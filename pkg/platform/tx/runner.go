package tx

import (
	"context"
	"sync"
	"time"

	dErrors "loancore/pkg/domain-errors"
)

// Runner provides the transactional boundary for a lifecycle commit. The
// callback's context carries the transaction (see WithTx/From) so every
// store touched inside shares one commit: the CAS write and its audit entry
// either both land or neither does.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// DefaultTimeout bounds a single transaction. Exceeding it aborts cleanly
// and surfaces CodeStorageTimeout; no partial effect remains.
const DefaultTimeout = 5 * time.Second

// numShards spreads in-memory transactions over independent mutexes so
// unrelated applications never serialize against each other.
const numShards = 128

type shardKeyCtx struct{}

var shardKey = shardKeyCtx{}

// WithShardKey tags the context with the resource identity (typically the
// application ID) used to pick a memory-runner shard.
func WithShardKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, shardKey, key)
}

// MemoryRunner serializes transactions per shard with plain mutexes. It is
// the boundary used with in-memory stores; memory appends cannot fail, so
// no rollback machinery is needed.
type MemoryRunner struct {
	shards  [numShards]sync.Mutex
	timeout time.Duration
}

// NewMemoryRunner builds a runner with the given timeout (DefaultTimeout
// when zero).
func NewMemoryRunner(timeout time.Duration) *MemoryRunner {
	return &MemoryRunner{timeout: timeout}
}

func (r *MemoryRunner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeStorageTimeout, "transaction aborted: context cancelled")
	}

	timeout := r.timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	shard := r.selectShard(ctx)
	r.shards[shard].Lock()
	defer r.shards[shard].Unlock()

	// Check again after acquiring the lock.
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeStorageTimeout, "transaction aborted: context cancelled")
	}

	return fn(ctx)
}

func (r *MemoryRunner) selectShard(ctx context.Context) int {
	if key, ok := ctx.Value(shardKey).(string); ok && key != "" {
		return int(fnvHash(key) % numShards)
	}
	return 0
}

// fnvHash is FNV-1a for stable shard distribution.
func fnvHash(s string) uint32 {
	const (
		fnvOffset = 2166136261
		fnvPrime  = 16777619
	)
	h := uint32(fnvOffset)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= fnvPrime
	}
	return h
}
