package hash

import (
	"context"
	"runtime"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// Hasher is the password-hashing capability injected into the auth
// service. Implementations must be safe for concurrent use.
type Hasher interface {
	Hash(ctx context.Context, plain string) (string, error)
	Verify(ctx context.Context, plain, digest string) bool
}

// Bcrypt bounds concurrent hashing with a weighted semaphore so that
// bursts of logins cannot occupy every scheduler thread with key
// stretching.
type Bcrypt struct {
	cost int
	sem  *semaphore.Weighted
}

func NewBcrypt(cost int) *Bcrypt {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Bcrypt{
		cost: cost,
		sem:  semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0))),
	}
}

func (b *Bcrypt) Hash(ctx context.Context, plain string) (string, error) {
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer b.sem.Release(1)

	digest, err := bcrypt.GenerateFromPassword([]byte(plain), b.cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

func (b *Bcrypt) Verify(ctx context.Context, plain, digest string) bool {
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return false
	}
	defer b.sem.Release(1)

	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}
