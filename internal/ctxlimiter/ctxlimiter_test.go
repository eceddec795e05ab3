package ctxlimiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sync/semaphore"
)

func TestAcquireWithoutLimiter(t *testing.T) {
	a := assert.New(t)

	_, err := Acquire(context.Background())
	a.ErrorIs(err, ErrNoLimiter)
}

func TestAcquireBlocksAtCapacity(t *testing.T) {
	a := assert.New(t)

	ctx := WithLimiter(context.Background(), semaphore.NewWeighted(1))

	release, err := Acquire(ctx)
	if !a.NoError(err) {
		return
	}

	waitCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()

	_, err = Acquire(waitCtx)
	a.ErrorIs(err, context.DeadlineExceeded)

	release()

	release, err = Acquire(ctx)
	if a.NoError(err) {
		release()
	}
}
