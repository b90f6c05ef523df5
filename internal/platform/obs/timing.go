package obs

import (
	"context"
	"log"
	"time"
)

type ctxKey string

const BatchIDKey ctxKey = "batch_id"

// WithBatchID stamps the run's batch id onto the context so stage timings can
// be correlated in the log.
func WithBatchID(ctx context.Context, batchID int64) context.Context {
	return context.WithValue(ctx, BatchIDKey, batchID)
}

func Time(ctx context.Context, name string) func(errp *error) {
	start := time.Now()

	batchID, _ := ctx.Value(BatchIDKey).(int64)

	return func(errp *error) {
		dur := time.Since(start)

		if errp != nil && *errp != nil {
			log.Printf("batch_id=%d op=%s dur=%dms err=%v", batchID, name, dur.Milliseconds(), *errp)
			return
		}
		log.Printf("batch_id=%d op=%s dur=%dms", batchID, name, dur.Milliseconds())
	}
}
