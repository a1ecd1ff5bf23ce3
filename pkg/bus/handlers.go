package bus

import (
	"context"

	"github.com/peter-kozarec/ecgmon/pkg/common"
)

type EventHandler[T any] = func(context.Context, T)

type WaveformEventHandler EventHandler[common.WaveformSample]
type HeartRateEventHandler EventHandler[common.HeartRate]

func MergeHandlers[T any](handlers ...EventHandler[T]) EventHandler[T] {
	return func(ctx context.Context, event T) {
		for _, handler := range handlers {
			handler(ctx, event)
		}
	}
}
