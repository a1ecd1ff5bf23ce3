package bus

import "go.uber.org/zap"

type Statistics struct {
	Name         string
	PostCount    uint64
	PostFails    uint64
	PostTimeouts uint64
	ReceiveCount uint64
}

func (s Statistics) Print(logger *zap.Logger) {
	logger.Info("queue statistics",
		zap.String("queue", s.Name),
		zap.Uint64("post_count", s.PostCount),
		zap.Uint64("post_fails", s.PostFails),
		zap.Uint64("post_timeouts", s.PostTimeouts),
		zap.Uint64("receive_count", s.ReceiveCount))
}
