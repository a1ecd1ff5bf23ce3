package middleware

import (
	"context"

	"github.com/peter-kozarec/ecgmon/pkg/common"
)

//goland:noinspection ALL
var (
	NoopWaveformHdl  = func(context.Context, common.WaveformSample) {}
	NoopHeartRateHdl = func(context.Context, common.HeartRate) {}
)
