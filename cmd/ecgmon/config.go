package main

import (
	"time"

	"github.com/peter-kozarec/ecgmon/pkg/middleware"
)

const (
	Version = "0.3.0"

	DefaultMode   = "interrupt"
	DefaultSource = "synthetic"
	DefaultPolicy = "drop"

	SyntheticHeartRate = 72.0 // bpm
	SyntheticMains     = 0.05 // V
	SyntheticNoise     = 0.01 // V
	SyntheticSeed      = 1

	SerialPort  = "/dev/ttyACM0"
	DuckQuery   = "SELECT code FROM read_csv_auto('ecg.csv')"
	NatsName    = "ecgmon"
	FrameBatch  = 10
	SweepWidth  = 320
	SweepHeight = 216
	HistorySize = 10 * 200 // samples kept for the PNG

	FreeRunRetry = 100 * time.Microsecond
	DrainTimeout = 2 * time.Second
	DrainPoll    = 50 * time.Millisecond

	MonitorFlags = middleware.MonitorHeartRate
)
