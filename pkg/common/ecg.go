package common

import "time"

// WaveformSample is one display-filtered sample and its position in the acquired stream.
type WaveformSample struct {
	Position uint64  `json:"pos"`
	Value    float64 `json:"value"`
}

// HeartRate is published on every accepted beat. BPM is only meaningful when Ready.
type HeartRate struct {
	BPM       float64       `json:"bpm"`
	Average   float64       `json:"avg,omitempty"`
	Ready     bool          `json:"ready"`
	Beat      uint64        `json:"beat"`
	BeatTime  time.Duration `json:"beat_time"`
	TimeStamp time.Time     `json:"ts"`
}
