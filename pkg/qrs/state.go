package qrs

import (
	"fmt"
	"time"
)

type State uint8

const (
	StateWarmingUp State = iota
	StateSearching
	StateCandidatePeak
	StateRefractory
)

func (s State) String() string {
	switch s {
	case StateWarmingUp:
		return "warming_up"
	case StateSearching:
		return "searching"
	case StateCandidatePeak:
		return "candidate_peak"
	case StateRefractory:
		return "refractory"
	default:
		return fmt.Sprintf("state(%d)", uint8(s))
	}
}

type Outcome uint8

const (
	NoBeat Outcome = iota
	BeatAccepted
)

type Reason uint8

const (
	ReasonNone Reason = iota
	ReasonWarmingUp
	ReasonNoCandidate
	ReasonBelowThreshold
	ReasonRefractory
	ReasonInvalidSample
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonWarmingUp:
		return "warming_up"
	case ReasonNoCandidate:
		return "no_candidate"
	case ReasonBelowThreshold:
		return "below_threshold"
	case ReasonRefractory:
		return "refractory"
	case ReasonInvalidSample:
		return "invalid_sample"
	default:
		return fmt.Sprintf("reason(%d)", uint8(r))
	}
}

// Candidate is a fiducial mark: a local maximum of the integrated signal.
type Candidate struct {
	Index     uint64
	Amplitude float64
}

type Beat struct {
	Index     uint64
	Time      time.Duration // offset of Index from the first sample
	Amplitude float64
	Interval  uint64 // samples since the previous beat, 0 for the first
	HeartRate float64
	Ready     bool
}

type Decision struct {
	Outcome   Outcome
	Reason    Reason
	Candidate Candidate
	Beat      Beat
}

func (d Decision) Accepted() bool {
	return d.Outcome == BeatAccepted
}

type Levels struct {
	Signal    float64
	Noise     float64
	Threshold float64
}
