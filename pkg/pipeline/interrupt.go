package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/peter-kozarec/ecgmon/pkg/common"
	"github.com/peter-kozarec/ecgmon/pkg/datasource"
	"github.com/peter-kozarec/ecgmon/pkg/isr"
	"github.com/peter-kozarec/ecgmon/pkg/utility/circular"
	"go.uber.org/zap"
)

const (
	vectorProcessing isr.Vector = iota
	vectorDetection
	vectorDisplay
)

// Lower runs first. Acquisition sits above all of them: it runs on the sampler
// goroutine and only ever touches the raw ring and the processing vector.
const (
	priorityProcessing = 1
	priorityDetection  = 2
	priorityDisplay    = 3
)

type DetectionState uint32

const (
	DetectionIdle DetectionState = iota
	DetectionPending
)

type ReadoutState uint32

const (
	ReadoutIdle ReadoutState = iota
	ReadoutReady
)

// InterruptChained runs every stage as a software vector on one controller. Each stage
// pends the next one when it leaves work behind. Ring buffers link the stages; the raw
// ring is the only one crossing goroutines.
type InterruptChained struct {
	logger *zap.Logger
	cfg    Configuration
	core   *Core
	sinks  Sinks
	ctrl   *isr.Controller

	raw       *circular.RingBuffer[datasource.Sample]
	detection *circular.RingBuffer[float64]
	waveform  *circular.RingBuffer[common.WaveformSample]
	heartRate *circular.RingBuffer[common.HeartRate]

	admission      admission
	running        atomic.Bool
	detectionState atomic.Uint32
	readoutState   atomic.Uint32

	stats counters
}

func NewInterruptChained(cfg Configuration, core *Core, sinks Sinks, logger *zap.Logger) (*InterruptChained, error) {
	p := &InterruptChained{
		logger: logger,
		cfg:    cfg,
		core:   core,
		sinks:  sinks.withDefaults(),
		ctrl:   isr.NewController(logger),
	}

	var err error
	if p.raw, err = circular.NewRingBuffer[datasource.Sample](cfg.RawCapacity); err != nil {
		return nil, fmt.Errorf("%w: raw: %w", ErrConfiguration, err)
	}
	if p.detection, err = circular.NewRingBuffer[float64](cfg.DetectionCapacity); err != nil {
		return nil, fmt.Errorf("%w: detection: %w", ErrConfiguration, err)
	}
	if p.waveform, err = circular.NewRingBuffer[common.WaveformSample](cfg.WaveformCapacity); err != nil {
		return nil, fmt.Errorf("%w: waveform: %w", ErrConfiguration, err)
	}
	if p.heartRate, err = circular.NewRingBuffer[common.HeartRate](cfg.HeartRateCapacity); err != nil {
		return nil, fmt.Errorf("%w: heart rate: %w", ErrConfiguration, err)
	}

	if err := p.ctrl.Register(vectorProcessing, priorityProcessing, "processing", p.processing); err != nil {
		return nil, err
	}
	if err := p.ctrl.Register(vectorDetection, priorityDetection, "detection", p.detect); err != nil {
		return nil, err
	}
	if err := p.ctrl.Register(vectorDisplay, priorityDisplay, "display", p.display); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *InterruptChained) Acquire(sample datasource.Sample) error {
	if err := p.raw.Put(sample); err != nil {
		p.admission.reject(sample.Position, &p.stats)
		return err
	}
	p.admission.accept(sample.Position, &p.stats)
	p.ctrl.Trigger(vectorProcessing)
	return nil
}

func (p *InterruptChained) Run(ctx context.Context) error {
	if !p.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer p.running.Store(false)

	logStages(p.logger, ModeInterruptChained, p.Stages())
	go p.ctrl.Exec(ctx)
	return <-p.ctrl.Done()
}

func (p *InterruptChained) Reset() error {
	if p.running.Load() {
		return ErrRunning
	}
	if err := p.ctrl.Clear(); err != nil {
		return fmt.Errorf("%w: %w", ErrRunning, err)
	}

	p.raw.Reset()
	p.detection.Reset()
	p.waveform.Reset()
	p.heartRate.Reset()
	p.detectionState.Store(uint32(DetectionIdle))
	p.readoutState.Store(uint32(ReadoutIdle))

	p.core.Reset()
	p.admission = admission{}
	p.stats.reset()
	startSession(p.logger, ModeInterruptChained)
	return nil
}

// processing moves raw samples through the core while both downstream rings have room.
// Stopping early leaves the rest in the raw ring, which pushes back to acquisition.
func (p *InterruptChained) processing(_ context.Context) {
	for !p.detection.IsFull() && !p.waveform.IsFull() {
		s, err := p.raw.Get()
		if err != nil {
			break
		}

		conditioned, integrated, ok := p.core.Process(s.Code)
		if !ok {
			p.stats.nonFinite.Add(1)
			continue
		}
		p.stats.processed.Add(1)

		if err := p.detection.Put(integrated); err != nil {
			p.stats.detectionDrops.Add(1)
		}
		if err := p.waveform.Put(common.WaveformSample{Position: s.Position, Value: conditioned}); err != nil {
			p.stats.waveformDrops.Add(1)
		}
	}

	if p.detection.Size() >= p.cfg.DetectionBatch {
		p.detectionState.Store(uint32(DetectionPending))
		p.ctrl.Trigger(vectorDetection)
	}
	if !p.waveform.IsEmpty() {
		p.ctrl.Trigger(vectorDisplay)
	}
}

func (p *InterruptChained) detect(_ context.Context) {
	if !p.detectionState.CompareAndSwap(uint32(DetectionPending), uint32(DetectionIdle)) {
		return
	}

	for _, y := range p.detection.Drain() {
		dec := p.core.Detect(y)
		if !dec.Accepted() {
			continue
		}
		p.stats.beats.Add(1)

		// A full readout ring keeps the value the display has not shown yet.
		if err := p.heartRate.Put(p.core.HeartRate(dec.Beat)); err != nil {
			p.stats.heartRateDrops.Add(1)
			p.logger.Debug("heart rate dropped", zap.Uint64("beat", dec.Beat.Index), zap.Error(err))
			continue
		}
		p.readoutState.Store(uint32(ReadoutReady))
	}

	if p.ReadoutState() == ReadoutReady {
		p.ctrl.Trigger(vectorDisplay)
	}
	if !p.raw.IsEmpty() {
		p.ctrl.Trigger(vectorProcessing)
	}
}

func (p *InterruptChained) display(ctx context.Context) {
	for _, s := range p.waveform.Drain() {
		p.sinks.Waveform(ctx, p.core.Display(s))
		p.stats.displayed.Add(1)
	}

	if p.readoutState.CompareAndSwap(uint32(ReadoutReady), uint32(ReadoutIdle)) {
		for _, hr := range p.heartRate.Drain() {
			p.sinks.HeartRate(ctx, hr)
			p.stats.readoutUpdates.Add(1)
		}
	}

	if !p.raw.IsEmpty() {
		p.ctrl.Trigger(vectorProcessing)
	}
}

func (p *InterruptChained) DetectionState() DetectionState {
	return DetectionState(p.detectionState.Load())
}

func (p *InterruptChained) ReadoutState() ReadoutState {
	return ReadoutState(p.readoutState.Load())
}

func (p *InterruptChained) Stages() []Stage {
	return []Stage{
		{Name: "acquisition", Input: "source", Outputs: []string{"raw"}, Trigger: "timer", Priority: 0},
		{Name: "processing", Input: "raw", Outputs: []string{"detection", "waveform"}, Trigger: "acquisition", Priority: priorityProcessing},
		{Name: "detection", Input: "detection", Outputs: []string{"heart_rate"}, Trigger: "detection batch", Priority: priorityDetection},
		{Name: "display", Input: "waveform", Outputs: []string{"waveform sink", "heart rate sink"}, Trigger: "processing, detection", Priority: priorityDisplay},
	}
}

func (p *InterruptChained) Statistics() Statistics {
	return p.stats.snapshot()
}

func (p *InterruptChained) PrintStatistics() {
	p.stats.snapshot().Print(p.logger)
	p.ctrl.PrintStatistics()
}
