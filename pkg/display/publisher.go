package display

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/peter-kozarec/ecgmon/pkg/common"
	"github.com/peter-kozarec/ecgmon/pkg/utility"
	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	WaveSubject   = "ecg.wave"
	ParamsSubject = "ecg.params"
)

// Connect dials a NATS server and keeps reconnecting for as long as the monitor runs.
func Connect(url, name string) (*nats.Conn, error) {
	return nats.Connect(
		url,
		nats.Name(name),
		nats.Timeout(3*time.Second),
		nats.ReconnectWait(500*time.Millisecond),
		nats.MaxReconnects(-1),
	)
}

// Conn is the part of *nats.Conn the publisher needs.
type Conn interface {
	Publish(subject string, data []byte) error
}

// Publisher forwards waveform frames and heart-rate updates to NATS subjects.
type Publisher struct {
	logger  *zap.Logger
	conn    Conn
	session utility.SessionID

	batch *batch // owned by the waveform sink

	frameCount atomic.Uint64
	paramCount atomic.Uint64
	failCount  atomic.Uint64
}

func NewPublisher(logger *zap.Logger, conn Conn, session utility.SessionID, batchSize int) *Publisher {
	return &Publisher{
		logger:  logger,
		conn:    conn,
		session: session,
		batch:   newBatch(batchSize),
	}
}

// EncodeHeartRate marshals a heart-rate update as a protobuf Struct.
func EncodeHeartRate(session utility.SessionID, hr common.HeartRate) ([]byte, error) {
	msg := newParamMessage(session, ParamsSubject, hr)
	st, err := structpb.NewStruct(map[string]any{
		"session": msg.Session,
		"subject": msg.Subject,
		"ts":      float64(msg.Ts),
		"ready":   msg.Ready,
		"hr":      msg.HR,
		"avg":     msg.Avg,
		"beat":    float64(msg.Beat),
		"text":    msg.Text,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to build heart rate message: %w", err)
	}
	return proto.Marshal(st)
}

func DecodeHeartRate(b []byte) (map[string]any, error) {
	st := &structpb.Struct{}
	if err := proto.Unmarshal(b, st); err != nil {
		return nil, fmt.Errorf("unable to decode heart rate message: %w", err)
	}
	return st.AsMap(), nil
}

func (p *Publisher) publish(subject string, data []byte) bool {
	if err := p.conn.Publish(subject, data); err != nil {
		p.failCount.Add(1)
		p.logger.Debug("publish failed", zap.String("subject", subject), zap.Error(err))
		return false
	}
	return true
}

// OnSample is a waveform sink. It must be called from a single goroutine.
func (p *Publisher) OnSample(_ context.Context, sample common.WaveformSample) {
	for _, frame := range p.batch.add(sample) {
		if p.publish(WaveSubject, frame) {
			p.frameCount.Add(1)
		}
	}
}

// OnHeartRate is a heart-rate sink.
func (p *Publisher) OnHeartRate(_ context.Context, hr common.HeartRate) {
	b, err := EncodeHeartRate(p.session, hr)
	if err != nil {
		p.failCount.Add(1)
		p.logger.Warn("unable to encode heart rate", zap.Error(err))
		return
	}
	if p.publish(ParamsSubject, b) {
		p.paramCount.Add(1)
	}
}

func (p *Publisher) PrintStatistics() {
	p.logger.Info("publisher statistics",
		zap.String("session", p.session.String()),
		zap.Uint64("waveform_frames", p.frameCount.Load()),
		zap.Uint64("param_messages", p.paramCount.Load()),
		zap.Uint64("failures", p.failCount.Load()))
}
