package display

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/peter-kozarec/ecgmon/pkg/common"
	"github.com/peter-kozarec/ecgmon/pkg/utility"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

type message struct {
	subject string
	data    []byte
}

type fakeConn struct {
	mu       sync.Mutex
	messages []message
	err      error
}

func (c *fakeConn) Publish(subject string, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.messages = append(c.messages, message{subject, data})
	return nil
}

func TestPublisher_Waveform(t *testing.T) {
	conn := &fakeConn{}
	p := NewPublisher(zaptest.NewLogger(t), conn, utility.GetSessionID(), 2)

	for _, s := range samplesFrom(0, 0.5, 0.25, -0.5, 1, 2) {
		p.OnSample(context.Background(), s)
	}

	require.Len(t, conn.messages, 2)
	for i, m := range conn.messages {
		assert.Equal(t, WaveSubject, m.subject)
		samples, err := DecodeWaveform(m.data)
		require.NoError(t, err)
		require.Len(t, samples, 2)
		assert.Equal(t, uint64(2*i), samples[0].Position)
	}
}

func TestPublisher_HeartRate(t *testing.T) {
	conn := &fakeConn{}
	session := utility.GetSessionID()
	p := NewPublisher(zaptest.NewLogger(t), conn, session, 0)

	p.OnHeartRate(context.Background(), common.HeartRate{BPM: 60, Average: 61, Ready: true, Beat: 477})

	require.Len(t, conn.messages, 1)
	assert.Equal(t, ParamsSubject, conn.messages[0].subject)

	fields, err := DecodeHeartRate(conn.messages[0].data)
	require.NoError(t, err)
	assert.Equal(t, session.String(), fields["session"])
	assert.Equal(t, ParamsSubject, fields["subject"])
	assert.Equal(t, true, fields["ready"])
	assert.Equal(t, 60.0, fields["hr"])
	assert.Equal(t, 61.0, fields["avg"])
	assert.Equal(t, 477.0, fields["beat"])
	assert.Equal(t, "Heart Rate: 60.0 bpm", fields["text"])
}

func TestDecodeHeartRate_Garbage(t *testing.T) {
	_, err := DecodeHeartRate([]byte{0xff, 0xff, 0xff})
	assert.Error(t, err)
}

func TestPublisher_CountsFailures(t *testing.T) {
	conn := &fakeConn{err: errors.New("nats: connection closed")}
	core, logs := observer.New(zap.InfoLevel)
	p := NewPublisher(zap.New(core), conn, utility.GetSessionID(), 1)

	p.OnSample(context.Background(), common.WaveformSample{})
	p.OnHeartRate(context.Background(), common.HeartRate{})
	p.PrintStatistics()

	entries := logs.FilterMessage("publisher statistics").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, uint64(2), fields["failures"])
	assert.Equal(t, uint64(0), fields["waveform_frames"])
}
