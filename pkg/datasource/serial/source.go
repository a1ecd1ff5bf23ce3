package serial

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/peter-kozarec/ecgmon/pkg/datasource"
	"github.com/peter-kozarec/ecgmon/pkg/dsp"
	"go.bug.st/serial"
	"go.uber.org/zap"
)

// PortOptions describes the UART the front end streams codes over.
type PortOptions struct {
	BaudRate int
	DataBits int
	StopBits int
	Parity   string
}

func DefaultPortOptions() PortOptions {
	return PortOptions{
		BaudRate: 115200,
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
	}
}

func (o PortOptions) SerialMode() (*serial.Mode, error) {
	if o.BaudRate <= 0 {
		return nil, fmt.Errorf("invalid baud rate %d", o.BaudRate)
	}
	if o.DataBits < 5 || o.DataBits > 8 {
		return nil, fmt.Errorf("invalid data bits %d: must be between 5 and 8", o.DataBits)
	}

	mode := &serial.Mode{
		BaudRate: o.BaudRate,
		DataBits: o.DataBits,
	}

	switch o.StopBits {
	case 1:
		mode.StopBits = serial.OneStopBit
	case 2:
		mode.StopBits = serial.TwoStopBits
	default:
		return nil, fmt.Errorf("invalid stop bits %d: supported values are 1 or 2", o.StopBits)
	}

	switch strings.ToUpper(strings.TrimSpace(o.Parity)) {
	case "", "N", "NONE":
		mode.Parity = serial.NoParity
	case "E", "EVEN":
		mode.Parity = serial.EvenParity
	case "O", "ODD":
		mode.Parity = serial.OddParity
	default:
		return nil, fmt.Errorf("unsupported parity %q: expected N, E, or O", o.Parity)
	}
	return mode, nil
}

// Source reads one decimal converter code per line. Lines that do not parse, or that
// hold a code outside the 12-bit range, are counted and skipped.
type Source struct {
	logger  *zap.Logger
	port    io.ReadCloser
	scanner *bufio.Scanner

	lineCount      atomic.Uint64
	malformedCount atomic.Uint64
}

func NewSource(logger *zap.Logger, port io.ReadCloser) *Source {
	return &Source{
		logger:  logger,
		port:    port,
		scanner: bufio.NewScanner(port),
	}
}

// Open opens the serial port at path.
func Open(logger *zap.Logger, path string, opts PortOptions) (*Source, error) {
	mode, err := opts.SerialMode()
	if err != nil {
		return nil, err
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("unable to open serial port %q: %w", path, err)
	}
	return NewSource(logger, port), nil
}

func (s *Source) GetNext() (uint16, error) {
	for s.scanner.Scan() {
		s.lineCount.Add(1)

		line := strings.TrimSpace(s.scanner.Text())
		if line == "" {
			continue
		}
		code, err := strconv.ParseUint(line, 10, 16)
		if err != nil || code > dsp.ADCMaxCode {
			s.malformedCount.Add(1)
			s.logger.Debug("malformed sample line", zap.String("line", line), zap.Error(err))
			continue
		}
		return uint16(code), nil
	}

	if err := s.scanner.Err(); err != nil {
		return 0, fmt.Errorf("unable to read serial line: %w", err)
	}
	return 0, datasource.ErrEof
}

func (s *Source) Malformed() uint64 {
	return s.malformedCount.Load()
}

func (s *Source) Close() error {
	s.logger.Info("serial source closed",
		zap.Uint64("lines", s.lineCount.Load()),
		zap.Uint64("malformed", s.malformedCount.Load()))
	return s.port.Close()
}
