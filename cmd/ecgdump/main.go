package main

import (
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/peter-kozarec/ecgmon/internal/dbg"
	"github.com/peter-kozarec/ecgmon/pkg/datasource"
	"github.com/peter-kozarec/ecgmon/pkg/datasource/replay"
	"github.com/peter-kozarec/ecgmon/pkg/datasource/synthetic"
	"github.com/peter-kozarec/ecgmon/pkg/dsp"
	"go.uber.org/zap"
)

// readCSV collects one sample per row from column. With volts the column holds input
// voltages that are converted to codes, otherwise raw codes.
func readCSV(path string, column int, volts bool) ([]uint16, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(f)

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	// Skip header
	if _, err := reader.Read(); err != nil {
		return nil, fmt.Errorf("unable to read header: %w", err)
	}

	var codes []uint16
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if column >= len(record) {
			return nil, fmt.Errorf("line %d: no column %d", line, column)
		}

		if volts {
			v, err := strconv.ParseFloat(record[column], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			codes = append(codes, dsp.Code(v))
			continue
		}

		c, err := strconv.ParseUint(record[column], 10, 16)
		if err != nil || c > dsp.ADCMaxCode {
			return nil, fmt.Errorf("line %d: invalid code %q", line, record[column])
		}
		codes = append(codes, uint16(c))
	}
	return codes, nil
}

func generate(seconds int, heartRate float64) []uint16 {
	gen := synthetic.NewECGGenerator(nil, dsp.SampleRate, heartRate, int64(seconds)*dsp.SampleRate)
	gen.SetMains(0.05)

	var codes []uint16
	for {
		code, err := gen.GetNext()
		if errors.Is(err, datasource.ErrEof) {
			return codes
		}
		codes = append(codes, code)
	}
}

func main() {
	var (
		in      = flag.String("csv", "", "csv recording to convert")
		column  = flag.Int("column", 0, "csv column holding the samples")
		volts   = flag.Bool("volts", false, "csv column holds volts instead of codes")
		seconds = flag.Int("synthetic", 0, "generate this many seconds of synthetic ECG instead")
		hr      = flag.Float64("hr", 60, "synthetic heart rate [bpm]")
		out     = flag.String("out", "ecg.bin", "output file")
	)
	flag.Parse()

	logger := dbg.NewDevLogger()
	defer func(logger *zap.Logger) {
		_ = logger.Sync()
	}(logger)

	var codes []uint16
	switch {
	case *seconds > 0:
		codes = generate(*seconds, *hr)
	case *in != "":
		var err error
		if codes, err = readCSV(*in, *column, *volts); err != nil {
			logger.Fatal("failed to read csv", zap.String("path", *in), zap.Error(err))
		}
	default:
		logger.Fatal("either -csv or -synthetic is required")
	}

	binFile, err := os.Create(*out)
	if err != nil {
		logger.Fatal("failed to create output", zap.Error(err))
	}
	if err := replay.WriteCodes(binFile, codes); err != nil {
		_ = binFile.Close()
		_ = os.Remove(*out)
		logger.Fatal("failed to dump", zap.Error(err))
	}
	if err := binFile.Close(); err != nil {
		logger.Fatal("failed to close output", zap.Error(err))
	}

	logger.Info("dump finished", zap.String("file", *out), zap.Int("samples", len(codes)))
}
