package main

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/peter-kozarec/ecgmon/pkg/datasource"
	"github.com/peter-kozarec/ecgmon/pkg/datasource/replay"
	"github.com/peter-kozarec/ecgmon/pkg/datasource/serial"
	"github.com/peter-kozarec/ecgmon/pkg/datasource/synthetic"
	"github.com/peter-kozarec/ecgmon/pkg/dsp"
	"go.uber.org/zap"
)

type sourceOptions struct {
	kind      string
	input     string
	query     string
	heartRate float64
	seconds   int
}

// openSource returns the selected acquisition source and a function releasing it.
func openSource(ctx context.Context, logger *zap.Logger, opts sourceOptions) (datasource.Source, func(), error) {
	switch opts.kind {
	case "synthetic":
		steps := int64(opts.seconds) * dsp.SampleRate
		gen := synthetic.NewECGGenerator(rand.New(rand.NewSource(SyntheticSeed)), dsp.SampleRate, opts.heartRate, steps)
		gen.SetMains(SyntheticMains)
		gen.SetNoise(SyntheticNoise)
		return gen, func() {}, nil

	case "serial":
		path := opts.input
		if path == "" {
			path = SerialPort
		}
		src, err := serial.Open(logger, path, serial.DefaultPortOptions())
		if err != nil {
			return nil, nil, err
		}
		return src, func() { _ = src.Close() }, nil

	case "binary":
		r := replay.NewBinaryReader(opts.input)
		if err := r.Open(); err != nil {
			return nil, nil, err
		}
		logger.Info("replaying recording", zap.String("path", opts.input), zap.Int64("samples", r.EntryCount()))
		return r, r.Close, nil

	case "duck":
		r := replay.NewDuckReader(opts.input)
		if err := r.Connect(); err != nil {
			return nil, nil, err
		}
		defer r.Close()

		query := opts.query
		if query == "" {
			query = DuckQuery
		}
		rec, err := r.Load(ctx, query)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("replaying query", zap.String("query", query), zap.Int("samples", rec.Len()))
		return rec, func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown source %q", opts.kind)
}
