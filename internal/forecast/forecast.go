package forecast

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iwvelando/contract-forecast/internal/snapshot"
	"go.uber.org/zap"
)

// ErrNilLoader is returned when a Service has no snapshot source.
var ErrNilLoader = errors.New("forecast service has no snapshot loader")

// Service resolves project snapshots through a Loader and runs the
// calculation and verification engines over them. The engines themselves are
// pure; all logging happens here.
type Service struct {
	loader  snapshot.Loader
	logger  *zap.Logger
	options Options
}

// NewService builds a Service. A nil logger is replaced with a no-op logger.
// opts supplies the defaults; IncludePending is always taken per request.
func NewService(loader snapshot.Loader, logger *zap.Logger, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{loader: loader, logger: logger, options: opts}
}

// Options returns the service defaults.
func (s *Service) Options() Options {
	return s.options
}

func (s *Service) load(ctx context.Context, op, projectID string, includePending bool) (*snapshot.ProjectSnapshot, error) {
	if s.loader == nil {
		return nil, ErrNilLoader
	}
	started := time.Now()
	snap, err := s.loader.Load(ctx, projectID, includePending)
	if err != nil {
		s.logger.Warn("failed to load project snapshot",
			zap.String("op", op),
			zap.String("project", projectID),
			zap.Error(err),
		)
		return nil, fmt.Errorf("load project %s: %w", projectID, err)
	}
	s.logger.Debug("loaded project snapshot",
		zap.String("op", op),
		zap.String("project", projectID),
		zap.String("period", snap.Period),
		zap.Int("costCodes", len(snap.CostCodes)),
		zap.Int("changeOrders", len(snap.ChangeOrders)),
		zap.Duration("elapsed", time.Since(started)),
	)
	return snap, nil
}

func (s *Service) requestOptions(includePending bool) Options {
	opts := s.options
	opts.IncludePending = includePending
	return opts
}

// Forecast loads a project and computes its forecast matrix.
func (s *Service) Forecast(ctx context.Context, projectID string, includePending bool) (*Result, error) {
	const op = "forecast.Service.Forecast"
	snap, err := s.load(ctx, op, projectID, includePending)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	result, err := ComputeWithOptions(snap, s.requestOptions(includePending))
	if err != nil {
		s.logger.Warn("rejected project snapshot",
			zap.String("op", op),
			zap.String("project", projectID),
			zap.Error(err),
		)
		return nil, err
	}
	s.logger.Info("computed forecast",
		zap.String("op", op),
		zap.String("project", projectID),
		zap.Bool("includePending", includePending),
		zap.Int("lines", len(result.Lines)),
		zap.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}

// Verify loads a project, computes its forecast matrix and re-derives it.
// Failed checks are logged but do not produce an error.
func (s *Service) Verify(ctx context.Context, projectID string, includePending bool) (*Verification, error) {
	const op = "forecast.Service.Verify"
	snap, err := s.load(ctx, op, projectID, includePending)
	if err != nil {
		return nil, err
	}

	v, err := VerifyWithOptions(snap, s.requestOptions(includePending))
	if err != nil {
		s.logger.Warn("rejected project snapshot",
			zap.String("op", op),
			zap.String("project", projectID),
			zap.Error(err),
		)
		return nil, err
	}

	for _, c := range v.Failed() {
		s.logger.Error("verification check failed",
			zap.String("op", op),
			zap.String("project", projectID),
			zap.String("costCode", c.CostCode),
			zap.String("column", c.Column),
			zap.String("check", c.Label),
		)
	}
	s.logger.Info(v.Summary(),
		zap.String("op", op),
		zap.String("project", projectID),
		zap.Bool("includePending", includePending),
	)
	return v, nil
}
