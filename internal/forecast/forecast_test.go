package forecast_test

import (
	"context"
	"errors"
	"testing"

	"github.com/iwvelando/contract-forecast/internal/forecast"
	"github.com/iwvelando/contract-forecast/internal/snapshot"
	"github.com/iwvelando/contract-forecast/pkg/testutil"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type stubLoader struct {
	snap           *snapshot.ProjectSnapshot
	err            error
	includePending bool
	calls          int
}

func (l *stubLoader) Load(_ context.Context, projectID string, includePending bool) (*snapshot.ProjectSnapshot, error) {
	l.calls++
	l.includePending = includePending
	if l.err != nil {
		return nil, l.err
	}
	if projectID != l.snap.ProjectID {
		return nil, snapshot.ErrProjectNotFound
	}
	return l.snap, nil
}

func TestServiceForecast(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	loader := &stubLoader{snap: testutil.ConcreteScenario()}
	svc := forecast.NewService(loader, zap.New(core), forecast.Options{})

	result, err := svc.Forecast(context.Background(), "P-100", true)
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}
	if !loader.includePending {
		t.Error("expected includePending to be passed to the loader")
	}
	if !result.Options.IncludePending {
		t.Error("expected result to record includePending")
	}
	if got := result.Lines[0].N; !got.Equal(testutil.Dec("42000")) {
		t.Errorf("N = %s, expected 42000", got)
	}
	if logs.FilterMessage("computed forecast").Len() != 1 {
		t.Errorf("expected one computed forecast log entry, got %v", logs.All())
	}
	for _, entry := range logs.All() {
		if entry.ContextMap()["op"] != "forecast.Service.Forecast" {
			t.Errorf("log entry %q is missing its op field", entry.Message)
		}
	}
}

func TestServiceForecastErrors(t *testing.T) {
	_, err := forecast.NewService(&stubLoader{snap: testutil.ConcreteScenario()}, nil, forecast.Options{}).
		Forecast(context.Background(), "P-404", true)
	if !errors.Is(err, snapshot.ErrProjectNotFound) {
		t.Errorf("expected ErrProjectNotFound, got %v", err)
	}

	bad := testutil.ConcreteScenario()
	bad.Commitments[0].CommittedAmount = testutil.Dec("-1")
	_, err = forecast.NewService(&stubLoader{snap: bad}, nil, forecast.Options{}).
		Forecast(context.Background(), "P-100", false)
	var integrity *snapshot.DataIntegrityError
	if !errors.As(err, &integrity) || integrity.Field != "committedAmount" {
		t.Errorf("expected committedAmount DataIntegrityError, got %v", err)
	}

	if _, err := forecast.NewService(nil, nil, forecast.Options{}).Forecast(context.Background(), "P-100", true); !errors.Is(err, forecast.ErrNilLoader) {
		t.Errorf("expected ErrNilLoader, got %v", err)
	}
}

func TestServiceUsesDefaultOptions(t *testing.T) {
	snap := testutil.ConcreteScenario()
	snap.Commitments[0].CommittedAmount = testutil.Dec("120000")
	svc := forecast.NewService(&stubLoader{snap: snap}, nil, forecast.Options{AlternateCostForecast: true})

	result, err := svc.Forecast(context.Background(), "P-100", true)
	if err != nil {
		t.Fatalf("Forecast() error = %v", err)
	}
	if got := result.Lines[0].I; !got.Equal(testutil.Dec("108000")) {
		t.Errorf("I = %s, expected A + F = 108000", got)
	}
	if !svc.Options().AlternateCostForecast {
		t.Error("expected defaults to be retained")
	}
}

func TestServiceVerify(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	svc := forecast.NewService(&stubLoader{snap: testutil.MixedScenario()}, zap.New(core), forecast.Options{})

	v, err := svc.Verify(context.Background(), "P-200", false)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !v.AllPassed() {
		t.Errorf("expected every check to pass, failed: %+v", v.Failed())
	}
	if logs.FilterMessage(v.Summary()).Len() != 1 {
		t.Errorf("expected summary to be logged, got %v", logs.All())
	}
	if logs.FilterMessage("verification check failed").Len() != 0 {
		t.Error("expected no failed check logs")
	}
}
