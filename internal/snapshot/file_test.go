package snapshot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleYAML = `projectId: P-1
period: "2025-06"
costCodes:
  - code: C-100
    category: Concrete
baselines:
  - costCode: C-100
    originalCostBudget: 100000
    originalRevenueBudget: "150000.00"
changeOrders:
  - id: PCI-1
    costCode: C-100
    kind: PCI
    direction: internal
    status: posted
    costImpact: 5000
    revenueImpact: 0
commitments:
  - costCode: C-100
    committedAmount: 80000
    spentOutsideCommitment: 2000.50
actuals:
  - costCode: C-100
    currentPeriodCost: 1250.25
overrides:
  - costCode: C-100
    column: F
    value: 10000
`

func TestDecode(t *testing.T) {
	snap, err := Decode(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if snap.ProjectID != "P-1" || snap.Period != "2025-06" {
		t.Errorf("unexpected header: %+v", snap)
	}
	if len(snap.CostCodes) != 1 || snap.CostCodes[0].Category != "Concrete" {
		t.Fatalf("unexpected cost codes: %+v", snap.CostCodes)
	}
	if !snap.Baselines[0].OriginalCostBudget.Equal(d("100000")) {
		t.Errorf("expected cost budget 100000, got %s", snap.Baselines[0].OriginalCostBudget)
	}
	if !snap.Baselines[0].OriginalRevenueBudget.Equal(d("150000")) {
		t.Errorf("expected revenue budget 150000, got %s", snap.Baselines[0].OriginalRevenueBudget)
	}
	if snap.ChangeOrders[0].Kind != KindPCI || snap.ChangeOrders[0].Direction != DirectionInternal {
		t.Errorf("unexpected change order: %+v", snap.ChangeOrders[0])
	}
	if !snap.Commitments[0].SpentOutsideCommitment.Equal(d("2000.50")) {
		t.Errorf("expected spent outside 2000.50, got %s", snap.Commitments[0].SpentOutsideCommitment)
	}
	if snap.Overrides[0].Value != "10000" {
		t.Errorf("expected raw override value 10000, got %q", snap.Overrides[0].Value)
	}
}

func TestDecodeRejectsUnknownFields(t *testing.T) {
	if _, err := Decode(strings.NewReader("projectId: P-1\nbogus: true\n")); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestDecodeEmpty(t *testing.T) {
	if _, err := Decode(strings.NewReader("")); err == nil {
		t.Fatal("expected error for empty snapshot")
	}
}

func TestFileLoaderDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "P-1.yaml"), []byte(sampleYAML), 0600); err != nil {
		t.Fatalf("failed to write snapshot: %v", err)
	}

	loader := NewFileLoader(dir)
	snap, err := loader.Load(context.Background(), "P-1", true)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if snap.ProjectID != "P-1" {
		t.Errorf("expected project P-1, got %s", snap.ProjectID)
	}

	if _, err := loader.Load(context.Background(), "P-2", true); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("expected ErrProjectNotFound, got %v", err)
	}
	if _, err := loader.Load(context.Background(), "../P-1", true); err == nil {
		t.Error("expected error for path-like project id")
	}
}

func TestFileLoaderSingleFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0600); err != nil {
		t.Fatalf("failed to write snapshot: %v", err)
	}

	loader := NewFileLoader(path)
	if _, err := loader.Load(context.Background(), "", false); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if _, err := loader.Load(context.Background(), "P-9", false); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("expected ErrProjectNotFound for mismatched project, got %v", err)
	}
}

func TestFileLoaderMissingRoot(t *testing.T) {
	loader := NewFileLoader(filepath.Join(t.TempDir(), "missing"))
	if _, err := loader.Load(context.Background(), "P-1", true); !errors.Is(err, ErrProjectNotFound) {
		t.Errorf("expected ErrProjectNotFound, got %v", err)
	}
}

func TestFileLoaderCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewFileLoader(t.TempDir()).Load(ctx, "P-1", true); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
