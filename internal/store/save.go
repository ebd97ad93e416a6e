package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/iwvelando/contract-forecast/internal/snapshot"
	"go.uber.org/zap"
)

// projectTables lists the per-project tables, children before parents.
var projectTables = []string{
	"forecast_overrides",
	"actuals",
	"commitments",
	"change_orders",
	"budget_baselines",
	"cost_codes",
}

// Save replaces every stored record of the snapshot's project with the
// snapshot's records. Actuals are filed under the snapshot period. The
// snapshot is validated first and nothing is written when it is malformed.
func (s *Store) Save(ctx context.Context, snap *snapshot.ProjectSnapshot) error {
	const op = "store.Store.Save"
	if snap == nil || snap.ProjectID == "" {
		return fmt.Errorf("snapshot has no project id")
	}
	if _, err := snap.Group(); err != nil {
		return err
	}
	if len(snap.Actuals) > 0 && snap.Period == "" {
		return fmt.Errorf("snapshot for project %s has actuals but no period", snap.ProjectID)
	}

	tx, err := s.db.BeginTx(ctx, s.txOptions(false))
	if err != nil {
		return fmt.Errorf("failed to begin save transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, table := range projectTables {
		if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM `+table+` WHERE project_id = ?`), snap.ProjectID); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM projects WHERE id = ?`), snap.ProjectID); err != nil {
		return fmt.Errorf("failed to clear project: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO projects (id, name) VALUES (?, ?)`), snap.ProjectID, snap.ProjectID); err != nil {
		return fmt.Errorf("failed to insert project: %w", err)
	}

	if err := s.insertRecords(ctx, tx, snap); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit project %s: %w", snap.ProjectID, err)
	}
	s.logger.Info("saved project snapshot",
		zap.String("op", op),
		zap.String("project", snap.ProjectID),
		zap.String("period", snap.Period),
		zap.Int("costCodes", len(snap.CostCodes)),
	)
	return nil
}

func (s *Store) insertRecords(ctx context.Context, tx *sql.Tx, snap *snapshot.ProjectSnapshot) error {
	exec := func(what, query string, args ...interface{}) error {
		if _, err := tx.ExecContext(ctx, s.rebind(query), args...); err != nil {
			return fmt.Errorf("failed to insert %s: %w", what, err)
		}
		return nil
	}

	for _, cc := range snap.CostCodes {
		if err := exec("cost code "+cc.Code,
			`INSERT INTO cost_codes (project_id, code, category) VALUES (?, ?, ?)`,
			snap.ProjectID, cc.Code, cc.Category); err != nil {
			return err
		}
	}
	for _, b := range snap.Baselines {
		if err := exec("baseline for "+b.CostCode,
			`INSERT INTO budget_baselines (project_id, cost_code, original_cost_budget, original_revenue_budget) VALUES (?, ?, ?, ?)`,
			snap.ProjectID, b.CostCode, b.OriginalCostBudget.String(), b.OriginalRevenueBudget.String()); err != nil {
			return err
		}
	}
	for i, co := range snap.ChangeOrders {
		id := co.ID
		if id == "" {
			id = fmt.Sprintf("auto-%s-%d", co.Kind, i+1)
		}
		if err := exec("change order "+id,
			`INSERT INTO change_orders (id, project_id, cost_code, kind, direction, status, cost_impact, revenue_impact, advanced)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, snap.ProjectID, co.CostCode, string(co.Kind), string(co.Direction), string(co.Status),
			co.CostImpact.String(), co.RevenueImpact.String(), co.Advanced); err != nil {
			return err
		}
	}
	for _, c := range snap.Commitments {
		if err := exec("commitment for "+c.CostCode,
			`INSERT INTO commitments (project_id, cost_code, committed_amount, spent_outside_commitment) VALUES (?, ?, ?, ?)`,
			snap.ProjectID, c.CostCode, c.CommittedAmount.String(), c.SpentOutsideCommitment.String()); err != nil {
			return err
		}
	}
	for _, a := range snap.Actuals {
		if err := exec("actuals for "+a.CostCode,
			`INSERT INTO actuals (project_id, cost_code, period, current_period_cost) VALUES (?, ?, ?, ?)`,
			snap.ProjectID, a.CostCode, snap.Period, a.CurrentPeriodCost.String()); err != nil {
			return err
		}
	}
	for _, o := range snap.Overrides {
		if err := exec("override for "+o.CostCode,
			`INSERT INTO forecast_overrides (project_id, cost_code, column_key, value) VALUES (?, ?, ?, ?)`,
			snap.ProjectID, o.CostCode, o.Column, o.Value); err != nil {
			return err
		}
	}
	return nil
}
