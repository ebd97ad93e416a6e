package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iwvelando/contract-forecast/internal/snapshot"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Load reads every record of a project inside a single transaction so the
// snapshot reflects one point in time. When includePending is false unposted
// change orders are not read at all.
//
// Cost codes are the declared codes of the project plus any code that only
// appears on a commitment. Commitment and actuals rows are totalled per cost
// code; actuals are read for the configured period, or the latest period on
// file when none is configured.
func (s *Store) Load(ctx context.Context, projectID string, includePending bool) (*snapshot.ProjectSnapshot, error) {
	const op = "store.Store.Load"
	started := time.Now()

	tx, err := s.db.BeginTx(ctx, s.txOptions(true))
	if err != nil {
		return nil, fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	snap := &snapshot.ProjectSnapshot{ProjectID: projectID}

	var name string
	err = tx.QueryRowContext(ctx, s.rebind(`SELECT name FROM projects WHERE id = ?`), projectID).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, snapshot.ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read project %s: %w", projectID, err)
	}

	loaders := []struct {
		name string
		load func(context.Context, *sql.Tx, *snapshot.ProjectSnapshot, bool) error
	}{
		{"cost codes", s.loadCostCodes},
		{"budget baselines", s.loadBaselines},
		{"change orders", s.loadChangeOrders},
		{"commitments", s.loadCommitments},
		{"actuals", s.loadActuals},
		{"overrides", s.loadOverrides},
	}
	for _, l := range loaders {
		if err := l.load(ctx, tx, snap, includePending); err != nil {
			return nil, fmt.Errorf("failed to read %s for project %s: %w", l.name, projectID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to close snapshot transaction: %w", err)
	}

	s.logger.Debug("loaded project snapshot from database",
		zap.String("op", op),
		zap.String("project", projectID),
		zap.String("period", snap.Period),
		zap.Bool("includePending", includePending),
		zap.Int("costCodes", len(snap.CostCodes)),
		zap.Int("changeOrders", len(snap.ChangeOrders)),
		zap.Duration("elapsed", time.Since(started)),
	)
	return snap, nil
}

func (s *Store) loadCostCodes(ctx context.Context, tx *sql.Tx, snap *snapshot.ProjectSnapshot, _ bool) error {
	rows, err := tx.QueryContext(ctx, s.rebind(`
		SELECT code, category FROM cost_codes WHERE project_id = ?
		UNION
		SELECT DISTINCT cost_code, '' FROM commitments
		WHERE project_id = ?
		  AND cost_code NOT IN (SELECT code FROM cost_codes WHERE project_id = ?)
		ORDER BY 1`), snap.ProjectID, snap.ProjectID, snap.ProjectID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var cc snapshot.CostCode
		if err := rows.Scan(&cc.Code, &cc.Category); err != nil {
			return err
		}
		snap.CostCodes = append(snap.CostCodes, cc)
	}
	return rows.Err()
}

func (s *Store) loadBaselines(ctx context.Context, tx *sql.Tx, snap *snapshot.ProjectSnapshot, _ bool) error {
	rows, err := tx.QueryContext(ctx, s.rebind(`
		SELECT cost_code, original_cost_budget, original_revenue_budget
		FROM budget_baselines WHERE project_id = ?
		ORDER BY cost_code`), snap.ProjectID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var b snapshot.BudgetBaseline
		if err := rows.Scan(&b.CostCode, &b.OriginalCostBudget, &b.OriginalRevenueBudget); err != nil {
			return err
		}
		snap.Baselines = append(snap.Baselines, b)
	}
	return rows.Err()
}

func (s *Store) loadChangeOrders(ctx context.Context, tx *sql.Tx, snap *snapshot.ProjectSnapshot, includePending bool) error {
	query := `
		SELECT id, cost_code, kind, direction, status, cost_impact, revenue_impact, advanced
		FROM change_orders WHERE project_id = ?`
	args := []interface{}{snap.ProjectID}
	if !includePending {
		query += ` AND status = ?`
		args = append(args, string(snapshot.StatusPosted))
	}
	query += ` ORDER BY id`

	rows, err := tx.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			co                      snapshot.ChangeOrder
			kind, direction, status string
		)
		if err := rows.Scan(&co.ID, &co.CostCode, &kind, &direction, &status,
			&co.CostImpact, &co.RevenueImpact, &co.Advanced); err != nil {
			return err
		}
		co.Kind = snapshot.ChangeOrderKind(kind)
		co.Direction = snapshot.Direction(direction)
		co.Status = snapshot.PostedStatus(status)
		snap.ChangeOrders = append(snap.ChangeOrders, co)
	}
	return rows.Err()
}

func (s *Store) loadCommitments(ctx context.Context, tx *sql.Tx, snap *snapshot.ProjectSnapshot, _ bool) error {
	rows, err := tx.QueryContext(ctx, s.rebind(`
		SELECT cost_code, committed_amount, spent_outside_commitment
		FROM commitments WHERE project_id = ?
		ORDER BY cost_code`), snap.ProjectID)
	if err != nil {
		return err
	}
	defer rows.Close()

	index := make(map[string]int)
	for rows.Next() {
		var (
			code             string
			committed, spent decimal.Decimal
		)
		if err := rows.Scan(&code, &committed, &spent); err != nil {
			return err
		}
		i, ok := index[code]
		if !ok {
			i = len(snap.Commitments)
			index[code] = i
			snap.Commitments = append(snap.Commitments, snapshot.Commitment{CostCode: code})
		}
		c := &snap.Commitments[i]
		c.CommittedAmount = c.CommittedAmount.Add(committed)
		c.SpentOutsideCommitment = c.SpentOutsideCommitment.Add(spent)
	}
	return rows.Err()
}

func (s *Store) loadActuals(ctx context.Context, tx *sql.Tx, snap *snapshot.ProjectSnapshot, _ bool) error {
	period := s.period
	if period == "" {
		var latest sql.NullString
		err := tx.QueryRowContext(ctx, s.rebind(`SELECT MAX(period) FROM actuals WHERE project_id = ?`),
			snap.ProjectID).Scan(&latest)
		if err != nil {
			return err
		}
		if !latest.Valid {
			return nil
		}
		period = latest.String
	}
	snap.Period = period

	rows, err := tx.QueryContext(ctx, s.rebind(`
		SELECT cost_code, current_period_cost
		FROM actuals WHERE project_id = ? AND period = ?
		ORDER BY cost_code`), snap.ProjectID, period)
	if err != nil {
		return err
	}
	defer rows.Close()

	index := make(map[string]int)
	for rows.Next() {
		var (
			code string
			cost decimal.Decimal
		)
		if err := rows.Scan(&code, &cost); err != nil {
			return err
		}
		i, ok := index[code]
		if !ok {
			i = len(snap.Actuals)
			index[code] = i
			snap.Actuals = append(snap.Actuals, snapshot.ActualsWindow{CostCode: code})
		}
		snap.Actuals[i].CurrentPeriodCost = snap.Actuals[i].CurrentPeriodCost.Add(cost)
	}
	return rows.Err()
}

func (s *Store) loadOverrides(ctx context.Context, tx *sql.Tx, snap *snapshot.ProjectSnapshot, _ bool) error {
	rows, err := tx.QueryContext(ctx, s.rebind(`
		SELECT cost_code, column_key, value
		FROM forecast_overrides WHERE project_id = ?
		ORDER BY cost_code, column_key`), snap.ProjectID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var o snapshot.Override
		if err := rows.Scan(&o.CostCode, &o.Column, &o.Value); err != nil {
			return err
		}
		snap.Overrides = append(snap.Overrides, o)
	}
	return rows.Err()
}
