package account

import (
	"context"
	"fmt"

	"github.com/donia1222/remix-crypto-sub000/internal/model"
)

// GetBalance fetches the account balance summary.
func (c *Client) GetBalance(ctx context.Context) (model.Balance, error) {
	var resp balanceResponse
	if err := c.get(ctx, c.paths.Balance, &resp); err != nil {
		return model.Balance{}, fmt.Errorf("get balance: %w", err)
	}
	b, err := resp.Balance.toModel()
	if err != nil {
		return model.Balance{}, fmt.Errorf("get balance: %w", err)
	}
	return b, nil
}

// GetPnL fetches realized PnL history.
func (c *Client) GetPnL(ctx context.Context) ([]model.IncomeEntry, error) {
	entries, err := c.getIncome(ctx, c.paths.PnL)
	if err != nil {
		return nil, fmt.Errorf("get pnl: %w", err)
	}
	return entries, nil
}

// GetFees fetches trading fee history.
func (c *Client) GetFees(ctx context.Context) ([]model.IncomeEntry, error) {
	entries, err := c.getIncome(ctx, c.paths.Fees)
	if err != nil {
		return nil, fmt.Errorf("get fees: %w", err)
	}
	return entries, nil
}

// GetPositions fetches open positions.
func (c *Client) GetPositions(ctx context.Context) ([]model.Position, error) {
	var rows []positionWire
	if err := c.get(ctx, c.paths.Positions, &rows); err != nil {
		return nil, fmt.Errorf("get positions: %w", err)
	}

	positions := make([]model.Position, 0, len(rows))
	for i, w := range rows {
		p, err := w.toModel()
		if err != nil {
			return nil, fmt.Errorf("get positions: row %d: %w", i, err)
		}
		positions = append(positions, p)
	}
	return positions, nil
}

func (c *Client) getIncome(ctx context.Context, path string) ([]model.IncomeEntry, error) {
	var rows []incomeWire
	if err := c.get(ctx, path, &rows); err != nil {
		return nil, err
	}

	entries := make([]model.IncomeEntry, 0, len(rows))
	for i, w := range rows {
		e, err := w.toModel()
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}
