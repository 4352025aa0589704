package account

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/donia1222/remix-crypto-sub000/internal/model"
)

// Errors
var (
	ErrEmptyData     = errors.New("response has no data")
	ErrInvalidRecord = errors.New("invalid record")
)

// balanceResponse is the data of GET <balance>.
type balanceResponse struct {
	Balance balanceWire `json:"balance"`
}

type balanceWire struct {
	Asset            string          `json:"asset"`
	Balance          decimal.Decimal `json:"balance"`
	Equity           decimal.Decimal `json:"equity"`
	UnrealizedProfit decimal.Decimal `json:"unrealizedProfit"`
	RealisedProfit   decimal.Decimal `json:"realisedProfit"`
	AvailableMargin  decimal.Decimal `json:"availableMargin"`
	UsedMargin       decimal.Decimal `json:"usedMargin"`
}

// incomeWire is one row of GET <pnl> and GET <fees>.
type incomeWire struct {
	Symbol     string          `json:"symbol"`
	IncomeType string          `json:"incomeType"`
	Income     decimal.Decimal `json:"income"`
	Asset      string          `json:"asset"`
	Info       string          `json:"info"`
	Time       int64           `json:"time"` // Milliseconds
	TranID     flexString      `json:"tranId"`
}

// positionWire is one row of GET <positions>.
type positionWire struct {
	Symbol           string          `json:"symbol"`
	PositionID       flexString      `json:"positionId"`
	PositionSide     string          `json:"positionSide"`
	PositionAmt      decimal.Decimal `json:"positionAmt"`
	AvgPrice         decimal.Decimal `json:"avgPrice"`
	MarkPrice        decimal.Decimal `json:"markPrice"`
	UnrealizedProfit decimal.Decimal `json:"unrealizedProfit"`
	Leverage         int             `json:"leverage"`
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*f = ""
		return nil
	}
	if unq, err := strconv.Unquote(s); err == nil {
		*f = flexString(unq)
		return nil
	}
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return fmt.Errorf("flexString: %s is neither string nor number", s)
	}
	*f = flexString(s)
	return nil
}

func (w balanceWire) toModel() (model.Balance, error) {
	if w.Asset == "" {
		return model.Balance{}, fmt.Errorf("%w: balance without asset", ErrInvalidRecord)
	}
	return model.Balance{
		Asset:            w.Asset,
		Balance:          w.Balance,
		Equity:           w.Equity,
		UnrealizedProfit: w.UnrealizedProfit,
		RealisedProfit:   w.RealisedProfit,
		AvailableMargin:  w.AvailableMargin,
		UsedMargin:       w.UsedMargin,
	}, nil
}

func (w incomeWire) toModel() (model.IncomeEntry, error) {
	if w.IncomeType == "" {
		return model.IncomeEntry{}, fmt.Errorf("%w: income without type", ErrInvalidRecord)
	}
	if w.Time <= 0 {
		return model.IncomeEntry{}, fmt.Errorf("%w: income without time", ErrInvalidRecord)
	}
	return model.IncomeEntry{
		Symbol:     w.Symbol,
		IncomeType: w.IncomeType,
		Income:     w.Income,
		Asset:      w.Asset,
		Info:       w.Info,
		Time:       time.UnixMilli(w.Time).UTC(),
		TranID:     string(w.TranID),
	}, nil
}

func (w positionWire) toModel() (model.Position, error) {
	if w.Symbol == "" {
		return model.Position{}, fmt.Errorf("%w: position without symbol", ErrInvalidRecord)
	}
	side := strings.ToUpper(w.PositionSide)
	if side == "" || side == "BOTH" {
		side = "LONG"
		if w.PositionAmt.IsNegative() {
			side = "SHORT"
		}
	}
	return model.Position{
		Symbol:           w.Symbol,
		PositionID:       string(w.PositionID),
		Side:             side,
		Amount:           w.PositionAmt.Abs(),
		AvgPrice:         w.AvgPrice,
		MarkPrice:        w.MarkPrice,
		UnrealizedProfit: w.UnrealizedProfit,
		Leverage:         w.Leverage,
	}, nil
}
