package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// -----------------------------------------------------------------------------
// Market Data Types
// -----------------------------------------------------------------------------

// Direction is the price movement of a quote between two flushes.
type Direction string

const (
	DirectionUp      Direction = "up"
	DirectionDown    Direction = "down"
	DirectionNeutral Direction = "neutral"
)

// CompareDirection returns the direction of newPrice relative to oldPrice.
func CompareDirection(newPrice, oldPrice decimal.Decimal) Direction {
	switch newPrice.Cmp(oldPrice) {
	case 1:
		return DirectionUp
	case -1:
		return DirectionDown
	default:
		return DirectionNeutral
	}
}

// TrackedSymbol is a trading pair shown on the site, with static display metadata.
type TrackedSymbol struct {
	Symbol         string          `yaml:"symbol" json:"symbol"`                   // Exchange ticker (e.g., "BTCUSDT")
	Name           string          `yaml:"name" json:"name"`                       // Display name (e.g., "Bitcoin")
	Code           string          `yaml:"code" json:"code"`                       // Short code (e.g., "BTC")
	Volume         string          `yaml:"volume" json:"volume"`                   // Indicative 24h volume string
	MarketCap      string          `yaml:"market_cap" json:"market_cap"`           // Indicative market cap string
	ReferencePrice decimal.Decimal `yaml:"reference_price" json:"reference_price"` // Seed price before the feed delivers
}

// PriceQuote is the displayed state of one symbol.
type PriceQuote struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	LastPrice decimal.Decimal `json:"last_price"`
	Direction Direction       `json:"direction"`
	Synthetic bool            `json:"synthetic"` // Produced by the fallback generator
	UpdatedAt time.Time       `json:"updated_at"`
}

// ChangePercent returns the move from LastPrice to Price in percent.
// Zero when there is no previous price.
func (q PriceQuote) ChangePercent() decimal.Decimal {
	if q.LastPrice.IsZero() {
		return decimal.Zero
	}
	return q.Price.Sub(q.LastPrice).Div(q.LastPrice).Mul(decimal.NewFromInt(100)).Round(2)
}

// QuoteView is a PriceQuote with display strings, as served to the site.
type QuoteView struct {
	PriceQuote
	Name          string `json:"name,omitempty"`
	Code          string `json:"code,omitempty"`
	PriceText     string `json:"price_text"`
	ChangePercent string `json:"change_percent"`
}

// Display renders the quote for a view. meta may be zero-valued.
func (q PriceQuote) Display(meta TrackedSymbol) QuoteView {
	return QuoteView{
		PriceQuote:    q,
		Name:          meta.Name,
		Code:          meta.Code,
		PriceText:     FormatUSD(q.Price),
		ChangePercent: FormatPercent(q.ChangePercent()),
	}
}

// -----------------------------------------------------------------------------
// Account Types
// -----------------------------------------------------------------------------

// Balance is the futures account balance summary.
type Balance struct {
	Asset            string          `json:"asset"`
	Balance          decimal.Decimal `json:"balance"`
	Equity           decimal.Decimal `json:"equity"`
	UnrealizedProfit decimal.Decimal `json:"unrealized_profit"`
	RealisedProfit   decimal.Decimal `json:"realised_profit"`
	AvailableMargin  decimal.Decimal `json:"available_margin"`
	UsedMargin       decimal.Decimal `json:"used_margin"`
}

// IncomeEntry is one row of realized PnL or fee history.
type IncomeEntry struct {
	Symbol     string          `json:"symbol"`
	IncomeType string          `json:"income_type"` // "REALIZED_PNL", "TRADING_FEE", ...
	Income     decimal.Decimal `json:"income"`
	Asset      string          `json:"asset"`
	Info       string          `json:"info,omitempty"`
	Time       time.Time       `json:"time"`
	TranID     string          `json:"tran_id,omitempty"`
}

// Position is an open futures position.
type Position struct {
	Symbol           string          `json:"symbol"`
	PositionID       string          `json:"position_id"`
	Side             string          `json:"side"` // "LONG" or "SHORT"
	Amount           decimal.Decimal `json:"amount"`
	AvgPrice         decimal.Decimal `json:"avg_price"`
	MarkPrice        decimal.Decimal `json:"mark_price"`
	UnrealizedProfit decimal.Decimal `json:"unrealized_profit"`
	Leverage         int             `json:"leverage"`
}

// CachedSnapshot is the last good set of account data, persisted so the
// dashboard can keep showing it while upstream endpoints are unreachable.
type CachedSnapshot struct {
	ID         uuid.UUID     `json:"id"`
	PnLEntries []IncomeEntry `json:"pnl_entries"`
	FeeEntries []IncomeEntry `json:"fee_entries"`
	Positions  []Position    `json:"positions"`
	Balance    Balance       `json:"balance"`
	Timestamp  time.Time     `json:"timestamp"`
}

// TotalPnL sums realized PnL entries.
func (s CachedSnapshot) TotalPnL() decimal.Decimal {
	return sumIncome(s.PnLEntries)
}

// TotalFees sums fee entries.
func (s CachedSnapshot) TotalFees() decimal.Decimal {
	return sumIncome(s.FeeEntries)
}

func sumIncome(entries []IncomeEntry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.Income)
	}
	return total
}

// -----------------------------------------------------------------------------
// Content Types
// -----------------------------------------------------------------------------

// BlogPost is one entry of the blog feed.
type BlogPost struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Excerpt  string `json:"excerpt"`
	PostDate string `json:"post_date"`
	ImageURL string `json:"image_url"`
	Category string `json:"category"`
	Content  string `json:"content"`
}
