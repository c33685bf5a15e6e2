// Package domain provides core domain models and types.
package domain

import "time"

// TradeStatus represents the lifecycle state of a trade
type TradeStatus string

const (
	StatusOpen   TradeStatus = "OPEN"
	StatusClosed TradeStatus = "CLOSED"
)

// Strategy classifies an account's trading horizon
type Strategy string

const (
	StrategySwing    Strategy = "SWING"
	StrategyLongTerm Strategy = "LONG_TERM"
)

// View names an aggregation over accounts. The named views map 1:1 to
// strategies; ViewOverall is always the computed union of the others,
// never a stored grouping.
type View string

const (
	ViewSwing    View = "SWING"
	ViewLongTerm View = "LONG_TERM"
	ViewOverall  View = "OVERALL"
)

// AllViews lists every view a snapshot run covers
var AllViews = []View{ViewSwing, ViewLongTerm, ViewOverall}

// ViewForStrategy maps a strategy to its named view
func ViewForStrategy(s Strategy) View {
	if s == StrategyLongTerm {
		return ViewLongTerm
	}
	return ViewSwing
}

// BuyLeg holds the immutable buy side of a trade
type BuyLeg struct {
	Date     time.Time `json:"buy_date"`
	Price    float64   `json:"buy_price"`
	Quantity int64     `json:"quantity"`
	Amount   float64   `json:"buy_amount"`
	Charges  float64   `json:"buy_charges"`
}

// SellLeg holds the sell side of a trade. Set atomically when the trade
// closes; a trade is never partially closed.
type SellLeg struct {
	Date    time.Time `json:"sell_date"`
	Price   float64   `json:"sell_price"`
	Amount  float64   `json:"sell_amount"`
	Charges float64   `json:"sell_charges"`
}

// MarketQuote holds broker-synced market data for an open trade
type MarketQuote struct {
	Price            float64   `json:"current_price"`
	Quantity         int64     `json:"current_quantity"`
	DayChange        float64   `json:"day_change"`
	DayChangePercent float64   `json:"day_change_percentage"`
	SyncedAt         time.Time `json:"last_synced_at"`
}

// Trade is an independent position: one buy, at most one sell, no cost
// averaging against other trades of the same symbol. Status is derived
// from the presence of the sell leg, so "sell fields set but still
// OPEN" is not representable.
type Trade struct {
	ID        int64        `json:"id"`
	Symbol    string       `json:"symbol"`
	AccountID string       `json:"account_id"`
	Buy       BuyLeg       `json:"buy"`
	Sell      *SellLeg     `json:"sell,omitempty"`
	Quote     *MarketQuote `json:"quote,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Status derives the trade status from the sell leg
func (t *Trade) Status() TradeStatus {
	if t.Sell != nil {
		return StatusClosed
	}
	return StatusOpen
}

// CostBasis returns the total acquisition cost including charges
func (t *Trade) CostBasis() float64 {
	return t.Buy.Amount + t.Buy.Charges
}

// CashFlow is a dated capital movement for an account. Positive amounts
// are contributions, negative amounts are payouts. NAV and Shares are
// the unit-of-account fields: Shares = Amount / NAV at the flow date,
// with the sign of Shares matching the sign of Amount.
type CashFlow struct {
	ID        int64     `json:"id"`
	Date      time.Time `json:"date"`
	Amount    float64   `json:"amount"`
	AccountID string    `json:"account_id"`
	NAV       *float64  `json:"nav,omitempty"`
	Shares    *float64  `json:"number_of_shares,omitempty"`
	PaidBy    string    `json:"paid_by,omitempty"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AccountDetail stores per-account metadata, including the strategy
// classification consumed by the view aggregator. Accounts without a
// row here are "unclassified" and handled by an explicit policy.
type AccountDetail struct {
	ID        int64     `json:"id"`
	AccountID string    `json:"account_id"`
	UserName  string    `json:"user_name"`
	Type      string    `json:"account_type"`
	Strategy  Strategy  `json:"trading_strategy"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Classification maps account ids to strategies. It is always passed
// explicitly into the valuation core, never read from ambient state.
type Classification map[string]Strategy

// PriceProvider supplies current prices per symbol. Lookups may be
// partial; a missing symbol returns ok=false and the caller applies the
// missing-price policy (contribution zero, flagged).
type PriceProvider interface {
	Price(symbol string) (float64, bool)
}

// PriceMap is a plain map implementation of PriceProvider
type PriceMap map[string]float64

// Price implements PriceProvider
func (m PriceMap) Price(symbol string) (float64, bool) {
	p, ok := m[symbol]
	return p, ok
}
