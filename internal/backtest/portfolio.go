package backtest

import (
	"fmt"
	"time"

	"github.com/vquangdinh/crypto-signal-bot/internal/errors"
	"github.com/vquangdinh/crypto-signal-bot/pkg/types"
)

// dustThreshold is the quantity below which a holding counts as fully
// closed, absorbing float error left over from average-cost updates.
const dustThreshold = 0.0001

// ErrInsufficientCash rejects a buy whose cost plus fee exceeds available
// cash. Callers treat it as a skipped fill, not a failed run.
var ErrInsufficientCash = errors.NewInvalidInputError("portfolio", "buy", "insufficient cash for order")

// Portfolio tracks cash, holdings, the fill ledger, and the equity curve
// for one simulated run. All mutations go through ApplyBuy and ApplySell
// so the ledger and the holdings can never drift apart. Holdings carry an
// average entry price so realized P&L on a close is exact.
//
// Not safe for concurrent use; a run owns its portfolio.
type Portfolio struct {
	initialCash float64
	cash        float64
	feeRate     float64
	holdings    map[string]types.Position
	ledger      []types.Fill
	equity      []types.EquityPoint
}

// NewPortfolio creates an empty portfolio with the given starting cash.
// feeRate is the taker fee charged on both sides of a trade (0.0026 =
// 0.26%).
func NewPortfolio(initialCash, feeRate float64) *Portfolio {
	return &Portfolio{
		initialCash: initialCash,
		cash:        initialCash,
		feeRate:     feeRate,
		holdings:    make(map[string]types.Position),
	}
}

// RestorePortfolio rebuilds a portfolio from persisted cash and holdings.
// The paper trading loop uses this to resume a session; the ledger and
// equity curve start empty.
func RestorePortfolio(cash, feeRate float64, holdings map[string]types.Position) *Portfolio {
	p := NewPortfolio(cash, feeRate)
	for symbol, pos := range holdings {
		if pos.Quantity < dustThreshold {
			continue
		}
		p.holdings[symbol] = pos
	}
	return p
}

// InitialCash returns the cash the portfolio started with.
func (p *Portfolio) InitialCash() float64 {
	return p.initialCash
}

// Cash returns the uninvested balance.
func (p *Portfolio) Cash() float64 {
	return p.cash
}

// Position returns the holding for a symbol, if any.
func (p *Portfolio) Position(symbol string) (types.Position, bool) {
	pos, ok := p.holdings[symbol]
	return pos, ok
}

// Holdings returns a copy of all open positions.
func (p *Portfolio) Holdings() map[string]types.Position {
	out := make(map[string]types.Position, len(p.holdings))
	for symbol, pos := range p.holdings {
		out[symbol] = pos
	}
	return out
}

// Equity values the portfolio at the given prices. Holdings without a
// quote contribute nothing rather than poisoning the total.
func (p *Portfolio) Equity(prices map[string]float64) float64 {
	total := p.cash
	for symbol, pos := range p.holdings {
		total += pos.Quantity * prices[symbol]
	}
	return total
}

// ApplyBuy opens or grows a position at the given price, charging the fee
// on top of the order cost. Returns ErrInsufficientCash when cash cannot
// cover cost plus fee; state is untouched in that case.
func (p *Portfolio) ApplyBuy(symbol string, quantity, price float64, timestamp time.Time) (types.Fill, error) {
	if quantity <= 0 {
		return types.Fill{}, errors.NewInvalidInputError("portfolio", "buy", fmt.Sprintf("quantity must be positive, got %v", quantity))
	}
	if price <= 0 {
		return types.Fill{}, errors.NewInvalidInputError("portfolio", "buy", fmt.Sprintf("price must be positive, got %v", price))
	}

	cost := quantity * price
	fee := cost * p.feeRate
	if cost+fee > p.cash {
		return types.Fill{}, ErrInsufficientCash
	}

	p.cash -= cost + fee

	pos := p.holdings[symbol]
	newQuantity := pos.Quantity + quantity
	pos.AvgEntryPrice = (pos.AvgEntryPrice*pos.Quantity + cost) / newQuantity
	pos.Quantity = newQuantity
	p.holdings[symbol] = pos

	fill := types.Fill{
		Symbol:    symbol,
		Action:    "BUY",
		Quantity:  quantity,
		Price:     price,
		Fee:       fee,
		Timestamp: timestamp,
	}
	p.ledger = append(p.ledger, fill)
	return fill, nil
}

// ApplySell reduces a position at the given price, crediting proceeds net
// of fee. Returns the realized P&L against the average entry price. A
// remainder below the dust threshold closes the position entirely.
func (p *Portfolio) ApplySell(symbol string, quantity, price float64, timestamp time.Time) (types.Fill, float64, error) {
	if quantity <= 0 {
		return types.Fill{}, 0, errors.NewInvalidInputError("portfolio", "sell", fmt.Sprintf("quantity must be positive, got %v", quantity))
	}
	if price <= 0 {
		return types.Fill{}, 0, errors.NewInvalidInputError("portfolio", "sell", fmt.Sprintf("price must be positive, got %v", price))
	}
	pos, ok := p.holdings[symbol]
	if !ok || pos.Quantity < quantity {
		return types.Fill{}, 0, errors.NewInvalidInputError("portfolio", "sell", fmt.Sprintf("insufficient holdings for %s", symbol))
	}

	proceeds := quantity * price
	fee := proceeds * p.feeRate
	p.cash += proceeds - fee

	realized := (price-pos.AvgEntryPrice)*quantity - fee

	pos.Quantity -= quantity
	if pos.Quantity < dustThreshold {
		delete(p.holdings, symbol)
	} else {
		p.holdings[symbol] = pos
	}

	fill := types.Fill{
		Symbol:    symbol,
		Action:    "SELL",
		Quantity:  quantity,
		Price:     price,
		Fee:       fee,
		Timestamp: timestamp,
	}
	p.ledger = append(p.ledger, fill)
	return fill, realized, nil
}

// MarkEquity values the portfolio at the given prices and appends one
// point to the equity curve.
func (p *Portfolio) MarkEquity(timestamp time.Time, prices map[string]float64) types.EquityPoint {
	point := types.EquityPoint{
		Timestamp: timestamp,
		Equity:    p.Equity(prices),
	}
	p.equity = append(p.equity, point)
	return point
}

// Ledger returns a copy of all fills in execution order.
func (p *Portfolio) Ledger() []types.Fill {
	out := make([]types.Fill, len(p.ledger))
	copy(out, p.ledger)
	return out
}

// EquityCurve returns a copy of the recorded equity points.
func (p *Portfolio) EquityCurve() []types.EquityPoint {
	out := make([]types.EquityPoint, len(p.equity))
	copy(out, p.equity)
	return out
}
