package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"

	"github.com/vquangdinh/crypto-signal-bot/internal/errors"
	"github.com/vquangdinh/crypto-signal-bot/pkg/types"
)

// Interval represents the time interval for kline data.
type Interval string

const (
	Interval1m  Interval = "1"
	Interval3m  Interval = "3"
	Interval5m  Interval = "5"
	Interval15m Interval = "15"
	Interval30m Interval = "30"
	Interval1h  Interval = "60"
	Interval2h  Interval = "120"
	Interval4h  Interval = "240"
	Interval6h  Interval = "360"
	Interval12h Interval = "720"
	Interval1d  Interval = "D"
	Interval1w  Interval = "W"
)

// MaxKlineLimit is the largest page size the kline endpoint accepts.
const MaxKlineLimit = 1000

// ParseInterval validates an interval string from flags or config.
func ParseInterval(s string) (Interval, error) {
	switch Interval(s) {
	case Interval1m, Interval3m, Interval5m, Interval15m, Interval30m,
		Interval1h, Interval2h, Interval4h, Interval6h, Interval12h,
		Interval1d, Interval1w:
		return Interval(s), nil
	default:
		return "", errors.NewConfigError("bybit", "parse_interval",
			fmt.Sprintf("unknown kline interval %q", s))
	}
}

// Duration returns the span of one candle at this interval.
func (i Interval) Duration() time.Duration {
	switch i {
	case Interval1d:
		return 24 * time.Hour
	case Interval1w:
		return 7 * 24 * time.Hour
	default:
		minutes, _ := strconv.Atoi(string(i))
		return time.Duration(minutes) * time.Minute
	}
}

// KlineParams holds parameters for fetching kline data.
type KlineParams struct {
	Category string   // "spot", "linear", "inverse"
	Symbol   string   // trading pair symbol (e.g. "BTCUSDT")
	Interval Interval // candle interval
	Start    *time.Time
	End      *time.Time
	Limit    int // records per page, max 1000, default 200
}

// GetKlines fetches one page of candles and returns them in
// chronological order. The API answers newest first; the page is
// reversed before it is returned.
func (c *Client) GetKlines(ctx context.Context, params KlineParams) ([]types.OHLCV, error) {
	if params.Category == "" {
		params.Category = "spot"
	}
	if params.Limit == 0 {
		params.Limit = 200
	}
	if params.Limit > MaxKlineLimit {
		params.Limit = MaxKlineLimit
	}

	reqParams := map[string]interface{}{
		"category": params.Category,
		"symbol":   params.Symbol,
		"interval": string(params.Interval),
		"limit":    params.Limit,
	}
	if params.Start != nil {
		reqParams["start"] = params.Start.UnixMilli()
	}
	if params.End != nil {
		reqParams["end"] = params.End.UnixMilli()
	}

	var candles []types.OHLCV
	err := c.withRetry(ctx, func() error {
		result, err := c.httpClient.NewUtaBybitServiceWithParams(reqParams).GetMarketKline(ctx)
		if err != nil {
			return errors.NewExchangeError("bybit", "get_klines", err)
		}
		candles, err = parseKlineResponse(result)
		return err
	})
	if err != nil {
		return nil, err
	}
	return candles, nil
}

// FetchRange pages through the kline endpoint until the requested range
// is covered, returning a chronological, gap-tolerant series.
func (c *Client) FetchRange(ctx context.Context, category, symbol string, interval Interval, start, end time.Time) ([]types.OHLCV, error) {
	if !end.After(start) {
		return nil, errors.NewInvalidInputError("bybit", "fetch_range", "end must be after start")
	}

	step := interval.Duration()
	var all []types.OHLCV
	cursor := start
	for cursor.Before(end) {
		pageStart := cursor
		batch, err := c.GetKlines(ctx, KlineParams{
			Category: category,
			Symbol:   symbol,
			Interval: interval,
			Start:    &pageStart,
			End:      &end,
			Limit:    MaxKlineLimit,
		})
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			break
		}

		for _, candle := range batch {
			if candle.Timestamp.Before(cursor) {
				continue
			}
			all = append(all, candle)
		}

		next := batch[len(batch)-1].Timestamp.Add(step)
		if !next.After(cursor) {
			break
		}
		cursor = next
		if len(batch) < MaxKlineLimit {
			break
		}
	}

	return all, nil
}

// LatestPrice gets the last traded price for a symbol.
func (c *Client) LatestPrice(ctx context.Context, category, symbol string) (float64, error) {
	if category == "" {
		category = "spot"
	}

	params := map[string]interface{}{
		"category": category,
		"symbol":   symbol,
	}

	var price float64
	err := c.withRetry(ctx, func() error {
		result, err := c.httpClient.NewUtaBybitServiceWithParams(params).GetMarketTickers(ctx)
		if err != nil {
			return errors.NewExchangeError("bybit", "latest_price", err)
		}
		price, err = parseTickerResponse(result)
		return err
	})
	if err != nil {
		return 0, err
	}
	return price, nil
}

// parseKlineResponse extracts candles from the raw API response.
func parseKlineResponse(response interface{}) ([]types.OHLCV, error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return nil, errors.NewExchangeError("bybit", "parse_klines",
			fmt.Errorf("unexpected response type %T", response)).WithRetryable(false)
	}
	if serverResp.RetCode != 0 {
		return nil, errors.NewExchangeError("bybit", "parse_klines",
			fmt.Errorf("API error: %s (code %d)", serverResp.RetMsg, serverResp.RetCode)).WithRetryable(false)
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return nil, errors.NewExchangeError("bybit", "parse_klines", err).WithRetryable(false)
	}

	var klineResult struct {
		Symbol   string     `json:"symbol"`
		Category string     `json:"category"`
		List     [][]string `json:"list"`
	}
	if err := json.Unmarshal(resultBytes, &klineResult); err != nil {
		return nil, errors.NewExchangeError("bybit", "parse_klines", err).WithRetryable(false)
	}

	return parseKlineList(klineResult.List), nil
}

// parseKlineList converts the endpoint's newest-first string rows
// ([startTime, open, high, low, close, volume, turnover]) into a
// chronological OHLCV series. Incomplete rows are skipped.
func parseKlineList(list [][]string) []types.OHLCV {
	candles := make([]types.OHLCV, 0, len(list))
	for i := len(list) - 1; i >= 0; i-- {
		item := list[i]
		if len(item) < 6 {
			continue
		}

		millis, err := strconv.ParseInt(item[0], 10, 64)
		if err != nil {
			continue
		}
		candles = append(candles, types.OHLCV{
			Timestamp: time.UnixMilli(millis).UTC(),
			Open:      parseFloat(item[1]),
			High:      parseFloat(item[2]),
			Low:       parseFloat(item[3]),
			Close:     parseFloat(item[4]),
			Volume:    parseFloat(item[5]),
		})
	}
	return candles
}

func parseTickerResponse(response interface{}) (float64, error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return 0, errors.NewExchangeError("bybit", "parse_ticker",
			fmt.Errorf("unexpected response type %T", response)).WithRetryable(false)
	}
	if serverResp.RetCode != 0 {
		return 0, errors.NewExchangeError("bybit", "parse_ticker",
			fmt.Errorf("API error: %s (code %d)", serverResp.RetMsg, serverResp.RetCode)).WithRetryable(false)
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return 0, errors.NewExchangeError("bybit", "parse_ticker", err).WithRetryable(false)
	}

	var tickerResult struct {
		List []struct {
			Symbol    string `json:"symbol"`
			LastPrice string `json:"lastPrice"`
		} `json:"list"`
	}
	if err := json.Unmarshal(resultBytes, &tickerResult); err != nil {
		return 0, errors.NewExchangeError("bybit", "parse_ticker", err).WithRetryable(false)
	}
	if len(tickerResult.List) == 0 {
		return 0, errors.NewExchangeError("bybit", "parse_ticker",
			fmt.Errorf("no ticker data returned")).WithRetryable(false)
	}

	return parseFloat(tickerResult.List[0].LastPrice), nil
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
