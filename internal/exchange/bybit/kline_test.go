package bybit

import (
	"testing"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInterval(t *testing.T) {
	tests := []struct {
		input   string
		want    Interval
		wantErr bool
	}{
		{input: "1", want: Interval1m},
		{input: "60", want: Interval1h},
		{input: "D", want: Interval1d},
		{input: "W", want: Interval1w},
		{input: "2", wantErr: true},
		{input: "", wantErr: true},
		{input: "1h", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseInterval(tt.input)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.input)
			continue
		}
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.want, got)
	}
}

func TestIntervalDuration(t *testing.T) {
	assert.Equal(t, time.Minute, Interval1m.Duration())
	assert.Equal(t, time.Hour, Interval1h.Duration())
	assert.Equal(t, 4*time.Hour, Interval4h.Duration())
	assert.Equal(t, 24*time.Hour, Interval1d.Duration())
	assert.Equal(t, 7*24*time.Hour, Interval1w.Duration())
}

func TestParseKlineListReversesToChronological(t *testing.T) {
	// Newest-first rows, the way the endpoint answers.
	list := [][]string{
		{"1700003600000", "102", "103", "101", "102.5", "12", "1230"},
		{"1700000000000", "100", "101", "99", "100.5", "10", "1000"},
	}

	candles := parseKlineList(list)
	require.Len(t, candles, 2)

	assert.True(t, candles[0].Timestamp.Before(candles[1].Timestamp))
	assert.Equal(t, time.UnixMilli(1700000000000).UTC(), candles[0].Timestamp)
	assert.Equal(t, 100.5, candles[0].Close)
	assert.Equal(t, 10.0, candles[0].Volume)
	assert.Equal(t, 102.5, candles[1].Close)
}

func TestParseKlineListSkipsIncompleteRows(t *testing.T) {
	list := [][]string{
		{"1700003600000", "102", "103", "101", "102.5", "12", "1230"},
		{"1700000000000", "100"}, // truncated row
		{"not-a-timestamp", "100", "101", "99", "100.5", "10", "1000"},
	}

	candles := parseKlineList(list)
	require.Len(t, candles, 1)
	assert.Equal(t, 102.5, candles[0].Close)
}

func TestParseTickerResponse(t *testing.T) {
	resp := &bybit_api.ServerResponse{
		RetCode: 0,
		Result: map[string]interface{}{
			"list": []map[string]interface{}{
				{"symbol": "BTCUSDT", "lastPrice": "65123.5"},
			},
		},
	}

	price, err := parseTickerResponse(resp)
	require.NoError(t, err)
	assert.Equal(t, 65123.5, price)
}

func TestParseTickerResponseRejections(t *testing.T) {
	_, err := parseTickerResponse("not a server response")
	assert.Error(t, err)

	_, err = parseTickerResponse(&bybit_api.ServerResponse{RetCode: 10001, RetMsg: "params error"})
	assert.Error(t, err)

	_, err = parseTickerResponse(&bybit_api.ServerResponse{
		RetCode: 0,
		Result:  map[string]interface{}{"list": []map[string]interface{}{}},
	})
	assert.Error(t, err)
}
