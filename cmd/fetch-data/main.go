package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/vquangdinh/crypto-signal-bot/internal/exchange/bybit"
	"github.com/vquangdinh/crypto-signal-bot/internal/logger"
	"github.com/vquangdinh/crypto-signal-bot/pkg/data"
)

func main() {
	var (
		symbols  = flag.String("symbols", "BTCUSDT", "comma-separated symbols to download")
		interval = flag.String("interval", "60", "kline interval (1, 5, 15, 60, 240, D, ...)")
		category = flag.String("category", "spot", "market category (spot, linear, inverse)")
		start    = flag.String("start", "", "start date YYYY-MM-DD (default one year ago)")
		end      = flag.String("end", "", "end date YYYY-MM-DD (default today)")
		outDir   = flag.String("outdir", "data", "directory to write CSV files")
		testnet  = flag.Bool("testnet", false, "use the Bybit testnet")
		logLevel = flag.String("log-level", "info", "log level (debug, info, warn, error)")
	)
	flag.Parse()

	_ = godotenv.Load()
	log := logger.New(logger.Config{Level: *logLevel, Pretty: true})

	klineInterval, err := bybit.ParseInterval(*interval)
	if err != nil {
		fatal(err)
	}

	startTime := time.Now().UTC().AddDate(-1, 0, 0)
	endTime := time.Now().UTC()
	if *start != "" {
		if startTime, err = time.Parse("2006-01-02", *start); err != nil {
			fatal(fmt.Errorf("invalid start date %q: %w", *start, err))
		}
	}
	if *end != "" {
		parsed, err := time.Parse("2006-01-02", *end)
		if err != nil {
			fatal(fmt.Errorf("invalid end date %q: %w", *end, err))
		}
		endTime = parsed.AddDate(0, 0, 1) // inclusive end date
	}

	client := bybit.NewClient(bybit.Config{
		APIKey:    os.Getenv("BYBIT_API_KEY"),
		APISecret: os.Getenv("BYBIT_API_SECRET"),
		Testnet:   *testnet,
	})

	ctx := context.Background()
	for _, raw := range strings.Split(*symbols, ",") {
		symbol := strings.ToUpper(strings.TrimSpace(raw))
		if symbol == "" {
			continue
		}

		log.Info().
			Str("symbol", symbol).
			Str("interval", *interval).
			Time("start", startTime).
			Time("end", endTime).
			Msg("downloading candles")

		candles, err := client.FetchRange(ctx, *category, symbol, klineInterval, startTime, endTime)
		if err != nil {
			fatal(err)
		}
		if len(candles) == 0 {
			log.Warn().Str("symbol", symbol).Msg("no candles returned, skipping")
			continue
		}

		// Loading rejects out-of-order or repeated rows, so normalize
		// whatever the exchange handed back before writing.
		candles = data.SortByTimestamp(data.RemoveDuplicates(candles))

		path := data.FilePath(*outDir, symbol, *interval)
		if err := data.WriteCSV(path, candles); err != nil {
			fatal(err)
		}
		log.Info().Str("path", path).Int("candles", len(candles)).Msg("CSV written")
	}
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "❌ %v\n", err)
	os.Exit(1)
}
