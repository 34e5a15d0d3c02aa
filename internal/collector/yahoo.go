package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
	"unicode"

	"SignalScreener/internal/model"
)

// hkt is the exchange time zone used to turn bar timestamps into trade dates.
var hkt = time.FixedZone("HKT", 8*3600)

// YahooFetcher implements Fetcher using Yahoo Finance public API.
type YahooFetcher struct {
	Client    *http.Client
	BaseURL   string
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(proxyURL string) *YahooFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &YahooFetcher{
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		BaseURL: "https://query1.finance.yahoo.com",
		SymbolMap: map[string]string{
			"HSI": "^HSI",
		},
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

// yahooSymbol maps numeric exchange codes to the 4-digit ".HK" form.
func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	if symbol != "" && strings.IndexFunc(symbol, func(r rune) bool { return !unicode.IsDigit(r) }) < 0 {
		code := strings.TrimLeft(symbol, "0")
		for len(code) < 4 {
			code = "0" + code
		}
		return code + ".HK"
	}
	return symbol
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []interface{} `json:"open"`
					High   []interface{} `json:"high"`
					Low    []interface{} `json:"low"`
					Close  []interface{} `json:"close"`
					Volume []interface{} `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// toFloat returns NaN for nulls so the normalizer drops the bar.
func toFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return math.NaN()
	}
}

func at(vals []interface{}, i int) interface{} {
	if i < len(vals) {
		return vals[i]
	}
	return nil
}

// FetchDailyBars requests a calendar span wide enough for limit trading days
// ending at tradeDate and trims to the last limit rows.
func (f *YahooFetcher) FetchDailyBars(ctx context.Context, symbol string, tradeDate time.Time, limit int) ([]model.RawBar, error) {
	end := tradeDate.AddDate(0, 0, 1)
	start := tradeDate.AddDate(0, 0, -(limit*7/5 + 30))
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&period1=%d&period2=%d",
		f.BaseURL, url.PathEscape(f.yahooSymbol(symbol)), start.Unix(), end.Unix())

	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo: %s: %w", symbol, ErrNoData)
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	lastKey := tradeDate.Format(model.DateLayout)
	rows := make([]model.RawBar, 0, len(result.Timestamp))

	for i, ts := range result.Timestamp {
		c := toFloat(at(quote.Close, i))
		if math.IsNaN(c) {
			continue // null bar (holiday or suspension)
		}
		date := time.Unix(ts, 0).In(hkt).Format(model.DateLayout)
		if date > lastKey {
			continue
		}
		rows = append(rows, model.RawBar{
			Symbol: symbol,
			Date:   date,
			Open:   orClose(toFloat(at(quote.Open, i)), c),
			High:   orClose(toFloat(at(quote.High, i)), c),
			Low:    orClose(toFloat(at(quote.Low, i)), c),
			Close:  c,
			Volume: toFloat(at(quote.Volume, i)),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date < rows[j].Date })
	if limit > 0 && len(rows) > limit {
		rows = rows[len(rows)-limit:]
	}
	return rows, nil
}

func orClose(v, c float64) float64 {
	if math.IsNaN(v) {
		return c
	}
	return v
}
