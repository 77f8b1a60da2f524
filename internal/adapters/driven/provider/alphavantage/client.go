// Package alphavantage implements driven.DataProvider against the Alpha
// Vantage query API. Currency pairs use FX_DAILY and everything else uses
// TIME_SERIES_DAILY.
package alphavantage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/custodia-labs/tickersync/internal/core/domain"
	"github.com/custodia-labs/tickersync/internal/core/ports/driven"
	"github.com/custodia-labs/tickersync/internal/logger"
)

// Ensure Provider implements the interface.
var _ driven.DataProvider = (*Provider)(nil)

// Name is the provider identifier used in errors and logs.
const Name = "alphavantage"

const (
	queryPath = "/query"

	functionFXDaily     = "FX_DAILY"
	functionEquityDaily = "TIME_SERIES_DAILY"

	seriesFXDaily     = "Time Series FX (Daily)"
	seriesEquityDaily = "Time Series (Daily)"

	// compactDays is roughly how far back outputsize=compact reaches
	// (the latest 100 data points).
	compactDays = 100
)

// dailyBar is one entry of a daily series. FX series have no volume.
type dailyBar struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

// envelope holds the keys every response may carry.
type envelope struct {
	Note         string `json:"Note"`
	Information  string `json:"Information"`
	ErrorMessage string `json:"Error Message"`
}

// Provider fetches daily series from Alpha Vantage.
type Provider struct {
	client *resty.Client
	apiKey string
	log    *logrus.Entry
	now    func() time.Time
}

// New creates a provider from settings. The API key is required.
func New(settings domain.AlphaVantageSettings) (*Provider, error) {
	if !settings.IsConfigured() {
		return nil, domain.ConfigErrorf("%s: api key is required (set ALPHA_VANTAGE_API_KEY)", Name)
	}
	client := resty.New().
		SetBaseURL(settings.BaseURL).
		SetHeader("Accept", "application/json")
	if settings.Timeout > 0 {
		client.SetTimeout(settings.Timeout)
	}
	return &Provider{
		client: client,
		apiKey: settings.APIKey,
		log:    logger.WithComponent("alpha-vantage"),
		now:    time.Now,
	}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return Name
}

// Fetch returns the daily rows for entity that fall inside window.
func (p *Provider) Fetch(ctx context.Context, entity domain.Entity, window domain.Window) ([]domain.Observation, error) {
	params := map[string]string{
		"apikey":     p.apiKey,
		"outputsize": p.outputSize(window),
		"datatype":   "json",
	}
	seriesKey := seriesEquityDaily
	if entity.IsCurrencyPair() {
		params["function"] = functionFXDaily
		params["from_symbol"] = entity.CurrencyFrom
		params["to_symbol"] = entity.CurrencyTo
		seriesKey = seriesFXDaily
	} else {
		params["function"] = functionEquityDaily
		params["symbol"] = entity.FetchSymbol()
	}

	p.log.WithFields(logrus.Fields{
		"symbol":   entity.Symbol,
		"function": params["function"],
		"window":   window.String(),
	}).Debug("fetching series")

	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(queryPath)
	if err != nil {
		return nil, classifyTransport(ctx, err)
	}

	switch {
	case resp.StatusCode() == http.StatusTooManyRequests:
		return nil, &domain.RateLimitError{
			Provider:   Name,
			Message:    resp.Status(),
			RetryAfter: retryAfter(resp.Header().Get("Retry-After")),
		}
	case resp.StatusCode() != http.StatusOK:
		return nil, &domain.ProviderError{Provider: Name, StatusCode: resp.StatusCode(), Message: resp.Status()}
	}

	return parseSeries(resp.Body(), seriesKey, entity, window)
}

// outputSize picks compact when the window starts within the compact range.
func (p *Provider) outputSize(window domain.Window) string {
	cutoff := domain.Day(p.now()).AddDate(0, 0, -compactDays)
	if window.Start.After(cutoff) {
		return "compact"
	}
	return "full"
}

// retryAfter parses a Retry-After header given in seconds.
func retryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// classifyTransport maps a transport failure onto the error taxonomy.
func classifyTransport(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %s: %w", domain.ErrProviderTimeout, Name, err)
	}
	return &domain.ProviderError{Provider: Name, Message: err.Error()}
}

// parseSeries decodes a response body into ascending observations.
func parseSeries(body []byte, seriesKey string, entity domain.Entity, window domain.Window) ([]domain.Observation, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &domain.ProviderError{Provider: Name, Message: fmt.Sprintf("decoding response: %v", err)}
	}
	switch {
	case env.Note != "":
		return nil, &domain.RateLimitError{Provider: Name, Message: env.Note}
	case env.Information != "":
		return nil, &domain.RateLimitError{Provider: Name, Message: env.Information}
	case env.ErrorMessage != "":
		return nil, &domain.ProviderError{Provider: Name, Message: env.ErrorMessage}
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, &domain.ProviderError{Provider: Name, Message: fmt.Sprintf("decoding response: %v", err)}
	}
	seriesJSON, ok := raw[seriesKey]
	if !ok {
		return nil, fmt.Errorf("%w: %s: %q missing for %s", domain.ErrProviderNoData, Name, seriesKey, entity.Symbol)
	}
	var series map[string]dailyBar
	if err := json.Unmarshal(seriesJSON, &series); err != nil {
		return nil, &domain.ProviderError{Provider: Name, Message: fmt.Sprintf("decoding %q: %v", seriesKey, err)}
	}

	out := make([]domain.Observation, 0, len(series))
	for date, bar := range series {
		day, err := domain.ParseDate(date)
		if err != nil {
			return nil, &domain.ProviderError{Provider: Name, Message: fmt.Sprintf("bad date %q", date)}
		}
		if !window.Contains(day) {
			continue
		}
		obs, err := toObservation(entity, day, bar)
		if err != nil {
			return nil, err
		}
		out = append(out, obs)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].TradingDate.Before(out[j].TradingDate)
	})
	return out, nil
}

func toObservation(entity domain.Entity, day time.Time, bar dailyBar) (domain.Observation, error) {
	var prices [4]decimal.Decimal
	for i, s := range []string{bar.Open, bar.High, bar.Low, bar.Close} {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return domain.Observation{}, &domain.ProviderError{
				Provider: Name,
				Message:  fmt.Sprintf("%s@%s: bad price %q", entity.Symbol, domain.FormatDate(day), s),
			}
		}
		prices[i] = d
	}

	var volume int64
	if bar.Volume != "" {
		v, err := decimal.NewFromString(bar.Volume)
		if err != nil {
			return domain.Observation{}, &domain.ProviderError{
				Provider: Name,
				Message:  fmt.Sprintf("%s@%s: bad volume %q", entity.Symbol, domain.FormatDate(day), bar.Volume),
			}
		}
		volume = v.IntPart()
	}

	return domain.Observation{
		Symbol:       entity.Symbol,
		TradingDate:  day,
		CurrencyFrom: entity.CurrencyFrom,
		CurrencyTo:   entity.CurrencyTo,
		Open:         prices[0],
		High:         prices[1],
		Low:          prices[2],
		Close:        prices[3],
		Volume:       volume,
		Exchange:     entity.Exchange,
	}, nil
}
