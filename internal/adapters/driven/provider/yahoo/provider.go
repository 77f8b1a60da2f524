package yahoo

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	finance "github.com/piquette/finance-go"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/equity"
	"github.com/piquette/finance-go/quote"
	"github.com/sirupsen/logrus"

	"github.com/custodia-labs/tickersync/internal/core/domain"
	"github.com/custodia-labs/tickersync/internal/core/ports/driven"
	"github.com/custodia-labs/tickersync/internal/logger"
)

// Ensure Provider implements the interfaces.
var (
	_ driven.DataProvider         = (*Provider)(nil)
	_ driven.FundamentalsProvider = (*Provider)(nil)
)

// Name is the provider identifier used in errors and logs.
const Name = "yahoo"

// series is a chart response: daily bars plus the exchange's UTC offset in
// seconds, needed to map bar timestamps onto local trading dates.
type series struct {
	bars      []finance.ChartBar
	gmtOffset int
}

type (
	chartFunc  func(ctx context.Context, symbol string, start, end time.Time) (series, error)
	quoteFunc  func(ctx context.Context, symbol string) (*finance.Quote, error)
	equityFunc func(ctx context.Context, symbol string) (*finance.Equity, error)
)

// Provider fetches daily bars, quote snapshots and fundamentals from Yahoo
// Finance.
type Provider struct {
	bufferDays int

	chart  chartFunc
	quote  quoteFunc
	equity equityFunc
	now    func() time.Time
	log    *logrus.Entry
}

// New creates a provider from settings.
func New(settings domain.YahooSettings) *Provider {
	buffer := settings.BufferDays
	if buffer < 0 {
		buffer = 0
	}
	return &Provider{
		bufferDays: buffer,
		chart:      fetchChart,
		quote:      fetchQuote,
		equity:     fetchEquity,
		now:        time.Now,
		log:        logger.WithComponent("yahoo"),
	}
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return Name
}

// Fetch returns daily bars for entity inside window, each stamped with the
// current quote snapshot. The chart request is widened by the buffer on both
// sides and filtered back to the exact window.
func (p *Provider) Fetch(ctx context.Context, entity domain.Entity, window domain.Window) ([]domain.Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	symbol := entity.FetchSymbol()
	start := window.Start.AddDate(0, 0, -p.bufferDays)
	end := window.End.AddDate(0, 0, p.bufferDays)

	p.log.WithFields(logrus.Fields{
		"symbol": entity.Symbol,
		"ticker": symbol,
		"window": window.String(),
	}).Debug("fetching chart")

	s, err := p.chart(ctx, symbol, start, end)
	if err != nil {
		return nil, classify(ctx, symbol, err)
	}

	rows := make([]domain.Observation, 0, len(s.bars))
	for _, bar := range s.bars {
		if bar.Close.IsZero() {
			continue
		}
		day := domain.Day(time.Unix(int64(bar.Timestamp+s.gmtOffset), 0).UTC())
		if !window.Contains(day) {
			continue
		}
		if n := len(rows); n > 0 && rows[n-1].TradingDate.Equal(day) {
			continue
		}
		rows = append(rows, domain.Observation{
			Symbol:       entity.Symbol,
			TradingDate:  day,
			CurrencyFrom: entity.CurrencyFrom,
			CurrencyTo:   entity.CurrencyTo,
			Open:         bar.Open,
			High:         bar.High,
			Low:          bar.Low,
			Close:        bar.Close,
			Volume:       int64(bar.Volume),
			Exchange:     entity.Exchange,
		})
	}
	if len(rows) == 0 {
		return rows, nil
	}

	q, err := p.quote(ctx, symbol)
	if err != nil {
		p.log.WithField("symbol", entity.Symbol).WithError(err).Warn("quote snapshot unavailable")
		return rows, nil
	}
	if q != nil {
		for i := range rows {
			stampSnapshot(&rows[i], q)
		}
	}
	return rows, nil
}

// stampSnapshot copies point-in-time quote fields onto an observation.
func stampSnapshot(o *domain.Observation, q *finance.Quote) {
	o.SnapshotPreviousClose = domain.NullDecimalFromFloat(q.RegularMarketPreviousClose)
	o.Bid = domain.NullDecimalFromFloat(q.Bid)
	o.Ask = domain.NullDecimalFromFloat(q.Ask)
	o.FiftyTwoWeekHigh = domain.NullDecimalFromFloat(q.FiftyTwoWeekHigh)
	o.FiftyTwoWeekLow = domain.NullDecimalFromFloat(q.FiftyTwoWeekLow)
	o.FiftyDayAverage = domain.NullDecimalFromFloat(q.FiftyDayAverage)
	o.TwoHundredDayAverage = domain.NullDecimalFromFloat(q.TwoHundredDayAverage)
	if q.FullExchangeName != "" {
		o.Exchange = q.FullExchangeName
	}
	o.MarketState = string(q.MarketState)
}

// FetchFundamentals returns today's snapshot for entity.
func (p *Provider) FetchFundamentals(ctx context.Context, entity domain.Entity) (*domain.Fundamentals, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	symbol := entity.FetchSymbol()
	e, err := p.equity(ctx, symbol)
	if err != nil {
		return nil, classify(ctx, symbol, err)
	}
	if e == nil {
		return nil, fmt.Errorf("%w: %s: no equity data for %s", domain.ErrProviderNoData, Name, symbol)
	}

	name := e.LongName
	if name == "" {
		name = e.ShortName
	}
	exchange := e.FullExchangeName
	if exchange == "" {
		exchange = entity.Exchange
	}

	return &domain.Fundamentals{
		Symbol:               entity.Symbol,
		FetchDate:            domain.Day(p.now()),
		LongName:             name,
		Exchange:             exchange,
		Currency:             e.CurrencyID,
		MarketCap:            e.MarketCap,
		SharesOutstanding:    int64(e.SharesOutstanding),
		TrailingPE:           domain.NullDecimalFromFloat(e.TrailingPE),
		ForwardPE:            domain.NullDecimalFromFloat(e.ForwardPE),
		PriceToBook:          domain.NullDecimalFromFloat(e.PriceToBook),
		BookValue:            domain.NullDecimalFromFloat(e.BookValue),
		EPSTrailing:          domain.NullDecimalFromFloat(e.EpsTrailingTwelveMonths),
		EPSForward:           domain.NullDecimalFromFloat(e.EpsForward),
		DividendRate:         domain.NullDecimalFromFloat(e.TrailingAnnualDividendRate),
		DividendYield:        domain.NullDecimalFromFloat(e.TrailingAnnualDividendYield),
		RegularMarketPrice:   domain.NullDecimalFromFloat(e.RegularMarketPrice),
		FiftyTwoWeekHigh:     domain.NullDecimalFromFloat(e.FiftyTwoWeekHigh),
		FiftyTwoWeekLow:      domain.NullDecimalFromFloat(e.FiftyTwoWeekLow),
		FiftyDayAverage:      domain.NullDecimalFromFloat(e.FiftyDayAverage),
		TwoHundredDayAverage: domain.NullDecimalFromFloat(e.TwoHundredDayAverage),
	}, nil
}

// classify maps a finance-go failure onto the error taxonomy. The library
// drops upstream status codes, so throttling surfaces as a provider error.
func classify(ctx context.Context, symbol string, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %s: %s: %w", domain.ErrProviderTimeout, Name, symbol, err)
	}
	var yfErr *finance.YfinError
	if errors.As(err, &yfErr) && strings.EqualFold(yfErr.Code, "Not Found") {
		return fmt.Errorf("%w: %s: %s: %s", domain.ErrProviderNoData, Name, symbol, yfErr.Description)
	}
	if strings.Contains(err.Error(), "no results") {
		return fmt.Errorf("%w: %s: %s", domain.ErrProviderNoData, Name, symbol)
	}
	return &domain.ProviderError{Provider: Name, Message: fmt.Sprintf("%s: %v", symbol, err)}
}

func fetchChart(ctx context.Context, symbol string, start, end time.Time) (series, error) {
	params := &chart.Params{
		Params:   finance.Params{Context: &ctx},
		Symbol:   symbol,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	}
	iter := chart.Get(params)

	var bars []finance.ChartBar
	for iter.Next() {
		bars = append(bars, *iter.Bar())
	}
	if err := iter.Err(); err != nil {
		return series{}, err
	}
	if len(bars) == 0 {
		return series{}, nil
	}
	return series{bars: bars, gmtOffset: iter.Meta().Gmtoffset}, nil
}

func fetchQuote(ctx context.Context, symbol string) (*finance.Quote, error) {
	iter := quote.ListP(&quote.Params{
		Params:  finance.Params{Context: &ctx},
		Symbols: []string{symbol},
	})
	if !iter.Next() {
		return nil, iter.Err()
	}
	return iter.Quote(), nil
}

func fetchEquity(ctx context.Context, symbol string) (*finance.Equity, error) {
	iter := equity.ListP(&equity.Params{
		Params:  finance.Params{Context: &ctx},
		Symbols: []string{symbol},
	})
	if !iter.Next() {
		return nil, iter.Err()
	}
	return iter.Equity(), nil
}
