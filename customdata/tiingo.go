// Package customdata implements the polled data sources registered on the
// feed's custom-data exchange: the Tiingo HTTP client and the coarse
// universe snapshot reader.
package customdata

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/jpillora/backoff"
	"github.com/pkg/errors"
	"golang.org/x/time/rate"

	"github.com/quantfeed/quantfeed/model"
	"github.com/quantfeed/quantfeed/service"
	"github.com/quantfeed/quantfeed/tools/log"
)

const tiingoBaseURL = "https://api.tiingo.com"

// TiingoClient fetches last prices from the Tiingo IEX endpoint. Requests
// retry transparently and are rate limited to stay inside the API quota.
type TiingoClient struct {
	http    *retryablehttp.Client
	limiter *rate.Limiter
	token   string
	baseURL string
}

// NewTiingoClient builds a client with the auth token handed down from the
// feed settings.
func NewTiingoClient(token string) *TiingoClient {
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.Logger = nil
	return &TiingoClient{
		http:    client,
		limiter: rate.NewLimiter(rate.Every(time.Second), 2),
		token:   token,
		baseURL: tiingoBaseURL,
	}
}

type tiingoQuote struct {
	Ticker    string    `json:"ticker"`
	Timestamp time.Time `json:"timestamp"`
	Last      float64   `json:"last"`
	BidPrice  float64   `json:"bidPrice"`
	AskPrice  float64   `json:"askPrice"`
	Volume    float64   `json:"volume"`
}

// Latest returns the most recent print for symbol.
func (c *TiingoClient) Latest(ctx context.Context, symbol string, tz *time.Location) (*model.DataPoint, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/iex/%s?token=%s", c.baseURL, symbol, c.token)
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("tiingo: unexpected status %d for %s", resp.StatusCode, symbol)
	}

	var quotes []tiingoQuote
	if err := json.NewDecoder(resp.Body).Decode(&quotes); err != nil {
		return nil, errors.Wrap(err, "tiingo: decode")
	}
	if len(quotes) == 0 {
		return nil, nil
	}

	quote := quotes[0]
	at := quote.Timestamp.In(tz)
	return &model.DataPoint{
		Symbol:    symbol,
		StartTime: at,
		EndTime:   at,
		Value: model.Tick{
			Price:    quote.Last,
			Quantity: quote.Volume,
			BidPrice: quote.BidPrice,
			AskPrice: quote.AskPrice,
		},
	}, nil
}

// tiingoEnumerator polls the client at its declared period. It is pulled
// by the custom-data exchange; between refreshes it reports no data.
type tiingoEnumerator struct {
	client *TiingoClient
	symbol string
	period time.Duration
	tz     *time.Location

	now     func() time.Time
	retry   *backoff.Backoff
	next    time.Time
	last    time.Time
	current *model.DataPoint
}

// NewTiingoEnumerator builds a polled source refreshing every period.
func NewTiingoEnumerator(client *TiingoClient, symbol string, period time.Duration, tz *time.Location) service.Enumerator {
	if tz == nil {
		tz = time.UTC
	}
	return &tiingoEnumerator{
		client: client,
		symbol: symbol,
		period: period,
		tz:     tz,
		now:    time.Now,
		retry:  &backoff.Backoff{Min: time.Second, Max: time.Minute, Factor: 2, Jitter: true},
	}
}

func (t *tiingoEnumerator) MoveNext() bool {
	now := t.now()
	if now.Before(t.next) {
		t.current = nil
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	point, err := t.client.Latest(ctx, t.symbol, t.tz)
	if err != nil {
		delay := t.retry.Duration()
		t.next = now.Add(delay)
		log.WithField("symbol", t.symbol).Warnf("tiingo: fetch failed, retrying in %s: %v", delay, err)
		t.current = nil
		return true
	}

	t.retry.Reset()
	t.next = now.Add(t.period)
	if point == nil || !point.EndTimeUTC().After(t.last) {
		t.current = nil
		return true
	}
	t.last = point.EndTimeUTC()
	t.current = point
	return true
}

func (t *tiingoEnumerator) Current() *model.DataPoint { return t.current }

func (t *tiingoEnumerator) Close() error { return nil }
