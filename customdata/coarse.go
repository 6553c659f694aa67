package customdata

import (
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/quantfeed/quantfeed/model"
	"github.com/quantfeed/quantfeed/service"
	"github.com/quantfeed/quantfeed/tools/log"
)

const coarseRefreshPeriod = 10 * time.Minute

// CoarseRow is one line of a daily universe snapshot:
// symbol,close,volume,dollar volume.
type CoarseRow struct {
	Symbol       string
	Close        float64
	Volume       float64
	DollarVolume float64
}

// coarseEnumerator reads the previous tradable day's snapshot file through
// the data provider, re-reading every ten minutes. Each new trading day's
// snapshot yields one collection point so selection sees the whole snapshot
// at once; a re-read of the same trading day yields no data.
type coarseEnumerator struct {
	provider service.DataProvider
	hours    *model.MarketHours
	symbol   string
	tz       *time.Location

	now      func() time.Time
	next     time.Time
	lastDate time.Time
	current  *model.DataPoint
}

// NewCoarseSnapshotEnumerator builds the polled snapshot source for a
// coarse or ETF-constituent universe.
func NewCoarseSnapshotEnumerator(provider service.DataProvider, hours *model.MarketHours, symbol string, tz *time.Location) service.Enumerator {
	if tz == nil {
		tz = time.UTC
	}
	return &coarseEnumerator{
		provider: provider,
		hours:    hours,
		symbol:   symbol,
		tz:       tz,
		now:      time.Now,
	}
}

// snapshotKey locates the snapshot for a date, e.g.
// equity/usa/universe/coarse/20200831.csv.
func snapshotKey(date time.Time) string {
	return fmt.Sprintf("equity/usa/universe/coarse/%s.csv", date.Format("20060102"))
}

func (c *coarseEnumerator) MoveNext() bool {
	now := c.now()
	if now.Before(c.next) {
		c.current = nil
		return true
	}
	c.next = now.Add(coarseRefreshPeriod)

	date := c.hours.PreviousTradingDay(now)
	rows, err := c.read(snapshotKey(date))
	if err != nil {
		log.WithField("symbol", c.symbol).Warnf("coarse: snapshot read failed: %v", err)
		c.current = nil
		return true
	}
	if date.Equal(c.lastDate) {
		// Same trading day as the last emit; nothing new to select on.
		c.current = nil
		return true
	}
	c.lastDate = date

	at := date.In(c.tz)
	points := make([]*model.DataPoint, 0, len(rows))
	for _, row := range rows {
		points = append(points, &model.DataPoint{
			Symbol:    row.Symbol,
			StartTime: at,
			EndTime:   at,
			Value:     model.TradeBar{Close: row.Close, Volume: row.Volume},
		})
	}
	c.current = &model.DataPoint{
		Symbol:    c.symbol,
		StartTime: at,
		EndTime:   at,
		Value:     model.PointCollection{Symbol: c.symbol, Points: points},
	}
	return true
}

func (c *coarseEnumerator) read(key string) ([]CoarseRow, error) {
	stream, err := c.provider.Open(key)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	lines, err := csv.NewReader(stream).ReadAll()
	if err != nil {
		return nil, err
	}

	rows := make([]CoarseRow, 0, len(lines))
	for _, line := range lines {
		if len(line) < 2 {
			continue
		}
		row := CoarseRow{Symbol: line[0]}
		if row.Close, err = strconv.ParseFloat(line[1], 64); err != nil {
			continue
		}
		if len(line) > 2 {
			row.Volume, _ = strconv.ParseFloat(line[2], 64)
		}
		if len(line) > 3 {
			row.DollarVolume, _ = strconv.ParseFloat(line[3], 64)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (c *coarseEnumerator) Current() *model.DataPoint { return c.current }

func (c *coarseEnumerator) Close() error { return nil }
