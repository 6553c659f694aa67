package model

import "time"

// Session is one weekday's trading window, expressed as offsets from
// midnight exchange time. A zero Session means the market is closed.
type Session struct {
	PreOpen   time.Duration
	Open      time.Duration
	Close     time.Duration
	PostClose time.Duration
}

func (s Session) closed() bool {
	return s.Open == 0 && s.Close == 0
}

// MarketHours is a security's weekly schedule plus holidays. All checks
// take instants in any location and convert to the exchange time zone.
type MarketHours struct {
	TZ       *time.Location
	Sessions map[time.Weekday]Session
	Holidays map[string]bool // keyed YYYY-MM-DD in exchange time
}

const holidayKeyLayout = "2006-01-02"

// AlwaysOpen returns a schedule with no closing hours, used by crypto and
// custom data subscriptions.
func AlwaysOpen(tz *time.Location) *MarketHours {
	sessions := make(map[time.Weekday]Session)
	for d := time.Sunday; d <= time.Saturday; d++ {
		sessions[d] = Session{Open: 0, Close: 24 * time.Hour, PostClose: 24 * time.Hour}
	}
	return &MarketHours{TZ: tz, Sessions: sessions}
}

// RegularEquityHours returns the 9:30-16:00 weekday schedule with 4:00
// pre-market and 20:00 post-market.
func RegularEquityHours(tz *time.Location) *MarketHours {
	session := Session{
		PreOpen:   4 * time.Hour,
		Open:      9*time.Hour + 30*time.Minute,
		Close:     16 * time.Hour,
		PostClose: 20 * time.Hour,
	}
	sessions := make(map[time.Weekday]Session)
	for d := time.Monday; d <= time.Friday; d++ {
		sessions[d] = session
	}
	return &MarketHours{TZ: tz, Sessions: sessions, Holidays: make(map[string]bool)}
}

// AddHoliday closes the given date.
func (h *MarketHours) AddHoliday(date time.Time) {
	if h.Holidays == nil {
		h.Holidays = make(map[string]bool)
	}
	h.Holidays[date.In(h.TZ).Format(holidayKeyLayout)] = true
}

func (h *MarketHours) session(t time.Time) (Session, time.Time, bool) {
	local := t.In(h.TZ)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, h.TZ)
	if h.Holidays[midnight.Format(holidayKeyLayout)] {
		return Session{}, midnight, false
	}
	session, ok := h.Sessions[local.Weekday()]
	if !ok || session.closed() {
		return Session{}, midnight, false
	}
	return session, midnight, true
}

// IsOpen reports whether the market trades at instant t. With extended set,
// the pre and post market windows count as open.
func (h *MarketHours) IsOpen(t time.Time, extended bool) bool {
	session, midnight, ok := h.session(t)
	if !ok {
		return false
	}
	offset := t.In(h.TZ).Sub(midnight)
	if extended {
		openAt := session.Open
		if session.PreOpen > 0 {
			openAt = session.PreOpen
		}
		closeAt := session.Close
		if session.PostClose > 0 {
			closeAt = session.PostClose
		}
		return offset >= openAt && offset < closeAt
	}
	return offset >= session.Open && offset < session.Close
}

// IsDateOpen reports whether the date of t has any trading session.
func (h *MarketHours) IsDateOpen(t time.Time) bool {
	_, _, ok := h.session(t)
	return ok
}

// NextOpen returns the first session opening strictly after t. When t falls
// inside a session, that is the following session's opening.
func (h *MarketHours) NextOpen(t time.Time, extended bool) time.Time {
	local := t.In(h.TZ)
	for i := 0; i < 370; i++ { // bounded scan; a year without a session means a broken schedule
		session, midnight, ok := h.session(local)
		if ok {
			open := session.Open
			if extended && session.PreOpen > 0 {
				open = session.PreOpen
			}
			openAt := midnight.Add(open)
			if openAt.After(t) {
				return openAt
			}
		}
		local = midnight.AddDate(0, 0, 1).Add(time.Hour) // step past midnight, tolerate DST
	}
	return t
}

// PreviousTradingDay returns the last date strictly before t with a
// session, at midnight exchange time.
func (h *MarketHours) PreviousTradingDay(t time.Time) time.Time {
	local := t.In(h.TZ)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, h.TZ)
	for i := 0; i < 370; i++ {
		midnight = midnight.AddDate(0, 0, -1)
		if _, _, ok := h.session(midnight.Add(12 * time.Hour)); ok {
			return midnight
		}
	}
	return midnight
}

// TradableDaysBetween counts dates with a session in [start, end).
func (h *MarketHours) TradableDaysBetween(start, end time.Time) int {
	count := 0
	local := start.In(h.TZ)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, h.TZ)
	for day.Before(end) {
		if h.IsDateOpen(day.Add(12 * time.Hour)) {
			count++
		}
		day = day.AddDate(0, 0, 1)
	}
	return count
}
