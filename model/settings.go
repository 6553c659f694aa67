package model

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/xhit/go-str2duration/v2"

	"github.com/quantfeed/quantfeed/tools/log"
)

// Settings is the configuration record threaded through LiveFeed.Initialize.
type Settings struct {
	// MaxWarmupHistoryDays bounds the history-provider warmup look-back.
	MaxWarmupHistoryDays int
	// TiingoAuthToken is handed once to the custom-data layer.
	TiingoAuthToken string
	// CustomExchangeSleep is the custom-data exchange poll interval.
	CustomExchangeSleep time.Duration
}

// DefaultSettings returns the defaults recognized by the feed.
func DefaultSettings() Settings {
	return Settings{
		MaxWarmupHistoryDays: 7,
		CustomExchangeSleep:  100 * time.Millisecond,
	}
}

// LoadSettings reads the settings from the environment, loading a .env file
// first when one exists. Unset or malformed values keep their defaults.
func LoadSettings() Settings {
	_ = godotenv.Load()
	settings := DefaultSettings()

	if raw := os.Getenv("MAX_WARMUP_HISTORY_DAYS"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 0 {
			log.Warnf("settings: invalid MAX_WARMUP_HISTORY_DAYS %q, keeping %d", raw, settings.MaxWarmupHistoryDays)
		} else {
			settings.MaxWarmupHistoryDays = days
		}
	}

	settings.TiingoAuthToken = os.Getenv("TIINGO_AUTH_TOKEN")

	if raw := os.Getenv("CUSTOM_EXCHANGE_SLEEP"); raw != "" {
		sleep, err := str2duration.ParseDuration(raw)
		if err != nil || sleep <= 0 {
			log.Warnf("settings: invalid CUSTOM_EXCHANGE_SLEEP %q, keeping %s", raw, settings.CustomExchangeSleep)
		} else {
			settings.CustomExchangeSleep = sleep
		}
	}

	return settings
}
