package reports

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"bitbucket.org/mmdatafocus/cvr_backend/config"
)

// SeriesCache caches computed baseline/scenario series in redis, keyed by
// (contract, scenario). It is constructed once in server wiring and passed
// by handle to readers; write workflows call InvalidateContract explicitly
// after every mutation that could change a series. A nil cache (or a missing
// redis client) degrades to pass-through.
type SeriesCache struct {
	ttl     time.Duration
	enabled bool
}

func NewSeriesCache() *SeriesCache {
	return &SeriesCache{
		ttl:     seriesCacheTTL(),
		enabled: seriesCacheEnabled(),
	}
}

func seriesCacheEnabled() bool {
	v := strings.TrimSpace(os.Getenv("ENABLE_SERIES_CACHE"))
	return v == "1" || strings.EqualFold(v, "true") || strings.EqualFold(v, "yes") || strings.EqualFold(v, "on")
}

func seriesCacheTTL() time.Duration {
	// Env: SERIES_CACHE_TTL_SECONDS (default 120s)
	ttl := 120
	if v := strings.TrimSpace(os.Getenv("SERIES_CACHE_TTL_SECONDS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			ttl = n
		}
	}
	return time.Duration(ttl) * time.Second
}

func seriesKey(contractId int, scenarioId int) string {
	return fmt.Sprintf("series:contract:%d:scenario:%d", contractId, scenarioId)
}

func (c *SeriesCache) get(contractId int, scenarioId int, dest interface{}) bool {
	if c == nil || !c.enabled {
		return false
	}
	found, err := config.GetRedisObject(seriesKey(contractId, scenarioId), dest)
	if err != nil {
		return false
	}
	return found
}

func (c *SeriesCache) set(contractId int, scenarioId int, obj interface{}) {
	if c == nil || !c.enabled {
		return
	}
	_ = config.SetRedisObject(seriesKey(contractId, scenarioId), obj, c.ttl)
}

// InvalidateContract drops every cached series of a contract, baseline and
// all scenarios. Called by write workflows after commit.
func (c *SeriesCache) InvalidateContract(contractId int) error {
	if c == nil || !c.enabled {
		return nil
	}
	return config.RemoveRedisKeysByPattern(fmt.Sprintf("series:contract:%d:scenario:*", contractId))
}
