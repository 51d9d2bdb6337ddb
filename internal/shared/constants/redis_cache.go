package constants

import (
	"fmt"
	"time"
)

// Redis keys follow parkly:{module}:{operation}:{params}

const (
	CACHE_PREFIX = "parkly"
)

// ================== SPACES MODULE ==================

const (
	// + :from:<unix>:to:<unix>:floor:<n|all>
	CACHE_KEY_SPACES_AVAILABLE = CACHE_PREFIX + ":spaces:available"
	CACHE_KEY_SPACES_ALL       = CACHE_PREFIX + ":spaces:all"
)

const (
	TTL_SPACES_ALL = 1 * time.Hour // inventory only changes on seeding
)

// ================== STATISTICS MODULE ==================

const (
	CACHE_KEY_ADMIN_STATS = CACHE_PREFIX + ":statistics:admin"
)

const (
	TTL_ADMIN_STATS = 30 * time.Second
)

// ================== RECONCILIATION ==================

const (
	LOCK_KEY_RECONCILIATION = CACHE_PREFIX + ":locks:reconciliation"
)

// ================== KEY BUILDERS ==================

func BuildAvailableSpacesKey(from, to time.Time, floor int) string {
	floorPart := "all"
	if floor > 0 {
		floorPart = fmt.Sprintf("%d", floor)
	}
	return fmt.Sprintf("%s:from:%d:to:%d:floor:%s", CACHE_KEY_SPACES_AVAILABLE, from.Unix(), to.Unix(), floorPart)
}

// AvailableSpacesPattern matches every cached availability search
func AvailableSpacesPattern() string {
	return CACHE_KEY_SPACES_AVAILABLE + ":*"
}
