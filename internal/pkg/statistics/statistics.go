// Package statistics maintains the cached aggregate numbers shown on the
// public start page, the member dashboard and the admin area.
package statistics

import (
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/MemberFox/MemberFox/app/models"
	"github.com/MemberFox/MemberFox/internal/pkg/cache"
	"github.com/MemberFox/MemberFox/internal/pkg/database"
	"github.com/MemberFox/MemberFox/internal/pkg/tiers"
)

const (
	CacheKeyMembersTotal = "statistics:members:total"
	CacheKeyMembersDaily = "statistics:members:daily:%s" // Format with date YYYY-MM-DD
	CacheKeyActiveSubs   = "statistics:subscriptions:active"
	CacheKeyMembersTier  = "statistics:members:tier:%s" // Format with tier code
	CacheExpiration      = 30 * time.Minute

	refreshInterval = 5 * time.Minute
)

// StatisticsData holds the aggregate numbers for the dashboard and admin area
type StatisticsData struct {
	NewMembersToday     int
	TotalMembers        int
	ActiveSubscriptions int
	TierCounts          map[string]int
}

var (
	refreshMu   sync.Mutex
	lastRefresh time.Time
)

// UpdateCacheIfNeeded refreshes the cached numbers when they are older than
// the refresh interval. Safe to call from any goroutine.
func UpdateCacheIfNeeded() {
	refreshMu.Lock()
	stale := time.Since(lastRefresh) > refreshInterval
	refreshMu.Unlock()
	if !stale {
		return
	}

	log.Println("Updating statistics cache...")
	if err := UpdateStatisticsCache(); err != nil {
		log.Printf("Error updating statistics cache: %v", err)
		return
	}

	refreshMu.Lock()
	lastRefresh = time.Now()
	refreshMu.Unlock()
}

// todayWindow returns today's date stamp and its [start, end) bounds.
func todayWindow() (string, time.Time, time.Time) {
	stamp := time.Now().Format("2006-01-02")
	start, _ := time.Parse("2006-01-02", stamp)
	return stamp, start, start.Add(24 * time.Hour)
}

func countMembers(db *gorm.DB) (int64, error) {
	var n int64
	err := db.Model(&models.User{}).Count(&n).Error
	return n, err
}

func countMembersToday(db *gorm.DB) (int64, error) {
	_, start, end := todayWindow()
	var n int64
	err := db.Model(&models.User{}).Where("created_at BETWEEN ? AND ?", start, end).Count(&n).Error
	return n, err
}

func countActiveSubscriptions(db *gorm.DB) (int64, error) {
	now := time.Now()
	var n int64
	err := db.Model(&models.SubscriptionInformation{}).
		Where("`start` <= ? AND (`end` IS NULL OR `end` >= ?)", now, now).
		Count(&n).Error
	return n, err
}

func countTier(tier tiers.Tier) func(db *gorm.DB) (int64, error) {
	return func(db *gorm.DB) (int64, error) {
		var n int64
		err := db.Model(&models.Membership{}).Where("tier = ?", string(tier)).Count(&n).Error
		return n, err
	}
}

// counterKeys enumerates every cache key with the query that computes it.
func counterKeys() []struct {
	key   string
	count func(*gorm.DB) (int64, error)
} {
	stamp, _, _ := todayWindow()
	list := []struct {
		key   string
		count func(*gorm.DB) (int64, error)
	}{
		{CacheKeyMembersTotal, countMembers},
		{fmt.Sprintf(CacheKeyMembersDaily, stamp), countMembersToday},
		{CacheKeyActiveSubs, countActiveSubscriptions},
	}
	for _, tier := range tiers.All() {
		list = append(list, struct {
			key   string
			count func(*gorm.DB) (int64, error)
		}{fmt.Sprintf(CacheKeyMembersTier, tier), countTier(tier)})
	}
	return list
}

// UpdateStatisticsCache recomputes every aggregate and writes it to the cache.
func UpdateStatisticsCache() error {
	db := database.GetDB()

	for _, item := range counterKeys() {
		n, err := item.count(db)
		if err != nil {
			log.Printf("Error computing %s: %v", item.key, err)
			return err
		}
		if err := storeCount(item.key, n); err != nil {
			log.Printf("Error caching %s: %v", item.key, err)
			return err
		}
	}

	log.Println("Statistics cache refreshed")
	return nil
}

func storeCount(key string, n int64) error {
	return cache.Set(key, strconv.FormatInt(n, 10), CacheExpiration)
}

// cachedCount returns the counter under key, computing and caching it on a
// miss. Failures fall back to zero so pages render regardless.
func cachedCount(key string, count func(*gorm.DB) (int64, error)) int {
	if val, err := cache.Get(key); err == nil {
		n, perr := strconv.ParseInt(val, 10, 64)
		if perr != nil {
			return 0
		}
		return int(n)
	}

	n, err := count(database.GetDB())
	if err != nil {
		log.Printf("Error computing %s: %v", key, err)
		return 0
	}
	if err := storeCount(key, n); err != nil {
		log.Printf("Error caching %s: %v", key, err)
	}
	return int(n)
}

// GetTotalMembers returns the total number of members.
func GetTotalMembers() int {
	return cachedCount(CacheKeyMembersTotal, countMembers)
}

// GetNewMembersToday returns the number of members registered today.
func GetNewMembersToday() int {
	stamp, _, _ := todayWindow()
	return cachedCount(fmt.Sprintf(CacheKeyMembersDaily, stamp), countMembersToday)
}

// GetActiveSubscriptions returns the number of currently active subscription
// windows.
func GetActiveSubscriptions() int {
	return cachedCount(CacheKeyActiveSubs, countActiveSubscriptions)
}

// GetTierCounts returns the number of memberships per tier code.
func GetTierCounts() map[string]int {
	counts := make(map[string]int, len(tiers.All()))
	for _, tier := range tiers.All() {
		counts[string(tier)] = cachedCount(fmt.Sprintf(CacheKeyMembersTier, tier), countTier(tier))
	}
	return counts
}

// GetStatisticsData bundles every aggregate for one render pass.
func GetStatisticsData() StatisticsData {
	UpdateCacheIfNeeded()

	return StatisticsData{
		NewMembersToday:     GetNewMembersToday(),
		TotalMembers:        GetTotalMembers(),
		ActiveSubscriptions: GetActiveSubscriptions(),
		TierCounts:          GetTierCounts(),
	}
}
