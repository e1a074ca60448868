package statistics

import (
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/LukasBrandt/Loopline/app/models"
	"github.com/LukasBrandt/Loopline/internal/pkg/cache"
	"github.com/LukasBrandt/Loopline/internal/pkg/database"
)

const (
	CacheKeyUsersTotal        = "statistics:users:total"
	CacheKeySubscribersActive = "statistics:subscribers:active"
	CacheExpiration           = 30 * time.Minute
)

// StatisticsData holds the aggregate numbers served to the stats endpoint.
type StatisticsData struct {
	TotalUsers        int `json:"total_users"`
	ActiveSubscribers int `json:"active_subscribers"`
}

var (
	lastCacheUpdate     time.Time
	cacheUpdateMutex    sync.Mutex
	cacheUpdateInterval = 5 * time.Minute
)

// ShouldUpdateCache reports whether the cached numbers are due for a refresh
func ShouldUpdateCache() bool {
	cacheUpdateMutex.Lock()
	defer cacheUpdateMutex.Unlock()

	return time.Since(lastCacheUpdate) > cacheUpdateInterval
}

// UpdateCacheIfNeeded refreshes the cache when the interval has elapsed
func UpdateCacheIfNeeded() {
	if ShouldUpdateCache() {
		cacheUpdateMutex.Lock()
		defer cacheUpdateMutex.Unlock()

		if err := UpdateStatisticsCache(); err != nil {
			log.Printf("Error updating statistics cache: %v", err)
		} else {
			lastCacheUpdate = time.Now()
		}
	}
}

// UpdateStatisticsCache recounts users and active subscribers and stores the
// values in the cache.
func UpdateStatisticsCache() error {
	db := database.GetDB()

	var totalUsers int64
	if err := db.Model(&models.User{}).Count(&totalUsers).Error; err != nil {
		log.Printf("Error counting total users: %v", err)
		return err
	}

	var activeSubscribers int64
	if err := db.Model(&models.User{}).
		Where("subscription_status = ? AND subscription_plan_id IS NOT NULL", models.SUBSCRIPTION_ACTIVE).
		Count(&activeSubscribers).Error; err != nil {
		log.Printf("Error counting active subscribers: %v", err)
		return err
	}

	if err := cache.Set(CacheKeyUsersTotal, strconv.FormatInt(totalUsers, 10), CacheExpiration); err != nil {
		log.Printf("Error caching total users: %v", err)
		return err
	}
	if err := cache.Set(CacheKeySubscribersActive, strconv.FormatInt(activeSubscribers, 10), CacheExpiration); err != nil {
		log.Printf("Error caching active subscribers: %v", err)
		return err
	}

	return nil
}

// GetStatistics returns the cached aggregate numbers, refreshing them first if
// they are stale.
func GetStatistics() StatisticsData {
	UpdateCacheIfNeeded()

	data := StatisticsData{}
	if raw, err := cache.Get(CacheKeyUsersTotal); err == nil {
		if v, err := strconv.Atoi(raw); err == nil {
			data.TotalUsers = v
		}
	}
	if raw, err := cache.Get(CacheKeySubscribersActive); err == nil {
		if v, err := strconv.Atoi(raw); err == nil {
			data.ActiveSubscribers = v
		}
	}
	return data
}
