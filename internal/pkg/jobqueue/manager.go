package jobqueue

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/MemberFox/MemberFox/app/models"
	"github.com/MemberFox/MemberFox/internal/pkg/metrics/counter"
	"github.com/MemberFox/MemberFox/internal/pkg/statistics"
)

const (
	counterFlushInterval = 5 * time.Second
	statisticsInterval   = 10 * time.Minute
	defaultWorkerCount   = 5
)

// Manager owns the process-wide queue plus the periodic maintenance that
// rides along with it: flushing Redis login counters into the database and
// refreshing the cached member statistics.
type Manager struct {
	queue   *Queue
	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the process-wide manager. The worker count comes from
// the stored app settings when they are loaded, otherwise the default.
func GetManager() *Manager {
	managerOnce.Do(func() {
		workers := defaultWorkerCount
		if settings := models.GetAppSettings(); settings != nil {
			workers = settings.GetJobQueueWorkerCount()
		}
		globalManager = &Manager{
			queue:  NewQueue(workers),
			stopCh: make(chan struct{}),
		}
	})
	return globalManager
}

// GetQueue returns the managed job queue.
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Start launches the queue workers and the maintenance loop.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return
	}
	m.running = true
	m.stopCh = make(chan struct{})

	m.queue.Start()
	m.wg.Add(1)
	go m.maintenanceLoop()

	log.Info("[JobQueue Manager] started")
}

// Stop shuts down the maintenance loop first, then the queue workers.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return
	}
	m.running = false
	close(m.stopCh)
	m.wg.Wait()
	m.queue.Stop()

	log.Info("[JobQueue Manager] stopped")
}

// IsRunning reports whether Start has been called without a matching Stop.
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Manager) maintenanceLoop() {
	defer m.wg.Done()
	counters := time.NewTicker(counterFlushInterval)
	stats := time.NewTicker(statisticsInterval)
	defer counters.Stop()
	defer stats.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case <-counters.C:
			if err := counter.FlushAll(); err != nil {
				log.Errorf("[JobQueue Manager] counter flush: %v", err)
			}
		case <-stats.C:
			statistics.UpdateCacheIfNeeded()
		}
	}
}
