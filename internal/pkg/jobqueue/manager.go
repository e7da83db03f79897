package jobqueue

import (
	"context"
	"sync"
	"time"

	"github.com/ManuelReschke/GridFox/internal/pkg/metrics"
	"github.com/gofiber/fiber/v2/log"
)

// Manager runs the queue together with its periodic housekeeping.
type Manager struct {
	queue         *Queue
	metrics       *metrics.Metrics
	depthInterval time.Duration
	depthTicker   *time.Ticker
	stopCh        chan struct{}
	wg            sync.WaitGroup
	mu            sync.Mutex
	running       bool
}

// NewManager wires job outcomes and queue depth into m. m may be nil.
func NewManager(queue *Queue, m *metrics.Metrics, depthInterval time.Duration) *Manager {
	if depthInterval <= 0 {
		depthInterval = 15 * time.Second
	}
	if m != nil {
		queue.OnOutcome = func(_ JobType, outcome string) {
			m.MailJobs.WithLabelValues(outcome).Inc()
		}
	}
	return &Manager{
		queue:         queue,
		metrics:       m,
		depthInterval: depthInterval,
	}
}

// Start runs the queue and the depth gauge loop.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	// fresh channel per cycle so the manager can be restarted
	m.stopCh = make(chan struct{})
	m.running = true
	m.queue.Start()

	m.depthTicker = time.NewTicker(m.depthInterval)
	m.wg.Add(1)
	go m.depthWorker()
	log.Info("[MailQueue] manager started")
}

// Stop halts the depth loop first, then drains the queue.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	if m.depthTicker != nil {
		m.depthTicker.Stop()
	}

	close(m.stopCh)
	m.running = false
	m.wg.Wait()

	m.queue.Stop()
}

func (m *Manager) depthWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			return
		case <-m.depthTicker.C:
			if err := m.recordDepth(context.Background()); err != nil {
				log.Errorf("[MailQueue] depth check: %v", err)
			}
		}
	}
}

func (m *Manager) recordDepth(ctx context.Context) error {
	pending, delayed, _, err := m.queue.Depth(ctx)
	if err != nil {
		return err
	}
	if m.metrics != nil {
		m.metrics.MailQueueDepth.Set(float64(pending + delayed))
	}
	return nil
}

func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}
