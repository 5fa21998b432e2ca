package cache

import (
	"context"
	"sync"
	"time"

	"finclient/internal/log"
)

// Manager runs interval pollers against a QueryClient.
type Manager struct {
	client *QueryClient
	logger *log.Logger

	mu      sync.Mutex
	stop    chan struct{}
	done    sync.WaitGroup
	stopped bool
}

func NewManager(client *QueryClient, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		client: client,
		logger: logger.WithComponent(log.ComponentCache),
		stop:   make(chan struct{}),
	}
}

// Poll refetches key every interval until Stop. Each refetch updates the
// cache and notifies subscribers of key. interval <= 0 is ignored.
func (m *Manager) Poll(key Key, fetch Fetcher, interval time.Duration) {
	if interval <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return
	}

	m.done.Add(1)
	go m.poll(key, fetch, interval)

	m.logger.Info("Poller started",
		log.FieldOperation, log.OpPoll,
		log.FieldKey, key,
		"interval", interval)
}

func (m *Manager) poll(key Key, fetch Fetcher, interval time.Duration) {
	defer m.done.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-m.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		select {
		case <-ticker.C:
			if _, err := m.client.Refetch(ctx, key, fetch); err != nil && ctx.Err() == nil {
				m.logger.Debug("Poll fetch failed",
					log.FieldOperation, log.OpPoll,
					log.FieldKey, key,
					log.FieldError, err)
			}
		case <-m.stop:
			return
		}
	}
}

// Stop ends every poller and waits for them to return.
func (m *Manager) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	close(m.stop)
	m.mu.Unlock()

	m.done.Wait()
}
