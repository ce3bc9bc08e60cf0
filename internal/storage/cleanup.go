package storage

import (
	"context"
	"time"

	"github.com/scalekit-inc/org-switcher-demo/internal/log"
)

// CleanupManager periodically purges expired sessions from the store
type CleanupManager struct {
	store    SessionStore
	interval time.Duration
	stopChan chan struct{}
	doneChan chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(store SessionStore, interval time.Duration) *CleanupManager {
	return &CleanupManager{
		store:    store,
		interval: interval,
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}
}

// Start begins the cleanup loop in a goroutine
func (cm *CleanupManager) Start(ctx context.Context) {
	log.LogInfoWithFields("cleanup", "Starting session cleanup manager", map[string]any{
		"interval": cm.interval.String(),
	})
	go cm.run(ctx)
}

// Stop gracefully stops the cleanup loop
func (cm *CleanupManager) Stop() {
	close(cm.stopChan)
	<-cm.doneChan
	log.Logf("Session cleanup manager stopped")
}

func (cm *CleanupManager) run(ctx context.Context) {
	defer close(cm.doneChan)

	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run cleanup immediately on start
	cm.cleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.cleanup(ctx)
		case <-cm.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (cm *CleanupManager) cleanup(ctx context.Context) {
	purged, err := cm.store.PurgeExpired(ctx)
	if err != nil {
		log.LogErrorWithFields("cleanup", "Session purge failed", map[string]any{
			"error": err.Error(),
		})
		return
	}
	if purged > 0 {
		log.LogInfoWithFields("cleanup", "Purged expired sessions", map[string]any{
			"count": purged,
		})
	}
}
