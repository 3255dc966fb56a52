package notification

import (
	"context"
	"sync"
	"time"

	"Sahaaya/internal/acknowledgement"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	queueSize       = 64
	deliveryTimeout = time.Minute
)

// NotificationScheduler delivers published acknowledgements in the background
// so publishing never waits on the mail provider.
type NotificationScheduler struct {
	service *NotificationService
	logger  *zap.Logger

	mu      sync.RWMutex
	queue   chan acknowledgement.Acknowledgement
	running bool
	wg      sync.WaitGroup
}

func NewNotificationScheduler(lc fx.Lifecycle, service *NotificationService, logger *zap.Logger) *NotificationScheduler {
	s := &NotificationScheduler{service: service, logger: logger}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			s.Start()
			return nil
		},
		OnStop: s.Stop,
	})
	return s
}

func (s *NotificationScheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.queue = make(chan acknowledgement.Acknowledgement, queueSize)
	s.running = true

	s.wg.Add(1)
	go s.run(s.queue)
	s.logger.Info("notification scheduler started", zap.Bool("email_enabled", s.service.Enabled()))
}

// Stop closes the queue and waits for queued deliveries to finish, or for ctx.
func (s *NotificationScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.queue)
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		s.logger.Info("notification scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Enqueue schedules delivery of ack. It never blocks; when email is disabled,
// the scheduler is stopped or the queue is full the acknowledgement is skipped.
func (s *NotificationScheduler) Enqueue(ack acknowledgement.Acknowledgement) {
	if !s.service.Enabled() {
		s.logger.Debug("email disabled, skipping acknowledgement delivery",
			zap.String("acknowledgement_id", ack.ID.Hex()))
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.running {
		s.logger.Warn("notification scheduler not running, dropping delivery",
			zap.String("acknowledgement_id", ack.ID.Hex()))
		return
	}
	select {
	case s.queue <- ack:
	default:
		s.logger.Warn("notification queue full, dropping delivery",
			zap.String("acknowledgement_id", ack.ID.Hex()))
	}
}

func (s *NotificationScheduler) run(queue <-chan acknowledgement.Acknowledgement) {
	defer s.wg.Done()
	for ack := range queue {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		if _, err := s.service.SendAcknowledgement(ctx, ack); err != nil {
			s.logger.Error("failed to deliver acknowledgement",
				zap.String("acknowledgement_id", ack.ID.Hex()),
				zap.Error(err))
		}
		cancel()
	}
}
