package service

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/eventhall/eventhall/internal/domain"
	"github.com/eventhall/eventhall/internal/repository"
)

// FlushFunc receives the aggregated reaction counts of one room at the end
// of an aggregation window, for fan-out to subscribers.
type FlushFunc func(worldID, roomID string, counts map[string]int)

type reactionBucket struct {
	worldID string
	roomID  string
	counts  map[string]int
	rows    []domain.Reaction
}

// ReactionService aggregates short-lived room reactions over a fixed window.
// Individual reactions are never fanned out one by one; subscribers see one
// aggregate per room per window, and the rows are persisted in batches for
// analytics.
type ReactionService struct {
	reactionRepo repository.ReactionRepository
	stateRepo    repository.StateRepository
	window       time.Duration
	flush        FlushFunc

	mu      sync.Mutex
	pending map[string]*reactionBucket

	stopOnce sync.Once
	done     chan struct{}
}

func NewReactionService(reactionRepo repository.ReactionRepository, stateRepo repository.StateRepository, window time.Duration) *ReactionService {
	if reactionRepo == nil || stateRepo == nil {
		panic("repositories cannot be nil for ReactionService")
	}
	if window <= 0 {
		window = time.Second
	}
	return &ReactionService{
		reactionRepo: reactionRepo,
		stateRepo:    stateRepo,
		window:       window,
		pending:      make(map[string]*reactionBucket),
		done:         make(chan struct{}),
	}
}

// Start launches the window flusher. The flush callback is invoked off the
// caller's goroutine.
func (s *ReactionService) Start(flush FlushFunc) {
	s.flush = flush
	go s.flushLoop()
}

// Stop flushes the remaining window and stops the service.
func (s *ReactionService) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.flushWindow()
	})
}

// Send accepts one reaction into the current window. Rate limiting is per
// user per room.
func (s *ReactionService) Send(ctx context.Context, worldID, roomID string, user *domain.User, reaction string) error {
	if user.IsBanned() {
		return ErrPermissionDenied
	}
	if reaction == "" {
		return ErrInvalidInput
	}
	limited, err := s.stateRepo.CheckRateLimit(ctx, "ratelimit:react:"+roomID+":"+user.ID, 10, s.window)
	if err != nil {
		// Rate limiting is advisory; a broker hiccup must not drop reactions.
		logrus.WithError(err).Warn("Reaction rate limit check failed")
	} else if limited {
		return ErrPermissionDenied
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := worldID + ":" + roomID
	bucket, ok := s.pending[key]
	if !ok {
		bucket = &reactionBucket{
			worldID: worldID,
			roomID:  roomID,
			counts:  make(map[string]int),
		}
		s.pending[key] = bucket
	}
	bucket.counts[reaction]++
	bucket.rows = append(bucket.rows, domain.Reaction{
		WorldID:  worldID,
		RoomID:   roomID,
		UserID:   user.ID,
		Reaction: reaction,
		Amount:   1,
	})
	return nil
}

func (s *ReactionService) flushLoop() {
	ticker := time.NewTicker(s.window)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.flushWindow()
		case <-s.done:
			return
		}
	}
}

func (s *ReactionService) flushWindow() {
	s.mu.Lock()
	buckets := s.pending
	s.pending = make(map[string]*reactionBucket)
	s.mu.Unlock()

	for _, bucket := range buckets {
		if s.flush != nil {
			s.flush(bucket.worldID, bucket.roomID, bucket.counts)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.reactionRepo.SaveBatch(ctx, bucket.rows); err != nil {
			logrus.WithError(err).WithFields(logrus.Fields{
				"world_id": bucket.worldID,
				"room_id":  bucket.roomID,
				"size":     len(bucket.rows),
			}).Error("Failed to persist reaction batch")
		}
		cancel()
	}
}

// SaveFeedback persists one attendee feedback entry.
func (s *ReactionService) SaveFeedback(ctx context.Context, worldID, roomID, senderID string, rating int, message string) error {
	if rating < 0 || rating > 5 {
		return ErrInvalidInput
	}
	feedback := &domain.Feedback{
		WorldID:  worldID,
		RoomID:   roomID,
		SenderID: senderID,
		Rating:   rating,
		Message:  message,
	}
	if err := s.reactionRepo.SaveFeedback(ctx, feedback); err != nil {
		return ErrPersistence
	}
	return nil
}
