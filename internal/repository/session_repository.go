package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"subtrack/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNotFound is returned for unknown session or subscription ids.
var ErrNotFound = errors.New("not found")

// SessionRepository is an in-memory store of parse results and category
// assignments. Data is lost on service restart, which is the intended
// lifetime for a single-session tool.
type SessionRepository struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*models.Session
	logger   *zap.Logger
}

func NewSessionRepository(logger *zap.Logger) *SessionRepository {
	return &SessionRepository{
		sessions: make(map[uuid.UUID]*models.Session),
		logger:   logger,
	}
}

// Create registers a new empty session and returns a copy of it.
func (r *SessionRepository) Create(ctx context.Context) (*models.Session, error) {
	now := time.Now()
	session := &models.Session{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	r.mu.Lock()
	r.sessions[session.ID] = session
	r.mu.Unlock()

	r.logger.Info("Session created", zap.String("session_id", session.ID.String()))
	return copySession(session), nil
}

// Get returns a copy of the session to avoid external modifications.
func (r *SessionRepository) Get(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, exists := r.sessions[id]
	if !exists {
		return nil, fmt.Errorf("session %s: %w", id, ErrNotFound)
	}
	return copySession(session), nil
}

// ReplaceResult swaps in a freshly parsed result set. A new upload replaces
// the prior transactions and subscriptions entirely, there is no merge.
func (r *SessionRepository) ReplaceResult(ctx context.Context, id uuid.UUID, transactions []models.Transaction, subscriptions []models.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, exists := r.sessions[id]
	if !exists {
		return fmt.Errorf("session %s: %w", id, ErrNotFound)
	}

	session.Transactions = append([]models.Transaction(nil), transactions...)
	session.Subscriptions = append([]models.Subscription(nil), subscriptions...)
	session.UpdatedAt = time.Now()

	r.logger.Info("Session result replaced",
		zap.String("session_id", id.String()),
		zap.Int("transactions", len(transactions)),
		zap.Int("subscriptions", len(subscriptions)),
	)
	return nil
}

// SetCategory records the user's disposition for one subscription.
// Overwritable, last write wins.
func (r *SessionRepository) SetCategory(ctx context.Context, sessionID, subscriptionID uuid.UUID, category models.Category) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session, exists := r.sessions[sessionID]
	if !exists {
		return fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}

	for i := range session.Subscriptions {
		if session.Subscriptions[i].ID == subscriptionID {
			session.Subscriptions[i].Category = category
			session.UpdatedAt = time.Now()
			return nil
		}
	}

	return fmt.Errorf("subscription %s: %w", subscriptionID, ErrNotFound)
}

func copySession(s *models.Session) *models.Session {
	out := *s
	out.Transactions = append([]models.Transaction(nil), s.Transactions...)
	out.Subscriptions = append([]models.Subscription(nil), s.Subscriptions...)
	return &out
}
