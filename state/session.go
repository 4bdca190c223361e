package state

import (
	"context"
	"encoding/json"
	"fmt"

	"storefront/models"

	"go.uber.org/zap"
)

// Session returns the signed-in session, if any.
func (s *Store) Session() (models.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.authenticated || s.session == nil {
		return models.Session{}, false
	}
	return *s.session, true
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

// InitialCheckComplete reports whether the startup session check has resolved.
func (s *Store) InitialCheckComplete() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checkComplete
}

// Ready is closed once the startup session check has resolved.
func (s *Store) Ready() <-chan struct{} {
	return s.ready
}

func (s *Store) completeCheck() {
	s.readyOnce.Do(func() {
		s.update(func() { s.checkComplete = true })
		close(s.ready)
	})
}

// userID returns the id of the authenticated user or "".
// Callers must hold s.mu.
func (s *Store) userID() string {
	if !s.authenticated || s.session == nil {
		return ""
	}
	return s.session.ID
}

func (s *Store) currentUserID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID()
}

// Restore reloads the persisted session. A stored session is trusted at once
// and re-validated against the backend in the background; a rejection or a
// network failure logs the user out. The cart is loaded once the check
// passes.
func (s *Store) Restore(ctx context.Context) error {
	raw, ok, err := s.storage.Get(ctx, SessionKey)
	if err != nil {
		s.completeCheck()
		return fmt.Errorf("failed to read persisted session: %w", err)
	}
	if !ok {
		s.completeCheck()
		return nil
	}

	var sess models.Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil || sess.ID == "" {
		s.logger.Warn("Discarding malformed persisted session", zap.Error(err))
		if err := s.storage.Remove(ctx, SessionKey); err != nil {
			s.logger.Error("Failed to remove persisted session", zap.Error(err))
		}
		s.completeCheck()
		return nil
	}

	s.update(func() {
		s.session = &sess
		s.authenticated = true
	})
	s.logger.Info("Restored session", zap.String("user_id", sess.ID))

	s.enqueue("verify-session", func(ctx context.Context) {
		s.verifySession(ctx, sess.ID)
	})
	return nil
}

func (s *Store) verifySession(ctx context.Context, userID string) {
	err := s.backend.VerifyUser(ctx, userID)
	if ctx.Err() != nil {
		return
	}

	if err != nil {
		// Only the session that was checked is invalidated; a login that
		// happened meanwhile stands.
		if s.currentUserID() == userID {
			s.logger.Warn("Session verification failed, logging out", zap.String("user_id", userID), zap.Error(err))
			s.Logout(ctx)
		}
	}
	s.completeCheck()

	if current := s.currentUserID(); current != "" {
		_ = s.loadCart(ctx, current, true)
	}
}

// Login projects record into a Session, marks the user authenticated, and
// persists the session. The cart is then loaded in the background.
func (s *Store) Login(ctx context.Context, record models.UserRecord) (models.Session, error) {
	sess := record.ToSession()
	if sess.ID == "" {
		return models.Session{}, ErrMissingUserID
	}

	s.update(func() {
		s.session = &sess
		s.authenticated = true
	})
	s.logger.Info("User logged in", zap.String("user_id", sess.ID))

	// Queued behind any pending startup check.
	s.enqueue("load-cart", func(ctx context.Context) {
		if s.currentUserID() == sess.ID {
			_ = s.loadCart(ctx, sess.ID, true)
		}
	})

	data, err := json.Marshal(sess)
	if err != nil {
		return sess, fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.storage.Set(ctx, SessionKey, string(data)); err != nil {
		return sess, fmt.Errorf("failed to persist session: %w", err)
	}
	return sess, nil
}

// Logout clears durable storage, the session and the cart synchronously.
func (s *Store) Logout(ctx context.Context) {
	if err := s.storage.Remove(ctx, SessionKey); err != nil {
		s.logger.Error("Failed to remove persisted session", zap.Error(err))
	}
	s.update(func() {
		s.session = nil
		s.authenticated = false
		s.cart = models.CartItems{}
		s.cartError = ""
	})
	s.logger.Info("User logged out")
}
