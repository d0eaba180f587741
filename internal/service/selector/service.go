// Package selector picks the companion and owns the chat that follows from it.
package selector

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/eryai/mimre/internal/logging"
	"github.com/eryai/mimre/internal/model/companion"
	"github.com/eryai/mimre/internal/service/chat"
	"github.com/eryai/mimre/internal/storage"
)

var (
	ErrUnknownCompanion = errors.New("unknown companion")
	ErrNoCompanion      = errors.New("no companion selected")
)

// Config wires a Selector.
type Config struct {
	Companions companion.Store
	Backend    chat.Backend
	Storage    storage.Storage
	Slug       string
	Logger     *zap.Logger
}

// Selector moves the user between choosing a companion and chatting with one.
type Selector struct {
	companions companion.Store
	backend    chat.Backend
	store      storage.Storage
	slug       string
	logger     *zap.Logger

	mu     sync.Mutex
	active *chat.Conversation
}

// New returns a Selector with no active conversation.
func New(cfg Config) (*Selector, error) {
	if cfg.Companions == nil || cfg.Backend == nil || cfg.Storage == nil {
		return nil, errors.New("selector: companions, backend and storage are required")
	}
	return &Selector{
		companions: cfg.Companions,
		backend:    cfg.Backend,
		store:      cfg.Storage,
		slug:       cfg.Slug,
		logger:     logging.OrNop(cfg.Logger),
	}, nil
}

// Companions lists the choices in display order.
func (s *Selector) Companions() []companion.Companion {
	return s.companions.List()
}

// Active returns the current conversation, or nil while choosing.
func (s *Selector) Active() *chat.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Restore reopens the chat for a previously persisted choice. ok is false when
// nothing was chosen yet.
func (s *Selector) Restore(_ context.Context) (*chat.Conversation, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil {
		return s.active, true, nil
	}

	id, ok, err := s.store.Get(storage.KeyCompanion)
	if err != nil {
		return nil, false, fmt.Errorf("load selected companion: %w", err)
	}
	if !ok || id == "" {
		return nil, false, nil
	}

	c := s.companions.Resolve(id)
	if c.ID != id {
		s.logger.Warn("unknown stored companion, using default",
			zap.String("stored", id), zap.String("companion", c.ID))
		if err := s.store.Set(storage.KeyCompanion, c.ID); err != nil {
			return nil, false, fmt.Errorf("persist selected companion: %w", err)
		}
	}

	conv, err := s.openLocked(c)
	if err != nil {
		return nil, false, err
	}
	return conv, true, nil
}

// Select persists the choice and opens a chat with that companion, replacing
// any active one. Switching to a different companion drops the engine session.
func (s *Selector) Select(_ context.Context, id string) (*chat.Conversation, error) {
	c, ok := s.companions.FindByID(id)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCompanion, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	previous, err := s.currentLocked()
	if err != nil {
		return nil, err
	}
	if s.active != nil {
		s.active.Close()
		s.active = nil
	}
	if previous != c.ID {
		if err := s.store.Remove(storage.KeySessionID); err != nil {
			return nil, fmt.Errorf("clear session: %w", err)
		}
	}

	if err := s.store.Set(storage.KeyCompanion, c.ID); err != nil {
		return nil, fmt.Errorf("persist selected companion: %w", err)
	}
	s.logger.Info("companion selected", zap.String("companion", c.ID))
	return s.openLocked(c)
}

// ChangeCompanion leaves the chat and forgets both the choice and the engine
// session.
func (s *Selector) ChangeCompanion(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.active != nil {
		s.active.Close()
		s.active = nil
	}

	errCompanion := s.store.Remove(storage.KeyCompanion)
	errSession := s.store.Remove(storage.KeySessionID)
	if err := errors.Join(errCompanion, errSession); err != nil {
		return fmt.Errorf("clear selection: %w", err)
	}
	s.logger.Info("companion cleared")
	return nil
}

// Close releases the active conversation without touching storage.
func (s *Selector) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active != nil {
		s.active.Close()
		s.active = nil
	}
}

// currentLocked returns the companion the held session belongs to: the active
// one, else the persisted choice.
func (s *Selector) currentLocked() (string, error) {
	if s.active != nil {
		return s.active.Companion().ID, nil
	}
	id, ok, err := s.store.Get(storage.KeyCompanion)
	if err != nil {
		return "", fmt.Errorf("load selected companion: %w", err)
	}
	if !ok {
		return "", nil
	}
	return id, nil
}

func (s *Selector) openLocked(c companion.Companion) (*chat.Conversation, error) {
	if s.active != nil {
		s.active.Close()
		s.active = nil
	}

	conv, err := chat.New(chat.Options{
		Companion: c,
		Backend:   s.backend,
		Storage:   s.store,
		Slug:      s.slug,
		Logger:    s.logger,
	})
	if err != nil {
		return nil, err
	}
	s.active = conv
	return conv, nil
}
