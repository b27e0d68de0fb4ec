package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"catalog-chat/internal/domain"
	"catalog-chat/internal/repository"
	"catalog-chat/internal/server"
	"catalog-chat/internal/validation"
	catalog_errors "catalog-chat/pkg/errors"

	"go.uber.org/zap"
)

// Fanout is the slice of the connection hub the sync protocol needs.
type Fanout interface {
	EmitTo(client *server.Client, event string, payload any) error
	Broadcast(event string, payload any) int
}

// EventLimiter caps inbound events per user. Optional.
type EventLimiter interface {
	Allow(ctx context.Context, user, event string) (bool, error)
}

// SyncService validates, persists and fans out the two append streams:
// products (full list rebroadcast) and chat messages (delta broadcast).
type SyncService struct {
	products repository.ProductRepository
	messages repository.MessageRepository
	hub      Fanout
	limiter  EventLimiter
	logger   *zap.Logger
}

func NewSyncService(products repository.ProductRepository, messages repository.MessageRepository, hub Fanout, logger *zap.Logger) *SyncService {
	if logger == nil {
		logger = zap.L()
	}
	return &SyncService{
		products: products,
		messages: messages,
		hub:      hub,
		logger:   logger.With(zap.String("component", "sync")),
	}
}

func (s *SyncService) WithLimiter(l EventLimiter) *SyncService {
	s.limiter = l
	return s
}

// Serve handles one connection's events in arrival order until the stream
// closes or ctx is cancelled. A started event always runs to completion.
func (s *SyncService) Serve(ctx context.Context, client *server.Client, events <-chan server.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			s.Handle(ctx, client, ev)
		}
	}
}

// Handle dispatches one event. Panics are contained to the event.
func (s *SyncService) Handle(ctx context.Context, client *server.Client, ev server.Event) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("event handler panicked",
				zap.String("event", ev.Kind.String()),
				zap.String("client_id", client.ID()),
				zap.Any("panic", r),
			)
		}
	}()

	switch ev.Kind {
	case server.KindProductAdded:
		_ = s.HandleProductAdded(ctx, client, ev.Payload)
	case server.KindMessageSent:
		_ = s.HandleMessageSent(ctx, client, ev.Payload)
	default:
		s.logger.Warn("unhandled event kind", zap.Int("kind", int(ev.Kind)), zap.String("client_id", client.ID()))
	}
}

// HandleProductAdded returns the error that was reported to the originator, if any.
func (s *SyncService) HandleProductAdded(ctx context.Context, client *server.Client, raw json.RawMessage) error {
	if err := s.allow(ctx, client, server.EventProductAdded); err != nil {
		s.reject(client, server.EventRateLimitReached, err)
		return err
	}

	var candidate domain.ProductInput
	if err := decodeStrict(raw, &candidate); err != nil {
		err = validation.DecodeError(err)
		s.reject(client, server.EventProductInvalid, err)
		return err
	}
	if err := validation.ValidateProduct(candidate); err != nil {
		s.reject(client, server.EventProductInvalid, err)
		return err
	}
	candidate.CreatedBy = client.Identity().Label()

	id, err := s.products.Append(ctx, candidate)
	if err != nil {
		s.logger.Error("product append failed", zap.String("client_id", client.ID()), zap.Error(err))
		s.reject(client, server.EventProductInvalid, err)
		return err
	}

	// The row is committed; if the read-back fails the next successful add
	// carries it in its refresh.
	products, err := s.products.ReadAll(ctx)
	if err != nil {
		s.logger.Error("product read-back failed", zap.Uint64("product_id", uint64(id)), zap.Error(err))
		return err
	}

	n := s.hub.Broadcast(server.EventProductsRefresh, products)
	s.logger.Info("product added",
		zap.Uint64("product_id", uint64(id)),
		zap.Int("catalog_size", len(products)),
		zap.Int("recipients", n),
	)
	return nil
}

// HandleMessageSent returns the error that was reported to the originator, if any.
func (s *SyncService) HandleMessageSent(ctx context.Context, client *server.Client, raw json.RawMessage) error {
	if err := s.allow(ctx, client, server.EventMessageSent); err != nil {
		s.reject(client, server.EventRateLimitReached, err)
		return err
	}

	var msg domain.ChatMessage
	if err := decodeStrict(raw, &msg); err != nil {
		err = validation.DecodeError(err)
		s.reject(client, server.EventMessageInvalid, err)
		return err
	}
	if label := client.Identity().Label(); label != "" {
		msg.Author = label
	}
	if err := validation.ValidateMessage(msg); err != nil {
		s.reject(client, server.EventMessageInvalid, err)
		return err
	}

	if err := s.messages.Append(ctx, msg); err != nil {
		s.logger.Error("message append failed", zap.String("client_id", client.ID()), zap.Error(err))
		s.reject(client, server.EventMessageInvalid, err)
		return err
	}

	s.hub.Broadcast(server.EventChatRefresh, msg)
	return nil
}

func (s *SyncService) allow(ctx context.Context, client *server.Client, event string) error {
	if s.limiter == nil {
		return nil
	}
	ok, err := s.limiter.Allow(ctx, client.Identity().UserID, event)
	if err != nil {
		// fail open
		s.logger.Warn("rate limiter unavailable", zap.Error(err))
		return nil
	}
	if !ok {
		return fmt.Errorf("%w: too many %s events", catalog_errors.ErrRateLimited, event)
	}
	return nil
}

// reject sends the failure to the originating connection only.
func (s *SyncService) reject(client *server.Client, event string, err error) {
	payload := server.ErrorPayload{Error: reason(err), Code: catalog_errors.Code(err)}
	_ = s.hub.EmitTo(client, event, payload)
}

// reason keeps storage details out of client-visible messages.
func reason(err error) string {
	switch catalog_errors.Code(err) {
	case catalog_errors.CodeStorageUnavailable:
		return "storage unavailable, try again later"
	case catalog_errors.CodePersistence:
		return "could not be saved"
	default:
		return err.Error()
	}
}

func decodeStrict(raw json.RawMessage, v any) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return fmt.Errorf("empty payload")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
