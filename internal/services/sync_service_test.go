package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"catalog-chat/config"
	"catalog-chat/internal/domain"
	"catalog-chat/internal/repository"
	"catalog-chat/internal/server"
	"catalog-chat/pkg/database"
	catalog_errors "catalog-chat/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeProducts struct {
	mu        sync.Mutex
	items     []domain.Product
	appendErr error
	readErr   error
	appends   int
}

func (f *fakeProducts) EnsureSchema(context.Context) error { return nil }

func (f *fakeProducts) Append(_ context.Context, in domain.ProductInput) (domain.ProductID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appends++
	if f.appendErr != nil {
		return 0, f.appendErr
	}
	p := in.ToProduct()
	p.ID = domain.ProductID(len(f.items) + 1)
	f.items = append(f.items, p)
	return p.ID, nil
}

func (f *fakeProducts) ReadAll(context.Context) ([]domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return nil, f.readErr
	}
	return append([]domain.Product{}, f.items...), nil
}

type fakeMessages struct {
	mu        sync.Mutex
	items     []domain.ChatMessage
	appendErr error
}

func (f *fakeMessages) EnsureSchema(context.Context) error { return nil }

func (f *fakeMessages) Append(_ context.Context, m domain.ChatMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return f.appendErr
	}
	f.items = append(f.items, m)
	return nil
}

func (f *fakeMessages) ReadAll(context.Context) ([]domain.ChatMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.ChatMessage{}, f.items...), nil
}

type stubLimiter struct {
	allow bool
	err   error
}

func (s stubLimiter) Allow(context.Context, string, string) (bool, error) {
	return s.allow, s.err
}

type fixture struct {
	hub     *server.Hub
	svc     *SyncService
	clients []*server.Client
}

func newFixture(t *testing.T, products repository.ProductRepository, messages repository.MessageRepository, n int) *fixture {
	t.Helper()
	log := zaptest.NewLogger(t)
	hub := server.NewHub(server.NewWebSocketLogger(log))
	f := &fixture{hub: hub, svc: NewSyncService(products, messages, hub, log)}
	for i := 0; i < n; i++ {
		c := server.NewClient(hub, nil, domain.Identity{UserID: fmt.Sprintf("anon-%d", i), Anonymous: true}, nil)
		hub.OnConnect(c)
		f.clients = append(f.clients, c)
	}
	return f
}

func sqliteStores(t *testing.T) (*repository.GormProductRepository, *repository.GormMessageRepository) {
	t.Helper()
	db, err := database.Open(config.DriverSQLite, ":memory:", "test")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })

	products := repository.NewProductRepository(db)
	messages := repository.NewMessageRepository(db)
	require.NoError(t, products.EnsureSchema(context.Background()))
	require.NoError(t, messages.EnsureSchema(context.Background()))
	return products, messages
}

func nextFrame(t *testing.T, c *server.Client) server.Frame {
	t.Helper()
	select {
	case raw, ok := <-c.Outbound():
		require.True(t, ok, "outbound closed")
		f, err := server.DecodeFrame(raw)
		require.NoError(t, err)
		return f
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for frame")
	}
	return server.Frame{}
}

func noFrame(t *testing.T, c *server.Client) {
	t.Helper()
	select {
	case raw := <-c.Outbound():
		t.Fatalf("unexpected frame: %s", raw)
	default:
	}
}

func errorPayload(t *testing.T, f server.Frame) server.ErrorPayload {
	t.Helper()
	var p server.ErrorPayload
	require.NoError(t, json.Unmarshal(f.Data, &p))
	return p
}

func TestProductAddedBroadcastsFullList(t *testing.T) {
	products, messages := sqliteStores(t)
	f := newFixture(t, products, messages, 3)

	err := f.svc.HandleProductAdded(context.Background(), f.clients[0], json.RawMessage(`{"name":"Lamp","price":10,"stock":5}`))
	require.NoError(t, err)

	stored, err := products.ReadAll(context.Background())
	require.NoError(t, err)
	want, err := json.Marshal(stored)
	require.NoError(t, err)

	for _, c := range f.clients {
		frame := nextFrame(t, c)
		assert.Equal(t, server.EventProductsRefresh, frame.Event)
		assert.JSONEq(t, `[{"id":1,"name":"Lamp","price":10,"stock":5}]`, string(frame.Data))
		assert.JSONEq(t, string(want), string(frame.Data))
	}
}

func TestProductAddedKeepsInsertionOrder(t *testing.T) {
	products, messages := sqliteStores(t)
	f := newFixture(t, products, messages, 2)
	ctx := context.Background()

	require.NoError(t, f.svc.HandleProductAdded(ctx, f.clients[0], json.RawMessage(`{"name":"P1","price":1,"stock":1}`)))
	require.NoError(t, f.svc.HandleProductAdded(ctx, f.clients[1], json.RawMessage(`{"name":"P2","price":2,"stock":2}`)))

	nextFrame(t, f.clients[0])
	frame := nextFrame(t, f.clients[0])
	var list []domain.Product
	require.NoError(t, json.Unmarshal(frame.Data, &list))
	require.Len(t, list, 2)
	assert.Equal(t, "P1", list[0].Name)
	assert.Equal(t, "P2", list[1].Name)
	assert.Less(t, list[0].ID, list[1].ID)
}

func TestProductAddedRecordsCreator(t *testing.T) {
	products, messages := sqliteStores(t)
	log := zaptest.NewLogger(t)
	hub := server.NewHub(server.NewWebSocketLogger(log))
	svc := NewSyncService(products, messages, hub, log)
	c := server.NewClient(hub, nil, domain.Identity{UserID: "u-1", Email: "a@x.com"}, nil)
	hub.OnConnect(c)

	require.NoError(t, svc.HandleProductAdded(context.Background(), c, json.RawMessage(`{"name":"Lamp","price":10,"stock":5}`)))
	frame := nextFrame(t, c)
	assert.JSONEq(t, `[{"id":1,"name":"Lamp","price":10,"stock":5,"createdBy":"a@x.com"}]`, string(frame.Data))
}

func TestInvalidProductIsRejectedToOriginatorOnly(t *testing.T) {
	candidates := []string{
		`{"name":"","price":10,"stock":5}`,
		`{"name":"Lamp","price":0,"stock":5}`,
		`{"name":"Lamp","price":10,"stock":-1}`,
		`{"name":"Lamp","price":"ten","stock":5}`,
		`{"name":"Lamp","price":10,"stock":1.5}`,
		`{"name":"Lamp","price":10,"stock":5,"id":99}`,
		`null`,
		``,
	}
	for _, raw := range candidates {
		t.Run(raw, func(t *testing.T) {
			products := &fakeProducts{}
			f := newFixture(t, products, &fakeMessages{}, 2)

			err := f.svc.HandleProductAdded(context.Background(), f.clients[0], json.RawMessage(raw))
			require.Error(t, err)
			assert.ErrorIs(t, err, catalog_errors.ErrInvalidInput)
			assert.Equal(t, 0, products.appends, "no store mutation")

			frame := nextFrame(t, f.clients[0])
			assert.Equal(t, server.EventProductInvalid, frame.Event)
			p := errorPayload(t, frame)
			assert.NotEmpty(t, p.Error)
			assert.Equal(t, catalog_errors.CodeValidation, p.Code)

			noFrame(t, f.clients[0])
			noFrame(t, f.clients[1])
		})
	}
}

func TestProductPersistenceFailureIsDistinguished(t *testing.T) {
	products := &fakeProducts{appendErr: fmt.Errorf("append product: %w: connection refused", catalog_errors.ErrStorageUnavailable)}
	f := newFixture(t, products, &fakeMessages{}, 2)

	err := f.svc.HandleProductAdded(context.Background(), f.clients[0], json.RawMessage(`{"name":"Lamp","price":10,"stock":5}`))
	assert.ErrorIs(t, err, catalog_errors.ErrStorageUnavailable)

	frame := nextFrame(t, f.clients[0])
	assert.Equal(t, server.EventProductInvalid, frame.Event)
	p := errorPayload(t, frame)
	assert.Equal(t, catalog_errors.CodeStorageUnavailable, p.Code)
	assert.NotContains(t, p.Error, "connection refused")
	noFrame(t, f.clients[1])

	products.appendErr = fmt.Errorf("append product: %w: disk full", catalog_errors.ErrPersistence)
	_ = f.svc.HandleProductAdded(context.Background(), f.clients[0], json.RawMessage(`{"name":"Lamp","price":10,"stock":5}`))
	assert.Equal(t, catalog_errors.CodePersistence, errorPayload(t, nextFrame(t, f.clients[0])).Code)
}

func TestProductReadBackFailureSkipsBroadcast(t *testing.T) {
	products := &fakeProducts{readErr: catalog_errors.ErrPersistence}
	f := newFixture(t, products, &fakeMessages{}, 2)

	err := f.svc.HandleProductAdded(context.Background(), f.clients[0], json.RawMessage(`{"name":"Lamp","price":10,"stock":5}`))
	assert.ErrorIs(t, err, catalog_errors.ErrPersistence)
	assert.Equal(t, 1, products.appends)
	noFrame(t, f.clients[0])
	noFrame(t, f.clients[1])
}

func TestMessageSentBroadcastsDelta(t *testing.T) {
	products, messages := sqliteStores(t)
	f := newFixture(t, products, messages, 3)

	err := f.svc.HandleMessageSent(context.Background(), f.clients[1], json.RawMessage(`{"author":"a@x.com","text":"hi"}`))
	require.NoError(t, err)

	for _, c := range f.clients {
		frame := nextFrame(t, c)
		assert.Equal(t, server.EventChatRefresh, frame.Event)
		assert.JSONEq(t, `{"author":"a@x.com","text":"hi"}`, string(frame.Data))
		noFrame(t, c)
	}

	stored, err := messages.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "a@x.com", stored[0].Author)
	assert.Equal(t, "hi", stored[0].Text)
}

func TestMessageAuthorComesFromIdentity(t *testing.T) {
	messages := &fakeMessages{}
	log := zaptest.NewLogger(t)
	hub := server.NewHub(server.NewWebSocketLogger(log))
	svc := NewSyncService(&fakeProducts{}, messages, hub, log)
	c := server.NewClient(hub, nil, domain.Identity{UserID: "u-1", Email: "real@x.com"}, nil)
	hub.OnConnect(c)

	require.NoError(t, svc.HandleMessageSent(context.Background(), c, json.RawMessage(`{"author":"spoof@x.com","text":"hi"}`)))
	frame := nextFrame(t, c)
	assert.JSONEq(t, `{"author":"real@x.com","text":"hi"}`, string(frame.Data))

	require.NoError(t, svc.HandleMessageSent(context.Background(), c, json.RawMessage(`{"text":"no author field"}`)))
	assert.Equal(t, "real@x.com", messages.items[1].Author)
}

func TestInvalidMessageIsRejected(t *testing.T) {
	messages := &fakeMessages{}
	f := newFixture(t, &fakeProducts{}, messages, 2)

	err := f.svc.HandleMessageSent(context.Background(), f.clients[0], json.RawMessage(`{"author":"a@x.com","text":"   "}`))
	assert.ErrorIs(t, err, catalog_errors.ErrInvalidInput)
	assert.Empty(t, messages.items)

	frame := nextFrame(t, f.clients[0])
	assert.Equal(t, server.EventMessageInvalid, frame.Event)
	assert.Equal(t, catalog_errors.CodeValidation, errorPayload(t, frame).Code)
	noFrame(t, f.clients[1])
}

func TestMessagePersistenceFailureIsReported(t *testing.T) {
	messages := &fakeMessages{appendErr: fmt.Errorf("append message: %w: locked", catalog_errors.ErrPersistence)}
	f := newFixture(t, &fakeProducts{}, messages, 2)

	err := f.svc.HandleMessageSent(context.Background(), f.clients[0], json.RawMessage(`{"author":"a@x.com","text":"hi"}`))
	assert.ErrorIs(t, err, catalog_errors.ErrPersistence)

	frame := nextFrame(t, f.clients[0])
	assert.Equal(t, server.EventMessageInvalid, frame.Event)
	assert.Equal(t, catalog_errors.CodePersistence, errorPayload(t, frame).Code)
	noFrame(t, f.clients[1])
}

func TestRateLimitedEventIsNotPersisted(t *testing.T) {
	products := &fakeProducts{}
	f := newFixture(t, products, &fakeMessages{}, 1)
	f.svc.WithLimiter(stubLimiter{allow: false})

	err := f.svc.HandleProductAdded(context.Background(), f.clients[0], json.RawMessage(`{"name":"Lamp","price":10,"stock":5}`))
	assert.ErrorIs(t, err, catalog_errors.ErrRateLimited)
	assert.Equal(t, 0, products.appends)

	frame := nextFrame(t, f.clients[0])
	assert.Equal(t, server.EventRateLimitReached, frame.Event)
	assert.Equal(t, catalog_errors.CodeRateLimited, errorPayload(t, frame).Code)
}

func TestLimiterErrorFailsOpen(t *testing.T) {
	products := &fakeProducts{}
	f := newFixture(t, products, &fakeMessages{}, 1)
	f.svc.WithLimiter(stubLimiter{err: errors.New("redis down")})

	require.NoError(t, f.svc.HandleProductAdded(context.Background(), f.clients[0], json.RawMessage(`{"name":"Lamp","price":10,"stock":5}`)))
	assert.Equal(t, server.EventProductsRefresh, nextFrame(t, f.clients[0]).Event)
}

func TestBroadcastSurvivesDisconnectedTarget(t *testing.T) {
	products, messages := sqliteStores(t)
	f := newFixture(t, products, messages, 2)
	f.hub.OnDisconnect(f.clients[1])

	assert.NotPanics(t, func() {
		err := f.svc.HandleProductAdded(context.Background(), f.clients[0], json.RawMessage(`{"name":"Lamp","price":10,"stock":5}`))
		assert.NoError(t, err)
	})
	assert.Equal(t, server.EventProductsRefresh, nextFrame(t, f.clients[0]).Event)
}

func TestRejectToClosedOriginatorIsSilent(t *testing.T) {
	f := newFixture(t, &fakeProducts{}, &fakeMessages{}, 1)
	f.hub.OnDisconnect(f.clients[0])

	assert.NotPanics(t, func() {
		err := f.svc.HandleProductAdded(context.Background(), f.clients[0], json.RawMessage(`{}`))
		assert.ErrorIs(t, err, catalog_errors.ErrInvalidInput)
	})
}

func TestServeProcessesInArrivalOrder(t *testing.T) {
	products, messages := sqliteStores(t)
	f := newFixture(t, products, messages, 1)
	events := make(chan server.Event, 4)
	events <- server.Event{Kind: server.KindProductAdded, Payload: json.RawMessage(`{"name":"first","price":1,"stock":1}`)}
	events <- server.Event{Kind: server.KindMessageSent, Payload: json.RawMessage(`{"author":"a@x.com","text":"hi"}`)}
	events <- server.Event{Kind: server.KindProductAdded, Payload: json.RawMessage(`{"name":"second","price":1,"stock":1}`)}
	events <- server.Event{Kind: server.EventKind(42)}
	close(events)

	done := make(chan struct{})
	go func() {
		f.svc.Serve(context.Background(), f.clients[0], events)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after the stream closed")
	}

	c := f.clients[0]
	first := nextFrame(t, c)
	assert.Equal(t, server.EventProductsRefresh, first.Event)
	assert.JSONEq(t, `[{"id":1,"name":"first","price":1,"stock":1}]`, string(first.Data))
	assert.Equal(t, server.EventChatRefresh, nextFrame(t, c).Event)
	third := nextFrame(t, c)
	assert.Equal(t, server.EventProductsRefresh, third.Event)
	var list []domain.Product
	require.NoError(t, json.Unmarshal(third.Data, &list))
	assert.Len(t, list, 2)
	noFrame(t, c)
}

func TestServeStopsOnCancel(t *testing.T) {
	f := newFixture(t, &fakeProducts{}, &fakeMessages{}, 1)
	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan server.Event)

	done := make(chan struct{})
	go func() {
		f.svc.Serve(ctx, f.clients[0], events)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Serve ignored cancellation")
	}
}
