package notifier

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swaad_backend/internal/events"
	"swaad_backend/internal/models"
	"swaad_backend/internal/realtime"
	"swaad_backend/internal/repositories"
)

type fakePushSender struct {
	mu       sync.Mutex
	sent     []PushMessage
	failWith map[string]error
}

func (f *fakePushSender) Send(_ context.Context, msg PushMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	if err, ok := f.failWith[msg.Token]; ok {
		return err
	}
	return nil
}

func (f *fakePushSender) sentTokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	tokens := make([]string, 0, len(f.sent))
	for _, m := range f.sent {
		tokens = append(tokens, m.Token)
	}
	return tokens
}

type fakeRestaurantRepo struct {
	mu      sync.Mutex
	tokens  []string
	deleted []string
}

func (f *fakeRestaurantRepo) GetByUID(string) (*models.Restaurant, error)   { return nil, nil }
func (f *fakeRestaurantRepo) GetByEmail(string) (*models.Restaurant, error) { return nil, nil }
func (f *fakeRestaurantRepo) SetOnline(repositories.SQLExecutor, string, bool) error {
	return nil
}

func (f *fakeRestaurantRepo) ListDeviceTokens(string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.tokens...), nil
}

func (f *fakeRestaurantRepo) DeleteDeviceToken(token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, token)
	return nil
}

func (f *fakeRestaurantRepo) deletedTokens() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...)
}

func TestPaymentConfirmedPushesToAllDevices(t *testing.T) {
	push := &fakePushSender{}
	repo := &fakeRestaurantRepo{tokens: []string{"tok-a", "tok-b"}}
	n := NewNotifier(events.NewBus(8), realtime.NewHub(), push, repo)

	n.handle(context.Background(), events.NewEvent(events.Event{
		Type:          events.TypePaymentConfirmed,
		OrderID:       42,
		RestaurantUID: "rest-1",
		CustomerUID:   "cust-1",
		Status:        models.StatusPending,
		TotalAmount:   529,
	}))

	assert.ElementsMatch(t, []string{"tok-a", "tok-b"}, push.sentTokens())
	assert.Empty(t, repo.deletedTokens())
}

func TestInvalidTokenIsPruned(t *testing.T) {
	push := &fakePushSender{failWith: map[string]error{"tok-dead": ErrInvalidToken}}
	repo := &fakeRestaurantRepo{tokens: []string{"tok-dead", "tok-live"}}
	n := NewNotifier(events.NewBus(8), realtime.NewHub(), push, repo)

	n.handle(context.Background(), events.NewEvent(events.Event{
		Type:          events.TypePaymentConfirmed,
		OrderID:       7,
		RestaurantUID: "rest-1",
		CustomerUID:   "cust-1",
		Status:        models.StatusPending,
		TotalAmount:   156,
	}))

	assert.Equal(t, []string{"tok-dead"}, repo.deletedTokens())
}

func TestStatusChangeSkipsPush(t *testing.T) {
	push := &fakePushSender{}
	repo := &fakeRestaurantRepo{tokens: []string{"tok-a"}}
	n := NewNotifier(events.NewBus(8), realtime.NewHub(), push, repo)

	n.handle(context.Background(), events.NewEvent(events.Event{
		Type:          events.TypeOrderStatusChanged,
		OrderID:       9,
		RestaurantUID: "rest-1",
		CustomerUID:   "cust-1",
		Status:        models.StatusPreparing,
	}))

	assert.Empty(t, push.sentTokens())
}

func TestRunDrainsBusUntilCancelled(t *testing.T) {
	bus := events.NewBus(8)
	push := &fakePushSender{}
	repo := &fakeRestaurantRepo{tokens: []string{"tok-a"}}
	n := NewNotifier(bus, realtime.NewHub(), push, repo)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		n.Run(ctx)
		close(done)
	}()

	bus.Publish(events.NewEvent(events.Event{
		Type:          events.TypePaymentConfirmed,
		OrderID:       1,
		RestaurantUID: "rest-1",
		CustomerUID:   "cust-1",
	}))

	require.Eventually(t, func() bool {
		return len(push.sentTokens()) == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after context cancel")
	}
}
