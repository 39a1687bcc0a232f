package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/communitybridge/pkg/config"
	"github.com/platinummonkey/communitybridge/pkg/observability"
	"github.com/platinummonkey/communitybridge/pkg/storage"
)

type fakeDirectory struct {
	mu       sync.Mutex
	players  []Player
	messages map[string]string
	kicks    map[string]string
	failFor  string
}

func newFakeDirectory(players ...Player) *fakeDirectory {
	return &fakeDirectory{
		players:  players,
		messages: make(map[string]string),
		kicks:    make(map[string]string),
	}
}

func (d *fakeDirectory) OnlinePlayers(context.Context) []Player {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]Player(nil), d.players...)
}

func (d *fakeDirectory) Message(_ context.Context, player Player, message string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if player.Name == d.failFor {
		return errors.New("player left")
	}
	d.messages[player.Name] = message
	return nil
}

func (d *fakeDirectory) Kick(_ context.Context, player Player, message string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if player.Name == d.failFor {
		return errors.New("player left")
	}
	d.kicks[player.Name] = message
	return nil
}

func TestReminder_MessagesUnregistered(t *testing.T) {
	svc := New(testConfig(), openForum(t), storage.SQLite)
	dir := newFakeDirectory(notch, jeb, guest)
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	cfg := config.ReminderConfig{Message: "please register"}

	r := NewReminder(func() *Service { return svc }, dir, cfg, metrics, nil)
	result := r.Run(context.Background())

	assert.Equal(t, ReminderResult{Checked: 3, Messaged: 1}, result)
	assert.Equal(t, map[string]string{"Guest": "please register"}, dir.messages)
	assert.Empty(t, dir.kicks)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.RemindersTotal.WithLabelValues("messaged")))
}

func TestReminder_KicksUnregistered(t *testing.T) {
	svc := New(testConfig(), openForum(t), storage.SQLite)
	stranger := Player{UUID: "00000000-0000-0000-0000-000000000002", Name: "Stranger"}
	dir := newFakeDirectory(notch, guest, stranger)
	dir.failFor = "Stranger"
	cfg := config.ReminderConfig{KickUnregistered: true, KickMessage: "register first"}

	r := NewReminder(func() *Service { return svc }, dir, cfg, nil, nil)
	result := r.Run(context.Background())

	assert.Equal(t, ReminderResult{Checked: 3, Kicked: 1, Failed: 1}, result)
	assert.Equal(t, map[string]string{"Guest": "register first"}, dir.kicks)
}

func TestReminder_NoService(t *testing.T) {
	r := NewReminder(func() *Service { return nil }, newFakeDirectory(guest), config.ReminderConfig{}, nil, nil)
	assert.Equal(t, ReminderResult{}, r.Run(context.Background()))
}

func TestReminder_StartStop(t *testing.T) {
	svc := New(testConfig(), openForum(t), storage.SQLite)
	dir := newFakeDirectory(guest)

	disabled := NewReminder(func() *Service { return svc }, dir, config.ReminderConfig{}, nil, nil)
	require.NoError(t, disabled.Start())
	require.NoError(t, disabled.Stop(context.Background()))

	bad := NewReminder(func() *Service { return svc }, dir, config.ReminderConfig{Enabled: true, Schedule: "whenever"}, nil, nil)
	assert.Error(t, bad.Start())

	r := NewReminder(func() *Service { return svc }, dir, config.ReminderConfig{Enabled: true, Schedule: "@every 1h"}, nil, nil)
	require.NoError(t, r.Start())
	assert.Error(t, r.Start(), "second start is rejected")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, r.Stop(ctx))
	assert.NoError(t, r.Stop(ctx))
}
