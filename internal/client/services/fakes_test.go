package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mpetrovs/tabchat/internal/client/models"
	"github.com/mpetrovs/tabchat/internal/common"
	"github.com/mpetrovs/tabchat/internal/logging"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// fakeStore is an in-memory stand-in for the remote document store. Error
// injection fields make a single method fail a fixed number of times
// (negative means always).
type fakeStore struct {
	mu sync.Mutex

	users map[string]*models.User
	convs map[string]*models.Conversation
	msgs  map[string][]*models.Message

	nextMsgID int
	serverNow time.Time

	appendErr   error
	appendFails int
	incErr      error
	incFails    int
	// appendHang makes AppendMessage block until the caller's context
	// expires, simulating a stalled RPC.
	appendHang bool
	// addFriendErr fails AddFriend calls targeting the given user document.
	addFriendErr map[string]error

	watchConvErr error

	convStream chan *models.Conversation
	msgStream  chan []*models.Message
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:        make(map[string]*models.User),
		convs:        make(map[string]*models.Conversation),
		msgs:         make(map[string][]*models.Message),
		serverNow:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		addFriendErr: make(map[string]error),
	}
}

func (f *fakeStore) consume(fails *int, err error) error {
	if *fails == 0 {
		return nil
	}
	if *fails > 0 {
		*fails--
	}
	return err
}

func (f *fakeStore) Close() error                 { return nil }
func (f *fakeStore) Ping(_ context.Context) error { return nil }

func (f *fakeStore) GetUser(_ context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	cp.Friends = append([]string(nil), u.Friends...)
	return &cp, nil
}

func (f *fakeStore) CreateUser(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeStore) UpdateUserFields(_ context.Context, id string, fields map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		u = &models.User{ID: id}
		f.users[id] = u
	}
	for k, v := range fields {
		s, _ := v.(string)
		switch k {
		case "name":
			u.Name = s
		case "profileImage":
			u.ProfileImageURL = s
		case "pushToken":
			u.PushToken = s
		}
	}
	return nil
}

func (f *fakeStore) AddFriend(_ context.Context, userID, friendID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.addFriendErr[userID]; err != nil {
		return err
	}
	u, ok := f.users[userID]
	if !ok {
		u = &models.User{ID: userID}
		f.users[userID] = u
	}
	for _, id := range u.Friends {
		if id == friendID {
			return nil
		}
	}
	u.Friends = append(u.Friends, friendID)
	return nil
}

func (f *fakeStore) ListUsers(_ context.Context, excludeID string) ([]*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.User
	for id, u := range f.users {
		if id == excludeID {
			continue
		}
		cp := *u
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeStore) GetConversation(_ context.Context, id string) (*models.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return copyConversation(c), nil
}

func (f *fakeStore) CreateConversation(_ context.Context, c *models.Conversation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.convs[c.ID]; ok {
		return nil
	}
	f.convs[c.ID] = copyConversation(c)
	return nil
}

func (f *fakeStore) IncrementBalance(_ context.Context, conversationID, userID string, delta decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.consume(&f.incFails, f.incErr); err != nil {
		return err
	}
	c, ok := f.convs[conversationID]
	if !ok {
		return common.ErrorNotFound
	}
	c.Balances[userID] = c.Balances[userID].Add(delta)
	return nil
}

func (f *fakeStore) SetConversationPreview(_ context.Context, conversationID, preview string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.convs[conversationID]
	if !ok {
		return common.ErrorNotFound
	}
	c.LastMessage = preview
	c.LastMessageTime = f.serverNow
	return nil
}

func (f *fakeStore) AppendMessage(ctx context.Context, conversationID string, m *models.Message) (string, error) {
	if f.appendHang {
		<-ctx.Done()
		return "", ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.consume(&f.appendFails, f.appendErr); err != nil {
		return "", err
	}
	f.nextMsgID++
	cp := *m
	cp.ID = fmt.Sprintf("remote-%d", f.nextMsgID)
	if cp.Timestamp.IsZero() {
		cp.Timestamp = f.serverNow
	}
	cp.Status = models.StatusConfirmed
	f.msgs[conversationID] = append(f.msgs[conversationID], &cp)
	return cp.ID, nil
}

func (f *fakeStore) WatchConversation(_ context.Context, id string) (<-chan *models.Conversation, error) {
	if f.watchConvErr != nil {
		return nil, f.watchConvErr
	}
	if f.convStream != nil {
		return f.convStream, nil
	}
	ch := make(chan *models.Conversation)
	close(ch)
	return ch, nil
}

func (f *fakeStore) WatchMessages(_ context.Context, conversationID string) (<-chan []*models.Message, error) {
	if f.msgStream != nil {
		return f.msgStream, nil
	}
	ch := make(chan []*models.Message)
	close(ch)
	return ch, nil
}

func (f *fakeStore) messages(conversationID string) []*models.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*models.Message(nil), f.msgs[conversationID]...)
}

func copyConversation(c *models.Conversation) *models.Conversation {
	cp := *c
	cp.Balances = make(map[string]decimal.Decimal, len(c.Balances))
	for k, v := range c.Balances {
		cp.Balances[k] = v
	}
	return &cp
}

// fakeQueue is an in-memory pendingops.Repository preserving FIFO order.
type fakeQueue struct {
	mu     sync.Mutex
	nextID int64
	ops    []*models.PendingOperation

	enqueueErr error
}

func newFakeQueue() *fakeQueue { return &fakeQueue{} }

func (q *fakeQueue) Enqueue(_ context.Context, op *models.PendingOperation) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.enqueueErr != nil {
		return q.enqueueErr
	}
	q.nextID++
	op.ID = q.nextID
	q.ops = append(q.ops, op)
	return nil
}

func (q *fakeQueue) TakeReady(_ context.Context, now time.Time) ([]*models.PendingOperation, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var ready, waiting []*models.PendingOperation
	for _, op := range q.ops {
		if op.NextAttemptAt.After(now) {
			waiting = append(waiting, op)
			continue
		}
		ready = append(ready, op)
	}
	q.ops = waiting
	return ready, nil
}

func (q *fakeQueue) Requeue(_ context.Context, op *models.PendingOperation, nextAttempt time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.nextID++
	op.ID = q.nextID
	op.Attempts++
	op.NextAttemptAt = nextAttempt
	q.ops = append(q.ops, op)
	return nil
}

func (q *fakeQueue) Count(_ context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops), nil
}

func (q *fakeQueue) snapshot() []*models.PendingOperation {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*models.PendingOperation(nil), q.ops...)
}

// fakeConn is a settable Connectivity.
type fakeConn struct{ online bool }

func (c *fakeConn) Online() bool { return c.online }

// fakeDispatcher records push dispatches on a channel so tests can wait for
// the detached notify goroutine.
type pushCall struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

type fakeDispatcher struct {
	calls chan pushCall
	err   error
}

func newFakeDispatcher() *fakeDispatcher {
	return &fakeDispatcher{calls: make(chan pushCall, 4)}
}

func (d *fakeDispatcher) Notify(_ context.Context, token, title, body string, data map[string]string) error {
	d.calls <- pushCall{Token: token, Title: title, Body: body, Data: data}
	return d.err
}
