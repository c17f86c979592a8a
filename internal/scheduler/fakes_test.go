package scheduler

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/hray3182/remindbot/internal/models"
)

type key struct {
	owner int64
	due   int64
}

type memStore struct {
	mu        sync.Mutex
	items     map[key]*models.Reminder
	scanErr   error
	markErrs  map[int64]error // by owner
	markCalls int
	onMark    func(owner int64)
}

func newMemStore() *memStore {
	return &memStore{items: map[key]*models.Reminder{}, markErrs: map[int64]error{}}
}

func (m *memStore) Create(_ context.Context, owner int64, due time.Time, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	due = models.NormalizeDueTime(due)
	m.items[key{owner, due.UnixMicro()}] = &models.Reminder{OwnerID: owner, DueTime: due, Text: text}
	return nil
}

func (m *memStore) ScanDue(_ context.Context, now time.Time) ([]*models.Reminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.scanErr != nil {
		return nil, m.scanErr
	}
	var out []*models.Reminder
	for _, r := range m.items {
		if r.IsDue(now) {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueTime.Before(out[j].DueTime) })
	return out, nil
}

func (m *memStore) MarkSent(_ context.Context, owner int64, due time.Time) error {
	if m.onMark != nil {
		m.onMark(owner)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markCalls++
	if err := m.markErrs[owner]; err != nil {
		return err
	}
	if r, ok := m.items[key{owner, models.NormalizeDueTime(due).UnixMicro()}]; ok {
		r.Sent = true
	}
	return nil
}

func (m *memStore) sent(owner int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, r := range m.items {
		if k.owner == owner {
			return r.Sent
		}
	}
	return false
}

type call struct {
	owner int64
	text  string
}

type fakeNotifier struct {
	mu     sync.Mutex
	calls  []call
	failOn map[int64]bool
	// panicOn makes Send panic for the given owners.
	panicOn map[int64]bool
	// onSend runs before the call is recorded; used to observe concurrency.
	onSend func()
}

func (f *fakeNotifier) Send(_ context.Context, owner int64, text string) error {
	if f.onSend != nil {
		f.onSend()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{owner, text})
	if f.panicOn[owner] {
		panic("notifier exploded")
	}
	if f.failOn[owner] {
		return errors.New("telegram: chat not found")
	}
	return nil
}

func (f *fakeNotifier) callsFor(owner int64) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.owner == owner {
			n++
		}
	}
	return n
}

func (f *fakeNotifier) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
