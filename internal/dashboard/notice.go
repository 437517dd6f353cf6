package dashboard

import "sync"

// NoticeQueue collects notices until the host shows them.
type NoticeQueue struct {
	mu    sync.Mutex
	items []Notice
}

// Notify implements Notifier.
func (q *NoticeQueue) Notify(n Notice) {
	q.mu.Lock()
	q.items = append(q.items, n)
	q.mu.Unlock()
}

// Drain returns and clears the queued notices.
func (q *NoticeQueue) Drain() []Notice {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}
