package dashboardhttp

import (
	"net/http"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/odyssey-erp/management-dashboard/internal/dashboard"
	"github.com/odyssey-erp/management-dashboard/internal/shared"
)

const defaultPageTTL = 30 * time.Minute

// ClientFactory returns the summary client a session's page loads through.
type ClientFactory func(r *http.Request, sess *shared.Session) dashboard.SummaryClient

// PageFactory builds a page around a client and its notice queue.
type PageFactory func(client dashboard.SummaryClient, notifier dashboard.Notifier) *dashboard.Page

type pageEntry struct {
	page    *dashboard.Page
	notices *dashboard.NoticeQueue
	user    string
}

// PageStore keeps one dashboard page per session until it sits idle for ttl.
type PageStore struct {
	mu        sync.Mutex
	items     *gocache.Cache
	newPage   PageFactory
	newClient ClientFactory
}

// NewPageStore constructs a PageStore. A non-positive ttl uses 30 minutes.
func NewPageStore(ttl time.Duration, newPage PageFactory, newClient ClientFactory) *PageStore {
	if ttl <= 0 {
		ttl = defaultPageTTL
	}
	return &PageStore{
		items:     gocache.New(ttl, 2*ttl),
		newPage:   newPage,
		newClient: newClient,
	}
}

// acquire returns the session's page and whether it was created by this call.
// A page built for another user is replaced.
func (s *PageStore) acquire(r *http.Request, sess *shared.Session) (*pageEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cached, ok := s.items.Get(sess.ID); ok {
		entry := cached.(*pageEntry)
		if entry.user == sess.User() {
			s.items.SetDefault(sess.ID, entry)
			return entry, false
		}
	}

	var client dashboard.SummaryClient
	if s.newClient != nil {
		client = s.newClient(r, sess)
	}
	notices := &dashboard.NoticeQueue{}
	entry := &pageEntry{page: s.newPage(client, notices), notices: notices, user: sess.User()}
	s.items.SetDefault(sess.ID, entry)
	return entry, true
}

// Len reports how many pages are live.
func (s *PageStore) Len() int {
	return s.items.ItemCount()
}
