// Package state is the storefront's application-state container: the
// signed-in session, the cart, the product cache and the collection view.
//
// A Store has a single owner (the process) and is passed explicitly to every
// view. Local changes are applied synchronously and published to listeners
// before the matching backend call is issued; backend mirrors run on a
// background queue tied to the Store's lifetime.
package state

import (
	"context"
	"errors"
	"sync"

	"storefront/catalog"
	"storefront/clients"
	"storefront/models"
	"storefront/storage"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	// SessionKey is the durable storage key of the persisted session.
	SessionKey = "user"
	// DefaultSize is used when an item is added without a size.
	DefaultSize = "M"

	MsgCartLoadFailed   = "Failed to load cart. Please try again."
	MsgCartUpdateFailed = "Failed to update cart. Please try again."
)

var (
	ErrInvalidItem   = errors.New("product id is required")
	ErrMissingUserID = errors.New("user record has no id")
)

type Options struct {
	Backend clients.Backend
	Storage storage.Store
	Logger  *zap.Logger
	// ReconcileOnFailure reloads the cart from the backend after a failed
	// cart mirror, replacing the optimistic local state.
	ReconcileOnFailure bool
}

// Snapshot is an immutable view of the Store. Maps and slices it holds are
// never mutated after publication.
type Snapshot struct {
	Version              uint64
	Session              *models.Session
	Authenticated        bool
	InitialCheckComplete bool
	Cart                 models.CartItems
	CartLoading          bool
	CartError            string
	Products             []models.Product
	ProductsLoading      bool
	Search               string
	ShowSearch           bool
}

type Store struct {
	backend   clients.Backend
	storage   storage.Store
	logger    *zap.Logger
	reconcile bool

	ctx    context.Context
	cancel context.CancelFunc
	queue  *taskQueue
	loads  singleflight.Group

	mu              sync.RWMutex
	version         uint64
	session         *models.Session
	authenticated   bool
	checkComplete   bool
	ready           chan struct{}
	readyOnce       sync.Once
	cart            models.CartItems
	cartLoading     bool
	cartError       string
	products        []models.Product
	productIndex    map[string]models.Product
	productsLoading bool
	productsLoaded  bool
	search          string
	showSearch      bool
	browser         *catalog.Browser

	notifyMu  sync.Mutex
	listeners map[int]func(Snapshot)
	nextID    int
}

func New(opts Options) *Store {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Store{
		backend:      opts.Backend,
		storage:      opts.Storage,
		logger:       logger,
		reconcile:    opts.ReconcileOnFailure,
		ctx:          ctx,
		cancel:       cancel,
		queue:        newTaskQueue(),
		ready:        make(chan struct{}),
		cart:         models.CartItems{},
		productIndex: map[string]models.Product{},
		browser:      catalog.NewBrowser(),
		listeners:    make(map[int]func(Snapshot)),
	}
	go s.queue.run(ctx)
	return s
}

// Close stops the background queue. Queued backend mirrors are discarded.
func (s *Store) Close() {
	s.cancel()
	<-s.queue.done
}

// Flush blocks until every queued background task has finished.
func (s *Store) Flush() {
	s.queue.wait()
}

// Subscribe registers fn to receive a Snapshot after every change and
// returns a function that removes it. Listeners run serially in change
// order and must not call Store mutators synchronously.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.notifyMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.notifyMu.Unlock()

	return func() {
		s.notifyMu.Lock()
		delete(s.listeners, id)
		s.notifyMu.Unlock()
	}
}

func (s *Store) notify() {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if len(s.listeners) == 0 {
		return
	}
	snap := s.Snapshot()
	for _, fn := range s.listeners {
		fn(snap)
	}
}

// update applies fn under the write lock, bumps the version and notifies
// listeners.
func (s *Store) update(fn func()) {
	s.mu.Lock()
	fn()
	s.version++
	s.mu.Unlock()
	s.notify()
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{
		Version:              s.version,
		Authenticated:        s.authenticated,
		InitialCheckComplete: s.checkComplete,
		Cart:                 s.cart,
		CartLoading:          s.cartLoading,
		CartError:            s.cartError,
		Products:             s.products,
		ProductsLoading:      s.productsLoading,
		Search:               s.search,
		ShowSearch:           s.showSearch,
	}
	if s.session != nil {
		sess := *s.session
		snap.Session = &sess
	}
	return snap
}

// enqueue schedules task on the background queue.
func (s *Store) enqueue(name string, task func(context.Context)) {
	if !s.queue.push(task) {
		s.logger.Debug("Store closed, dropping background task", zap.String("task", name))
	}
}
