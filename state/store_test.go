package state

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"storefront/catalog"
	"storefront/clients"
	"storefront/mockbackend"
	"storefront/models"
	"storefront/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	goleak.VerifyTestMain(m,
		// httptest servers and the HTTP client keep idle connections around.
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
	)
}

func priced(id string, price int64) models.Product {
	return models.Product{ProductID: id, Name: "Product " + id, Price: decimal.NewFromInt(price), Images: []string{id + ".jpg"}}
}

type fixture struct {
	store   *Store
	backend *fakeBackend
	storage *storage.MemoryStore
}

func newFixture(t *testing.T, reconcile bool) *fixture {
	t.Helper()
	backend := newFakeBackend()
	mem := storage.NewMemoryStore()
	store := New(Options{Backend: backend, Storage: mem, ReconcileOnFailure: reconcile})
	t.Cleanup(store.Close)
	return &fixture{store: store, backend: backend, storage: mem}
}

func (f *fixture) login(t *testing.T, id string) {
	t.Helper()
	require.NoError(t, f.store.Restore(context.Background()))
	_, err := f.store.Login(context.Background(), models.UserRecord{ID: id, UserName: "ana"})
	require.NoError(t, err)
	f.store.Flush()
}

func TestSetQuantityZeroRemovesEntryAndProduct(t *testing.T) {
	f := newFixture(t, false)
	s := f.store

	require.NoError(t, s.AddToCart("p1", "M"))
	require.NoError(t, s.AddToCart("p1", "L"))

	require.NoError(t, s.SetQuantity("p1", "M", 0))
	_, ok := s.Cart().Quantity("p1", "M")
	assert.False(t, ok)
	assert.Contains(t, s.Cart(), "p1")

	require.NoError(t, s.SetQuantity("p1", "L", -3))
	assert.NotContains(t, s.Cart(), "p1")
	assert.Empty(t, s.Cart())
}

func TestTotalCountMatchesSumOfQuantities(t *testing.T) {
	f := newFixture(t, false)
	s := f.store

	adds := []struct{ product, size string }{
		{"p1", "M"}, {"p1", "M"}, {"p2", "S"}, {"p1", "XL"}, {"p3", ""}, {"p2", "S"},
	}
	for _, a := range adds {
		require.NoError(t, s.AddToCart(a.product, a.size))
	}

	sum := 0
	for _, sizes := range s.Cart() {
		for _, qty := range sizes {
			sum += qty
		}
	}
	assert.Equal(t, len(adds), s.TotalCount())
	assert.Equal(t, sum, s.TotalCount())

	qty, ok := s.Cart().Quantity("p3", DefaultSize)
	assert.True(t, ok)
	assert.Equal(t, 1, qty)
}

func TestAddToCartRequiresProduct(t *testing.T) {
	f := newFixture(t, false)
	assert.ErrorIs(t, f.store.AddToCart("", "M"), ErrInvalidItem)
	assert.ErrorIs(t, f.store.SetQuantity("", "M", 1), ErrInvalidItem)
}

func TestTotalValueSkipsUnknownProducts(t *testing.T) {
	f := newFixture(t, false)
	f.backend.products = []models.Product{priced("p1", 100)}
	s := f.store
	require.NoError(t, s.LoadProducts(context.Background()))

	require.NoError(t, s.AddToCart("p1", "M"))
	require.NoError(t, s.AddToCart("p1", "M"))
	require.NoError(t, s.AddToCart("ghost", "M"))

	assert.True(t, s.TotalValue().Equal(decimal.NewFromInt(200)), "got %s", s.TotalValue())
	assert.Equal(t, 3, s.TotalCount())

	lines := s.CartLines()
	require.Len(t, lines, 1)
	assert.Equal(t, "p1.jpg", lines[0].Image)
	assert.Equal(t, 2, lines[0].Quantity)
}

func TestCopyOnWriteSnapshots(t *testing.T) {
	f := newFixture(t, false)
	s := f.store

	require.NoError(t, s.AddToCart("p1", "M"))
	before := s.Snapshot()
	require.NoError(t, s.AddToCart("p1", "M"))
	after := s.Snapshot()

	qty, _ := before.Cart.Quantity("p1", "M")
	assert.Equal(t, 1, qty)
	qty, _ = after.Cart.Quantity("p1", "M")
	assert.Equal(t, 2, qty)
	assert.Greater(t, after.Version, before.Version)
}

func TestSubscribe(t *testing.T) {
	f := newFixture(t, false)
	s := f.store

	var (
		mu    sync.Mutex
		seen  []int
		lastV uint64
	)
	unsubscribe := s.Subscribe(func(snap Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		assert.GreaterOrEqual(t, snap.Version, lastV)
		lastV = snap.Version
		seen = append(seen, snap.Cart.Count())
	})

	require.NoError(t, s.AddToCart("p1", "M"))
	require.NoError(t, s.AddToCart("p1", "M"))
	unsubscribe()
	require.NoError(t, s.AddToCart("p1", "M"))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2}, seen)
}

func TestRestore_NoPersistedSession(t *testing.T) {
	f := newFixture(t, false)
	require.NoError(t, f.store.Restore(context.Background()))

	select {
	case <-f.store.Ready():
	default:
		t.Fatal("Ready should be closed")
	}
	assert.True(t, f.store.InitialCheckComplete())
	assert.False(t, f.store.IsAuthenticated())
	assert.Empty(t, f.backend.Calls())
}

func persist(t *testing.T, mem *storage.MemoryStore, sess models.Session) {
	t.Helper()
	data, err := json.Marshal(sess)
	require.NoError(t, err)
	require.NoError(t, mem.Set(context.Background(), SessionKey, string(data)))
}

func TestRestore_ValidSessionLoadsCart(t *testing.T) {
	f := newFixture(t, false)
	persist(t, f.storage, models.Session{ID: "u1", UserName: "ana"})
	f.backend.carts["u1"] = models.CartItems{"p1": {"M": 2}}

	require.NoError(t, f.store.Restore(context.Background()))
	assert.True(t, f.store.IsAuthenticated(), "restored session is trusted before verification")

	select {
	case <-f.store.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("session check did not complete")
	}
	f.store.Flush()

	assert.Equal(t, []string{"VerifyUser u1", "GetCart u1"}, f.backend.Calls())
	assert.Equal(t, models.CartItems{"p1": {"M": 2}}, f.store.Cart())
	sess, ok := f.store.Session()
	require.True(t, ok)
	assert.Equal(t, "ana", sess.UserName)
}

func TestRestore_RejectedSessionLogsOut(t *testing.T) {
	for name, verifyErr := range map[string]error{
		"rejected":      &clients.APIError{StatusCode: 401},
		"network error": errBackendDown,
	} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t, false)
			persist(t, f.storage, models.Session{ID: "u1"})
			f.backend.verifyErr = verifyErr

			require.NoError(t, f.store.Restore(context.Background()))
			<-f.store.Ready()
			f.store.Flush()

			assert.False(t, f.store.IsAuthenticated())
			assert.True(t, f.store.InitialCheckComplete())
			_, ok, err := f.storage.Get(context.Background(), SessionKey)
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Equal(t, []string{"VerifyUser u1"}, f.backend.Calls())
		})
	}
}

func TestRestore_MalformedRecordIsDiscarded(t *testing.T) {
	f := newFixture(t, false)
	require.NoError(t, f.storage.Set(context.Background(), SessionKey, "{not json"))

	require.NoError(t, f.store.Restore(context.Background()))
	assert.False(t, f.store.IsAuthenticated())
	assert.True(t, f.store.InitialCheckComplete())
	_, ok, _ := f.storage.Get(context.Background(), SessionKey)
	assert.False(t, ok)
}

func TestLoginPersistsAndLogoutClears(t *testing.T) {
	f := newFixture(t, false)
	require.NoError(t, f.store.Restore(context.Background()))

	sess, err := f.store.Login(context.Background(), models.UserRecord{UserID: "u1", UserName: "ana", Email: "ana@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "u1", sess.ID)

	raw, ok, err := f.storage.Get(context.Background(), SessionKey)
	require.NoError(t, err)
	require.True(t, ok)
	var stored models.Session
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	if diff := cmp.Diff(sess, stored); diff != "" {
		t.Errorf("persisted session mismatch (-want +got):\n%s", diff)
	}

	f.store.Flush()
	require.NoError(t, f.store.AddToCart("p1", "M"))
	f.store.Flush()

	f.store.Logout(context.Background())
	assert.False(t, f.store.IsAuthenticated())
	assert.Empty(t, f.store.Cart())
	_, ok, _ = f.storage.Get(context.Background(), SessionKey)
	assert.False(t, ok)
}

func TestLoginRequiresID(t *testing.T) {
	f := newFixture(t, false)
	_, err := f.store.Login(context.Background(), models.UserRecord{UserName: "nobody"})
	assert.ErrorIs(t, err, ErrMissingUserID)
	assert.False(t, f.store.IsAuthenticated())
}

func TestCartMirrorsInOrder(t *testing.T) {
	f := newFixture(t, false)
	f.login(t, "u1")
	s := f.store

	require.NoError(t, s.AddToCart("p1", "M"))
	require.NoError(t, s.AddToCart("p1", "M"))
	require.NoError(t, s.SetQuantity("p1", "M", 5))
	require.NoError(t, s.SetQuantity("p1", "M", 0))
	require.NoError(t, s.SetQuantity("p9", "M", 3))
	s.Flush()

	assert.Equal(t, []string{
		"GetCart u1",
		"AddCartItem u1 p1 M 1",
		"AddCartItem u1 p1 M 2",
		"UpdateCartItem u1 p1 M 5",
		"RemoveCartItem u1 p1 M",
	}, f.backend.Calls())
}

func TestAnonymousCartStaysLocal(t *testing.T) {
	f := newFixture(t, false)
	require.NoError(t, f.store.AddToCart("p1", "M"))
	require.NoError(t, f.store.SetQuantity("p1", "M", 4))
	f.store.Flush()

	assert.Empty(t, f.backend.Calls())
	qty, _ := f.store.Cart().Quantity("p1", "M")
	assert.Equal(t, 4, qty)
}

func TestMirrorFailureKeepsOptimisticState(t *testing.T) {
	f := newFixture(t, false)
	f.login(t, "u1")
	f.backend.mutateErr = errBackendDown

	require.NoError(t, f.store.AddToCart("p1", "M"))
	f.store.Flush()

	qty, ok := f.store.Cart().Quantity("p1", "M")
	assert.True(t, ok)
	assert.Equal(t, 1, qty)
	assert.Equal(t, MsgCartUpdateFailed, f.store.CartError())

	f.store.DismissCartError()
	assert.Empty(t, f.store.CartError())
}

func TestMirrorFailureReconciles(t *testing.T) {
	f := newFixture(t, true)
	f.backend.carts["u1"] = models.CartItems{"p2": {"S": 1}}
	f.login(t, "u1")
	f.backend.mutateErr = errBackendDown

	require.NoError(t, f.store.AddToCart("p1", "M"))
	f.store.Flush()

	assert.Equal(t, models.CartItems{"p2": {"S": 1}}, f.store.Cart())
	assert.Equal(t, MsgCartUpdateFailed, f.store.CartError())
	assert.Equal(t, []string{"GetCart u1", "AddCartItem u1 p1 M 1", "GetCart u1"}, f.backend.Calls())
}

func TestLoadCartFailure(t *testing.T) {
	f := newFixture(t, false)
	f.login(t, "u1")
	require.NoError(t, f.store.AddToCart("p1", "M"))
	f.store.Flush()

	f.backend.cartErr = errBackendDown
	err := f.store.LoadCart(context.Background())
	require.Error(t, err)
	assert.Equal(t, MsgCartLoadFailed, f.store.CartError())
	assert.Equal(t, 1, f.store.TotalCount())
	assert.False(t, f.store.Snapshot().CartLoading)
}

func TestLoadCartWithoutSessionIsNoop(t *testing.T) {
	f := newFixture(t, false)
	require.NoError(t, f.store.LoadCart(context.Background()))
	assert.Empty(t, f.backend.Calls())
}

func TestLateCartResponseIsDiscarded(t *testing.T) {
	f := newFixture(t, false)
	f.login(t, "u1")
	f.backend.carts["u1"] = models.CartItems{"p1": {"M": 9}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, f.store.loadCart(ctx, "u1", true))
	assert.Empty(t, f.store.Cart())
}

func TestLogoutSkipsPendingMirrors(t *testing.T) {
	f := newFixture(t, false)
	f.backend.productsGate = make(chan struct{})
	f.login(t, "u1")

	// Park the queue behind a product load so the mirror is still queued at logout.
	f.store.enqueue("block", func(ctx context.Context) { _ = f.store.LoadProducts(ctx) })
	require.NoError(t, f.store.AddToCart("p1", "M"))
	f.store.Logout(context.Background())
	close(f.backend.productsGate)
	f.store.Flush()

	assert.NotContains(t, f.backend.Calls(), "AddCartItem u1 p1 M 1")
	assert.Empty(t, f.store.Cart())
}

func TestLoadProducts(t *testing.T) {
	f := newFixture(t, false)
	f.backend.products = []models.Product{priced("p1", 10), priced("p2", 20)}
	ctx := context.Background()

	require.NoError(t, f.store.EnsureProducts(ctx))
	require.NoError(t, f.store.EnsureProducts(ctx))
	assert.Equal(t, []string{"ListProducts"}, f.backend.Calls())
	assert.Len(t, f.store.Products(), 2)

	p, ok := f.store.Product("p2")
	require.True(t, ok)
	assert.True(t, p.Price.Equal(decimal.NewFromInt(20)))

	f.backend.productsErr = errBackendDown
	require.Error(t, f.store.LoadProducts(ctx))
	assert.Len(t, f.store.Products(), 2, "previous list is kept on failure")
	assert.False(t, f.store.ProductsLoading())
}

func TestLoadProductsSharesInFlightRequest(t *testing.T) {
	f := newFixture(t, false)
	f.backend.products = []models.Product{priced("p1", 10)}
	f.backend.productsGate = make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, f.store.LoadProducts(context.Background()))
		}()
	}
	require.Eventually(t, f.store.ProductsLoading, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(f.backend.productsGate)
	wg.Wait()

	calls := 0
	for _, c := range f.backend.Calls() {
		if c == "ListProducts" {
			calls++
		}
	}
	assert.GreaterOrEqual(t, calls, 1)
	assert.Less(t, calls, 5)
	assert.Len(t, f.store.Products(), 1)
}

func TestLoadProductsSurvivesCanceledCaller(t *testing.T) {
	f := newFixture(t, false)
	f.backend.products = []models.Product{priced("p1", 10)}
	f.backend.productsGate = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() { first <- f.store.LoadProducts(ctx) }()
	require.Eventually(t, f.store.ProductsLoading, time.Second, 5*time.Millisecond)

	second := make(chan error, 1)
	go func() { second <- f.store.LoadProducts(context.Background()) }()

	cancel()
	assert.ErrorIs(t, <-first, context.Canceled)

	close(f.backend.productsGate)
	require.NoError(t, <-second)
	assert.Len(t, f.store.Products(), 1)
	assert.False(t, f.store.ProductsLoading())
}

func TestCollectionSearchFollowsVisibility(t *testing.T) {
	f := newFixture(t, false)
	f.backend.products = []models.Product{
		{ProductID: "p1", Name: "Nurse Scrubs", Category: "Medicine"},
		{ProductID: "p2", Name: "Chef Jacket", Category: "Hospitality"},
	}
	require.NoError(t, f.store.LoadProducts(context.Background()))
	s := f.store

	s.SetSearch("chef")
	assert.Equal(t, 2, s.CollectionPage().TotalItems, "hidden search bar does not filter")

	s.SetShowSearch(true)
	page := s.CollectionPage()
	require.Equal(t, 1, page.TotalItems)
	assert.Equal(t, "p2", page.Items[0].ProductID)

	s.SetShowSearch(false)
	s.SetCollectionFilter([]string{"Medicine"}, nil)
	page = s.CollectionPage()
	require.Equal(t, 1, page.TotalItems)
	assert.Equal(t, "p1", page.Items[0].ProductID)
	assert.Equal(t, []string{"Medicine"}, s.CollectionFilter().Categories)
	assert.Equal(t, "", s.CollectionFilter().Search)
}

func TestCollectionPaging(t *testing.T) {
	f := newFixture(t, false)
	f.backend.products = mockbackend.SeedProducts(30)
	require.NoError(t, f.store.LoadProducts(context.Background()))
	s := f.store

	s.NextPage()
	s.NextPage()
	assert.Equal(t, 3, s.CollectionPage().Number)
	s.PrevPage()
	s.SetSort(catalog.SortLowHigh)
	assert.Equal(t, 2, s.CollectionPage().Number)
	assert.Equal(t, catalog.SortLowHigh, s.CollectionSort())

	s.SetCollectionFilter(nil, []string{"Topwear"})
	assert.Equal(t, 1, s.CollectionPage().Number)

	s.GoToPage(99)
	assert.Equal(t, s.CollectionPage().TotalPages, s.CollectionPage().Number)
}

func TestRelated(t *testing.T) {
	f := newFixture(t, false)
	f.backend.products = []models.Product{
		{ProductID: "p1", Category: "Medicine", SubCategory: "Topwear"},
		{ProductID: "p2", Category: "Medicine", SubCategory: "Topwear"},
		{ProductID: "p3", Category: "Medicine", SubCategory: "Bottomwear"},
	}
	require.NoError(t, f.store.LoadProducts(context.Background()))

	related := f.store.Related("p1")
	require.Len(t, related, 1)
	assert.Equal(t, "p2", related[0].ProductID)
	assert.Empty(t, f.store.Related("missing"))
}

func TestStoreAgainstDevelopmentBackend(t *testing.T) {
	backend := mockbackend.NewBackend(mockbackend.SeedProducts(3), mockbackend.SeedUsers(), nil)
	server := httptest.NewServer(mockbackend.NewRouter(backend))
	defer server.Close()

	client := clients.NewBackendClient(server.URL, 5*time.Second)
	store := New(Options{Backend: client, Storage: storage.NewMemoryStore()})
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Restore(ctx))
	require.NoError(t, store.LoadProducts(ctx))
	_, err := store.Login(ctx, mockbackend.SeedUsers()[0])
	require.NoError(t, err)
	store.Flush()

	require.NoError(t, store.AddToCart("p1", "M"))
	require.NoError(t, store.AddToCart("p1", "M"))
	require.NoError(t, store.AddToCart("p2", "L"))
	require.NoError(t, store.SetQuantity("p2", "L", 0))
	store.Flush()

	assert.Equal(t, models.CartItems{"p1": {"M": 2}}, backend.Cart("u1"))
	assert.Empty(t, store.CartError())
}
