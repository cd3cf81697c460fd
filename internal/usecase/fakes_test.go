package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/DRSN-tech/checkout-backend/internal/domain"
	"github.com/DRSN-tech/checkout-backend/pkg/e"
	"github.com/shopspring/decimal"
)

// memStore - хранилище в памяти. Транзакции сериализуются через txMu,
// при ошибке состояние откатывается к снимку.
type memStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	products map[int64]domain.Product
	carts    map[int64]domain.Cart
	lines    map[int64]map[int64]int
	orders   map[int64]domain.Order
	outbox   []*OutboxEvent
	nextID   int64

	// failOutbox заставляет запись в outbox вернуть ошибку
	failOutbox error
	// conflicts - сколько раз подряд LockActive вернёт конфликт сериализации
	conflicts int
}

func newMemStore() *memStore {
	return &memStore{
		products: make(map[int64]domain.Product),
		carts:    make(map[int64]domain.Cart),
		lines:    make(map[int64]map[int64]int),
		orders:   make(map[int64]domain.Order),
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) addProduct(name string, price string, stock int) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.id()
	s.products[id] = domain.Product{ID: id, Name: name, Price: decimal.RequireFromString(price), Stock: stock}
	return id
}

func (s *memStore) stock(id int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].Stock
}

func (s *memStore) activeCarts(userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.carts {
		if c.UserID == userID && c.IsActive() {
			n++
		}
	}
	return n
}

type snapshot struct {
	products map[int64]domain.Product
	carts    map[int64]domain.Cart
	lines    map[int64]map[int64]int
	orders   map[int64]domain.Order
	outbox   []*OutboxEvent
}

func (s *memStore) snapshot() snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := snapshot{
		products: make(map[int64]domain.Product, len(s.products)),
		carts:    make(map[int64]domain.Cart, len(s.carts)),
		lines:    make(map[int64]map[int64]int, len(s.lines)),
		orders:   make(map[int64]domain.Order, len(s.orders)),
		outbox:   append([]*OutboxEvent(nil), s.outbox...),
	}
	for k, v := range s.products {
		snap.products[k] = v
	}
	for k, v := range s.carts {
		snap.carts[k] = v
	}
	for k, v := range s.lines {
		m := make(map[int64]int, len(v))
		for pk, q := range v {
			m[pk] = q
		}
		snap.lines[k] = m
	}
	for k, v := range s.orders {
		snap.orders[k] = v
	}
	return snap
}

func (s *memStore) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products, s.carts, s.lines, s.orders, s.outbox = snap.products, snap.carts, snap.lines, snap.orders, snap.outbox
}

type txKey struct{}

type memTxManager struct{ s *memStore }

func (m memTxManager) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}
	m.s.txMu.Lock()
	defer m.s.txMu.Unlock()

	snap := m.s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		m.s.restore(snap)
		return err
	}
	return nil
}

type memProductRepo struct{ s *memStore }

func (r memProductRepo) Create(_ context.Context, p *domain.Product) (*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	created := *p
	created.ID = r.s.id()
	created.CreatedAt = time.Now()
	r.s.products[created.ID] = created
	return &created, nil
}

func (r memProductRepo) GetByID(_ context.Context, id int64) (*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, e.ErrProductNotFound
	}
	return &p, nil
}

func (r memProductRepo) GetByIDs(_ context.Context, ids []int64) ([]domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var res []domain.Product
	for _, id := range ids {
		if p, ok := r.s.products[id]; ok {
			res = append(res, p)
		}
	}
	return res, nil
}

func (r memProductRepo) List(_ context.Context) ([]domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	res := make([]domain.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		res = append(res, p)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res, nil
}

func (r memProductRepo) UpdatePrice(_ context.Context, id int64, price decimal.Decimal) (*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, e.ErrProductNotFound
	}
	p.Price = price
	r.s.products[id] = p
	return &p, nil
}

func (r memProductRepo) LockForCheckout(ctx context.Context, ids []int64) ([]domain.Product, error) {
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return r.GetByIDs(ctx, sorted)
}

func (r memProductRepo) DecrementStockIfAvailable(_ context.Context, id int64, qty int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.products[id]
	if !ok || p.Stock < qty {
		return e.ErrInsufficientStock
	}
	p.Stock -= qty
	r.s.products[id] = p
	return nil
}

type memCartRepo struct{ s *memStore }

func (r memCartRepo) active(userID int64) (domain.Cart, bool) {
	for _, c := range r.s.carts {
		if c.UserID == userID && c.IsActive() {
			return c, true
		}
	}
	return domain.Cart{}, false
}

func (r memCartRepo) linesOf(cartID int64) []domain.CartLine {
	res := make([]domain.CartLine, 0, len(r.s.lines[cartID]))
	for pid, q := range r.s.lines[cartID] {
		res = append(res, domain.CartLine{CartID: cartID, ProductID: pid, Quantity: q})
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ProductID < res[j].ProductID })
	return res
}

func (r memCartRepo) GetOrCreateActive(_ context.Context, userID int64) (*domain.Cart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c, ok := r.active(userID); ok {
		return &c, nil
	}
	c := domain.Cart{ID: r.s.id(), UserID: userID, Status: domain.CartStatusActive, CreatedAt: time.Now()}
	r.s.carts[c.ID] = c
	return &c, nil
}

func (r memCartRepo) GetActive(_ context.Context, userID int64) (*domain.Cart, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.active(userID)
	if !ok {
		return nil, e.ErrCartNotFound
	}
	c.Lines = r.linesOf(c.ID)
	return &c, nil
}

func (r memCartRepo) LockActive(ctx context.Context, userID int64) (*domain.Cart, error) {
	r.s.mu.Lock()
	if r.s.conflicts > 0 {
		r.s.conflicts--
		r.s.mu.Unlock()
		return nil, e.ErrSerialization
	}
	r.s.mu.Unlock()
	return r.GetActive(ctx, userID)
}

func (r memCartRepo) AddLine(_ context.Context, cartID, productID int64, quantity int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.lines[cartID] == nil {
		r.s.lines[cartID] = make(map[int64]int)
	}
	if r.s.lines[cartID][productID]+quantity > domain.MaxLineQuantity {
		return e.ErrQuantityTooLarge
	}
	r.s.lines[cartID][productID] += quantity
	return nil
}

func (r memCartRepo) Lines(_ context.Context, cartID int64) ([]domain.CartLine, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.linesOf(cartID), nil
}

func (r memCartRepo) MarkCheckedOut(_ context.Context, cartID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.carts[cartID]
	if !ok || !c.IsActive() {
		return e.ErrCartEmpty
	}
	c.Status = domain.CartStatusCheckedOut
	r.s.carts[cartID] = c
	return nil
}

type memOrderRepo struct{ s *memStore }

func (r memOrderRepo) Create(_ context.Context, o *domain.Order) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	created := *o
	created.ID = r.s.id()
	created.CreatedAt = time.Now().UTC()
	created.Lines = make([]domain.OrderLine, len(o.Lines))
	for i, l := range o.Lines {
		l.OrderID = created.ID
		created.Lines[i] = l
	}
	r.s.orders[created.ID] = created
	return &created, nil
}

func (r memOrderRepo) GetByID(_ context.Context, id int64) (*domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, e.ErrOrderNotFound
	}
	return &o, nil
}

func (r memOrderRepo) ListByUser(_ context.Context, userID int64) ([]domain.Order, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var res []domain.Order
	for _, o := range r.s.orders {
		if o.UserID == userID {
			res = append(res, o)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID > res[j].ID })
	return res, nil
}

type memOutboxRepo struct{ s *memStore }

func (r memOutboxRepo) Create(_ context.Context, ev *OutboxEvent) (*OutboxEvent, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.failOutbox != nil {
		return nil, r.s.failOutbox
	}
	created := *ev
	created.ID = r.s.id()
	r.s.outbox = append(r.s.outbox, &created)
	return &created, nil
}

func (r memOutboxRepo) GetAndMarkAsProcessing(context.Context, int) ([]*OutboxEvent, error) {
	return nil, errors.New("not implemented")
}

func (r memOutboxRepo) MarkAsProcessed(context.Context, int64) error { return nil }

func (r memOutboxRepo) Release(context.Context, int64, string) error { return nil }

func (r memOutboxRepo) MarkAsFailed(context.Context, int64, string) error { return nil }

// memCache - кэш товаров в памяти
type memCache struct {
	mu      sync.Mutex
	items   map[int64]ProductInfo
	deleted []int64
	err     error

	// setGate, если задан, задерживает SetProducts до закрытия; filled получает сигнал после записи
	setGate chan struct{}
	filled  chan struct{}
}

func newMemCache() *memCache {
	return &memCache{items: make(map[int64]ProductInfo)}
}

func (c *memCache) GetProducts(_ context.Context, ids []int64) (map[int64]ProductInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	res := make(map[int64]ProductInfo)
	for _, id := range ids {
		if p, ok := c.items[id]; ok {
			res[id] = p
		}
	}
	return res, nil
}

func (c *memCache) SetProducts(_ context.Context, products []ProductInfo) error {
	if c.setGate != nil {
		<-c.setGate
	}
	c.mu.Lock()
	for _, p := range products {
		c.items[p.ID] = p
	}
	c.mu.Unlock()
	if c.filled != nil {
		c.filled <- struct{}{}
	}
	return nil
}

func (c *memCache) DeleteProducts(_ context.Context, ids []int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range ids {
		delete(c.items, id)
	}
	c.deleted = append(c.deleted, ids...)
	return nil
}

type memReceipts struct {
	mu      sync.Mutex
	objects map[string]bool
	err     error
}

func newMemReceipts() *memReceipts {
	return &memReceipts{objects: make(map[string]bool)}
}

func (m *memReceipts) Upload(_ context.Context, key string, _ []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = true
	return nil
}

func (m *memReceipts) PresignedURL(_ context.Context, key string) (string, error) {
	return "http://minio.local/receipts/" + key + "?sig=test", nil
}

func (m *memReceipts) Exists(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	return m.objects[key], nil
}

type countingMetrics struct {
	mu      sync.Mutex
	results map[string]int
	retries int
	added   int
}

func newCountingMetrics() *countingMetrics {
	return &countingMetrics{results: make(map[string]int)}
}

func (m *countingMetrics) CheckoutFinished(result string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results[result]++
}

func (m *countingMetrics) CheckoutRetried() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retries++
}

func (m *countingMetrics) CartItemAdded(q int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.added += q
}
