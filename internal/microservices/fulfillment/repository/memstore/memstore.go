// Package memstore is an in-process Store used by tests and local runs
// without PostgreSQL. Transactions work on a copy of the state that replaces
// the committed state only when the callback succeeds; one transaction runs
// at a time.
//
// Because transactions are fully serialized, memstore never produces the
// races the Postgres store guards against (the conditional table UPDATE,
// serialization failures on the ledger). Concurrency tests over memstore
// check outcomes, not the race protection; that is covered by the sqlmock
// tests of the repository package.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"restaurant-fulfillment/internal/domain"
	"restaurant-fulfillment/internal/microservices/fulfillment/repository"
)

// Fault points accepted by FailOn.
const (
	OpTableOccupy     = "tables.occupy"
	OpLedgerInsert    = "ledger.insert"
	OpOrderInsert     = "orders.insert"
	OpKitchenInsert   = "kitchen.insert"
	OpCustomerRecord  = "customers.record"
	OpStatusLogAppend = "orders.status_log"
)

type state struct {
	tables    map[uuid.UUID]domain.Table
	orders    map[uuid.UUID]domain.Order
	kitchen   map[uuid.UUID]domain.KitchenWorkItem // by order id
	ledger    []domain.LedgerEntry
	customers map[uuid.UUID]domain.Customer
	statusLog []domain.StatusLogEntry
}

func newState() *state {
	return &state{
		tables:    map[uuid.UUID]domain.Table{},
		orders:    map[uuid.UUID]domain.Order{},
		kitchen:   map[uuid.UUID]domain.KitchenWorkItem{},
		customers: map[uuid.UUID]domain.Customer{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.tables {
		c.tables[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.kitchen {
		c.kitchen[k] = v
	}
	for k, v := range s.customers {
		c.customers[k] = v
	}
	c.ledger = append([]domain.LedgerEntry(nil), s.ledger...)
	c.statusLog = append([]domain.StatusLogEntry(nil), s.statusLog...)
	return c
}

type Store struct {
	mu        sync.Mutex
	state     *state
	faults    map[string]error
	conflicts int
}

func New() *Store {
	return &Store{state: newState(), faults: map[string]error{}}
}

// FailOn makes every call at op return err until cleared with a nil err.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

// ConflictNext makes the next n transactions fail with a persistence conflict.
func (s *Store) ConflictNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conflicts = n
}

// AddTable seeds a table and returns it.
func (s *Store) AddTable(restaurantID uuid.UUID, number int, status domain.TableStatus) domain.Table {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := domain.Table{ID: uuid.New(), RestaurantID: restaurantID, Number: number, Capacity: 4, Status: status, UpdatedAt: time.Now()}
	s.state.tables[t.ID] = t
	return t
}

// AddCustomer seeds a customer with an earn entry worth points.
func (s *Store) AddCustomer(restaurantID uuid.UUID, name, phone, email string, points int64) domain.Customer {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	c := domain.Customer{ID: uuid.New(), RestaurantID: restaurantID, Name: name, Phone: phone, Email: email, TotalSpent: decimal.Zero, CreatedAt: now}
	s.state.customers[c.ID] = c
	if points > 0 {
		s.state.ledger = append(s.state.ledger, domain.LedgerEntry{
			ID: uuid.New(), CustomerID: c.ID, Kind: domain.LedgerEarn, Points: points, CreatedAt: now,
		})
	}
	return c
}

// Snapshot counts committed rows, for atomicity assertions.
type Snapshot struct {
	Orders         int
	KitchenItems   int
	LedgerEntries  int
	Customers      int
	StatusLog      int
	OccupiedTables int
}

func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	occ := 0
	for _, t := range s.state.tables {
		if t.Status == domain.TableOccupied {
			occ++
		}
	}
	return Snapshot{
		Orders:         len(s.state.orders),
		KitchenItems:   len(s.state.kitchen),
		LedgerEntries:  len(s.state.ledger),
		Customers:      len(s.state.customers),
		StatusLog:      len(s.state.statusLog),
		OccupiedTables: occ,
	}
}

func (s *Store) LedgerEntries(customerID uuid.UUID) []domain.LedgerEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.LedgerEntry
	for _, e := range s.state.ledger {
		if e.CustomerID == customerID {
			out = append(out, e)
		}
	}
	return out
}

// Read returns repositories over a copy of the committed state.
func (s *Store) Read() *repository.Repository {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bind(s.state.clone())
}

// InTx holds the store lock for the whole callback, so it cannot interleave
// with another transaction.
func (s *Store) InTx(ctx context.Context, fn func(r *repository.Repository) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	if s.conflicts > 0 {
		s.conflicts--
		return domain.ErrPersistenceConflict
	}
	work := s.state.clone()
	if err := fn(s.bind(work)); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *Store) bind(st *state) *repository.Repository {
	return &repository.Repository{
		TableRepo:    &tables{s: s, st: st},
		OrderRepo:    &orders{s: s, st: st},
		KitchenRepo:  &kitchen{s: s, st: st},
		LedgerRepo:   &ledger{s: s, st: st},
		CustomerRepo: &customers{s: s, st: st},
	}
}

// fault is consulted on write paths only, which run inside InTx with s.mu held.
func (s *Store) fault(op string) error { return s.faults[op] }

type tables struct {
	s  *Store
	st *state
}

func (r *tables) GetByNumber(_ context.Context, restaurantID uuid.UUID, number int) (domain.Table, error) {
	for _, t := range r.st.tables {
		if t.RestaurantID == restaurantID && t.Number == number {
			return t, nil
		}
	}
	return domain.Table{}, &domain.TableError{Number: number}
}

func (r *tables) TryOccupy(ctx context.Context, restaurantID uuid.UUID, number int) (domain.Table, error) {
	if err := r.s.fault(OpTableOccupy); err != nil {
		return domain.Table{}, err
	}
	t, err := r.GetByNumber(ctx, restaurantID, number)
	if err != nil {
		return t, err
	}
	if t.Status != domain.TableAvailable {
		return domain.Table{}, &domain.TableError{Number: number, Status: t.Status}
	}
	t.Status = domain.TableOccupied
	t.UpdatedAt = time.Now()
	r.st.tables[t.ID] = t
	return t, nil
}

func (r *tables) Release(_ context.Context, tableID uuid.UUID) (bool, error) {
	t, ok := r.st.tables[tableID]
	if !ok || t.Status != domain.TableOccupied {
		return false, nil
	}
	t.Status = domain.TableAvailable
	t.UpdatedAt = time.Now()
	r.st.tables[tableID] = t
	return true, nil
}

type orders struct {
	s  *Store
	st *state
}

func (r *orders) Insert(_ context.Context, o *domain.Order) error {
	if err := r.s.fault(OpOrderInsert); err != nil {
		return err
	}
	for _, existing := range r.st.orders {
		if existing.OrderNumber == o.OrderNumber {
			return domain.ErrPersistenceConflict
		}
	}
	r.st.orders[o.ID] = *o
	return nil
}

func (r *orders) Get(_ context.Context, id uuid.UUID) (domain.Order, error) {
	o, ok := r.st.orders[id]
	if !ok {
		return o, domain.ErrOrderNotFound
	}
	return o, nil
}

func (r *orders) UpdateStatus(_ context.Context, o *domain.Order) error {
	cur, ok := r.st.orders[o.ID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	cur.Status, cur.UpdatedAt, cur.CompletedAt = o.Status, o.UpdatedAt, o.CompletedAt
	r.st.orders[o.ID] = cur
	return nil
}

func (r *orders) ReplaceItems(_ context.Context, id uuid.UUID, items domain.LineItems, total decimal.Decimal, pointsEarned int64, at time.Time) error {
	cur, ok := r.st.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	cur.Items, cur.TotalAmount, cur.Loyalty.PointsEarned, cur.UpdatedAt = items, total, pointsEarned, at
	r.st.orders[id] = cur
	return nil
}

func (r *orders) ConsumeOTP(_ context.Context, id uuid.UUID, otp string, at time.Time) (bool, error) {
	cur, ok := r.st.orders[id]
	if !ok || cur.OTP == nil || *cur.OTP != otp {
		return false, nil
	}
	cur.OTP = nil
	cur.UpdatedAt = at
	r.st.orders[id] = cur
	return true, nil
}

func (r *orders) AppendStatusLog(_ context.Context, e domain.StatusLogEntry) error {
	if err := r.s.fault(OpStatusLogAppend); err != nil {
		return err
	}
	r.st.statusLog = append(r.st.statusLog, e)
	return nil
}

func (r *orders) Timeline(_ context.Context, id uuid.UUID) ([]domain.StatusLogEntry, error) {
	var out []domain.StatusLogEntry
	for _, e := range r.st.statusLog {
		if e.OrderID == id {
			out = append(out, e)
		}
	}
	return out, nil
}

type kitchen struct {
	s  *Store
	st *state
}

func (r *kitchen) Insert(_ context.Context, w *domain.KitchenWorkItem) error {
	if err := r.s.fault(OpKitchenInsert); err != nil {
		return err
	}
	if _, dup := r.st.kitchen[w.OrderID]; dup {
		return domain.ErrPersistenceConflict
	}
	r.st.kitchen[w.OrderID] = *w
	return nil
}

func (r *kitchen) Get(_ context.Context, orderID uuid.UUID) (domain.KitchenWorkItem, error) {
	w, ok := r.st.kitchen[orderID]
	if !ok {
		return w, domain.ErrOrderNotFound
	}
	return w, nil
}

func (r *kitchen) GetForUpdate(ctx context.Context, orderID uuid.UUID) (domain.KitchenWorkItem, error) {
	return r.Get(ctx, orderID)
}

func (r *kitchen) Update(_ context.Context, w *domain.KitchenWorkItem) error {
	if _, ok := r.st.kitchen[w.OrderID]; !ok {
		return domain.ErrOrderNotFound
	}
	r.st.kitchen[w.OrderID] = *w
	return nil
}

func (r *kitchen) ListByRestaurant(_ context.Context, restaurantID uuid.UUID, statuses []domain.KitchenStatus) ([]domain.KitchenWorkItem, error) {
	want := map[domain.KitchenStatus]bool{}
	for _, s := range statuses {
		want[s] = true
	}
	var out []domain.KitchenWorkItem
	for _, w := range r.st.kitchen {
		if w.RestaurantID == restaurantID && (len(want) == 0 || want[w.Status]) {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssignedAt.Before(out[j].AssignedAt) })
	return out, nil
}

type ledger struct {
	s  *Store
	st *state
}

func (r *ledger) Balance(_ context.Context, customerID uuid.UUID, asOf time.Time) (int64, error) {
	var bal int64
	for _, e := range r.st.ledger {
		if e.CustomerID != customerID || !e.Counts(asOf) {
			continue
		}
		if e.Kind == domain.LedgerEarn {
			bal += e.Points
		} else {
			bal -= e.Points
		}
	}
	return bal, nil
}

func (r *ledger) Insert(_ context.Context, e *domain.LedgerEntry) error {
	if err := r.s.fault(OpLedgerInsert); err != nil {
		return err
	}
	r.st.ledger = append(r.st.ledger, *e)
	return nil
}

type customers struct {
	s  *Store
	st *state
}

func (r *customers) FindByContact(_ context.Context, restaurantID uuid.UUID, phone, email string) (domain.Customer, bool, error) {
	for _, c := range r.st.customers {
		if c.RestaurantID == restaurantID && c.Phone == phone {
			return c, true, nil
		}
	}
	if email == "" {
		return domain.Customer{}, false, nil
	}
	for _, c := range r.st.customers {
		if c.RestaurantID == restaurantID && strings.EqualFold(c.Email, email) {
			return c, true, nil
		}
	}
	return domain.Customer{}, false, nil
}

func (r *customers) Get(_ context.Context, id uuid.UUID) (domain.Customer, error) {
	c, ok := r.st.customers[id]
	if !ok {
		return c, repository.ErrCustomerNotFound
	}
	return c, nil
}

func (r *customers) Insert(_ context.Context, c *domain.Customer) error {
	r.st.customers[c.ID] = *c
	return nil
}

func (r *customers) RecordOrder(_ context.Context, id uuid.UUID, amount decimal.Decimal, at time.Time) error {
	if err := r.s.fault(OpCustomerRecord); err != nil {
		return err
	}
	c, ok := r.st.customers[id]
	if !ok {
		return repository.ErrCustomerNotFound
	}
	c.TotalOrders++
	c.TotalSpent = c.TotalSpent.Add(amount)
	t := at
	c.LastOrderDate = &t
	r.st.customers[id] = c
	return nil
}

func (r *customers) AdjustSpent(_ context.Context, id uuid.UUID, delta decimal.Decimal) error {
	if err := r.s.fault(OpCustomerRecord); err != nil {
		return err
	}
	c, ok := r.st.customers[id]
	if !ok {
		return repository.ErrCustomerNotFound
	}
	c.TotalSpent = c.TotalSpent.Add(delta)
	r.st.customers[id] = c
	return nil
}
