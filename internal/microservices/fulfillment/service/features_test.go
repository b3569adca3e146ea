package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cucumber/godog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"restaurant-fulfillment/internal/domain"
	"restaurant-fulfillment/internal/microservices/fulfillment/repository/memstore"
	"restaurant-fulfillment/internal/notify"
)

type fulfillmentTestContext struct {
	rid      uuid.UUID
	settings domain.Settings
	store    *memstore.Store
	recorder *notify.Recorder
	coord    *Coordinator

	placed     *domain.PlaceOrderResult
	placeErr   error
	concurrent []error
	kitchenErr error
}

func (c *fulfillmentTestContext) reset() {
	c.rid = uuid.New()
	c.settings = domain.DefaultSettings()
	c.store = memstore.New()
	c.recorder = &notify.Recorder{}
	c.placed, c.placeErr, c.concurrent, c.kitchenErr = nil, nil, nil, nil
	c.build()
}

func (c *fulfillmentTestContext) build() {
	c.coord = NewCoordinator(Deps{
		Store:    c.store,
		Settings: staticSettings{s: c.settings},
		Notifier: c.recorder,
		Messages: &fakeGateway{},
		Clock:    func() time.Time { return testNow },
	})
}

func (c *fulfillmentTestContext) aRestaurantWithLoyaltyEnabled(rate string) error {
	r, err := decimal.NewFromString(rate)
	if err != nil {
		return err
	}
	c.settings.LoyaltyEnabled = true
	c.settings.EarnRate = r
	c.build()
	return nil
}

func (c *fulfillmentTestContext) tableIs(number int, status string) error {
	c.store.AddTable(c.rid, number, domain.TableStatus(status))
	return nil
}

func (c *fulfillmentTestContext) customerHasBalance(phone string, points int) error {
	c.store.AddCustomer(c.rid, "Guest", phone, "", int64(points))
	return nil
}

func (c *fulfillmentTestContext) dineInOrderIsPlaced(table int, total, phone string) error {
	c.placed, c.placeErr = c.coord.PlaceOrder(context.Background(), c.rid, dineIn(table, total, phone))
	return nil
}

func (c *fulfillmentTestContext) pickupOrderIsPlaced(total, phone string) error {
	c.placed, c.placeErr = c.coord.PlaceOrder(context.Background(), c.rid, pickup(total, phone))
	return c.placeErr
}

func (c *fulfillmentTestContext) pickupOrderIsPlacedRedeeming(total, phone string, points int) error {
	req := pickup(total, phone)
	req.LoyaltyPoints = &domain.LoyaltyRequest{UsePoints: true, PointsToRedeem: int64(points)}
	c.placed, c.placeErr = c.coord.PlaceOrder(context.Background(), c.rid, req)
	return nil
}

func (c *fulfillmentTestContext) concurrentDineInOrders(n, table int) error {
	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := c.coord.PlaceOrder(context.Background(), c.rid, dineIn(table, "30.00", fmt.Sprintf("+1555090%02d", i)))
			mu.Lock()
			c.concurrent = append(c.concurrent, err)
			mu.Unlock()
		}(i)
	}
	wg.Wait()
	return nil
}

func (c *fulfillmentTestContext) theOrderSucceedsWithStatus(status string) error {
	if c.placeErr != nil {
		return fmt.Errorf("order failed: %w", c.placeErr)
	}
	if string(c.placed.Status) != status {
		return fmt.Errorf("expected status %s, got %s", status, c.placed.Status)
	}
	return nil
}

// errorKinds maps the kind names used in feature files to domain sentinels.
var errorKinds = map[string]error{
	"validation failed":                 domain.ErrValidation,
	"table unavailable":                 domain.ErrTableUnavailable,
	"insufficient loyalty balance":      domain.ErrInsufficientLoyaltyBalance,
	"invalid kitchen status transition": domain.ErrInvalidTransition,
	"order not found":                   domain.ErrOrderNotFound,
	"persistence conflict":              domain.ErrPersistenceConflict,
	"order items are locked":            domain.ErrItemsLocked,
}

func expectKind(err error, kind string) error {
	want, ok := errorKinds[kind]
	if !ok {
		return fmt.Errorf("unknown error kind %q", kind)
	}
	if err == nil {
		return fmt.Errorf("expected %q, got success", kind)
	}
	if !errors.Is(err, want) {
		return fmt.Errorf("expected %q, got %v", kind, err)
	}
	return nil
}

func (c *fulfillmentTestContext) theOrderFailsWith(kind string) error {
	return expectKind(c.placeErr, kind)
}

func (c *fulfillmentTestContext) exactlyNOrdersSucceed(n int) error {
	ok := 0
	for _, err := range c.concurrent {
		if err == nil {
			ok++
		}
	}
	if ok != n {
		return fmt.Errorf("expected %d successful orders, got %d", n, ok)
	}
	if snap := c.store.Snapshot(); snap.Orders != n {
		return fmt.Errorf("expected %d stored orders, got %d", n, snap.Orders)
	}
	return nil
}

func (c *fulfillmentTestContext) theOthersFailWith(kind string) error {
	for _, err := range c.concurrent {
		if err == nil {
			continue
		}
		if e := expectKind(err, kind); e != nil {
			return e
		}
	}
	return nil
}

func (c *fulfillmentTestContext) tableShouldBe(number int, status string) error {
	t, err := c.store.Read().TableRepo.GetByNumber(context.Background(), c.rid, number)
	if err != nil {
		return err
	}
	if string(t.Status) != status {
		return fmt.Errorf("table %d: expected %s, got %s", number, status, t.Status)
	}
	return nil
}

func (c *fulfillmentTestContext) customerHasLedgerEntries(phone string, n int, kind string, points int) error {
	cust, found, err := c.store.Read().CustomerRepo.FindByContact(context.Background(), c.rid, phone, "")
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("no customer with phone %s", phone)
	}
	entries := c.store.LedgerEntries(cust.ID)
	if len(entries) != n {
		return fmt.Errorf("expected %d ledger entries, got %d", n, len(entries))
	}
	for _, e := range entries {
		if string(e.Kind) != kind || e.Points != int64(points) {
			return fmt.Errorf("unexpected ledger entry %s %d", e.Kind, e.Points)
		}
	}
	return nil
}

func (c *fulfillmentTestContext) eventWasPublished(eventType string) error {
	for _, t := range c.recorder.Types() {
		if t == eventType {
			return nil
		}
	}
	return fmt.Errorf("event %s not published; got %v", eventType, c.recorder.Types())
}

func (c *fulfillmentTestContext) kitchenMovesTo(status string) error {
	return c.kitchenMovesThrough(status)
}

func (c *fulfillmentTestContext) kitchenMovesThrough(list string) error {
	if c.placed == nil {
		return fmt.Errorf("no order placed: %v", c.placeErr)
	}
	c.kitchenErr = nil
	for _, s := range strings.Split(list, ",") {
		_, err := c.coord.AdvanceKitchenStatus(context.Background(), c.placed.OrderID, domain.KitchenStatus(strings.TrimSpace(s)), "chef")
		if err != nil {
			c.kitchenErr = err
			return nil
		}
	}
	return nil
}

func (c *fulfillmentTestContext) kitchenUpdateFailsWith(kind string) error {
	return expectKind(c.kitchenErr, kind)
}

func (c *fulfillmentTestContext) kitchenUpdateSucceeds() error {
	return c.kitchenErr
}

func initializeFulfillmentScenario(ctx *godog.ScenarioContext) {
	tc := &fulfillmentTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given
	ctx.Step(`^a restaurant with loyalty enabled at earn rate "([^"]*)"$`, tc.aRestaurantWithLoyaltyEnabled)
	ctx.Step(`^table (\d+) is "([^"]*)"$`, tc.tableIs)
	ctx.Step(`^customer "([^"]*)" has a balance of (\d+) points$`, tc.customerHasBalance)

	// When
	ctx.Step(`^a dine-in order for table (\d+) totalling "([^"]*)" is placed by "([^"]*)"$`, tc.dineInOrderIsPlaced)
	ctx.Step(`^a pickup order totalling "([^"]*)" is placed by "([^"]*)"$`, tc.pickupOrderIsPlaced)
	ctx.Step(`^a pickup order totalling "([^"]*)" is placed by "([^"]*)" redeeming (\d+) points$`, tc.pickupOrderIsPlacedRedeeming)
	ctx.Step(`^(\d+) dine-in orders for table (\d+) are placed concurrently$`, tc.concurrentDineInOrders)
	ctx.Step(`^the kitchen moves the order to "([^"]*)"$`, tc.kitchenMovesTo)
	ctx.Step(`^the kitchen moves the order through "([^"]*)"$`, tc.kitchenMovesThrough)

	// Then
	ctx.Step(`^the order succeeds with status "([^"]*)"$`, tc.theOrderSucceedsWithStatus)
	ctx.Step(`^the order fails with "([^"]*)"$`, tc.theOrderFailsWith)
	ctx.Step(`^exactly (\d+) orders? succeeds?$`, tc.exactlyNOrdersSucceed)
	ctx.Step(`^the others fail with "([^"]*)"$`, tc.theOthersFailWith)
	ctx.Step(`^table (\d+) is now "([^"]*)"$`, tc.tableShouldBe)
	ctx.Step(`^the customer "([^"]*)" has (\d+) "([^"]*)" ledger entry of (\d+) points$`, tc.customerHasLedgerEntries)
	ctx.Step(`^a "([^"]*)" event was published$`, tc.eventWasPublished)
	ctx.Step(`^the kitchen update fails with "([^"]*)"$`, tc.kitchenUpdateFailsWith)
	ctx.Step(`^the kitchen update succeeds$`, tc.kitchenUpdateSucceeds)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: initializeFulfillmentScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"../../../../features/fulfillment.feature"},
			TestingT: t,
		},
	}
	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}

func TestExpectKind_MatchesConcreteDomainErrors(t *testing.T) {
	tableErr := fmt.Errorf("place order: %w", &domain.TableError{Number: 5, Status: domain.TableOccupied})
	if err := expectKind(tableErr, "table unavailable"); err != nil {
		t.Fatal(err)
	}
	transErr := &domain.TransitionError{From: domain.KitchenPending, To: domain.KitchenCompleted}
	if err := expectKind(transErr, "invalid kitchen status transition"); err != nil {
		t.Fatal(err)
	}
	if err := expectKind(transErr, "table unavailable"); err == nil {
		t.Fatal("transition error matched the table kind")
	}
	if err := expectKind(nil, "order not found"); err == nil {
		t.Fatal("nil error matched a failure kind")
	}
}
