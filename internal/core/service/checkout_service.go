package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/poslane/poslane/internal/core/domain"
	"github.com/poslane/poslane/internal/port"
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrLookupSuperseded   = errors.New("lookup superseded by a newer search")
	ErrCartEmpty          = errors.New("cart is empty")
	ErrSubmissionInFlight = errors.New("submission already in progress")
	ErrSubmissionFailed   = errors.New("transaction processing failed")
)

// GuestEmployeeCode identifies guest checkouts on the remote API when no
// employee session is active.
const GuestEmployeeCode = "GUEST00001"

// ScreenState is the transaction screen position derived from the checkout
// state: entry, a staged product awaiting add, a submission in flight, or a
// completed purchase awaiting acknowledgment.
type ScreenState string

const (
	ScreenEntry         ScreenState = "entry"
	ScreenProductStaged ScreenState = "product_staged"
	ScreenSubmitting    ScreenState = "submitting"
	ScreenCompleted     ScreenState = "completed"
)

// CheckoutService manages the in-progress transaction: the staged lookup
// result, the cart lines, totals, and the single-submission guard. All state
// transitions are mutex-guarded; the remote calls happen outside the lock.
type CheckoutService struct {
	products port.ProductGateway
	cache    port.LookupCache    // optional
	tx       port.TransactionGateway
	journal  port.ReceiptJournal // optional
	session  *SessionService     // optional; guest checkout without it
	log      *logrus.Logger

	mu              sync.Mutex
	items           []domain.CartItem
	staged          *domain.Product
	lookupID        string
	processing      bool
	completed       bool
	completedAmount int64
}

func NewCheckoutService(products port.ProductGateway, tx port.TransactionGateway, session *SessionService, log *logrus.Logger) *CheckoutService {
	return &CheckoutService{
		products: products,
		tx:       tx,
		session:  session,
		log:      log,
	}
}

// WithLookupCache consults the cache before the remote catalog on lookups.
func (c *CheckoutService) WithLookupCache(cache port.LookupCache) *CheckoutService {
	c.cache = cache
	return c
}

// WithReceiptJournal records completed submissions locally, best effort.
func (c *CheckoutService) WithReceiptJournal(journal port.ReceiptJournal) *CheckoutService {
	c.journal = journal
	return c
}

// Lookup resolves a scanned or typed code into a staged product. Every
// failure, remote or not-found alike, comes back as ErrProductNotFound and
// clears the staged product. A newer Lookup supersedes an older in-flight
// one: only the newest request may publish its result.
func (c *CheckoutService) Lookup(ctx context.Context, code string) (*domain.Product, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		c.clearStaged()
		return nil, ErrProductNotFound
	}

	requestID := uuid.NewString()
	c.mu.Lock()
	c.lookupID = requestID
	c.mu.Unlock()

	product, err := c.fetch(ctx, code)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lookupID != requestID {
		return nil, ErrLookupSuperseded
	}
	if err != nil {
		c.log.WithError(err).WithField("code", code).Debug("product lookup failed")
		c.staged = nil
		return nil, ErrProductNotFound
	}
	if product.Quantity < 1 {
		product.Quantity = 1
	}
	c.staged = product
	snapshot := *product
	return &snapshot, nil
}

func (c *CheckoutService) fetch(ctx context.Context, code string) (*domain.Product, error) {
	if c.cache != nil {
		cached, hit, err := c.cache.Get(ctx, code)
		if err != nil {
			c.log.WithError(err).Warn("lookup cache read failed")
		} else if hit {
			return cached, nil
		}
	}

	product, err := c.products.LookupByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Put(ctx, *product); err != nil {
			c.log.WithError(err).Warn("lookup cache write failed")
		}
	}
	return product, nil
}

// StagedProduct returns a copy of the pending lookup result, if any.
func (c *CheckoutService) StagedProduct() *domain.Product {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.staged == nil {
		return nil
	}
	snapshot := *c.staged
	return &snapshot
}

// StageQuantity adjusts the staged product's quantity before it is added.
// Values below 1 are ignored, as is the call when nothing is staged.
func (c *CheckoutService) StageQuantity(quantity int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.staged == nil || quantity < 1 {
		return
	}
	c.staged.Quantity = quantity
}

// AddToCart moves the staged product into the cart. With nothing staged it is
// a no-op. A line with the same code absorbs the incoming quantity instead of
// a second line appearing. The staged state is cleared either way, forcing a
// fresh scan or search for the next item.
func (c *CheckoutService) AddToCart() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.staged == nil {
		return
	}

	quantity := c.staged.Quantity
	if quantity < 1 {
		quantity = 1
	}

	for i := range c.items {
		if c.items[i].Code == c.staged.Code {
			c.items[i].Quantity += quantity
			if c.items[i].Quantity < 1 {
				c.items[i].Quantity = 1
			}
			c.clearStagedLocked()
			return
		}
	}

	c.items = append(c.items, domain.CartItem{
		ProductID: c.staged.ID,
		Code:      c.staged.Code,
		Name:      c.staged.Name,
		Price:     c.staged.Price,
		Quantity:  quantity,
	})
	c.clearStagedLocked()
}

// SetLineQuantity replaces a line's quantity. Values below 1 are ignored;
// other lines are untouched.
func (c *CheckoutService) SetLineQuantity(code string, quantity int) {
	if quantity < 1 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].Code == code {
			c.items[i].Quantity = quantity
			return
		}
	}
}

// RemoveLine drops the matching line; no-op when the code is absent.
func (c *CheckoutService) RemoveLine(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].Code == code {
			c.items = append(c.items[:i], c.items[i+1:]...)
			return
		}
	}
}

// Items returns the cart lines in insertion order.
func (c *CheckoutService) Items() []domain.CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.CartItem, len(c.items))
	copy(out, c.items)
	return out
}

// Total is the pre-tax sum over all lines.
func (c *CheckoutService) Total() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalLocked()
}

// Tax is floor(total * 0.1), computed on the total rather than per line.
func (c *CheckoutService) Tax() int64 {
	return c.Total() / 10
}

// GrandTotal is floor(total * 1.1).
func (c *CheckoutService) GrandTotal() int64 {
	total := c.Total()
	return total + total/10
}

func (c *CheckoutService) totalLocked() int64 {
	var total int64
	for _, item := range c.items {
		total += item.Subtotal()
	}
	return total
}

// Submit sends the cart to the remote transaction endpoint. At most one
// submission is in flight at a time and the cart must be non-empty. On
// success the pre-tax total is recorded as the completed amount and the cart
// stays populated until AcknowledgeCompletion; on failure the cart and staged
// state are untouched so the cashier can retry. The guard is released on
// every exit path.
func (c *CheckoutService) Submit(ctx context.Context) (int64, error) {
	c.mu.Lock()
	if c.processing {
		c.mu.Unlock()
		return 0, ErrSubmissionInFlight
	}
	if len(c.items) == 0 {
		c.mu.Unlock()
		return 0, ErrCartEmpty
	}
	c.processing = true
	lines := make([]domain.CartItem, len(c.items))
	copy(lines, c.items)
	total := c.totalLocked()
	c.mu.Unlock()

	employeeCode := GuestEmployeeCode
	if c.session != nil && c.session.IsLoggedIn() {
		if code := c.session.EmployeeCode(); code != "" {
			employeeCode = code
		}
	}

	err := c.tx.Submit(ctx, employeeCode, lines)
	if err != nil {
		c.mu.Lock()
		c.processing = false
		c.mu.Unlock()
		c.log.WithError(err).Error("transaction submission failed")
		return 0, ErrSubmissionFailed
	}

	if c.journal != nil {
		receipt := domain.Receipt{
			ID:           uuid.NewString(),
			EmployeeCode: employeeCode,
			Total:        total,
			Lines:        lines,
			CreatedAt:    time.Now(),
		}
		if jerr := c.journal.Append(ctx, receipt); jerr != nil {
			c.log.WithError(jerr).Warn("receipt journal write failed")
		}
	}

	c.mu.Lock()
	c.processing = false
	c.completed = true
	c.completedAmount = total
	c.mu.Unlock()

	c.log.WithFields(logrus.Fields{
		"employee_code": employeeCode,
		"total":         total,
		"lines":         len(lines),
	}).Info("transaction completed")
	return total, nil
}

// CompletedAmount is the pre-tax total of the last successful submission,
// held until the completion is acknowledged.
func (c *CheckoutService) CompletedAmount() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.completedAmount
}

// AcknowledgeCompletion dismisses the completion state: cart, staged product,
// and completed amount are cleared together, and an active session is logged
// out. Acknowledging when nothing completed is a no-op.
func (c *CheckoutService) AcknowledgeCompletion(ctx context.Context) error {
	c.mu.Lock()
	if !c.completed {
		c.mu.Unlock()
		return nil
	}
	c.items = nil
	c.completed = false
	c.completedAmount = 0
	c.clearStagedLocked()
	c.mu.Unlock()

	if c.session != nil && c.session.IsLoggedIn() {
		if err := c.session.Logout(ctx); err != nil {
			return fmt.Errorf("logout after completion: %w", err)
		}
	}
	return nil
}

// Reset abandons the transaction in progress: cart and staged state are
// cleared without touching the session.
func (c *CheckoutService) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
	c.completed = false
	c.completedAmount = 0
	c.clearStagedLocked()
}

// Screen derives the transaction screen position from the current state.
func (c *CheckoutService) Screen() ScreenState {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case c.processing:
		return ScreenSubmitting
	case c.completed:
		return ScreenCompleted
	case c.staged != nil:
		return ScreenProductStaged
	default:
		return ScreenEntry
	}
}

func (c *CheckoutService) clearStaged() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearStagedLocked()
}

func (c *CheckoutService) clearStagedLocked() {
	c.staged = nil
	c.lookupID = ""
}
