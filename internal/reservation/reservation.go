package reservation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"electrobot/catalog/internal/domain"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

var (
	ErrInvalidPhone   = errors.New("invalid phone number")
	ErrNoPending      = errors.New("no pending reservation")
	ErrUnknownProduct = errors.New("unknown product")
)

// Notifier delivers a plain-text message to the shop operator.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

type ProductLookup interface {
	Product(id string) (domain.Product, bool)
}

type Reservation struct {
	ID        uuid.UUID
	UserID    int64
	Product   domain.Product
	Phone     string
	CreatedAt time.Time
}

// Desk holds at most one product per user waiting for a phone number.
type Desk struct {
	mu       sync.Mutex
	pending  map[int64]string
	products ProductLookup
	notifier Notifier
}

func NewDesk(products ProductLookup, notifier Notifier) *Desk {
	return &Desk{
		pending:  make(map[int64]string),
		products: products,
		notifier: notifier,
	}
}

// Begin remembers productID for userID, replacing any earlier pending product.
func (d *Desk) Begin(userID int64, productID string) (domain.Product, error) {
	p, ok := d.products.Product(productID)
	if !ok {
		return domain.Product{}, fmt.Errorf("%w: %s", ErrUnknownProduct, productID)
	}

	d.mu.Lock()
	d.pending[userID] = productID
	d.mu.Unlock()
	return p, nil
}

// Complete consumes the pending reservation of userID once phone is valid.
// An invalid phone keeps the reservation pending so the user can retry.
func (d *Desk) Complete(ctx context.Context, userID int64, phone string) (*Reservation, error) {
	normalized, ok := NormalizePhone(phone)

	d.mu.Lock()
	productID, pending := d.pending[userID]
	if pending && ok {
		delete(d.pending, userID)
	}
	d.mu.Unlock()

	if !pending {
		return nil, ErrNoPending
	}
	if !ok {
		return nil, ErrInvalidPhone
	}

	product, found := d.products.Product(productID)
	if !found {
		// the catalog was refreshed without this product; keep what we know
		product = domain.Product{ID: productID}
	}
	r := &Reservation{
		ID:        uuid.New(),
		UserID:    userID,
		Product:   product,
		Phone:     normalized,
		CreatedAt: time.Now(),
	}

	if err := d.notifier.Notify(ctx, r.String()); err != nil {
		log.Errorf("❌ Failed to notify operator about reservation %s: %v", r.ID, err)
	}
	log.Infof("✅ Reservation %s: product %s for user %d", r.ID, productID, userID)
	return r, nil
}

func (r *Reservation) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Reservation %s\n", r.ID)
	fmt.Fprintf(&b, "Product: %s", r.Product.ID)
	if r.Product.Name != "" {
		fmt.Fprintf(&b, " %s", r.Product.Name)
	}
	if r.Product.SKU != "" {
		fmt.Fprintf(&b, " (%s)", r.Product.SKU)
	}
	fmt.Fprintf(&b, "\nPhone: %s\nUser: %d", r.Phone, r.UserID)
	return b.String()
}

// NormalizePhone accepts 10 to 15 digits with an optional leading '+' and
// common separators, and returns the number without separators.
func NormalizePhone(phone string) (string, bool) {
	phone = strings.TrimSpace(phone)
	plus := strings.HasPrefix(phone, "+")
	if plus {
		phone = phone[1:]
	}

	digits := make([]byte, 0, len(phone))
	for _, r := range phone {
		switch {
		case r >= '0' && r <= '9':
			digits = append(digits, byte(r))
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return "", false
		}
	}
	if len(digits) < 10 || len(digits) > 15 {
		return "", false
	}
	if plus {
		return "+" + string(digits), true
	}
	return string(digits), true
}
