package sqlstore

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"orderadmin/internal/adapters/out/sqlstore/orderrepo"
	"orderadmin/internal/core/domain/model/order"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	DefaultSeedCount = 100

	minTotalCents = 1000
	maxTotalCents = 25000
	maxAgeDays    = 60
	maxLineItems  = 6
	maxQty        = 10
	seedBatchSize = 50
)

var customers = []string{"Dana", "Avi", "Noa", "Lior", "Maya", "Tamar", "Yossi", "Nadav"}

// SeedOptions controls the generated data set.
type SeedOptions struct {
	// Count is the number of orders, DefaultSeedCount when zero.
	Count int

	// Now anchors the created_at window, time.Now when zero.
	Now time.Time

	// Rand is the source of every random choice. A fixed source gives a reproducible
	// data set.
	Rand *rand.Rand
}

// SeedReport summarises what Seed inserted.
type SeedReport struct {
	Orders    int
	LineItems int
	ByStatus  map[order.Status]int
}

// Seed replaces the contents of the store with generated orders. Statuses follow a
// fixed 60/25/10/5 split of pending, approved, rejected and cancelled, shuffled over
// the set; each order gets between one and six line items.
func Seed(ctx context.Context, db *gorm.DB, opts SeedOptions, log *slog.Logger) (SeedReport, error) {
	opts = opts.withDefaults()

	orders, report, err := generate(opts)
	if err != nil {
		return SeedReport{}, err
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&orderrepo.OrderItemDTO{}).Error; err != nil {
			return err
		}
		if err := tx.Where("1 = 1").Delete(&orderrepo.OrderDTO{}).Error; err != nil {
			return err
		}
		return tx.CreateInBatches(orders, seedBatchSize).Error
	})
	if err != nil {
		return SeedReport{}, fmt.Errorf("seed store: %w", err)
	}

	log.InfoContext(ctx, "Store seeded",
		"orders", report.Orders,
		"line_items", report.LineItems,
		"pending", report.ByStatus[order.Pending],
		"approved", report.ByStatus[order.Approved],
		"rejected", report.ByStatus[order.Rejected],
		"cancelled", report.ByStatus[order.Cancelled],
	)
	return report, nil
}

// SeedIfEmpty seeds only a store without orders and reports whether it did.
func SeedIfEmpty(ctx context.Context, db *gorm.DB, opts SeedOptions, log *slog.Logger) (bool, error) {
	var count int64
	if err := db.WithContext(ctx).Model(&orderrepo.OrderDTO{}).Count(&count).Error; err != nil {
		return false, fmt.Errorf("count orders: %w", err)
	}
	if count > 0 {
		log.InfoContext(ctx, "Store already holds orders, skipping seed", "orders", count)
		return false, nil
	}

	if _, err := Seed(ctx, db, opts, log); err != nil {
		return false, err
	}
	return true, nil
}

func (o SeedOptions) withDefaults() SeedOptions {
	if o.Count <= 0 {
		o.Count = DefaultSeedCount
	}
	if o.Now.IsZero() {
		o.Now = time.Now()
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint:gosec // sample data
	}
	return o
}

// statusPlan lays out the status of every order before shuffling.
func statusPlan(count int, rnd *rand.Rand) []order.Status {
	approved := count * 25 / 100
	rejected := count * 10 / 100
	cancelled := count * 5 / 100
	pending := count - approved - rejected - cancelled

	plan := make([]order.Status, 0, count)
	for i, n := range []int{pending, approved, rejected, cancelled} {
		for range n {
			plan = append(plan, order.Statuses()[i])
		}
	}

	rnd.Shuffle(len(plan), func(i, j int) { plan[i], plan[j] = plan[j], plan[i] })
	return plan
}

func generate(opts SeedOptions) ([]orderrepo.OrderDTO, SeedReport, error) {
	rnd := opts.Rand
	report := SeedReport{ByStatus: make(map[order.Status]int, len(order.Statuses()))}

	plan := statusPlan(opts.Count, rnd)
	orders := make([]orderrepo.OrderDTO, 0, opts.Count)

	for _, status := range plan {
		customer := fmt.Sprintf("%s %c.", customers[rnd.IntN(len(customers))], 'A'+rune(rnd.IntN(26)))
		total := int64(minTotalCents + rnd.IntN(maxTotalCents-minTotalCents+1))
		createdAt := opts.Now.Add(-time.Duration(rnd.IntN(maxAgeDays)) * 24 * time.Hour).
			Add(-time.Duration(rnd.IntN(24*60*60)) * time.Second)

		items := make([]orderrepo.OrderItemDTO, 1+rnd.IntN(maxLineItems))
		for i := range items {
			items[i] = orderrepo.OrderItemDTO{
				ID:  uuid.NewString(),
				SKU: fmt.Sprintf("SKU-%03d", 100+rnd.IntN(900)),
				Qty: 1 + rnd.IntN(maxQty),
			}
		}

		o, err := order.RestoreOrder(uuid.NewString(), customer, status, total, createdAt, len(items))
		if err != nil {
			return nil, SeedReport{}, err
		}

		orders = append(orders, orderrepo.NewOrderDTO(o, items...))
		report.Orders++
		report.LineItems += len(items)
		report.ByStatus[status]++
	}

	return orders, report, nil
}
