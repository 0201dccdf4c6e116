package shipping

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/jekabolt/grbpwr-insights/internal/entity"
	"github.com/jekabolt/grbpwr-insights/internal/store"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	rows       map[int]entity.ShipmentCost
	failing    map[int]bool
	bulkErr    error
	singleHits int
	bulkCalls  [][]int
}

func (s *fakeStore) ShipmentCost(_ context.Context, orderID int) (*entity.ShipmentCost, error) {
	s.singleHits++
	if s.failing[orderID] {
		return nil, errors.New("dial tcp: i/o timeout")
	}
	sc, ok := s.rows[orderID]
	if !ok {
		return nil, fmt.Errorf("order %d: %w", orderID, store.ErrShipmentNotFound)
	}
	return &sc, nil
}

func (s *fakeStore) ShipmentCosts(_ context.Context, orderIDs []int) (map[int]entity.ShipmentCost, error) {
	s.bulkCalls = append(s.bulkCalls, orderIDs)
	if s.bulkErr != nil {
		return nil, s.bulkErr
	}
	res := make(map[int]entity.ShipmentCost)
	for _, id := range orderIDs {
		if sc, ok := s.rows[id]; ok {
			res[id] = sc
		}
	}
	return res, nil
}

type countingLimiter struct{ waits int }

func (l *countingLimiter) Wait(context.Context) error {
	l.waits++
	return nil
}

func cost(id int, amount int64, carrier string) entity.ShipmentCost {
	return entity.ShipmentCost{OrderID: id, Cost: decimal.NewFromInt(amount), Carrier: carrier}
}

func orderWithShipping(id int, declared int64) entity.Order {
	return entity.Order{ID: id, ShippingTotal: decimal.NewFromInt(declared)}
}

func TestLookup_Sources(t *testing.T) {
	st := &fakeStore{
		rows:    map[int]entity.ShipmentCost{1: cost(1, 90, "oca")},
		failing: map[int]bool{3: true},
	}
	r := New(&Config{}, st, nil, nil)
	ctx := context.Background()

	rec := r.Lookup(ctx, 1)
	assert.Equal(t, entity.ShippingSourceReconciled, rec.Source)
	assert.True(t, rec.Found)
	assert.True(t, decimal.NewFromInt(90).Equal(rec.Cost))

	rec = r.Lookup(ctx, 2)
	assert.Equal(t, entity.ShippingSourceNotFound, rec.Source)
	assert.False(t, rec.Found)

	rec = r.Lookup(ctx, 3)
	assert.Equal(t, entity.ShippingSourceError, rec.Source)
	assert.False(t, rec.Found)
	assert.True(t, rec.Cost.IsZero())
}

func TestReconcile_MissingCostsContributeZero(t *testing.T) {
	st := &fakeStore{
		rows:    map[int]entity.ShipmentCost{1: cost(1, 100, "andreani")},
		failing: map[int]bool{3: true},
	}
	r := New(&Config{}, st, nil, nil)

	sum := r.Reconcile(context.Background(), []entity.Order{
		orderWithShipping(1, 80),
		orderWithShipping(2, 500),
		orderWithShipping(3, 700),
	})

	// declared charges of orders 2 and 3 never leak into the real cost
	assert.True(t, decimal.NewFromInt(100).Equal(sum.TotalRealCost))
	assert.True(t, decimal.NewFromInt(1280).Equal(sum.TotalDeclaredCost))
	assert.True(t, decimal.NewFromInt(-1180).Equal(sum.Difference))
	assert.Equal(t, 1, sum.Found)
	assert.Equal(t, 2, sum.NotFound)
	assert.Equal(t, 1, sum.Errors)
	assert.Equal(t, 3, sum.Processed)
	require.Len(t, sum.Records, 3)
	for _, rec := range sum.Records[1:] {
		assert.True(t, rec.RealCost().IsZero())
	}
}

func TestReconcile_CapsSingleLookups(t *testing.T) {
	st := &fakeStore{rows: map[int]entity.ShipmentCost{}}
	r := New(&Config{MaxSingleLookups: 3}, st, nil, nil)

	orders := make([]entity.Order, 0, 10)
	for i := 1; i <= 10; i++ {
		orders = append(orders, orderWithShipping(i, 10))
	}
	sum := r.Reconcile(context.Background(), orders)

	assert.Equal(t, 3, st.singleHits)
	assert.Equal(t, 3, sum.Processed)
	assert.Equal(t, 7, sum.Skipped)
}

func TestReconcile_MappingSkipsLimiter(t *testing.T) {
	mapping, err := ParseMapping(strings.NewReader(`
orders:
  1: {cost: 40.50, carrier: oca}
  2: {cost: 60, carrier: oca}
`))
	require.NoError(t, err)

	st := &fakeStore{rows: map[int]entity.ShipmentCost{3: cost(3, 20, "correo")}}
	lim := &countingLimiter{}
	r := New(&Config{}, st, mapping, lim)

	sum := r.Reconcile(context.Background(), []entity.Order{
		orderWithShipping(1, 0),
		orderWithShipping(2, 0),
		orderWithShipping(3, 0),
	})

	assert.Equal(t, 1, lim.waits)
	assert.Equal(t, 1, st.singleHits)
	assert.True(t, sum.Records[0].FromMapping)
	assert.False(t, sum.Records[2].FromMapping)
	assert.True(t, decimal.RequireFromString("120.50").Equal(sum.TotalRealCost))

	require.Len(t, sum.Carriers, 2)
	assert.Equal(t, "oca", sum.Carriers[0].Carrier)
	assert.Equal(t, 2, sum.Carriers[0].Count)
	assert.True(t, decimal.RequireFromString("50.25").Equal(sum.Carriers[0].AvgCost))
	assert.Equal(t, "correo", sum.Carriers[1].Carrier)
}

func TestLookupBulk(t *testing.T) {
	mapping, err := ParseMapping(strings.NewReader("orders:\n  7: {cost: 15, carrier: oca}\n"))
	require.NoError(t, err)

	st := &fakeStore{rows: map[int]entity.ShipmentCost{5: cost(5, 120, "andreani")}}
	r := New(&Config{}, st, mapping, nil)

	res := r.LookupBulk(context.Background(), []int{5, 6, 7, 5})
	require.Len(t, res, 3)
	require.Len(t, st.bulkCalls, 1)
	assert.Equal(t, []int{5, 6}, st.bulkCalls[0])

	assert.Equal(t, entity.ShippingSourceReconciled, res[5].Source)
	assert.Equal(t, entity.ShippingSourceNotFound, res[6].Source)
	assert.True(t, res[7].FromMapping)
}

func TestLookupBulk_StoreErrorMarksRemaining(t *testing.T) {
	mapping, err := ParseMapping(strings.NewReader("orders:\n  7: {cost: 15, carrier: oca}\n"))
	require.NoError(t, err)

	st := &fakeStore{bulkErr: errors.New("too many connections")}
	r := New(&Config{}, st, mapping, nil)

	res := r.LookupBulk(context.Background(), []int{5, 6, 7})
	assert.Equal(t, entity.ShippingSourceError, res[5].Source)
	assert.Equal(t, entity.ShippingSourceError, res[6].Source)
	assert.Equal(t, entity.ShippingSourceReconciled, res[7].Source)
}

func TestParseMapping(t *testing.T) {
	m, err := ParseMapping(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, 0, m.Len())

	_, err = ParseMapping(strings.NewReader("orders:\n  1: {cost: abc}\n"))
	assert.Error(t, err)

	_, err = ParseMapping(strings.NewReader("orders:\n  1: {cost: -3}\n"))
	assert.Error(t, err)

	var nilMapping *Mapping
	_, ok := nilMapping.Get(1)
	assert.False(t, ok)
}

func TestLoadMapping_Once(t *testing.T) {
	first, err := LoadMapping("")
	require.NoError(t, err)

	second, err := LoadMapping("/does/not/exist.yaml")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestMapping_ShipmentCosts(t *testing.T) {
	m, err := ParseMapping(strings.NewReader("orders:\n  20: {cost: \"7.5\", carrier: oca}\n  3: {cost: \"12\", carrier: andreani}\n"))
	require.NoError(t, err)

	costs := m.ShipmentCosts()
	require.Len(t, costs, 2)
	assert.Equal(t, 3, costs[0].OrderID)
	assert.Equal(t, "andreani", costs[0].Carrier)
	assert.Equal(t, 20, costs[1].OrderID)
	assert.True(t, costs[1].Cost.Equal(decimal.RequireFromString("7.5")))
}
