package shipping

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"github.com/jekabolt/grbpwr-insights/internal/entity"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Mapping is an immutable table of known shipping costs keyed by order id.
// A nil Mapping has no entries.
type Mapping struct {
	entries map[int]entity.ShippingMappingEntry
}

type mappingFile struct {
	Orders map[int]struct {
		Cost    string `yaml:"cost"`
		Carrier string `yaml:"carrier"`
	} `yaml:"orders"`
}

// ParseMapping reads a mapping document:
//
//	orders:
//	  1042: {cost: 120.50, carrier: andreani}
func ParseMapping(r io.Reader) (*Mapping, error) {
	var f mappingFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("can't decode shipping mapping: %w", err)
	}

	m := &Mapping{entries: make(map[int]entity.ShippingMappingEntry, len(f.Orders))}
	for id, e := range f.Orders {
		cost, err := decimal.NewFromString(e.Cost)
		if err != nil {
			return nil, fmt.Errorf("order %d: bad cost %q: %w", id, e.Cost, err)
		}
		if cost.IsNegative() {
			return nil, fmt.Errorf("order %d: negative cost %s", id, cost)
		}
		m.entries[id] = entity.ShippingMappingEntry{Cost: cost, Carrier: e.Carrier}
	}
	return m, nil
}

func (m *Mapping) Get(orderID int) (entity.ShippingMappingEntry, bool) {
	if m == nil {
		return entity.ShippingMappingEntry{}, false
	}
	e, ok := m.entries[orderID]
	return e, ok
}

func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// ShipmentCosts returns the mapping as ledger rows ordered by order id.
func (m *Mapping) ShipmentCosts() []entity.ShipmentCost {
	if m == nil {
		return nil
	}
	out := make([]entity.ShipmentCost, 0, len(m.entries))
	for id, e := range m.entries {
		out = append(out, entity.ShipmentCost{OrderID: id, Cost: e.Cost, Carrier: e.Carrier})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderID < out[j].OrderID })
	return out
}

var (
	mappingOnce sync.Once
	mapping     *Mapping
	mappingErr  error
)

// LoadMapping loads the mapping file once per process. Later calls return the
// first result whatever path they pass. An empty path yields an empty mapping.
func LoadMapping(path string) (*Mapping, error) {
	mappingOnce.Do(func() {
		mapping, mappingErr = loadMappingFile(path)
	})
	return mapping, mappingErr
}

func loadMappingFile(path string) (*Mapping, error) {
	if path == "" {
		return &Mapping{}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("can't open shipping mapping: %w", err)
	}
	defer f.Close()
	return ParseMapping(f)
}
