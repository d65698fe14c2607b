package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Fallback labels for denormalized joins that are missing or stale.
const (
	UnknownLabel          = "Unknown"
	UnknownSectorLabel    = "Unknown Sector"
	UnknownBrokerageLabel = "Unknown Brokerage"
	UnknownStockLabel     = "Unknown Stock"
	UnknownCodeLabel      = "Unknown Code"
	UnmappedCode          = "-"
)

// Sector classifies stock masters.
type Sector struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Brokerage is read-mostly reference data from the collaborator API.
type Brokerage struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Code string `json:"code,omitempty"`
}

// StockMaster is the canonical identity of a tradable instrument.
type StockMaster struct {
	ID       int     `json:"id"`
	Code     string  `json:"code"`
	Name     string  `json:"name,omitempty"`
	SectorID int     `json:"sectorId"`
	Sector   *Sector `json:"sector,omitempty"`
}

// DisplayName returns the name when present, otherwise the code.
func (m StockMaster) DisplayName() string {
	if m.Name != "" {
		return m.Name
	}
	return m.Code
}

// SectorName returns the embedded sector name or the "Unknown Sector" label.
func (m StockMaster) SectorName() string {
	if m.Sector == nil || m.Sector.Name == "" {
		return UnknownSectorLabel
	}
	return m.Sector.Name
}

// BrokerageMapping bridges a brokerage-reported code to at most one stock master.
type BrokerageMapping struct {
	ID            int          `json:"id"`
	BrokerageCode string       `json:"brokerageCode"`
	BrokerageID   int          `json:"brokerageId"`
	Brokerage     *Brokerage   `json:"brokerage,omitempty"`
	StockMaster   *StockMaster `json:"stockMaster,omitempty"`
}

// MasterCode returns the mapped master code or the unmapped placeholder.
func (m BrokerageMapping) MasterCode() string {
	if m.StockMaster == nil || m.StockMaster.Code == "" {
		return UnmappedCode
	}
	return m.StockMaster.Code
}

// BrokerageName returns the embedded brokerage name or the "Unknown Brokerage" label.
func (m BrokerageMapping) BrokerageName() string {
	if m.Brokerage == nil || m.Brokerage.Name == "" {
		return UnknownBrokerageLabel
	}
	return m.Brokerage.Name
}

// SectorName returns the sector of the mapped master or the "Unknown Sector" label.
func (m BrokerageMapping) SectorName() string {
	if m.StockMaster == nil {
		return UnknownSectorLabel
	}
	return m.StockMaster.SectorName()
}

// SectorID returns the sector id of the mapped master, zero when unmapped.
func (m BrokerageMapping) SectorID() int {
	if m.StockMaster == nil {
		return 0
	}
	return m.StockMaster.SectorID
}

// Holding is one position in a stock held at a brokerage as of an upload date.
type Holding struct {
	ID            int             `json:"id"`
	MappingID     int             `json:"mappingId"`
	Quantity      int64           `json:"qty"`
	AverageCost   decimal.Decimal `json:"avgCost"`
	BrokerageID   int             `json:"brokerageId"`
	BrokerageCode string          `json:"brokerageCode"`
	Brokerage     *Brokerage      `json:"brokerage,omitempty"`
	StockMaster   *StockMaster    `json:"stockMaster,omitempty"`
}

// TotalCost is quantity times average cost.
func (h Holding) TotalCost() decimal.Decimal {
	return decimal.NewFromInt(h.Quantity).Mul(h.AverageCost)
}

// Resolved reports whether the holding carries a canonical stock master.
func (h Holding) Resolved() bool {
	return h.StockMaster != nil && h.StockMaster.ID != 0
}

// PriceCode returns the code used for market price lookup: the canonical code, else the brokerage code.
func (h Holding) PriceCode() string {
	if h.StockMaster != nil && h.StockMaster.Code != "" {
		return h.StockMaster.Code
	}
	return h.BrokerageCode
}

// SectorID returns the resolved sector id, zero when unresolved.
func (h Holding) SectorID() int {
	if h.StockMaster == nil {
		return 0
	}
	return h.StockMaster.SectorID
}

// Validate checks the non-negativity invariants.
func (h Holding) Validate() error {
	if h.Quantity < 0 {
		return fmt.Errorf("holding %d: negative quantity %d", h.ID, h.Quantity)
	}
	if h.AverageCost.IsNegative() {
		return fmt.Errorf("holding %d: negative average cost %s", h.ID, h.AverageCost)
	}
	return nil
}
