// Package resolver maps brokerage codes to canonical stock masters and sectors,
// creating missing records through the remote API.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/samber/lo"

	"github.com/mtlprog/folio/internal/domain"
)

// ErrCancelled is returned when a blank code or name is submitted for creation.
// Callers treat it as a silent cancel.
var ErrCancelled = errors.New("cancelled")

// Creator creates reference records on the remote API.
type Creator interface {
	CreateStockMaster(ctx context.Context, code string, sectorID int) (domain.StockMaster, error)
	CreateSector(ctx context.Context, name string) (domain.Sector, error)
}

// Catalog is the locally loaded master and sector lists.
type Catalog struct {
	creator Creator

	mu      sync.RWMutex
	masters []domain.StockMaster
	sectors []domain.Sector
}

// NewCatalog creates a catalog over already fetched masters and sectors.
func NewCatalog(creator Creator, masters []domain.StockMaster, sectors []domain.Sector) *Catalog {
	if creator == nil {
		panic("resolver.NewCatalog: creator must not be nil")
	}
	return &Catalog{
		creator: creator,
		masters: slices.Clone(masters),
		sectors: slices.Clone(sectors),
	}
}

// Masters returns a copy of the loaded stock masters.
func (c *Catalog) Masters() []domain.StockMaster {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.masters)
}

// Sectors returns a copy of the loaded sectors.
func (c *Catalog) Sectors() []domain.Sector {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.sectors)
}

// SetMasters replaces the loaded stock masters.
func (c *Catalog) SetMasters(masters []domain.StockMaster) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.masters = slices.Clone(masters)
}

// SetSectors replaces the loaded sectors and refreshes the sector embedded in
// each master. A master whose sector is gone is left without one.
func (c *Catalog) SetSectors(sectors []domain.Sector) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sectors = slices.Clone(sectors)

	byID := lo.KeyBy(c.sectors, func(s domain.Sector) int { return s.ID })
	for i := range c.masters {
		c.masters[i].Sector = nil
		if s, ok := byID[c.masters[i].SectorID]; ok {
			c.masters[i].Sector = &s
		}
	}
}

// Lookup finds a stock master by exact code.
func (c *Catalog) Lookup(code string) (domain.StockMaster, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return lo.Find(c.masters, func(m domain.StockMaster) bool { return m.Code == code })
}

// SectorByID finds a loaded sector by id.
func (c *Catalog) SectorByID(id int) (domain.Sector, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return lo.Find(c.sectors, func(s domain.Sector) bool { return s.ID == id })
}

// SectorByName finds a loaded sector by trimmed, case-insensitive name.
func (c *Catalog) SectorByName(name string) (domain.Sector, bool) {
	name = strings.TrimSpace(name)
	c.mu.RLock()
	defer c.mu.RUnlock()
	return lo.Find(c.sectors, func(s domain.Sector) bool {
		return strings.EqualFold(strings.TrimSpace(s.Name), name)
	})
}

// defaultSectorID is the sector currently associated with the row, zero when it has none.
func (c *Catalog) defaultSectorID(row domain.BrokerageMapping) int {
	if id := row.SectorID(); id != 0 {
		if _, ok := c.SectorByID(id); ok {
			return id
		}
	}
	if s, ok := c.SectorByName(row.SectorName()); ok {
		return s.ID
	}
	return 0
}

// ResolveOrCreate returns the master whose code equals candidateCode, creating it
// with the row's current sector when none exists. A failed creation leaves the
// catalog unchanged.
func (c *Catalog) ResolveOrCreate(ctx context.Context, row domain.BrokerageMapping, candidateCode string) (domain.StockMaster, error) {
	return c.ResolveOrCreateCode(ctx, candidateCode, c.defaultSectorID(row))
}

// ResolveOrCreateCode is ResolveOrCreate with an explicit default sector.
func (c *Catalog) ResolveOrCreateCode(ctx context.Context, candidateCode string, sectorID int) (domain.StockMaster, error) {
	code := strings.TrimSpace(candidateCode)
	if code == "" {
		return domain.StockMaster{}, ErrCancelled
	}
	if m, ok := c.Lookup(code); ok {
		return m, nil
	}

	created, err := c.creator.CreateStockMaster(ctx, code, sectorID)
	if err != nil {
		return domain.StockMaster{}, fmt.Errorf("creating stock master %s: %w", code, err)
	}
	if created.Code == "" {
		created.Code = code
	}
	if created.Sector == nil && created.SectorID != 0 {
		if s, ok := c.SectorByID(created.SectorID); ok {
			created.Sector = &s
		}
	}

	c.mu.Lock()
	c.masters = append(c.masters, created)
	c.mu.Unlock()

	slog.Info("Resolver: created stock master", "code", created.Code, "id", created.ID, "sector_id", created.SectorID)
	return created, nil
}

// ResolveOrCreateSector returns the sector named name, creating it when missing.
func (c *Catalog) ResolveOrCreateSector(ctx context.Context, name string) (domain.Sector, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Sector{}, ErrCancelled
	}
	if s, ok := c.SectorByName(name); ok {
		return s, nil
	}
	return c.CreateSector(ctx, name)
}

// CreateSector always creates a sector; names are not required to be unique.
func (c *Catalog) CreateSector(ctx context.Context, name string) (domain.Sector, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Sector{}, ErrCancelled
	}

	created, err := c.creator.CreateSector(ctx, name)
	if err != nil {
		return domain.Sector{}, fmt.Errorf("creating sector %s: %w", name, err)
	}
	if created.Name == "" {
		created.Name = name
	}

	c.mu.Lock()
	c.sectors = append(c.sectors, created)
	c.mu.Unlock()

	slog.Info("Resolver: created sector", "name", created.Name, "id", created.ID)
	return created, nil
}
