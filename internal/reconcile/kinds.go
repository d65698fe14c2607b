package reconcile

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"

	"github.com/mtlprog/folio/internal/domain"
	"github.com/mtlprog/folio/internal/remote"
	"github.com/mtlprog/folio/internal/resolver"
)

// SectorStore is the remote surface used by the sector kind.
type SectorStore interface {
	UpdateSectors(ctx context.Context, updates []remote.SectorUpdate) (remote.BatchResult, error)
	DeleteSectors(ctx context.Context, ids []int) (remote.BatchResult, error)
}

// MasterStore is the remote surface used by the stock master kind.
type MasterStore interface {
	UpdateStockMasters(ctx context.Context, updates []remote.StockMasterUpdate) (remote.BatchResult, error)
	DeleteStockMasters(ctx context.Context, ids []int) (remote.BatchResult, error)
}

// MappingStore is the remote surface used by the mapping kind.
type MappingStore interface {
	UpdateMappings(ctx context.Context, updates []remote.MappingUpdate) (remote.BatchResult, error)
}

// SectorKind renames sectors. The patch is the new name.
type SectorKind struct {
	store   SectorStore
	catalog *resolver.Catalog
}

func (SectorKind) Noun() string           { return "sectors" }
func (SectorKind) ID(s domain.Sector) int { return s.ID }

func (SectorKind) Validate(s domain.Sector, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("sector %d: name must not be empty", s.ID)
	}
	return nil
}

func (k SectorKind) Update(ctx context.Context, edits []Edit[domain.Sector, string]) error {
	updates := lo.Map(edits, func(e Edit[domain.Sector, string], _ int) remote.SectorUpdate {
		return remote.SectorUpdate{SectorID: e.Entity.ID, Name: strings.TrimSpace(e.Patch)}
	})
	_, err := k.store.UpdateSectors(ctx, updates)
	return err
}

func (SectorKind) Apply(s domain.Sector, name string) domain.Sector {
	s.Name = strings.TrimSpace(name)
	return s
}

func (k SectorKind) Delete(ctx context.Context, ids []int) error {
	_, err := k.store.DeleteSectors(ctx, ids)
	return err
}

// Committed keeps the catalog's sector list in step with the workflow.
func (k SectorKind) Committed(sectors []domain.Sector) {
	k.catalog.SetSectors(sectors)
}

// MasterKind reassigns stock masters to sectors. The patch is the sector id.
type MasterKind struct {
	store   MasterStore
	catalog *resolver.Catalog
}

func (MasterKind) Noun() string                { return "stock masters" }
func (MasterKind) ID(m domain.StockMaster) int { return m.ID }

func (MasterKind) Validate(domain.StockMaster, int) error { return nil }

func (k MasterKind) Update(ctx context.Context, edits []Edit[domain.StockMaster, int]) error {
	updates := lo.Map(edits, func(e Edit[domain.StockMaster, int], _ int) remote.StockMasterUpdate {
		return remote.StockMasterUpdate{StockMasterID: e.Entity.ID, SectorID: e.Patch}
	})
	_, err := k.store.UpdateStockMasters(ctx, updates)
	return err
}

// Apply recomputes the embedded sector from the loaded sector list. An id that is
// not loaded leaves the master without a sector, shown as "Unknown Sector".
func (k MasterKind) Apply(m domain.StockMaster, sectorID int) domain.StockMaster {
	m.SectorID = sectorID
	m.Sector = nil
	if s, ok := k.catalog.SectorByID(sectorID); ok {
		m.Sector = &s
	}
	return m
}

func (k MasterKind) Delete(ctx context.Context, ids []int) error {
	_, err := k.store.DeleteStockMasters(ctx, ids)
	return err
}

func (k MasterKind) Committed(masters []domain.StockMaster) {
	k.catalog.SetMasters(masters)
}

// MappingKind re-points brokerage mappings. The patch is a stock master code.
type MappingKind struct {
	store   MappingStore
	catalog *resolver.Catalog
}

func (MappingKind) Noun() string                     { return "stock mappings" }
func (MappingKind) ID(m domain.BrokerageMapping) int { return m.ID }

func (k MappingKind) Validate(m domain.BrokerageMapping, code string) error {
	if _, ok := k.catalog.Lookup(strings.TrimSpace(code)); !ok {
		return fmt.Errorf("stock master %q not found for %s", strings.TrimSpace(code), m.BrokerageCode)
	}
	return nil
}

func (k MappingKind) Update(ctx context.Context, edits []Edit[domain.BrokerageMapping, string]) error {
	updates := lo.FilterMap(edits, func(e Edit[domain.BrokerageMapping, string], _ int) (remote.MappingUpdate, bool) {
		master, ok := k.catalog.Lookup(strings.TrimSpace(e.Patch))
		return remote.MappingUpdate{StockID: e.Entity.ID, StockMasterID: master.ID}, ok
	})
	_, err := k.store.UpdateMappings(ctx, updates)
	return err
}

func (k MappingKind) Apply(m domain.BrokerageMapping, code string) domain.BrokerageMapping {
	if master, ok := k.catalog.Lookup(strings.TrimSpace(code)); ok {
		m.StockMaster = &master
	}
	return m
}
