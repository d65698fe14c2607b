package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mtlprog/folio/internal/domain"
	"github.com/mtlprog/folio/internal/resolver"
)

// SectorEditor edits the sector list.
type SectorEditor struct {
	*Workflow[domain.Sector, string]
	catalog *resolver.Catalog
}

// NewSectorEditor creates a sector editor over the catalog's sectors.
func NewSectorEditor(store SectorStore, catalog *resolver.Catalog, notifier Notifier) *SectorEditor {
	kind := SectorKind{store: store, catalog: catalog}
	return &SectorEditor{
		Workflow: New[domain.Sector, string](kind, catalog.Sectors(), notifier),
		catalog:  catalog,
	}
}

// Add creates a sector. A blank name is a silent cancel.
func (e *SectorEditor) Add(ctx context.Context, name string) (domain.Sector, error) {
	if err := e.begin(false); err != nil {
		return domain.Sector{}, err
	}
	defer e.end()

	sector, err := e.catalog.CreateSector(ctx, name)
	if err != nil {
		return domain.Sector{}, e.surfaceCreate("sector", err)
	}
	e.addCommitted(sector)
	e.notify(LevelSuccess, "Sector added successfully.")
	return sector, nil
}

// MasterEditor edits stock master sector assignments.
type MasterEditor struct {
	*Workflow[domain.StockMaster, int]
	catalog *resolver.Catalog
}

// NewMasterEditor creates a stock master editor over the catalog's masters.
func NewMasterEditor(store MasterStore, catalog *resolver.Catalog, notifier Notifier) *MasterEditor {
	kind := MasterKind{store: store, catalog: catalog}
	return &MasterEditor{
		Workflow: New[domain.StockMaster, int](kind, catalog.Masters(), notifier),
		catalog:  catalog,
	}
}

// Add creates a stock master with the given sector unless the code exists.
// A blank code is a silent cancel.
func (e *MasterEditor) Add(ctx context.Context, code string, sectorID int) (domain.StockMaster, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return domain.StockMaster{}, resolver.ErrCancelled
	}
	if err := e.begin(false); err != nil {
		return domain.StockMaster{}, err
	}
	defer e.end()

	if m, exists := e.catalog.Lookup(code); exists {
		e.notify(LevelError, fmt.Sprintf("Stock master %q already exists.", m.Code))
		return domain.StockMaster{}, &noticeError{fmt.Errorf("adding stock master %q: already exists", m.Code)}
	}
	master, err := e.catalog.ResolveOrCreateCode(ctx, code, sectorID)
	if err != nil {
		return domain.StockMaster{}, e.surfaceCreate("stock master", err)
	}
	e.addCommitted(master)
	e.notify(LevelSuccess, "Stock master added successfully.")
	return master, nil
}

// AssignNewSector resolves or creates the sector named name and stages it for
// masterID in the same call. A blank name is a silent cancel.
func (e *MasterEditor) AssignNewSector(ctx context.Context, masterID int, name string) (domain.Sector, error) {
	if err := e.begin(true); err != nil {
		return domain.Sector{}, err
	}
	defer e.end()

	if _, ok := e.find(masterID); !ok {
		return domain.Sector{}, fmt.Errorf("assigning sector to stock master %d: %w", masterID, ErrUnknownEntity)
	}
	sector, err := e.catalog.ResolveOrCreateSector(ctx, name)
	if err != nil {
		return domain.Sector{}, e.surfaceCreate("sector", err)
	}
	e.stageBusy(masterID, sector.ID)
	return sector, nil
}

// MappingEditor edits brokerage mapping assignments.
type MappingEditor struct {
	*Workflow[domain.BrokerageMapping, string]
	catalog *resolver.Catalog
}

// NewMappingEditor creates a mapping editor over mappings.
func NewMappingEditor(store MappingStore, catalog *resolver.Catalog, mappings []domain.BrokerageMapping, notifier Notifier) *MappingEditor {
	kind := MappingKind{store: store, catalog: catalog}
	return &MappingEditor{
		Workflow: New[domain.BrokerageMapping, string](kind, mappings, notifier),
		catalog:  catalog,
	}
}

// AssignNewMaster resolves or creates the stock master with code, using the
// mapping's current sector as default, and stages the association in the same
// call. A failed creation stages nothing.
func (e *MappingEditor) AssignNewMaster(ctx context.Context, mappingID int, code string) (domain.StockMaster, error) {
	if err := e.begin(true); err != nil {
		return domain.StockMaster{}, err
	}
	defer e.end()

	row, ok := e.find(mappingID)
	if !ok {
		return domain.StockMaster{}, fmt.Errorf("assigning stock master to mapping %d: %w", mappingID, ErrUnknownEntity)
	}
	master, err := e.catalog.ResolveOrCreate(ctx, row, code)
	if err != nil {
		return domain.StockMaster{}, e.surfaceCreate("stock master", err)
	}
	e.stageBusy(mappingID, master.Code)
	return master, nil
}

// surfaceCreate reports a failed creation once. A cancel is passed through silently.
func (w *Workflow[E, P]) surfaceCreate(what string, err error) error {
	if errors.Is(err, resolver.ErrCancelled) {
		return err
	}
	w.notify(LevelError, fmt.Sprintf("Failed to add %s: %v", what, err))
	return &noticeError{err}
}
