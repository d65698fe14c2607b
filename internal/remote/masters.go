package remote

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mtlprog/folio/internal/domain"
)

// SectorUpdate renames one sector.
type SectorUpdate struct {
	SectorID int    `json:"sectorId"`
	Name     string `json:"name"`
}

// StockMasterUpdate reassigns the sector of one stock master.
type StockMasterUpdate struct {
	StockMasterID int `json:"stockMasterId"`
	SectorID      int `json:"sectorId"`
}

// MappingUpdate points one brokerage mapping at a stock master.
type MappingUpdate struct {
	StockID       int `json:"stockId"`
	StockMasterID int `json:"stockMasterId"`
}

type batchUpdate[T any] struct {
	Updates []T `json:"updates"`
}

type batchDelete struct {
	IDs []int `json:"ids"`
}

// Sectors lists every sector.
func (c *Client) Sectors(ctx context.Context) ([]domain.Sector, error) {
	var resp struct {
		Sectors []domain.Sector `json:"sectors"`
	}
	if err := c.callJSON(ctx, http.MethodGet, "/sectors", nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching sectors: %w", err)
	}
	return resp.Sectors, nil
}

// CreateSector adds a sector and returns it with its server-assigned id.
func (c *Client) CreateSector(ctx context.Context, name string) (domain.Sector, error) {
	var resp struct {
		Sector *domain.Sector `json:"sector"`
	}
	if err := c.callJSON(ctx, http.MethodPost, "/sectors", map[string]string{"name": name}, &resp); err != nil {
		return domain.Sector{}, fmt.Errorf("creating sector %q: %w", name, err)
	}
	if resp.Sector == nil {
		return domain.Sector{}, fmt.Errorf("creating sector %q: response has no sector", name)
	}
	return *resp.Sector, nil
}

// UpdateSectors renames sectors in one batch.
func (c *Client) UpdateSectors(ctx context.Context, updates []SectorUpdate) (BatchResult, error) {
	return c.batch(ctx, http.MethodPut, "/sectors", batchUpdate[SectorUpdate]{Updates: updates})
}

// DeleteSectors removes sectors in one batch.
func (c *Client) DeleteSectors(ctx context.Context, ids []int) (BatchResult, error) {
	return c.batch(ctx, http.MethodDelete, "/sectors", batchDelete{IDs: ids})
}

// StockMasters lists every stock master with its embedded sector.
func (c *Client) StockMasters(ctx context.Context) ([]domain.StockMaster, error) {
	var resp struct {
		StockMasters []domain.StockMaster `json:"stockMasters"`
	}
	if err := c.callJSON(ctx, http.MethodGet, "/stock-masters", nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching stock masters: %w", err)
	}
	return resp.StockMasters, nil
}

// CreateStockMaster adds a stock master assigned to sectorID (zero for none).
func (c *Client) CreateStockMaster(ctx context.Context, code string, sectorID int) (domain.StockMaster, error) {
	payload := struct {
		Code     string `json:"code"`
		SectorID int    `json:"sectorId"`
	}{code, sectorID}

	var resp struct {
		StockMaster *domain.StockMaster `json:"stockMaster"`
	}
	if err := c.callJSON(ctx, http.MethodPost, "/stock-masters", payload, &resp); err != nil {
		return domain.StockMaster{}, fmt.Errorf("creating stock master %q: %w", code, err)
	}
	if resp.StockMaster == nil {
		return domain.StockMaster{}, fmt.Errorf("creating stock master %q: response has no stock master", code)
	}
	return *resp.StockMaster, nil
}

// UpdateStockMasters reassigns sectors in one batch.
func (c *Client) UpdateStockMasters(ctx context.Context, updates []StockMasterUpdate) (BatchResult, error) {
	return c.batch(ctx, http.MethodPut, "/stock-masters", batchUpdate[StockMasterUpdate]{Updates: updates})
}

// DeleteStockMasters removes stock masters in one batch.
func (c *Client) DeleteStockMasters(ctx context.Context, ids []int) (BatchResult, error) {
	return c.batch(ctx, http.MethodDelete, "/stock-masters", batchDelete{IDs: ids})
}

// Mappings lists brokerage mappings with embedded stock master and brokerage.
func (c *Client) Mappings(ctx context.Context) ([]domain.BrokerageMapping, error) {
	var resp struct {
		Mappings []domain.BrokerageMapping `json:"stockMapper"`
	}
	if err := c.callJSON(ctx, http.MethodGet, "/stock-mappings", nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching stock mappings: %w", err)
	}
	return resp.Mappings, nil
}

// UpdateMappings re-points mappings in one batch.
func (c *Client) UpdateMappings(ctx context.Context, updates []MappingUpdate) (BatchResult, error) {
	return c.batch(ctx, http.MethodPut, "/stock-mappings", batchUpdate[MappingUpdate]{Updates: updates})
}

// Brokerages lists the brokerages.
func (c *Client) Brokerages(ctx context.Context) ([]domain.Brokerage, error) {
	var resp struct {
		Brokerages []domain.Brokerage `json:"brokerages"`
	}
	if err := c.callJSON(ctx, http.MethodGet, "/brokerages", nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching brokerages: %w", err)
	}
	return resp.Brokerages, nil
}

func (c *Client) batch(ctx context.Context, method, path string, payload any) (BatchResult, error) {
	endpoint := method + " " + path
	var result BatchResult
	if err := c.callJSON(ctx, method, path, payload, &result); err != nil {
		return BatchResult{}, fmt.Errorf("batch %s: %w", endpoint, err)
	}
	if err := result.err(endpoint); err != nil {
		return result, err
	}
	return result, nil
}
