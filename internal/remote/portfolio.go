package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/folio/internal/domain"
)

// holdingDTO is the wire shape of a holding: the brokerage mapping is nested
// under StockMaster and the canonical master under StockReference.
type holdingDTO struct {
	ID          int             `json:"id"`
	Qty         int64           `json:"Qty"`
	AvgCost     decimal.Decimal `json:"AvgCost"`
	BrokerageID int             `json:"BrokerageId"`
	StockMaster *struct {
		ID             int                 `json:"id"`
		BrokerageCode  string              `json:"BrokerageCode"`
		BrokerageID    int                 `json:"BrokerageId"`
		Brokerage      *domain.Brokerage   `json:"Brokerage"`
		StockReference *domain.StockMaster `json:"StockReference"`
	} `json:"StockMaster"`
}

func (d holdingDTO) toDomain() domain.Holding {
	h := domain.Holding{
		ID:          d.ID,
		Quantity:    d.Qty,
		AverageCost: d.AvgCost,
		BrokerageID: d.BrokerageID,
	}
	if m := d.StockMaster; m != nil {
		h.MappingID = m.ID
		h.BrokerageCode = m.BrokerageCode
		h.Brokerage = m.Brokerage
		h.StockMaster = m.StockReference
		if m.BrokerageID != 0 {
			h.BrokerageID = m.BrokerageID
		}
		if h.BrokerageID == 0 && m.Brokerage != nil {
			h.BrokerageID = m.Brokerage.ID
		}
	}
	return h
}

// Portfolio fetches the holdings uploaded for date.
func (c *Client) Portfolio(ctx context.Context, date domain.Date) ([]domain.Holding, error) {
	var resp struct {
		Portfolio []holdingDTO `json:"portfolio"`
	}
	path := "/portfolio?" + url.Values{"date": {date.String()}}.Encode()
	if err := c.callJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching portfolio for %s: %w", date, err)
	}

	holdings := make([]domain.Holding, len(resp.Portfolio))
	for i, d := range resp.Portfolio {
		holdings[i] = d.toDomain()
	}
	return holdings, nil
}

// PortfolioDates lists the dates with at least one uploaded holding.
func (c *Client) PortfolioDates(ctx context.Context) ([]domain.Date, error) {
	var resp struct {
		Dates []domain.Date `json:"dates"`
	}
	if err := c.callJSON(ctx, http.MethodGet, "/portfolio/dates", nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching portfolio dates: %w", err)
	}
	return resp.Dates, nil
}

// Upload is a holdings file for one brokerage and date.
type Upload struct {
	Filename    string
	Content     io.Reader
	BrokerageID int
	Date        domain.Date
}

// UploadHoldings posts the file as multipart form data and returns the server message.
func (c *Client) UploadHoldings(ctx context.Context, u Upload) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile("file", u.Filename)
	if err != nil {
		return "", fmt.Errorf("creating form file: %w", err)
	}
	if _, err := io.Copy(part, u.Content); err != nil {
		return "", fmt.Errorf("reading %s: %w", u.Filename, err)
	}
	if err := w.WriteField("brokerageId", strconv.Itoa(u.BrokerageID)); err != nil {
		return "", fmt.Errorf("writing brokerageId field: %w", err)
	}
	if err := w.WriteField("date", u.Date.String()); err != nil {
		return "", fmt.Errorf("writing date field: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("closing multipart body: %w", err)
	}

	r := request{
		method:      http.MethodPost,
		path:        "/portfolio/upload",
		body:        buf.Bytes(),
		contentType: w.FormDataContentType(),
	}
	var env Envelope
	if err := c.call(ctx, r, &env); err != nil {
		return "", fmt.Errorf("uploading %s: %w", u.Filename, err)
	}
	return env.Message, nil
}

// RangeDelete selects the holdings of one brokerage between two dates, inclusive.
type RangeDelete struct {
	BrokerageID int         `json:"brokerageId"`
	FromDate    domain.Date `json:"fromDate"`
	ToDate      domain.Date `json:"toDate"`
}

// DeletePortfolioRange removes holdings in the range and returns the server message.
func (c *Client) DeletePortfolioRange(ctx context.Context, rd RangeDelete) (string, error) {
	var env Envelope
	if err := c.callJSON(ctx, http.MethodDelete, "/portfolio", rd, &env); err != nil {
		return "", fmt.Errorf("deleting portfolio %s..%s: %w", rd.FromDate, rd.ToDate, err)
	}
	return env.Message, nil
}

// DefaultBrokerage returns the user's default brokerage, nil when none is set.
func (c *Client) DefaultBrokerage(ctx context.Context) (*domain.Brokerage, error) {
	var resp struct {
		DefaultBrokerage   *domain.Brokerage `json:"defaultBrokerage"`
		DefaultBrokerageID *int              `json:"defaultBrokerageId"`
	}
	if err := c.callJSON(ctx, http.MethodGet, "/users/me/default-brokerage", nil, &resp); err != nil {
		return nil, fmt.Errorf("fetching default brokerage: %w", err)
	}
	if resp.DefaultBrokerage != nil {
		return resp.DefaultBrokerage, nil
	}
	if resp.DefaultBrokerageID != nil && *resp.DefaultBrokerageID != 0 {
		return &domain.Brokerage{ID: *resp.DefaultBrokerageID}, nil
	}
	return nil, nil
}

// SetDefaultBrokerage stores the user's default brokerage.
func (c *Client) SetDefaultBrokerage(ctx context.Context, brokerageID int) error {
	payload := map[string]int{"brokerageId": brokerageID}
	if err := c.callJSON(ctx, http.MethodPut, "/users/me/default-brokerage", payload, nil); err != nil {
		return fmt.Errorf("setting default brokerage %d: %w", brokerageID, err)
	}
	return nil
}
