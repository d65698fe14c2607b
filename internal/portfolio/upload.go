package portfolio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/mtlprog/folio/internal/domain"
	"github.com/mtlprog/folio/internal/remote"
)

var supportedExtensions = []string{".csv", ".xls", ".xlsx"}

// UploadRequest is a holdings file to forward to the API. A zero BrokerageID
// falls back to the user's default brokerage; a zero Date means today.
type UploadRequest struct {
	Filename    string
	Content     io.Reader
	BrokerageID int
	Date        domain.Date
}

// Upload validates the request and forwards the file. Parsing happens server-side.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (string, error) {
	ext := strings.ToLower(filepath.Ext(req.Filename))
	if !slices.Contains(supportedExtensions, ext) {
		return "", fmt.Errorf("%s: %w", req.Filename, ErrUnsupportedFile)
	}

	today := s.today()
	if req.Date.IsZero() {
		req.Date = today
	}
	if req.Date.After(today) {
		return "", fmt.Errorf("%s: %w", req.Date, ErrFutureDate)
	}

	if req.BrokerageID == 0 {
		def, err := s.remote.DefaultBrokerage(ctx)
		if err != nil {
			return "", fmt.Errorf("resolving default brokerage: %w", err)
		}
		if def == nil {
			return "", ErrBrokerageRequired
		}
		req.BrokerageID = def.ID
	}

	msg, err := s.remote.UploadHoldings(ctx, remote.Upload{
		Filename:    filepath.Base(req.Filename),
		Content:     req.Content,
		BrokerageID: req.BrokerageID,
		Date:        req.Date,
	})
	if err != nil {
		return "", err
	}

	slog.Info("Portfolio: uploaded holdings", "file", filepath.Base(req.Filename), "brokerage_id", req.BrokerageID, "date", req.Date)
	if msg == "" {
		msg = "File uploaded successfully."
	}
	return msg, nil
}

// RangeRequest selects one brokerage's holdings between two dates, inclusive.
type RangeRequest struct {
	BrokerageID int
	From        domain.Date
	To          domain.Date
}

// DeleteRange validates the range, asks confirm with a message naming the
// brokerage and dates, then deletes. A declined confirmation returns ErrDeclined.
func (s *Service) DeleteRange(ctx context.Context, req RangeRequest, confirm func(prompt string) bool) (string, error) {
	if req.BrokerageID == 0 {
		return "", ErrBrokerageRequired
	}
	if req.From.IsZero() || req.To.IsZero() {
		return "", fmt.Errorf("please select both from and to dates: %w", ErrInvalidRange)
	}
	if req.From.After(req.To) {
		return "", fmt.Errorf("%s > %s: %w", req.From, req.To, ErrInvalidRange)
	}

	name := domain.UnknownLabel
	if b, err := s.brokerage(ctx, req.BrokerageID); err == nil {
		name = b.Name
	} else {
		slog.Warn("Portfolio: brokerage lookup failed", "brokerage_id", req.BrokerageID, "error", err)
	}

	prompt := fmt.Sprintf("Are you sure you want to delete the portfolio for brokerage %q from %s to %s?", name, req.From, req.To)
	if confirm != nil && !confirm(prompt) {
		return "", ErrDeclined
	}

	msg, err := s.remote.DeletePortfolioRange(ctx, remote.RangeDelete{
		BrokerageID: req.BrokerageID,
		FromDate:    req.From,
		ToDate:      req.To,
	})
	if err != nil {
		return "", err
	}

	slog.Info("Portfolio: deleted range", "brokerage_id", req.BrokerageID, "from", req.From, "to", req.To)
	if msg == "" {
		msg = "Portfolio deleted successfully."
	}
	return msg, nil
}
