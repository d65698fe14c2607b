package portfolio

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mtlprog/folio/internal/domain"
	"github.com/mtlprog/folio/internal/session"
)

// Profile is the user's view of their account settings.
type Profile struct {
	UserID           string            `json:"userId"`
	DefaultBrokerage *domain.Brokerage `json:"defaultBrokerage,omitempty"`
}

// CanSetDefault reports whether the one-time default brokerage prompt may be shown.
func (p Profile) CanSetDefault() bool {
	return p.DefaultBrokerage == nil
}

// Profile returns the user id and default brokerage, with the brokerage name
// filled in when the API returned only its id.
func (s *Service) Profile(ctx context.Context, id session.Identity) (Profile, error) {
	def, err := s.remote.DefaultBrokerage(ctx)
	if err != nil {
		return Profile{}, err
	}
	p := Profile{UserID: id.UserID(), DefaultBrokerage: def}
	if def != nil && def.Name == "" {
		if b, err := s.brokerage(ctx, def.ID); err == nil {
			p.DefaultBrokerage = &b
		}
	}
	return p, nil
}

// SetDefaultBrokerage sets the default brokerage once. When a default is
// already set it returns ErrDefaultAlreadySet without calling the API.
func (s *Service) SetDefaultBrokerage(ctx context.Context, brokerageID int) (domain.Brokerage, error) {
	current, err := s.remote.DefaultBrokerage(ctx)
	if err != nil {
		return domain.Brokerage{}, err
	}
	if current != nil {
		return domain.Brokerage{}, fmt.Errorf("brokerage %d is the default: %w", current.ID, ErrDefaultAlreadySet)
	}

	b, err := s.brokerage(ctx, brokerageID)
	if err != nil {
		return domain.Brokerage{}, err
	}
	if err := s.remote.SetDefaultBrokerage(ctx, brokerageID); err != nil {
		return domain.Brokerage{}, err
	}

	slog.Info("Portfolio: default brokerage set", "brokerage_id", b.ID, "name", b.Name)
	return b, nil
}
