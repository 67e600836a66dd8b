package console

import (
	"context"
	"fmt"

	"rawsite/internal/models"

	zlog "github.com/rs/zerolog/log"
)

// Mutations are best effort. A failed call is logged and the affected lists
// are re-read anyway; nothing is retried or rolled back. The returned error
// is only ErrNotAuthenticated, ErrNotConfirmed or a re-list failure.

func (c *Console) UpdateEmailStatus(ctx context.Context, id string, status models.EmailStatus) error {
	token, err := c.bearer()
	if err != nil {
		return err
	}
	if err := c.api.UpdateEmailStatus(ctx, token, id, status); err != nil {
		zlog.Error().Err(err).Str("id", id).Str("status", string(status)).Msg("Update email status")
	}
	return c.loadEmails(ctx)
}

func (c *Console) DeleteEmail(ctx context.Context, id string) error {
	token, err := c.bearer()
	if err != nil {
		return err
	}
	if !c.confirmed("Delete this email permanently?") {
		return ErrNotConfirmed
	}
	if err := c.api.DeleteEmail(ctx, token, id); err != nil {
		zlog.Error().Err(err).Str("id", id).Msg("Delete email")
	}
	return c.loadEmails(ctx)
}

func (c *Console) DeleteVisitor(ctx context.Context, id string) error {
	token, err := c.bearer()
	if err != nil {
		return err
	}
	defer c.Menu.Close()
	if !c.confirmed("Delete this visitor record?") {
		return ErrNotConfirmed
	}
	if err := c.api.DeleteVisitor(ctx, token, id); err != nil {
		zlog.Error().Err(err).Str("id", id).Msg("Delete visitor")
	}
	return c.loadVisitors(ctx)
}

// BlockVisitorIP blocks ip with reason, or the default reason when empty.
// Both the visitor list and the blocked list are re-read.
func (c *Console) BlockVisitorIP(ctx context.Context, ip, reason string) error {
	token, err := c.bearer()
	if err != nil {
		return err
	}
	defer c.Menu.Close()
	if !c.confirmed(fmt.Sprintf("Block IP %s?", ip)) {
		return ErrNotConfirmed
	}
	if reason == "" {
		reason = DefaultBlockReason
	}
	if err := c.api.BlockIP(ctx, token, ip, reason); err != nil {
		zlog.Error().Err(err).Str("ip", ip).Msg("Block IP")
	}
	verr := c.loadVisitors(ctx)
	berr := c.loadBlocked(ctx)
	if verr != nil {
		return verr
	}
	return berr
}

func (c *Console) ToggleBlock(ctx context.Context, id string) error {
	token, err := c.bearer()
	if err != nil {
		return err
	}
	if err := c.api.ToggleBlock(ctx, token, id); err != nil {
		zlog.Error().Err(err).Str("id", id).Msg("Toggle block")
	}
	return c.loadBlocked(ctx)
}

func (c *Console) DeleteBlock(ctx context.Context, id string) error {
	token, err := c.bearer()
	if err != nil {
		return err
	}
	if !c.confirmed("Remove this block entry?") {
		return ErrNotConfirmed
	}
	if err := c.api.DeleteBlock(ctx, token, id); err != nil {
		zlog.Error().Err(err).Str("id", id).Msg("Delete block")
	}
	return c.loadBlocked(ctx)
}

// FilterByIP narrows the visitor list to one address.
func (c *Console) FilterByIP(ctx context.Context, ip string) error {
	c.Menu.Close()
	return c.SetVisitorSearch(ctx, ip)
}
