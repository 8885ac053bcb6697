package actions

import (
	"context"

	"github.com/Rylogix/VentBoard/internal/gateway"
	"github.com/Rylogix/VentBoard/internal/models"
	"github.com/Rylogix/VentBoard/internal/state"

	"github.com/samber/lo"
)

// UndoLastSubmission deletes the confession tracked as the user's last submission and
// clears the cooldown that came with it.
func (c *Coordinator) UndoLastSubmission(ctx context.Context) error {
	if appErr := c.configError(); appErr != nil {
		return appErr
	}

	current := c.store.GetState()
	if current.LastSubmitted == nil {
		return models.NewNothingToUndoError()
	}
	id := current.LastSubmitted.ID

	if err := c.gw.DeletePost(ctx, id); err != nil {
		message := gateway.Message(err, UndoFailed)
		c.store.Patch(func(s *state.State) { s.SubmitError = message })
		if gateway.IsPermissionDenied(err) {
			return models.NewPermissionDeniedError(message, err)
		}
		return models.NewTransportError(message, err)
	}

	c.store.Patch(func(s *state.State) {
		remaining := lo.Reject(s.Confessions, func(conf models.Confession, _ int) bool { return conf.ID == id })
		if removed := len(remaining) != len(s.Confessions); removed {
			s.Page.Offset = max(0, s.Page.Offset-1)
			if s.Total != nil {
				total := max(0, *s.Total-1)
				s.Total = &total
			}
		}
		s.Confessions = remaining
		s.LastSubmitted = nil
		s.CooldownEnd = nil
		s.SubmitError = ""
	})

	c.cooldowns.Clear(ctx, current.UserID)
	return nil
}
