package actions

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Rylogix/VentBoard/internal/cooldown"
	"github.com/Rylogix/VentBoard/internal/gateway"
	"github.com/Rylogix/VentBoard/internal/models"
	"github.com/Rylogix/VentBoard/internal/moderation"
	"github.com/Rylogix/VentBoard/internal/observability"
	"github.com/Rylogix/VentBoard/internal/state"
	"github.com/Rylogix/VentBoard/internal/validation"
)

// SubmitInput is a confession as typed by the user.
type SubmitInput struct {
	Content string
	Mode    models.PostMode
	Name    string
}

// validateName normalizes a display name and rejects blocked words.
func validateName(raw string) (*string, *models.AppError) {
	name, err := validation.NormalizeDisplayName(raw)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if name != nil && (moderation.ContainsSlur(*name) || moderation.ContainsProfanity(*name)) {
		return nil, models.NewValidationError(BlockedName)
	}
	return name, nil
}

func validateSubmission(in SubmitInput) (string, *string, *models.AppError) {
	content := strings.TrimSpace(in.Content)
	if content == "" {
		return "", nil, models.NewValidationError(EmptyContent)
	}
	if moderation.ContainsSlur(content) {
		return "", nil, models.NewValidationError(BlockedContent)
	}
	if in.Mode != models.ModePublic {
		return content, nil, nil
	}
	name, appErr := validateName(in.Name)
	if appErr != nil {
		return "", nil, appErr
	}
	return content, name, nil
}

func (c *Coordinator) rejectSubmit(appErr *models.AppError) error {
	c.store.Patch(func(s *state.State) { s.SubmitError = appErr.Message })
	observability.Submissions.WithLabelValues(strings.ToLower(appErr.Code)).Inc()
	return appErr
}

// Submit posts a confession. Rejections that need no network call happen first; a
// tracked cooldown is checked against the live session before the insert, and a
// permission denial on insert is read as the gateway's own cooldown.
func (c *Coordinator) Submit(ctx context.Context, in SubmitInput) (*models.Confession, error) {
	if appErr := c.configError(); appErr != nil {
		return nil, c.rejectSubmit(appErr)
	}

	content, name, appErr := validateSubmission(in)
	if appErr != nil {
		return nil, c.rejectSubmit(appErr)
	}

	current := c.store.GetState()
	if current.UserID == "" {
		message := current.AuthError
		if message == "" {
			message = ConnectingMessage
		}
		return nil, c.rejectSubmit(models.NewAuthNotReadyError(message, nil))
	}

	tx, ok := c.begin(func(s state.State) bool { return !s.Submitting }, func(s *state.State) {
		s.Submitting = true
		s.SubmitError = ""
	})
	if !ok {
		return nil, c.rejectSubmit(models.NewValidationError(AlreadySubmitting))
	}
	fail := func(appErr *models.AppError) error {
		tx.rollback(func(s *state.State) {
			s.Submitting = false
			s.SubmitError = appErr.Message
		})
		observability.Submissions.WithLabelValues(strings.ToLower(appErr.Code)).Inc()
		return appErr
	}

	session, appErr := c.liveSession(ctx)
	if appErr != nil {
		return nil, fail(appErr)
	}

	now := c.now()
	if latest := c.store.GetState(); latest.CooldownActive(now) {
		return nil, fail(models.NewPermissionDeniedError(cooldown.RemainingMessage(latest.CooldownEnd.Sub(now)), nil))
	}

	post := models.NewConfession{
		Content:    content,
		Visibility: models.VisibilityPublic,
		UserID:     session.UserID,
	}
	if in.Mode == models.ModePublic && c.opts.Capabilities.PostNames {
		post.Name = name
	}

	row, err := c.gw.InsertPost(ctx, post)
	if err == nil && row == nil {
		err = errors.New("insert returned no row")
	}
	if err != nil {
		c.logInsertError(ctx, err)
		if gateway.IsPermissionDenied(err) {
			message := TryLaterMessage
			if end := c.recoverCooldownEnd(ctx, session.UserID); end != nil && end.After(now) {
				message = cooldown.RemainingMessage(end.Sub(now))
			}
			return nil, fail(models.NewPermissionDeniedError(message, err))
		}
		return nil, fail(models.NewTransportError(gateway.Message(err, SubmitFailed), err))
	}

	end := cooldown.EndFor(row.CreatedAt)
	ref := models.SubmissionRef{ID: row.ID, CreatedAt: row.CreatedAt}
	public := row.Visibility == "" || row.Visibility == models.VisibilityPublic
	tx.commit(func(s *state.State) {
		s.Submitting = false
		s.SubmitError = ""
		s.LastSubmitted = &ref
		s.CooldownEnd = &end
		if public {
			s.Confessions = append([]models.Confession{*row}, s.Confessions...)
			s.Page.Offset++
			if s.Total != nil {
				total := *s.Total + 1
				s.Total = &total
			}
		}
	})
	c.cooldowns.Write(ctx, session.UserID, cooldown.NewRecord(row.ID, row.CreatedAt))
	observability.Submissions.WithLabelValues("ok").Inc()

	return row, nil
}

func (c *Coordinator) logInsertError(ctx context.Context, err error) {
	attrs := []any{"error", err}
	var gwErr *gateway.Error
	if errors.As(err, &gwErr) {
		attrs = append(attrs, "code", gwErr.Code, "details", gwErr.Details, "hint", gwErr.Hint)
	}
	c.logger.ErrorContext(ctx, "confession insert failed", attrs...)
}

// recoverCooldownEnd reconstructs the cooldown deadline after the gateway denied an
// insert: from the user's latest post when readable, else from the cache, else from
// what the store tracks.
func (c *Coordinator) recoverCooldownEnd(ctx context.Context, userID string) *time.Time {
	latest, err := c.gw.QueryLatestPostByUser(ctx, userID)
	switch {
	case err == nil && latest != nil:
		c.applyLatest(ctx, userID, latest)
		end := cooldown.EndFor(latest.CreatedAt)
		return &end
	case err != nil:
		c.logger.DebugContext(ctx, "latest confession lookup failed", "error", err, "denied", gateway.IsPermissionDenied(err))
	}

	if record := c.cooldowns.Read(ctx, userID); record != nil {
		if end := record.End(); end != nil {
			return end
		}
	}
	return c.store.GetState().CooldownEnd
}

// applyLatest tracks latest as the user's last submission and caches it, unless a
// submission created at the same time or later is already tracked.
func (c *Coordinator) applyLatest(ctx context.Context, userID string, latest *models.Confession) {
	record := cooldown.NewRecord(latest.ID, latest.CreatedAt)
	if c.track(record.LastSubmitted, cooldown.EndFor(latest.CreatedAt)) {
		c.cooldowns.Write(ctx, userID, record)
	}
}

// applyRecord tracks a cached record under the same rule as applyLatest. It reports
// whether the record names a submission at all.
func (c *Coordinator) applyRecord(record *cooldown.Record) bool {
	if record == nil || record.LastSubmitted == nil {
		return false
	}
	if end := record.End(); end != nil {
		c.track(record.LastSubmitted, *end)
	} else {
		c.store.UpdateIf(func(prev state.State) (state.State, bool) {
			if !newer(prev.LastSubmitted, record.LastSubmitted) {
				return prev, false
			}
			prev.LastSubmitted = record.LastSubmitted
			prev.CooldownEnd = nil
			return prev, true
		})
	}
	return true
}

// track sets ref and its cooldown end when ref is newer than the tracked submission.
// Lookups run concurrently with Submit, so a stale answer must never replace a fresh post.
func (c *Coordinator) track(ref *models.SubmissionRef, end time.Time) bool {
	return c.store.UpdateIf(func(prev state.State) (state.State, bool) {
		if !newer(prev.LastSubmitted, ref) {
			return prev, false
		}
		prev.LastSubmitted = ref
		prev.CooldownEnd = &end
		return prev, true
	})
}

func newer(tracked, candidate *models.SubmissionRef) bool {
	return tracked == nil || candidate.CreatedAt.After(tracked.CreatedAt)
}

// HydrateCooldown restores the cooldown for userID after sign-in: from the user's latest
// post when the gateway allows reading it, otherwise from the cache. It never fails.
func (c *Coordinator) HydrateCooldown(ctx context.Context, userID string) {
	if userID == "" || c.opts.ConfigError != "" {
		return
	}

	latest, err := c.gw.QueryLatestPostByUser(ctx, userID)
	stored := c.cooldowns.Read(ctx, userID)
	if err != nil {
		if !gateway.IsPermissionDenied(err) {
			c.logger.WarnContext(ctx, "[auth] cooldown lookup failed", "error", err)
		}
		c.applyRecord(stored)
		return
	}

	switch {
	case latest != nil:
		c.applyLatest(ctx, userID, latest)
	case c.applyRecord(stored):
	case c.store.GetState().LastSubmitted == nil:
		c.cooldowns.Clear(ctx, userID)
	}
}
