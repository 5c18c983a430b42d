package navigate

import (
	"context"
	"fmt"
	"strings"

	"github.com/hazyhaar/vidharvest/harvest/internal/attempt"
	"github.com/hazyhaar/vidharvest/harvest/outcome"
	"github.com/hazyhaar/vidharvest/harvest/surface"
)

// login runs the two-screen identifier/secret flow. A missing identifier
// field means the session is already signed in (carry-over from a previous
// address) and is not an error.
func (m *Machine) login(ctx context.Context) State {
	sel, tm := m.sel, m.tm
	m.navigate(ctx)

	if attempt.Optional(ctx, m.logger, "other-account", tm.OtherAccount, func(ctx context.Context) error {
		return m.click(ctx, sel.OtherAccount, tm.OtherAccount, tm.Navigation)
	}) {
		m.logger.Debug("navigate: chose another account")
	}

	var field surface.Element
	if !attempt.Optional(ctx, m.logger, "identifier-field", tm.Identifier, func(ctx context.Context) error {
		el, err := m.s.WaitSelector(ctx, sel.Identifier, tm.Identifier)
		field = el
		return err
	}) {
		m.logger.Info("navigate: no sign-in form, assuming signed-in session")
		return AwaitingCourseEntry
	}

	if !m.creds.Valid() {
		return m.fail(outcome.ReasonAuthFailed, fmt.Errorf("%w: sign-in form shown but no credentials supplied", ErrAuth))
	}

	if err := field.Fill(ctx, m.creds.Email); err != nil {
		m.logger.Warn("navigate: could not fill identifier", "error", err)
	}
	attempt.Optional(ctx, m.logger, "identifier-next", tm.Submit, func(ctx context.Context) error {
		return m.click(ctx, sel.IdentifierNext, tm.Submit, tm.Navigation)
	})

	var secret surface.Element
	if !attempt.Optional(ctx, m.logger, "secret-field", tm.Secret, func(ctx context.Context) error {
		el, err := m.s.WaitSelector(ctx, sel.Secret, tm.Secret)
		secret = el
		return err
	}) {
		if ctx.Err() != nil {
			return AwaitingCourseEntry
		}
		return m.fail(outcome.ReasonAuthFailed, fmt.Errorf("%w: secret field never appeared", ErrAuth))
	}

	attempt.Optional(ctx, m.logger, "secret-focus", tm.SecretFocus, secret.Click)
	if err := secret.Fill(ctx, m.creds.Password); err != nil {
		m.logger.Warn("navigate: could not type secret", "error", err)
	}
	_ = attempt.Pause(ctx, tm.TypeSettle)

	typed, err := secret.Value(ctx)
	if err != nil || strings.TrimSpace(typed) == "" {
		if ctx.Err() != nil {
			return AwaitingCourseEntry
		}
		return m.fail(outcome.ReasonAuthFailed, fmt.Errorf("%w: secret field still empty after typing", ErrAuth))
	}
	m.logger.Debug("navigate: credentials entered", "credentials", *m.creds)

	attempt.Optional(ctx, m.logger, "sign-in", tm.Submit, func(ctx context.Context) error {
		return m.click(ctx, sel.SecretSubmit, tm.Submit, tm.Submit)
	})

	if !attempt.Optional(ctx, m.logger, "landmark", tm.Landmark, func(ctx context.Context) error {
		_, err := m.s.WaitSelector(ctx, sel.Landmark, tm.Landmark)
		return err
	}) {
		m.logger.Info("navigate: post-login landmark missing, waiting briefly")
		_ = attempt.Pause(ctx, tm.LandmarkWait)
	}

	if attempt.Optional(ctx, m.logger, "stay-signed-in", tm.StaySignedIn, func(ctx context.Context) error {
		return m.click(ctx, sel.StaySignedIn, tm.StaySignedIn, 0)
	}) {
		m.logger.Debug("navigate: dismissed stay-signed-in prompt")
	}

	m.settle(ctx, tm.Settle)
	m.logger.Info("navigate: signed in")
	return AwaitingCourseEntry
}
