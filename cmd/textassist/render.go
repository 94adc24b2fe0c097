package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"ai-textassist-be/internal/client/api"
	"ai-textassist-be/internal/client/entitlement"
	"ai-textassist-be/internal/client/storebridge"
	"ai-textassist-be/internal/dto"
	"ai-textassist-be/internal/tier"

	"github.com/fatih/color"
)

var (
	success = color.New(color.FgGreen)
	info    = color.New(color.FgCyan)
	warn    = color.New(color.FgYellow)
	failure = color.New(color.FgRed)
	faint   = color.New(color.Faint)
)

func isOffline(err error) bool {
	return api.IsTransient(err)
}

func isQueued(err error) bool {
	return errors.Is(err, storebridge.ErrQueued) || errors.Is(err, storebridge.ErrNoSession)
}

func renderError(w io.Writer, err error) {
	var apiErr *api.Error
	switch {
	case errors.Is(err, api.ErrQuotaExceeded):
		msg := "Daily limit reached."
		if errors.As(err, &apiErr) && apiErr.Limit != nil {
			msg = fmt.Sprintf("You have used all %d actions.", *apiErr.Limit)
		}
		renderUpgrade(w, msg)
	case errors.Is(err, api.ErrLanguageNotAvailable):
		renderUpgrade(w, "This language is not included in your plan.")
	case errors.Is(err, api.ErrTextTooLong):
		failure.Fprintln(w, "Text is too long for your plan.")
	case errors.Is(err, api.ErrUnauthorized):
		failure.Fprintln(w, "Session expired. Run `textassist login`.")
	case errors.Is(err, api.ErrAIFailure):
		failure.Fprintln(w, "The AI service failed. This attempt was not counted against your quota.")
	case isOffline(err):
		failure.Fprintln(w, "Backend unreachable, try again shortly.")
	case errors.As(err, &apiErr):
		failure.Fprintln(w, apiErr.Message)
	}
}

func renderUpgrade(w io.Writer, reason string) {
	warn.Fprintln(w, reason)
	fmt.Fprintln(w, "Upgrade with `textassist purchase starter` or `textassist purchase pro`.")
}

func renderEntitlement(w io.Writer, s *dto.EntitlementStatus) {
	fmt.Fprintf(w, "Plan:      %s\n", s.Tier)
	period := "today"
	if s.IsLifetimeLimit {
		period = "lifetime"
	}
	fmt.Fprintf(w, "Remaining: %d of %d (%s)\n", s.RemainingActions, s.DailyLimit, period)
	fmt.Fprintf(w, "Max text:  %d characters\n", s.MaxTextLength)
	if s.ExpiresAt != nil {
		fmt.Fprintf(w, "Renews:    %s\n", s.ExpiresAt.Local().Format(time.DateOnly))
	}
	if s.IsCancelledButActive {
		warn.Fprintln(w, "Cancelled, active until the date above")
	}
}

func renderSnapshot(w io.Writer, s entitlement.Snapshot) {
	fmt.Fprintf(w, "Plan:      %s\n", s.Tier)
	fmt.Fprintf(w, "Remaining: %d of %d\n", s.RemainingActions, tier.UsageLimit(s.Tier))
	if s.ExpiresAt != nil {
		fmt.Fprintf(w, "Renews:    %s\n", s.ExpiresAt.Local().Format(time.DateOnly))
	}
	if !s.IsBackendSynced && tier.IsPaid(s.Tier) {
		faint.Fprintln(w, "Not yet confirmed by the backend")
	}
}

func renderPending(w io.Writer, a *app) {
	pending, err := a.ledger.LoadAll()
	if err != nil || len(pending) == 0 {
		return
	}
	warn.Fprintf(w, "%d purchase(s) waiting to sync\n", len(pending))
}

func renderAction(w io.Writer, res *dto.ActionResponse) {
	fmt.Fprintln(w, res.Result)
	if changes, ok := res.Metadata["changes"].([]interface{}); ok && len(changes) > 0 {
		faint.Fprintf(w, "%d change(s)\n", len(changes))
	}
	if lang, ok := res.Metadata["detected_source_language"].(string); ok && lang != "" {
		faint.Fprintf(w, "Detected: %s\n", lang)
	}
	faint.Fprintf(w, "%d action(s) left\n", res.RemainingActions)
}

func renderHistory(w io.Writer, res *dto.HistoryListResponse) {
	if len(res.Items) == 0 {
		fmt.Fprintln(w, "No history yet")
		return
	}
	for _, item := range res.Items {
		star := " "
		if item.IsFavorite {
			star = "*"
		}
		label := item.ActionType
		if item.TargetLanguage != nil {
			label += "→" + *item.TargetLanguage
		}
		fmt.Fprintf(w, "%s %s  %-12s %s\n", star, item.Id, label, preview(item.ResultText, 60))
	}
	faint.Fprintf(w, "%d of %d\n", len(res.Items), res.Total)
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
