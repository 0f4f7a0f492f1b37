package jobs

import (
	"context"
	"fmt"
	"path/filepath"

	"impact-registration/internal/domain"
	"impact-registration/internal/logger"
	"impact-registration/internal/service"
	"impact-registration/internal/session"
)

// CheckVerifications reloads the participant's profile and announces every
// registration whose verified flag changed since the previous check. The
// first check only records the current state. It returns the changed records.
func (jr *JobRunner) CheckVerifications(ctx context.Context) ([]domain.RegistrationRecord, error) {
	view := service.NewProfileView(jr.backend, session.New(jr.store, session.RoleUser))
	if err := view.Load(ctx); err != nil {
		jr.reportFailure(view.Message())
		return nil, err
	}

	records := view.Registrations()

	jr.mu.Lock()
	jr.lastErr = ""
	first := jr.verified == nil
	previous := jr.verified
	jr.verified = make(map[string]bool, len(records))
	for _, rec := range records {
		jr.verified[rec.ID] = rec.Verified
	}
	jr.mu.Unlock()

	if first {
		pending := 0
		for _, rec := range records {
			if !rec.Verified {
				pending++
			}
		}
		jr.notifier.Notify(service.Notification{
			Level:  service.LevelInfo,
			Title:  "Watching registrations",
			Detail: fmt.Sprintf("%d pending review, %d verified", pending, len(records)-pending),
		})
		return nil, nil
	}

	var changed []domain.RegistrationRecord
	for _, rec := range records {
		was, known := previous[rec.ID]
		if !known || was == rec.Verified {
			continue
		}
		changed = append(changed, rec)
		if rec.Verified {
			jr.announceVerified(rec)
			continue
		}
		jr.notifier.Notify(service.Notification{
			Level:  service.LevelInfo,
			Title:  "Registration back under review",
			Detail: fmt.Sprintf("%s (%s)", rec.EventName, rec.DisplayName()),
		})
	}

	logger.Info("Verification check completed", "registrations", len(records), "changed", len(changed))
	return changed, nil
}

func (jr *JobRunner) announceVerified(rec domain.RegistrationRecord) {
	detail := fmt.Sprintf("%s (%s) is verified.", rec.EventName, rec.DisplayName())
	if dir := jr.config.Watch.PassDir; dir != "" {
		path := filepath.Join(dir, rec.ID+".png")
		if err := jr.passes.WriteFile(rec, path); err != nil {
			logger.Error("Failed to write entry pass", "registration_id", rec.ID, "path", path, "error", err)
		} else {
			detail += " Entry pass saved to " + path
		}
	}
	jr.notifier.Notify(service.Notification{Level: service.LevelSuccess, Title: "Registration verified", Detail: detail})
}

// reportFailure notifies once per distinct failure so a stalled watch does not repeat itself
func (jr *JobRunner) reportFailure(msg string) {
	jr.mu.Lock()
	repeated := msg == jr.lastErr
	jr.lastErr = msg
	jr.mu.Unlock()
	if repeated || msg == "" {
		return
	}
	jr.notifier.Notify(service.Notification{Level: service.LevelError, Title: "Watch paused", Detail: msg})
}
