// Package notifier sends desktop notifications for distillation runs
package notifier

import (
	"fmt"
	"time"

	"github.com/gen2brain/beeep"
	"github.com/poltergeist/distill/pkg/interfaces"
	"github.com/poltergeist/distill/pkg/logger"
)

var _ interfaces.DistillNotifier = (*DistillNotifier)(nil)

// Config represents notification configuration
type Config struct {
	Enabled bool
	// BeepOnFailure plays a system beep when a run fails.
	BeepOnFailure bool
}

// DistillNotifier reports run outcomes through desktop notifications
type DistillNotifier struct {
	enabled       bool
	beepOnFailure bool
	logger        logger.Logger
	send          func(title, message string) error
}

// New creates a new distill notifier
func New(config Config, log logger.Logger) *DistillNotifier {
	if log == nil {
		log = logger.Nop()
	}
	return &DistillNotifier{
		enabled:       config.Enabled,
		beepOnFailure: config.BeepOnFailure,
		logger:        log,
		send: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
	}
}

// NotifyDistillStart is silent; runs are usually short
func (n *DistillNotifier) NotifyDistillStart(session string) {
	n.logger.Debug("Distillation started", logger.WithField("session", session))
}

// NotifyDistillSuccess notifies that a run completed
func (n *DistillNotifier) NotifyDistillSuccess(session string, files int, duration time.Duration) {
	if !n.enabled {
		return
	}
	n.notify("Distill succeeded", fmt.Sprintf("%d files distilled in %s", files, formatDuration(duration)))
}

// NotifyDistillFailure notifies that a run failed
func (n *DistillNotifier) NotifyDistillFailure(session string, err error) {
	if !n.enabled {
		return
	}
	n.notify("Distill failed", err.Error())

	if n.beepOnFailure {
		if err := beeep.Beep(beeep.DefaultFreq, beeep.DefaultDuration); err != nil {
			n.logger.Debug("Failed to play sound", logger.WithField("error", err))
		}
	}
}

func (n *DistillNotifier) notify(title, message string) {
	if err := n.send(title, message); err != nil {
		// Headless hosts have no notification daemon; fall back to the log.
		n.logger.Info(fmt.Sprintf("%s: %s", title, message))
		n.logger.Debug("Failed to send notification", logger.WithField("error", err))
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}
