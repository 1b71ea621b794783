package tmix

import (
	"github.com/gen2brain/beeep"
	"go.uber.org/zap"
)

// Notifier provides generic notification sending
type Notifier interface {
	Notify(title string, message string)
}

// ToastNotifier provides toast notifications through the desktop's notification daemon
type ToastNotifier struct {
	logger  *zap.SugaredLogger
	enabled func() bool
}

// NewToastNotifier creates a new ToastNotifier. enabled is consulted before every
// notification so it can follow config reloads; nil means always enabled
func NewToastNotifier(logger *zap.SugaredLogger, enabled func() bool) (*ToastNotifier, error) {
	logger = logger.Named("notifier")

	if enabled == nil {
		enabled = func() bool { return true }
	}

	tn := &ToastNotifier{
		logger:  logger,
		enabled: enabled,
	}

	logger.Debug("Created toast notifier instance")

	return tn, nil
}

// Notify sends a toast notification, or just logs it if notifications are turned off
func (tn *ToastNotifier) Notify(title string, message string) {
	if !tn.enabled() {
		tn.logger.Debugw("Notifications disabled, not sending", "title", title, "message", message)
		return
	}

	tn.logger.Infow("Sending toast notification", "title", title, "message", message)

	if err := beeep.Notify(title, message, ""); err != nil {
		tn.logger.Errorw("Failed to send toast notification", "error", err)
	}
}
