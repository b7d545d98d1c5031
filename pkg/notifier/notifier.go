// Package notifier sends desktop notifications when exports finish
package notifier

import (
	"fmt"
	"time"

	"github.com/gen2brain/beeep"

	"github.com/cryexport/cryexport/pkg/logger"
)

// SendFunc delivers one notification; beeep.Notify by default
type SendFunc func(title, message, icon string) error

// ExportNotifier handles export notifications
type ExportNotifier struct {
	enabled bool
	sound   bool
	send    SendFunc
	beep    func() error
	logger  logger.Logger
}

// Config represents notification configuration
type Config struct {
	Enabled bool
	// Sound beeps on failure
	Sound bool
	// Send overrides the desktop backend
	Send SendFunc
}

// New creates a new export notifier
func New(config Config, log logger.Logger) *ExportNotifier {
	if log == nil {
		log = logger.Discard()
	}
	send := config.Send
	if send == nil {
		send = func(title, message, icon string) error {
			return beeep.Notify(title, message, icon)
		}
	}
	return &ExportNotifier{
		enabled: config.Enabled,
		sound:   config.Sound,
		send:    send,
		beep: func() error {
			return beeep.Beep(beeep.DefaultFreq, beeep.DefaultDuration)
		},
		logger: log,
	}
}

// NotifyExportSuccess notifies that an export finished
func (n *ExportNotifier) NotifyExportSuccess(projectName, dest string, duration time.Duration) {
	if !n.enabled {
		return
	}

	title := "✅ Export Succeeded"
	message := fmt.Sprintf("%s exported to %s in %s", projectName, dest, formatDuration(duration))
	n.sendNotification(title, message, false)
}

// NotifyExportFailure notifies that an export failed
func (n *ExportNotifier) NotifyExportFailure(projectName string, err error) {
	if !n.enabled {
		return
	}

	title := "❌ Export Failed"
	message := fmt.Sprintf("%s: %v", projectName, err)
	n.sendNotification(title, message, n.sound)
}

func (n *ExportNotifier) sendNotification(title, message string, withSound bool) {
	if err := n.send(title, message, ""); err != nil {
		// No notification daemon; the log line still reports the outcome
		n.logger.Debug("Failed to send notification", logger.WithField("error", err))
	}

	if withSound {
		if err := n.beep(); err != nil {
			n.logger.Debug("Failed to play sound", logger.WithField("error", err))
		}
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
