// Package main is the entry point for the HydraPing application
package main

import (
	"io"
	"log"
	"os"
	"runtime"
	"strings"

	"github.com/hydraping/hydraping/internal/app"
	"github.com/hydraping/hydraping/internal/tray"
)

// filteredLogWriter filters out false positive systray errors on Windows
type filteredLogWriter struct {
	writer io.Writer
}

func (w *filteredLogWriter) Write(p []byte) (n int, err error) {
	msg := string(p)

	// On Windows, filter out false positive systray errors that indicate success
	// The German message "Der Vorgang wurde erfolgreich beendet" means "The operation completed successfully"
	// This is a bug in the energye/systray library where it logs success as an error
	if runtime.GOOS == "windows" {
		if strings.Contains(msg, "systray error: unable to set icon") &&
			(strings.Contains(msg, "Der Vorgang wurde erfolgreich beendet") ||
				strings.Contains(msg, "The operation completed successfully") ||
				strings.Contains(msg, "L'opération a réussi")) { // French
			return len(p), nil // Swallow the false error
		}
	}

	return w.writer.Write(p)
}

func main() {
	// Set up filtered logging on Windows to suppress false systray errors
	if runtime.GOOS == "windows" {
		log.SetOutput(&filteredLogWriter{writer: os.Stderr})
	}

	if !tray.IsTraySupported() {
		log.Fatal("system tray is not supported on this platform")
	}

	application, err := app.New()
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}

	icon := tray.NewIcon(application.GetSettings(), tray.Callbacks{
		OnDrink:  func() { application.LogIntake(0) },
		OnSnooze: func() { application.Snooze() },
		OnReset:  func() { application.ResetToday() },
		OnTest: func() {
			if err := application.SendTestNotification(); err != nil {
				log.Printf("test notification failed: %v", err)
			}
		},
		OnQuit: func() { application.Quit() },
	})
	application.AttachTray(icon)
	application.Startup()

	// Blocks until Quit; must run on the main goroutine.
	icon.Run()

	application.Shutdown()
}
