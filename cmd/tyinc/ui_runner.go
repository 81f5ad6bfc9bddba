package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"tyinc/internal/driver"
	"tyinc/internal/ui"
)

type checkOutcome struct {
	report *driver.Report
	err    error
}

// runCheckWithUI runs Check while a progress view follows prewarm on
// stderr.
func runCheckWithUI(ctx context.Context, title string, s *driver.Session, opts driver.CheckOptions) (*driver.Report, error) {
	events := make(chan driver.BodyEvent, 256)
	outcomeCh := make(chan checkOutcome, 1)

	go func() {
		opts.Bodies = func(e driver.BodyEvent) { events <- e }
		report, err := driver.Check(ctx, s, opts)
		outcomeCh <- checkOutcome{report: report, err: err}
		close(events)
	}()

	program := tea.NewProgram(ui.NewProgressModel(title, events), tea.WithOutput(os.Stderr), tea.WithInput(nil))
	_, uiErr := program.Run()
	// keep workers unblocked if the view quit early
	for range events {
	}
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.report, uiErr
	}
	return outcome.report, outcome.err
}
