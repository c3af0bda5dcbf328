package main

import (
	"context"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"stc/internal/driver"
	"stc/internal/ui"
)

type checkOutcome struct {
	result *driver.Result
	err    error
}

// runCheckWithUI runs the driver in the background and renders its
// progress events until the check finishes.
func runCheckWithUI(ctx context.Context, out io.Writer, root string, opts driver.Options) (*driver.Result, error) {
	paths, err := driver.ListDocuments(root)
	if err != nil {
		return nil, err
	}
	events := make(chan driver.Event, 256)
	outcomeCh := make(chan checkOutcome, 1)

	go func() {
		opts.Progress = driver.ChannelSink{Ch: events}
		res, err := driver.CheckFiles(ctx, root, paths, opts)
		outcomeCh <- checkOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel("checking "+root, root, paths, events)
	program := tea.NewProgram(model, tea.WithOutput(out), tea.WithInput(nil))
	_, uiErr := program.Run()
	// UI могла завершиться раньше; канал дочитываем, чтобы драйвер не встал
	for range events {
	}
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}
