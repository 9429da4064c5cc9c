// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/patchbay-dev/patchbay/lib/schema"
)

// defaultWidth is used until the first WindowSizeMsg arrives.
const defaultWidth = 80

// statusMsg carries a snapshot from the injector.
type statusMsg struct {
	status schema.RunStatus
}

// streamClosedMsg reports that the status channel closed.
type streamClosedMsg struct{}

// heatTickMsg drives the heat decay animation.
type heatTickMsg struct{}

// RunModel shows one run's progress.
type RunModel struct {
	theme   Theme
	keys    KeyMap
	updates <-chan schema.RunStatus
	stop    func()
	now     func() time.Time

	status  schema.RunStatus
	seen    bool
	spinner spinner.Model
	bar     progress.Model
	heat    *HeatTracker
	width   int

	stopped bool
	ended   bool
}

// NewRunModel returns a model that renders snapshots from updates and
// calls stop when the operator abandons the run.
func NewRunModel(updates <-chan schema.RunStatus, stop func()) RunModel {
	theme := DefaultTheme
	return RunModel{
		theme:   theme,
		keys:    DefaultKeyMap,
		updates: updates,
		stop:    stop,
		now:     time.Now,
		spinner: spinner.New(
			spinner.WithSpinner(spinner.Dot),
			spinner.WithStyle(lipgloss.NewStyle().Foreground(theme.StatusRunning)),
		),
		bar: progress.New(
			progress.WithGradient(theme.ProgressStart, theme.ProgressEnd),
			progress.WithWidth(defaultWidth-8),
		),
		heat:  NewHeatTracker(),
		width: defaultWidth,
	}
}

// Status returns the last snapshot the model received.
func (model RunModel) Status() schema.RunStatus { return model.status }

// Stopped reports whether the operator abandoned the run.
func (model RunModel) Stopped() bool { return model.stopped }

// Init implements tea.Model.
func (model RunModel) Init() tea.Cmd {
	return tea.Batch(listenForStatus(model.updates), model.spinner.Tick)
}

func listenForStatus(updates <-chan schema.RunStatus) tea.Cmd {
	return func() tea.Msg {
		status, ok := <-updates
		if !ok {
			return streamClosedMsg{}
		}
		return statusMsg{status: status}
	}
}

func scheduleHeatTick() tea.Cmd {
	return tea.Tick(HeatTickInterval, func(time.Time) tea.Msg {
		return heatTickMsg{}
	})
}

// Update implements tea.Model.
func (model RunModel) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case statusMsg:
		wasHot := model.heat.HasHot(model.now())
		model.absorb(message.status)
		if model.ended {
			return model, tea.Quit
		}
		commands := []tea.Cmd{listenForStatus(model.updates)}
		if !wasHot && model.heat.HasHot(model.now()) {
			commands = append(commands, scheduleHeatTick())
		}
		return model, tea.Batch(commands...)

	case streamClosedMsg:
		model.ended = true
		return model, tea.Quit

	case heatTickMsg:
		if model.heat.HasHot(model.now()) {
			return model, scheduleHeatTick()
		}
		return model, nil

	case spinner.TickMsg:
		var command tea.Cmd
		model.spinner, command = model.spinner.Update(message)
		return model, command

	case tea.WindowSizeMsg:
		model.width = message.Width
		model.bar.Width = max(10, message.Width-8)
		return model, nil

	case tea.KeyMsg:
		if model.ended && key.Matches(message, model.keys.Close) {
			return model, tea.Quit
		}
		if key.Matches(message, model.keys.Stop) {
			model.stopped = true
			model.ended = true
			if model.stop != nil {
				model.stop()
			}
			return model, tea.Quit
		}
	}
	return model, nil
}

// absorb folds a snapshot into the model, igniting every stage whose
// status changed.
func (model *RunModel) absorb(status schema.RunStatus) {
	now := model.now()
	for _, stage := range rowStages() {
		next := status.StageStatus(stage)
		if next == model.status.StageStatus(stage) {
			continue
		}
		kind := HeatPut
		if next == schema.StatusError {
			kind = HeatRemove
		}
		model.heat.Ignite(stage, kind, now)
	}
	model.status = status
	if status.Running {
		model.seen = true
	}
	// A cleared status after the run was seen means it was stopped
	// elsewhere.
	if !status.Running && (model.seen || status.Finished() || status.Error != nil) {
		model.ended = true
	}
}

func rowStages() []schema.Stage {
	stages := []schema.Stage{schema.StageStart}
	stages = append(stages, schema.InjectionStages()...)
	return append(stages, schema.StageEnd)
}

// View implements tea.Model.
func (model RunModel) View() string {
	var builder strings.Builder
	now := model.now()

	header := lipgloss.NewStyle().Bold(true).Foreground(model.theme.HeaderForeground)
	title := "Waiting for run"
	if model.status.TargetName != "" {
		title = fmt.Sprintf("%s %s", model.status.TargetName, model.status.TargetVersion)
	}
	builder.WriteString(header.Render(ansi.Truncate(title, model.width, "…")))
	builder.WriteString("\n\n")

	for _, stage := range rowStages() {
		builder.WriteString(model.renderRow(stage, now))
		builder.WriteString("\n")
	}

	builder.WriteString("\n  ")
	builder.WriteString(model.bar.ViewAs(model.status.Progress))
	builder.WriteString("\n")

	if runError := model.status.Error; runError != nil {
		errorStyle := lipgloss.NewStyle().Foreground(model.theme.StatusError)
		line := fmt.Sprintf("%s failed (%s): %s", runError.Stage.Description(), runError.Kind, runError.Message)
		builder.WriteString("\n")
		builder.WriteString(errorStyle.Render(ansi.Truncate(line, model.width, "…")))
		builder.WriteString("\n")
	}

	help := lipgloss.NewStyle().Foreground(model.theme.HelpText)
	binding := model.keys.Stop.Help()
	if model.ended {
		binding = model.keys.Close.Help()
	}
	builder.WriteString("\n")
	builder.WriteString(help.Render(fmt.Sprintf("%s %s", binding.Key, binding.Desc)))
	builder.WriteString("\n")
	return builder.String()
}

func (model RunModel) renderRow(stage schema.Stage, now time.Time) string {
	status := model.status.StageStatus(stage)
	var icon string
	switch status {
	case schema.StatusRunning:
		icon = model.spinner.View()
	case schema.StatusFinished:
		icon = "✓"
	case schema.StatusError:
		icon = "✗"
	default:
		icon = "·"
	}

	text := stage.Description()
	if record, ok := model.status.Record(stage); ok && record.Status == schema.StatusError && record.Error != nil {
		text += ": " + record.Error.Message
	}
	row := fmt.Sprintf(" %s %s", icon, text)
	row = ansi.Truncate(row, model.width, "…")

	style := lipgloss.NewStyle().Foreground(model.theme.StatusColor(status))
	if heat := model.heat.Heat(stage, now); heat > 0 {
		accent := model.theme.HotAccentPut
		if model.heat.Kind(stage) == HeatRemove {
			accent = model.theme.HotAccentRemove
		}
		style = style.Background(accent).Width(model.width).MaxWidth(model.width)
	}
	return style.Render(row)
}
