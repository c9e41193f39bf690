package main

import (
	"context"
	"fmt"
	"strings"

	"mls-go/internal/app"
	"mls-go/internal/mls"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

type syncPhase int

const (
	phaseScanning syncPhase = iota
	phaseUploading
	phaseDone
)

type syncModel struct {
	app    *app.App
	root   string
	dryRun bool

	ctx    context.Context
	cancel context.CancelFunc

	phase    syncPhase
	spinner  spinner.Model
	progress progress.Model

	// Progress events bridged from the engine
	events chan mls.Progress

	current   mls.Progress
	uploaded  int
	skipped   int
	failed    int
	cancelled int

	cancelRequested bool
	summary         *mls.RunSummary
	err             error

	width  int
	height int
}

type syncProgressMsg mls.Progress

type syncDoneMsg struct {
	summary *mls.RunSummary
	err     error
}

func newSyncModel(ctx context.Context, cancel context.CancelFunc, a *app.App, root string, dryRun bool) syncModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	p := progress.New(
		progress.WithDefaultGradient(),
		progress.WithoutPercentage(),
	)
	p.Width = 60

	return syncModel{
		app:      a,
		root:     root,
		dryRun:   dryRun,
		ctx:      ctx,
		cancel:   cancel,
		phase:    phaseScanning,
		spinner:  s,
		progress: p,
		events:   make(chan mls.Progress, 100),
	}
}

func (m syncModel) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		startSync(m.ctx, m.app, m.root, m.dryRun, m.events),
		waitForEvent(m.events),
	)
}

func (m syncModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		progressWidth := msg.Width - 30
		if progressWidth < 20 {
			progressWidth = 20
		}
		m.progress.Width = progressWidth
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.phase == phaseDone {
				return m, tea.Quit
			}
			if m.cancelRequested {
				// Second press: stop waiting for the in-flight upload.
				return m, tea.Quit
			}
			m.cancelRequested = true
			m.cancel()
			return m, nil

		case "enter":
			if m.phase == phaseDone {
				return m, tea.Quit
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case syncProgressMsg:
		m.current = mls.Progress(msg)
		if m.phase == phaseScanning {
			m.phase = phaseUploading
		}
		switch m.current.Outcome {
		case mls.OutcomeUploaded:
			m.uploaded++
		case mls.OutcomeSkipped:
			m.skipped++
		case mls.OutcomeFailed:
			m.failed++
		case mls.OutcomeCancelled:
			m.cancelled++
		}
		return m, waitForEvent(m.events)

	case syncDoneMsg:
		m.phase = phaseDone
		m.summary = msg.summary
		m.err = msg.err
		return m, nil
	}

	return m, nil
}

func (m syncModel) View() string {
	var b strings.Builder

	b.WriteString("\n")

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("86")).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(0, 1).
		MarginLeft(2)

	b.WriteString(titleStyle.Render("Media Library Sync"))
	b.WriteString("\n\n")

	configStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		MarginLeft(2)
	modeStr := map[bool]string{true: "DRY RUN", false: "UPLOAD"}[m.dryRun]
	b.WriteString(configStyle.Render(fmt.Sprintf(
		"%s → %s | %s",
		truncatePath(m.root, 30),
		m.app.RemoteName(),
		modeStr,
	)))
	b.WriteString("\n\n")

	switch m.phase {
	case phaseScanning:
		b.WriteString(fmt.Sprintf("  %s Scanning library...\n", m.spinner.View()))

	case phaseUploading:
		percent := 0.0
		if m.current.Total > 0 {
			percent = float64(m.current.Index) / float64(m.current.Total)
		}
		b.WriteString("  ")
		b.WriteString(m.progress.ViewAs(percent))
		b.WriteString(fmt.Sprintf(" %d/%d\n\n", m.current.Index, m.current.Total))

		b.WriteString(fmt.Sprintf("  %d uploaded • %d skipped • %d failed • %d cancelled\n",
			m.uploaded, m.skipped, m.failed, m.cancelled))

		if m.current.File.RelPath != "" {
			maxLen := m.width - 20
			if maxLen < 40 {
				maxLen = 40
			}
			fileStyle := lipgloss.NewStyle().
				Foreground(lipgloss.Color("240")).
				Italic(true).
				MarginLeft(2)
			b.WriteString("\n")
			b.WriteString(fileStyle.Render(fmt.Sprintf("%s (%s)",
				truncatePath(m.current.File.RelPath, maxLen),
				humanize.Bytes(uint64(m.current.File.Size)))))
			b.WriteString("\n")
		}

		if m.cancelRequested {
			cancelStyle := lipgloss.NewStyle().
				Foreground(lipgloss.Color("214")).
				MarginLeft(2)
			b.WriteString("\n")
			b.WriteString(cancelStyle.Render("Cancelling: waiting for the current upload to finish..."))
			b.WriteString("\n")
		}

	case phaseDone:
		if m.err != nil {
			errStyle := lipgloss.NewStyle().
				Foreground(lipgloss.Color("196")).
				MarginLeft(2)
			b.WriteString(errStyle.Render(fmt.Sprintf("✗ %v", m.err)))
			b.WriteString("\n")
		}
		if m.summary != nil {
			doneStyle := lipgloss.NewStyle().
				Foreground(lipgloss.Color("42")).
				Bold(true).
				MarginLeft(2)
			b.WriteString(doneStyle.Render(fmt.Sprintf(
				"✓ %s: %d uploaded, %d skipped, %d failed, %d cancelled",
				m.summary.State, m.summary.Uploaded, m.summary.Skipped,
				m.summary.Failed, m.summary.Cancelled)))
			b.WriteString("\n")
			if m.summary.DryRun {
				noteStyle := lipgloss.NewStyle().
					Foreground(lipgloss.Color("240")).
					MarginLeft(2)
				b.WriteString(noteStyle.Render("Dry run: nothing was uploaded or recorded."))
				b.WriteString("\n")
			}
		}
	}

	b.WriteString("\n")
	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		MarginLeft(2)
	switch m.phase {
	case phaseDone:
		b.WriteString(helpStyle.Render("enter: quit • q: quit"))
	default:
		b.WriteString(helpStyle.Render("q: cancel"))
	}
	b.WriteString("\n")

	return b.String()
}

// Commands

func startSync(ctx context.Context, a *app.App, root string, dryRun bool, events chan mls.Progress) tea.Cmd {
	return func() tea.Msg {
		summary, err := a.Sync(ctx, root, dryRun, func(p mls.Progress) {
			events <- p
		})
		close(events)
		return syncDoneMsg{summary: summary, err: err}
	}
}

// waitForEvent polls the progress channel and relays updates
func waitForEvent(events <-chan mls.Progress) tea.Cmd {
	return func() tea.Msg {
		p, ok := <-events
		if !ok {
			// Channel closed, run finished
			return nil
		}
		return syncProgressMsg(p)
	}
}

// runSyncTUI drives one sync run under an interactive progress display.
func runSyncTUI(ctx context.Context, a *app.App, root string, dryRun bool) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := newSyncModel(runCtx, cancel, a, root, dryRun)
	out, err := tea.NewProgram(m).Run()
	if err != nil {
		return fmt.Errorf("running ui: %w", err)
	}

	if final, ok := out.(syncModel); ok && final.err != nil {
		return fmt.Errorf("sync: %w", final.err)
	}
	return nil
}

// truncatePath shortens a file path for display
func truncatePath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}

	if maxLen > 10 {
		return "..." + path[len(path)-maxLen+3:]
	}

	return path[:maxLen]
}
