package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"tyinc/internal/driver"
)

// maxRows bounds the body list; older finished bodies scroll off.
const maxRows = 12

type bodyRow struct {
	name    string
	status  string
	elapsed string
}

type progressModel struct {
	title    string
	events   <-chan driver.BodyEvent
	spinner  spinner.Model
	bar      progress.Model
	rows     map[int]*bodyRow
	order    []int // row indices, most recently started last
	total    int
	finished int
	width    int
	done     bool
}

type bodyMsg driver.BodyEvent
type doneMsg struct{}

// NewProgressModel returns a Bubble Tea model that follows prewarm through
// body events until events is closed.
func NewProgressModel(title string, events <-chan driver.BodyEvent) tea.Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = 76

	return &progressModel{
		title:   title,
		events:  events,
		spinner: sp,
		bar:     bar,
		rows:    make(map[int]*bodyRow),
		width:   80,
	}
}

func (m *progressModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.next())
}

func (m *progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case bodyMsg:
		return m, tea.Batch(m.apply(driver.BodyEvent(msg)), m.next())
	case doneMsg:
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
			m.bar.Width = msg.Width - 4
		}
		return m, nil
	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m *progressModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("7"))
	header := fmt.Sprintf("%s (%d/%d bodies)", m.title, m.finished, m.total)
	if m.done {
		header = "done: " + header
	} else {
		header = m.spinner.View() + " " + header
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(header))
	b.WriteString("\n\n")

	nameWidth := max(m.width-28, 20)
	rows := m.order
	if len(rows) > maxRows {
		rows = rows[len(rows)-maxRows:]
	}
	for _, idx := range rows {
		r := m.rows[idx]
		status := styleStatus(r.status).Render(fmt.Sprintf("%10s", r.status))
		fmt.Fprintf(&b, "  %s %s", status, Truncate(r.name, nameWidth))
		if r.elapsed != "" {
			fmt.Fprintf(&b, " %s", lipgloss.NewStyle().Faint(true).Render(r.elapsed))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.done {
		b.WriteString(m.bar.ViewAs(1.0))
	} else {
		b.WriteString(m.bar.View())
	}
	b.WriteString("\n")
	return b.String()
}

func (m *progressModel) next() tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-m.events
		if !ok {
			return doneMsg{}
		}
		return bodyMsg(ev)
	}
}

func (m *progressModel) apply(ev driver.BodyEvent) tea.Cmd {
	m.total = ev.Total
	r, ok := m.rows[ev.Index]
	if !ok {
		r = &bodyRow{name: ev.Name}
		m.rows[ev.Index] = r
		m.order = append(m.order, ev.Index)
	}
	switch ev.Status {
	case driver.BodyStarted:
		r.status = "inferring"
		return nil
	case driver.BodyDone:
		r.status = "ok"
		if ev.Diagnostics > 0 {
			r.status = fmt.Sprintf("%d errors", ev.Diagnostics)
			if ev.Diagnostics == 1 {
				r.status = "1 error"
			}
		}
		r.elapsed = ev.Elapsed.Round(time.Microsecond).String()
		m.finished++
	}
	if m.total == 0 {
		return nil
	}
	return m.bar.SetPercent(float64(m.finished) / float64(m.total))
}

func styleStatus(status string) lipgloss.Style {
	switch {
	case status == "ok":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	case strings.HasSuffix(status, "error"), strings.HasSuffix(status, "errors"):
		return lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	case status == "inferring":
		return lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	}
}
