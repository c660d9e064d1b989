// Package monitor implements the live room temperature TUI using BubbleTea.
// The program's event loop is the consumer context: coalesced refreshes are
// delivered into Update and every store read happens there.
package monitor

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/luki/roomtemps/internal/alert"
	"github.com/luki/roomtemps/internal/chart"
	"github.com/luki/roomtemps/internal/coalesce"
	"github.com/luki/roomtemps/internal/history"
	"github.com/luki/roomtemps/internal/ingest"
	"github.com/luki/roomtemps/internal/reading"
	"github.com/luki/roomtemps/internal/store"
)

// ── Messages ─────────────────────────────────────────────────────────

// runMsg carries a coalesced flush into the event loop.
type runMsg func()

type refreshAllMsg struct{}

// ── Executor ─────────────────────────────────────────────────────────

// Executor delivers posted functions into a running tea.Program. Posting
// never blocks: a forwarding goroutine waits on the program instead.
type Executor struct {
	forward *coalesce.Serial
	program *tea.Program
}

// NewExecutor creates an Executor for p.
func NewExecutor(p *tea.Program) *Executor {
	return &Executor{forward: coalesce.NewSerial(), program: p}
}

// Post implements coalesce.Executor.
func (e *Executor) Post(fn func()) {
	e.forward.Post(func() { e.program.Send(runMsg(fn)) })
}

// Close stops forwarding.
func (e *Executor) Close() { e.forward.Close() }

// ── State ────────────────────────────────────────────────────────────

type summaryRow struct {
	room          string
	latest        reading.Reading
	hasLatest     bool
	threshold     float64
	fromReference bool
	status        alert.Status
}

type displayRoom struct {
	view          store.RoomView
	threshold     float64
	fromReference bool
}

// state is the last computed presentation data. It is only touched on the
// event loop.
type state struct {
	summary   []summaryRow
	rooms     []string
	display   []displayRoom
	refreshed time.Time
}

// ── Model ────────────────────────────────────────────────────────────

// Options configures the monitor.
type Options struct {
	DefaultThreshold float64
	Source           string // shown in the title bar
}

// Model is the BubbleTea model for the live monitor.
type Model struct {
	store     *store.Store
	selection *ingest.Selection
	opts      Options
	state     *state
	width     int
	height    int
	scroll    int
	startTime time.Time
}

// New creates the initial model.
func New(s *store.Store, sel *ingest.Selection, opts Options) Model {
	return Model{
		store:     s,
		selection: sel,
		opts:      opts,
		state:     &state{},
		startTime: time.Now(),
	}
}

// Handlers returns the coalescer callbacks. They run inside Update.
func (m Model) Handlers() coalesce.Handlers {
	return coalesce.Handlers{
		OnSummaryChanged:  m.refreshSummary,
		OnRoomListChanged: m.refreshRooms,
		OnDisplayChanged:  m.refreshDisplay,
	}
}

func (m Model) refreshSummary() {
	views := m.store.AllSnapshots()
	rows := make([]summaryRow, 0, len(views))
	for id, v := range views {
		latest, ok := v.LatestEnvironment()
		th, fromRef := alert.DisplayThreshold(v, m.opts.DefaultThreshold)
		rows = append(rows, summaryRow{
			room:          id,
			latest:        latest,
			hasLatest:     ok,
			threshold:     th,
			fromReference: fromRef,
			status:        alert.RoomStatus(v),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].room < rows[j].room })
	m.state.summary = rows
	m.state.refreshed = time.Now()
}

func (m Model) refreshRooms() {
	m.state.rooms = m.store.RoomIDs()
	if room, all := m.selection.Get(); !all && !m.store.HasRoom(room) {
		m.selection.SetAll()
		m.refreshDisplay()
	}
}

func (m Model) refreshDisplay() {
	room, all := m.selection.Get()

	var views []store.RoomView
	if all {
		for _, v := range m.store.AllSnapshots() {
			views = append(views, v)
		}
		sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })
	} else if v, ok := m.store.RoomSnapshot(room); ok {
		views = append(views, v)
	}

	display := make([]displayRoom, 0, len(views))
	for _, v := range views {
		th, fromRef := alert.DisplayThreshold(v, m.opts.DefaultThreshold)
		display = append(display, displayRoom{view: v, threshold: th, fromReference: fromRef})
	}
	m.state.display = display
}

func (m Model) refreshAll() {
	m.refreshSummary()
	m.refreshRooms()
	m.refreshDisplay()
}

// ── Init / Update ────────────────────────────────────────────────────

func (m Model) Init() tea.Cmd {
	return func() tea.Msg { return refreshAllMsg{} }
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "right", "l", "tab":
			m.cycleSelection(1)
		case "left", "h", "shift+tab":
			m.cycleSelection(-1)
		case "a", "esc":
			m.selection.SetAll()
			m.scroll = 0
			m.refreshDisplay()
		case "up", "k":
			if m.scroll > 0 {
				m.scroll--
			}
		case "down", "j":
			m.scroll++
		case "home":
			m.scroll = 0
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case runMsg:
		msg()

	case refreshAllMsg:
		m.refreshAll()
	}

	return m, nil
}

// cycleSelection moves through "all rooms" followed by every known room.
func (m *Model) cycleSelection(step int) {
	options := append([]string{""}, m.state.rooms...)
	room, all := m.selection.Get()

	cur := 0
	if !all {
		for i, r := range options {
			if i > 0 && r == room {
				cur = i
				break
			}
		}
	}
	next := (cur + step + len(options)) % len(options)
	if next == 0 {
		m.selection.SetAll()
	} else {
		m.selection.Set(options[next])
	}
	m.scroll = 0
	m.refreshDisplay()
}

// ── Color palette ────────────────────────────────────────────────────

var (
	colorTitleBg  = lipgloss.Color("17")
	colorTitleFg  = lipgloss.Color("51")
	colorBorder   = lipgloss.Color("62")
	colorRoomName = lipgloss.Color("147")
	colorLabel    = lipgloss.Color("252")
	colorDim      = lipgloss.Color("240")
	colorFooterBg = lipgloss.Color("235")
	colorSelected = lipgloss.Color("51")
)

// ── View ─────────────────────────────────────────────────────────────

func (m Model) View() string {
	if m.width == 0 {
		return "  Initializing..."
	}

	contentWidth := m.width - 2
	if contentWidth < 40 {
		contentWidth = 40
	}

	var sections []string
	sections = append(sections, m.renderTitleBar(contentWidth))
	sections = append(sections, m.renderSelector(contentWidth))
	sections = append(sections, m.renderSummary(contentWidth))
	sections = append(sections, m.renderDisplay(contentWidth)...)
	sections = append(sections, m.renderFooter(contentWidth))

	content := lipgloss.JoinVertical(lipgloss.Left, sections...)

	lines := strings.Split(content, "\n")
	visibleLines := m.height
	if visibleLines < 5 {
		visibleLines = 5
	}
	maxScroll := len(lines) - visibleLines
	if maxScroll < 0 {
		maxScroll = 0
	}
	start := m.scroll
	if start > maxScroll {
		start = maxScroll
	}
	end := start + visibleLines
	if end > len(lines) {
		end = len(lines)
	}

	return strings.Join(lines[start:end], "\n")
}

func (m Model) renderTitleBar(width int) string {
	logo := lipgloss.NewStyle().
		Bold(true).
		Foreground(colorTitleFg).
		Render("ROOM TEMPERATURES")

	dim := lipgloss.NewStyle().Foreground(colorDim)
	statusParts := []string{dim.Render(fmt.Sprintf("up %s", fmtDuration(time.Since(m.startTime))))}
	if !m.state.refreshed.IsZero() {
		statusParts = append(statusParts, dim.Render(m.state.refreshed.Format("15:04:05")))
	}
	if m.opts.Source != "" {
		statusParts = append(statusParts, dim.Render(m.opts.Source))
	}

	sep := dim.Render(" │ ")
	right := strings.Join(statusParts, sep)

	gap := width - lipgloss.Width(logo) - lipgloss.Width(right) - 4
	if gap < 1 {
		gap = 1
	}

	return lipgloss.NewStyle().
		Background(colorTitleBg).
		Width(width).
		Padding(0, 1).
		Render(logo + strings.Repeat(" ", gap) + right)
}

func (m Model) renderSelector(width int) string {
	room, all := m.selection.Get()

	selected := lipgloss.NewStyle().Foreground(colorSelected).Bold(true).Underline(true)
	normal := lipgloss.NewStyle().Foreground(colorLabel)

	var items []string
	if all {
		items = append(items, selected.Render("all rooms"))
	} else {
		items = append(items, normal.Render("all rooms"))
	}
	for _, r := range m.state.rooms {
		if !all && r == room {
			items = append(items, selected.Render(r))
		} else {
			items = append(items, normal.Render(r))
		}
	}

	label := lipgloss.NewStyle().Foreground(colorDim).Render("Room: ")
	return lipgloss.NewStyle().Width(width).Padding(0, 1).Render(label + strings.Join(items, "  "))
}

func statusStyle(s alert.Status) lipgloss.Style {
	switch s {
	case alert.Alert:
		return lipgloss.NewStyle().Foreground(chart.LevelColor(chart.LevelAlert)).Bold(true)
	case alert.Ok:
		return lipgloss.NewStyle().Foreground(chart.LevelColor(chart.LevelOk))
	case alert.AwaitingReference:
		return lipgloss.NewStyle().Foreground(chart.LevelColor(chart.LevelUnknown))
	default:
		return lipgloss.NewStyle().Foreground(colorDim)
	}
}

func statusLevel(s alert.Status) chart.Level {
	switch s {
	case alert.Alert:
		return chart.LevelAlert
	case alert.Ok:
		return chart.LevelOk
	default:
		return chart.LevelUnknown
	}
}

func formatThreshold(th float64, fromReference bool) string {
	if fromReference {
		return fmt.Sprintf("%5.1f°C", th)
	}
	return fmt.Sprintf("%5.1f°C (no reference yet)", th)
}

func (m Model) renderSummary(width int) string {
	dim := lipgloss.NewStyle().Foreground(colorDim)
	header := dim.Render(fmt.Sprintf("%-10s %-9s %-9s %-28s %s", "Room", "Latest", "Time", "Threshold", "Status"))

	rows := []string{header}
	if len(m.state.summary) == 0 {
		rows = append(rows, dim.Render("No data received yet."))
	}
	for _, r := range m.state.summary {
		latest, at := "N/A", "N/A"
		if r.hasLatest {
			latest = chart.RenderTempValue(r.latest.Value, statusLevel(r.status))
			at = r.latest.Time.Local().Format("15:04:05")
		}
		row := lipgloss.NewStyle().Foreground(colorRoomName).Width(11).Render(truncate(r.room, 10)) +
			lipgloss.NewStyle().Width(10).Render(latest) +
			lipgloss.NewStyle().Width(10).Render(at) +
			lipgloss.NewStyle().Width(29).Render(formatThreshold(r.threshold, r.fromReference)) +
			statusStyle(r.status).Render(r.status.String())
		rows = append(rows, row)
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Width(width).
		Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m Model) renderDisplay(width int) []string {
	_, all := m.selection.Get()
	dim := lipgloss.NewStyle().Foreground(colorDim)

	if len(m.state.display) == 0 {
		msg := "Waiting for temperature data..."
		if room, all := m.selection.Get(); !all {
			msg = fmt.Sprintf("No readings received yet for room %s.", room)
		}
		return []string{dim.Width(width).Align(lipgloss.Center).Padding(2, 0).Render(msg)}
	}

	if all {
		return []string{m.renderAllRooms(width)}
	}
	return []string{m.renderRoomChart(m.state.display[0], width)}
}

// renderAllRooms lists every room's environment readings, newest first.
func (m Model) renderAllRooms(width int) string {
	dim := lipgloss.NewStyle().Foreground(colorDim)
	alertS := statusStyle(alert.Alert)

	var rows []string
	for _, d := range m.state.display {
		rows = append(rows, lipgloss.NewStyle().Bold(true).Foreground(colorRoomName).Render("Room "+d.view.ID))
		if len(d.view.Environment) == 0 {
			rows = append(rows, dim.Render("  No temperature received yet for this room."))
			continue
		}
		sorted := d.view.SortedEnvironment()
		for i := len(sorted) - 1; i >= 0; i-- {
			r := sorted[i]
			line := fmt.Sprintf("  - %s  %5.1f°C", r.Time.Local().Format("2006-01-02 15:04:05"), r.Value)
			if alert.IsAlert(d.view, r) {
				line += alertS.Render("  HIGH TEMPERATURE")
			}
			rows = append(rows, line)
		}
		rows = append(rows, "")
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Width(width).
		Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

// renderRoomChart draws one room's environment series against its threshold.
func (m Model) renderRoomChart(d displayRoom, width int) string {
	dim := lipgloss.NewStyle().Foreground(colorDim)
	val := lipgloss.NewStyle().Foreground(lipgloss.Color("250"))

	sorted := d.view.SortedEnvironment()
	points := make([]chart.Point, len(sorted))
	for i, r := range sorted {
		points[i] = chart.Point{Reading: r, Alert: alert.IsAlert(d.view, r)}
	}

	title := lipgloss.NewStyle().Bold(true).Foreground(colorRoomName).
		Render(fmt.Sprintf("Last %d temperatures - room %s", len(points), d.view.ID))
	threshold := dim.Render("  threshold ") + val.Render(formatThreshold(d.threshold, d.fromReference))
	rows := []string{title + threshold}

	stats, ok := history.Summarize(sorted)
	if !ok {
		rows = append(rows, dim.Render(fmt.Sprintf("No readings received yet for room %s.", d.view.ID)))
	} else {
		rangeMin := min(stats.Min, d.threshold) - 2
		rangeMax := max(stats.Peak, d.threshold) + 2

		chartWidth := width - 30
		if chartWidth < 15 {
			chartWidth = 15
		}

		frameL := lipgloss.NewStyle().Foreground(colorBorder).Render("▕")
		frameR := lipgloss.NewStyle().Foreground(colorBorder).Render("▏")
		spark := chart.RenderSparkline(points, chartWidth, rangeMin, rangeMax, d.threshold, d.fromReference)

		last := points[len(points)-1]
		level := chart.Classify(last.Value, last.Alert, d.threshold, d.fromReference)
		rows = append(rows, chart.RenderTempValue(last.Value, level)+" "+frameL+spark+frameR)

		if timeline := chart.RenderTimeline(points, chartWidth); strings.TrimSpace(timeline) != "" {
			rows = append(rows, strings.Repeat(" ", 9)+timeline)
		}

		rows = append(rows, strings.Repeat(" ", 9)+
			chart.RenderThresholdScale(last.Value, level, rangeMin, rangeMax, d.threshold, d.fromReference, chartWidth))

		rows = append(rows, dim.Render(" avg")+val.Render(fmt.Sprintf("%5.1f", stats.Avg))+
			dim.Render(" lo")+val.Render(fmt.Sprintf("%5.1f", stats.Min))+
			dim.Render(" pk")+val.Render(fmt.Sprintf("%5.1f", stats.Peak)))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		Width(width).
		Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (m Model) renderFooter(width int) string {
	dim := lipgloss.NewStyle().Foreground(colorDim)
	label := lipgloss.NewStyle().Foreground(colorLabel)
	block := func(l chart.Level) string {
		return lipgloss.NewStyle().Foreground(chart.LevelColor(l)).Render("██")
	}

	legend := block(chart.LevelOk) + dim.Render(" ok ") +
		block(chart.LevelNear) + dim.Render(" near ") +
		block(chart.LevelAlert) + dim.Render(" alert ") +
		block(chart.LevelUnknown) + dim.Render(" no ref")

	keys := dim.Render("q") + label.Render(":quit") +
		dim.Render("  ←/→") + label.Render(":room") +
		dim.Render("  a") + label.Render(":all") +
		dim.Render("  j/k") + label.Render(":scroll")

	gap := width - lipgloss.Width(legend) - lipgloss.Width(keys) - 4
	if gap < 1 {
		gap = 1
	}

	return lipgloss.NewStyle().
		Background(colorFooterBg).
		Width(width).
		Padding(0, 1).
		Render(legend + strings.Repeat(" ", gap) + keys)
}

func truncate(s string, w int) string {
	if len(s) <= w {
		return s
	}
	if w <= 3 {
		return s[:w]
	}
	return s[:w-1] + "…"
}

func fmtDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	mins := d / time.Minute
	d -= mins * time.Minute
	s := d / time.Second
	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, mins, s)
	}
	return fmt.Sprintf("%dm%02ds", mins, s)
}
