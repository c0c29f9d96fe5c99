package sim

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"skywatch-sim/internal/detection"
	"skywatch-sim/internal/device"
	"skywatch-sim/internal/telemetry"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// eventMsg carries a rendered event line and the event itself.
type eventMsg struct {
	line string
	ev   detection.Event
}

// fixMsg carries a rendered radio fix line.
type fixMsg struct{ line string }

// perfMsg carries an orchestrator performance update.
type perfMsg struct{ telemetry.PerformanceRow }

// adminMsg reports control surface status.
type adminMsg struct{ active bool }

const (
	maxLogLines         = 1000
	maxSectionHeightPct = 0.2
	trendSeconds        = 5
)

var (
	grayStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	radarStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	opticalStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	radioStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
	otherStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	onStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	offStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

func styleFor(t device.Type) lipgloss.Style {
	switch t {
	case device.TypeRadar:
		return radarStyle
	case device.TypeOptical:
		return opticalStyle
	case device.TypeRadio:
		return radioStyle
	default:
		return otherStyle
	}
}

// TUIWriter renders detection events using a bubbletea TUI.
type TUIWriter struct {
	program    teaProgram
	done       chan struct{}
	sendSignal atomic.Bool
}

// NewTUIWriter starts a bubbletea program and returns a TUIWriter. Quitting
// the TUI interrupts the process.
func NewTUIWriter(airspaceID string, devices []device.Spec) *TUIWriter {
	w := &TUIWriter{done: make(chan struct{})}
	w.sendSignal.Store(true)
	p := tea.NewProgram(newTUIModel(airspaceID, devices), tea.WithAltScreen())
	w.program = p
	go func() {
		_, _ = p.Run()
		close(w.done)
		if w.sendSignal.Load() {
			if proc, err := os.FindProcess(os.Getpid()); err == nil {
				_ = proc.Signal(os.Interrupt)
			}
		}
	}()
	return w
}

// WriteEvent implements EventWriter.
func (w *TUIWriter) WriteEvent(ev detection.Event) error {
	st := styleFor(ev.DetectorType)
	line := fmt.Sprintf("%s %s target=%s dist=%.0fm conf=%.2f",
		grayStyle.Render(ev.Timestamp.Format(time.TimeOnly)),
		st.Render(ev.DetectorID),
		ev.TargetID, ev.DistanceM, ev.Confidence)
	switch {
	case ev.Radar != nil:
		line += fmt.Sprintf(" snr=%.1fdB %s", ev.Radar.SNRdB, ev.Radar.Classification)
	case ev.Optical != nil:
		line += fmt.Sprintf(" bbox=%.0fx%.0f", ev.Optical.BBox.W, ev.Optical.BBox.H)
	case ev.Radio != nil:
		line += fmt.Sprintf(" az=%.1f el=%.1f", ev.Radio.Azimuth, ev.Radio.Elevation)
	}
	w.program.Send(eventMsg{line: line, ev: ev})
	return nil
}

// WriteEvents outputs multiple events.
func (w *TUIWriter) WriteEvents(events []detection.Event) error {
	for _, ev := range events {
		_ = w.WriteEvent(ev)
	}
	return nil
}

// WriteState implements StateWriter.
func (w *TUIWriter) WriteState(row telemetry.PerformanceRow) error {
	w.program.Send(perfMsg{PerformanceRow: row})
	return nil
}

// WriteFusion implements FusionWriter.
func (w *TUIWriter) WriteFusion(row telemetry.FusionRow) error {
	line := fmt.Sprintf("%s %s est=(%.0f,%.0f,%.0f) err=%.1fm via %s",
		grayStyle.Render(row.Timestamp.Format(time.TimeOnly)),
		radioStyle.Render(row.TargetID),
		row.Estimate.North, row.Estimate.East, row.Estimate.Down, row.ErrorM,
		strings.Join(row.Detectors, ","))
	w.program.Send(fixMsg{line: line})
	return nil
}

// SetAdminStatus updates the control surface indicator.
func (w *TUIWriter) SetAdminStatus(active bool) {
	w.program.Send(adminMsg{active: active})
}

// Close shuts down the TUI program and waits for cleanup.
func (w *TUIWriter) Close() error {
	w.sendSignal.Store(false)
	if w.program != nil {
		w.program.Send(tea.Quit())
	}
	if w.done != nil {
		<-w.done
	}
	return nil
}

type tuiModel struct {
	airspaceID   string
	table        table.Model
	vp           viewport.Model
	fixVP        viewport.Model
	logs         []string
	fixLogs      []string
	perf         telemetry.PerformanceRow
	admin        bool
	wrap         bool
	autoscroll   bool
	summary      bool
	help         bool
	header       string
	headerHeight int
	height       int

	perDetector   map[string]int
	perTarget     map[string]int
	total         int
	history       []int
	lastEventSecs time.Time
}

func newTUIModel(airspaceID string, devices []device.Spec) tuiModel {
	cols := []table.Column{
		{Title: "Device", Width: 14},
		{Title: "Type", Width: 16},
		{Title: "Position (N,E,D)", Width: 22},
		{Title: "Az", Width: 6},
		{Title: "Range (m)", Width: 10},
	}
	rows := make([]table.Row, 0, len(devices))
	for _, d := range devices {
		rows = append(rows, table.Row{
			d.ID,
			string(d.Type),
			fmt.Sprintf("(%.0f,%.0f,%.0f)", d.Position.North, d.Position.East, d.Position.Down),
			fmt.Sprintf("%.0f", d.Azimuth),
			fmt.Sprintf("%.0f", d.RangeM),
		})
	}
	t := table.New(table.WithColumns(cols), table.WithRows(rows), table.WithHeight(len(rows)+1))
	return tuiModel{
		airspaceID:  airspaceID,
		table:       t,
		vp:          viewport.New(0, 0),
		fixVP:       viewport.New(0, 0),
		autoscroll:  true,
		perDetector: make(map[string]int),
		perTarget:   make(map[string]int),
	}
}

func (m tuiModel) Init() tea.Cmd { return nil }

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.table.SetWidth(msg.Width)
		m.vp.Width = msg.Width
		m.fixVP.Width = msg.Width
		m.height = msg.Height
		m.header = m.renderHeader()
		m.headerHeight = lipgloss.Height(m.header)
		m.updateViewportHeight()
		m.refreshViewport()
		m.refreshFixes()
	case tea.KeyMsg:
		if m.help {
			switch msg.String() {
			case "?", "h", "esc":
				m.help = false
				m.updateViewportHeight()
			}
			return m, nil
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "w":
			m.wrap = !m.wrap
			m.refreshViewport()
			m.updateViewportHeight()
			return m, nil
		case "s":
			m.autoscroll = !m.autoscroll
			if m.autoscroll {
				m.vp.GotoBottom()
				m.fixVP.GotoBottom()
			}
			return m, nil
		case "t":
			m.summary = !m.summary
			m.updateViewportHeight()
			return m, nil
		case "h", "?":
			m.help = !m.help
			m.updateViewportHeight()
			return m, nil
		}
		if !m.autoscroll {
			switch msg.String() {
			case "j", "down":
				m.vp.LineDown(1)
			case "k", "up":
				m.vp.LineUp(1)
			case "pgdown", "ctrl+n":
				m.vp.LineDown(10)
			case "pgup", "ctrl+p":
				m.vp.LineUp(10)
			default:
				var cmd tea.Cmd
				m.vp, cmd = m.vp.Update(msg)
				return m, cmd
			}
		}
		return m, nil
	case eventMsg:
		m.logs = appendCapped(m.logs, msg.line)
		m.total++
		m.perDetector[msg.ev.DetectorID]++
		m.perTarget[msg.ev.TargetID]++
		m.recordTrend(msg.ev.Timestamp)
		m.refreshViewport()
	case fixMsg:
		m.fixLogs = appendCapped(m.fixLogs, msg.line)
		m.updateViewportHeight()
		m.refreshFixes()
		m.refreshViewport()
	case perfMsg:
		m.perf = msg.PerformanceRow
	case adminMsg:
		m.admin = msg.active
	}
	return m, nil
}

func appendCapped(lines []string, line string) []string {
	lines = append(lines, line)
	if len(lines) > maxLogLines {
		lines = lines[len(lines)-maxLogLines:]
	}
	return lines
}

// recordTrend buckets events per wall-clock second, keeping the last few.
func (m *tuiModel) recordTrend(ts time.Time) {
	second := ts.Truncate(time.Second)
	switch {
	case m.lastEventSecs.IsZero():
		m.history = append(m.history, 1)
		m.lastEventSecs = second
	case !second.After(m.lastEventSecs):
		m.history[len(m.history)-1]++
	default:
		gap := int(second.Sub(m.lastEventSecs).Seconds())
		for i := 0; i < gap-1 && i < trendSeconds; i++ {
			m.history = append(m.history, 0)
		}
		m.history = append(m.history, 1)
		m.lastEventSecs = second
	}
	if len(m.history) > trendSeconds {
		m.history = m.history[len(m.history)-trendSeconds:]
	}
}

func (m *tuiModel) updateViewportHeight() {
	bottomHeight := lipgloss.Height(m.renderBottom())
	fixLines := len(m.fixLogs)
	if fixLines == 0 {
		fixLines = 1
	}
	if limit := m.maxSectionLines(); fixLines > limit {
		fixLines = limit
	}
	m.fixVP.Height = fixLines

	h := m.height - m.headerHeight - bottomHeight - (1 + m.fixVP.Height) - 3
	if h < 0 {
		h = 0
	}
	m.vp.Height = h
	if m.autoscroll {
		m.vp.GotoBottom()
		m.fixVP.GotoBottom()
	}
}

func (m *tuiModel) refreshViewport() {
	lines := m.logs
	if m.wrap && m.vp.Width > 0 {
		lines = make([]string, len(m.logs))
		for i, l := range m.logs {
			lines[i] = wordwrap.String(l, m.vp.Width)
		}
	}
	m.vp.SetContent(strings.Join(lines, "\n"))
	if m.autoscroll {
		m.vp.GotoBottom()
	}
}

func (m *tuiModel) refreshFixes() {
	content := "none"
	if len(m.fixLogs) > 0 {
		content = strings.Join(m.fixLogs, "\n")
	}
	m.fixVP.SetContent(content)
	if m.autoscroll {
		m.fixVP.GotoBottom()
	}
}

func (m tuiModel) maxSectionLines() int {
	h := int(float64(m.height) * maxSectionHeightPct)
	if h < 1 {
		h = 1
	}
	return h
}

func (m tuiModel) View() string {
	if m.help {
		return renderHelp()
	}
	divider := strings.Repeat("─", m.vp.Width)
	sections := []string{
		m.header,
		divider,
		m.vp.View(),
		divider,
		"Radio fixes:",
		m.fixVP.View(),
		divider,
		m.renderBottom(),
	}
	return strings.Join(sections, "\n")
}

func (m tuiModel) renderHeader() string {
	title := lipgloss.NewStyle().Bold(true).Render("Airspace " + m.airspaceID)
	return lipgloss.JoinVertical(lipgloss.Left, title, m.table.View())
}

func indicator(on bool) string {
	if on {
		return onStyle.Render("●")
	}
	return offStyle.Render("●")
}

func (m tuiModel) renderSummary() string {
	ids := make([]string, 0, len(m.perDetector))
	for id := range m.perDetector {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, fmt.Sprintf("%s=%d", id, m.perDetector[id]))
	}
	trend := make([]string, len(m.history))
	for i, v := range m.history {
		trend[i] = fmt.Sprintf("%d", v)
	}
	return fmt.Sprintf("SUMMARY events=%d targets=%d [%s] trend=[%s]",
		m.total, len(m.perTarget), strings.Join(parts, " "), strings.Join(trend, ","))
}

func (m tuiModel) renderBottom() string {
	perf := fmt.Sprintf("PERF ticks=%d attempts=%d detections=%d timeouts=%d errors=%d fps=%.1f latency=%s",
		m.perf.Ticks, m.perf.Attempts, m.perf.Detections, m.perf.Timeouts, m.perf.Errors, m.perf.FPS, m.perf.AvgTickLatency)
	line := fmt.Sprintf("%s | Admin %s | Wrap %s | Scroll %s | Summary %s | Help %s",
		perf, indicator(m.admin), indicator(m.wrap), indicator(m.autoscroll), indicator(m.summary), indicator(m.help))
	if m.summary {
		return m.renderSummary() + "\n" + line
	}
	return line
}

func renderHelp() string {
	lines := []string{
		"Key Bindings:",
		" q  quit",
		" w  toggle wrap for the event log",
		" s  toggle auto-scroll",
		" t  toggle summary footer",
		" h/? toggle this help view",
		"",
		"When auto-scroll is disabled:",
		" j/k or up/down    scroll one line",
		" pgdown/pgup       scroll a page",
	}
	return strings.Join(lines, "\n")
}
