// Package viz renders the closed loop live in the terminal: the cart
// and both pendulums, the active strategy, and a strip chart of the
// recent control output.
package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/avolkov/hybridsmc/internal/dynamo"
	"github.com/avolkov/hybridsmc/internal/hybrid"
)

const (
	canvasWidth  = 72
	canvasHeight = 18
	graphWidth   = 60
	graphHeight  = 7
	traceCap     = 240
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	badgeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Background(lipgloss.Color("63")).Padding(0, 1).Bold(true)
	switchStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type TickMsg time.Time

// Model steps the loop at a fixed rate and renders it.
type Model struct {
	plant      dynamo.System
	integrator dynamo.Integrator
	ctrl       *hybrid.Controller

	state     dynamo.State
	initState dynamo.State
	t, dt     float64
	running   bool

	uTrace   []float64
	lastStep hybrid.StepResult
}

func NewModel(plant dynamo.System, integ dynamo.Integrator, ctrl *hybrid.Controller, x0 []float64, dt float64) Model {
	return Model{
		plant:      plant,
		integrator: integ,
		ctrl:       ctrl,
		state:      dynamo.State(x0).Clone(),
		initState:  dynamo.State(x0).Clone(),
		dt:         dt,
		running:    true,
		uTrace:     make([]float64, 0, traceCap),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.running = !m.running
		case "r":
			m.state = m.initState.Clone()
			m.t = 0
			m.uTrace = m.uTrace[:0]
		}
	case TickMsg:
		if m.running {
			// a few physics substeps per frame keeps dt honest
			for i := 0; i < 4; i++ {
				step := m.ctrl.ComputeControl(m.state, m.dt)
				m.lastStep = step
				m.state = m.integrator.Step(m.plant, m.state, dynamo.Control{step.U}, m.t, m.dt)
				m.t += m.dt
				m.uTrace = append(m.uTrace, step.U)
				if len(m.uTrace) > traceCap {
					m.uTrace = m.uTrace[1:]
				}
			}
		}
		return m, tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return TickMsg(t) })
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("hybrid smc  t=%.2fs", m.t)))
	b.WriteString("  ")
	b.WriteString(badgeStyle.Render(m.lastStep.Active.String()))
	if m.lastStep.Switched {
		b.WriteString("  " + switchStyle.Render("SWITCH"))
	}
	if m.lastStep.SafeMode {
		b.WriteString("  " + switchStyle.Render("SAFE MODE"))
	}
	b.WriteString("\n\n")

	b.WriteString(m.drawCart())
	b.WriteString("\n")

	stats := m.lastStep.Stats
	b.WriteString(labelStyle.Render(fmt.Sprintf(
		"u=%+8.2f  switches=%d  x=%+.2f  th1=%+.2f  th2=%+.2f",
		m.lastStep.U, stats.TotalSwitches, m.state[0], m.state[1], m.state[2])))
	b.WriteString("\n")

	if len(m.uTrace) > 2 {
		graph := asciigraph.Plot(m.uTrace,
			asciigraph.Height(graphHeight),
			asciigraph.Width(graphWidth),
			asciigraph.Caption("control output"))
		b.WriteString(graphStyle.Render(graph))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("space pause · r reset · q quit"))
	b.WriteString("\n")
	return b.String()
}

func (m Model) drawCart() string {
	canvas := make([][]rune, canvasHeight)
	for i := range canvas {
		canvas[i] = make([]rune, canvasWidth)
		for j := range canvas[i] {
			canvas[i][j] = ' '
		}
	}

	set := func(x, y int, c rune) {
		if x >= 0 && x < canvasWidth && y >= 0 && y < canvasHeight {
			canvas[y][x] = c
		}
	}
	line := func(x1, y1, x2, y2 int, c rune) {
		dx, dy := abs(x2-x1), abs(y2-y1)
		sx, sy := 1, 1
		if x1 > x2 {
			sx = -1
		}
		if y1 > y2 {
			sy = -1
		}
		err := dx - dy
		for {
			set(x1, y1, c)
			if x1 == x2 && y1 == y2 {
				break
			}
			e2 := 2 * err
			if e2 > -dy {
				err -= dy
				x1 += sx
			}
			if e2 < dx {
				err += dx
				y1 += sy
			}
		}
	}

	gy := canvasHeight - 3
	for i := 2; i < canvasWidth-2; i++ {
		set(i, gy+1, '=')
	}

	cx := canvasWidth/2 + int(m.state[0]*8)
	for dx := -3; dx <= 3; dx++ {
		set(cx+dx, gy, '#')
	}

	l1, l2 := 9.0, 6.0
	p1x := cx + int(l1*math.Sin(m.state[1]))
	p1y := gy - 1 - int(l1*math.Cos(m.state[1]))
	p2x := cx + int(l2*math.Sin(m.state[2]))
	p2y := gy - 1 - int(l2*math.Cos(m.state[2]))

	line(cx, gy-1, p1x, p1y, '|')
	set(p1x, p1y, 'O')
	line(cx, gy-1, p2x, p2y, '.')
	set(p2x, p2y, 'o')

	var b strings.Builder
	for _, row := range canvas {
		b.WriteString(string(row))
		b.WriteString("\n")
	}
	return b.String()
}

// Run starts the live view and blocks until the user quits.
func Run(plant dynamo.System, integ dynamo.Integrator, ctrl *hybrid.Controller, x0 []float64, dt float64) error {
	p := tea.NewProgram(NewModel(plant, integ, ctrl, x0, dt))
	_, err := p.Run()
	return err
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
