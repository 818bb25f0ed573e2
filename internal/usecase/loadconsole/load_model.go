package loadconsole

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"leadrouter/internal/domain/routing"
	"leadrouter/internal/ports"
	"leadrouter/internal/usecase/allocation"
)

const maxShownAppeals = 8
const loadBarWidth = 20

type Options struct {
	RefreshInterval time.Duration
}

type loadModel struct {
	ctx             context.Context
	service         *allocation.Service
	refreshInterval time.Duration

	operators     []allocation.OperatorLoadItem
	selectedIndex int
	appeals       []routing.Appeal
	status        string
	lastRefresh   string
}

type loadsLoadedMsg struct {
	operators []allocation.OperatorLoadItem
	err       error
}

type appealsLoadedMsg struct {
	operatorID uint64
	appeals    []routing.Appeal
	err        error
}

type tickMsg struct{}

func NewLoadModel(ctx context.Context, service *allocation.Service, options Options) tea.Model {
	interval := options.RefreshInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	return &loadModel{
		ctx:             ctx,
		service:         service,
		refreshInterval: interval,
		status:          "loading",
	}
}

func (m *loadModel) Init() tea.Cmd {
	return tea.Batch(m.loadOperatorsCmd(), m.tickCmd())
}

func (m *loadModel) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := message.(type) {
	case tickMsg:
		return m, tea.Batch(m.loadOperatorsCmd(), m.tickCmd())
	case loadsLoadedMsg:
		if msg.err != nil {
			m.status = "refresh failed: " + msg.err.Error()
			return m, nil
		}
		m.operators = msg.operators
		if len(m.operators) == 0 {
			m.selectedIndex = 0
			m.appeals = nil
			m.status = "no operators"
			return m, nil
		}
		if m.selectedIndex >= len(m.operators) {
			m.selectedIndex = len(m.operators) - 1
		}
		m.status = fmt.Sprintf("refreshed, %d operators", len(m.operators))
		m.lastRefresh = time.Now().Format("15:04:05")
		return m, m.loadSelectedAppealsCmd()
	case appealsLoadedMsg:
		if !m.isSelectedOperator(msg.operatorID) {
			return m, nil
		}
		if msg.err != nil {
			m.appeals = nil
			m.status = "appeals load failed: " + msg.err.Error()
			return m, nil
		}
		m.appeals = msg.appeals
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "g":
			m.status = "refreshing"
			return m, m.loadOperatorsCmd()
		case "up", "k":
			if m.selectedIndex > 0 {
				m.selectedIndex--
				return m, m.loadSelectedAppealsCmd()
			}
			return m, nil
		case "down", "j":
			if m.selectedIndex < len(m.operators)-1 {
				m.selectedIndex++
				return m, m.loadSelectedAppealsCmd()
			}
			return m, nil
		}
	}
	return m, nil
}

func (m *loadModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true)
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	selectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("62"))
	fullStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("203"))

	var builder strings.Builder
	builder.WriteString(titleStyle.Render("Operator Load Console"))
	builder.WriteString("\n")
	builder.WriteString(dimStyle.Render(fmt.Sprintf("refresh=%s last=%s", m.refreshInterval, firstNonEmpty(m.lastRefresh, "-"))))
	builder.WriteString("\n\n")

	builder.WriteString(sectionStyle.Render("Operators"))
	builder.WriteString("\n")
	if len(m.operators) == 0 {
		builder.WriteString(dimStyle.Render("- no operators"))
		builder.WriteString("\n\n")
	} else {
		for index, operator := range m.operators {
			line := fmt.Sprintf("op-%d [%s] %s %d/%d total=%d",
				operator.OperatorID,
				operator.Status,
				renderLoadBar(operator.ActiveAppeals, operator.ActiveAppealsLimit),
				operator.ActiveAppeals,
				operator.ActiveAppealsLimit,
				operator.AssignedTotal,
			)
			switch {
			case index == m.selectedIndex:
				builder.WriteString(selectedStyle.Render("> " + line))
			case operator.ActiveAppeals >= operator.ActiveAppealsLimit:
				builder.WriteString(fullStyle.Render("  " + line))
			default:
				builder.WriteString("  " + line)
			}
			builder.WriteString("\n")
		}
		builder.WriteString("\n")
	}

	builder.WriteString(sectionStyle.Render("Appeals"))
	builder.WriteString("\n")
	if len(m.appeals) == 0 {
		builder.WriteString(dimStyle.Render("- no appeals"))
		builder.WriteString("\n\n")
	} else {
		shown := m.appeals
		if len(shown) > maxShownAppeals {
			shown = shown[len(shown)-maxShownAppeals:]
		}
		for _, appeal := range shown {
			builder.WriteString(fmt.Sprintf("- a%d [%s] lead=%d source=%d\n",
				appeal.AppealID, appeal.Status, appeal.LeadID, appeal.LeadSourceID))
		}
		builder.WriteString("\n")
	}

	builder.WriteString(sectionStyle.Render("Status"))
	builder.WriteString("\n")
	builder.WriteString("- " + firstNonEmpty(m.status, "ready"))
	builder.WriteString("\n\n")

	builder.WriteString(dimStyle.Render("Keys: ↑/k ↓/j move  g refresh  q quit"))
	return builder.String()
}

func (m *loadModel) tickCmd() tea.Cmd {
	return tea.Tick(m.refreshInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m *loadModel) loadOperatorsCmd() tea.Cmd {
	return func() tea.Msg {
		operators, err := m.service.OperatorLoads(m.ctx)
		if err != nil {
			return loadsLoadedMsg{err: err}
		}
		return loadsLoadedMsg{operators: operators}
	}
}

func (m *loadModel) loadSelectedAppealsCmd() tea.Cmd {
	if len(m.operators) == 0 {
		return nil
	}
	selected := m.operators[m.selectedIndex]
	return func() tea.Msg {
		appeals, err := m.service.ListAppeals(m.ctx, ports.AppealFilter{})
		if err != nil {
			return appealsLoadedMsg{operatorID: selected.OperatorID, err: err}
		}
		return appealsLoadedMsg{
			operatorID: selected.OperatorID,
			appeals:    filterByOperator(appeals, selected.OperatorID),
		}
	}
}

func (m *loadModel) isSelectedOperator(operatorID uint64) bool {
	if len(m.operators) == 0 {
		return false
	}
	return m.operators[m.selectedIndex].OperatorID == operatorID
}

func filterByOperator(appeals []routing.Appeal, operatorID uint64) []routing.Appeal {
	filtered := make([]routing.Appeal, 0, len(appeals))
	for _, appeal := range appeals {
		if appeal.AssignedOperatorID != nil && *appeal.AssignedOperatorID == operatorID {
			filtered = append(filtered, appeal)
		}
	}
	return filtered
}

func renderLoadBar(active, limit int) string {
	if limit <= 0 {
		return "[" + strings.Repeat("░", loadBarWidth) + "]"
	}
	filled := active * loadBarWidth / limit
	if filled > loadBarWidth {
		filled = loadBarWidth
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", loadBarWidth-filled) + "]"
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
