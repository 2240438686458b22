package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/medisecure/medisecure/internal/session"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	userStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	botStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("114"))
	helpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
)

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("MediSecure AI — Patient Portal"))
	b.WriteString("\n\n")

	left := lipgloss.JoinVertical(lipgloss.Left,
		panelStyle.Render(m.viewRegistration()),
		panelStyle.Render(m.viewCoverage()),
	)
	right := panelStyle.Render(m.viewChat())
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, " ", right))
	b.WriteString("\n")

	if m.status != "" {
		b.WriteString(m.status)
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("tab focus · enter submit · ctrl+r refresh · ctrl+g letter · ctrl+d download · ctrl+c quit"))
	return b.String()
}

func (m Model) viewRegistration() string {
	var b strings.Builder
	b.WriteString(labelStyle.Render("Your Details"))
	b.WriteString("\n")
	for i := range m.inputs {
		b.WriteString(m.inputs[i].View())
		b.WriteString("\n")
	}
	if line := m.regionLine(session.RegionRegistration); line != "" {
		b.WriteString(line)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) viewCoverage() string {
	var b strings.Builder
	b.WriteString(labelStyle.Render("Coverage"))
	b.WriteString("\n")

	if !m.snap.Registered() {
		b.WriteString("No patient registered yet.")
		return b.String()
	}

	b.WriteString(fmt.Sprintf("Patient  %s (%s)\n", m.snap.Patient.Name, m.snap.Patient.Phone))
	if m.snap.Plan != nil {
		b.WriteString(fmt.Sprintf("Plan     %s\n", m.snap.Plan.PlanName))
		if m.snap.Plan.Description != "" {
			b.WriteString(fmt.Sprintf("         %s\n", m.snap.Plan.Description))
		}
	}
	if m.snap.Usage != nil {
		b.WriteString(fmt.Sprintf("Usage    %d visits · $%.2f spent\n", m.snap.Usage.Visits, m.snap.Usage.TotalSpend))
	}
	if m.snap.Letter != nil {
		b.WriteString(fmt.Sprintf("Letter   %s\n", m.snap.Letter.LetterType))
		b.WriteString(clampLines(m.snap.Letter.Content, 6))
		b.WriteString("\n")
	}
	if line := m.regionLine(session.RegionDashboard); line != "" {
		b.WriteString(line)
		b.WriteString("\n")
	}
	if line := m.regionLine(session.RegionLetter); line != "" {
		b.WriteString(line)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) viewChat() string {
	var b strings.Builder
	b.WriteString(labelStyle.Render("Chat"))
	b.WriteString("\n")

	for _, turn := range m.snap.Transcript {
		switch turn.From {
		case session.SpeakerUser:
			b.WriteString(userStyle.Render("you  ") + turn.Text)
		default:
			b.WriteString(botStyle.Render("bot  ") + turn.Text)
		}
		b.WriteString("\n")
	}
	if line := m.regionLine(session.RegionChat); line != "" {
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString(m.chat.View())
	return b.String()
}
