package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/opd-ai/neteq/simulation"
	"github.com/opd-ai/neteq/stats"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Width(22)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(0, 1)
)

var qualityColors = map[stats.QualityLevel]lipgloss.Color{
	stats.QualityExcellent:    lipgloss.Color("42"),
	stats.QualityGood:         lipgloss.Color("114"),
	stats.QualityFair:         lipgloss.Color("220"),
	stats.QualityPoor:         lipgloss.Color("208"),
	stats.QualityUnacceptable: lipgloss.Color("196"),
}

// renderSummary formats the outcome of a run for the terminal.
func renderSummary(result *simulation.Result, config *CLIConfig) string {
	snap := result.Statistics
	var b strings.Builder

	mode := "NetEQ"
	if config.noNetEQ {
		mode = "bypass"
	}
	b.WriteString(titleStyle.Render(fmt.Sprintf("NetEQ simulation (%s)", mode)))
	b.WriteString("\n")

	row := func(label, value string) {
		b.WriteString(labelStyle.Render(label))
		b.WriteString(valueStyle.Render(value))
		b.WriteString("\n")
	}

	row("Stream", result.StreamID)
	row("Played", fmt.Sprintf("%v (%d frames)", result.Duration, result.Frames))
	quality := lipgloss.NewStyle().Bold(true).Foreground(qualityColors[result.Quality])
	b.WriteString(labelStyle.Render("Quality"))
	b.WriteString(quality.Render(result.Quality.String()))
	b.WriteString("\n\n")

	b.WriteString(headerStyle.Render("Buffer"))
	b.WriteString("\n")
	row("Target delay", fmt.Sprintf("%d ms", snap.TargetDelayMs))
	row("Buffer level", fmt.Sprintf("%d ms", snap.CurrentBufferSizeMs))
	row("Mean waiting time", fmt.Sprintf("%d ms", snap.Network.MeanWaitingTimeMs))
	row("Expand rate", permille(snap.Network.ExpandRate))
	row("Accelerate rate", permille(snap.Network.AccelerateRate))
	row("Preemptive rate", permille(snap.Network.PreemptiveRate))
	row("Concealment events", fmt.Sprintf("%d", snap.Lifetime.ConcealmentEvents))
	row("Buffer flushes", fmt.Sprintf("%d", snap.Lifetime.BufferFlushes))
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("Packets"))
	b.WriteString("\n")
	row("Received", fmt.Sprintf("%d", snap.Lifetime.JitterBufferPacketsReceived))
	row("Lost", fmt.Sprintf("%d", snap.Lifetime.LostPackets))
	row("Late discarded", fmt.Sprintf("%d", snap.Lifetime.LatePacketsDiscarded))
	row("Duplicates", fmt.Sprintf("%d", snap.Lifetime.DuplicatePackets))
	row("Reordered", fmt.Sprintf("%d (max distance %d)", snap.Network.ReorderedPackets, snap.Network.MaxReorderDistance))
	if result.Network.Sent > 0 {
		row("Network sent/lost", fmt.Sprintf("%d / %d", result.Network.Sent, result.Network.Lost))
	}
	if result.DecodeErrors > 0 || result.InsertErrors > 0 {
		row("Decode/insert errors", fmt.Sprintf("%d / %d", result.DecodeErrors, result.InsertErrors))
	}
	b.WriteString("\n")

	b.WriteString(headerStyle.Render("Operations"))
	b.WriteString("\n")
	names := make([]string, 0, len(snap.Operations))
	for name := range snap.Operations {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		row(name, fmt.Sprintf("%d", snap.Operations[name]))
	}

	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func permille(q14 uint16) string {
	return fmt.Sprintf("%.1f‰", stats.Q14ToPerMille(q14))
}
