package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/cloudtun/cloudtun/pkg/types"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99"))

	labelStyle = lipgloss.NewStyle().
			Faint(true).
			Width(12)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	stateColors = map[types.LifecycleState]lipgloss.Color{
		types.StateAbsent:              lipgloss.Color("241"),
		types.StateProvisioning:        lipgloss.Color("214"),
		types.StateStopped:             lipgloss.Color("167"),
		types.StateRunningDisconnected: lipgloss.Color("110"),
		types.StateRunningConnected:    lipgloss.Color("78"),
	}
)

func stateStyle(state types.LifecycleState) lipgloss.Style {
	color, ok := stateColors[state]
	if !ok {
		color = lipgloss.Color("241")
	}
	return lipgloss.NewStyle().Bold(true).Foreground(color)
}

func renderSnapshot(snap *types.Snapshot) string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("cloudtun"))
	b.WriteString("\n")
	row(&b, "State", stateStyle(snap.State).Render(string(snap.State)))

	if snap.Server != nil {
		row(&b, "Instance", snap.Server.InstanceName)
		row(&b, "Zone", snap.Server.Zone)
		if snap.Server.PublicIP != "" {
			row(&b, "Endpoint", snap.Server.PublicIP)
		}
		if snap.Server.PublicKey != "" {
			row(&b, "Public key", snap.Server.PublicKey)
		}
	}

	tunnel := "down"
	if snap.TunnelUp {
		tunnel = "up"
	}
	row(&b, "Tunnel", tunnel)

	if snap.EgressIP != "" {
		egress := snap.EgressIP
		if snap.Country != "" {
			egress += " (" + snap.Country + ")"
		}
		row(&b, "Egress", egress)
	}
	if snap.Drifted {
		row(&b, "Drift", warnStyle.Render("detected"))
	}
	if snap.Repaired {
		row(&b, "Repaired", "client config updated")
	}
	for _, w := range snap.Warnings {
		b.WriteString(warnStyle.Render("! " + w))
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

func row(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "%s %s\n", labelStyle.Render(label), value)
}
