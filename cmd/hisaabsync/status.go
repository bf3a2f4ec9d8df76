// Copyright 2025 The hisaabdost Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show offline/pending/syncing state",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

var (
	onlineStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	offlineStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	bannerStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 2)
)

func runStatus(cmd *cobra.Command, _ []string) error {
	client, cfg, err := openClient(cmd.Context())
	if err != nil {
		return err
	}
	defer client.Close()

	// Read-only: the probe result is rendered directly rather than fed
	// into the monitor, so showing status never starts a sync.
	info := probeConnectivity(cfg)
	st := client.Broadcaster.Status()
	st.IsOnline = info.Online

	var lines []string
	if st.IsOnline {
		lines = append(lines, onlineStyle.Render("● Online"))
	} else {
		lines = append(lines, offlineStyle.Render("● Offline"))
	}

	switch {
	case st.SyncInProgress:
		lines = append(lines, pendingStyle.Render("↻ Syncing…"))
	case st.PendingCount > 0:
		lines = append(lines, pendingStyle.Render(fmt.Sprintf("%d pending change(s)", st.PendingCount)))
	default:
		lines = append(lines, dimStyle.Render("All changes synced"))
	}

	if !st.LastSyncTime.IsZero() {
		lines = append(lines, dimStyle.Render("Last sync: "+st.LastSyncTime.Local().Format("2006-01-02 15:04:05")))
	}

	fmt.Println(bannerStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
	return nil
}
