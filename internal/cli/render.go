package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/MKhiriev/go-delta-sync/models"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	labelStyle = lipgloss.NewStyle().Faint(true).Width(14)
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func field(label, value string) string {
	if value == "" {
		value = "-"
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
}

func stateStyle(state string) lipgloss.Style {
	switch state {
	case models.StatusError:
		return errorStyle
	case models.StatusReady:
		return okStyle
	}
	return lipgloss.NewStyle()
}

func renderStatus(st models.SyncStatus, owner string, pending int, states []models.SyncState) string {
	lines := []string{
		titleStyle.Render("Sync status"),
		field("state", stateStyle(st.Status).Render(st.Status)),
		field("summary", st.Summary),
		field("cursor", st.Cursor),
		field("owner", owner),
		field("pending", fmt.Sprint(pending)),
	}

	for _, s := range states {
		lines = append(lines, field(s.EntityName, fmt.Sprintf("%s (%s)", s.LastRemoteCursor, s.UpdatedAt.Format("2006-01-02 15:04:05"))))
	}

	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func renderSyncResult(res models.SyncResult) string {
	lines := []string{
		titleStyle.Render("Upload"),
		field("cursor", res.Envelope.Cursor),
		field("sent", fmt.Sprint(len(res.Envelope.Deltas))),
		field("stored", fmt.Sprint(res.Stored)),
	}
	if len(res.Conflicts) > 0 {
		lines = append(lines, renderConflicts(res.Conflicts))
	}
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func renderDownloadResult(res models.DownloadResult) string {
	lines := []string{
		titleStyle.Render("Download"),
		field("cursor", res.Cursor),
		field("received", fmt.Sprint(len(res.Deltas))),
		field("applied", fmt.Sprint(res.Applied)),
	}
	if len(res.Conflicts) > 0 {
		lines = append(lines, renderConflicts(res.Conflicts))
	}
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func renderConflicts(conflicts []models.Conflict) string {
	if len(conflicts) == 0 {
		return "no conflicts"
	}

	var b strings.Builder
	b.WriteString(errorStyle.Render(fmt.Sprintf("%d conflict(s)", len(conflicts))))
	for _, c := range conflicts {
		id := c.ID
		if id == "" {
			id = "?"
		}
		fmt.Fprintf(&b, "\n  %s/%s: %s", c.Entity, id, c.Reason)
	}
	return b.String()
}

func renderVersion(info models.AppBuildInfo) string {
	return lipgloss.JoinVertical(lipgloss.Left,
		field("version", info.BuildVersion()),
		field("date", info.BuildDate()),
		field("commit", info.BuildCommit()),
	)
}
