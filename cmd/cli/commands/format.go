package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jakechorley/helping-hands/pkg/core/model"
)

const (
	colorReset  = "\033[0m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorDim    = "\033[2m"
)

const displayTimeLayout = "Mon 02 Jan 2006 15:04"

// scheduledAtLayouts are accepted for --at, tried in order
var scheduledAtLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04",
	"2006-01-02T15:04",
}

// parseScheduledAt parses a task start time. Times without a zone are read in loc.
func parseScheduledAt(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	for _, layout := range scheduledAtLayouts[1:] {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid time %q, expected RFC 3339 or YYYY-MM-DD HH:MM", raw)
}

// statusColor highlights tasks that are waiting on someone
func statusColor(status model.TaskStatus) string {
	switch status {
	case model.StatusCompleted:
		return colorGreen
	case model.StatusCancelled:
		return colorDim
	case model.StatusPendingVolunteerConfirmation, model.StatusPendingElderlyConfirmation:
		return colorYellow
	case model.StatusAvailable, model.StatusAssigned, model.StatusInProgress:
		return ""
	}
	return colorRed
}

func printTask(w io.Writer, t *model.Task) {
	fmt.Fprintf(w, "ID:          %s\n", t.ID)
	fmt.Fprintf(w, "Title:       %s\n", t.Title)
	fmt.Fprintf(w, "Status:      %s%s%s\n", statusColor(t.Status), t.Status, colorReset)
	fmt.Fprintf(w, "Scheduled:   %s (%d min)\n", t.ScheduledAt.Local().Format(displayTimeLayout), t.EstimatedDurationMinutes)
	fmt.Fprintf(w, "Requester:   %s\n", t.RequesterID)
	if t.VolunteerID != "" {
		fmt.Fprintf(w, "Volunteer:   %s\n", t.VolunteerID)
	}
	if t.Location != "" {
		fmt.Fprintf(w, "Location:    %s\n", t.Location)
	}
	if t.Description != "" {
		fmt.Fprintf(w, "Description: %s\n", t.Description)
	}
	if t.SeriesID != "" {
		fmt.Fprintf(w, "Series:      %s\n", t.SeriesID)
	}
	fmt.Fprintf(w, "Confirmed:   volunteer=%s elderly=%s\n", yesNo(t.VolunteerConfirmed), yesNo(t.ElderlyConfirmed))
	if t.PreviousVolunteerID != "" {
		fmt.Fprintf(w, "Previously:  %s (%s)\n", t.PreviousVolunteerID, t.ReassignmentReason)
	}
}

// printTaskTable prints one line per task with fixed-width columns
func printTaskTable(w io.Writer, tasks []model.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(w, "No tasks found.")
		return
	}

	titleWidth := len("Title")
	for _, t := range tasks {
		if len(t.Title) > titleWidth {
			titleWidth = len(t.Title)
		}
	}
	titleWidth += 2

	fmt.Fprintf(w, "%-38s%-*s%-24s%-32s%s\n", "ID", titleWidth, "Title", "Scheduled", "Status", "Volunteer")
	fmt.Fprintln(w, strings.Repeat("-", 38+titleWidth+24+32+10))
	for _, t := range tasks {
		volunteer := t.VolunteerID
		if volunteer == "" {
			volunteer = "-"
		}
		fmt.Fprintf(w, "%-38s%-*s%-24s%s%-32s%s%s\n",
			t.ID,
			titleWidth, t.Title,
			t.ScheduledAt.Local().Format(displayTimeLayout),
			statusColor(t.Status), t.Status, colorReset,
			volunteer)
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
