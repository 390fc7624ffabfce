package main

import (
	"fmt"
	"strings"
	"time"

	"recuerdito/internal/jobs"
	"recuerdito/internal/notify"
	"recuerdito/internal/reminder"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("170")).Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	titleStyle  = lipgloss.NewStyle().Bold(true)

	priorityStyles = map[reminder.Priority]lipgloss.Style{
		reminder.PriorityUrgent:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		reminder.PrioritySoon:     lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		reminder.PriorityUpcoming: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
	}
)

func renderReminders(rows []reminder.Reminder, now time.Time, loc *time.Location) string {
	if len(rows) == 0 {
		return mutedStyle.Render("No reminders.") + "\n"
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-5s %-9s %-16s %-18s %s", "ID", "PRIORITY", "DUE", "REMAINING", "TITLE")))
	b.WriteString("\n")
	for _, r := range rows {
		due, err := r.EffectiveDue(loc)
		if err != nil {
			fmt.Fprintf(&b, "%-5d %s\n", r.ID, mutedStyle.Render("invalid due date"))
			continue
		}

		prio, remaining := "-", "-"
		if r.IsActive() {
			p := reminder.Classify(due, now)
			prio = priorityStyles[p].Render(fmt.Sprintf("%-9s", p))
			remaining = reminder.FormatTimeRemaining(due.Sub(now))
		} else {
			prio = fmt.Sprintf("%-9s", prio)
		}

		title := titleStyle.Render(r.Title)
		if r.NotifyDaysBefore > 0 {
			title += mutedStyle.Render(fmt.Sprintf(" (aviso %dd antes)", r.NotifyDaysBefore))
		}
		fmt.Fprintf(&b, "%-5d %s %-16s %-18s %s\n", r.ID, prio, due.Format("2006-01-02 15:04"), remaining, title)
	}
	return b.String()
}

func renderJobs(pending []jobs.Job, now time.Time, loc *time.Location) string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(headerStyle.Render("Pending jobs"))
	b.WriteString("\n")
	if len(pending) == 0 {
		b.WriteString(mutedStyle.Render("none") + "\n")
		return b.String()
	}
	for _, j := range pending {
		label := string(j.Type)
		if id, kind, ok := notify.ParseJobKey(j.Key); ok {
			label = fmt.Sprintf("reminder %d %s", id, kind)
		}
		in := j.RunAt.Sub(now).Round(time.Minute)
		fmt.Fprintf(&b, "%-28s %s %s\n", label, j.RunAt.In(loc).Format("2006-01-02 15:04"), mutedStyle.Render("in "+in.String()))
	}
	return b.String()
}
