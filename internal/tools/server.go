// Package tools exposes reminder management as MCP tools over stdio.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"recuerdito/internal/reminder"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	serverName    = "recuerdito"
	serverVersion = "1.0.0"
)

// Lister is the read side the tools need.
type Lister interface {
	List(ctx context.Context, f reminder.Filter) ([]reminder.Reminder, error)
	ListDueWithin(ctx context.Context, userID uint64, now time.Time, window time.Duration, loc *time.Location) ([]reminder.Reminder, error)
}

// Server acts on behalf of a single user.
type Server struct {
	mcpServer *server.MCPServer
	svc       *reminder.Service
	lists     Lister
	userID    uint64
	loc       *time.Location
	now       func() time.Time
}

func NewServer(svc *reminder.Service, lists Lister, userID uint64, loc *time.Location) *Server {
	if loc == nil {
		loc = time.Local
	}
	s := &Server{svc: svc, lists: lists, userID: userID, loc: loc, now: time.Now}

	s.mcpServer = server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithToolCapabilities(false),
	)

	s.registerTools()
	return s
}

// MCPServer returns the underlying MCP server for serving.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool("add_reminder",
			mcp.WithDescription("Create a reminder and schedule its notifications"),
			mcp.WithString("title", mcp.Required(), mcp.Description("Reminder title")),
			mcp.WithString("due_date", mcp.Required(), mcp.Description("Due date, YYYY-MM-DD")),
			mcp.WithString("due_time", mcp.Required(), mcp.Description("Due time of day, HH:MM (24h)")),
			mcp.WithString("description", mcp.Description("Optional description")),
			mcp.WithString("category", mcp.Description("payment_electricity, payment_water, payment_internet, payment_gas, payment_university, personal, work, study or other")),
			mcp.WithString("type", mcp.Description("Free label such as Bill or Task")),
			mcp.WithString("repeat", mcp.Description("none, weekly, monthly or yearly (stored only)")),
			mcp.WithNumber("notify_days_before", mcp.Description("Days before the due time to send an early alert (0 = none)")),
		),
		s.handleAdd,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("list_reminders",
			mcp.WithDescription("List reminders with their priority and time remaining"),
			mcp.WithString("status", mcp.Description("active (default), completed or cancelled")),
			mcp.WithString("category", mcp.Description("Optional category filter")),
		),
		s.handleList,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("get_urgent_reminders",
			mcp.WithDescription("Active reminders due within the next 24 hours"),
		),
		s.handleUrgent,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("complete_reminder",
			mcp.WithDescription("Mark a reminder as completed and cancel its notifications"),
			mcp.WithNumber("id", mcp.Required(), mcp.Description("Reminder ID")),
		),
		s.handleComplete,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("delete_reminder",
			mcp.WithDescription("Delete a reminder permanently"),
			mcp.WithNumber("id", mcp.Required(), mcp.Description("Reminder ID")),
		),
		s.handleDelete,
	)

	s.mcpServer.AddTool(
		mcp.NewTool("update_reminder",
			mcp.WithDescription("Change a reminder; its notifications are rescheduled"),
			mcp.WithNumber("id", mcp.Required(), mcp.Description("Reminder ID")),
			mcp.WithString("title", mcp.Description("New title")),
			mcp.WithString("description", mcp.Description("New description")),
			mcp.WithString("due_date", mcp.Description("New due date, YYYY-MM-DD")),
			mcp.WithString("due_time", mcp.Description("New due time, HH:MM")),
			mcp.WithString("category", mcp.Description("New category")),
			mcp.WithNumber("notify_days_before", mcp.Description("New early-alert offset in days")),
		),
		s.handleUpdate,
	)
}

type reminderView struct {
	ID               uint64    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description,omitempty"`
	DueAt            time.Time `json:"due_at"`
	Category         string    `json:"category"`
	NotifyDaysBefore int       `json:"notify_days_before"`
	Status           string    `json:"status"`
	Priority         string    `json:"priority,omitempty"`
	TimeRemaining    string    `json:"time_remaining,omitempty"`
}

func (s *Server) view(r reminder.Reminder) reminderView {
	v := reminderView{
		ID:               r.ID,
		Title:            r.Title,
		Description:      r.Description,
		Category:         string(r.Category),
		NotifyDaysBefore: r.NotifyDaysBefore,
		Status:           string(r.Status),
	}
	if due, err := r.EffectiveDue(s.loc); err == nil {
		v.DueAt = due
		if r.IsActive() {
			now := s.now()
			v.Priority = reminder.Classify(due, now).String()
			v.TimeRemaining = reminder.FormatTimeRemaining(due.Sub(now))
		}
	}
	return v
}

func jsonResult(v any) *mcp.CallToolResult {
	output, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(output))
}

func (s *Server) listResult(rows []reminder.Reminder, empty string) *mcp.CallToolResult {
	if len(rows) == 0 {
		return mcp.NewToolResultText(empty)
	}
	out := make([]reminderView, 0, len(rows))
	for _, r := range rows {
		out = append(out, s.view(r))
	}
	return jsonResult(out)
}

func reqID(req mcp.CallToolRequest) (uint64, bool) {
	idFloat := req.GetFloat("id", -1)
	if idFloat < 1 {
		return 0, false
	}
	return uint64(idFloat), true
}

func (s *Server) handleAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var r reminder.Reminder
	var err error

	r.DueDate, r.DueTime, err = reminder.ParseDueInput(req.GetString("due_date", ""), req.GetString("due_time", ""), s.loc)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if r.Category, err = reminder.ParseCategory(req.GetString("category", "")); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if r.RepeatType, err = reminder.ParseRepeatType(req.GetString("repeat", "")); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	r.UserID = s.userID
	r.Title = req.GetString("title", "")
	r.Description = req.GetString("description", "")
	r.Label = req.GetString("type", "")
	r.NotifyDaysBefore = int(req.GetFloat("notify_days_before", 0))

	added, err := s.svc.Create(ctx, r)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to add reminder: %v", err)), nil
	}
	return jsonResult(s.view(*added)), nil
}

func (s *Server) handleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	f := reminder.Filter{UserID: s.userID}
	var err error
	if f.Status, err = reminder.ParseStatus(req.GetString("status", "")); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if c := req.GetString("category", ""); c != "" {
		if f.Category, err = reminder.ParseCategory(c); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}

	rows, err := s.lists.List(ctx, f)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to list reminders: %v", err)), nil
	}
	return s.listResult(rows, "No reminders found."), nil
}

func (s *Server) handleUrgent(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rows, err := s.lists.ListDueWithin(ctx, s.userID, s.now(), reminder.Day, s.loc)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to get urgent reminders: %v", err)), nil
	}
	return s.listResult(rows, "No urgent reminders."), nil
}

func (s *Server) handleComplete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, ok := reqID(req)
	if !ok {
		return mcp.NewToolResultError("id is required and must be a positive number"), nil
	}
	if err := s.svc.Complete(ctx, s.userID, id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to complete reminder: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Reminder %d marked as completed.", id)), nil
}

func (s *Server) handleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, ok := reqID(req)
	if !ok {
		return mcp.NewToolResultError("id is required and must be a positive number"), nil
	}
	if err := s.svc.Delete(ctx, s.userID, id); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to delete reminder: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Reminder %d deleted.", id)), nil
}

func (s *Server) handleUpdate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, ok := reqID(req)
	if !ok {
		return mcp.NewToolResultError("id is required and must be a positive number"), nil
	}
	cur, err := s.svc.Get(ctx, s.userID, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to update reminder: %v", err)), nil
	}
	r := *cur

	if v := req.GetString("title", ""); v != "" {
		r.Title = v
	}
	if v := req.GetString("description", ""); v != "" {
		r.Description = v
	}
	date, clock := req.GetString("due_date", ""), req.GetString("due_time", "")
	if date != "" || clock != "" {
		if date == "" {
			date = r.DueDate.In(s.loc).Format(reminder.DateLayout)
		}
		if clock == "" {
			clock = r.DueTime.In(s.loc).Format(reminder.ClockLayout)
		}
		if r.DueDate, r.DueTime, err = reminder.ParseDueInput(date, clock, s.loc); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	if v := req.GetString("category", ""); v != "" {
		if r.Category, err = reminder.ParseCategory(v); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
	}
	if v := req.GetFloat("notify_days_before", -1); v >= 0 {
		r.NotifyDaysBefore = int(v)
	}

	updated, err := s.svc.Update(ctx, s.userID, r)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to update reminder: %v", err)), nil
	}
	return jsonResult(s.view(*updated)), nil
}
