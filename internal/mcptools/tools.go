// Package mcptools exposes read-only ledger queries as MCP tools.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"expensetracker/internal/core"
	"expensetracker/internal/services"
)

// Tools answers tool calls on behalf of a fixed owner.
type Tools struct {
	svc    *services.Services
	caller core.Owner
}

func New(svc *services.Services, caller core.Owner) *Tools {
	return &Tools{svc: svc, caller: caller}
}

// RegisterTools adds all ledger tools to the server.
func RegisterTools(s *server.MCPServer, t *Tools) {
	s.AddTool(mcp.NewTool("group_summary",
		mcp.WithDescription("Totals of a group: income, expenses, debt, balance, available funds and the users with pending receipts."),
		mcp.WithString("group_id",
			mcp.Required(),
			mcp.Description("Group identifier"),
		),
	), t.groupSummary)

	s.AddTool(mcp.NewTool("pending_receipts",
		mcp.WithDescription("Receipts awaiting payment in a group, oldest period first."),
		mcp.WithString("group_id",
			mcp.Required(),
			mcp.Description("Group identifier"),
		),
		mcp.WithString("user_id",
			mcp.Description("Only receipts billed to this user"),
		),
	), t.pendingReceipts)

	s.AddTool(mcp.NewTool("next_transaction_id",
		mcp.WithDescription("Preview the transaction id the next income or expense of a user would receive. Nothing is reserved."),
		mcp.WithString("group_id",
			mcp.Required(),
			mcp.Description("Group identifier"),
		),
		mcp.WithString("user_id",
			mcp.Required(),
			mcp.Description("User the movement belongs to"),
		),
		mcp.WithString("movement_type",
			mcp.Description("income or expense (default: income)"),
		),
	), t.nextTransactionID)
}

func (t *Tools) groupSummary(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	group, err := request.RequireString("group_id")
	if err != nil {
		return mcp.NewToolResultError("group_id is required"), nil
	}
	sum, err := t.svc.Summary.GroupSummary(ctx, t.caller, group)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(sum)
}

type pendingReceipt struct {
	User   string `json:"user"`
	Name   string `json:"name"`
	Amount string `json:"amount"`
	Period string `json:"period,omitempty"`
}

func (t *Tools) pendingReceipts(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	group, err := request.RequireString("group_id")
	if err != nil {
		return mcp.NewToolResultError("group_id is required"), nil
	}
	user := mcp.ParseString(request, "user_id", "")
	ms, err := t.svc.Receipts.Pending(ctx, t.caller, group, user)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out := make([]pendingReceipt, 0, len(ms))
	for _, m := range ms {
		p := pendingReceipt{User: m.User, Name: m.Name, Amount: m.Amount.StringFixed(2)}
		if m.Date != nil {
			p.Period = m.Date.Format("2006-01")
		}
		out = append(out, p)
	}
	return jsonResult(out)
}

func (t *Tools) nextTransactionID(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	group, err := request.RequireString("group_id")
	if err != nil {
		return mcp.NewToolResultError("group_id is required"), nil
	}
	user, err := request.RequireString("user_id")
	if err != nil {
		return mcp.NewToolResultError("user_id is required"), nil
	}
	mt := mcp.ParseString(request, "movement_type", string(core.Income))
	id, err := t.svc.Transactions.NextID(ctx, t.caller, group, user, mt)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"group":               group,
		"user":                user,
		"movement_type":       mt,
		"next_transaction_id": id,
	})
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode tool result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}
