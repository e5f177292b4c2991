// Package mcpserver exposes classification and feedback submission as MCP tools
// over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mitchellh/mapstructure"
	"github.com/spigell/resume-classifier/internal/extract"
	"github.com/spigell/resume-classifier/internal/feedback"
	"github.com/spigell/resume-classifier/internal/scorer"
	"github.com/spigell/resume-classifier/internal/service"
	"go.uber.org/zap"
)

const serverName = "resume-classifier"

type classifyArgs struct {
	Text string `mapstructure:"text"`
	Path string `mapstructure:"path"`
	TopN int    `mapstructure:"top_n"`
}

type feedbackArgs struct {
	Filename       string  `mapstructure:"filename"`
	PredictedLabel string  `mapstructure:"predicted_label"`
	CorrectedLabel string  `mapstructure:"corrected_label"`
	Confidence     float64 `mapstructure:"confidence"`
}

type tools struct {
	svc    *service.Service
	logger *zap.Logger
}

// New builds an MCP server with the classifier tools registered.
func New(svc *service.Service, version string, logger *zap.Logger) *server.MCPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &tools{svc: svc, logger: logger}
	s := server.NewMCPServer(serverName, version)

	classifyTool := mcp.NewTool("classify_resume",
		mcp.WithDescription("Classify a resume into a job role. Pass either the resume text or a path to a PDF, DOCX or TXT file."),
	)
	classifyTool.InputSchema = mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"text":  map[string]interface{}{"type": "string", "description": "Plain resume text"},
			"path":  map[string]interface{}{"type": "string", "description": "Path to a resume document"},
			"top_n": map[string]interface{}{"type": "integer", "description": "Number of top matches to return (default 3)"},
		},
	}
	s.AddTool(classifyTool, t.classify)

	feedbackTool := mcp.NewTool("submit_feedback",
		mcp.WithDescription("Record a reviewer correction for a classified resume"),
	)
	feedbackTool.InputSchema = mcp.ToolInputSchema{
		Type: "object",
		Properties: map[string]interface{}{
			"filename":        map[string]interface{}{"type": "string", "description": "Resume file name in the archive"},
			"predicted_label": map[string]interface{}{"type": "string", "description": "Label returned by the classifier"},
			"corrected_label": map[string]interface{}{"type": "string", "description": "Correct role label"},
			"confidence":      map[string]interface{}{"type": "number", "description": "Confidence of the prediction"},
		},
		Required: []string{"filename", "corrected_label"},
	}
	s.AddTool(feedbackTool, t.submitFeedback)

	reloadTool := mcp.NewTool("reload_model",
		mcp.WithDescription("Reload the supervised model artifact from disk"),
	)
	s.AddTool(reloadTool, t.reload)

	return s
}

// Serve runs the server on stdin/stdout until the client disconnects.
func Serve(s *server.MCPServer) error {
	return server.ServeStdio(s)
}

func decodeArgs(request mcp.CallToolRequest, dst interface{}) error {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		if request.Params.Arguments == nil {
			return nil
		}
		return fmt.Errorf("invalid arguments format")
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           dst,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(args)
}

func (t *tools) classify(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var in classifyArgs
	if err := decodeArgs(request, &in); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var (
		res *scorer.Result
		err error
	)
	switch path := strings.TrimSpace(in.Path); {
	case path != "":
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to read %s: %v", path, readErr)), nil
		}
		if !extract.Supported(path) {
			res, err = t.svc.ClassifyText(ctx, string(data), in.TopN)
		} else {
			res, err = t.svc.ClassifyDocument(ctx, path, data, in.TopN)
		}
	case strings.TrimSpace(in.Text) != "":
		res, err = t.svc.ClassifyText(ctx, in.Text, in.TopN)
	default:
		return mcp.NewToolResultError("either text or path is required"), nil
	}
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to classify resume: %v", err)), nil
	}
	return jsonResult(res)
}

func (t *tools) submitFeedback(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var in feedbackArgs
	if err := decodeArgs(request, &in); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rec, err := t.svc.SubmitFeedback(ctx, feedback.Record{
		Filename:       in.Filename,
		PredictedLabel: in.PredictedLabel,
		CorrectedLabel: in.CorrectedLabel,
		Confidence:     in.Confidence,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to record feedback: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Recorded correction for %s: %s -> %s.", rec.Filename, rec.PredictedLabel, rec.CorrectedLabel)), nil
}

func (t *tools) reload(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	mode, err := t.svc.Reload(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to reload model (still serving %s mode): %v", mode, err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Model reloaded, classification mode: %s.", mode)), nil
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
