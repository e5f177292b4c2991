package retrain

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spigell/resume-classifier/internal/model"
)

// Publish persists the pipeline at path atomically.
func Publish(path string, p *model.Pipeline) error {
	if err := model.Save(path, p); err != nil {
		return fmt.Errorf("publish model: %w", err)
	}
	return nil
}

// NotifyReload asks a running server to reload its model.
func NotifyReload(ctx context.Context, client *http.Client, url string) error {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return fmt.Errorf("build reload request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("reload request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("reload returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return nil
}
