package agent

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// chatSimple runs the gemini binary once per prompt. It is the fallback
// when no ACP subprocess could be kept alive.
func (w *Wrapper) chatSimple(prompt string) (string, error) {
	w.mu.Lock()
	bin, model := w.bin, w.model
	w.mu.Unlock()

	w.logger.Debug("one-shot gemini invocation", zap.Int("promptLen", len(prompt)))

	cmd := exec.Command(bin, "-p", prompt, "--output-format", "json", "--model", model)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		w.logger.Warn("gemini invocation failed",
			zap.Error(err), zap.String("stderr", stderr.String()))
		return "", fmt.Errorf("gemini failed: %w - %s", err, stderr.String())
	}

	return parseSimpleOutput(stdout.String()), nil
}

// parseSimpleOutput copes with the several shapes gemini's JSON output has
// shipped in; unparseable output is returned raw.
func parseSimpleOutput(output string) string {
	var result struct {
		Response   string `json:"response"`
		Text       string `json:"text"`
		Content    string `json:"content"`
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}

	if err := json.Unmarshal([]byte(output), &result); err != nil {
		return strings.TrimSpace(output)
	}

	switch {
	case result.Response != "":
		return result.Response
	case result.Text != "":
		return result.Text
	case result.Content != "":
		return result.Content
	case len(result.Candidates) > 0 && len(result.Candidates[0].Content.Parts) > 0:
		return result.Candidates[0].Content.Parts[0].Text
	}
	return strings.TrimSpace(output)
}
