package agent

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
)

// The ACP handshake: initialize, the initialized notification, then
// session/new. Replies are read synchronously off the child's stdout.
func (w *Wrapper) initializeLocked() error {
	w.reqID++
	initReq := map[string]any{
		"jsonrpc": "2.0",
		"id":      w.reqID,
		"method":  "initialize",
		"params": map[string]any{
			"protocolVersion": 1,
			"clientInfo": map[string]any{
				"name":    "lloro",
				"version": "1.0.0",
			},
			"clientCapabilities": map[string]any{},
		},
	}
	if err := w.sendJSON(initReq); err != nil {
		return err
	}
	resp, err := w.readJSON()
	if err != nil {
		return err
	}
	if errObj, hasError := resp["error"]; hasError {
		return fmt.Errorf("initialize error: %v", errObj)
	}

	if err := w.sendJSON(map[string]any{"jsonrpc": "2.0", "method": "initialized"}); err != nil {
		return err
	}

	cwd, _ := os.Getwd()
	w.reqID++
	newSessionReq := map[string]any{
		"jsonrpc": "2.0",
		"id":      w.reqID,
		"method":  "session/new",
		"params": map[string]any{
			"cwd":        cwd,
			"mcpServers": []any{},
		},
	}
	if err := w.sendJSON(newSessionReq); err != nil {
		return err
	}
	resp, err = w.readJSON()
	if err != nil {
		return err
	}
	if errObj, hasError := resp["error"]; hasError {
		return fmt.Errorf("session/new error: %v", errObj)
	}

	if result, ok := resp["result"].(map[string]any); ok {
		if sid, ok := result["sessionId"].(string); ok {
			w.sessionID = sid
		}
	}
	if w.sessionID == "" {
		return fmt.Errorf("no session id in session/new response")
	}

	w.logger.Debug("acp session established", zap.String("sessionId", w.sessionID))
	return nil
}

// chatACP sends one session/prompt request and accumulates streamed
// agent_message_chunk updates until the final result arrives.
func (w *Wrapper) chatACP(prompt string) (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.reqID++
	promptReq := map[string]any{
		"jsonrpc": "2.0",
		"id":      w.reqID,
		"method":  "session/prompt",
		"params": map[string]any{
			"sessionId": w.sessionID,
			"prompt": []map[string]any{
				{"type": "text", "text": prompt},
			},
		},
	}
	if err := w.sendJSON(promptReq); err != nil {
		return "", fmt.Errorf("send prompt: %w", err)
	}

	var reply strings.Builder
	for {
		resp, err := w.readJSON()
		if err != nil {
			if err == io.EOF {
				break
			}
			return "", fmt.Errorf("read response: %w", err)
		}

		if method, ok := resp["method"].(string); ok && method == "session/update" {
			reply.WriteString(chunkText(resp))
			continue
		}

		if result, hasResult := resp["result"]; hasResult {
			if m, ok := result.(map[string]any); ok {
				if stopReason, ok := m["stopReason"].(string); ok {
					w.logger.Debug("acp turn finished", zap.String("stopReason", stopReason))
				}
			}
			break
		}
		if errObj, hasError := resp["error"]; hasError {
			return "", fmt.Errorf("agent error: %v", errObj)
		}
	}

	return reply.String(), nil
}

// chunkText pulls the text out of an agent_message_chunk notification;
// other update kinds contribute nothing.
func chunkText(resp map[string]any) string {
	params, ok := resp["params"].(map[string]any)
	if !ok {
		return ""
	}
	update, ok := params["update"].(map[string]any)
	if !ok {
		return ""
	}
	if kind, ok := update["sessionUpdate"].(string); !ok || kind != "agent_message_chunk" {
		return ""
	}
	content, ok := update["content"].(map[string]any)
	if !ok {
		return ""
	}
	text, _ := content["text"].(string)
	return text
}

func (w *Wrapper) sendJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w.logger.Debug("acp send", zap.ByteString("payload", data))
	_, err = fmt.Fprintf(w.stdin, "%s\n", data)
	return err
}

func (w *Wrapper) readJSON() (map[string]any, error) {
	line, err := w.reader.ReadBytes('\n')
	if err != nil {
		return nil, err
	}
	w.logger.Debug("acp recv", zap.ByteString("payload", line))

	var result map[string]any
	if err := json.Unmarshal(line, &result); err != nil {
		return nil, err
	}
	return result, nil
}
