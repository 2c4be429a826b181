package agent_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lloro-ai/lloro/internal/agent"
)

func TestStartDegradesWhenBinaryMissing(t *testing.T) {
	w := agent.NewWrapper("definitely-not-a-real-gemini-binary", nil)
	defer w.Stop()

	// A missing binary is not fatal; the wrapper falls back to one-shot
	// mode and only Chat surfaces the failure.
	require.NoError(t, w.Start("gemini-pro"))
	assert.False(t, w.RunningACP())
	assert.Equal(t, "simple", w.Mode())
	assert.Equal(t, "gemini-pro", w.Model())
}

func TestChatFailsCleanlyWithoutBinary(t *testing.T) {
	w := agent.NewWrapper("definitely-not-a-real-gemini-binary", nil)
	defer w.Stop()
	require.NoError(t, w.Start("gemini-pro"))

	_, err := w.Chat("hello")
	require.Error(t, err)
}

func TestRestartReplacesModel(t *testing.T) {
	w := agent.NewWrapper("definitely-not-a-real-gemini-binary", nil)
	defer w.Stop()

	require.NoError(t, w.Start("first-model"))
	require.NoError(t, w.Start("second-model"))
	assert.Equal(t, "second-model", w.Model())
}
