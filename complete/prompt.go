package complete

import (
	"log/slog"
	"os"
	"strings"

	inkling "github.com/Paranoid-AF/inkling"
	defaults "github.com/Paranoid-AF/inkling/default"
)

// LoadSystemPrompt returns the custom system prompt from the config
// directory, or the built-in default when none exists or it is blank.
func LoadSystemPrompt() string {
	path := inkling.PromptPath()
	data, err := os.ReadFile(path)
	if err == nil {
		if custom := strings.TrimSpace(string(data)); custom != "" {
			slog.Info("loaded custom prompt", "path", path)
			return custom
		}
	}
	slog.Debug("no custom prompt, using built-in default")
	return strings.TrimSpace(defaults.DefaultPrompt)
}
