// Package content loads the flat-file message templates and knowledge base.
// Both files are read from local storage on every call so edits take effect
// mid-run without a restart; read failures degrade to empty results.
package content

import (
	"bufio"
	"log/slog"
	"os"
	"strings"
)

// Library reads the template-message and knowledge-base files.
type Library struct {
	messagesPath  string
	knowledgePath string
	logger        *slog.Logger
}

// NewLibrary creates a library over the given file paths.
func NewLibrary(messagesPath, knowledgePath string, logger *slog.Logger) *Library {
	if logger == nil {
		logger = slog.Default()
	}
	return &Library{
		messagesPath:  messagesPath,
		knowledgePath: knowledgePath,
		logger:        logger.With("component", "content"),
	}
}

// Templates returns the template messages, one per non-blank line of the
// messages file. Returns an empty slice when the file is missing or
// unreadable.
func (l *Library) Templates() []string {
	f, err := os.Open(l.messagesPath)
	if err != nil {
		l.logger.Warn("failed to open messages file", "path", l.messagesPath, "error", err)
		return nil
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			l.logger.Debug("failed to close messages file", "error", closeErr)
		}
	}()

	var templates []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			templates = append(templates, line)
		}
	}
	if err := scanner.Err(); err != nil {
		l.logger.Warn("failed to read messages file", "path", l.messagesPath, "error", err)
		return nil
	}
	return templates
}

// KnowledgeBase returns the trimmed free-text knowledge base, or an empty
// string when the file is missing or unreadable.
func (l *Library) KnowledgeBase() string {
	data, err := os.ReadFile(l.knowledgePath)
	if err != nil {
		l.logger.Warn("failed to read knowledge base", "path", l.knowledgePath, "error", err)
		return ""
	}
	return strings.TrimSpace(string(data))
}
