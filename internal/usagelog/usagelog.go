// Package usagelog appends one CSV row per completed model request, giving
// a machine-readable audit trail of token spend alongside the structured
// logs.
package usagelog

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/polychat/polychat/internal/logging"
	"github.com/polychat/polychat/pkg/types"
)

var csvHeader = []string{
	"Datetime",
	"Provider",
	"Model Name",
	"Input Tokens",
	"Thinking Tokens",
	"Output Tokens",
	"Cached Tokens",
	"Input Price",
	"Output Price",
	"Delay",
	"Time to response",
	"Tokens per second",
}

// Logger appends usage rows to a CSV file, creating it with a header row on
// first use.
type Logger struct {
	mu   sync.Mutex
	path string
}

// New creates a usage logger writing to the given CSV path.
func New(path string) *Logger {
	return &Logger{path: path}
}

// Record appends one row for a completed request.
func (l *Logger) Record(u types.Usage) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.ensureFile(); err != nil {
		return err
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open usage log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	row := []string{
		time.Now().Format("2006-01-02 15:04:05"),
		u.Provider,
		u.Model,
		fmt.Sprintf("%d", u.PromptTokens),
		fmt.Sprintf("%d", u.ReasoningTokens),
		fmt.Sprintf("%d", u.CompletionTokens),
		fmt.Sprintf("%d", u.CachedTokens),
		fmt.Sprintf("%.8f", u.InputCost),
		fmt.Sprintf("%.8f", u.OutputCost),
		fmt.Sprintf("%.3f", u.Delay),
		fmt.Sprintf("%.3f", u.ResponseTime),
		fmt.Sprintf("%.2f", u.Throughput),
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("failed to write usage row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush usage row: %w", err)
	}

	logging.For("usagelog").Debug().
		Str("provider", u.Provider).
		Str("model", u.Model).
		Int("totalTokens", u.TotalTokens).
		Msg("usage recorded")
	return nil
}

func (l *Logger) ensureFile() error {
	if _, err := os.Stat(l.path); err == nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create usage log directory: %w", err)
	}

	f, err := os.Create(l.path)
	if err != nil {
		return fmt.Errorf("failed to create usage log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write usage log header: %w", err)
	}
	w.Flush()
	return w.Error()
}
