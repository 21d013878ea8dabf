// package formatter renders connected-user listings to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/desertthunder/spotbridge/internal/models"
	"github.com/desertthunder/spotbridge/internal/shared"
)

// Format names accepted by [Render].
const (
	FormatText     = "text"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
)

// Render dispatches to the exporter for format. An empty format means plain text.
func Render(format string, tokens []*models.UserToken) ([]byte, error) {
	switch strings.ToLower(format) {
	case "", FormatText, "txt":
		return ExportToText(tokens)
	case FormatCSV:
		return ExportToCSV(tokens)
	case FormatMarkdown, "md":
		return ExportToMarkdown(tokens)
	default:
		return nil, fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
}

// ExportToCSV converts users to CSV with columns: User, Saved, Scope. Refresh tokens are never written.
func ExportToCSV(tokens []*models.UserToken) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"User", "Saved", "Scope"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, token := range tokens {
		record := []string{token.UserID, savedAt(token), token.Scope}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts users to a Markdown table.
func ExportToMarkdown(tokens []*models.UserToken) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Connected users\n\n")
	buf.WriteString(fmt.Sprintf("**Users**: %d\n\n", len(tokens)))

	if len(tokens) == 0 {
		return buf.Bytes(), nil
	}

	buf.WriteString("| User | Saved | Scope |\n")
	buf.WriteString("| --- | --- | --- |\n")
	for _, token := range tokens {
		scope := strings.ReplaceAll(token.Scope, "|", "\\|")
		buf.WriteString(fmt.Sprintf("| %s | %s | %s |\n", token.UserID, savedAt(token), scope))
	}

	return buf.Bytes(), nil
}

// ExportToText converts users to an aligned plain text table with a trailing count.
func ExportToText(tokens []*models.UserToken) ([]byte, error) {
	var buf bytes.Buffer

	if len(tokens) == 0 {
		buf.WriteString("No connected users\n")
		return buf.Bytes(), nil
	}

	buf.WriteString(fmt.Sprintf("%-32s %-24s %s\n", "USER", "SAVED", "SCOPE"))
	for _, token := range tokens {
		buf.WriteString(fmt.Sprintf("%-32s %-24s %s\n", token.UserID, savedAt(token), token.Scope))
	}
	buf.WriteString(fmt.Sprintf("\n%d user(s)\n", len(tokens)))

	return buf.Bytes(), nil
}

// WriteExport renders tokens in format and writes them to path.
func WriteExport(format string, tokens []*models.UserToken, path string) error {
	if path == "" {
		return fmt.Errorf("%w: output path", shared.ErrMissingArgument)
	}

	data, err := Render(format, tokens)
	if err != nil {
		return err
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return nil
}

func savedAt(token *models.UserToken) string {
	return token.SavedAt.UTC().Format(time.RFC3339)
}
