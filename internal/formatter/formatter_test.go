package formatter

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/spotbridge/internal/models"
	"github.com/desertthunder/spotbridge/internal/shared"
	th "github.com/desertthunder/spotbridge/internal/testing"
)

func fixtures() []*models.UserToken {
	saved := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	return []*models.UserToken{
		{UserID: "alice", RefreshToken: "refresh-alice", Scope: "streaming user-read-email", SavedAt: saved},
		{UserID: "bob", RefreshToken: "refresh-bob", Scope: "a|b", SavedAt: saved},
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(fixtures())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.HasPrefix(output, "User,Saved,Scope\n") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "alice,2025-03-01T12:00:00Z,streaming user-read-email") {
			t.Errorf("CSV missing alice row, got: %s", output)
		}
		if strings.Contains(output, "refresh-") {
			t.Error("CSV must not contain refresh tokens")
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(fixtures())
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "**Users**: 2") {
			t.Errorf("Markdown missing count, got: %s", output)
		}
		if !strings.Contains(output, "| bob | 2025-03-01T12:00:00Z | a\\|b |") {
			t.Errorf("Markdown should escape pipes in scope, got: %s", output)
		}
	})

	t.Run("ExportToMarkdown empty", func(t *testing.T) {
		data, _ := ExportToMarkdown(nil)
		if strings.Contains(string(data), "| User |") {
			t.Error("expected no table for empty listing")
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(fixtures())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		if !strings.HasPrefix(output, "USER") {
			t.Errorf("text missing header, got: %s", output)
		}
		if !strings.HasSuffix(output, "\n2 user(s)\n") {
			t.Errorf("text missing count, got: %s", output)
		}
	})

	t.Run("ExportToText empty", func(t *testing.T) {
		data, _ := ExportToText(nil)
		if string(data) != "No connected users\n" {
			t.Errorf("unexpected output %q", string(data))
		}
	})
}

func TestRender(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{"", "USER"},
		{"text", "USER"},
		{"CSV", "User,Saved,Scope"},
		{"md", "# Connected users"},
		{"markdown", "# Connected users"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			data, err := Render(tt.format, fixtures())
			if err != nil {
				t.Fatalf("Render(%q) failed: %v", tt.format, err)
			}
			if !strings.HasPrefix(string(data), tt.want) {
				t.Errorf("Render(%q) = %q, want prefix %q", tt.format, string(data), tt.want)
			}
		})
	}

	t.Run("unknown format", func(t *testing.T) {
		_, err := Render("yaml", fixtures())
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestWriteExport(t *testing.T) {
	t.Run("writes file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "users.csv")
		if err := WriteExport(FormatCSV, fixtures(), path); err != nil {
			t.Fatalf("WriteExport failed: %v", err)
		}

		th.AssertFileExists(t, path)
		if !strings.Contains(th.MustReadFile(t, path), "bob") {
			t.Error("expected export to contain bob")
		}
	})

	t.Run("missing path", func(t *testing.T) {
		err := WriteExport(FormatCSV, fixtures(), "")
		if !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("unwritable path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing", "users.csv")
		if err := WriteExport(FormatText, fixtures(), path); err == nil {
			t.Error("expected error for missing directory")
		}
	})
}
