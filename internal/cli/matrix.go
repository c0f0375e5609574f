package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/cruciblehq/cibox/internal/manifest"
	"github.com/cruciblehq/cibox/internal/settings"
)

// Represents the 'cibox matrix' command.
type MatrixCmd struct {
	Source   string `arg:"" help:"Local directory or git URL (a #fragment selects the branch)."`
	Defaults string `help:"Glob of language defaults descriptors." placeholder:"GLOB"`
}

// Executes the matrix command.
//
// Lists the build variations of the source with the index that selects each
// one. Nothing is provisioned.
func (c *MatrixCmd) Run(ctx context.Context, s *settings.Settings, log *slog.Logger) error {
	settings.Override(&s.Defaults.Pattern, c.Defaults)

	_, configs, err := resolve(ctx, c.Source, s, log)
	if err != nil {
		return err
	}

	return printMatrix(os.Stdout, configs)
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// Writes the variations as a table.
func printMatrix(w io.Writer, configs []manifest.Config) error {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("ID", "LANGUAGE", "VARIANT", "IMAGE", "ENVIRONMENT").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	for i, cfg := range configs {
		t.Row(strconv.Itoa(i), cfg.Language, cfg.Variant, cfg.Image, cfg.Environment)
	}

	_, err := fmt.Fprintln(w, t.Render())
	return err
}
