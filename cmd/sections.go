package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"github.com/spf13/cobra"

	"github.com/almostacms/almostacms/internal/content"
	"github.com/almostacms/almostacms/internal/sections"
	"github.com/almostacms/almostacms/internal/sections/catalog"
	"github.com/almostacms/almostacms/internal/site"
	"github.com/almostacms/almostacms/internal/ui/markdown"
	"github.com/almostacms/almostacms/internal/ui/styles"
)

var sectionsCmd = &cobra.Command{
	Use:   "sections",
	Short: "Inspect section types and section data",
}

var sectionsListJSON bool

var sectionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered section types by category",
	Long: `List every registered section type, grouped by category.

Built-in sections come first within a category; user sections are read from
~/.config/almostacms/sections/*.yaml.

Examples:
  almostacms sections list
  almostacms sections list --json | jq '.[].sections[].id'`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		svc, err := catalog.NewService(userSectionsDir())
		if err != nil {
			return err
		}
		if sectionsListJSON {
			return writeCatalogJSON(cmd.OutOrStdout(), svc.Grouped())
		}
		writeCatalog(cmd.OutOrStdout(), svc.Grouped())
		return nil
	},
}

type sectionDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon,omitempty"`
	Description string `json:"description,omitempty"`
	Editor      string `json:"editor"`
	Source      string `json:"source"`
}

type groupDTO struct {
	Category string       `json:"category"`
	Name     string       `json:"name"`
	Sections []sectionDTO `json:"sections"`
}

func writeCatalogJSON(w io.Writer, groups []catalog.Group) error {
	out := make([]groupDTO, 0, len(groups))
	for _, g := range groups {
		dto := groupDTO{Category: string(g.Category.ID), Name: g.Category.Name, Sections: []sectionDTO{}}
		for _, d := range g.Sections {
			editor := "generic"
			if d.HasBespokeEditor() {
				editor = "bespoke"
			}
			dto.Sections = append(dto.Sections, sectionDTO{
				ID:          d.ID(),
				Name:        d.Name(),
				Icon:        d.Icon(),
				Description: d.Description(),
				Editor:      editor,
				Source:      d.Source().String(),
			})
		}
		out = append(out, dto)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func writeCatalog(w io.Writer, groups []catalog.Group) {
	for i, g := range groups {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s  %s\n", styles.CategoryStyle.Render(g.Category.Name), styles.MutedStyle.Render(g.Category.Description))
		if len(g.Sections) == 0 {
			fmt.Fprintln(w, styles.MutedStyle.Render("  (none)"))
			continue
		}
		for _, d := range g.Sections {
			line := fmt.Sprintf("  %s %-12s %s", d.Icon(), d.ID(), d.Description())
			if d.Source() != sections.SourceBuiltIn {
				line += styles.MutedStyle.Render(" [" + d.Source().String() + "]")
			}
			fmt.Fprintln(w, line)
		}
	}
}

var sectionsShowRaw bool

var sectionsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a section type with its example document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := catalog.NewService(userSectionsDir())
		if err != nil {
			return err
		}
		def, err := svc.Show(args[0])
		if err != nil {
			return err
		}
		doc := markdown.SectionDoc(def)
		if sectionsShowRaw {
			_, err = io.WriteString(cmd.OutOrStdout(), doc)
			return err
		}
		r, err := markdown.New(80, cfg.UI.MarkdownStyle)
		if err != nil {
			return err
		}
		out, err := r.Render(doc)
		if err != nil {
			return err
		}
		_, err = io.WriteString(cmd.OutOrStdout(), out)
		return err
	},
}

var sectionsGetCmd = &cobra.Command{
	Use:   "get <id> [jsonpath]",
	Short: "Print a section's data, or the value at a JSONPath",
	Long: `Print the data document of a section in the current site. With a JSONPath
expression only the matching value is printed.

Examples:
  almostacms sections get hero
  almostacms sections get hero '$.cta.primary.url'
  almostacms sections get links '$.links[*].title'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		ws, err := openWorkspace(ctx, cfg)
		if err != nil {
			return err
		}
		defer ws.Close()

		loaded, _, err := ws.loadSections(ctx)
		if err != nil {
			return err
		}
		dataFile := args[0] + ".json"
		for _, s := range loaded {
			if s.ID == args[0] {
				dataFile = s.DataFile
				break
			}
		}

		raw, err := ws.loader.Source().Fetch(ctx, site.DataPath(dataFile))
		if err != nil {
			return err
		}
		doc, err := content.Parse(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", dataFile, err)
		}
		if len(args) == 1 {
			_, err = cmd.OutOrStdout().Write(append(doc.Pretty(), '\n'))
			return err
		}
		return writeJSONPath(cmd.OutOrStdout(), doc, args[1])
	},
}

// writeJSONPath evaluates expr against doc and prints the result as JSON.
func writeJSONPath(w io.Writer, doc content.Value, expr string) error {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return fmt.Errorf("empty jsonpath expression")
	}
	val, err := jsonpath.Get(expr, doc.ToAny())
	if err != nil {
		return fmt.Errorf("jsonpath %s: %w", expr, err)
	}
	v, err := content.FromAny(val)
	if err != nil {
		return err
	}
	_, err = w.Write(append(v.Pretty(), '\n'))
	return err
}

var sectionsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate every section of the current site",
	Long: `Load every section listed in the manifest and run its editor's checks.
Exits non-zero when a section cannot be loaded or has problems.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		ws, err := openWorkspace(ctx, cfg)
		if err != nil {
			return err
		}
		defer ws.Close()

		loaded, warnings, err := ws.loadSections(ctx)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		for _, warn := range warnings {
			fmt.Fprintln(w, styles.WarningStyle.Render("warning: ")+warn.Error())
		}

		failed := 0
		for _, sec := range loaded {
			s := ws.loader.Session(sec)
			if err := s.Open(ctx); err != nil {
				failed++
				fmt.Fprintf(w, "%s %s: %v\n", styles.ErrorStyle.Render("✗"), sec.ID, err)
				continue
			}
			problems := s.Validate()
			s.Close()
			if len(problems) == 0 {
				fmt.Fprintf(w, "%s %s\n", styles.SuccessStyle.Render("✓"), sec.ID)
				continue
			}
			failed++
			fmt.Fprintf(w, "%s %s\n", styles.ErrorStyle.Render("✗"), sec.ID)
			for _, p := range problems {
				fmt.Fprintf(w, "    %s\n", p)
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d sections failed", failed, len(loaded))
		}
		return nil
	},
}

func init() {
	sectionsListCmd.Flags().BoolVar(&sectionsListJSON, "json", false, "print JSON")
	sectionsShowCmd.Flags().BoolVar(&sectionsShowRaw, "raw", false, "print markdown without rendering")

	sectionsCmd.AddCommand(sectionsListCmd, sectionsShowCmd, sectionsGetCmd, sectionsCheckCmd)
	rootCmd.AddCommand(sectionsCmd)
}
