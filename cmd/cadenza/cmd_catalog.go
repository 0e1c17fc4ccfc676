package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"cadenza/internal/catalog"
)

var catalogDir string

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect the resolution catalogs",
	Long: `Lists ellipsis templates, metonymy patterns, and scope rules as the
resolver sees them: built-ins merged with any extension files from the
catalog directory (extensions override built-ins by id).`,
}

var catalogTemplatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List ellipsis templates",
	RunE:  listTemplates,
}

var catalogPatternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "List metonymy patterns",
	RunE:  listPatterns,
}

var catalogRulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List scope ranking rules",
	RunE:  listRules,
}

var catalogWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the catalog directory and hot-reload extensions",
	Long: `Holds the merged catalog in memory and reloads it whenever an
extension file in the catalog directory changes. Useful while authoring
extensions: validation errors surface immediately instead of on the
next resolve.`,
	RunE: runCatalogWatch,
}

func init() {
	catalogCmd.PersistentFlags().StringVar(&catalogDir, "dir", "", "Catalog extension directory (default from config)")

	catalogCmd.AddCommand(catalogTemplatesCmd)
	catalogCmd.AddCommand(catalogPatternsCmd)
	catalogCmd.AddCommand(catalogRulesCmd)
	catalogCmd.AddCommand(catalogWatchCmd)
}

func runCatalogWatch(cmd *cobra.Command, args []string) error {
	dir := catalogDir
	if dir == "" {
		if !cfg.Catalog.Watch {
			return fmt.Errorf("catalog watching is disabled: set catalog.watch: true or pass --dir")
		}
		dir = cfg.Catalog.Dir
	}
	if dir == "" {
		return fmt.Errorf("no catalog directory configured: pass --dir or set catalog.dir")
	}

	reg := catalog.NewRegistry()
	w, err := catalog.NewWatcher(dir, reg, logger)
	if err != nil {
		return fmt.Errorf("failed to create catalog watcher: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := w.Start(ctx); err != nil {
		return err
	}

	s := NewStyles()
	rules, templates, patterns := reg.Counts()
	fmt.Println(s.Section.Render("watching") + "  " + dir)
	fmt.Println(s.Muted.Render(fmt.Sprintf("  %d rule(s), %d template(s), %d pattern(s) loaded; edit *.yaml to reload, ctrl+c to stop",
		rules, templates, patterns)))

	<-ctx.Done()
	w.Stop()

	stats := w.Stats()
	fmt.Println()
	fmt.Println(s.Section.Render("session"))
	fmt.Printf("  %d reload(s), %d error(s)\n", stats.ReloadsTriggered, stats.Errors)
	return nil
}

func catalogRegistry() (*catalog.Registry, error) {
	dir := catalogDir
	if dir == "" {
		dir = cfg.Catalog.Dir
	}
	return loadRegistry(dir)
}

func listTemplates(cmd *cobra.Command, args []string) error {
	reg, err := catalogRegistry()
	if err != nil {
		return err
	}
	s := NewStyles()

	templates := reg.EllipsisTemplates()
	for _, t := range templates {
		fmt.Printf("%s  %s\n", s.Title.Render(t.ID), s.Muted.Render(string(t.Category)))
		fmt.Printf("  %s %s\n", s.Label.Render("triggers "), strings.Join(t.Triggers, ", "))
		fmt.Printf("  %s %s  %s %s\n",
			s.Label.Render("requires "), string(t.Requires),
			s.Label.Render("transform"), string(t.Transformation.Kind))
		if t.Example != "" {
			fmt.Printf("  %s %s\n", s.Label.Render("example  "), s.Muted.Render(t.Example))
		}
		fmt.Println()
	}

	printCatalogFooter(s, len(templates), "template")
	return nil
}

func listPatterns(cmd *cobra.Command, args []string) error {
	reg, err := catalogRegistry()
	if err != nil {
		return err
	}
	s := NewStyles()

	patterns := reg.MetonymyPatterns()
	for _, p := range patterns {
		fmt.Printf("%s  %s\n", s.Title.Render(p.ID), s.Muted.Render(p.Expression))
		fmt.Printf("  %s %s\n", s.Label.Render("triggers "), strings.Join(p.Triggers, ", "))
		for _, c := range p.Candidates {
			marker := "   "
			if c.ID == p.DefaultID {
				marker = s.Success.Render(" * ")
			}
			fmt.Printf("  %s%s  %s %s\n", marker, c.ID,
				s.Muted.Render(fmt.Sprintf("prior %.2f", c.Prior)),
				s.Muted.Render(c.Description))
		}
		fmt.Println()
	}

	printCatalogFooter(s, len(patterns), "pattern")
	return nil
}

func listRules(cmd *cobra.Command, args []string) error {
	reg, err := catalogRegistry()
	if err != nil {
		return err
	}
	s := NewStyles()

	rules := reg.ScopeRules()
	for _, r := range rules {
		fmt.Printf("%s  %s\n", s.Title.Render(r.ID), s.Muted.Render(fmt.Sprintf("boost %.2f", r.ConfidenceBoost)))
		cond := string(r.Condition.Kind)
		if r.Condition.Class != "" {
			cond += " " + string(r.Condition.Class)
		}
		if len(r.Condition.Terms) > 0 {
			cond += " [" + strings.Join(r.Condition.Terms, ", ") + "]"
		}
		fmt.Printf("  %s %s\n", s.Label.Render("condition"), cond)
		if r.Description != "" {
			fmt.Printf("  %s\n", s.Muted.Render(r.Description))
		}
		fmt.Println()
	}

	printCatalogFooter(s, len(rules), "rule")
	return nil
}

func printCatalogFooter(s Styles, n int, noun string) {
	plural := noun
	if n != 1 {
		plural += "s"
	}
	fmt.Println(s.Muted.Render(fmt.Sprintf("%d %s", n, plural)))
}
