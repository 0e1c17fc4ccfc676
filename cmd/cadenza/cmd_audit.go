package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"cadenza/internal/store"
)

var (
	auditLimit       int
	auditCleanupDays int
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the resolution audit store",
}

var auditGraphsCmd = &cobra.Command{
	Use:   "graphs",
	Short: "List stored provenance graphs, newest first",
	RunE:  listAuditGraphs,
}

var auditOutcomesCmd = &cobra.Command{
	Use:   "outcomes",
	Short: "List stored resolution outcomes, newest first",
	RunE:  listAuditOutcomes,
}

var auditStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show audit store statistics",
	RunE:  showAuditStats,
}

var auditCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete graphs older than the retention window",
	RunE:  runAuditCleanup,
}

func init() {
	auditCmd.PersistentFlags().IntVar(&auditLimit, "limit", 20, "Maximum rows to list")
	auditCleanupCmd.Flags().IntVar(&auditCleanupDays, "days", 0, "Retention window in days (default from config)")

	auditCmd.AddCommand(auditGraphsCmd)
	auditCmd.AddCommand(auditOutcomesCmd)
	auditCmd.AddCommand(auditStatsCmd)
	auditCmd.AddCommand(auditCleanupCmd)
}

func listAuditGraphs(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	graphs, err := st.ListGraphs(context.Background(), auditLimit)
	if err != nil {
		return err
	}

	s := NewStyles()
	if len(graphs) == 0 {
		fmt.Println(s.Muted.Render("no graphs recorded"))
		return nil
	}
	for _, g := range graphs {
		fmt.Printf("%s  %s\n", s.Title.Render(g.ID), s.Muted.Render(g.CreatedAt.Local().Format("2006-01-02 15:04:05")))
		fmt.Printf("  %q  %s\n", g.Utterance,
			s.Muted.Render(fmt.Sprintf("%d nodes, %d edges", g.NodeCount, g.EdgeCount)))
	}
	return nil
}

func listAuditOutcomes(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	outcomes, err := st.ListOutcomes(context.Background(), auditLimit)
	if err != nil {
		return err
	}

	s := NewStyles()
	if len(outcomes) == 0 {
		fmt.Println(s.Muted.Render("no outcomes recorded"))
		return nil
	}
	for _, o := range outcomes {
		fmt.Printf("%s  %s\n", s.Title.Render(o.ID), s.Muted.Render(o.CreatedAt.Local().Format("2006-01-02 15:04:05")))
		fmt.Printf("  %q\n", o.Utterance)
		renderOutcomeRow(s, o)
	}
	return nil
}

func renderOutcomeRow(s Styles, o store.OutcomeRecord) {
	switch {
	case o.ResolvedScope != "":
		fmt.Printf("  %s %s\n", s.Success.Render(o.ResolvedScope),
			s.Muted.Render(fmt.Sprintf("confidence %.2f", o.ScopeConf)))
	case len(o.Holes) > 0:
		fmt.Printf("  %s\n", s.Warning.Render(fmt.Sprintf("%d open question(s)", len(o.Holes))))
	default:
		fmt.Printf("  %s\n", s.Muted.Render(o.Explanation))
	}
}

func showAuditStats(cmd *cobra.Command, args []string) error {
	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := st.Stats(context.Background())
	if err != nil {
		return err
	}

	s := NewStyles()
	fmt.Println(s.Title.Render("audit store") + "  " + s.Muted.Render(st.Path()))

	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %s %v\n", s.Label.Render(fmt.Sprintf("%-22s", k)), stats[k])
	}
	return nil
}

func runAuditCleanup(cmd *cobra.Command, args []string) error {
	days := auditCleanupDays
	if days == 0 {
		days = cfg.Store.RetentionDays
	}
	if days <= 0 {
		return fmt.Errorf("retention window not set: pass --days or set store.retention_days")
	}

	st, err := openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	removed, err := st.CleanupOldGraphs(context.Background(), days)
	if err != nil {
		return err
	}

	s := NewStyles()
	fmt.Println(s.Success.Render(fmt.Sprintf("removed %d graph(s) older than %d days", removed, days)))
	return nil
}
