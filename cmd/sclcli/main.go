// Command sclcli runs an analysis from the terminal: pick a scenario pack,
// generate locally, and write the export document and executive report.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"supercritical/internal/export"
	"supercritical/internal/llmclient"
	"supercritical/internal/orchestrator"
	"supercritical/internal/report"
	"supercritical/internal/scenario"
	"supercritical/internal/scl"
	"supercritical/internal/session"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sclcli",
		Short:         "Run effect-graph analyses from the command line",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newScenariosCmd(), newRunCmd(), newReportCmd())
	return root
}

func newScenariosCmd() *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "scenarios",
		Short: "List available scenario packs",
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := scenario.Builtin()
			if err != nil {
				return err
			}
			packs := lib.Packs()
			if mode != "" {
				m := scl.Mode(mode)
				if !m.Valid() {
					return fmt.Errorf("unknown mode %q", mode)
				}
				packs = lib.ForMode(m)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tMODE\tDIFFICULTY\tTITLE")
			for _, p := range packs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Mode, p.Difficulty, p.Title)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&mode, "mode", "", "only list packs for this mode")
	return cmd
}

func newRunCmd() *cobra.Command {
	var (
		outDir   string
		provider string
		model    string
	)
	cmd := &cobra.Command{
		Use:   "run <scenario-id>",
		Short: "Run a full local analysis from a scenario pack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			ctx := cmd.Context()

			lib, err := scenario.Builtin()
			if err != nil {
				return err
			}
			pack, ok := lib.ByID(args[0])
			if !ok {
				return fmt.Errorf("scenario %q not found, try 'sclcli scenarios'", args[0])
			}

			client, err := buildClient(ctx, provider, model)
			if err != nil {
				return err
			}
			defer client.Close()

			sessions := session.NewManager()
			sess := sessions.Create(pack.Mode, nil, pack.SeedsCopy())
			log.Printf("session %s created from pack %s (%s)", sess.ID, pack.ID, pack.Mode)

			local := orchestrator.NewLocalGenerator(client, orchestrator.NewStaticKnowledge())
			orch := orchestrator.New(sessions, nil, local, orchestrator.Options{})

			run, err := orch.Generate()
			if err != nil {
				return err
			}
			go logProgress(run)

			ev, err := run.Wait(ctx)
			if err != nil {
				return err
			}
			if ev.Type != orchestrator.EventComplete {
				return fmt.Errorf("generation %s: %s", ev.Type, ev.Err)
			}

			final, _ := sessions.Current()
			printScore(cmd, final)
			return writeOutputs(outDir, final)
		},
	}
	cmd.Flags().StringVar(&outDir, "out", "out", "output directory")
	cmd.Flags().StringVar(&provider, "provider", "gemini", "LLM provider: gemini or openrouter")
	cmd.Flags().StringVar(&model, "model", "", "model id (provider default when empty)")
	return cmd
}

func newReportCmd() *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "report <export.json>",
		Short: "Render the executive report from an exported session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			doc, err := export.Parse(data)
			if err != nil {
				return err
			}
			html := report.ExecutiveHTML(doc.Session, time.Now())
			if outPath == "" {
				outPath = strings.TrimSuffix(args[0], filepath.Ext(args[0])) + ".html"
			}
			if err := os.WriteFile(outPath, []byte(html), 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "report written to %s\n", outPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&outPath, "o", "", "output HTML path")
	return cmd
}

func buildClient(ctx context.Context, provider, model string) (llmclient.LLMClient, error) {
	switch strings.ToLower(provider) {
	case "openrouter":
		if model == "" {
			model = "openai/gpt-4o-mini"
		}
		return llmclient.NewOpenRouterClient(os.Getenv("OPENROUTER_API_KEY"), model, "")
	case "gemini", "":
		if model == "" {
			model = "gemini-2.0-flash"
		}
		return llmclient.NewGeminiClient(ctx, model)
	default:
		return nil, fmt.Errorf("unknown provider %q", provider)
	}
}

func logProgress(run *orchestrator.Run) {
	for ev := range run.Events() {
		if ev.Type == orchestrator.EventProgress {
			log.Printf("[%3.0f%%] %s", ev.Progress*100, ev.Step)
		}
	}
}

func printScore(cmd *cobra.Command, sess scl.Session) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nSession %s (%s)\n", sess.ID, sess.Mode)
	fmt.Fprintf(out, "  effects: %d  edges: %d  leaps: %d\n",
		len(sess.EffectGraph.Nodes), len(sess.EffectGraph.Edges), len(sess.Leaps))
	fmt.Fprintf(out, "  completeness: %.2f  novelty: %.2f  feasibility: %.2f  leap detection: %.2f\n",
		sess.Score.Completeness, sess.Score.Novelty, sess.Score.Feasibility, sess.Score.LeapDetection)
	fmt.Fprintf(out, "  overall: %.2f\n", sess.Score.Overall())
}

func writeOutputs(outDir string, sess scl.Session) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	now := time.Now()

	data, err := export.Marshal(sess, now)
	if err != nil {
		return err
	}
	jsonPath := filepath.Join(outDir, export.FileName(sess, now))
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		return err
	}

	htmlPath := strings.TrimSuffix(jsonPath, ".json") + ".html"
	if err := os.WriteFile(htmlPath, []byte(report.ExecutiveHTML(sess, now)), 0o644); err != nil {
		return err
	}

	log.Printf("export written to %s", jsonPath)
	log.Printf("report written to %s", htmlPath)
	return nil
}
