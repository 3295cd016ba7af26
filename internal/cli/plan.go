package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/mkravets/brollplan/internal/config"
	"github.com/mkravets/brollplan/internal/pipeline"
	"github.com/mkravets/brollplan/internal/types"
)

func newPlanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan <input>",
		Short: "Plan b-roll insertions for a local video file or URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlan(cmd, args[0])
		},
	}

	// Visible flags
	cmd.Flags().String("broll", "", "JSON file with b-roll descriptors: [{id, metadata}]")
	cmd.Flags().String("out", "", "Output directory")

	// Hidden tuning flags (internal)
	cmd.Flags().Float64("gap", 0, "Minimum gap between insertions, seconds")
	cmd.Flags().Float64("min-dur", 0, "Minimum insertion duration, seconds")
	cmd.Flags().Float64("max-dur", 0, "Maximum insertion duration, seconds")
	cmd.Flags().Float64("min-confidence", 0, "Similarity floor for a match")
	cmd.Flags().Int("max-insertions", 0, "Insertion cap per plan")
	for _, name := range []string{"gap", "min-dur", "max-dur", "min-confidence", "max-insertions"} {
		_ = cmd.Flags().MarkHidden(name)
	}

	_ = cmd.MarkFlagRequired("broll")
	return cmd
}

func runPlan(cmd *cobra.Command, input string) error {
	configPath, _ := cmd.Flags().GetString("config")
	brollPath, _ := cmd.Flags().GetString("broll")
	outDir, _ := cmd.Flags().GetString("out")

	fileCfg, err := config.Load(configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return err
	}

	apiKey := os.Getenv("EMBEDDINGS_API_KEY")
	if apiKey == "" {
		return errors.New("EMBEDDINGS_API_KEY is required (set it in .env)")
	}

	plannerCfg := fileCfg.PlannerConfig()
	if v, _ := cmd.Flags().GetFloat64("gap"); cmd.Flags().Changed("gap") {
		plannerCfg.MinInsertionGap = v
	}
	if v, _ := cmd.Flags().GetFloat64("min-dur"); cmd.Flags().Changed("min-dur") {
		plannerCfg.MinInsertionDuration = v
	}
	if v, _ := cmd.Flags().GetFloat64("max-dur"); cmd.Flags().Changed("max-dur") {
		plannerCfg.MaxInsertionDuration = v
	}
	if v, _ := cmd.Flags().GetFloat64("min-confidence"); cmd.Flags().Changed("min-confidence") {
		plannerCfg.MinConfidence = v
	}
	if v, _ := cmd.Flags().GetInt("max-insertions"); cmd.Flags().Changed("max-insertions") {
		plannerCfg.MaxInsertions = v
	}

	if outDir == "" {
		outDir = fileCfg.Paths.OutDir
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()

	cfg := pipeline.Config{
		Input:     input,
		BRollPath: brollPath,
		OutDir:    outDir,
		Planner:   plannerCfg,
		Logf: func(format string, args ...any) {
			fmt.Fprintf(cmd.OutOrStdout(), format+"\n", args...)
		},
		CacheDir: fileCfg.Paths.CacheDir,

		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",

		WhisperBin:   getenvDefault("WHISPER_BIN", fileCfg.Whisper.Bin),
		WhisperModel: getenvDefault("WHISPER_MODEL", fileCfg.Whisper.Model),

		EmbedAPIKey:       apiKey,
		EmbedModel:        getenvDefault("EMBEDDINGS_MODEL", fileCfg.Embeddings.Model),
		EmbedBaseURL:      getenvDefault("EMBEDDINGS_BASE_URL", fileCfg.Embeddings.BaseURL),
		EmbedAllowedHosts: allowedHosts(fileCfg),
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	res, err := pipeline.Run(ctx, cfg)
	if err != nil {
		return err
	}

	renderPlanTable(cmd, res.Plan)
	return nil
}

func allowedHosts(cfg config.Config) []string {
	if env := os.Getenv("EMBEDDINGS_ALLOWED_HOSTS"); env != "" {
		return strings.Split(env, ",")
	}
	return cfg.Embeddings.AllowedHosts
}

func renderPlanTable(cmd *cobra.Command, plan types.Plan) {
	if len(plan.Insertions) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no insertions planned")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"#", "start", "duration", "b-roll", "confidence"})
	for i, ins := range plan.Insertions {
		t.AppendRow(table.Row{
			i + 1,
			fmt.Sprintf("%.1fs", ins.StartSec),
			fmt.Sprintf("%.1fs", ins.DurationSec),
			ins.BRollID,
			fmt.Sprintf("%.2f", ins.Confidence),
		})
	}
	t.Render()
}
