package commands

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/frontier/internal/analysis"
	"github.com/wonny/frontier/internal/frontier"
	"github.com/wonny/frontier/internal/report"
	"github.com/wonny/frontier/internal/studyconfig"
)

// studyCmd represents the study command
var studyCmd = &cobra.Command{
	Use:   "study",
	Short: "YAML 분석 정의 실행/검증",
	Long: `YAML 파일로 정의한 재현 가능한 분석을 실행합니다.

파일의 SHA256 해시와 원문을 snapshot.json으로 결과와 함께 저장하므로
같은 파일과 같은 가격 데이터로 언제든 같은 결과를 다시 만들 수 있습니다.

Subcommands:
  run       - 분석 실행
  validate  - 파일 검증 및 경고 출력

Example:
  go run ./cmd/frontier study validate studies/gmx_gns.yaml
  go run ./cmd/frontier study run studies/gmx_gns.yaml`,
}

var (
	studyRunCmd = &cobra.Command{
		Use:   "run [study.yaml]",
		Short: "분석 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runStudy,
	}

	studyValidateCmd = &cobra.Command{
		Use:   "validate [study.yaml]",
		Short: "파일 검증",
		Args:  cobra.ExactArgs(1),
		RunE:  validateStudy,
	}
)

func init() {
	rootCmd.AddCommand(studyCmd)
	studyCmd.AddCommand(studyRunCmd)
	studyCmd.AddCommand(studyValidateCmd)
}

func validateStudy(cmd *cobra.Command, args []string) error {
	cfg, data, err := studyconfig.Load(args[0])
	if err != nil {
		PrintError(err.Error())
		return err
	}

	snap, err := studyconfig.NewSnapshot(cfg, data)
	if err != nil {
		return err
	}

	PrintSuccess(fmt.Sprintf("%s is valid", args[0]))
	PrintKeyValue("Study", cfg.Meta.StudyID, 8)
	PrintKeyValue("Hash", snap.ConfigHash, 8)
	printStudyWarnings(cfg)
	return nil
}

func runStudy(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, data, err := studyconfig.Load(args[0])
	if err != nil {
		PrintError(err.Error())
		return err
	}
	snap, err := studyconfig.NewSnapshot(cfg, data)
	if err != nil {
		return err
	}
	printStudyWarnings(cfg)

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	started := time.Now()
	PrintRunHeader(RunMetadata{
		RunID:     snap.ConfigHash[:12],
		RunType:   "Study: " + cfg.Meta.StudyID,
		Tag:       "Study",
		Timestamp: started.Format(time.RFC3339),
	})

	outDir := ""
	if cfg.Output.Dir != "" {
		outDir = filepath.Join(cfg.Output.Dir, cfg.Meta.StudyID)
	}
	write := func(name string, v interface{}) error {
		if outDir == "" || !cfg.Output.WriteJSON {
			return nil
		}
		path := filepath.Join(outDir, name)
		if err := writeJSON(path, v); err != nil {
			return err
		}
		PrintSuccess("Wrote " + path)
		return nil
	}

	if f := cfg.Frontier; f != nil {
		rep, err := a.service.Frontier(ctx, analysis.FrontierRequest{
			Start:  f.StartDate(),
			End:    f.EndDate(),
			Trials: f.Trials,
			Seed:   cfg.Seed,
		})
		if err != nil {
			return fmt.Errorf("frontier: %w", err)
		}

		fmt.Println()
		fmt.Println("📉 Minimum-variance portfolio")
		printTrials(rep.Assets, []string{"min-var"}, []frontier.Trial{rep.MinVariance})
		if err := write("frontier.json", rep); err != nil {
			return err
		}

		if cfg.Output.Charts {
			path, err := report.WriteFrontierChart(filepath.Join(outDir, "charts"), rep.Frontier, rep.Corners, report.DefaultFrontierBins)
			if err != nil {
				return fmt.Errorf("write frontier chart: %w", err)
			}
			PrintSuccess("Wrote " + path)
		}
	}

	if r := cfg.Robustness; r != nil {
		rep, err := a.service.Robustness(ctx, analysis.RobustnessRequest{
			MinFractionKept: r.MinFractionKept,
			Trials:          r.TrialsPerWindow,
			Seed:            cfg.Seed,
			Workers:         r.Workers,
			OnRow:           progressPrinter(),
		})
		if err != nil {
			return fmt.Errorf("robustness: %w", err)
		}

		fmt.Println()
		fmt.Println("📊 Distribution across start dates")
		printSummary(rep.Summary)
		if err := write("robustness.json", rep); err != nil {
			return err
		}

		if cfg.Output.Charts {
			bins := cfg.Output.Bins
			if bins == 0 {
				bins = report.DefaultBins
			}
			paths, err := report.WriteCharts(filepath.Join(outDir, "charts"), rep.Table, bins)
			if err != nil {
				return fmt.Errorf("write charts: %w", err)
			}
			PrintSuccess(fmt.Sprintf("Wrote %d charts", len(paths)))
		}
	}

	if err := write("snapshot.json", snap); err != nil {
		return err
	}

	PrintCompletion("Study", time.Since(started))
	return nil
}

func printStudyWarnings(cfg *studyconfig.Config) {
	for _, w := range studyconfig.CheckWarnings(cfg) {
		PrintWarning(fmt.Sprintf("[%s] %s", w.Code, w.Message))
	}
}
