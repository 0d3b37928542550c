package studyconfig

import (
	"fmt"
	"math"
	"regexp"
	"time"

	"github.com/wonny/frontier/internal/frontier"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

var studyIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_\-]*$`)

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.StudyID == "" {
		return ValidationError{"meta.study_id", "required"}
	}
	if !studyIDPattern.MatchString(cfg.Meta.StudyID) {
		return ValidationError{"meta.study_id", "must be lowercase letters, digits, '_' or '-'"}
	}

	// 시드 없으면 재현 불가
	if cfg.Seed == 0 {
		return ValidationError{"seed", "must be non-zero"}
	}

	if cfg.Frontier == nil && cfg.Robustness == nil {
		return ValidationError{"frontier|robustness", "at least one analysis is required"}
	}

	// === Frontier ===
	if f := cfg.Frontier; f != nil {
		start, err := time.Parse(dateLayout, f.Start)
		if err != nil {
			return ValidationError{"frontier.start", "must be YYYY-MM-DD"}
		}
		end, err := time.Parse(dateLayout, f.End)
		if err != nil {
			return ValidationError{"frontier.end", "must be YYYY-MM-DD"}
		}
		if !start.Before(end) {
			return ValidationError{"frontier", "start must be before end"}
		}
		if f.Trials < 1 || f.Trials > frontier.MaxTrials {
			return ValidationError{"frontier.trials", fmt.Sprintf("must be in [1, %d]", frontier.MaxTrials)}
		}
	}

	// === Robustness ===
	if r := cfg.Robustness; r != nil {
		if math.IsNaN(r.MinFractionKept) || r.MinFractionKept <= 0 || r.MinFractionKept > 1 {
			return ValidationError{"robustness.min_fraction_kept", "must be in (0, 1]"}
		}
		if r.TrialsPerWindow < 1 || r.TrialsPerWindow > frontier.MaxTrials {
			return ValidationError{"robustness.trials_per_window", fmt.Sprintf("must be in [1, %d]", frontier.MaxTrials)}
		}
		if r.Workers < 0 {
			return ValidationError{"robustness.workers", "must be >= 0"}
		}
	}

	// === Output ===
	if cfg.Output.Bins < 0 {
		return ValidationError{"output.bins", "must be >= 0"}
	}
	if (cfg.Output.Charts || cfg.Output.WriteJSON) && cfg.Output.Dir == "" {
		return ValidationError{"output.dir", "required when charts or json is enabled"}
	}
	if cfg.Output.Charts && cfg.Robustness == nil {
		return ValidationError{"output.charts", "requires a robustness section"}
	}

	return nil
}

// CheckWarnings returns recommended-range violations
func CheckWarnings(cfg *Config) []Warning {
	var warnings []Warning

	if f := cfg.Frontier; f != nil && f.Trials < 500 {
		warnings = append(warnings, Warning{
			Code:    "FRONTIER_TRIALS_LOW",
			Message: fmt.Sprintf("frontier.trials=%d: the sampled frontier will be sparse (recommend >= 500)", f.Trials),
		})
	}

	if r := cfg.Robustness; r != nil {
		if r.TrialsPerWindow < 100 {
			warnings = append(warnings, Warning{
				Code:    "WINDOW_TRIALS_LOW",
				Message: fmt.Sprintf("robustness.trials_per_window=%d: min-variance estimates will be noisy", r.TrialsPerWindow),
			})
		}
		if r.MinFractionKept < 0.5 {
			warnings = append(warnings, Warning{
				Code:    "SHORT_WINDOWS",
				Message: fmt.Sprintf("robustness.min_fraction_kept=%.2f: the shortest windows keep under half the history", r.MinFractionKept),
			})
		}
	}

	return warnings
}
