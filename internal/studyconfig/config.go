package studyconfig

import "time"

// Config는 재현 가능한 분석 한 건의 전체 설정 (YAML)
type Config struct {
	Meta       Meta       `yaml:"meta" json:"meta"`
	Seed       int64      `yaml:"seed" json:"seed"`
	Frontier   *Frontier  `yaml:"frontier,omitempty" json:"frontier,omitempty"`
	Robustness *Rolling   `yaml:"robustness,omitempty" json:"robustness,omitempty"`
	Output     Output     `yaml:"output" json:"output"`
}

// Meta 메타 정보
type Meta struct {
	StudyID     string `yaml:"study_id" json:"study_id"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Frontier 효율적 투자선 탐색 (기간은 YYYY-MM-DD)
type Frontier struct {
	Start  string `yaml:"start" json:"start"`
	End    string `yaml:"end" json:"end"`
	Trials int    `yaml:"trials" json:"trials"`
}

// Rolling 최소분산 강건성 분석
type Rolling struct {
	MinFractionKept float64 `yaml:"min_fraction_kept" json:"min_fraction_kept"`
	TrialsPerWindow int     `yaml:"trials_per_window" json:"trials_per_window"`
	Workers         int     `yaml:"workers,omitempty" json:"workers,omitempty"`
}

// Output 결과 저장 위치 (비어 있으면 저장 안 함)
type Output struct {
	Dir       string `yaml:"dir,omitempty" json:"dir,omitempty"`
	Charts    bool   `yaml:"charts,omitempty" json:"charts,omitempty"`
	Bins      int    `yaml:"bins,omitempty" json:"bins,omitempty"`
	WriteJSON bool   `yaml:"json,omitempty" json:"json,omitempty"`
}

// StartDate returns the parsed frontier start (valid after Validate)
func (f Frontier) StartDate() time.Time {
	d, _ := time.Parse(dateLayout, f.Start)
	return d
}

// EndDate returns the parsed frontier end (valid after Validate)
func (f Frontier) EndDate() time.Time {
	d, _ := time.Parse(dateLayout, f.End)
	return d
}

// Snapshot ties a run to the exact study file that produced it
type Snapshot struct {
	ConfigHash string    `json:"config_hash"`
	ConfigYAML string    `json:"config_yaml"`
	StudyID    string    `json:"study_id"`
	CreatedAt  time.Time `json:"created_at"`
}

const dateLayout = "2006-01-02"
