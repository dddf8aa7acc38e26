package config

// Config is the optional JSON overlay accepted via -config: every field
// mirrors a CLI flag from spec §6 so a saved run can be replayed without
// retyping the full flag set. CLI flags take precedence where both are
// set; see cmd/trainer's flag-merge in main.go.
type Config struct {
	Dictionary *DictionaryConfig `json:"dictionary"`
	Training   *TrainingConfig   `json:"training"`
	Model      *ModelConfig      `json:"model"`
	Scheduler  *SchedulerConfig  `json:"scheduler"`
	Logging    *LoggingConfig    `json:"logging"`
}

// DictionaryConfig controls vocabulary construction (spec §2/§4.A-C).
type DictionaryConfig struct {
	MinCount      int64  `json:"min_count"`
	MinCountLabel int64  `json:"min_count_label"`
	Bucket        int    `json:"bucket"`
	Minn          int    `json:"minn"`
	Maxn          int    `json:"maxn"`
	WordNgrams    int    `json:"word_ngrams"`
	SubsampleT    float64 `json:"t"`
	Label         string `json:"label"`
}

// TrainingConfig controls the optimization loop shared by every mode
// (spec §5's learning-rate schedule and epoch/thread counts).
type TrainingConfig struct {
	LR           float64 `json:"lr"`
	LRUpdateRate int     `json:"lr_update_rate"`
	Epoch        int     `json:"epoch"`
	Thread       int     `json:"thread"`
	Neg          int     `json:"neg"`
	Loss         string  `json:"loss"`
}

// ModelConfig controls the dimensions and mode-specific hyperparameters
// of the trained parameter matrices (spec §3's components B, D).
type ModelConfig struct {
	Mode     string  `json:"mode"`
	Dim      int     `json:"dim"`
	WS       int     `json:"ws"`
	AttnWS   int     `json:"attn_ws"`
	BetaBase float64 `json:"beta_base"`
	Delta    float64 `json:"delta"`
	Nrand    int     `json:"nrand"`
}

// SchedulerConfig controls time-token parsing and the optional resume
// ledger (spec §4.A's bracket/time handling, and the expansion's
// checkpoint-resume feature).
type SchedulerConfig struct {
	TimeUnit     string `json:"time_unit"`
	OffsetScheme string `json:"offset_scheme"`
	ResumeDB     string `json:"resume_db"`
}

// LoggingConfig mirrors internal/logging.LoggingConfig's JSON shape so
// a saved config file can set the logger's level/format/output.
type LoggingConfig struct {
	Level      string `json:"level"`
	Format     string `json:"format"`
	Output     string `json:"output"`
	MaxSize    int    `json:"max_size"`
	MaxBackups int    `json:"max_backups"`
	MaxAge     int    `json:"max_age"`
}
