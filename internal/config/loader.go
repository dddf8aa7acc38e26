package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Load builds the default Config and, if filename is non-empty and
// exists, overlays it with the JSON found there (spec's -config flag).
// A missing file is not an error: defaults alone are returned, matching
// the teacher's loadConfig behavior for an absent config path.
func Load(filename string) (*Config, error) {
	cfg := &Config{
		Dictionary: &DictionaryConfig{
			MinCount:      5,
			MinCountLabel: 0,
			Bucket:        2000000,
			Minn:          3,
			Maxn:          6,
			WordNgrams:    1,
			SubsampleT:    1e-4,
			Label:         "__label__",
		},
		Training: &TrainingConfig{
			LR:           0.05,
			LRUpdateRate: 100,
			Epoch:        5,
			Thread:       12,
			Neg:          5,
			Loss:         "ns",
		},
		Model: &ModelConfig{
			Mode:     "skipgram",
			Dim:      100,
			WS:       5,
			AttnWS:   5,
			BetaBase: 10,
			Delta:    0.2,
			Nrand:    16,
		},
		Scheduler: &SchedulerConfig{
			TimeUnit:     "week",
			OffsetScheme: "linear",
			ResumeDB:     "",
		},
		Logging: &LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stdout",
			MaxSize:    100,
			MaxBackups: 10,
			MaxAge:     30,
		},
	}

	if filename == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %q: %w", filename, err)
	}
	return cfg, nil
}
