package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/lab/med2vec/internal/config"
	"github.com/lab/med2vec/internal/logging"
	"github.com/lab/med2vec/pkg/corpus"
	"github.com/lab/med2vec/pkg/model"
	"github.com/lab/med2vec/pkg/train"
)

// flagSet is the CLI-flag-resolved state shared by every mode
// subcommand (spec §6's flag table); cobra/pflag bind directly into it.
type flagSet struct {
	input, output, test string
	lr                  float64
	lrUpdateRate        int
	dim                 int
	ws, attnWS          int
	epoch               int
	minCount            int64
	minCountLabel       int64
	neg                 int
	wordNgrams          int
	loss                string
	bucket              int
	minn, maxn          int
	thread              int
	t                   float64
	label               string
	verbose             int
	pretrainedVectors   string
	betaBase            float64
	delta               float64
	nrand               int
	timeUnit            string
	offsetScheme        string
	resumeDB            string
	exportParquet       string
	exportArrow         string
	configFile          string
}

func bindCommonFlags(fs *pflag.FlagSet, f *flagSet, mode model.Mode) {
	defaults := model.Default(mode)
	fs.StringVar(&f.input, "input", "", "training corpus path (mandatory)")
	fs.StringVar(&f.output, "output", "", "output stem (mandatory)")
	fs.StringVar(&f.test, "test", "", "test corpus path")
	fs.Float64Var(&f.lr, "lr", defaults.LR, "base learning rate")
	fs.IntVar(&f.lrUpdateRate, "lrUpdateRate", int(defaults.LRUpdateRate), "tokens between global progress merges")
	fs.IntVar(&f.dim, "dim", int(defaults.Dim), "embedding dimension")
	fs.IntVar(&f.ws, "ws", int(defaults.WS), "time-window size (in time units)")
	fs.IntVar(&f.attnWS, "attnWs", int(defaults.AttnWS), "attention window size (in time units)")
	fs.IntVar(&f.epoch, "epoch", int(defaults.Epoch), "epochs")
	fs.Int64Var(&f.minCount, "minCount", defaults.MinCount, "vocabulary pruning threshold, words")
	fs.Int64Var(&f.minCountLabel, "minCountLabel", defaults.MinCountLabel, "vocabulary pruning threshold, labels")
	fs.IntVar(&f.neg, "neg", int(defaults.Neg), "negative samples per positive")
	fs.IntVar(&f.wordNgrams, "wordNgrams", int(defaults.WordNgrams), "max word-ngram length")
	fs.StringVar(&f.loss, "loss", defaults.Loss.String(), "loss: ns, hs, or softmax")
	fs.IntVar(&f.bucket, "bucket", int(defaults.Bucket), "subword/ngram buckets")
	fs.IntVar(&f.minn, "minn", int(defaults.Minn), "char-ngram minimum length")
	fs.IntVar(&f.maxn, "maxn", int(defaults.Maxn), "char-ngram maximum length")
	fs.IntVar(&f.thread, "thread", int(defaults.Thread), "worker threads")
	fs.Float64Var(&f.t, "t", defaults.SubsampleT, "subsampling threshold")
	fs.StringVar(&f.label, "label", defaults.Label, "label prefix")
	fs.IntVar(&f.verbose, "verbose", 2, "verbosity: 0, 1, or 2")
	fs.StringVar(&f.pretrainedVectors, "pretrainedVectors", "", "optional warm-start vectors path")
	fs.Float64Var(&f.betaBase, "beta_base", defaults.BetaBase, "Beta(.,beta_base) prior rate")
	fs.Float64Var(&f.delta, "delta", defaults.Delta, "random-context floor in theta model")
	fs.IntVar(&f.nrand, "nrand", int(defaults.Nrand), "random context subsamples (attention)")
	fs.StringVar(&f.timeUnit, "timeUnit", defaults.TimeUnit, "day, week, month, season, year, or hour")
	fs.StringVar(&f.offsetScheme, "offsetScheme", "linear", "linear or bucketed time-offset scheme")
	fs.StringVar(&f.resumeDB, "resumeDB", "", "optional bbolt resume ledger path")
	fs.StringVar(&f.exportParquet, "exportParquet", "", "optional vocabulary export path (parquet)")
	fs.StringVar(&f.exportArrow, "exportArrow", "", "optional vocabulary stats export path (arrow IPC)")
}

// applyConfigOverlay fills any flag the user did not set on the command
// line with the value from a loaded -config file, giving CLI flags
// precedence over the file (spec's expansion config layer).
func applyConfigOverlay(fs *pflag.FlagSet, f *flagSet, cfg *config.Config) {
	setIfDefault := func(name string, apply func()) {
		if fs.Changed(name) {
			return
		}
		apply()
	}
	if cfg.Training != nil {
		setIfDefault("lr", func() { f.lr = cfg.Training.LR })
		setIfDefault("lrUpdateRate", func() { f.lrUpdateRate = cfg.Training.LRUpdateRate })
		setIfDefault("epoch", func() { f.epoch = cfg.Training.Epoch })
		setIfDefault("thread", func() { f.thread = cfg.Training.Thread })
		setIfDefault("neg", func() { f.neg = cfg.Training.Neg })
		setIfDefault("loss", func() { f.loss = cfg.Training.Loss })
	}
	if cfg.Dictionary != nil {
		setIfDefault("minCount", func() { f.minCount = cfg.Dictionary.MinCount })
		setIfDefault("minCountLabel", func() { f.minCountLabel = cfg.Dictionary.MinCountLabel })
		setIfDefault("bucket", func() { f.bucket = cfg.Dictionary.Bucket })
		setIfDefault("minn", func() { f.minn = cfg.Dictionary.Minn })
		setIfDefault("maxn", func() { f.maxn = cfg.Dictionary.Maxn })
		setIfDefault("wordNgrams", func() { f.wordNgrams = cfg.Dictionary.WordNgrams })
		setIfDefault("t", func() { f.t = cfg.Dictionary.SubsampleT })
		setIfDefault("label", func() { f.label = cfg.Dictionary.Label })
	}
	if cfg.Model != nil {
		setIfDefault("dim", func() { f.dim = cfg.Model.Dim })
		setIfDefault("ws", func() { f.ws = cfg.Model.WS })
		setIfDefault("attnWs", func() { f.attnWS = cfg.Model.AttnWS })
		setIfDefault("beta_base", func() { f.betaBase = cfg.Model.BetaBase })
		setIfDefault("delta", func() { f.delta = cfg.Model.Delta })
		setIfDefault("nrand", func() { f.nrand = cfg.Model.Nrand })
	}
	if cfg.Scheduler != nil {
		setIfDefault("timeUnit", func() { f.timeUnit = cfg.Scheduler.TimeUnit })
		setIfDefault("offsetScheme", func() { f.offsetScheme = cfg.Scheduler.OffsetScheme })
		setIfDefault("resumeDB", func() { f.resumeDB = cfg.Scheduler.ResumeDB })
	}
}

func (f *flagSet) validate() error {
	if f.input == "" {
		return fmt.Errorf("-input is mandatory")
	}
	if f.output == "" {
		return fmt.Errorf("-output is mandatory")
	}
	if _, err := os.Stat(f.input); err != nil {
		return fmt.Errorf("opening corpus %q: %w", f.input, err)
	}
	return nil
}

func (f *flagSet) toTrainConfig(mode model.Mode) (train.Config, error) {
	lossKind, ok := model.ParseLoss(f.loss)
	if !ok {
		return train.Config{}, fmt.Errorf("unknown -loss %q", f.loss)
	}
	var offsetScheme corpus.OffsetScheme
	switch f.offsetScheme {
	case "linear":
		offsetScheme = corpus.OffsetLinear
	case "bucketed":
		offsetScheme = corpus.OffsetBucketed
	default:
		return train.Config{}, fmt.Errorf("unknown -offsetScheme %q", f.offsetScheme)
	}
	return train.Config{
		Input: f.input, Output: f.output, Test: f.test,
		PretrainedVectors: f.pretrainedVectors,
		LR:                f.lr,
		LRUpdateRate:      f.lrUpdateRate,
		Dim:               f.dim,
		WS:                f.ws,
		AttnWS:            f.attnWS,
		Epoch:             f.epoch,
		MinCount:          f.minCount,
		MinCountLbl:       f.minCountLabel,
		Neg:               f.neg,
		WordNgrams:        f.wordNgrams,
		Loss:              lossKind,
		Bucket:            f.bucket,
		Minn:              f.minn,
		Maxn:              f.maxn,
		Thread:            f.thread,
		SubsampleT:        f.t,
		Label:             f.label,
		Verbose:           f.verbose,
		BetaBase:          f.betaBase,
		Delta:             f.delta,
		Nrand:             f.nrand,
		TimeUnit:          corpus.TimeUnit(f.timeUnit),
		OffsetScheme:      offsetScheme,
		Mode:              mode,
		ResumeDB:          f.resumeDB,
	}, nil
}

func runMode(mode model.Mode, f *flagSet, fs *pflag.FlagSet, cfg *config.Config, logger *logging.Logger) error {
	applyConfigOverlay(fs, f, cfg)
	if err := f.validate(); err != nil {
		fmt.Fprintf(os.Stderr, "trainer: %v\n", err)
		os.Exit(1)
	}

	tcfg, err := f.toTrainConfig(mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "trainer: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	orch := train.New(tcfg, logger)

	runErr := make(chan error, 1)
	go func() { runErr <- orch.Run() }()

	var bar *mpb.Bar
	var p *mpb.Progress
	if f.verbose >= 1 {
		p = mpb.New(mpb.WithWidth(64))
		bar = p.AddBar(1000,
			mpb.PrependDecorators(decor.Name(mode.String()+" ")),
			mpb.AppendDecorators(decor.Percentage(decor.WCSyncSpace)),
		)
	}

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	interrupted := ctx.Done()
	for {
		select {
		case err := <-runErr:
			if bar != nil {
				bar.SetCurrent(1000)
				p.Wait()
			}
			if err != nil {
				return err
			}
			if f.exportParquet != "" {
				if err := orch.Dictionary().ExportParquet(f.exportParquet); err != nil {
					logger.Warn("exportParquet failed: %v", err)
				}
			}
			if f.exportArrow != "" {
				if err := orch.Dictionary().ExportArrowStats(f.exportArrow); err != nil {
					logger.Warn("exportArrow failed: %v", err)
				}
			}
			return nil
		case <-ticker.C:
			if bar != nil {
				bar.SetCurrent(int64(1000 * orch.Progress()))
			}
		case <-interrupted:
			logger.Info("received interrupt; training has no cancellation and continues to completion")
			interrupted = nil
		}
	}
}

func newModeCommand(use string, mode model.Mode, cfg *config.Config, logger *logging.Logger) *cobra.Command {
	f := &flagSet{}
	cmd := &cobra.Command{
		Use:   use,
		Short: fmt.Sprintf("train a %s model", use),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMode(mode, f, cmd.Flags(), cfg, logger)
		},
	}
	bindCommonFlags(cmd.Flags(), f, mode)
	return cmd
}

// preScanConfigFlag finds -config/--config before cobra's normal parse
// so the overlay it names is loaded before subcommands bind their
// defaults; this mirrors the teacher's flag.Parse()-then-loadConfig
// sequencing without cobra's two-phase flag registration getting in the way.
func preScanConfigFlag(args []string) string {
	fs := pflag.NewFlagSet("prescan", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true
	fs.Usage = func() {}
	var configFile string
	fs.StringVar(&configFile, "config", "", "")
	fs.Parse(args)
	return configFile
}

func main() {
	configFile := preScanConfigFlag(os.Args[1:])
	root := &cobra.Command{
		Use:   "trainer",
		Short: "Time-aware token-embedding trainer",
	}
	root.PersistentFlags().StringVar(&configFile, "config", configFile, "optional JSON config overlay")

	cfg, err := config.Load(configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "trainer: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(&logging.LoggingConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "trainer: failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Close()

	// Without a -config file there is nothing to overlay: every flag
	// keeps its own default.
	overlay := cfg
	if configFile == "" {
		overlay = &config.Config{}
	}

	root.AddCommand(newModeCommand("skipgram", model.ModeSkipgram, overlay, logger))
	root.AddCommand(newModeCommand("cbow", model.ModeCBOW, overlay, logger))
	root.AddCommand(newModeCommand("supervised", model.ModeSupervised, overlay, logger))
	root.AddCommand(newModeCommand("attn1", model.ModeAttn1, overlay, logger))
	root.AddCommand(newModeCommand("attn2", model.ModeAttn2, overlay, logger))

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
