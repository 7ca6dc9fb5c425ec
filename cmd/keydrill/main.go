// Package main provides the CLI entrypoint for keydrill.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/verte-zerg/keydrill/internal/config"
	"github.com/verte-zerg/keydrill/internal/generator"
	"github.com/verte-zerg/keydrill/internal/logging"
	"github.com/verte-zerg/keydrill/internal/model"
	"github.com/verte-zerg/keydrill/internal/proficiency"
	"github.com/verte-zerg/keydrill/internal/profile"
	"github.com/verte-zerg/keydrill/internal/session"
	"github.com/verte-zerg/keydrill/internal/stats"
	"github.com/verte-zerg/keydrill/internal/statsui"
	"github.com/verte-zerg/keydrill/internal/store"
	"github.com/verte-zerg/keydrill/internal/tui"
	"github.com/verte-zerg/keydrill/internal/wordlist"
)

const (
	defaultCurveWindow = 20
	defaultLines       = 5
	defaultPairTop     = 10
)

var (
	practiceProfile  string
	practiceWordList string
	practiceHistory  bool
	practiceSeed     int64

	generateProfile   string
	generateKeys      string
	generateLines     int
	generateRealWords bool
	generateSeed      int64

	statsProfile     string
	statsSince       string
	statsLast        int
	statsCurveWindow int
	statsChars       string
	statsPlain       bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "keydrill",
		Short:         "Adaptive typing drills in the terminal",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPracticeCmd,
	}

	rootCmd.Flags().StringVar(&practiceProfile, "profile", profile.Beginner, "difficulty profile ("+strings.Join(profile.Names(), ", ")+")")
	rootCmd.Flags().StringVar(&practiceWordList, "wordlist", "", "word list file replacing the profile's word pool")
	rootCmd.Flags().BoolVar(&practiceHistory, "history", true, "record completed lines in the history database")
	rootCmd.Flags().Int64Var(&practiceSeed, "seed", 0, "random seed for line generation (0 = time based)")

	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newGenerateCmd())
	rootCmd.AddCommand(newProfilesCmd())
	rootCmd.AddCommand(newStatsCmd())

	return rootCmd
}

func runPracticeCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "profile", &practiceProfile, fileCfg.Practice.Profile)
	applyStringConfig(cmd, "wordlist", &practiceWordList, fileCfg.Practice.WordList)
	applyBoolConfig(cmd, "history", &practiceHistory, fileCfg.Practice.History)
	applyInt64Config(cmd, "seed", &practiceSeed, fileCfg.Practice.Seed)

	cfg := model.Config{
		Profile:      practiceProfile,
		WordListPath: practiceWordList,
		History:      practiceHistory,
		Seed:         practiceSeed,
	}
	p, err := resolveProfile(cfg)
	if err != nil {
		return err
	}

	log, err := logging.New(fileCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() {
		_ = log.Sync()
	}()
	log.Info("practice starting",
		zap.String("profile", p.Name),
		zap.Bool("history", cfg.History),
		zap.Int64("seed", cfg.Seed),
	)

	var history tui.History
	if cfg.History {
		st, err := store.Open(config.DefaultDBPath())
		if err != nil {
			return fmt.Errorf("failed to open db: %w", err)
		}
		defer func() {
			if cerr := st.Close(); cerr != nil {
				log.Warn("failed to close db", zap.Error(cerr))
			}
		}()
		history = st
	}

	m := tui.NewModel(p, history, log, session.WithGenerator(newGenerator(cfg.Seed)))
	defer m.Close()
	program := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	return nil
}

func resolveProfile(cfg model.Config) (profile.Profile, error) {
	p, err := profile.Lookup(cfg.Profile)
	if err != nil {
		return profile.Profile{}, fmt.Errorf("--profile: %w", err)
	}
	if cfg.WordListPath == "" {
		return p, nil
	}
	path, err := config.ExpandPath(cfg.WordListPath)
	if err != nil {
		return profile.Profile{}, fmt.Errorf("--wordlist: %w", err)
	}
	words, err := wordlist.LoadWords(path)
	if err != nil {
		return profile.Profile{}, fmt.Errorf("failed to load word list %s: %w", cfg.WordListPath, err)
	}
	words = wordlist.Filter(words, wordlist.FilterForLang("en"))
	if len(words) == 0 {
		return profile.Profile{}, fmt.Errorf("word list %s has no lowercase ASCII words", cfg.WordListPath)
	}
	return p.WithPool(words), nil
}

func newGenerator(seed int64) *generator.Generator {
	if seed == 0 {
		return generator.New()
	}
	return generator.NewWithSource(rand.NewSource(seed))
}

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Print practice lines without starting the TUI",
		Args:  cobra.NoArgs,
		RunE:  runGenerateCmd,
	}
	cmd.Flags().StringVar(&generateProfile, "profile", profile.Beginner, "difficulty profile")
	cmd.Flags().StringVar(&generateKeys, "keys", "", "allowed keys (default: the profile's seed keys)")
	cmd.Flags().IntVar(&generateLines, "lines", defaultLines, "number of lines")
	cmd.Flags().BoolVar(&generateRealWords, "real-words", false, "prefer dictionary words when enough keys are allowed")
	cmd.Flags().Int64Var(&generateSeed, "seed", 0, "random seed (0 = time based)")
	return cmd
}

func runGenerateCmd(cmd *cobra.Command, _ []string) error {
	if generateLines <= 0 {
		return fmt.Errorf("--lines must be > 0")
	}
	p, err := profile.Lookup(generateProfile)
	if err != nil {
		return fmt.Errorf("--profile: %w", err)
	}
	allowed := p.SeedKeys()
	if generateKeys != "" {
		allowed, err = parseAllowedKeys(generateKeys)
		if err != nil {
			return err
		}
	}
	gen := newGenerator(generateSeed)
	prof := proficiency.New()
	out := cmd.OutOrStdout()
	for i := 0; i < generateLines; i++ {
		line := gen.GenerateLine(generator.Request{
			Profile:   p,
			Allowed:   allowed,
			RealWords: generateRealWords,
			Stats:     prof,
		})
		if _, err := fmt.Fprintln(out, line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

// parseAllowedKeys returns the sorted, de-duplicated letters of s.
func parseAllowedKeys(s string) ([]rune, error) {
	seen := map[rune]bool{}
	var keys []rune
	for _, r := range strings.ToLower(s) {
		if r == ' ' || r == ',' {
			continue
		}
		if r < 'a' || r > 'z' {
			return nil, fmt.Errorf("--keys: %q is not a letter", r)
		}
		if !seen[r] {
			seen[r] = true
			keys = append(keys, r)
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("--keys must name at least one letter")
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys, nil
}

func newProfilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List difficulty profiles",
		Args:  cobra.NoArgs,
		RunE:  runProfilesCmd,
	}
}

func runProfilesCmd(cmd *cobra.Command, _ []string) error {
	for _, line := range profileTable(profile.All()) {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func profileTable(profiles []profile.Profile) []string {
	headers := []string{"Profile", "Seed keys", "Words/line", "Sentences", "Real words at", "Description"}
	rows := make([][]string, 0, len(profiles))
	for _, p := range profiles {
		seeds := string(p.SeedKeys())
		if len(seeds) == len(profile.Alphabet) {
			seeds = "a-z"
		}
		sentences := "no"
		switch {
		case p.SentenceOnly():
			sentences = "only"
		case p.UseSentences:
			sentences = "yes"
		}
		rows = append(rows, []string{
			p.Name,
			seeds,
			fmt.Sprintf("%d", p.WordsPerLine),
			sentences,
			fmt.Sprintf("%.0f%% / %.0f WPM", p.RealWordThreshold.Accuracy*100, p.RealWordThreshold.WPM),
			p.Description,
		})
	}
	return stats.FormatTable(headers, rows, map[int]bool{2: true})
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show practice history",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsProfile, "profile", "", "profile filter")
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N sessions")
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	cmd.Flags().StringVar(&statsChars, "char", "", "keys for per-key curves, comma separated")
	cmd.Flags().BoolVar(&statsPlain, "plain", false, "print a text report instead of the interactive browser")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := buildStatsConfig()
	if err != nil {
		return err
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	out := cmd.OutOrStdout()
	interactive := out == os.Stdout && term.IsTerminal(int(os.Stdout.Fd()))
	if interactive && !statsPlain {
		return runStatsBrowser(st, cfg)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
	defer cancel()
	report, err := stats.BuildReport(ctx, st, cfg)
	if err != nil {
		return fmt.Errorf("failed to build report: %w", err)
	}

	width := terminalWidth()
	useColor := interactive
	if err := stats.RenderSummary(out, report.Sessions); err != nil {
		return err
	}
	if len(report.Sessions) == 0 {
		return nil
	}
	if err := stats.RenderCurvesWithSize(out, report.Sessions, cfg.CurveWindow, width, 10, useColor); err != nil {
		return err
	}
	if err := stats.RenderKeyTable(out, report.KeyAggsWindow); err != nil {
		return err
	}
	if err := stats.RenderPairTable(out, report.PairAggsWindow, proficiency.DefaultMinPairTotal, defaultPairTop); err != nil {
		return err
	}
	return stats.RenderKeyCurvesWithSize(out, report.Sessions, report.PerSessionKeys, report.CurveKeys, cfg.CurveWindow, width, 8, useColor)
}

func runStatsBrowser(src stats.Source, cfg model.StatsConfig) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log, err := logging.New(fileCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() {
		_ = log.Sync()
	}()

	program := tea.NewProgram(statsui.NewModel(src, cfg, log), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats browser: %w", err)
	}
	return nil
}

func buildStatsConfig() (model.StatsConfig, error) {
	var since *time.Time
	if statsSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", statsSince, time.Local)
		if err != nil {
			return model.StatsConfig{}, fmt.Errorf("invalid --since value: %w", err)
		}
		since = &parsed
	}
	if statsLast < 0 {
		return model.StatsConfig{}, fmt.Errorf("--last must be >= 0")
	}
	if statsCurveWindow < 0 {
		return model.StatsConfig{}, fmt.Errorf("--curve-window must be >= 0")
	}
	name := statsProfile
	if name != "" {
		p, err := profile.Lookup(name)
		if err != nil {
			return model.StatsConfig{}, fmt.Errorf("--profile: %w", err)
		}
		name = p.Name
	}
	return model.StatsConfig{
		Profile:     name,
		Since:       since,
		Last:        statsLast,
		CurveWindow: statsCurveWindow,
		Chars:       statsChars,
	}, nil
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 0
	}
	return width
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := writeConfigTemplate(path); err != nil {
		return err
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

// writeConfigTemplate creates path with the commented template unless it exists.
func writeConfigTemplate(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("failed to stat config: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil || cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil || cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyInt64Config(cmd *cobra.Command, name string, target, value *int64) {
	if value == nil || cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# keydrill configuration
# Uncomment a value to enable it. CLI flags override config values.

[practice]
# profile = %q      # One of: %s
# wordlist = ""            # Word list file replacing the profile's pool
# history = true           # Record completed lines in %s
# seed = 0                 # Random seed (0 = time based)

[log]
# level = "info"           # debug, info, warn, error
# file = %q
# max-size = 5             # Megabytes before rotation
# max-backups = 3
# max-age = 28             # Days
# compress = false
`,
		profile.Beginner,
		strings.Join(profile.Names(), ", "),
		config.DefaultDBPath(),
		config.DefaultLogPath(),
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
