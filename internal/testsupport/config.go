package testsupport

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"docmatch/internal/config"
)

// PipelineName is the single pipeline declared by NewConfig.
const PipelineName = "test"

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t          testing.TB
	baseDir    string
	datePolicy string
	strategy   string
	collision  string
	minScore   int
	metrics    bool
	ntfyTopic  string
	extra      []string
}

// NewConfig produces a config seeded with unique temp directories per test.
// It declares one pipeline named PipelineName whose primary and support
// directories exist, and loads it through config.Load so normalization and
// validation match production.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	builder := &configBuilder{
		t:          t,
		baseDir:    t.TempDir(),
		datePolicy: "strict",
		strategy:   "greedy",
		collision:  config.CollisionRename,
	}
	for _, opt := range opts {
		opt(builder)
	}

	for _, env := range []string{config.BaseDirEnv, config.UploadFolderEnv, config.LogLevelEnv} {
		t.Setenv(env, "")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[paths]\nbase_dir = %q\nstate_dir = %q\nlog_dir = %q\n\n",
		builder.baseDir, filepath.Join(builder.baseDir, "state"), filepath.Join(builder.baseDir, "logs"))
	b.WriteString("[preflight]\nmin_free_mib = 0\n\n")
	if builder.metrics {
		fmt.Fprintf(&b, "[metrics]\ntextfile_dir = %q\n\n", filepath.Join(builder.baseDir, "metrics"))
	}
	if builder.ntfyTopic != "" {
		fmt.Fprintf(&b, "[notifications]\nntfy_topic = %q\nrequest_timeout = 5\n\n", builder.ntfyTopic)
	}
	fmt.Fprintf(&b, "[pipelines.%s]\n", PipelineName)
	b.WriteString("primary_dir = \"primary\"\nsupport_dir = \"support\"\ncombined_dir = \"combined\"\nholding_dir = \"holding\"\n")
	fmt.Fprintf(&b, "date_policy = %q\nstrategy = %q\norphan_collision = %q\n", builder.datePolicy, builder.strategy, builder.collision)
	if builder.minScore > 0 {
		fmt.Fprintf(&b, "min_score = %d\n", builder.minScore)
	}
	for _, line := range builder.extra {
		b.WriteString(line + "\n")
	}

	path := filepath.Join(builder.baseDir, "docmatch.toml")
	WriteFile(t, path, b.String())
	for _, dir := range []string{"primary", "support"} {
		if err := os.MkdirAll(filepath.Join(builder.baseDir, dir), 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("load test config: %v", err)
	}
	return cfg
}

// WithDatePolicy sets the pipeline date policy.
func WithDatePolicy(policy string) ConfigOption {
	return func(b *configBuilder) {
		b.datePolicy = policy
	}
}

// WithStrategy sets the pipeline assignment strategy.
func WithStrategy(strategy string) ConfigOption {
	return func(b *configBuilder) {
		b.strategy = strategy
	}
}

// WithCollision sets the orphan collision policy.
func WithCollision(policy string) ConfigOption {
	return func(b *configBuilder) {
		b.collision = policy
	}
}

// WithMinScore overrides the acceptance threshold.
func WithMinScore(score int) ConfigOption {
	return func(b *configBuilder) {
		b.minScore = score
	}
}

// WithMetrics enables the textfile export under the base directory.
func WithMetrics() ConfigOption {
	return func(b *configBuilder) {
		b.metrics = true
	}
}

// WithNtfyTopic points notifications at topic.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.ntfyTopic = topic
	}
}

// WithPipelineLines appends raw TOML lines to the pipeline table.
func WithPipelineLines(lines ...string) ConfigOption {
	return func(b *configBuilder) {
		b.extra = append(b.extra, lines...)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return cfg.Paths.BaseDir
}

// TestPipeline returns the pipeline declared by NewConfig.
func TestPipeline(t testing.TB, cfg *config.Config) config.Pipeline {
	t.Helper()
	p, err := cfg.Pipeline(PipelineName)
	if err != nil {
		t.Fatalf("test pipeline: %v", err)
	}
	return p
}
