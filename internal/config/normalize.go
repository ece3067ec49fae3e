package config

import (
	"fmt"
	"os"
	"strings"

	"docmatch/internal/attributes"
	"docmatch/internal/matching"
)

func (c *Config) normalize() error {
	c.applyEnv()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	for name, p := range c.Pipelines {
		normalized, err := p.normalize(c.Paths.BaseDir)
		if err != nil {
			return fmt.Errorf("pipelines.%s: %w", name, err)
		}
		c.Pipelines[name] = normalized
	}
	return nil
}

func (c *Config) applyEnv() {
	if value := strings.TrimSpace(os.Getenv(BaseDirEnv)); value != "" {
		c.Paths.BaseDir = value
	} else if value := strings.TrimSpace(os.Getenv(UploadFolderEnv)); value != "" {
		c.Paths.BaseDir = value
	}
	if value := strings.TrimSpace(os.Getenv(LogLevelEnv)); value != "" {
		c.Logging.Level = value
	}
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.BaseDir) == "" {
		c.Paths.BaseDir = defaultBaseDir
	}
	if c.Paths.BaseDir, err = expandPath(c.Paths.BaseDir); err != nil {
		return fmt.Errorf("paths.base_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Metrics.TextfileDir, err = expandPath(c.Metrics.TextfileDir); err != nil {
		return fmt.Errorf("metrics.textfile_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (p Pipeline) normalize(baseDir string) (Pipeline, error) {
	var err error
	for _, dir := range []struct {
		key string
		val *string
	}{
		{"primary_dir", &p.PrimaryDir},
		{"support_dir", &p.SupportDir},
		{"combined_dir", &p.CombinedDir},
		{"holding_dir", &p.HoldingDir},
	} {
		if *dir.val, err = resolveUnder(baseDir, *dir.val); err != nil {
			return p, fmt.Errorf("%s: %w", dir.key, err)
		}
	}

	exts := make([]string, 0, len(p.Extensions))
	for _, ext := range p.Extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	if len(exts) == 0 {
		exts = []string{".pdf"}
	}
	p.Extensions = exts

	p.DatePolicy = strings.ToLower(strings.TrimSpace(p.DatePolicy))
	if p.DatePolicy == "" {
		p.DatePolicy = string(matching.DateStrict)
	}
	p.Strategy = strings.ToLower(strings.TrimSpace(p.Strategy))
	if p.Strategy == "" {
		p.Strategy = defaultStrategy
	}
	p.OrphanCollision = strings.ToLower(strings.TrimSpace(p.OrphanCollision))
	if p.OrphanCollision == "" {
		p.OrphanCollision = defaultCollision
	}
	p.MergedMarker = strings.TrimSpace(p.MergedMarker)
	if p.MergedMarker == "" {
		p.MergedMarker = defaultMergedMarker
	}
	p.BodyTextSuffix = strings.TrimSpace(p.BodyTextSuffix)

	preset := p.preset()
	fill := func(dst **int, v int) {
		if *dst == nil {
			*dst = &v
		}
	}
	fill(&p.MinScore, preset.MinScore)
	fill(&p.Weights.DateMatch, preset.Weights.DateMatch)
	fill(&p.Weights.DateSingleSided, preset.Weights.DateSingleSided)
	fill(&p.Weights.DateMismatchPenalty, preset.Weights.DateMismatchPenalty)
	fill(&p.Weights.Amount, preset.Weights.Amount)
	fill(&p.Weights.Code, preset.Weights.Code)
	fill(&p.Weights.Name, preset.Weights.Name)
	fill(&p.Weights.OtherNumber, preset.Weights.OtherNumber)

	if len(p.Extraction.Stopwords) == 0 {
		p.Extraction.Stopwords = attributes.DefaultStopwords
	}
	if len(p.Extraction.PrefixTokens) == 0 {
		p.Extraction.PrefixTokens = attributes.DefaultPrefixTokens
	}
	p.Extraction.Stopwords = upperAll(p.Extraction.Stopwords)
	p.Extraction.PrefixTokens = upperAll(p.Extraction.PrefixTokens)
	return p, nil
}

// preset returns the shipped scoring policy matching the date policy.
func (p Pipeline) preset() matching.Policy {
	if p.DatePolicy == string(matching.DateSoft) {
		return matching.LenientPolicy()
	}
	return matching.DefaultPolicy()
}

// ScoringPolicy converts the normalized pipeline into a matching policy.
func (p Pipeline) ScoringPolicy() matching.Policy {
	policy := p.preset()
	policy.Dates = matching.DatePolicy(p.DatePolicy)
	set := func(dst *int, v *int) {
		if v != nil {
			*dst = *v
		}
	}
	set(&policy.MinScore, p.MinScore)
	set(&policy.Weights.DateMatch, p.Weights.DateMatch)
	set(&policy.Weights.DateSingleSided, p.Weights.DateSingleSided)
	set(&policy.Weights.DateMismatchPenalty, p.Weights.DateMismatchPenalty)
	set(&policy.Weights.Amount, p.Weights.Amount)
	set(&policy.Weights.Code, p.Weights.Code)
	set(&policy.Weights.Name, p.Weights.Name)
	set(&policy.Weights.OtherNumber, p.Weights.OtherNumber)
	return policy
}

// ExtractorOptions converts the extraction section for the attribute extractor.
func (p Pipeline) ExtractorOptions() attributes.Options {
	return attributes.Options{
		Stopwords:    append([]string(nil), p.Extraction.Stopwords...),
		PrefixTokens: append([]string(nil), p.Extraction.PrefixTokens...),
	}
}

func upperAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToUpper(strings.TrimSpace(v))
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
