// Package rules evaluates quality rules from a YAML config against
// indexed file records.
package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/codeatlas/codeatlas/internal/index"
)

// Default thresholds bound into every condition unless the config's
// metrics block overrides them.
const (
	DefaultMaxComplexity   = 10.0
	DefaultMaxLOC          = 500.0
	DefaultMinCommentRatio = 0.1
)

// Rule is one quality rule from the config.
type Rule struct {
	ID        string `yaml:"id"`
	Condition string `yaml:"condition"`
	Message   string `yaml:"message"`
	Action    string `yaml:"action"`
}

// Config is the parsed rule configuration.
type Config struct {
	// Metrics holds named thresholds referenced by conditions.
	Metrics map[string]float64 `yaml:"metrics"`

	// Actions lists the rules in evaluation order.
	Actions []Rule `yaml:"actions"`
}

// Violation records one triggered rule for one file.
type Violation struct {
	ID      string `json:"id"`
	Message string `json:"message"`
	Action  string `json:"action"`
	File    string `json:"file"`
}

type compiledRule struct {
	rule Rule
	cond expr // nil when the condition failed to compile
}

// Engine evaluates a loaded rule configuration.
type Engine struct {
	thresholds map[string]float64
	rules      []compiledRule
}

// Load reads and compiles a rule config. A missing or unparsable config
// file is the one fatal condition in the engine; individual rules whose
// conditions do not compile are kept but never trigger.
func Load(path string) (*Engine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rules config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing rules config %s: %w", path, err)
	}

	return NewEngine(cfg), nil
}

// NewEngine builds an engine from an in-memory config.
func NewEngine(cfg Config) *Engine {
	thresholds := map[string]float64{
		"max_complexity":    DefaultMaxComplexity,
		"max_loc":           DefaultMaxLOC,
		"min_comment_ratio": DefaultMinCommentRatio,
	}
	for name, v := range cfg.Metrics {
		thresholds[name] = v
	}

	rules := make([]compiledRule, 0, len(cfg.Actions))
	for _, r := range cfg.Actions {
		cond, err := parseCondition(r.Condition)
		if err != nil {
			cond = nil
		}
		rules = append(rules, compiledRule{rule: r, cond: cond})
	}

	return &Engine{thresholds: thresholds, rules: rules}
}

// Evaluate runs every rule against one file record, in config order. A
// rule triggers only when its condition evaluates to boolean true; any
// evaluation error means the rule does not trigger for this file.
func (e *Engine) Evaluate(file *index.SourceFile) []Violation {
	env := e.binding(file)

	var violations []Violation
	for _, cr := range e.rules {
		if cr.cond == nil {
			continue
		}
		v, err := cr.cond.eval(env)
		if err != nil || !v.isBool || !v.b {
			continue
		}
		violations = append(violations, Violation{
			ID:      cr.rule.ID,
			Message: cr.rule.Message,
			Action:  cr.rule.Action,
			File:    file.Path,
		})
	}
	return violations
}

// EvaluateAll runs the rules over every file and concatenates the
// violations in file order.
func (e *Engine) EvaluateAll(files []index.SourceFile) []Violation {
	var all []Violation
	for i := range files {
		all = append(all, e.Evaluate(&files[i])...)
	}
	return all
}

// binding builds the per-file variable environment: the file's measured
// metrics plus every configured threshold.
func (e *Engine) binding(file *index.SourceFile) map[string]float64 {
	env := make(map[string]float64, len(e.thresholds)+3)
	for name, v := range e.thresholds {
		env[name] = v
	}
	env["complexity"] = meanComplexity(file.Complexity)
	env["loc"] = float64(file.Raw.LOC)
	env["comment_ratio"] = file.CommentRatio
	return env
}

// meanComplexity averages the per-function measurements; a file with no
// functions scores 0.0.
func meanComplexity(measurements []index.Complexity) float64 {
	if len(measurements) == 0 {
		return 0.0
	}
	sum := 0
	for _, m := range measurements {
		sum += m.Complexity
	}
	return float64(sum) / float64(len(measurements))
}
