package classification

import (
	"context"
	"fmt"
	"sync"
	"time"

	celgo "github.com/google/cel-go/cel"

	"wren/internal/config"
	"wren/internal/logger"
	"wren/pkg/cel"
	"wren/pkg/errors"
	"wren/pkg/metrics"
	"wren/pkg/models"
	"wren/pkg/tracing"
)

const tracerName = "router-service"

type compiledRule struct {
	name     string
	category models.Category
	program  celgo.Program
}

// providerRuleset pins the compiled rules and the tracked branch from the
// same configuration generation, so a reload cannot split them.
type providerRuleset struct {
	branch string
	rules  []compiledRule
}

// Service decides whether a verified delivery triggers a build pipeline, a
// review pipeline, or nothing. Predicates are compiled CEL programs; the
// hot path never compiles.
type Service struct {
	evaluator *cel.Evaluator
	rules     map[models.Provider]providerRuleset
	rulesMu   sync.RWMutex
	logger    logger.Logger
}

func NewService(cfg *config.Config, log logger.Logger) (*Service, error) {
	evaluator, err := cel.NewEvaluator()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL evaluator: %w", err)
	}

	s := &Service{
		evaluator: evaluator,
		rules:     make(map[models.Provider]providerRuleset),
		logger:    log,
	}

	if err := s.Rebuild(cfg); err != nil {
		return nil, err
	}

	return s, nil
}

// Rebuild compiles rule sets for every enabled provider and swaps them in.
// On any compile error the previous sets stay active, which lets the config
// watcher veto a broken reload before it reaches the hot path.
func (s *Service) Rebuild(cfg *config.Config) error {
	fresh := make(map[models.Provider]providerRuleset)

	for _, provider := range cfg.EnabledProviders() {
		pc := cfg.Providers.ByName(provider)

		ruleConfigs := pc.Rules
		if len(ruleConfigs) == 0 {
			ruleConfigs = DefaultRules(provider)
		}

		compiled, err := s.compileRules(provider, ruleConfigs)
		if err != nil {
			return err
		}

		fresh[provider] = providerRuleset{
			branch: pc.TrackedBranch,
			rules:  compiled,
		}
	}

	s.rulesMu.Lock()
	s.rules = fresh
	s.rulesMu.Unlock()

	s.logger.Infow("classification rules compiled",
		"providers", len(fresh),
	)
	return nil
}

// compileRules orders the result build-first: evaluation tries every build
// rule, then every review rule, first match wins.
func (s *Service) compileRules(provider models.Provider, ruleConfigs []config.RuleConfig) ([]compiledRule, error) {
	var buildRules, reviewRules []compiledRule

	for _, rc := range ruleConfigs {
		category, err := models.ParseCategory(rc.Category)
		if err != nil {
			return nil, fmt.Errorf("rule %q for provider %s: %w", rc.Name, provider, err)
		}

		program, err := s.evaluator.CompileFilter(rc.Expression)
		if err != nil {
			return nil, fmt.Errorf("rule %q for provider %s: %w", rc.Name, provider, err)
		}

		rule := compiledRule{
			name:     rc.Name,
			category: category,
			program:  program,
		}

		if category == models.CategoryBuild {
			buildRules = append(buildRules, rule)
		} else {
			reviewRules = append(reviewRules, rule)
		}
	}

	return append(buildRules, reviewRules...), nil
}

func (s *Service) activeRuleset(provider models.Provider) (providerRuleset, bool) {
	s.rulesMu.RLock()
	defer s.rulesMu.RUnlock()

	rs, ok := s.rules[provider]
	return rs, ok
}

// Classify evaluates the provider's rules against one delivery. The result
// is deterministic for a given payload and rule generation. A rule whose
// evaluation errors discards the delivery (fail closed) rather than letting
// a half-evaluated predicate dispatch anything.
func (s *Service) Classify(ctx context.Context, event *models.WebhookEvent) (models.ClassificationResult, error) {
	ctx, span := tracing.GetTracer(tracerName).Start(ctx, "classification.classify")
	defer span.End()

	payload, err := event.Payload()
	if err != nil {
		return models.ClassificationResult{}, errors.ErrValidation.WithCause(err)
	}

	rs, ok := s.activeRuleset(event.Provider)
	if !ok {
		s.logger.WarnwCtx(ctx, "no rules for provider, discarding",
			"provider", event.Provider.String(),
		)
		return s.discard(event, ""), nil
	}

	activation := cel.Activation{
		Body:   payload,
		Header: event.HeaderMap(),
		Event:  event.EventType(),
		Branch: rs.branch,
	}

	start := time.Now()
	for _, rule := range rs.rules {
		if err := ctx.Err(); err != nil {
			return models.ClassificationResult{}, err
		}

		matched, err := s.evaluator.EvaluateProgram(ctx, rule.program, activation)
		if err != nil {
			s.logger.ErrorwCtx(ctx, "rule evaluation error, discarding delivery",
				"provider", event.Provider.String(),
				"rule", rule.name,
				"error", err,
			)
			return s.discard(event, rule.name), nil
		}

		if matched {
			metrics.IncClassification(event.Provider.String(), rule.category.String(), rule.name)
			s.logger.DebugwCtx(ctx, "delivery classified",
				"provider", event.Provider.String(),
				"category", rule.category.String(),
				"rule", rule.name,
				"duration_ms", time.Since(start).Milliseconds(),
			)
			return models.ClassificationResult{
				Category:    rule.category,
				MatchedRule: rule.name,
			}, nil
		}
	}

	return s.discard(event, ""), nil
}

// discard records the no-op outcome. matchedRule carries the failing rule's
// name when an evaluation error forced the discard, empty otherwise.
func (s *Service) discard(event *models.WebhookEvent, matchedRule string) models.ClassificationResult {
	ruleLabel := matchedRule
	if ruleLabel == "" {
		ruleLabel = "none"
	}
	metrics.IncClassification(event.Provider.String(), models.CategoryDiscard.String(), ruleLabel)

	return models.ClassificationResult{
		Category:    models.CategoryDiscard,
		MatchedRule: matchedRule,
	}
}
