package config

import (
	"fmt"
	"net/url"
	"strings"
)

var knownInputTypes = map[string]bool{
	"string":      true,
	"number":      true,
	"boolean":     true,
	"date":        true,
	"time":        true,
	"category":    true,
	"terminology": true,
	"multiselect": true,
}

// Validate checks the config for:
//   - Required fields and well-formed collaborator URLs
//   - Operator overrides keyed by a known input type
//   - Submission steps that are named at most once
func Validate(cfg *ExplorerConfig) error {
	if cfg.Version == "" {
		return fmt.Errorf("config: version is required")
	}
	var errs []string

	validateRemote("catalogue", cfg.Catalogue, &errs)
	validateRemote("sde", cfg.SDE, &errs)

	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("log.level: unknown level %q", cfg.Log.Level))
	}
	switch cfg.Log.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("log.format: unknown format %q", cfg.Log.Format))
	}

	qb := cfg.QueryBuilder
	if qb.LookupConcurrency < 0 {
		errs = append(errs, "query_builder.lookup_concurrency must not be negative")
	}
	for typ, ops := range qb.Operators {
		if !knownInputTypes[typ] {
			errs = append(errs, fmt.Sprintf("query_builder.operators: unknown input type %q", typ))
		}
		if len(ops) == 0 {
			errs = append(errs, fmt.Sprintf("query_builder.operators.%s: must list at least one operator", typ))
		}
	}

	sub := cfg.Submission
	if sub.Workers < 1 {
		errs = append(errs, "submission.workers must be at least 1")
	}
	if sub.QueueDepth < 1 {
		errs = append(errs, "submission.queue_depth must be at least 1")
	}
	seen := make(map[string]int)
	for i, name := range sub.Steps {
		if name == "" {
			errs = append(errs, fmt.Sprintf("submission.steps[%d]: name is required", i))
			continue
		}
		if prev, ok := seen[name]; ok {
			errs = append(errs, fmt.Sprintf("duplicate step %q (first seen at steps[%d], again at steps[%d])", name, prev, i))
			continue
		}
		seen[name] = i
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func validateRemote(name string, r RemoteConf, errs *[]string) {
	if r.BaseURL == "" {
		*errs = append(*errs, fmt.Sprintf("%s.base_url is required", name))
		return
	}
	u, err := url.Parse(r.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		*errs = append(*errs, fmt.Sprintf("%s.base_url %q is not an absolute URL", name, r.BaseURL))
	}
	if r.TimeoutMs < 0 {
		*errs = append(*errs, fmt.Sprintf("%s.timeout_ms must not be negative", name))
	}
}
