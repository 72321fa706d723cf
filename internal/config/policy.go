package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Policy is the optional YAML file that overrides cache lifetimes and fan-out
// sizes. Zero values keep the defaults.
//
//	ttl:
//	  projects: 15m
//	  pipelines: 1m
//	cache:
//	  default_ttl: 10m
//	  sweep_interval: 5m
//	batch:
//	  small: 5
//	  large: 10
type Policy struct {
	TTL struct {
		Projects      time.Duration `yaml:"projects"`
		Project       time.Duration `yaml:"project"`
		MergeRequests time.Duration `yaml:"merge_requests"`
		Commits       time.Duration `yaml:"commits"`
		Issues        time.Duration `yaml:"issues"`
		Pipelines     time.Duration `yaml:"pipelines"`
	} `yaml:"ttl"`
	Cache struct {
		DefaultTTL    time.Duration `yaml:"default_ttl"`
		SweepInterval time.Duration `yaml:"sweep_interval"`
	} `yaml:"cache"`
	Batch struct {
		Small int `yaml:"small"`
		Large int `yaml:"large"`
	} `yaml:"batch"`
}

func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse policy file %s: %w", path, err)
	}
	return &p, nil
}

// Apply copies every positive value of p into cfg.
func (p *Policy) Apply(cfg *AppConfig) {
	ttl := &cfg.GitLab.TTL
	set(&ttl.Projects, p.TTL.Projects)
	set(&ttl.Project, p.TTL.Project)
	set(&ttl.MergeRequests, p.TTL.MergeRequests)
	set(&ttl.Commits, p.TTL.Commits)
	set(&ttl.Issues, p.TTL.Issues)
	set(&ttl.Pipelines, p.TTL.Pipelines)
	set(&cfg.CacheTTL, p.Cache.DefaultTTL)
	set(&cfg.SweepInterval, p.Cache.SweepInterval)
	set(&cfg.SmallBatch, p.Batch.Small)
	set(&cfg.LargeBatch, p.Batch.Large)
}

func set[T int | time.Duration](dst *T, v T) {
	if v > 0 {
		*dst = v
	}
}
