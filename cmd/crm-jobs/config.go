package main

import (
	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"

	"github.com/xenking/crm/internal/crmclient"
	"github.com/xenking/crm/internal/jobs"
)

// Config is the crm-jobs configuration, read from CRM_JOBS_-prefixed
// environment variables or jobs.yaml.
type Config struct {
	API  crmclient.Config
	Jobs jobs.Config
}

func loadConfig(file string) (*Config, error) {
	files := []string{"jobs.yaml", "/etc/crm/jobs.yaml"}
	if file != "" {
		files = []string{file}
	}

	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "CRM_JOBS",
		SkipFlags: true,
		Files:     files,
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	return &cfg, nil
}
