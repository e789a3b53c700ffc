package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config models sweaquity.yml: per-project settings that feed legal document
// generation. Stored alongside the project in the ledger (project_configs).
type Config struct {
	Project struct {
		ID   string `yaml:"id"`
		Kind string `yaml:"kind"`
	} `yaml:"project"`
	Business struct {
		Name    string `yaml:"name"`
		Contact string `yaml:"contact"`
	} `yaml:"business"`
	Documents struct {
		ConfidentialityMonths  int    `yaml:"confidentiality_months"`
		ContractDurationMonths int    `yaml:"contract_duration_months"`
		ArbitrationForum       string `yaml:"arbitration_forum"`
		GoverningLaw           string `yaml:"governing_law"`
	} `yaml:"documents"`
}

// Load reads and validates config from the workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; import with swq project config import --file <path>", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Project.ID == "" {
		return fmt.Errorf("config.project.id is required")
	}
	if c.Project.Kind != "equity-project" {
		return fmt.Errorf("config.project.kind must be 'equity-project'")
	}
	if c.Documents.ConfidentialityMonths <= 0 {
		return fmt.Errorf("config.documents.confidentiality_months must be positive")
	}
	if c.Documents.ContractDurationMonths <= 0 {
		return fmt.Errorf("config.documents.contract_duration_months must be positive")
	}
	if c.Documents.ArbitrationForum == "" {
		return fmt.Errorf("config.documents.arbitration_forum is required")
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "sweaquity.yml")
}

// Default returns the default Config struct for a project.
func Default(projectID string) *Config {
	var cfg Config
	cfg.Project.ID = projectID
	cfg.Project.Kind = "equity-project"
	_ = yaml.NewDecoder(bytes.NewBufferString(fmt.Sprintf(defaultTemplate, projectID))).Decode(&cfg)
	return &cfg
}

// GenerateDefault returns default config YAML.
func GenerateDefault(projectID string) string {
	return fmt.Sprintf(defaultTemplate, projectID)
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `project:
  id: %s
  kind: equity-project

business:
  name: ""
  contact: ""

documents:
  confidentiality_months: 24
  contract_duration_months: 12
  arbitration_forum: "London Court of International Arbitration"
  governing_law: "England and Wales"
`
