package ingest

import (
	"embed"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed config/sources.yaml
var sourcesYAML embed.FS

// Registry holds the configuration for all custom scraping sources.
type Registry struct {
	Sources []SourceConfig `yaml:"sources"`
}

// FetchConfig defines HTTP fetching configuration for a source.
type FetchConfig struct {
	TimeoutSeconds int     `yaml:"timeout_seconds,omitempty"` // Default: 30
	MaxRetries     int     `yaml:"max_retries,omitempty"`     // Default: 3
	RateLimitRPS   float64 `yaml:"rate_limit_rps,omitempty"`  // Requests per second, default: 1.0
}

// SelectorConfig defines the CSS selectors used to pull call listings out of
// a source page.
type SelectorConfig struct {
	Container string `yaml:"container,omitempty"` // CSS selector for the list item wrapper
	Link      string `yaml:"link,omitempty"`
	Title     string `yaml:"title,omitempty"`
	Content   string `yaml:"content,omitempty"`
	Deadline  string `yaml:"deadline,omitempty"`
}

// SourceConfig defines a single scrapeable funding source.
type SourceConfig struct {
	ID          string   `yaml:"id"`
	Name        string   `yaml:"name"`
	BaseURL     string   `yaml:"base_url,omitempty"`
	Seeds       []string `yaml:"seed_urls,omitempty"`
	Description string   `yaml:"description,omitempty"`

	Fetch     FetchConfig    `yaml:"fetch,omitempty"`
	Selectors SelectorConfig `yaml:"selectors,omitempty"`
	MaxPages  int            `yaml:"max_pages,omitempty"`
}

// GenericConfig builds a SourceConfig for an ad-hoc URL supplied per request.
// Without curated selectors the scraper falls back to extracting links.
func GenericConfig(name, url string) SourceConfig {
	return SourceConfig{
		ID:      "custom",
		Name:    name,
		BaseURL: url,
		Seeds:   []string{url},
		Selectors: SelectorConfig{
			Container: "a[href]",
		},
	}
}

// LoadRegistry reads the embedded sources.yaml and returns a Registry.
// The path parameter is kept for local development overrides.
func LoadRegistry(path string) (*Registry, error) {
	data, err := sourcesYAML.ReadFile("config/sources.yaml")
	if err != nil {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, err
		}
	}

	// Expand environment variables within the YAML content (e.g. ${API_KEY})
	expanded := os.ExpandEnv(string(data))

	var reg Registry
	if err := yaml.Unmarshal([]byte(expanded), &reg); err != nil {
		return nil, err
	}

	return &reg, nil
}
