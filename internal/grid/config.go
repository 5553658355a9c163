package grid

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	GridName string `yaml:"grid_name"`

	WelcomeMessage      string `yaml:"welcome_message"`
	DestinationGuideURL string `yaml:"destination_guide_url,omitempty"`
	EconomyURL          string `yaml:"economy_url,omitempty"`
	SunTextureID        string `yaml:"sun_texture_id,omitempty"`
	CloudTextureID      string `yaml:"cloud_texture_id,omitempty"`
	MoonTextureID       string `yaml:"moon_texture_id,omitempty"`

	Maturity    string `yaml:"maturity"`
	MaxMaturity string `yaml:"max_maturity"`

	MinLoginLevel    int    `yaml:"min_login_level"`
	AllowAnonymous   bool   `yaml:"allow_anonymous"`
	RequireInventory bool   `yaml:"require_inventory"`
	DefaultArchive   string `yaml:"default_appearance_archive,omitempty"`

	IdentityURL string `yaml:"identity_url"`

	TOS TOSConfig `yaml:"tos,omitempty"`

	ViewerAllow []string `yaml:"viewer_allow,omitempty"`
	ViewerDeny  []string `yaml:"viewer_deny,omitempty"`

	Regions []RegionSpec `yaml:"regions"`
}

type TOSConfig struct {
	Required bool   `yaml:"required"`
	Version  string `yaml:"version,omitempty"`
	File     string `yaml:"file,omitempty"`
	Text     string `yaml:"text,omitempty"`
}

type RegionSpec struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	GridX    int    `yaml:"grid_x"`
	GridY    int    `yaml:"grid_y"`
	BaseURL  string `yaml:"base_url"`
	Default  bool   `yaml:"default,omitempty"`
	Fallback bool   `yaml:"fallback,omitempty"`
}

func Load(path string) (Config, error) {
	cfg := defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("grid.yaml: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("grid.yaml: %w", err)
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		GridName:         "aurora",
		WelcomeMessage:   "Welcome to the grid",
		Maturity:         "M",
		MaxMaturity:      "A",
		MinLoginLevel:    0,
		RequireInventory: true,
		Regions: []RegionSpec{
			{ID: "00000000-0000-0000-0000-00000000d001", Name: "Aurora Plaza", GridX: 1000, GridY: 1000, BaseURL: "http://127.0.0.1:9000", Default: true, Fallback: true},
		},
	}
}

func (c *Config) Normalize() {
	if c == nil {
		return
	}
	c.Maturity = normalizeMaturity(c.Maturity, "M")
	c.MaxMaturity = normalizeMaturity(c.MaxMaturity, "A")
	for i := range c.Regions {
		c.Regions[i].Name = strings.TrimSpace(c.Regions[i].Name)
		c.Regions[i].BaseURL = strings.TrimRight(strings.TrimSpace(c.Regions[i].BaseURL), "/")
	}
	// A grid with no declared defaults treats every fallback region as one.
	hasDefault := false
	for _, r := range c.Regions {
		if r.Default {
			hasDefault = true
			break
		}
	}
	if !hasDefault {
		for i := range c.Regions {
			if c.Regions[i].Fallback {
				c.Regions[i].Default = true
				hasDefault = true
			}
		}
	}
	if !hasDefault && len(c.Regions) > 0 {
		c.Regions[0].Default = true
	}
}

func normalizeMaturity(v, def string) string {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "P", "G":
		return "P"
	case "M":
		return "M"
	case "A":
		return "A"
	default:
		return def
	}
}

func (c Config) Validate() error {
	if len(c.Regions) == 0 {
		return fmt.Errorf("regions must not be empty")
	}
	ids := map[string]bool{}
	names := map[string]bool{}
	for _, r := range c.Regions {
		if strings.TrimSpace(r.ID) == "" {
			return fmt.Errorf("region id must not be empty")
		}
		if ids[r.ID] {
			return fmt.Errorf("duplicate region id: %s", r.ID)
		}
		ids[r.ID] = true
		if r.Name == "" {
			return fmt.Errorf("region %s name must not be empty", r.ID)
		}
		lower := strings.ToLower(r.Name)
		if names[lower] {
			return fmt.Errorf("duplicate region name: %s", r.Name)
		}
		names[lower] = true
		if r.GridX <= 0 || r.GridY <= 0 {
			return fmt.Errorf("region %s grid coordinates must be > 0", r.Name)
		}
		if r.BaseURL == "" {
			return fmt.Errorf("region %s base_url must not be empty", r.Name)
		}
	}
	if c.MinLoginLevel < 0 {
		return fmt.Errorf("min_login_level must be >= 0")
	}
	for i, p := range append(append([]string{}, c.ViewerAllow...), c.ViewerDeny...) {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("viewer pattern %d (%q): %w", i, p, err)
		}
	}
	return nil
}

// Catalog builds the runtime region directory from the configured specs.
func (c Config) Catalog() *Catalog {
	regions := make([]*Region, 0, len(c.Regions))
	for _, s := range c.Regions {
		regions = append(regions, &Region{
			ID:       s.ID,
			Name:     s.Name,
			GridX:    s.GridX,
			GridY:    s.GridY,
			BaseURL:  s.BaseURL,
			Default:  s.Default,
			Fallback: s.Fallback,
		})
	}
	return NewCatalog(regions)
}

// TOSText loads the terms-of-service text, preferring the inline value.
func (c Config) TOSText() (string, error) {
	if strings.TrimSpace(c.TOS.Text) != "" {
		return c.TOS.Text, nil
	}
	if strings.TrimSpace(c.TOS.File) == "" {
		return "", nil
	}
	b, err := os.ReadFile(c.TOS.File)
	if err != nil {
		return "", fmt.Errorf("tos file: %w", err)
	}
	return string(b), nil
}
