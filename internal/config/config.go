package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Root struct {
	Env     string        `yaml:"env"`
	Filters FiltersConfig `yaml:"filters"`
	Local   Config        `yaml:"local"`
	Dev     Config        `yaml:"dev"`
	Prod    Config        `yaml:"prod"`
}

// FiltersConfig is the process-wide filter policy. Empty fields get defaults.
type FiltersConfig struct {
	ExcludeTerms      []string `yaml:"exclude_terms"`
	ConditionIDs      []string `yaml:"condition_ids"`
	NewMarkers        []string `yaml:"new_markers"`
	SellerAccountType string   `yaml:"seller_account_type"`
	LocationCountries []string `yaml:"location_countries"`
	DefaultCategoryID string   `yaml:"default_category_id"`
	MinPriceEUR       float64  `yaml:"min_price_eur"`
	BuyingOptions     []string `yaml:"buying_options"`
	ModelThreshold    float64  `yaml:"model_threshold"`
}

type Config struct {
	Env string `yaml:"-"`

	Log struct {
		Level     string `yaml:"level"`
		Format    string `yaml:"format"`
		AddSource bool   `yaml:"add_source"`
	} `yaml:"log"`

	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"server"`

	Ebay struct {
		TokenURL       string `yaml:"token_url"`
		BrowseURL      string `yaml:"browse_url"`
		Scope          string `yaml:"scope"`
		Marketplace    string `yaml:"marketplace"`
		Country        string `yaml:"country"`
		Currency       string `yaml:"currency"`
		SearchLimit    int    `yaml:"search_limit"`
		Pages          int    `yaml:"pages"`
		RequestDelayMS int    `yaml:"request_delay_ms"`
		SearchSiteURL  string `yaml:"search_site_url"`
	} `yaml:"ebay"`

	HTTP struct {
		TimeoutSeconds int `yaml:"timeout_seconds"`
	} `yaml:"http"`

	Data struct {
		ContentDir string `yaml:"content_dir"`
		OffersDir  string `yaml:"offers_dir"`
		HistoryDir string `yaml:"history_dir"`
		LabelsDir  string `yaml:"labels_dir"`
		ModelPath  string `yaml:"model_path"`
	} `yaml:"data"`

	Fetch struct {
		MaxOffers   int    `yaml:"max_offers"`
		QueryPolicy string `yaml:"query_policy"` // explicit|synonyms
	} `yaml:"fetch"`

	History struct {
		Backend         string `yaml:"backend"` // jsonl|postgres
		PostgresDSN     string `yaml:"postgres_dsn"`
		ShortWindowDays int    `yaml:"short_window_days"`
	} `yaml:"history"`

	TokenCache struct {
		RedisURL string `yaml:"redis_url"`
		Key      string `yaml:"key"`
	} `yaml:"token_cache"`

	Scheduler struct {
		Spec       string `yaml:"spec"`
		RunOnStart bool   `yaml:"run_on_start"`
	} `yaml:"scheduler"`

	Filters FiltersConfig `yaml:"filters"`

	Secrets Secrets `yaml:"-"`
}

// Secrets never come from the yaml file.
type Secrets struct {
	ClientID     string
	ClientSecret string
	CampaignID   string
	ReferenceID  string
}

func (s Secrets) HasCredentials() bool {
	return s.ClientID != "" && s.ClientSecret != ""
}

func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(b, os.Getenv)
}

// Parse builds a Config from yaml bytes; getenv supplies the secrets.
func Parse(b []byte, getenv func(string) string) (*Config, error) {
	var root Root
	if err := yaml.Unmarshal(b, &root); err != nil {
		return nil, err
	}

	env := strings.TrimSpace(strings.ToLower(root.Env))
	if env == "" {
		env = "local"
	}

	var p Config
	switch env {
	case "local":
		p = root.Local
	case "dev":
		p = root.Dev
	case "prod":
		p = root.Prod
	default:
		return nil, fmt.Errorf("unknown env=%q (expected local|dev|prod)", env)
	}
	p.Env = env

	if isFiltersEmpty(p.Filters) && !isFiltersEmpty(root.Filters) {
		p.Filters = root.Filters
	}

	if getenv == nil {
		getenv = func(string) string { return "" }
	}
	p.Secrets = Secrets{
		ClientID:     strings.TrimSpace(getenv("EBAY_CLIENT_ID")),
		ClientSecret: strings.TrimSpace(getenv("EBAY_CLIENT_SECRET")),
		CampaignID:   strings.TrimSpace(getenv("EPN_CAMPAIGN_ID")),
		ReferenceID:  strings.TrimSpace(getenv("EPN_REFERENCE_ID")),
	}

	applyDefaults(&p)
	if err := validate(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

func isFiltersEmpty(f FiltersConfig) bool {
	return len(f.ExcludeTerms) == 0 && len(f.ConditionIDs) == 0 && len(f.NewMarkers) == 0 &&
		f.SellerAccountType == "" && len(f.LocationCountries) == 0 && f.DefaultCategoryID == "" &&
		f.MinPriceEUR == 0 && len(f.BuyingOptions) == 0 && f.ModelThreshold == 0
}

func applyDefaults(p *Config) {
	if p.Server.Host == "" {
		p.Server.Host = "0.0.0.0"
	}
	if p.Server.Port == 0 {
		p.Server.Port = 7891
	}

	if p.Ebay.TokenURL == "" {
		p.Ebay.TokenURL = "https://api.ebay.com/identity/v1/oauth2/token"
	}
	if p.Ebay.BrowseURL == "" {
		p.Ebay.BrowseURL = "https://api.ebay.com/buy/browse/v1"
	}
	if p.Ebay.Scope == "" {
		p.Ebay.Scope = "https://api.ebay.com/oauth/api_scope"
	}
	if p.Ebay.Marketplace == "" {
		p.Ebay.Marketplace = "EBAY_DE"
	}
	if p.Ebay.Country == "" {
		p.Ebay.Country = "DE"
	}
	if p.Ebay.Currency == "" {
		p.Ebay.Currency = "EUR"
	}
	p.Ebay.Currency = strings.ToUpper(p.Ebay.Currency)
	if p.Ebay.SearchLimit <= 0 {
		p.Ebay.SearchLimit = 25
	}
	if p.Ebay.SearchLimit > 200 {
		p.Ebay.SearchLimit = 200
	}
	if p.Ebay.Pages <= 0 {
		p.Ebay.Pages = 1
	}
	if p.Ebay.RequestDelayMS < 0 {
		p.Ebay.RequestDelayMS = 0
	} else if p.Ebay.RequestDelayMS == 0 {
		p.Ebay.RequestDelayMS = 250
	}
	if p.Ebay.SearchSiteURL == "" {
		p.Ebay.SearchSiteURL = "https://www.ebay.de/sch/i.html"
	}

	if p.HTTP.TimeoutSeconds <= 0 {
		p.HTTP.TimeoutSeconds = 25
	}

	if p.Data.ContentDir == "" {
		p.Data.ContentDir = "./content/games"
	}
	if p.Data.OffersDir == "" {
		p.Data.OffersDir = "./data/offers"
	}
	if p.Data.HistoryDir == "" {
		p.Data.HistoryDir = "./data/history"
	}
	if p.Data.LabelsDir == "" {
		p.Data.LabelsDir = "./data/labels"
	}
	if p.Data.ModelPath == "" {
		p.Data.ModelPath = "./data/relevance_model.json"
	}

	if p.Fetch.MaxOffers <= 0 {
		p.Fetch.MaxOffers = 8
	}
	if p.Fetch.MaxOffers > 100 {
		p.Fetch.MaxOffers = 100
	}
	p.Fetch.QueryPolicy = strings.ToLower(strings.TrimSpace(p.Fetch.QueryPolicy))
	if p.Fetch.QueryPolicy == "" {
		p.Fetch.QueryPolicy = "synonyms"
	}

	p.History.Backend = strings.ToLower(strings.TrimSpace(p.History.Backend))
	if p.History.Backend == "" {
		p.History.Backend = "jsonl"
	}
	if p.History.ShortWindowDays <= 0 {
		p.History.ShortWindowDays = 30
	}

	if p.TokenCache.Key == "" {
		p.TokenCache.Key = "preisradar:ebay:token"
	}

	if p.Scheduler.Spec == "" {
		p.Scheduler.Spec = "0 6 * * *"
	}

	if p.Secrets.ReferenceID == "" {
		p.Secrets.ReferenceID = "preisradar"
	}

	applyFilterDefaults(&p.Filters)

	if p.Log.Level == "" {
		if p.Env == "prod" {
			p.Log.Level = "info"
		} else {
			p.Log.Level = "debug"
		}
	}
	if p.Log.Format == "" {
		if p.Env == "prod" {
			p.Log.Format = "json"
		} else {
			p.Log.Format = "text"
		}
	}
}

func applyFilterDefaults(f *FiltersConfig) {
	f.ExcludeTerms = cleanList(f.ExcludeTerms, strings.ToLower)
	f.ConditionIDs = cleanList(f.ConditionIDs, nil)
	if len(f.ConditionIDs) == 0 {
		f.ConditionIDs = []string{"1000", "1500", "1750"}
	}
	f.NewMarkers = cleanList(f.NewMarkers, strings.ToLower)
	if len(f.NewMarkers) == 0 {
		f.NewMarkers = []string{"neu", "new"}
	}
	f.SellerAccountType = strings.ToUpper(strings.TrimSpace(f.SellerAccountType))
	if f.SellerAccountType == "" {
		f.SellerAccountType = "BUSINESS"
	}
	f.LocationCountries = cleanList(f.LocationCountries, strings.ToUpper)
	f.DefaultCategoryID = strings.TrimSpace(f.DefaultCategoryID)
	if f.MinPriceEUR < 0 {
		f.MinPriceEUR = 0
	}
	f.BuyingOptions = cleanList(f.BuyingOptions, strings.ToUpper)
	if len(f.BuyingOptions) == 0 {
		f.BuyingOptions = []string{"FIXED_PRICE"}
	}
	if f.ModelThreshold <= 0 || f.ModelThreshold >= 1 {
		f.ModelThreshold = 0.5
	}
}

func cleanList(in []string, norm func(string) string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if norm != nil {
			s = norm(s)
		}
		out = append(out, s)
	}
	return out
}

func validate(p *Config) error {
	switch p.Fetch.QueryPolicy {
	case "explicit", "synonyms":
	default:
		return fmt.Errorf("unknown fetch.query_policy=%q (expected explicit|synonyms)", p.Fetch.QueryPolicy)
	}
	switch p.History.Backend {
	case "jsonl":
	case "postgres":
		if strings.TrimSpace(p.History.PostgresDSN) == "" {
			return fmt.Errorf("history.backend=postgres but postgres_dsn empty")
		}
	default:
		return fmt.Errorf("unknown history.backend=%q (expected jsonl|postgres)", p.History.Backend)
	}
	return nil
}
