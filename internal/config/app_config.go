package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/temirov/ebixref/internal/utils"
	"github.com/temirov/ebixref/internal/xref"
)

const (
	defaultCatalogBaseURL = "https://www.ebi.ac.uk/ebisearch/ws/rest"
	defaultCatalogTimeout = 30 * time.Second
	defaultUserAgent      = "ebixref"
	defaultOutputFormat   = "json"
)

// LoadOptions controls how application configuration is discovered.
type LoadOptions struct {
	WorkingDirectory string
	ExplicitFilePath string
}

// ApplicationConfiguration holds every configurable setting. Unset values are nil or empty
// so that local files override global ones field by field.
type ApplicationConfiguration struct {
	Catalog   CatalogConfiguration   `mapstructure:"catalog"`
	Aggregate AggregateConfiguration `mapstructure:"aggregate"`
	Output    OutputConfiguration    `mapstructure:"output"`
}

// CatalogConfiguration configures the EBI Search client.
type CatalogConfiguration struct {
	BaseURL   string         `mapstructure:"base_url"`
	Timeout   *time.Duration `mapstructure:"timeout"`
	UserAgent string         `mapstructure:"user_agent"`
}

// AggregateConfiguration configures the all-domains aggregation budgets.
type AggregateConfiguration struct {
	MaxFetchDomains     *int     `mapstructure:"max_fetch_domains"`
	MaxReturnDomains    *int     `mapstructure:"max_return_domains"`
	MaxEntriesPerDomain *int     `mapstructure:"max_entries_per_domain"`
	FetchConcurrency    *int     `mapstructure:"fetch_concurrency"`
	PriorityDomains     []string `mapstructure:"priority_domains"`
}

// OutputConfiguration configures rendering and payload shaping.
type OutputConfiguration struct {
	Format        string `mapstructure:"format"`
	MaxDepth      *int   `mapstructure:"max_depth"`
	TopLevelItems *int   `mapstructure:"top_level_items"`
	NestedItems   *int   `mapstructure:"nested_items"`
	Clipboard     *bool  `mapstructure:"clipboard"`
}

// Settings is the resolved configuration with defaults applied.
type Settings struct {
	CatalogBaseURL   string
	CatalogTimeout   time.Duration
	UserAgent        string
	Aggregator       xref.AggregatorOptions
	ShapeLimits      utils.ShapeLimits
	OutputFormat     string
	ClipboardEnabled bool
}

// LoadApplicationConfiguration loads configuration from global and local files.
func LoadApplicationConfiguration(options LoadOptions) (ApplicationConfiguration, error) {
	workingDirectory := options.WorkingDirectory
	if workingDirectory == "" {
		currentDirectory, err := os.Getwd()
		if err != nil {
			return ApplicationConfiguration{}, fmt.Errorf("determine working directory: %w", err)
		}
		workingDirectory = currentDirectory
	}

	var merged ApplicationConfiguration

	if homeDirectory, err := os.UserHomeDir(); err == nil && homeDirectory != "" {
		globalPath := filepath.Join(homeDirectory, utils.GlobalConfigDirectoryName, utils.ConfigFileName)
		globalConfig, loadErr := loadConfigurationFromPath(globalPath)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(globalConfig)
	}

	localPath, resolveErr := resolveLocalConfigPath(workingDirectory, options.ExplicitFilePath)
	if resolveErr != nil {
		return ApplicationConfiguration{}, resolveErr
	}
	if localPath != "" {
		localConfig, loadErr := loadConfigurationFromPath(localPath)
		if loadErr != nil {
			return ApplicationConfiguration{}, loadErr
		}
		merged = merged.Merge(localConfig)
	}

	merged.Aggregate.PriorityDomains = utils.DeduplicateStrings(merged.Aggregate.PriorityDomains)

	return merged, nil
}

func resolveLocalConfigPath(workingDirectory, explicitPath string) (string, error) {
	if explicitPath != "" {
		if filepath.IsAbs(explicitPath) {
			return explicitPath, nil
		}
		if workingDirectory == "" {
			absolute, err := filepath.Abs(explicitPath)
			if err != nil {
				return "", fmt.Errorf("resolve configuration path %s: %w", explicitPath, err)
			}
			return absolute, nil
		}
		return filepath.Join(workingDirectory, explicitPath), nil
	}
	if workingDirectory == "" {
		return "", nil
	}
	return filepath.Join(workingDirectory, utils.LocalConfigFileName), nil
}

func loadConfigurationFromPath(path string) (ApplicationConfiguration, error) {
	if path == "" {
		return ApplicationConfiguration{}, nil
	}
	info, statErr := os.Stat(path)
	if statErr != nil {
		if os.IsNotExist(statErr) {
			return ApplicationConfiguration{}, nil
		}
		return ApplicationConfiguration{}, fmt.Errorf("stat configuration %s: %w", path, statErr)
	}
	if info.IsDir() {
		return ApplicationConfiguration{}, fmt.Errorf("configuration path %s is a directory", path)
	}

	reader := viper.New()
	reader.SetConfigFile(path)
	if readErr := reader.ReadInConfig(); readErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("read configuration from %s: %w", path, readErr)
	}
	var config ApplicationConfiguration
	if decodeErr := reader.Unmarshal(&config); decodeErr != nil {
		return ApplicationConfiguration{}, fmt.Errorf("decode configuration from %s: %w", path, decodeErr)
	}
	return config, nil
}

// Merge overlays override onto the receiver returning the combined configuration.
func (config ApplicationConfiguration) Merge(override ApplicationConfiguration) ApplicationConfiguration {
	result := config
	result.Catalog = result.Catalog.merge(override.Catalog)
	result.Aggregate = result.Aggregate.merge(override.Aggregate)
	result.Output = result.Output.merge(override.Output)
	return result
}

func (config CatalogConfiguration) merge(override CatalogConfiguration) CatalogConfiguration {
	result := config
	if override.BaseURL != "" {
		result.BaseURL = override.BaseURL
	}
	if override.Timeout != nil {
		timeout := *override.Timeout
		result.Timeout = &timeout
	}
	if override.UserAgent != "" {
		result.UserAgent = override.UserAgent
	}
	return result
}

func (config AggregateConfiguration) merge(override AggregateConfiguration) AggregateConfiguration {
	result := config
	if override.MaxFetchDomains != nil {
		result.MaxFetchDomains = cloneInt(override.MaxFetchDomains)
	}
	if override.MaxReturnDomains != nil {
		result.MaxReturnDomains = cloneInt(override.MaxReturnDomains)
	}
	if override.MaxEntriesPerDomain != nil {
		result.MaxEntriesPerDomain = cloneInt(override.MaxEntriesPerDomain)
	}
	if override.FetchConcurrency != nil {
		result.FetchConcurrency = cloneInt(override.FetchConcurrency)
	}
	if len(override.PriorityDomains) > 0 {
		result.PriorityDomains = append([]string{}, override.PriorityDomains...)
	}
	return result
}

func (config OutputConfiguration) merge(override OutputConfiguration) OutputConfiguration {
	result := config
	if override.Format != "" {
		result.Format = override.Format
	}
	if override.MaxDepth != nil {
		result.MaxDepth = cloneInt(override.MaxDepth)
	}
	if override.TopLevelItems != nil {
		result.TopLevelItems = cloneInt(override.TopLevelItems)
	}
	if override.NestedItems != nil {
		result.NestedItems = cloneInt(override.NestedItems)
	}
	if override.Clipboard != nil {
		result.Clipboard = cloneBool(override.Clipboard)
	}
	return result
}

// Resolve applies defaults to every unset value.
func (config ApplicationConfiguration) Resolve() Settings {
	aggregatorOptions := xref.DefaultAggregatorOptions()
	if config.Aggregate.MaxFetchDomains != nil {
		aggregatorOptions.MaxFetchDomains = *config.Aggregate.MaxFetchDomains
	}
	if config.Aggregate.MaxReturnDomains != nil {
		aggregatorOptions.MaxReturnDomains = *config.Aggregate.MaxReturnDomains
	}
	if config.Aggregate.MaxEntriesPerDomain != nil {
		aggregatorOptions.MaxEntriesPerDomain = *config.Aggregate.MaxEntriesPerDomain
	}
	if config.Aggregate.FetchConcurrency != nil {
		aggregatorOptions.FetchConcurrency = *config.Aggregate.FetchConcurrency
	}
	if len(config.Aggregate.PriorityDomains) > 0 {
		aggregatorOptions.PriorityDomains = append([]string{}, config.Aggregate.PriorityDomains...)
	}

	shapeLimits := utils.DefaultShapeLimits()
	if config.Output.MaxDepth != nil {
		shapeLimits.MaxDepth = *config.Output.MaxDepth
	}
	if config.Output.TopLevelItems != nil {
		shapeLimits.TopLevelItems = *config.Output.TopLevelItems
	}
	if config.Output.NestedItems != nil {
		shapeLimits.NestedItems = *config.Output.NestedItems
	}

	settings := Settings{
		CatalogBaseURL: defaultCatalogBaseURL,
		CatalogTimeout: defaultCatalogTimeout,
		UserAgent:      defaultUserAgent,
		Aggregator:     aggregatorOptions,
		ShapeLimits:    shapeLimits,
		OutputFormat:   defaultOutputFormat,
	}
	if config.Catalog.BaseURL != "" {
		settings.CatalogBaseURL = config.Catalog.BaseURL
	}
	if config.Catalog.Timeout != nil && *config.Catalog.Timeout > 0 {
		settings.CatalogTimeout = *config.Catalog.Timeout
	}
	if config.Catalog.UserAgent != "" {
		settings.UserAgent = config.Catalog.UserAgent
	}
	if config.Output.Format != "" {
		settings.OutputFormat = config.Output.Format
	}
	if config.Output.Clipboard != nil {
		settings.ClipboardEnabled = *config.Output.Clipboard
	}
	return settings
}

func cloneBool(value *bool) *bool {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}

func cloneInt(value *int) *int {
	if value == nil {
		return nil
	}
	cloned := *value
	return &cloned
}
