package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/temirov/ebixref/internal/utils"
)

type configTestCase struct {
	name                string
	globalContent       string
	localContent        string
	explicitPath        string
	explicitContent     string
	expectBaseURL       string
	expectFormat        string
	expectReturnDomains *int
	expectPriority      []string
	expectClipboard     *bool
	expectTimeout       *time.Duration
}

func intPointer(value int) *int {
	pointer := value
	return &pointer
}

func boolPointer(value bool) *bool {
	pointer := value
	return &pointer
}

func durationPointer(value time.Duration) *time.Duration {
	pointer := value
	return &pointer
}

func TestLoadApplicationConfigurationMergesSources(t *testing.T) {
	testCases := []configTestCase{
		{
			name:                "local_overrides_global",
			globalContent:       "catalog:\n  base_url: https://global.example\n  timeout: 5s\noutput:\n  format: raw\n  clipboard: true\naggregate:\n  max_return_domains: 5\n",
			localContent:        "output:\n  format: json\n  clipboard: false\naggregate:\n  priority_domains: [pdbe, pdbe, go]\n",
			expectBaseURL:       "https://global.example",
			expectFormat:        "json",
			expectReturnDomains: intPointer(5),
			expectPriority:      []string{"pdbe", "go"},
			expectClipboard:     boolPointer(false),
			expectTimeout:       durationPointer(5 * time.Second),
		},
		{
			name:            "explicit_path_replaces_local",
			globalContent:   "output:\n  format: json\n",
			localContent:    "output:\n  format: json\n",
			explicitPath:    "custom.yaml",
			explicitContent: "output:\n  format: raw\n",
			expectFormat:    "raw",
		},
		{
			name:          "no_files",
			expectFormat:  "",
			expectBaseURL: "",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			homeDir := t.TempDir()
			workingDir := t.TempDir()
			configDir := filepath.Join(homeDir, utils.GlobalConfigDirectoryName)
			if err := os.MkdirAll(configDir, 0o755); err != nil {
				t.Fatalf("create config dir: %v", err)
			}
			if testCase.globalContent != "" {
				globalPath := filepath.Join(configDir, utils.ConfigFileName)
				if err := os.WriteFile(globalPath, []byte(testCase.globalContent), 0o600); err != nil {
					t.Fatalf("write global config: %v", err)
				}
			}
			if testCase.localContent != "" {
				localPath := filepath.Join(workingDir, utils.LocalConfigFileName)
				if err := os.WriteFile(localPath, []byte(testCase.localContent), 0o600); err != nil {
					t.Fatalf("write local config: %v", err)
				}
			}
			if testCase.explicitPath != "" {
				target := filepath.Join(workingDir, testCase.explicitPath)
				if err := os.WriteFile(target, []byte(testCase.explicitContent), 0o600); err != nil {
					t.Fatalf("write explicit config: %v", err)
				}
			}

			t.Setenv("HOME", homeDir)
			t.Setenv("USERPROFILE", homeDir)

			loadedConfig, err := LoadApplicationConfiguration(LoadOptions{
				WorkingDirectory: workingDir,
				ExplicitFilePath: testCase.explicitPath,
			})
			if err != nil {
				t.Fatalf("LoadApplicationConfiguration error: %v", err)
			}

			if loadedConfig.Output.Format != testCase.expectFormat {
				t.Fatalf("expected format %q, got %q", testCase.expectFormat, loadedConfig.Output.Format)
			}
			if loadedConfig.Catalog.BaseURL != testCase.expectBaseURL {
				t.Fatalf("expected base url %q, got %q", testCase.expectBaseURL, loadedConfig.Catalog.BaseURL)
			}
			if testCase.expectReturnDomains == nil {
				if loadedConfig.Aggregate.MaxReturnDomains != nil {
					t.Fatalf("expected no max_return_domains override")
				}
			} else if loadedConfig.Aggregate.MaxReturnDomains == nil || *loadedConfig.Aggregate.MaxReturnDomains != *testCase.expectReturnDomains {
				t.Fatalf("unexpected max_return_domains value")
			}
			if testCase.expectClipboard == nil {
				if loadedConfig.Output.Clipboard != nil {
					t.Fatalf("expected no clipboard override")
				}
			} else if loadedConfig.Output.Clipboard == nil || *loadedConfig.Output.Clipboard != *testCase.expectClipboard {
				t.Fatalf("unexpected clipboard value")
			}
			if testCase.expectTimeout == nil {
				if loadedConfig.Catalog.Timeout != nil {
					t.Fatalf("expected no timeout override")
				}
			} else if loadedConfig.Catalog.Timeout == nil || *loadedConfig.Catalog.Timeout != *testCase.expectTimeout {
				t.Fatalf("unexpected timeout value")
			}
			if len(loadedConfig.Aggregate.PriorityDomains) != len(testCase.expectPriority) {
				t.Fatalf("expected priority %v, got %v", testCase.expectPriority, loadedConfig.Aggregate.PriorityDomains)
			}
			for index, domain := range testCase.expectPriority {
				if loadedConfig.Aggregate.PriorityDomains[index] != domain {
					t.Fatalf("expected priority %v, got %v", testCase.expectPriority, loadedConfig.Aggregate.PriorityDomains)
				}
			}
		})
	}
}

func TestLoadApplicationConfigurationRejectsDirectory(t *testing.T) {
	homeDir := t.TempDir()
	t.Setenv("HOME", homeDir)
	t.Setenv("USERPROFILE", homeDir)
	workingDir := t.TempDir()
	if err := os.Mkdir(filepath.Join(workingDir, "configdir"), 0o755); err != nil {
		t.Fatalf("create directory: %v", err)
	}
	_, err := LoadApplicationConfiguration(LoadOptions{WorkingDirectory: workingDir, ExplicitFilePath: "configdir"})
	if err == nil {
		t.Fatalf("expected error for directory configuration path")
	}
}

func TestResolveAppliesDefaults(t *testing.T) {
	settings := ApplicationConfiguration{}.Resolve()
	if settings.CatalogBaseURL != defaultCatalogBaseURL {
		t.Fatalf("expected default base url, got %s", settings.CatalogBaseURL)
	}
	if settings.CatalogTimeout != defaultCatalogTimeout {
		t.Fatalf("expected default timeout, got %s", settings.CatalogTimeout)
	}
	if settings.OutputFormat != defaultOutputFormat {
		t.Fatalf("expected default format, got %s", settings.OutputFormat)
	}
	if settings.ClipboardEnabled {
		t.Fatalf("expected clipboard disabled by default")
	}
	if settings.Aggregator.MaxFetchDomains != 10 || settings.Aggregator.MaxReturnDomains != 3 || settings.Aggregator.MaxEntriesPerDomain != 3 {
		t.Fatalf("unexpected default budgets %+v", settings.Aggregator)
	}
	if settings.ShapeLimits.MaxDepth != utils.DefaultShapeMaxDepth {
		t.Fatalf("unexpected default shape depth %d", settings.ShapeLimits.MaxDepth)
	}
}

func TestResolveHonorsOverrides(t *testing.T) {
	configuration := ApplicationConfiguration{
		Catalog: CatalogConfiguration{BaseURL: "http://localhost:9000", Timeout: durationPointer(2 * time.Second), UserAgent: "ebixref-test"},
		Aggregate: AggregateConfiguration{
			MaxFetchDomains:     intPointer(6),
			MaxReturnDomains:    intPointer(2),
			MaxEntriesPerDomain: intPointer(1),
			FetchConcurrency:    intPointer(2),
			PriorityDomains:     []string{"go"},
		},
		Output: OutputConfiguration{Format: "raw", NestedItems: intPointer(4), Clipboard: boolPointer(true)},
	}
	settings := configuration.Resolve()
	if settings.CatalogBaseURL != "http://localhost:9000" || settings.CatalogTimeout != 2*time.Second || settings.UserAgent != "ebixref-test" {
		t.Fatalf("unexpected catalog settings %+v", settings)
	}
	if settings.Aggregator.MaxFetchDomains != 6 || settings.Aggregator.MaxReturnDomains != 2 ||
		settings.Aggregator.MaxEntriesPerDomain != 1 || settings.Aggregator.FetchConcurrency != 2 {
		t.Fatalf("unexpected budgets %+v", settings.Aggregator)
	}
	if len(settings.Aggregator.PriorityDomains) != 1 || settings.Aggregator.PriorityDomains[0] != "go" {
		t.Fatalf("unexpected priority %v", settings.Aggregator.PriorityDomains)
	}
	if settings.OutputFormat != "raw" || !settings.ClipboardEnabled || settings.ShapeLimits.NestedItems != 4 {
		t.Fatalf("unexpected output settings %+v", settings)
	}
}
