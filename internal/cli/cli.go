// Package cli provides the command line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/ebixref/internal/config"
	"github.com/temirov/ebixref/internal/ebisearch"
	"github.com/temirov/ebixref/internal/services/clipboard"
	"github.com/temirov/ebixref/internal/services/mcp"
	"github.com/temirov/ebixref/internal/tools"
	"github.com/temirov/ebixref/internal/utils"
	"github.com/temirov/ebixref/internal/xref"
)

const (
	configFlagName   = "config"
	logLevelFlagName = "log-level"
	formatFlagName   = "format"
	copyFlagName     = "copy"
	addressFlagName  = "address"
	globalFlagName   = "global"
	forceFlagName    = "force"

	versionTemplate      = "ebixref version: {{.Version}}\n"
	rootUse              = "ebixref"
	rootShortDescription = "EBI Search cross-reference resolver"
	rootLongDescription  = `ebixref resolves cross-references between EBI Search domains.
It lists the domains a source domain links to, resolves entries into one target domain,
and summarizes an entry across every linked domain.
Use --format to select json or raw output and --copy to place the output on the clipboard.`

	domainsUse               = "domains <domain>"
	targetedUse              = "targeted <domain> <targetDomain> <entryId>..."
	allUse                   = "all <domain> <entryId>"
	mcpUse                   = "mcp"
	initUse                  = "init"
	domainsAlias             = "d"
	targetedAlias            = "t"
	allAlias                 = "a"
	domainsShortDescription  = "list target domains of a source domain (" + domainsAlias + ")"
	targetedShortDescription = "resolve entries into one target domain (" + targetedAlias + ")"
	allShortDescription      = "summarize an entry across every target domain (" + allAlias + ")"
	mcpShortDescription      = "serve the cross-reference tools over HTTP"
	initShortDescription     = "write a default configuration file"

	domainsUsageExample = `  # List the domains uniprot entries link to
  ebixref domains uniprot`
	targetedUsageExample = `  # Resolve two UniProt accessions into PDBe
  ebixref targeted uniprot pdbe P69905 P68871`
	allUsageExample = `  # Summarize an accession across its linked domains as text
  ebixref all uniprot P69905 --format raw`

	configFlagDescription   = "path to a configuration file (defaults to ./" + utils.LocalConfigFileName + ")"
	logLevelFlagDescription = "log level (debug, info, warn, error)"
	formatFlagDescription   = "output format (json or raw)"
	copyFlagDescription     = "copy output to the clipboard"
	addressFlagDescription  = "listen address for the command server"
	globalFlagDescription   = "write the configuration under the home directory"
	forceFlagDescription    = "overwrite an existing configuration file"

	defaultServerAddress           = "127.0.0.1:8765"
	invalidFormatMessage           = "invalid format value '%s'"
	clipboardServiceMissingMessage = "clipboard service is not configured"
	configurationWrittenFormat     = "configuration written to %s\n"
)

const (
	formatJSON = "json"
	formatRaw  = "raw"
)

// Dependencies are the process-level collaborators of the command tree.
type Dependencies struct {
	HTTPClient *http.Client
	Clipboard  clipboard.Copier
}

// Execute runs the ebixref application.
func Execute() error {
	rootCommand := createRootCommand(Dependencies{Clipboard: clipboard.NewService()})
	return rootCommand.Execute()
}

type rootOptions struct {
	configPath string
	logLevel   string
	format     string
	copyOutput bool
}

// application carries the services built from configuration for one process.
type application struct {
	settings  config.Settings
	logger    *zap.Logger
	toolset   *tools.Toolset
	clipboard clipboard.Copier
}

// createRootCommand builds the root Cobra command.
func createRootCommand(dependencies Dependencies) *cobra.Command {
	options := &rootOptions{}
	var current *application

	rootCommand := &cobra.Command{
		Use:          rootUse,
		Short:        rootShortDescription,
		Long:         rootLongDescription,
		Version:      utils.GetApplicationVersion(),
		SilenceUsage: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
	}
	rootCommand.SetVersionTemplate(versionTemplate)

	persistentFlags := rootCommand.PersistentFlags()
	persistentFlags.StringVar(&options.configPath, configFlagName, "", configFlagDescription)
	persistentFlags.StringVar(&options.logLevel, logLevelFlagName, utils.DefaultLogLevel, logLevelFlagDescription)
	persistentFlags.StringVar(&options.format, formatFlagName, formatJSON, formatFlagDescription)
	registerCopyFlag(persistentFlags, &options.copyOutput)

	loadApplication := func(command *cobra.Command) (*application, error) {
		if current != nil {
			return current, nil
		}
		built, err := buildApplication(command, options, dependencies)
		if err != nil {
			return nil, err
		}
		current = built
		return current, nil
	}

	rootCommand.AddCommand(
		createDomainsCommand(loadApplication),
		createTargetedCommand(loadApplication),
		createAllCommand(loadApplication),
		createMCPCommand(loadApplication),
		createInitCommand(),
	)
	rootCommand.InitDefaultHelpCmd()
	rootCommand.InitDefaultCompletionCmd()
	return rootCommand
}

type applicationLoader func(command *cobra.Command) (*application, error)

// buildApplication loads configuration, applies flag overrides and wires the services.
func buildApplication(command *cobra.Command, options *rootOptions, dependencies Dependencies) (*application, error) {
	loadedConfiguration, loadErr := config.LoadApplicationConfiguration(config.LoadOptions{ExplicitFilePath: options.configPath})
	if loadErr != nil {
		return nil, loadErr
	}
	settings := loadedConfiguration.Resolve()
	if flag := command.Flags().Lookup(formatFlagName); flag != nil && flag.Changed {
		settings.OutputFormat = options.format
	}
	settings.OutputFormat = strings.ToLower(strings.TrimSpace(settings.OutputFormat))
	if settings.OutputFormat != formatJSON && settings.OutputFormat != formatRaw {
		return nil, fmt.Errorf(invalidFormatMessage, settings.OutputFormat)
	}
	if flag := command.Flags().Lookup(copyFlagName); flag != nil && flag.Changed {
		settings.ClipboardEnabled = options.copyOutput
	}

	logger, loggerErr := utils.NewApplicationLogger(options.logLevel)
	if loggerErr != nil {
		return nil, loggerErr
	}

	httpClient := dependencies.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	catalog := ebisearch.NewClient(httpClient).
		WithAPIBase(settings.CatalogBaseURL).
		WithUserAgent(settings.UserAgent).
		WithTimeout(settings.CatalogTimeout)
	discovery := xref.NewDiscoveryService(catalog, xref.NewDiscoveryCache(), logger)
	toolset := tools.NewToolset(tools.Dependencies{
		Discovery:   discovery,
		Resolver:    xref.NewResolver(catalog, discovery),
		Aggregator:  xref.NewAggregator(catalog, discovery, settings.Aggregator, logger),
		ShapeLimits: settings.ShapeLimits,
		Logger:      logger,
	})
	logger.Debug("configuration resolved",
		zap.String("catalog", settings.CatalogBaseURL),
		zap.Duration("timeout", settings.CatalogTimeout),
		zap.String("format", settings.OutputFormat),
	)
	return &application{
		settings:  settings,
		logger:    logger,
		toolset:   toolset,
		clipboard: dependencies.Clipboard,
	}, nil
}

// createDomainsCommand returns the domains subcommand.
func createDomainsCommand(load applicationLoader) *cobra.Command {
	return &cobra.Command{
		Use:     domainsUse,
		Aliases: []string{domainsAlias},
		Short:   domainsShortDescription,
		Example: domainsUsageExample,
		Args:    cobra.ExactArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			app, err := load(command)
			if err != nil {
				return err
			}
			result := app.toolset.Discover(command.Context(), arguments[0])
			return app.emit(command.OutOrStdout(), tools.ToolDomain, result)
		},
	}
}

// createTargetedCommand returns the targeted subcommand.
func createTargetedCommand(load applicationLoader) *cobra.Command {
	return &cobra.Command{
		Use:     targetedUse,
		Aliases: []string{targetedAlias},
		Short:   targetedShortDescription,
		Example: targetedUsageExample,
		Args:    cobra.MinimumNArgs(3),
		RunE: func(command *cobra.Command, arguments []string) error {
			app, err := load(command)
			if err != nil {
				return err
			}
			result := app.toolset.ResolveTargeted(command.Context(), arguments[0], arguments[2:], arguments[1])
			return app.emit(command.OutOrStdout(), tools.ToolTargeted, result)
		},
	}
}

// createAllCommand returns the all subcommand.
func createAllCommand(load applicationLoader) *cobra.Command {
	return &cobra.Command{
		Use:     allUse,
		Aliases: []string{allAlias},
		Short:   allShortDescription,
		Example: allUsageExample,
		Args:    cobra.ExactArgs(2),
		RunE: func(command *cobra.Command, arguments []string) error {
			app, err := load(command)
			if err != nil {
				return err
			}
			result := app.toolset.AggregateAll(command.Context(), arguments[0], arguments[1])
			return app.emit(command.OutOrStdout(), tools.ToolAll, result)
		},
	}
}

// createMCPCommand returns the command server subcommand.
func createMCPCommand(load applicationLoader) *cobra.Command {
	var address string
	mcpCommand := &cobra.Command{
		Use:   mcpUse,
		Short: mcpShortDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			app, err := load(command)
			if err != nil {
				return err
			}
			parent := command.Context()
			if parent == nil {
				parent = context.Background()
			}
			ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
			defer stop()
			server := mcp.NewServer(mcp.Config{Address: address, Tools: app.toolset, Logger: app.logger})
			return server.Run(ctx, func(boundAddress string) {
				fmt.Fprintln(command.ErrOrStderr(), boundAddress)
			})
		},
	}
	mcpCommand.Flags().StringVar(&address, addressFlagName, defaultServerAddress, addressFlagDescription)
	return mcpCommand
}

// createInitCommand returns the configuration bootstrap subcommand.
func createInitCommand() *cobra.Command {
	var global bool
	var force bool
	initCommand := &cobra.Command{
		Use:   initUse,
		Short: initShortDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			target := config.InitTargetLocal
			if global {
				target = config.InitTargetGlobal
			}
			path, err := config.InitializeConfiguration(config.InitOptions{Target: target, Force: force})
			if err != nil {
				return err
			}
			_, writeErr := fmt.Fprintf(command.OutOrStdout(), configurationWrittenFormat, path)
			return writeErr
		},
	}
	initCommand.Flags().BoolVar(&global, globalFlagName, false, globalFlagDescription)
	initCommand.Flags().BoolVar(&force, forceFlagName, false, forceFlagDescription)
	return initCommand
}

// ToolFailureError reports a failed tool call to the shell.
type ToolFailureError struct {
	Failure tools.Failure
}

func (failureError *ToolFailureError) Error() string {
	return fmt.Sprintf("%s: %s", failureError.Failure.Kind, failureError.Failure.Message)
}

// emit writes a tool result in the configured format and copies it when requested.
func (app *application) emit(writer io.Writer, toolName string, result tools.Result) error {
	if result.IsError {
		failure := tools.Failure{Kind: tools.FailureInternal, Message: result.Text}
		if result.Failure != nil {
			failure = *result.Failure
		}
		return &ToolFailureError{Failure: failure}
	}
	rendered := result.Text
	if app.settings.OutputFormat == formatRaw {
		raw, renderErr := renderRaw(toolName, result.Text)
		if renderErr != nil {
			return renderErr
		}
		rendered = raw
	}
	if _, writeErr := io.WriteString(writer, rendered); writeErr != nil {
		return writeErr
	}
	if !app.settings.ClipboardEnabled {
		return nil
	}
	if app.clipboard == nil {
		return errors.New(clipboardServiceMissingMessage)
	}
	return app.clipboard.Copy(rendered)
}
