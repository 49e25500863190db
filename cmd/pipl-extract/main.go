package main

import (
	"fmt"
	"os"
	"runtime/debug"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/aetools/aepipl/internal/bundle"
	"github.com/aetools/aepipl/internal/detect"
	"github.com/aetools/aepipl/pkg/logging"
	"github.com/aetools/aepipl/pkg/pipl"
)

const version = "0.1.0"

var (
	forcedType  string
	outputPath  string
	infoFlag    bool
	configFlag  bool
	logLevel    string
	versionFlag bool
	rootCmd     *cobra.Command
)

func getBuildTimestamp() string {
	// Try to get vcs.time from build info
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range info.Settings {
			if setting.Key == "vcs.time" {
				if t, err := time.Parse(time.RFC3339, setting.Value); err == nil {
					return t.UTC().Format(time.RFC3339)
				}
			}
		}
	}
	// Fallback to binary modification time
	if exePath, err := os.Executable(); err == nil {
		if stat, err := os.Stat(exePath); err == nil {
			return stat.ModTime().UTC().Format(time.RFC3339)
		}
	}
	return time.Now().UTC().Format(time.RFC3339)
}

func init() {
	rootCmd = &cobra.Command{
		Use:   "pipl-extract <input>",
		Short: "Extract PIPL resources from After Effects plugins",
		Long: `Extract PIPL resources from compiled After Effects plugins
(.rsrc resource forks, .aex PE binaries, .plugin bundles) or resource
scripts, and regenerate the .r resource source.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runExtract,
	}

	rootCmd.Flags().StringVarP(&forcedType, "type", "t", "", "Force container type (rsrc, aex, r)")
	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output path for the generated .r file (default stdout)")
	rootCmd.Flags().BoolVar(&infoFlag, "info", false, "Show plugin information instead of generating a script")
	rootCmd.Flags().BoolVar(&configFlag, "config", false, "Show Config.h style defines instead of generating a script")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "", "Log level (trace, debug, info, warn, error)")
	rootCmd.Flags().BoolVarP(&versionFlag, "version", "V", false, "Show version information")

	rootCmd.SilenceUsage = true
}

func main() {
	// Handle --version or -V before cobra parses other flags
	if len(os.Args) > 1 && (os.Args[1] == "--version" || os.Args[1] == "-V") {
		fmt.Printf("pipl-extract %s\n", version)
		fmt.Printf("Built: %s\n", getBuildTimestamp())
		os.Exit(0)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() hclog.Logger {
	level := logLevel
	if level == "" {
		level = logging.GetLogLevel()
	}
	return logging.NewLogger("pipl-extract", level, os.Stderr)
}

func runExtract(cmd *cobra.Command, args []string) error {
	if versionFlag {
		fmt.Printf("pipl-extract %s\n", version)
		fmt.Printf("Built: %s\n", getBuildTimestamp())
		return nil
	}
	if len(args) != 1 {
		return fmt.Errorf("exactly one input file is required")
	}

	logger := newLogger()
	inputPath := args[0]

	// A .plugin bundle directory is resolved to its inner .rsrc file first.
	if bundle.IsBundle(inputPath) {
		resolved, err := bundle.FindResourceFile(inputPath, logger)
		if err != nil {
			return fmt.Errorf("resolving plugin bundle %s: %w", inputPath, err)
		}
		logger.Info("resolved plugin bundle", "bundle", inputPath, "resource", resolved)
		inputPath = resolved
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	ct, err := resolveContainer(inputPath, data, logger)
	if err != nil {
		return err
	}

	docs, err := pipl.Extract(data, ct, logger)
	if err != nil {
		return fmt.Errorf("extracting from %s container: %w", ct, err)
	}
	if len(docs) == 0 {
		logger.Warn("no PIPL resources found", "path", inputPath)
	}

	switch {
	case infoFlag:
		return printInfo(docs)
	case configFlag:
		return printConfig(docs)
	default:
		return writeScript(docs, logger)
	}
}

func resolveContainer(path string, data []byte, logger hclog.Logger) (pipl.ContainerType, error) {
	switch forcedType {
	case "":
		return detect.Detect(path, data, logger)
	case "rsrc":
		return pipl.ContainerResourceFork, nil
	case "aex":
		return pipl.ContainerPE, nil
	case "r", "rcp":
		return pipl.ContainerScript, nil
	default:
		return 0, fmt.Errorf("unknown container type %q (want rsrc, aex, or r)", forcedType)
	}
}

func writeScript(docs []pipl.Document, logger hclog.Logger) error {
	gen := pipl.NewGenerator(logger)
	script, err := gen.Generate(docs)
	if err != nil {
		return fmt.Errorf("generating resource script: %w", err)
	}
	if outputPath == "" {
		fmt.Print(script)
		return nil
	}
	if err := os.WriteFile(outputPath, []byte(script), 0o644); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}
	logger.Info("wrote resource script", "path", outputPath, "documents", len(docs))
	return nil
}

func printInfo(docs []pipl.Document) error {
	for _, doc := range docs {
		s := pipl.Summarize(doc)
		fmt.Printf("PiPL resource %d", doc.ID)
		if doc.Name != "" {
			fmt.Printf(" %q", doc.Name)
		}
		fmt.Println()
		fmt.Printf("  Name:       %s\n", s.Name)
		fmt.Printf("  Category:   %s\n", s.Category)
		fmt.Printf("  Match name: %s\n", s.MatchName)
		fmt.Printf("  Version:    %s\n", s.Version)
		for _, field := range []string{"CodeWin64X86", "CodeMacIntel64", "CodeMacARM64"} {
			if symbol, ok := s.EntryPoints[field]; ok {
				fmt.Printf("  %s: %s\n", field, symbol)
			}
		}
		fmt.Printf("  Properties: %d\n", len(doc.Properties))
	}
	return nil
}

func printConfig(docs []pipl.Document) error {
	for i, doc := range docs {
		if i > 0 {
			fmt.Println()
		}
		fmt.Print(pipl.Summarize(doc).RenderConfig())
	}
	return nil
}
