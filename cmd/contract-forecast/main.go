package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/iwvelando/contract-forecast/internal/config"
	"github.com/iwvelando/contract-forecast/internal/forecast"
	"github.com/iwvelando/contract-forecast/internal/snapshot"
	"github.com/iwvelando/contract-forecast/pkg/constants"
	"github.com/iwvelando/contract-forecast/pkg/output"
	"github.com/iwvelando/contract-forecast/pkg/validation"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// Process command line flags first to get config location
	configLocation := flag.String("config", constants.DefaultConfigFile, "path to configuration file")
	projectID := flag.String("project", "", "project to forecast")
	includePendingFlag := flag.String("include-pending", "", "include unposted change orders override: true, false")
	verifyFlag := flag.Bool("verify", false, "re-derive the forecast and print the verification checks")
	alternateFlag := flag.Bool("alternate-cost-forecast", false, "report I as A + F instead of C + G + H")
	outputFormatFlag := flag.String("output-format", "", "type of output override: pretty, csv, json, xlsx")
	outputFileFlag := flag.String("output-file", "", "write output to this file instead of stdout")
	snapshotFlag := flag.String("snapshot", "", "snapshot YAML file or directory override")
	importFlag := flag.String("import", "", "save a snapshot YAML file into the configured database")
	evaluationOrder := flag.Bool("evaluation-order", false, "print the column evaluation order and exit")
	logLevel := flag.String("log-level", "", "log level override (debug, info, warn, error)")
	flag.Parse()

	if *evaluationOrder {
		for i, step := range forecast.EvaluationOrder() {
			fmt.Printf("%2d. %s\n", i+1, step)
		}
		return
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load .env\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}

	// A missing default config file falls back to defaults and environment.
	configPath := *configLocation
	if configPath == constants.DefaultConfigFile {
		if _, err := os.Stat(configPath); errors.Is(err, fs.ErrNotExist) {
			configPath = ""
		}
	}

	conf, err := config.LoadConfiguration(configPath)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to load configuration at %s\", \"error\": \"%v\"}\n", *configLocation, err)
		os.Exit(1)
	}

	logger, err := config.InitializeLogger(conf.Logging, *logLevel)
	if err != nil {
		fmt.Printf("{\"op\": \"main\", \"level\": \"fatal\", \"msg\": \"failed to initialize logger\", \"error\": \"%v\"}\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// CLI overrides take precedence over config
	if *outputFormatFlag != "" {
		conf.Output.Format = *outputFormatFlag
	}
	if *outputFileFlag != "" {
		conf.Output.File = *outputFileFlag
	}
	if *snapshotFlag != "" {
		conf.Snapshot.Path = *snapshotFlag
	}
	if *includePendingFlag != "" {
		include, err := strconv.ParseBool(*includePendingFlag)
		if err != nil {
			logger.Fatal("invalid -include-pending value",
				zap.String("op", "main"),
				zap.String("value", *includePendingFlag),
			)
		}
		conf.Forecast.IncludePending = include
	}
	if *verifyFlag {
		conf.Forecast.Verify = true
	}
	if *alternateFlag {
		conf.Forecast.AlternateCostForecast = true
	}
	if conf.Output.Format == "" {
		conf.Output.Format = constants.OutputFormatPretty
	}

	err = validation.ValidateOutputFormat(conf.Output.Format)
	if err != nil {
		logger.Fatal(err.Error(),
			zap.String("op", "main"),
		)
	}

	// Validate configuration and display any warnings
	warnings := conf.ValidateConfiguration()
	for _, warning := range warnings {
		logger.Warn("Configuration warning: "+warning,
			zap.String("op", "main"),
		)
	}

	ctx := context.Background()

	if *importFlag != "" {
		if err := importSnapshot(ctx, logger, conf, *importFlag); err != nil {
			logger.Fatal("failed to import snapshot",
				zap.String("op", "main"),
				zap.String("path", *importFlag),
				zap.Error(err),
			)
		}
		if *projectID == "" {
			return
		}
	}

	if *projectID == "" {
		logger.Fatal("a project is required",
			zap.String("op", "main"),
		)
	}

	src, err := config.OpenSource(ctx, logger, conf.Snapshot.Path, conf.Database)
	if err != nil {
		logger.Fatal("failed to open project source",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}
	defer func() {
		_ = src.Close()
	}()

	service := forecast.NewService(src.Loader, logger, conf.Forecast.Options())

	var (
		result *forecast.Result
		v      *forecast.Verification
	)
	if conf.Forecast.Verify {
		v, err = service.Verify(ctx, *projectID, conf.Forecast.IncludePending)
		if v != nil {
			result = v.Result
		}
	} else {
		result, err = service.Forecast(ctx, *projectID, conf.Forecast.IncludePending)
	}
	if err != nil {
		logger.Fatal("failed to compute forecast",
			zap.String("op", "main"),
			zap.String("project", *projectID),
			zap.Error(err),
		)
	}

	if err := writeOutput(conf.Output.Format, conf.Output.File, result, v); err != nil {
		logger.Fatal("failed to write forecast",
			zap.String("op", "main"),
			zap.Error(err),
		)
	}

	if v != nil && !v.AllPassed() {
		_ = logger.Sync()
		os.Exit(2)
	}
}

// importSnapshot saves a snapshot file into the configured database, creating
// the schema first.
func importSnapshot(ctx context.Context, logger *zap.Logger, conf *config.Configuration, path string) error {
	snap, err := snapshot.ReadFile(path)
	if err != nil {
		return err
	}

	db := conf.Database
	db.Migrate = true
	src, err := config.OpenSource(ctx, logger, "", db)
	if err != nil {
		return err
	}
	defer func() {
		_ = src.Close()
	}()
	return src.Store.Save(ctx, snap)
}

func writeOutput(outputFormat, file string, result *forecast.Result, v *forecast.Verification) error {
	var w io.Writer = os.Stdout
	if file != "" {
		if dir := filepath.Dir(file); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create output directory %s: %w", dir, err)
			}
		}
		f, err := os.Create(file)
		if err != nil {
			return fmt.Errorf("failed to create output file %s: %w", file, err)
		}
		defer func() {
			_ = f.Close()
		}()
		w = f
	}
	return output.Write(w, outputFormat, result, v)
}
