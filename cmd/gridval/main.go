package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gridflow/gridval/pkg/logger"
	"github.com/gridflow/gridval/pkg/rules"
	"github.com/gridflow/gridval/pkg/types"
	"github.com/gridflow/gridval/pkg/validator"
)

var rootCmd = &cobra.Command{
	Use:   "gridval",
	Short: "Tabular data validation CLI",
	Long: `gridval validates tabular data (a JSON array of row objects) against a
rule manifest and prints every failing cell and row.`,
}

var (
	rowsPath  string
	rulesPath string
	verbose   bool
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a rows file against a rule manifest",
	Run: func(cmd *cobra.Command, args []string) {
		failures, err := runValidate(rowsPath, rulesPath, verbose)
		if err != nil {
			log.Fatalf("Failed to validate: %v", err)
		}
		if failures > 0 {
			os.Exit(1)
		}
	},
}

func init() {
	validateCmd.Flags().StringVar(&rowsPath, "rows", "", "path to the JSON rows file")
	validateCmd.Flags().StringVar(&rulesPath, "rules", "", "path to the JSON rule manifest")
	validateCmd.Flags().BoolVar(&verbose, "verbose", false, "enable structured logging")
	_ = validateCmd.MarkFlagRequired("rows")
	_ = validateCmd.MarkFlagRequired("rules")
	rootCmd.AddCommand(validateCmd)
}

// manifestRule is one entry of the rule manifest file
type manifestRule struct {
	Type      string          `json:"type"`
	Column    string          `json:"column"`
	Name      string          `json:"name"`
	Message   string          `json:"message"`
	Severity  string          `json:"severity"`
	Priority  int             `json:"priority"`
	TimeoutMs int             `json:"timeoutMs"`
	Pattern   string          `json:"pattern"`
	Min       float64         `json:"min"`
	Max       float64         `json:"max"`
	Values    []interface{}   `json:"values"`
	Schema    json.RawMessage `json:"schema"`
}

func runValidate(rowsPath, rulesPath string, verbose bool) (int, error) {
	opts := []validator.Option{}
	if verbose {
		zl, err := logger.NewProductionLogger()
		if err != nil {
			return 0, err
		}
		defer func() { _ = zl.Flush() }()
		opts = append(opts, validator.WithLogger(zl))
	}
	svc := validator.New(opts...)

	rows, err := loadRows(rowsPath)
	if err != nil {
		return 0, err
	}
	columns, err := loadManifest(svc, rulesPath)
	if err != nil {
		return 0, err
	}

	ctx := context.Background()
	failures := 0

	for i, row := range rows {
		for _, column := range columns {
			results, err := svc.ValidateCell(ctx, column, row[column], row)
			if err != nil {
				return failures, err
			}
			for _, r := range results {
				failures++
				fmt.Printf("row %d, column %s: [%s] %s\n", i, column, r.Severity, r.ErrorMessage)
			}
		}
	}

	results, err := svc.ValidateDataset(ctx, rows)
	if err != nil {
		return failures, err
	}
	for _, r := range results {
		failures++
		if r.RowIndex != types.NoRow {
			fmt.Printf("row %d: [%s] %s\n", r.RowIndex, r.Severity, r.ErrorMessage)
			continue
		}
		fmt.Printf("dataset: [%s] %s\n", r.Severity, r.ErrorMessage)
	}

	if failures == 0 {
		fmt.Println("all rules passed")
	} else {
		fmt.Printf("%d validation failure(s)\n", failures)
	}
	return failures, nil
}

// loadRows reads the JSON rows file
func loadRows(path string) ([]map[string]interface{}, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows file: %w", err)
	}
	var rows []map[string]interface{}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to parse rows file: %w", err)
	}
	return rows, nil
}

// loadManifest reads the rule manifest, registers every rule and returns the
// distinct columns that carry cell rules
func loadManifest(svc *validator.Service, path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule manifest: %w", err)
	}
	var manifest []manifestRule
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse rule manifest: %w", err)
	}

	seen := make(map[string]bool)
	var columns []string
	for i, m := range manifest {
		rule, err := buildRule(m)
		if err != nil {
			return nil, fmt.Errorf("manifest entry %d: %w", i, err)
		}
		if err := svc.Register(rule); err != nil {
			return nil, fmt.Errorf("manifest entry %d: %w", i, err)
		}
		if m.Column != "" && !seen[m.Column] {
			seen[m.Column] = true
			columns = append(columns, m.Column)
		}
	}
	return columns, nil
}

// buildRule maps a manifest entry to a rule via the prebuilt builders
func buildRule(m manifestRule) (rules.Rule, error) {
	opts := headerOpts(m)
	switch m.Type {
	case "required":
		return rules.Required(m.Column, opts...), nil
	case "regexp":
		return rules.Regexp(m.Column, m.Pattern, m.Message, opts...)
	case "range":
		return rules.Range(m.Column, m.Min, m.Max, m.Message, opts...), nil
	case "oneOf":
		return rules.OneOf(m.Column, m.Values, m.Message, opts...), nil
	case "schema":
		return rules.Schema(m.Column, m.Schema, m.Message, opts...)
	default:
		return rules.Rule{}, fmt.Errorf("unknown rule type %q", m.Type)
	}
}

// headerOpts maps the manifest's optional header fields to rule options
func headerOpts(m manifestRule) []rules.Option {
	var opts []rules.Option
	if m.Name != "" {
		opts = append(opts, rules.WithName(m.Name))
	}
	if m.Priority != 0 {
		opts = append(opts, rules.WithPriority(m.Priority))
	}
	if m.TimeoutMs != 0 {
		opts = append(opts, rules.WithTimeout(millis(m.TimeoutMs)))
	}
	if s, ok := parseSeverity(m.Severity); ok {
		opts = append(opts, rules.WithSeverity(s))
	}
	return opts
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

func parseSeverity(s string) (types.Severity, bool) {
	switch s {
	case "info":
		return types.SeverityInfo, true
	case "warning":
		return types.SeverityWarning, true
	case "error":
		return types.SeverityError, true
	case "critical":
		return types.SeverityCritical, true
	default:
		return 0, false
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
