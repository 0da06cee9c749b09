package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/reflux/internal/harness"
)

// FileValidation is the validation result of one scenario file.
type FileValidation struct {
	File   string   `json:"file"`
	Name   string   `json:"name,omitempty"`
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool             `json:"valid"`
	Files []FileValidation `json:"files"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <scenario-file-or-dir>...",
		Short: "Validate scenario files without running them",
		Long: `Validate scenario YAML files without running them.

Checks each file against the scenario schema, rejects unknown fields, and
resolves every action and store name against the demo application.
Directories are searched recursively for .yaml and .yml files.

Exit codes:
  0 - All files are valid
  1 - One or more files are invalid
  2 - Command error (path not found, etc.)`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	var files []string
	for _, p := range paths {
		found, err := scenarioFilesAt(p, "")
		if err != nil {
			return err
		}
		formatter.VerboseLog("Found %d scenario file(s) in %s", len(found), p)
		files = append(files, found...)
	}

	result := ValidationResult{Valid: true, Files: make([]FileValidation, 0, len(files))}
	for _, file := range files {
		fv := validateFile(file)
		if !fv.Valid {
			result.Valid = false
		}
		result.Files = append(result.Files, fv)
	}

	if opts.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: result}
		if !result.Valid {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeInvalid, Message: "validation failed"}
		}
		if err := writeJSON(cmd.OutOrStdout(), resp); err != nil {
			return err
		}
	} else {
		outputValidateText(cmd, result)
	}

	if !result.Valid {
		return NewExitError(ExitFailure, "validation failed")
	}
	return nil
}

func validateFile(file string) FileValidation {
	fv := FileValidation{File: file}
	scenario, err := harness.LoadScenario(file)
	if err != nil {
		var schemaErr *harness.SchemaError
		if errors.As(err, &schemaErr) {
			fv.Errors = schemaErr.Violations
		} else {
			fv.Errors = []string{err.Error()}
		}
		return fv
	}
	fv.Name = scenario.Name
	fv.Valid = true
	return fv
}

func outputValidateText(cmd *cobra.Command, result ValidationResult) {
	w := cmd.OutOrStdout()
	if len(result.Files) == 0 {
		fmt.Fprintln(w, "No scenarios found.")
		return
	}

	invalid := 0
	for _, fv := range result.Files {
		if fv.Valid {
			fmt.Fprintf(w, "✓ %s (%s)\n", fv.File, fv.Name)
			continue
		}
		invalid++
		fmt.Fprintf(w, "✗ %s\n", fv.File)
		for _, e := range fv.Errors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}

	fmt.Fprintln(w)
	if invalid == 0 {
		fmt.Fprintf(w, "✓ %d scenario file(s) valid\n", len(result.Files))
		return
	}
	fmt.Fprintf(w, "✗ %d of %d scenario file(s) invalid\n", invalid, len(result.Files))
}

// scenarioFilesAt returns path itself when it is a file, or the scenario
// files under it when it is a directory.
func scenarioFilesAt(path, filter string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewExitError(ExitCommandError, fmt.Sprintf("path not found: %s", path))
		}
		return nil, WrapExitError(ExitCommandError, "failed to stat path", err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	files, err := findScenarioFiles(path, filter)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}
	return files, nil
}
