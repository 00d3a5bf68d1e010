package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mocktape/mocktape/pkg/engine"
	"github.com/mocktape/mocktape/pkg/flow"
	"github.com/mocktape/mocktape/pkg/logging"
	"github.com/mocktape/mocktape/pkg/validation"
)

// flowFile is the YAML layout of a runnable flow definition.
type flowFile struct {
	Name    string `yaml:"name"`
	Options struct {
		ResetBetweenSteps bool   `yaml:"resetBetweenSteps"`
		ContinueOnFailure bool   `yaml:"continueOnFailure"`
		Timeout           string `yaml:"timeout"`
	} `yaml:"options"`
	Context map[string]any `yaml:"context"`
	Steps   []struct {
		Name    string            `yaml:"name"`
		Method  string            `yaml:"method"`
		Path    string            `yaml:"path"`
		Headers map[string]string `yaml:"headers"`
		Body    any               `yaml:"body"`
		Expect  *struct {
			Status   int               `yaml:"status"`
			Headers  map[string]string `yaml:"headers"`
			NonEmpty []string          `yaml:"nonEmpty"`
		} `yaml:"expect"`
	} `yaml:"steps"`
}

func newFlowCmd() *cobra.Command {
	var mocksPath string
	var logLevel string

	cmd := &cobra.Command{
		Use:   "flow",
		Short: "Run multi-step request flows",
	}

	run := &cobra.Command{
		Use:   "run <flow.yaml>",
		Short: "Execute a flow definition against loaded mocks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, initial, err := loadFlowFile(args[0])
			if err != nil {
				return err
			}

			log := logging.New(logging.Config{
				Level:  logging.ParseLevel(logLevel),
				Output: cmd.ErrOrStderr(),
			})

			eng, err := engine.New(engine.Config{Logger: log})
			if err != nil {
				return err
			}
			if mocksPath != "" {
				n, err := eng.LoadMocks(mocksPath)
				if err != nil {
					return err
				}
				log.Debug("mocks loaded", "count", n)
			}

			if err := eng.Flows().Register(def); err != nil {
				return err
			}
			result, err := eng.Flows().Execute(cmd.Context(), def.Name, initial)
			if err != nil {
				return err
			}

			printResult(cmd, result)
			if !result.Success {
				return fmt.Errorf("flow %q failed", def.Name)
			}
			return nil
		},
	}
	run.Flags().StringVarP(&mocksPath, "mocks", "m", "", "YAML mock file to load before running")
	run.Flags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")

	cmd.AddCommand(run)
	return cmd
}

func loadFlowFile(path string) (*flow.Definition, map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read flow file %s: %w", path, err)
	}
	var file flowFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, nil, fmt.Errorf("failed to parse flow file %s: %w", path, err)
	}

	def := &flow.Definition{
		Name: file.Name,
		Options: flow.Options{
			ResetBetweenSteps: file.Options.ResetBetweenSteps,
			ContinueOnFailure: file.Options.ContinueOnFailure,
		},
	}
	if file.Options.Timeout != "" {
		timeout, err := time.ParseDuration(file.Options.Timeout)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid timeout %q: %w", file.Options.Timeout, err)
		}
		def.Options.Timeout = timeout
	}

	for _, s := range file.Steps {
		step := flow.Step{
			Name:    s.Name,
			Method:  s.Method,
			Path:    s.Path,
			Headers: s.Headers,
			Body:    s.Body,
		}
		if s.Expect != nil {
			step.ExpectedShape = &validation.Shape{
				Status:   s.Expect.Status,
				Headers:  s.Expect.Headers,
				NonEmpty: s.Expect.NonEmpty,
			}
		}
		def.Steps = append(def.Steps, step)
	}
	return def, file.Context, nil
}

func printResult(cmd *cobra.Command, result *flow.Result) {
	out := cmd.OutOrStdout()
	for _, sr := range result.Steps {
		status := "ok"
		if !sr.Success {
			status = "FAIL"
		}
		fmt.Fprintf(out, "%-4s %-6s %-40s %s\n", status, sr.Request.Method, sr.Request.URL, sr.Duration)
		if sr.Err != nil {
			fmt.Fprintf(out, "     %v\n", sr.Err)
		}
	}
	fmt.Fprintf(out, "\n%d/%d steps succeeded in %s\n", countSuccesses(result), len(result.Steps), result.Duration)
}

func countSuccesses(result *flow.Result) int {
	n := 0
	for _, sr := range result.Steps {
		if sr.Success {
			n++
		}
	}
	return n
}
