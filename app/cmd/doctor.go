package cmd

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/assix/software-engineer-ai-agent/llm"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Probe the model backend, interpreter, and installer",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := globalCfg
			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			client := llm.NewClient(cfg.Model.Endpoint, cfg.Model.Name)
			if err := client.Ping(ctx); err != nil {
				cmd.Printf("backend     %s: UNREACHABLE (%v)\n", cfg.Model.Endpoint, err)
			} else {
				cmd.Printf("backend     %s: ok\n", cfg.Model.Endpoint)
				if models, err := client.Models(ctx); err == nil {
					if containsModel(models, cfg.Model.Name) {
						cmd.Printf("model       %s: installed\n", cfg.Model.Name)
					} else {
						cmd.Printf("model       %s: NOT INSTALLED (run: ollama pull %s)\n", cfg.Model.Name, cfg.Model.Name)
					}
				}
			}

			if path, err := exec.LookPath(cfg.Interpreter); err != nil {
				cmd.Printf("interpreter %s: NOT FOUND\n", cfg.Interpreter)
			} else {
				cmd.Printf("interpreter %s: %s\n", cfg.Interpreter, path)
			}

			pip := exec.CommandContext(ctx, cfg.Interpreter, "-m", "pip", "--version")
			if out, err := pip.Output(); err != nil {
				cmd.Println("installer   pip: NOT AVAILABLE (healing disabled)")
			} else {
				cmd.Printf("installer   %s\n", strings.TrimSpace(string(out)))
			}
			return nil
		},
	}
}

func containsModel(models []string, name string) bool {
	for _, m := range models {
		if m == name || strings.TrimSuffix(m, ":latest") == name {
			return true
		}
	}
	return false
}
