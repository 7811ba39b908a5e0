package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/hitbench/packages/core/config"
)

var (
	forceInit bool
	initDir   string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new hitbench project",
	Long: `Initialize a new hitbench project in the current directory.

This creates:
  - hitbench.config.json       - Configuration file
  - suites.yaml                - Example suite file
  - resources/todo/index.yaml  - Fixture document used by the example suite

Examples:
  hitbench init
  hitbench init --dir bench --force`,
	Args: cobra.NoArgs,
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite existing files")
	initCmd.Flags().StringVar(&initDir, "dir", ".", "Directory to initialize")
}

const exampleSuites = `# Suites run in order. Each loads its fixture, runs prepare once and then
# every test. ${i} in a repeated test is replaced with the repeat index.
resourceBase: resources/
suites:
  - name: TodoMVC
    url: todo/index.yaml
    prepare:
      - waitFor: "#ready"
    tests:
      - name: Adding20Items
        repeat: 20
        steps:
          - type: { selector: "#new-todo", text: "Something to do ${i}" }
      - name: CompletingAllItems
        steps:
          - clickAll: ".toggle"
      - name: DeletingAllItems
        steps:
          - clickId: clear-completed
  - name: TodoMVC-Focus
    url: todo/index.yaml
    disabled: true
    tests:
      - name: FocusInput
        steps:
          - focusId: new-todo
`

const exampleFixture = `title: todo
body:
  - tag: section
    id: app
    children:
      - tag: input
        id: new-todo
        onEnter:
          append:
            tag: li
            class: todo
            text: "${value}"
            children:
              - tag: input
                class: toggle
                onClick: { toggleClass: completed }
          to: "#todo-list"
          clearValue: true
      - tag: ul
        id: todo-list
      - tag: button
        id: clear-completed
        onClick: { remove: "#todo-list li" }
  - tag: div
    id: ready
    appearAfter: 30ms
`

func initCommand(cmd *cobra.Command, args []string) error {
	configFile := filepath.Join(initDir, "hitbench.config.json")
	suitesFile := filepath.Join(initDir, "suites.yaml")
	fixtureFile := filepath.Join(initDir, "resources", "todo", "index.yaml")

	if !forceInit {
		for _, f := range []string{configFile, suitesFile, fixtureFile} {
			if _, err := os.Stat(f); err == nil {
				return fmt.Errorf("file already exists: %s (use --force to overwrite)", f)
			}
		}
	}

	if err := os.MkdirAll(filepath.Dir(fixtureFile), 0755); err != nil {
		return fmt.Errorf("failed to create resources directory: %w", err)
	}

	cfg := config.DefaultConfig()
	cfg.Iterations = 3
	if err := cfg.SaveConfig(configFile); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", configFile)

	if err := os.WriteFile(suitesFile, []byte(exampleSuites), 0644); err != nil {
		return fmt.Errorf("failed to create suite file: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", suitesFile)

	if err := os.WriteFile(fixtureFile, []byte(exampleFixture), 0644); err != nil {
		return fmt.Errorf("failed to create fixture document: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created: %s\n", fixtureFile)

	fmt.Fprintf(cmd.OutOrStdout(), "\nRun the example with:\n  hitbench run %s\n", suitesFile)
	return nil
}
