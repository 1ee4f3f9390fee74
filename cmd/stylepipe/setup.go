package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gnana997/stylepipe/pkg/config"
)

const serverKey = "stylepipe"

// editorDef describes where one editor keeps its project MCP server list.
type editorDef struct {
	ID          string
	DisplayName string
	Marker      string            // directory whose presence means the editor is in use
	ConfigPath  string            // project-relative config file
	ServersKey  string            // "servers" or "mcpServers"
	ExtraFields map[string]string // merged into the server entry
}

// detectedEditor is an editor found in the project directory.
type detectedEditor struct {
	Def          editorDef
	Config       string
	AlreadySetup bool
}

// editorRegistry lists supported editors in display order. The generic
// .mcp.json entry has no marker and is always offered.
var editorRegistry = []editorDef{
	{
		ID: "vscode", DisplayName: "VS Code",
		Marker: ".vscode", ConfigPath: filepath.Join(".vscode", "mcp.json"),
		ServersKey: "servers", ExtraFields: map[string]string{"type": "stdio"},
	},
	{
		ID: "cursor", DisplayName: "Cursor",
		Marker: ".cursor", ConfigPath: filepath.Join(".cursor", "mcp.json"),
		ServersKey: "mcpServers",
	},
	{
		ID: "project", DisplayName: "Project .mcp.json",
		ConfigPath: ".mcp.json", ServersKey: "mcpServers",
	},
}

// Replaceable for testing.
var statFunc = os.Stat

// SetupCmd implements the 'setup' command.
type SetupCmd struct {
	Auto bool   `help:"Configure every detected editor without prompting."`
	Dir  string `short:"d" help:"Project directory." default:"."`
}

func (s *SetupCmd) Run(g *Global, root *CLI) error {
	return executeSetup(g.Stdin, g.Stdout, s.Dir, s.Auto, serveArgs(root))
}

// serveArgs is the argument list editors use to launch the server.
func serveArgs(root *CLI) []string {
	args := []string{"serve"}
	if root != nil && root.Config != "" && root.Config != config.DefaultPath {
		args = append(args, "--config", root.Config)
	}
	return args
}

// detectEditors finds editors configured in dir.
func detectEditors(dir string) []detectedEditor {
	var out []detectedEditor
	for _, def := range editorRegistry {
		if def.Marker != "" {
			if info, err := statFunc(filepath.Join(dir, def.Marker)); err != nil || !info.IsDir() {
				continue
			}
		}
		cfg := filepath.Join(dir, def.ConfigPath)
		out = append(out, detectedEditor{
			Def:          def,
			Config:       cfg,
			AlreadySetup: isAlreadyConfigured(cfg, def.ServersKey),
		})
	}
	return out
}

// isAlreadyConfigured reports whether configPath lists a stylepipe server.
func isAlreadyConfigured(configPath, serversKey string) bool {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return false
	}
	var config map[string]any
	if err := json.Unmarshal(data, &config); err != nil {
		return false
	}
	servers, ok := config[serversKey].(map[string]any)
	if !ok {
		return false
	}
	_, exists := servers[serverKey]
	return exists
}

func serverEntry(args []string, extra map[string]string) map[string]any {
	anyArgs := make([]any, len(args))
	for i, a := range args {
		anyArgs[i] = a
	}
	entry := map[string]any{
		"command": "stylepipe",
		"args":    anyArgs,
	}
	for k, v := range extra {
		entry[k] = v
	}
	return entry
}

// mergeServerEntry adds the stylepipe entry under serversKey of existing,
// keeping every other key. It returns nil, nil when the entry is present.
func mergeServerEntry(existing []byte, serversKey string, args []string, extra map[string]string) ([]byte, error) {
	config := make(map[string]any)
	if len(existing) > 0 {
		if err := json.Unmarshal(existing, &config); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
	}

	servers, ok := config[serversKey].(map[string]any)
	if !ok {
		servers = make(map[string]any)
	}
	if _, exists := servers[serverKey]; exists {
		return nil, nil
	}

	servers[serverKey] = serverEntry(args, extra)
	config[serversKey] = servers

	out, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

func configureEditor(d detectedEditor, args []string) error {
	if err := os.MkdirAll(filepath.Dir(d.Config), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	var existing []byte
	if data, err := os.ReadFile(d.Config); err == nil {
		existing = data
	}

	merged, err := mergeServerEntry(existing, d.Def.ServersKey, args, d.Def.ExtraFields)
	if err != nil {
		return fmt.Errorf("%s: %w", d.Config, err)
	}
	if merged == nil {
		return nil
	}
	return os.WriteFile(d.Config, merged, 0o644)
}

// promptYesNo reads Y/n from scanner. Empty input and EOF mean yes.
func promptYesNo(scanner *bufio.Scanner, w io.Writer, question string) bool {
	fmt.Fprintf(w, "%s ", question)
	if !scanner.Scan() {
		return true
	}
	answer := strings.TrimSpace(strings.ToLower(scanner.Text()))
	return answer == "" || answer == "y" || answer == "yes"
}

// executeSetup is the testable core of the setup command.
func executeSetup(r io.Reader, w io.Writer, dir string, auto bool, args []string) error {
	detected := detectEditors(dir)

	fmt.Fprintln(w, "MCP client configurations:")
	for _, d := range detected {
		if d.AlreadySetup {
			fmt.Fprintf(w, "  * %s (already configured)\n", d.Def.DisplayName)
		} else {
			fmt.Fprintf(w, "  * %s\n", d.Def.DisplayName)
		}
	}

	scanner := bufio.NewScanner(r)
	var failed []string
	for _, d := range detected {
		if d.AlreadySetup {
			continue
		}
		if !auto && !promptYesNo(scanner, w, fmt.Sprintf("\nAdd stylepipe to %s? [Y/n]", d.Config)) {
			fmt.Fprintln(w, "  skipped")
			continue
		}
		if err := configureEditor(d, args); err != nil {
			fmt.Fprintf(w, "  ! %s: %v\n", d.Def.DisplayName, err)
			failed = append(failed, d.Def.DisplayName)
			continue
		}
		fmt.Fprintf(w, "  + %s configured (%s)\n", d.Def.DisplayName, d.Config)
	}

	if len(failed) > 0 {
		return fmt.Errorf("setup failed for %s", strings.Join(failed, ", "))
	}
	return nil
}
