package driver

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gnana997/stylepipe/pkg/config"
	"github.com/gnana997/stylepipe/pkg/metrics"
	"github.com/gnana997/stylepipe/pkg/pipeline"
	"github.com/gnana997/stylepipe/pkg/stage"
	"github.com/gnana997/stylepipe/pkg/util"
)

const gvTheme = `theme:
  extend:
    colors:
      gv-primary-darkest: "#003f53"
      gv-primary-darker: "#00586d"
      gv-primary-dark: "#27859b"
      gv-primary: "#60b5cc"
      gv-primary-light: "#94e7ff"
      gv-primary-lighter: "#c8ffff"
      gv-primary-lightest: "#e3ffff"
    spacing:
      gutter: 1.5rem
`

// project lays out a build directory and returns a config pointing into it.
func project(t *testing.T, files map[string]string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}

	cfg := config.Default()
	cfg.Input = filepath.Join(dir, "global.css")
	cfg.Output = filepath.Join(dir, "public", "application.css")
	cfg.Theme = filepath.Join(dir, "theme.yaml")
	cfg.Codegen.Directory = filepath.Join(dir, "gen")
	require.NoError(t, cfg.Validate())
	return cfg
}

func quiet() Options {
	return Options{Logger: util.DiscardLogger()}
}

// snapshot returns every file below dir with its content.
func snapshot(t *testing.T, dir string) map[string]string {
	t.Helper()
	out := map[string]string{}
	err := filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		data, err := os.ReadFile(p)
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(dir, p)
		out[filepath.ToSlash(rel)] = string(data)
		return nil
	})
	require.NoError(t, err)
	return out
}

func TestExecute_GvPrimaryScenario(t *testing.T) {
	cfg := project(t, map[string]string{
		"theme.yaml": gvTheme,
		"global.css": `@import "components/button.css";
@tailwind base;
body { margin: 0; }
`,
		"components/button.css": `.btn { color: gv-primary; user-select: none; }
`,
	})

	require.NoError(t, Execute(context.Background(), cfg, quiet()))

	out, err := os.ReadFile(cfg.Output)
	require.NoError(t, err)
	css := string(out)
	assert.Contains(t, css, "#60b5cc")
	assert.NotContains(t, css, "@import")
	assert.NotContains(t, css, "@tailwind")
	assert.Contains(t, css, "-webkit-user-select")

	colors, err := os.ReadFile(filepath.Join(cfg.Codegen.PackageDir(), "colors.go"))
	require.NoError(t, err)
	assert.Regexp(t, `ColorGvPrimary\s+= Color\{Name: "gv-primary", Value: "#60b5cc"\}`, string(colors))

	index, err := os.ReadFile(filepath.Join(cfg.Codegen.PackageDir(), "tokens.go"))
	require.NoError(t, err)
	assert.Contains(t, string(index), `{Category: "colors", Name: "gv-primary", Value: "#60b5cc", Used: true}`)
}

func TestExecute_Deterministic(t *testing.T) {
	files := map[string]string{
		"theme.yaml": gvTheme,
		"global.css": ".a { color: theme('colors.gv-primary-dark'); padding: theme('spacing.gutter'); }\n@tailwind utilities;\n",
	}
	first := project(t, files)
	second := project(t, files)

	require.NoError(t, Execute(context.Background(), first, quiet()))
	require.NoError(t, Execute(context.Background(), second, quiet()))

	a := snapshot(t, filepath.Dir(first.Input))
	b := snapshot(t, filepath.Dir(second.Input))
	delete(a, "theme.yaml")
	delete(b, "theme.yaml")
	if diff := cmp.Diff(a, b); diff != "" {
		t.Errorf("two builds of the same input differ (-first +second):\n%s", diff)
	}
}

func TestExecute_MissingInputIsConfigurationError(t *testing.T) {
	cfg := project(t, map[string]string{"theme.yaml": gvTheme})

	err := Execute(context.Background(), cfg, quiet())
	require.Error(t, err)
	assert.True(t, pipeline.IsKind(err, pipeline.KindConfiguration))
	assert.Equal(t, ExitConfiguration, ExitCode(err))

	assert.NoFileExists(t, cfg.Output)
	assert.NoDirExists(t, cfg.Codegen.Directory)
}

func TestExecute_InputDirectoryIsConfigurationError(t *testing.T) {
	cfg := project(t, map[string]string{"theme.yaml": gvTheme, "global.css/keep": ""})

	err := Execute(context.Background(), cfg, quiet())
	assert.True(t, pipeline.IsKind(err, pipeline.KindConfiguration))
}

func TestExecute_MissingThemeIsConfigurationError(t *testing.T) {
	cfg := project(t, map[string]string{"global.css": ".a { color: red; }\n"})

	err := Execute(context.Background(), cfg, quiet())
	require.Error(t, err)
	assert.True(t, pipeline.IsKind(err, pipeline.KindConfiguration))
	assert.NoFileExists(t, cfg.Output)
}

func TestExecute_UnwritableOutputParentIsConfigurationError(t *testing.T) {
	cfg := project(t, map[string]string{
		"theme.yaml": gvTheme,
		"global.css": ".a { color: red; }\n",
		"public":     "a file, not a directory",
	})

	err := Execute(context.Background(), cfg, quiet())
	require.Error(t, err)
	assert.True(t, pipeline.IsKind(err, pipeline.KindConfiguration))
}

func TestExecute_UnresolvedImportLeavesOutputUntouched(t *testing.T) {
	cfg := project(t, map[string]string{
		"theme.yaml":             gvTheme,
		"global.css":             "@import \"missing.css\";\n.a { color: gv-primary; }\n",
		"public/application.css": "previous build\n",
		"gen/tailwind/colors.go": "previous bindings\n",
	})
	before := snapshot(t, filepath.Dir(cfg.Input))

	err := Execute(context.Background(), cfg, quiet())
	require.Error(t, err)
	assert.True(t, pipeline.IsKind(err, pipeline.KindStage))
	assert.Equal(t, stage.NameImports, pipeline.StageOf(err))
	assert.Contains(t, err.Error(), "missing.css")
	assert.Equal(t, ExitFailure, ExitCode(err))

	if diff := cmp.Diff(before, snapshot(t, filepath.Dir(cfg.Input))); diff != "" {
		t.Errorf("failed build modified the project (-before +after):\n%s", diff)
	}
}

func TestExecute_LaterStageFailureWritesNothing(t *testing.T) {
	cfg := project(t, map[string]string{
		"theme.yaml": gvTheme,
		"global.css": ".a { @apply bg-unknown; }\n",
	})

	err := Execute(context.Background(), cfg, quiet())
	require.Error(t, err)
	assert.Equal(t, stage.NameTokens, pipeline.StageOf(err))
	assert.NoFileExists(t, cfg.Output)
	assert.NoDirExists(t, filepath.Dir(cfg.Output), "output directory is created only when publishing")
	assert.NoDirExists(t, cfg.Codegen.Directory)
}

func TestExecute_CodegenWriteFailureIsFullFailure(t *testing.T) {
	cfg := project(t, map[string]string{
		"theme.yaml": gvTheme,
		"global.css": ".a { color: gv-primary; }\n",
		"gen":        "a file where the bindings directory should be",
	})

	err := Execute(context.Background(), cfg, quiet())
	require.Error(t, err)
	assert.True(t, pipeline.IsKind(err, pipeline.KindWrite))
	assert.Equal(t, stage.NameCodegen, pipeline.StageOf(err))
	assert.NoFileExists(t, cfg.Output)
	assert.NoDirExists(t, filepath.Dir(cfg.Output))
}

func TestExecute_StageSubset(t *testing.T) {
	cfg := project(t, map[string]string{
		"theme.yaml": gvTheme,
		"global.css": ".a { user-select: none; }\n",
	})
	cfg.Stages = []string{stage.NamePrefix}
	require.NoError(t, cfg.Validate())

	require.NoError(t, Execute(context.Background(), cfg, quiet()))

	out, err := os.ReadFile(cfg.Output)
	require.NoError(t, err)
	assert.Contains(t, string(out), "-webkit-user-select: none")
	assert.NoDirExists(t, cfg.Codegen.Directory)
}

func TestExecute_Cancelled(t *testing.T) {
	cfg := project(t, map[string]string{
		"theme.yaml": gvTheme,
		"global.css": ".a { color: red; }\n",
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Execute(ctx, cfg, quiet())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NoFileExists(t, cfg.Output)
}

func TestExecute_LogsRunIDAndSaveLine(t *testing.T) {
	cfg := project(t, map[string]string{
		"theme.yaml": gvTheme,
		"global.css": ".a { color: red; }\n",
	})
	var buf bytes.Buffer
	logger := util.NewLogger(util.LoggerConfig{Level: util.LevelInfo, Format: util.FormatText, Output: &buf})

	require.NoError(t, Execute(context.Background(), cfg, Options{Logger: logger}))

	logs := buf.String()
	assert.Contains(t, logs, "Saving remaining global css to "+cfg.Output)
	assert.Contains(t, logs, "build complete")
	assert.Regexp(t, `stages="imports=\d+ms tokens=\d+ms prefix=\d+ms codegen=\d+ms"`, logs)
	for _, line := range strings.Split(strings.TrimSpace(logs), "\n") {
		assert.Contains(t, line, "run=", "line %q lacks the run id", line)
	}
}

func TestExecute_WritesMetricsTextfile(t *testing.T) {
	cfg := project(t, map[string]string{
		"theme.yaml": gvTheme,
		"global.css": ".a { color: gv-primary; }\n",
	})
	cfg.MetricsFile = filepath.Join(filepath.Dir(cfg.Input), "metrics", "stylepipe.prom")

	require.NoError(t, Execute(context.Background(), cfg, quiet()))

	data, err := os.ReadFile(cfg.MetricsFile)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `stylepipe_run_outcomes_total{outcome="success"} 1`)
	assert.Contains(t, text, `stylepipe_generated_tokens{category="colors"} 7`)
	assert.Contains(t, text, `stylepipe_stage_results_total{result="success",stage="imports"} 1`)
}

func TestExecute_SharedRecorderCountsFailures(t *testing.T) {
	cfg := project(t, map[string]string{"theme.yaml": gvTheme})
	rec := metrics.NewPrometheusRecorder(nil)

	require.Error(t, Execute(context.Background(), cfg, Options{Logger: util.DiscardLogger(), Recorder: rec}))

	families, err := rec.Registry().Gather()
	require.NoError(t, err)
	var failed float64
	for _, f := range families {
		if f.GetName() != "stylepipe_run_outcomes_total" {
			continue
		}
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "outcome" && l.GetValue() == metrics.ResultFailed {
					failed = m.GetCounter().GetValue()
				}
			}
		}
	}
	assert.Equal(t, float64(1), failed)
}

func TestLoadTheme_Discovers(t *testing.T) {
	cfg := project(t, map[string]string{"theme.yaml": gvTheme})
	dir := filepath.Dir(cfg.Input)
	cfg.Theme = ""

	th, err := LoadTheme(cfg, ThemeOptions{Dir: dir, Logger: slog.New(slog.DiscardHandler)})
	require.NoError(t, err)
	tok, ok := th.Lookup("colors", "gv-primary")
	require.True(t, ok)
	assert.Equal(t, "#60b5cc", tok.Value)

	_, err = LoadTheme(cfg, ThemeOptions{Dir: t.TempDir()})
	assert.Error(t, err)
}

func TestStageTimings(t *testing.T) {
	assert.Equal(t, "", stageTimings(nil))
	assert.Equal(t, "imports=3ms codegen=12ms", stageTimings([]pipeline.StageReport{
		{Name: "imports", Duration: 3 * time.Millisecond},
		{Name: "codegen", Duration: 12 * time.Millisecond, Emitted: 2},
	}))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitOK, ExitCode(nil))
	assert.Equal(t, ExitConfiguration, ExitCode(pipeline.ConfigErrorf("bad")))
	assert.Equal(t, ExitFailure, ExitCode(pipeline.StageError("tokens", errors.New("bad"))))
	assert.Equal(t, ExitFailure, ExitCode(pipeline.WriteError("codegen", errors.New("bad"))))
	assert.Equal(t, ExitFailure, ExitCode(errors.New("plain")))
}
