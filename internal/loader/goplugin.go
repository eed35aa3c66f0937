package loader

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"plugin"

	"github.com/arcane-tourneys/botarena/internal/agent"
)

// GoPluginProvider is the default SourceProvider: it compiles a team's
// staged source directory as a Go plugin and looks up an exported
// NewAgent symbol. Building and loading untrusted code is explicitly
// the out-of-scope half of the loader contract; this is the minimal
// concrete implementation the core ships so the engine runs end to
// end, not a sandboxed compiler. A production deployment is expected
// to swap in its own SourceProvider behind the same seam.
type GoPluginProvider struct {
	BuildDir string
}

func NewGoPluginProvider(buildDir string) *GoPluginProvider {
	return &GoPluginProvider{BuildDir: buildDir}
}

func (p *GoPluginProvider) Build(teamName string, files []SourceFile) (agent.Agent, error) {
	workDir := filepath.Join(p.BuildDir, teamName)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("goplugin: create workdir: %w", err)
	}
	for _, f := range files {
		if err := os.WriteFile(filepath.Join(workDir, f.FileName), f.Code, 0o644); err != nil {
			return nil, fmt.Errorf("goplugin: write %s: %w", f.FileName, err)
		}
	}

	soPath := filepath.Join(workDir, teamName+".so")
	cmd := exec.Command("go", "build", "-buildmode=plugin", "-o", soPath, ".")
	cmd.Dir = workDir
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("goplugin: build %s: %w: %s", teamName, err, out)
	}

	plug, err := plugin.Open(soPath)
	if err != nil {
		return nil, fmt.Errorf("goplugin: open %s: %w", teamName, err)
	}

	sym, err := plug.Lookup("NewAgent")
	if err != nil {
		return nil, fmt.Errorf("goplugin: %s missing NewAgent symbol: %w", teamName, err)
	}

	factory, ok := sym.(func() agent.Agent)
	if !ok {
		return nil, fmt.Errorf("goplugin: %s NewAgent has the wrong signature", teamName)
	}

	return factory(), nil
}
