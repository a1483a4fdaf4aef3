package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/eskang/RosAlloy/internal/compiler"
	"github.com/eskang/RosAlloy/internal/ir"
)

// LoadModel loads and compiles a model from a CUE file or a directory of
// CUE files. Directory loads unify every file into one model definition.
func LoadModel(path string) (*ir.Model, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("model not found: %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading model %s: %w", path, err)
	}

	cfg := &load.Config{}
	var args []string
	if info.IsDir() {
		cfg.Dir = path
		args = []string{"."}
	} else {
		cfg.Dir = filepath.Dir(path)
		args = []string{filepath.Base(path)}
	}

	instances := load.Instances(args, cfg)
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances in %s", path)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, inst.Err)
	}

	v := cuecontext.New().BuildInstance(inst)
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("building %s: %w", path, err)
	}
	return compiler.Compile(v)
}
