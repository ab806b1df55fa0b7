// Package install writes an exported theme archive into a simulator
// installation directory.
package install

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/mitchellh/go-ps"

	"github.com/Cxndr/optcgsim-themer-sub000/internal/compression"
	"github.com/Cxndr/optcgsim-themer-sub000/internal/security"
)

// SimulatorExecutable is the simulator's process name without extension.
const SimulatorExecutable = "OPTCGSim"

// ErrSimulatorRunning is returned when the simulator holds the install open.
var ErrSimulatorRunning = errors.New("simulator is running; close it before installing a theme")

// ProcessLister returns the running processes.
type ProcessLister func() ([]ps.Process, error)

// Installer extracts theme archives into dir.
type Installer struct {
	dir       string
	processes ProcessLister
	logger    hclog.Logger
}

// Option configures an Installer.
type Option func(*Installer)

// WithProcessLister replaces the system process listing.
func WithProcessLister(fn ProcessLister) Option {
	return func(i *Installer) { i.processes = fn }
}

// WithLogger sets the logger.
func WithLogger(l hclog.Logger) Option {
	return func(i *Installer) {
		if l != nil {
			i.logger = l
		}
	}
}

// New returns an installer for the simulator directory dir.
func New(dir string, opts ...Option) *Installer {
	i := &Installer{dir: dir, processes: ps.Processes, logger: hclog.NewNullLogger()}
	for _, opt := range opts {
		opt(i)
	}
	i.logger = i.logger.Named("install")
	return i
}

// Running returns the PIDs of running simulator processes.
func (i *Installer) Running() ([]int, error) {
	processes, err := i.processes()
	if err != nil {
		return nil, fmt.Errorf("failed to get process list: %w", err)
	}

	var pids []int
	for _, p := range processes {
		name := strings.TrimSuffix(strings.ToLower(p.Executable()), ".exe")
		if name == strings.ToLower(SimulatorExecutable) {
			pids = append(pids, p.Pid())
		}
	}
	return pids, nil
}

// Install extracts archive (a zip produced by export) into the install
// directory, overwriting existing files. It returns the written paths.
func (i *Installer) Install(ctx context.Context, archive []byte) ([]string, error) {
	info, err := os.Stat(i.dir)
	if err != nil {
		return nil, fmt.Errorf("install directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("install directory %s is not a directory", i.dir)
	}

	pids, err := i.Running()
	if err != nil {
		return nil, err
	}
	if len(pids) > 0 {
		i.logger.Warn("simulator running", "pids", pids)
		return nil, ErrSimulatorRunning
	}

	files, err := compression.ReadArchive(archive, "theme.zip", security.MaxInstallEntrySize)
	if err != nil {
		return nil, fmt.Errorf("failed to read theme archive: %w", err)
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var written []string
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		if err := security.ValidateFilePath(name, i.dir); err != nil {
			return written, fmt.Errorf("invalid archive entry %s: %w", name, err)
		}

		target := filepath.Join(i.dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return written, fmt.Errorf("failed to create directory for %s: %w", name, err)
		}
		if err := os.WriteFile(target, files[name], 0o644); err != nil {
			return written, fmt.Errorf("failed to write %s: %w", name, err)
		}
		written = append(written, target)
		i.logger.Debug("installed", "path", target)
	}
	return written, nil
}
