package legacyipc

import (
	"bufio"
	"context"
	"io/fs"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// beatmapSignature starts the first line of every .osu file.
const beatmapSignature = "osu file format v"

// ExecCalculator rates beatmaps by running an external engine process.
//
// The process is started as
//
//	command[0] command[1:]... <beatmapFile> <mode id> <mods>
//
// and must print the star rating as a single number on stdout.
type ExecCalculator struct {
	command []string
	timeout time.Duration
}

// NewExecCalculator returns an ExecCalculator for command. A zero timeout
// lets the engine run until ctx is done.
func NewExecCalculator(command []string, timeout time.Duration) (*ExecCalculator, error) {
	if len(command) == 0 || strings.TrimSpace(command[0]) == "" {
		return nil, ErrNoCalculator
	}
	return &ExecCalculator{
		command: append([]string(nil), command...),
		timeout: timeout,
	}, nil
}

// Calculate implements Calculator.
func (c *ExecCalculator) Calculate(ctx context.Context, beatmapFile string, mode Mode, mods uint32) (float64, error) {
	if err := checkBeatmap(beatmapFile); err != nil {
		return 0, err
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := append([]string(nil), c.command[1:]...)
	args = append(args, beatmapFile, strconv.Itoa(int(mode)), strconv.FormatUint(uint64(mods), 10))

	cmd := exec.CommandContext(ctx, c.command[0], args...)
	cmd.WaitDelay = time.Second

	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			err = errors.Wrap(err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return 0, calculationError(ComputeFailure, errors.Wrapf(err, "run %s", c.command[0]))
	}

	rating, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, calculationError(ComputeFailure, errors.Wrap(err, "engine output"))
	}
	return rating, nil
}

// checkBeatmap makes sure path exists and looks like a .osu file before the
// engine is started.
func checkBeatmap(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return calculationError(FileNotFound, err)
		}
		return calculationError(ParseFailure, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), "\ufeff"))
		if line == "" {
			continue
		}
		if !strings.HasPrefix(line, beatmapSignature) {
			return calculationError(ParseFailure, errors.Errorf("%s: not a beatmap", path))
		}
		return nil
	}
	if err = scanner.Err(); err != nil {
		return calculationError(ParseFailure, errors.Wrap(err, path))
	}
	return calculationError(ParseFailure, errors.Errorf("%s: empty file", path))
}
