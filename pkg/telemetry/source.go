// Copyright Antimetal, Inc. All rights reserved.
//
// Use of this source code is governed by a source available license that can be found in the
// LICENSE file or at:
// https://polyformproject.org/wp-content/uploads/2020/06/PolyForm-Shield-1.0.0.txt

package telemetry

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// ErrSourceUnavailable is the single error every source failure collapses
// into: missing file, permission denied, parse failure, implausible value,
// command timeout or non-zero exit. Callers never need finer granularity
// because the downstream treatment is identical (the metric goes OFFLINE and
// is retried on the next tick).
var ErrSourceUnavailable = errors.New("source unavailable")

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
}

// SourceKind identifies how a raw metric value is acquired.
type SourceKind string

const (
	// SourceSysfsScalar is a plain-text integer counter file (sysfs or procfs).
	SourceSysfsScalar SourceKind = "sysfs-scalar"
	// SourceBinaryOffset is a fixed-width little-endian integer at a byte
	// offset inside a binary telemetry blob (e.g. an Intel PMT region).
	SourceBinaryOffset SourceKind = "binary-offset"
	// SourceCommandOutput is the parsed standard output of a short-lived
	// external command.
	SourceCommandOutput SourceKind = "command-output"
)

// MetricSource identifies where one raw value comes from. Sources are static
// configuration: created at startup, never mutated.
type MetricSource struct {
	Kind SourceKind
	// Path is the counter file or binary region for file-backed kinds.
	Path string
	// Offset and Width locate a little-endian unsigned integer inside a
	// binary-offset source. Width must be 1, 2, 4 or 8.
	Offset int64
	Width  int
	// Scale converts raw units (e.g. 0.001 for milli-degrees to degrees,
	// 512 for sectors to bytes). Zero means no conversion.
	Scale float64
	// Command is the argv for command-output sources.
	Command []string
}

// ReadScalar reads a whitespace-trimmed integer from a counter file.
func ReadScalar(path string) (uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, unavailable(err)
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, unavailable(fmt.Errorf("parsing %s: %v", path, err))
	}
	return v, nil
}

// ReadScalarFloat reads a scalar counter file and applies a unit conversion
// factor (scale of 0 means none).
func ReadScalarFloat(path string, scale float64) (float64, error) {
	v, err := ReadScalar(path)
	if err != nil {
		return 0, err
	}
	f := float64(v)
	if scale != 0 {
		f *= scale
	}
	return f, nil
}

// ReadBinaryAt extracts a little-endian unsigned integer of the given width
// from a byte offset inside a binary telemetry blob.
func ReadBinaryAt(path string, offset int64, width int) (uint64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, unavailable(err)
	}
	if offset < 0 || int64(len(data)) < offset+int64(width) {
		return 0, unavailable(fmt.Errorf("%s: offset %#x width %d out of range (%d bytes)",
			path, offset, width, len(data)))
	}
	chunk := data[offset : offset+int64(width)]
	switch width {
	case 1:
		return uint64(chunk[0]), nil
	case 2:
		return uint64(binary.LittleEndian.Uint16(chunk)), nil
	case 4:
		return uint64(binary.LittleEndian.Uint32(chunk)), nil
	case 8:
		return binary.LittleEndian.Uint64(chunk), nil
	default:
		return 0, unavailable(fmt.Errorf("unsupported binary width %d", width))
	}
}

// CommandRunner executes an external command and returns its standard output.
// Collectors hold a CommandRunner so tests can substitute canned output.
type CommandRunner func(ctx context.Context, argv ...string) (string, error)

// RunCommand is the default CommandRunner. The timeout carried by ctx bounds
// the subprocess; a command that exceeds it is killed and reported
// unavailable rather than allowed to stall the tick.
func RunCommand(ctx context.Context, argv ...string) (string, error) {
	if len(argv) == 0 {
		return "", unavailable(errors.New("empty command"))
	}
	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return "", unavailable(fmt.Errorf("%s: %v", argv[0], err))
	}
	return stdout.String(), nil
}

// BoundedRunner wraps a CommandRunner with a fixed per-invocation timeout.
func BoundedRunner(run CommandRunner, timeout time.Duration) CommandRunner {
	return func(ctx context.Context, argv ...string) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		return run(ctx, argv...)
	}
}

// Read acquires one raw value from a MetricSource. File-backed kinds re-read
// live state on every call; there is no caching or retry.
func Read(ctx context.Context, src MetricSource, run CommandRunner) (float64, error) {
	switch src.Kind {
	case SourceSysfsScalar:
		return ReadScalarFloat(src.Path, src.Scale)
	case SourceBinaryOffset:
		v, err := ReadBinaryAt(src.Path, src.Offset, src.Width)
		if err != nil {
			return 0, err
		}
		f := float64(v)
		if src.Scale != 0 {
			f *= src.Scale
		}
		return f, nil
	case SourceCommandOutput:
		if run == nil {
			run = RunCommand
		}
		out, err := run(ctx, src.Command...)
		if err != nil {
			return 0, err
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
		if err != nil {
			return 0, unavailable(fmt.Errorf("parsing %q output: %v", src.Command[0], err))
		}
		if src.Scale != 0 {
			f *= src.Scale
		}
		return f, nil
	default:
		return 0, unavailable(fmt.Errorf("unknown source kind %q", src.Kind))
	}
}
