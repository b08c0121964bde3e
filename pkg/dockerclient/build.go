package dockerclient

import (
	"archive/tar"
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/docker/docker/api/types/build"

	"github.com/rivetci/fleetyard/pkg/log"
	"github.com/rivetci/fleetyard/pkg/types"
)

// BuildEventStream decodes the daemon's newline-delimited build response
// into structured BuildEvent values, one Next() call at a time. It is a
// single-pass, non-restartable reader: callers interpret each event as it
// arrives (pkg/buildctx owns the " ---> "/"Running in"/"Removing
// intermediate container" state machine; this type only decodes records).
type BuildEventStream struct {
	scanner *bufio.Scanner
	body    io.ReadCloser
}

// rawBuildEvent mirrors the daemon's per-line JSON record, which contains
// exactly one of stream/status/error.
type rawBuildEvent struct {
	Stream         string `json:"stream"`
	Status         string `json:"status"`
	Error          string `json:"error"`
	ProgressDetail struct {
		Current int64 `json:"current"`
		Total   int64 `json:"total"`
	} `json:"progressDetail"`
	ID string `json:"id"`
}

// Next returns the next event, or ok=false when the stream has ended
// (either cleanly or because the underlying body was closed). An
// unrecognized record is logged and skipped rather than surfaced as an
// error, per the daemon wire contract's tolerance requirement.
func (s *BuildEventStream) Next() (types.BuildEvent, bool, error) {
	for s.scanner.Scan() {
		line := s.scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var raw rawBuildEvent
		if err := json.Unmarshal(line, &raw); err != nil {
			log.Debug(fmt.Sprintf("dockerclient: unrecognized build record, skipping: %v", err))
			continue
		}
		switch {
		case raw.Error != "":
			return types.BuildEvent{Kind: types.BuildEventError, Error: raw.Error}, true, nil
		case raw.Status != "":
			return types.BuildEvent{Kind: types.BuildEventStatus, Line: raw.Status, ProgressDetail: raw.ID}, true, nil
		case raw.Stream != "":
			return types.BuildEvent{Kind: types.BuildEventStream, Line: raw.Stream}, true, nil
		default:
			continue
		}
	}
	if err := s.scanner.Err(); err != nil {
		return types.BuildEvent{}, false, fmt.Errorf("dockerclient: reading build stream: %w", err)
	}
	return types.BuildEvent{}, false, nil
}

// Close releases the underlying HTTP response body. Safe to call after the
// stream has been fully drained.
func (s *BuildEventStream) Close() error {
	return s.body.Close()
}

// Build submits the directory rooted at dir as a build context tarball and
// returns a lazy stream of build events. tag names the resulting image.
func (c *Client) Build(ctx context.Context, dir, tag string, quiet bool) (*BuildEventStream, error) {
	archive, err := tarDirectory(dir)
	if err != nil {
		return nil, fmt.Errorf("dockerclient: packing build context %s: %w", dir, err)
	}

	resp, err := c.docker.ImageBuild(ctx, archive, build.ImageBuildOptions{
		Tags:           []string{tag},
		Dockerfile:     "Dockerfile",
		Remove:         true,
		SuppressOutput: quiet,
	})
	if err != nil {
		return nil, fmt.Errorf("dockerclient: build %s: %w", tag, err)
	}

	return &BuildEventStream{
		scanner: bufio.NewScanner(resp.Body),
		body:    resp.Body,
	}, nil
}

// tarDirectory packs dir into an in-memory tar stream, the form the build
// endpoint expects as its request body.
func tarDirectory(dir string) (io.Reader, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	err := filepath.Walk(dir, func(path string, info fs.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		hdr, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(rel)

		if err := tw.WriteHeader(hdr); err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = io.Copy(tw, f)
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := tw.Close(); err != nil {
		return nil, err
	}
	return &buf, nil
}
