package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"crate/internal/downloads"
)

// execFetcher shells out to an external download tool per track. The tool
// receives the search query, destination directory, and quality as arguments
// and prints the written filename on stdout (optionally preceded by the
// located video title). Exit code 3 means the file already existed.
type execFetcher struct {
	bin string
}

const fetchExistsExitCode = 3

func newExecFetcher(bin string) *execFetcher {
	return &execFetcher{bin: bin}
}

func (f *execFetcher) Fetch(ctx context.Context, req downloads.Request) (downloads.Result, error) {
	cmd := exec.CommandContext(ctx, f.bin, req.SearchQuery, req.DestDir, req.Quality)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	output := strings.TrimSpace(stdout.String())

	if err != nil {
		if ctx.Err() != nil {
			return downloads.Result{}, ctx.Err()
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == fetchExistsExitCode {
			return downloads.Result{Filename: output, AlreadyExists: true}, nil
		}
		detail := strings.TrimSpace(stderr.String())
		if detail == "" {
			detail = err.Error()
		}
		return downloads.Result{}, fmt.Errorf("fetch tool: %s", detail)
	}
	if output == "" {
		return downloads.Result{}, errors.New("fetch tool printed no filename")
	}

	lines := strings.Split(output, "\n")
	result := downloads.Result{Filename: strings.TrimSpace(lines[len(lines)-1])}
	if len(lines) > 1 {
		result.VideoTitle = strings.TrimSpace(lines[0])
	}
	return result, nil
}
