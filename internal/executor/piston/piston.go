// Package piston implements executor.Executor against the Piston remote
// execution API (https://github.com/engineer-man/piston).
//
// Piston runs code in its own sandboxes; we send one POST per execution
// and translate the response. No code ever runs in this process.
package piston

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sakif/codecraft/internal/executor"
)

// runtime pins the Piston runtime version for each supported language.
// Piston requires an exact version string; "latest" is not accepted.
type runtime struct {
	Language string
	Version  string
}

// runtimes maps our language names to Piston runtimes. Must cover every
// language the entitlement catalog offers.
var runtimes = map[string]runtime{
	"javascript": {"javascript", "18.15.0"},
	"python":     {"python", "3.10.0"},
	"cpp":        {"c++", "10.2.0"},
	"java":       {"java", "15.0.2"},
	"go":         {"go", "1.16.2"},
	"rust":       {"rust", "1.68.2"},
	"csharp":     {"csharp", "6.12.0"},
	"ruby":       {"ruby", "3.0.1"},
	"swift":      {"swift", "5.3.3"},
}

// Client talks to a Piston instance.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

var _ executor.Executor = (*Client)(nil)

// New creates a Client for the Piston instance at baseURL (no trailing
// slash needed). The timeout bounds the whole execution round-trip —
// Piston enforces its own per-run limits, but a hung connection must not
// hold a request handler forever.
func New(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// executeRequest is Piston's wire format. Files carry the source; we always
// send exactly one unnamed file.
type executeRequest struct {
	Language string        `json:"language"`
	Version  string        `json:"version"`
	Files    []executeFile `json:"files"`
}

type executeFile struct {
	Content string `json:"content"`
}

// executeResponse covers the three shapes Piston answers with: an API-level
// message (bad runtime, rate limit), a compile stage (compiled languages
// only), and a run stage.
type executeResponse struct {
	Message string `json:"message"`
	Compile *stage `json:"compile"`
	Run     *stage `json:"run"`
}

type stage struct {
	Stdout string `json:"stdout"`
	Stderr string `json:"stderr"`
	Code   int    `json:"code"`
	Output string `json:"output"` // stdout and stderr interleaved
}

// Execute sends the code to Piston and translates the outcome.
//
// Compile and runtime failures of the user's code come back as a normal
// ExecutionResult with ExitCode and Stderr set — only transport problems
// and API-level refusals are Go errors.
func (c *Client) Execute(ctx context.Context, req executor.ExecutionRequest) (*executor.ExecutionResult, error) {
	rt, ok := runtimes[req.Language]
	if !ok {
		return nil, fmt.Errorf("piston: unsupported language %q", req.Language)
	}

	body, err := json.Marshal(executeRequest{
		Language: rt.Language,
		Version:  rt.Version,
		Files:    []executeFile{{Content: req.Code}},
	})
	if err != nil {
		return nil, fmt.Errorf("piston: encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v2/piston/execute", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("piston: building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("piston: sending request: %w", err)
	}
	defer resp.Body.Close()

	var out executeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("piston: decoding response: %w", err)
	}
	duration := time.Since(start)

	// Piston reports API-level problems as a "message" field, with or
	// without an error status code.
	if out.Message != "" {
		return nil, fmt.Errorf("piston: %s", out.Message)
	}
	if out.Run == nil {
		return nil, fmt.Errorf("piston: response missing run stage (status %d)", resp.StatusCode)
	}

	// A failed compile stage is the user's problem, not ours — surface it
	// as the execution result.
	if out.Compile != nil && out.Compile.Code != 0 {
		stderr := out.Compile.Stderr
		if stderr == "" {
			stderr = out.Compile.Output
		}
		return &executor.ExecutionResult{
			Stderr:   stderr,
			ExitCode: out.Compile.Code,
			Duration: duration,
		}, nil
	}

	result := &executor.ExecutionResult{
		Stdout:   strings.TrimRight(out.Run.Stdout, "\n"),
		Stderr:   out.Run.Stderr,
		ExitCode: out.Run.Code,
		Duration: duration,
	}

	c.logger.Debug("piston execution finished",
		slog.String("language", req.Language),
		slog.Int("exitCode", result.ExitCode),
		slog.Duration("duration", duration),
	)

	return result, nil
}

// Supported reports whether a Piston runtime is pinned for the language.
func Supported(language string) bool {
	_, ok := runtimes[language]
	return ok
}
