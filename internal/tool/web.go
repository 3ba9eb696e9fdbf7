package tool

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/questor-cli/questor/internal/registry"
)

type webfetchArgs struct {
	URL string `mapstructure:"url"`
}

// webfetchHandler fetches a http(s) URL and returns the body, capped at
// maxWebSize bytes.
func webfetchHandler(client *http.Client, maxWebSize int64, timeout time.Duration) registry.Handler {
	if client == nil {
		client = &http.Client{}
	}
	return func(ctx context.Context, inv *registry.Invocation) (any, error) {
		var args webfetchArgs
		if err := decodeArgs(inv.Args, &args); err != nil {
			return nil, err
		}

		parsed, err := url.Parse(args.URL)
		if err != nil {
			return nil, fmt.Errorf("invalid url: %w", err)
		}
		if parsed.Scheme != "http" && parsed.Scheme != "https" {
			return nil, fmt.Errorf("unsupported url scheme %q", parsed.Scheme)
		}

		reqCtx := ctx
		if timeout > 0 {
			var cancel context.CancelFunc
			reqCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, args.URL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", "questor/1.0")

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", args.URL, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("fetch %s: status %s", args.URL, resp.Status)
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxWebSize+1))
		if err != nil {
			return nil, fmt.Errorf("read body: %w", err)
		}
		if int64(len(body)) > maxWebSize {
			body = body[:maxWebSize]
			return registry.OK(string(body) + "\n... (body truncated)"), nil
		}
		return registry.OK(string(body)), nil
	}
}
