package deps

import (
	"context"
	"os/exec"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// CheckBinary runs "<name> -version" and reports whether the process started
// and exited successfully. The single-dash flag is the ffmpeg family's
// convention; tools such as yt-dlp are checked with CheckBinaries instead.
func CheckBinary(ctx context.Context, name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	if ctx == nil {
		ctx = context.Background()
	}
	cmd := exec.CommandContext(ctx, name, "-version") //nolint:gosec
	return cmd.Run() == nil
}

// ProbeBinaries checks every named binary concurrently and reports each
// result keyed by name.
func ProbeBinaries(ctx context.Context, names ...string) map[string]bool {
	results := make(map[string]bool, len(names))
	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	for _, name := range names {
		group.Go(func() error {
			ok := CheckBinary(groupCtx, name)
			mu.Lock()
			results[name] = ok
			mu.Unlock()
			return nil
		})
	}
	_ = group.Wait()
	return results
}

// Missing returns the sorted names whose probe failed.
func Missing(results map[string]bool) []string {
	var missing []string
	for name, ok := range results {
		if !ok {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)
	return missing
}
