package preflight

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"vidinsight/internal/config"
	"vidinsight/internal/deps"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the external programs extraction needs. Every
// program must resolve on PATH; ffmpeg and ffprobe must also answer a
// version probe. The extractor runs the same checks before each download.
func CheckSystemDeps(ctx context.Context, cfg *config.Config) []deps.Status {
	requirements := []deps.Requirement{
		{
			Name:        "yt-dlp",
			Command:     cfg.Download.YtDlpBinary,
			Description: "Required to download audio",
		},
		{
			Name:        "FFmpeg",
			Command:     cfg.Download.FFmpegBinary,
			Description: "Required to convert audio to mp3",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.Download.FFprobeBinary,
			Description: "Required to verify extracted audio",
		},
	}
	statuses := deps.CheckBinaries(requirements)

	probed := deps.ProbeBinaries(ctx, cfg.Download.FFmpegBinary, cfg.Download.FFprobeBinary)
	for i := range statuses {
		ok, checked := probed[statuses[i].Command]
		if !checked || !statuses[i].Available || ok {
			continue
		}
		statuses[i].Available = false
		statuses[i].Detail = fmt.Sprintf("binary %q failed to report its version", statuses[i].Command)
	}
	return statuses
}

// CheckCredentials reports whether the selected provider has an API key.
func CheckCredentials(cfg *config.Config) Result {
	name := fmt.Sprintf("%s API key", cfg.Analysis.Provider)
	if err := cfg.ValidateCredentials(); err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: "configured"}
}
