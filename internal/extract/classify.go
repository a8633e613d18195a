package extract

import (
	"strings"

	"vidinsight/internal/services"
)

// authPhrases mark yt-dlp failures caused by a video that is not publicly
// reachable. Matching is case-insensitive against the ERROR: line.
var authPhrases = []string{
	"sign in to confirm",
	"sign in if you've been granted access",
	"use --cookies",
	"--cookies-from-browser",
	"--username and --password",
	"account authentication is required",
	"only available for registered users",
	"age-restricted",
	"age restricted",
	"inappropriate for some users",
	"private video",
	"video is private",
	"members-only",
	"members only",
	"join this channel",
	"requires payment",
}

func classifyDownloadFailure(err error) error {
	detail := errorLine(err.Error())
	lower := strings.ToLower(detail)
	for _, phrase := range authPhrases {
		if strings.Contains(lower, phrase) {
			return services.Wrap(services.ErrAuthRequired, stageName, "download",
				"the video requires sign-in or is restricted; it must be public: "+detail, nil)
		}
	}
	return services.Wrap(services.ErrDownload, stageName, "download", detail, nil)
}

// errorLine returns the text after yt-dlp's "ERROR:" marker, or the last
// non-empty line when no marker is present.
func errorLine(text string) string {
	var last string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if idx := strings.Index(line, "ERROR:"); idx >= 0 {
			return strings.TrimSpace(line[idx+len("ERROR:"):])
		}
		last = line
	}
	if last == "" {
		return "yt-dlp failed without output"
	}
	return last
}
