package config

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Download: Download{
			YtDlpBinary:          "yt-dlp",
			FFmpegBinary:         "ffmpeg",
			FFprobeBinary:        "ffprobe",
			AudioFormat:          "mp3",
			AudioQuality:         "192K",
			SkipCertificateCheck: true,
		},
		Analysis: Analysis{
			Provider:              ProviderGemini,
			MaxAttempts:           8,
			RetryBaseDelaySeconds: 1,
			RetryMaxDelaySeconds:  64,
			TransientStatusCodes:  []int{429, 503},
			TransientStatuses:     []string{"RESOURCE_EXHAUSTED", "UNAVAILABLE"},
		},
		Gemini: Gemini{
			BaseURL:        "https://generativelanguage.googleapis.com",
			Model:          "gemini-2.5-flash",
			TimeoutSeconds: 300,
		},
		OpenAI: OpenAI{
			BaseURL:            "https://api.openai.com/v1",
			TranscriptionModel: "whisper-1",
			Model:              "gpt-4o-mini",
			TimeoutSeconds:     300,
		},
		Pipeline: Pipeline{
			TimeoutSeconds: 900,
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
	}
}
