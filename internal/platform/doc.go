package platform

// Package platform contains OS and external tooling glue: source link
// validation, metadata probing via the yt-dlp CLI, ffmpeg detection and
// filesystem helpers for session work directories.
