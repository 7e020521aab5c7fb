// Package download implements the fetch step of the pipeline on top of the
// yt-dlp binary. A fetch materializes one video or audio artifact inside a
// session work directory under a deadline. Cancellation kills the tool's whole
// process group before the caller tears the directory down.
package download
