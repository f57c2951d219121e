// Package artifact writes the files a review run leaves behind: the raw
// diff (git.diff), the review (review.md) and optionally its HTML render
// (review.html).
//
// Writes go to a temporary file in the same directory and are renamed
// into place, so a reader never sees a half-written artifact. The
// configured credential is scrubbed from everything written.
package artifact
