// Package diffparse splits unified diff text produced by git into per-file
// segments.
//
// [Segment] walks the diff line by line, starting a new [FileChange] at
// every "diff --git" header and attributing every following line to it
// until the next header. The file path is the post-image ("b/") side of the
// header. Segments whose header cannot be parsed are dropped and reported
// as [Warning]s rather than failing the whole parse, and text that appears
// before the first header is discarded.
//
// [Reassemble] is the inverse: segmenting its output yields the same
// changes.
package diffparse
