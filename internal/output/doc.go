// Package output renders review results into the review artifact.
//
// [MarkdownWriter] produces review.md; [HTMLPage] turns that Markdown into
// a sanitised standalone page (GFM via goldmark, bluemonday UGC policy).
package output
