// Package reprocess re-submits failed content in bulk.
//
// A Reprocessor pages through content in the failed status, re-submits each
// record through the registry (a new generation and a new extraction job), and
// records a named checkpoint after every batch so an interrupted sweep resumes
// where it stopped. Progress is written to an io.Writer.
package reprocess
