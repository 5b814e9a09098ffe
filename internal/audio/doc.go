// Package audio plays clips from the sound directory and answers how long
// they are.
//
// Library owns the directory: it resolves clip names, probes durations and
// keeps the results in an LRU cache that a directory watcher invalidates.
// Controller plays one clip at a time on a Backend and reports the end of
// every successful Play exactly once.
package audio
