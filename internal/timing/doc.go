// Package timing loads per-word timing files that drive mouth animation.
//
// A timing file sits next to its clip and is named after it:
// "greeting.wav" is described by "greeting_timestamps.json". Two layouts are
// understood, a plain list of words and a transcription result object with a
// "words" list:
//
//	[{"word": "hello", "start": 0.5, "end": 0.9}]
//	{"words": [{"text": "hello", "type": "word", "start": 0.5, "end": 0.9}]}
//
// Offsets are seconds from the start of the clip.
package timing
