// Package domain models geocoded social-media posts.
//
// # Data Source
//
// Posts come from a single news account whose editors follow a loose house
// style: every post opens with a short fixed-width lead word, names the
// place right after it, and optionally closes the place phrase with a comma.
//
//	"bugün ist. taksim meydanında, büyük bir kalabalık vardı"
//	 ^^^^^ lead word (5 runes)
//	       ^^^^^^^^^^^^^^^^^^^^^^^ place phrase, terminated by the comma
//
// Posts without a comma are cut at the first word boundary at or after rune
// index 20. These offsets are properties of that feed, not of addresses in
// general; see [DefaultPrefixWidth] and [DefaultScanStart].
//
// # Abbreviations
//
// The feed abbreviates Turkish place words heavily ("cd." for caddesi,
// "sk." for sokağı, "gs myd." for Galatasaray Meydanı). [Extractor] expands
// them with an ordered [AbbreviationTable] of literal substring replacements.
// Order matters: specific patterns must precede the generic patterns they
// contain. Matches are substring matches, so a pattern can fire inside an
// unrelated word; that false-positive source is accepted.
//
// # Resolution
//
// [ResolveAddress] asks a [Geocoder] for at most one candidate and keeps it
// only when both coordinates are non-negative. The feed covers Turkey, where
// valid latitude and longitude are both positive, so a negative value almost
// always means the provider matched the wrong place. This is a sign check,
// not a boundary check.
//
// Outcomes are tagged with a [ResolutionStatus]. The "(0, 0)" sentinel that
// spreadsheet consumers expect for unresolved rows is produced only by
// [Resolution.Coordinates] and the [TweetRecord] accessors.
//
// # Failures
//
// Extraction and resolution never drop a post. Only collaborator failures
// (timeline, geocoder, export, checkpoint) abort a run, and they surface as
// [*CollaboratorError].
package domain
