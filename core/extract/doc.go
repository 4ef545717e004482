// Copyright 2023 - 2025, VnPower and the PixivFE contributors
// SPDX-License-Identifier: AGPL-3.0-only

/*
Package extract finds translation marker calls in script sources and
extracts their string arguments.

A marker is a call such as

	Drupal.t("Hello !name", {"!name": name})
	Drupal.formatPlural(1, "1 item", "@count items")

The scanner works on tokens, not on a full grammar. It only needs to know
where strings, comments, template and regular expression literals begin
and end so that marker names are recognised in code and nowhere else.
Whitespace, line breaks and comments may appear between any two tokens of
a marker call.

String arguments are normalised as they are read: a chain of literals
joined by '+' is folded into one value, escapes are resolved, and the
quoting style is dropped. Anything other than a literal in a string
position makes the call malformed; it is skipped and reported through a
[Diagnostic].

# Markers

The recognised markers and their argument layouts come from a [MarkerSet].
[DefaultMarkers] knows Drupal.t and Drupal.formatPlural; [LoadMarkers]
reads other layouts from YAML:

	markers:
	  - name: i18n.tr
	    kind: singular
	    args: [string, mapping]
	  - name: i18n.trn
	    kind: plural
	    args: [count, string, string]
	    looseCount: true

A count argument must be a numeric literal unless the marker sets
looseCount, in which case any expression is accepted and skipped.
*/
package extract
