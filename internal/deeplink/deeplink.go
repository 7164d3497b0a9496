// Package deeplink serializes presentation state into a shareable query
// string and back, so reloads and back/forward navigation reproduce the
// exact view.
//
// The encoding uses the parameters lang, view, translated and chapter,
// in that order. lang is omitted when no target language is selected,
// translated is omitted in the original variant, and chapter appears
// only in single-section view.
package deeplink

import (
	"net/url"
	"strings"

	"github.com/ziadkadry99/epub-reader/internal/view"
)

// Encode serializes a presentation state to a query string without the
// leading '?'. Encoding the same state always yields the same string.
func Encode(st view.State) string {
	var parts []string
	add := func(key, val string) {
		parts = append(parts, key+"="+url.QueryEscape(val))
	}

	if st.TargetLanguage != "" {
		add("lang", st.TargetLanguage)
	}
	add("view", string(st.Mode))
	if st.Variant == view.VariantTranslated {
		add("translated", "true")
	}
	if st.Mode == view.ModeSingle && st.ActiveSectionID != "" {
		add("chapter", st.ActiveSectionID)
	}
	return strings.Join(parts, "&")
}

// Decode is the inverse of Encode. It tolerates a leading '?', unknown
// parameters, and out-of-contract values: an unrecognized view falls
// back to "all", and a chapter outside single view is dropped, so any
// decoded state re-encodes to a canonical string.
func Decode(query string) (view.State, error) {
	query = strings.TrimPrefix(query, "?")
	values, err := url.ParseQuery(query)
	if err != nil {
		return view.State{Mode: view.ModeAll, Variant: view.VariantOriginal}, err
	}

	st := view.State{
		Mode:           view.ModeAll,
		Variant:        view.VariantOriginal,
		TargetLanguage: values.Get("lang"),
	}

	switch view.Mode(values.Get("view")) {
	case view.ModeSingle:
		st.Mode = view.ModeSingle
	case view.ModeTranslatedOnly:
		st.Mode = view.ModeTranslatedOnly
	case view.ModeAll, "":
		st.Mode = view.ModeAll
	}

	if values.Get("translated") == "true" {
		st.Variant = view.VariantTranslated
	}

	if st.Mode == view.ModeSingle {
		st.ActiveSectionID = values.Get("chapter")
		if st.ActiveSectionID == "" {
			st.Mode = view.ModeAll
		}
	}

	return st, nil
}
