// Package guide assembles normalized channel timelines into a complete
// guide document for one styling variant.
package guide

import (
	"time"

	"github.com/mkaindl/epggen/internal/config"
	"github.com/mkaindl/epggen/internal/epg"
	"github.com/mkaindl/epggen/internal/timeline"
)

// Variant selects the icon styling of a guide rendering. Program data is
// identical across variants.
type Variant string

const (
	VariantDarkBG  Variant = "for-dark-bg"
	VariantLightBG Variant = "for-light-bg"
)

// Variants lists every rendering produced per run.
func Variants() []Variant {
	return []Variant{VariantDarkBG, VariantLightBG}
}

// Options controls assembly behavior.
type Options struct {
	// OmitEmpty drops channels without any programme instead of including
	// them with an empty timeline.
	OmitEmpty bool
	// Generator metadata stamped on the document.
	Generator    string
	GeneratorURL string
}

// Document is the assembled guide for one variant. Immutable once built.
type Document struct {
	Variant     Variant
	GeneratedAt time.Time
	Channels    []epg.Channel
	Programmes  []epg.Programme

	// MissingIcons lists registry entries the icon manifest had no entry
	// for, so the caller can log them.
	MissingIcons []string

	generator    string
	generatorURL string
}

// Assemble builds a guide document. Pure function of its inputs: channels
// appear in registry order, programmes in timeline order, and missing
// timelines become empty channels unless opts.OmitEmpty is set.
func Assemble(registry []config.Channel, timelines map[string][]timeline.Entry,
	icons *IconSet, generatedAt time.Time, v Variant, opts Options) *Document {

	doc := &Document{
		Variant:      v,
		GeneratedAt:  generatedAt.UTC(),
		generator:    opts.Generator,
		generatorURL: opts.GeneratorURL,
	}

	for _, ch := range registry {
		entries := timelines[ch.ID]
		if len(entries) == 0 && opts.OmitEmpty {
			continue
		}

		xc := epg.Channel{
			ID:          ch.ID,
			DisplayName: []string{ch.Name},
		}
		iconName := ch.Icon
		if iconName == "" {
			iconName = ch.ID
		}
		if icon := icons.Lookup(iconName); icon != nil {
			xc.Icon = icon
		} else {
			doc.MissingIcons = append(doc.MissingIcons, iconName)
		}
		doc.Channels = append(doc.Channels, xc)

		for _, e := range entries {
			doc.Programmes = append(doc.Programmes, epg.Programme{
				Start:   epg.FormatTime(e.Start),
				Stop:    epg.FormatTime(e.End),
				Channel: ch.ID,
				Title: epg.Title{
					Lang:  ch.Language,
					Value: e.Title,
				},
				Desc: e.Desc,
			})
		}
	}

	return doc
}

// TV renders the document as an XMLTV tree ready for serialization.
func (d *Document) TV() *epg.TV {
	return &epg.TV{
		Date:         d.GeneratedAt.Format("20060102150405"),
		Generator:    d.generator,
		GeneratorURL: d.generatorURL,
		Channels:     d.Channels,
		Programmes:   d.Programmes,
	}
}
