// Package manifest derives the index.json sidecar that ships inside the asset
// bundle: which model container to load, which languages the bundled
// multi-command recognition models support, and the wake commands configured
// at build time.
//
// The schema treats absence as "configure at runtime": a language without an
// explicitly supplied wake phrase gets no commands entry, and a bundle without
// recognized multinet models gets no multinet_model section at all. The
// generator never inserts placeholders.
package manifest
