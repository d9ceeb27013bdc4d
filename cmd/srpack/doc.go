// Command srpack builds, inspects, and tracks flash asset bundles for
// esp-sr based voice devices.
//
// The build command stages the requested multinet models into a scratch
// workspace, packs them into srmodels.bin, generates the index.json manifest,
// and wraps everything into assets.bin. inspect decodes either artifact for
// humans; history lists past builds; config manages the TOML configuration.
package main
