// Package modelsource resolves requested multinet model names against an
// esp-sr model directory and works out which shared resources they drag in.
//
// Models live under <model_dir>/multinet_model/<name>. Requested names that do
// not exist on disk are skipped with a warning; resolving none at all is a
// hard failure. Multinet 6 and 7 models additionally require the shared fst
// grapheme model, which is resolved alongside when present.
package modelsource
