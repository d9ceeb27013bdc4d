package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"srpack/internal/assetbundle"
	"srpack/internal/manifest"
	"srpack/internal/srmodel"
)

func newInspectCommand() *cobra.Command {
	var showManifest bool

	cmd := &cobra.Command{
		Use:   "inspect <file>",
		Short: "Decode an asset bundle or model container",
		Long: `Inspect parses a built artifact and prints its index. Asset bundles
(assets.bin) and model containers (srmodels.bin) are detected by format;
--manifest additionally pretty-prints an embedded index.json.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			image, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if bundle, bundleErr := assetbundle.Parse(image); bundleErr == nil {
				return printBundle(out, args[0], bundle, showManifest)
			}
			container, containerErr := srmodel.Parse(image)
			if containerErr == nil {
				printContainer(out, args[0], container)
				return nil
			}
			return fmt.Errorf("%s is neither a valid asset bundle nor a model container: %w", args[0], containerErr)
		},
	}

	cmd.Flags().BoolVar(&showManifest, "manifest", false, "Pretty-print the embedded manifest")

	return cmd
}

func printBundle(out io.Writer, path string, bundle *assetbundle.Bundle, showManifest bool) error {
	fmt.Fprintf(out, "%s: asset bundle, %d files, payload %s, checksum 0x%04x\n\n",
		path, bundle.TotalFiles, formatBytes(int64(bundle.PayloadLength)), bundle.Checksum)

	rows := make([][]string, 0, len(bundle.Records))
	for _, rec := range bundle.Records {
		rows = append(rows, []string{
			rec.Name,
			formatBytes(int64(rec.Size)),
			strconv.FormatUint(uint64(rec.Offset), 10),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Name", "Size", "Offset"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight},
	))

	if !showManifest {
		return nil
	}
	for _, rec := range bundle.Records {
		if !strings.HasSuffix(rec.Name, ".json") {
			continue
		}
		var decoded manifest.Manifest
		if err := json.Unmarshal(bundle.Data(rec), &decoded); err != nil {
			continue
		}
		pretty, err := json.MarshalIndent(decoded, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\n%s:\n%s\n", rec.Name, pretty)
		return nil
	}
	fmt.Fprintln(out, "\nNo manifest found in bundle")
	return nil
}

func printContainer(out io.Writer, path string, container *srmodel.Container) {
	fmt.Fprintf(out, "%s: model container, %d models, header %s, data %s\n\n",
		path, len(container.Models),
		formatBytes(int64(container.HeaderLength)), formatBytes(int64(container.DataLength)))

	var rows [][]string
	for _, model := range container.Models {
		for _, file := range model.Files {
			rows = append(rows, []string{
				model.Name,
				file.Name,
				formatBytes(int64(file.Length)),
				strconv.FormatUint(uint64(file.Offset), 10),
			})
		}
		if len(model.Files) == 0 {
			rows = append(rows, []string{model.Name, "(empty)", "", ""})
		}
	}
	fmt.Fprintln(out, renderTable(
		[]string{"Model", "File", "Size", "Offset"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight},
	))
}
