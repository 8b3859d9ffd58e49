package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"simcore/internal/archive"
	"simcore/internal/blob"
	blobcore "simcore/internal/blob/core"
)

func newInspectCmd(a *app) *cobra.Command {
	var (
		driver  string
		fsRoot  string
		bucket  string
		lineage string
		output  string
	)
	cmd := &cobra.Command{
		Use:   "inspect [key]",
		Short: "Summarise an archived system or list archive keys",
		Long: `With a key, prints a summary of the archived system. Without one,
lists the archive keys of --lineage, or of every lineage.

The blob store comes from the SIMCORE_BLOB_* environment; flags override it.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := blobcore.ConfigFromEnv()
			if driver != "" {
				cfg.Driver = blobcore.Driver(driver)
			}
			if fsRoot != "" {
				cfg.FSRoot = fsRoot
			}
			if bucket != "" {
				cfg.S3Bucket = bucket
			}
			store, err := blob.Open(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				keys, err := archive.Keys(cmd.Context(), store, lineage)
				if err != nil {
					return err
				}
				for _, k := range keys {
					fmt.Fprintln(out, k)
				}
				return nil
			}
			sum, err := archive.Summarize(cmd.Context(), store, args[0])
			if err != nil {
				return err
			}
			a.logger.Debug("archive summarised", zap.String("key", args[0]), zap.String("driver", string(store.Driver())))
			return writeSummary(out, output, sum)
		},
	}
	cmd.Flags().StringVar(&driver, "blob-driver", "", "blob driver: fs, s3 or memory")
	cmd.Flags().StringVar(&fsRoot, "fs-root", "", "archive directory when the driver is fs")
	cmd.Flags().StringVar(&bucket, "s3-bucket", "", "bucket when the driver is s3")
	cmd.Flags().StringVar(&lineage, "lineage", "", "only list archives of this lineage")
	cmd.Flags().StringVarP(&output, "output", "o", "json", "summary format: json or yaml")
	return cmd
}

func writeSummary(w io.Writer, format string, sum archive.Summary) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(sum)
	case "yaml":
		enc := yaml.NewEncoder(w)
		if err := enc.Encode(sum); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
