// Command gpxtrack parses a GPX file the way the upload endpoint does and
// prints the resulting track.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"backend-cartorando/internal/gpx"
	"backend-cartorando/internal/mapview"
	"backend-cartorando/internal/shared/geo"
	"backend-cartorando/internal/track"

	"github.com/spf13/cobra"
)

const (
	formatTrack   = "track"
	formatGeoJSON = "geojson"
	formatGPX     = "gpx"
	formatLength  = "length"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "gpxtrack [file|-]",
		Short: "Print the track found in a GPX file",
		Long: `Reads a GPX document, collects every trkpt in document order and prints
the result as [lat,lng] pairs, a GeoJSON FeatureCollection, a normalized GPX
file or its length in kilometres. Malformed files print an empty track.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "-"
			if len(args) == 1 {
				name = args[0]
			}
			t, err := readTrack(cmd.InOrStdin(), name)
			if err != nil {
				return err
			}
			return printTrack(cmd.OutOrStdout(), t, format, trackName(name))
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatTrack, "output format: track, geojson, gpx or length")
	return cmd
}

func readTrack(stdin io.Reader, name string) (track.Track, error) {
	if name == "-" {
		return gpx.ParseReader(stdin), nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return gpx.ParseReader(f), nil
}

func trackName(path string) string {
	if path == "-" {
		return ""
	}
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}

func printTrack(w io.Writer, t track.Track, format, name string) error {
	switch format {
	case formatTrack:
		if t == nil {
			t = track.Track{}
		}
		return json.NewEncoder(w).Encode(t)
	case formatGeoJSON:
		raw, err := mapview.PathCollection(t).MarshalJSON()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(raw))
		return err
	case formatGPX:
		raw, err := gpx.Encode(t, name)
		if err != nil {
			return err
		}
		_, err = w.Write(raw)
		return err
	case formatLength:
		_, err := fmt.Fprintf(w, "%d points, %.3f km\n", len(t), geo.LengthKm(t))
		return err
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}
