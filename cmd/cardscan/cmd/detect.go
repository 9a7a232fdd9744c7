package cmd

import (
	"encoding/json"
	"fmt"
	"image"
	"log/slog"

	"github.com/MeKo-Tech/cardscan/internal/detector"
	"github.com/MeKo-Tech/cardscan/internal/frame"
	"github.com/MeKo-Tech/cardscan/internal/utils"
	"github.com/spf13/cobra"
)

// DetectResult is printed by the detect command.
type DetectResult struct {
	File   string          `json:"file"`
	Width  int             `json:"width"`
	Height int             `json:"height"`
	Window image.Rectangle `json:"window"`
	Region detector.Region `json:"region"`
}

// detectCmd represents the detect command.
var detectCmd = &cobra.Command{
	Use:   "detect <image>",
	Short: "Locate the title band of a single frame",
	Long: `Locate the title band of a single frame and print the chosen region as
JSON. The search window and region can be drawn onto a copy of the frame with
--overlay, and the band itself saved with --crop.

Examples:
  cardscan detect frame.png
  cardscan detect frame.png --overlay overlay.png --crop band.png`,
	Args: cobra.ExactArgs(1),
	RunE: runDetect,
}

func runDetect(cmd *cobra.Command, args []string) error {
	cfg, err := commandConfig()
	if err != nil {
		return err
	}

	f, err := frame.Load(args[0])
	if err != nil {
		return err
	}

	det := newDetector(cfg)
	window := det.SearchWindow(f)
	region := det.Detect(f, window)
	slog.Debug("Detected title band", "file", args[0], "rect", region.Rect, "score", region.Score, "too_empty", region.TooEmpty)

	if path, _ := cmd.Flags().GetString("overlay"); path != "" {
		regionHex, _ := cmd.Flags().GetString("region-color")
		windowHex, _ := cmd.Flags().GetString("window-color")
		regionColor, err := utils.ParseHexColor(regionHex)
		if err != nil {
			return fmt.Errorf("invalid --region-color: %w", err)
		}
		windowColor, err := utils.ParseHexColor(windowHex)
		if err != nil {
			return fmt.Errorf("invalid --window-color: %w", err)
		}
		if err := utils.SavePNG(detector.RenderOverlay(f, window, region, regionColor, windowColor), path); err != nil {
			return fmt.Errorf("failed to write overlay: %w", err)
		}
	}

	if path, _ := cmd.Flags().GetString("crop"); path != "" {
		if err := utils.SavePNG(region.Crop(f), path); err != nil {
			return fmt.Errorf("failed to write crop: %w", err)
		}
	}

	b := f.Bounds()
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(DetectResult{
		File:   args[0],
		Width:  b.Dx(),
		Height: b.Dy(),
		Window: window,
		Region: region,
	})
}

func init() {
	rootCmd.AddCommand(detectCmd)
	detectCmd.Flags().String("overlay", "", "write the frame with window and region outlined to this PNG")
	detectCmd.Flags().String("crop", "", "write the detected title band to this PNG")
	detectCmd.Flags().String("region-color", "#FF0000", "overlay region color (hex)")
	detectCmd.Flags().String("window-color", "#00FF00", "overlay search window color (hex)")
}
