package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	objecteraser "github.com/skarv/object-eraser"
	"github.com/skarv/object-eraser/internal/config"
	"github.com/skarv/object-eraser/internal/utils"
	"github.com/skarv/object-eraser/pkg/client"
	"github.com/skarv/object-eraser/pkg/describe"
	"github.com/skarv/object-eraser/pkg/lama"
	"github.com/skarv/object-eraser/pkg/morph"
	"github.com/skarv/object-eraser/pkg/overlay"
	"github.com/skarv/object-eraser/pkg/sam"
	"github.com/skarv/object-eraser/pkg/segment"
)

func main() {
	var in, strokesPath, outDir, cfgPath string
	var segURL, inpaintURL, ollamaURL, model string
	var maskOnly, verbose bool
	var quality int

	flag.StringVar(&in, "in", "", "input image path (jpg/png/webp)")
	flag.StringVar(&strokesPath, "strokes", "", "strokes JSON file (normalized points + radius)")
	flag.StringVar(&outDir, "out", "out", "output directory")
	flag.StringVar(&cfgPath, "config", "", "config file (defaults to built-in values)")

	flag.StringVar(&segURL, "seg", "", "segmentation server URL (overrides config; empty = morphology only)")
	flag.StringVar(&inpaintURL, "inpaint", "", "inpainting server URL (overrides config; empty = mask/overlay only)")
	flag.StringVar(&ollamaURL, "ollama", "", "Ollama URL for object labeling (optional)")
	flag.StringVar(&model, "model", "llava:13b", "Ollama vision model for object labeling")

	flag.BoolVar(&maskOnly, "maskonly", false, "skip inpainting even when a server is configured")
	flag.IntVar(&quality, "quality", 90, "JPEG/WebP output quality (1-100)")
	flag.BoolVar(&verbose, "v", false, "debug logging")

	flag.Parse()
	if in == "" || strokesPath == "" {
		log.Fatalf("usage: %s -in input.jpg -strokes strokes.json [-seg url] [-inpaint url] [-out outdir]", filepath.Base(os.Args[0]))
	}

	if verbose {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}

	cfg := config.Default()
	if cfgPath != "" {
		loaded, err := config.LoadFromFile(cfgPath)
		if err != nil {
			log.Fatal(err)
		}
		cfg = loaded
	}
	if segURL != "" {
		cfg.Segment.ServerURL = segURL
	}
	if inpaintURL != "" {
		cfg.Inpaint.ServerURL = inpaintURL
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal(err)
	}

	if err := utils.EnsureDir(outDir); err != nil {
		log.Fatal(err)
	}

	img, err := utils.LoadImage(in)
	if err != nil {
		log.Fatal(err)
	}
	strokes, err := utils.LoadStrokes(strokesPath)
	if err != nil {
		log.Fatal(err)
	}
	log.Printf("loaded %s (%dx%d), %d strokes", in, img.Bounds().Dx(), img.Bounds().Dy(), len(strokes))

	// Wire clients according to flags and config.
	var segClient client.SegmentClient
	if segURL != "" {
		segClient, err = sam.NewClient(cfg.Segment.ServerURL)
		if err != nil {
			log.Fatal(err)
		}
	}
	var inpaintClient client.InpaintClient
	if inpaintURL != "" && !maskOnly {
		inpaintClient, err = lama.NewClient(cfg.Inpaint.ServerURL)
		if err != nil {
			log.Fatal(err)
		}
	}

	eraser := objecteraser.NewWithClients(segClient, inpaintClient)
	eraser.SetMorphConfig(morph.Config{
		CloseIterations: cfg.Morph.CloseIterations,
		MaxGap:          cfg.Morph.MaxGap,
		MinRegionSize:   cfg.Morph.MinRegionSize,
	})
	if segClient != nil {
		eraser.SetSnapConfig(segClient, segment.Config{
			InputSize:     cfg.Segment.InputSize,
			ExpandMargin:  cfg.Segment.ExpandMargin,
			MaskThreshold: float32(cfg.Segment.MaskThreshold),
			FuseThreshold: float32(cfg.Segment.FuseThreshold),
		})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	b := img.Bounds()
	rough, err := eraser.DeriveMask(strokes, b.Dx(), b.Dy())
	if err != nil {
		log.Fatal(err)
	}
	refined := eraser.RefineMask(ctx, img, rough)
	log.Printf("mask: %d px rough, %d px refined", rough.Count(), refined.Count())

	// Always dump the preview so the mask can be inspected without a UI.
	ov := eraser.Overlay(refined)
	previewPath := filepath.Join(outDir, "preview.png")
	if err := utils.SaveImage(overlay.Composite(img, ov), previewPath, quality); err != nil {
		log.Fatal(err)
	}
	log.Printf("wrote %s", previewPath)

	if ollamaURL != "" {
		if box, ok := refined.Bounds(); ok {
			describer, err := describe.New(ollamaURL, model)
			if err != nil {
				log.Printf("describer unavailable: %v", err)
			} else if label, err := describer.Describe(ctx, img, box); err != nil {
				log.Printf("labeling failed: %v", err)
			} else {
				log.Printf("removing: %s", label)
			}
		}
	}

	if inpaintClient == nil {
		return
	}

	result, err := inpaintClient.Inpaint(ctx, img, refined)
	if err != nil {
		log.Fatal(err)
	}
	resultPath := filepath.Join(outDir, "result"+filepath.Ext(in))
	if err := utils.SaveImage(result, resultPath, quality); err != nil {
		log.Fatal(err)
	}
	log.Printf("wrote %s", resultPath)
}
