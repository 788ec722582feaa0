// Command extract-offer runs the offer extractor against a local PDF and prints
// the resulting draft as JSON. It never touches stored requests.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	openaisdk "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/garyjia/procuro/internal/domain/entity"
	"github.com/garyjia/procuro/internal/domain/merge"
	"github.com/garyjia/procuro/internal/infrastructure/catalog"
	"github.com/garyjia/procuro/internal/infrastructure/external/openai"
)

type output struct {
	Draft          *entity.ExtractionDraft `json:"draft"`
	CommodityGroup string                  `json:"commodity_group,omitempty"`
	Confidence     float64                 `json:"confidence,omitempty"`
	Elapsed        string                  `json:"elapsed"`
}

func main() {
	apiKey := flag.String("key", "", "OpenAI API key (or set OPENAI_API_KEY)")
	model := flag.String("model", "gpt-4o-mini", "text extraction model")
	visionModel := flag.String("vision-model", "gpt-4o", "vision extraction model")
	vision := flag.Bool("vision", false, "send rendered pages instead of extracted text")
	maxPages := flag.Int("max-pages", 5, "maximum pages to read")
	classify := flag.Bool("classify", false, "also classify the extracted order lines")
	promptsPath := flag.String("prompts", "", "optional prompts YAML overriding the built-in prompts")
	timeout := flag.Duration("timeout", 2*time.Minute, "API call timeout")
	verbose := flag.Bool("verbose", false, "verbose logging")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: extract-offer [flags] offer.pdf")
		os.Exit(2)
	}

	var logger *zap.Logger
	var err error
	if *verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if *apiKey == "" {
		*apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if *apiKey == "" {
		fmt.Fprintln(os.Stderr, "ERROR: OPENAI_API_KEY not set and no --key flag provided")
		os.Exit(1)
	}

	pdf, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to read %s: %v\n", flag.Arg(0), err)
		os.Exit(1)
	}

	prompts := openai.DefaultPrompts()
	if *promptsPath != "" {
		if prompts, err = openai.LoadPrompts(*promptsPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load prompts: %v\n", err)
			os.Exit(1)
		}
	}

	client := openaisdk.NewClient(*apiKey)
	extractor := openai.NewExtractor(client, openai.NewFitzReader(logger), prompts, openai.ExtractorConfig{
		Model:       *model,
		VisionModel: *visionModel,
		UseVision:   *vision,
		MaxPages:    *maxPages,
	}, logger)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	start := time.Now()
	draft, err := extractor.Extract(ctx, pdf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Extraction failed: %v\n", err)
		os.Exit(1)
	}

	out := output{Draft: draft}
	if *classify && len(draft.OrderLines) > 0 {
		commodities := catalog.NewStatic()
		classifier := openai.NewClassifier(client, commodities, prompts, *model, logger)
		c, err := classifier.Classify(ctx, merge.ClassificationText(draft.OrderLines))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Classification failed: %v\n", err)
			os.Exit(1)
		}
		out.CommodityGroup = fmt.Sprintf("%s (%s)", c.CommodityGroupID, commodities.Display(c.CommodityGroupID))
		out.Confidence = c.Confidence
	}
	out.Elapsed = time.Since(start).Round(time.Millisecond).String()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write output: %v\n", err)
		os.Exit(1)
	}
}
