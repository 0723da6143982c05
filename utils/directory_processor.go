package utils

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

type MediaResult struct {
	MediaFile string    `xml:"MediaFile"`
	MIMEType  string    `xml:"MIMEType"`
	Outcomes  []Outcome `xml:"Outcome"`
}

type MediaResults struct {
	XMLName xml.Name      `xml:"MediaResults"`
	Results []MediaResult `xml:"MediaResult"`
}

// ProcessDirectory runs every applicable variant over the media files in dir
// and writes the results to outputXML after each file. Files whose results
// already hold a parsed outcome for every applicable variant are skipped.
func ProcessDirectory(
	ctx context.Context,
	dir string,
	outputXML string,
	variants []Variant,
	analyzer Analyzer,
	logger *slog.Logger,
) (MediaResults, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var results MediaResults

	// Read existing XML file if it exists
	if _, err := os.Stat(outputXML); err == nil {
		file, err := os.Open(outputXML)
		if err != nil {
			return MediaResults{}, fmt.Errorf("failed to open existing XML file: %v", err)
		}
		defer file.Close()

		decoder := xml.NewDecoder(file)
		if err := decoder.Decode(&results); err != nil {
			return MediaResults{}, fmt.Errorf("failed to decode existing XML: %v", err)
		}
	}

	processedFiles := make(map[string]int)
	for i, result := range results.Results {
		processedFiles[result.MediaFile] = i
	}

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		mimeType := MIMETypeForFile(path)
		applicable := applicableVariants(variants, mimeType)
		if len(applicable) == 0 {
			return nil
		}

		var existingResult *MediaResult
		index, exists := processedFiles[path]
		if exists {
			existingResult = &results.Results[index]
		}
		if exists && len(pendingVariants(existingResult, applicable)) == 0 {
			logger.Info("file already processed, skipping", "file", path)
			return nil
		}

		result, err := processMediaFile(ctx, path, mimeType, applicable, analyzer, existingResult)
		if err != nil {
			return fmt.Errorf("failed to process media file '%s': %w", path, err)
		}

		if exists {
			results.Results[index] = result
		} else {
			results.Results = append(results.Results, result)
			processedFiles[path] = len(results.Results) - 1
		}

		if err := writeXMLFile(outputXML, results); err != nil {
			return fmt.Errorf("failed to write XML file: %v", err)
		}
		logger.Info("results written", "file", path, "output", outputXML)
		return nil
	})

	if err != nil {
		return MediaResults{}, err
	}

	return results, nil
}

func processMediaFile(
	ctx context.Context,
	mediaFile string,
	mimeType string,
	variants []Variant,
	analyzer Analyzer,
	existingResult *MediaResult,
) (MediaResult, error) {
	result := MediaResult{MediaFile: mediaFile, MIMEType: mimeType}
	if existingResult != nil {
		result = *existingResult
		result.Outcomes = append([]Outcome(nil), existingResult.Outcomes...)
	}

	pending := pendingVariants(&result, variants)
	if len(pending) == 0 {
		return result, nil
	}

	data, err := os.ReadFile(mediaFile)
	if err != nil {
		return MediaResult{}, fmt.Errorf("failed to read media: %w", err)
	}
	asset := MediaAsset{Name: filepath.Base(mediaFile), MIMEType: mimeType, Data: data}

	for _, variant := range pending {
		outcome, err := analyzer.Analyze(ctx, asset, variant)
		if err != nil {
			return MediaResult{}, err
		}
		result.Outcomes = replaceOutcome(result.Outcomes, *outcome)
	}

	return result, nil
}

func applicableVariants(variants []Variant, mimeType string) []Variant {
	var applicable []Variant
	for _, v := range variants {
		if mimeType != "" && v.Accepts(mimeType) {
			applicable = append(applicable, v)
		}
	}
	return applicable
}

// pendingVariants lists the variants without a parsed outcome in result.
func pendingVariants(result *MediaResult, variants []Variant) []Variant {
	done := make(map[string]bool)
	for _, outcome := range result.Outcomes {
		if !outcome.Failed() {
			done[outcome.Variant] = true
		}
	}
	var pending []Variant
	for _, v := range variants {
		if !done[v.Name] {
			pending = append(pending, v)
		}
	}
	return pending
}

func replaceOutcome(outcomes []Outcome, outcome Outcome) []Outcome {
	outcome.BestSceneStill = nil
	for i := range outcomes {
		if outcomes[i].Variant == outcome.Variant {
			outcomes[i] = outcome
			return outcomes
		}
	}
	return append(outcomes, outcome)
}

func writeXMLFile(outputXML string, results MediaResults) error {
	file, err := os.Create(outputXML)
	if err != nil {
		return fmt.Errorf("failed to create XML file '%s': %v", outputXML, err)
	}
	defer file.Close()

	encoder := xml.NewEncoder(file)
	encoder.Indent("", "  ")
	if err := encoder.Encode(results); err != nil {
		return fmt.Errorf("failed to encode XML to '%s': %v", outputXML, err)
	}

	if err := encoder.Flush(); err != nil {
		return fmt.Errorf("failed to flush XML encoder: %v", err)
	}

	return nil
}
