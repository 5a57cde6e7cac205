package engine

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"doctriage/internal/domain"
	"doctriage/internal/port"
)

// splitPages breaks extracted text into per-page entries on form-feed
// markers, the page separator both Tesseract and the AI extraction
// instructions emit. Text without markers is a single page.
func splitPages(text string, confidence float64, source domain.ProviderID) []domain.PageText {
	parts := strings.Split(text, "\f")
	pages := make([]domain.PageText, 0, len(parts))
	for i, part := range parts {
		pages = append(pages, domain.PageText{
			PageNumber: i + 1,
			Text:       part,
			Confidence: confidence,
			Source:     source,
		})
	}
	return pages
}

// Consolidate runs the batching/adaptive extension over a multi-page result.
// Pages the extension flags for re-analysis are re-extracted through the
// recommended provider, then the extension is re-invoked with only the
// corrected pages and results are merged by page number. The loop runs at
// most once; no unbounded retry.
//
// Consolidation failure never discards a successful extraction: the result
// is returned unconsolidated and the failure is logged.
func (e *Engine) Consolidate(ctx context.Context, doc Document, result *domain.ProcessingResult, industry string) {
	if e.consolidator == nil || len(result.Pages) < 2 {
		return
	}

	cons, err := e.consolidator.Consolidate(ctx, port.ConsolidationInput{
		Pages:    result.Pages,
		Industry: industry,
	})
	if err != nil {
		log.Printf("engine: consolidation failed, returning unconsolidated result: %v", err)
		return
	}
	result.Consolidated = cons

	corrected := e.reanalyzePages(ctx, doc, result, cons.SelfEvaluation.PageEvaluations)
	if len(corrected) == 0 {
		return
	}

	mergePages(result, corrected)

	second, err := e.consolidator.Consolidate(ctx, port.ConsolidationInput{
		Pages:    corrected,
		Industry: industry,
	})
	if err != nil {
		log.Printf("engine: re-consolidation failed, keeping first-pass result: %v", err)
		return
	}
	result.Consolidated = mergeConsolidation(cons, second)
}

// reanalyzePages re-extracts every flagged page through its recommended
// method. Individual re-extraction failures are logged and skipped; the
// first-pass text for that page stands.
func (e *Engine) reanalyzePages(ctx context.Context, doc Document, result *domain.ProcessingResult, evals []domain.PageEvaluation) []domain.PageText {
	var corrected []domain.PageText
	for _, eval := range evals {
		if !eval.NeedsReanalysis {
			continue
		}
		method := eval.RecommendedMethod
		p, ok := e.pool.Get(method)
		if !ok {
			log.Printf("engine: page %d wants %s for re-analysis but it is not configured, skipping", eval.PageNumber, method)
			continue
		}

		attemptCtx, cancel := context.WithTimeout(ctx, e.attemptTimeout)
		start := time.Now()
		out, err := p.Invoke(attemptCtx, port.InvokeInput{
			FileBytes:   doc.Bytes,
			ContentType: doc.ContentType,
			Instruction: pageInstruction(doc.Instruction, eval.PageNumber),
		})
		cancel()
		elapsed := time.Since(start).Milliseconds()

		if err != nil {
			e.report(doc.ID, method, domain.ModeCascade, 0, elapsed, err)
			result.AttemptLog = append(result.AttemptLog, domain.Attempt{
				Provider:  method,
				Outcome:   domain.AttemptFailed,
				ElapsedMs: elapsed,
				Error:     fmt.Sprintf("page %d re-analysis: %v", eval.PageNumber, err),
			})
			log.Printf("engine: page %d re-analysis via %s failed: %v", eval.PageNumber, method, err)
			continue
		}

		e.report(doc.ID, method, domain.ModeCascade, out.Confidence, elapsed, nil)
		result.AttemptLog = append(result.AttemptLog, domain.Attempt{
			Provider:  method,
			Outcome:   domain.AttemptSucceeded,
			ElapsedMs: elapsed,
		})
		corrected = append(corrected, domain.PageText{
			PageNumber: eval.PageNumber,
			Text:       out.Text,
			Confidence: out.Confidence,
			Source:     method,
		})
	}
	return corrected
}

// mergePages replaces result pages with corrected versions, keyed by page
// number, keeping page order stable.
func mergePages(result *domain.ProcessingResult, corrected []domain.PageText) {
	byNumber := make(map[int]domain.PageText, len(corrected))
	for _, page := range corrected {
		byNumber[page.PageNumber] = page
	}
	for i, page := range result.Pages {
		if repl, ok := byNumber[page.PageNumber]; ok {
			result.Pages[i] = repl
		}
	}
	sort.Slice(result.Pages, func(i, j int) bool {
		return result.Pages[i].PageNumber < result.Pages[j].PageNumber
	})
}

// mergeConsolidation folds the second-pass output into the first: corrected
// extracted data wins, page evaluations are superseded for re-analyzed
// pages, and the confidence reflects the better pass.
func mergeConsolidation(first, second *domain.ConsolidationResult) *domain.ConsolidationResult {
	merged := *first
	if len(second.ExtractedData) > 0 {
		merged.ExtractedData = second.ExtractedData
	}
	if second.Confidence > merged.Confidence {
		merged.Confidence = second.Confidence
	}
	merged.ProcessingPlan.FallbackNeeded = second.ProcessingPlan.FallbackNeeded
	return &merged
}

func pageInstruction(base string, pageNumber int) string {
	return fmt.Sprintf("%s\n\nRe-extract ONLY page %d of the document. Return only that page's content.", base, pageNumber)
}
