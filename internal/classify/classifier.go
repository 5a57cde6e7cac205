// Package classify produces a structural profile of a document before
// routing. Cheap local heuristics cover most documents; low-confidence
// results escalate to a single call against the best available AI provider.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"doctriage/internal/domain"
	"doctriage/internal/port"
	"doctriage/internal/provider"
	"doctriage/internal/warm"
)

// keywordKinds maps filename keywords to document kinds. Ordered so matching
// is deterministic when a filename contains several keywords.
var keywordKinds = []struct {
	keyword string
	kind    string
}{
	{"invoice", "invoice"},
	{"receipt", "receipt"},
	{"statement", "bank_statement"},
	{"contract", "contract"},
	{"agreement", "contract"},
	{"resume", "resume"},
	{"cv", "resume"},
	{"purchase", "purchase_order"},
	{"po_", "purchase_order"},
	{"tax", "tax_form"},
	{"w2", "tax_form"},
	{"1099", "tax_form"},
	{"form", "form"},
	{"report", "report"},
	{"letter", "letter"},
}

// tableKinds are document kinds that almost always carry tables.
var tableKinds = map[string]bool{
	"invoice":        true,
	"bank_statement": true,
	"purchase_order": true,
	"tax_form":       true,
}

// Size tiers for complexity.
const (
	simpleSizeLimit = 100 * 1024
	mediumSizeLimit = 2 * 1024 * 1024
	complexPages    = 10
)

// Input is a document to classify.
type Input struct {
	FileName            string
	FileBytes           []byte
	DeclaredContentType string
}

// Classifier wires heuristics with the AI-escalation path.
type Classifier struct {
	pool      *provider.Pool
	warmer    *warm.Warmer
	threshold int
}

// New creates a Classifier. Heuristic results below threshold (0-100)
// escalate to one provider call when an AI provider is warm.
func New(pool *provider.Pool, warmer *warm.Warmer, threshold int) *Classifier {
	if threshold <= 0 {
		threshold = 70
	}
	return &Classifier{pool: pool, warmer: warmer, threshold: threshold}
}

// Classify produces a Classification. Heuristic confidence at or above the
// threshold makes no network calls.
func (c *Classifier) Classify(ctx context.Context, in Input) domain.Classification {
	fast := FastClassify(in)
	if fast.Confidence >= c.threshold {
		return fast
	}

	id, p, ok := c.bestAvailableProvider()
	if !ok {
		return fast
	}

	log.Printf("classify: heuristic confidence %d below %d, escalating to %s", fast.Confidence, c.threshold, id)
	escalated, err := c.preClassify(ctx, p, in)
	if err != nil {
		log.Printf("classify: %s pre-classification failed, using basic classification: %v", id, err)
		return basicClassification(in)
	}
	return escalated
}

// bestAvailableProvider returns the highest-priority warm AI provider.
func (c *Classifier) bestAvailableProvider() (domain.ProviderID, port.Provider, bool) {
	for _, id := range c.pool.IDs() {
		if !id.IsAI() {
			continue
		}
		if !c.warmer.IsWarm(id) {
			continue
		}
		if p, ok := c.pool.Get(id); ok {
			return id, p, true
		}
	}
	return "", nil, false
}

// preClassify sends the whole document to the provider and parses its
// structured classification response.
func (c *Classifier) preClassify(ctx context.Context, p port.Provider, in Input) (domain.Classification, error) {
	out, err := p.Invoke(ctx, port.InvokeInput{
		FileBytes:   in.FileBytes,
		ContentType: DetectContentType(in.FileBytes, in.DeclaredContentType),
		Instruction: classifyInstruction,
		MaxTokens:   1024,
	})
	if err != nil {
		return domain.Classification{}, err
	}

	var parsed domain.Classification
	if err := json.Unmarshal([]byte(strings.TrimSpace(out.Text)), &parsed); err != nil {
		return domain.Classification{}, fmt.Errorf("parsing classification response: %w", err)
	}
	return sanitize(parsed, p.ID()), nil
}

// sanitize clamps a provider-produced classification onto valid values.
func sanitize(c domain.Classification, source domain.ProviderID) domain.Classification {
	switch c.Complexity {
	case domain.ComplexitySimple, domain.ComplexityMedium, domain.ComplexityComplex:
	default:
		c.Complexity = domain.ComplexityMedium
	}
	if !c.Recommended.Valid() {
		c.Recommended = domain.ProviderClaude
	}
	if c.Confidence < 0 {
		c.Confidence = 0
	}
	if c.Confidence > 100 {
		c.Confidence = 100
	}
	if c.DocumentKind == "" {
		c.DocumentKind = "unknown"
	}
	c.Reasoning = fmt.Sprintf("classified by %s: %s", source, c.Reasoning)
	return c
}

// FastClassify runs the O(1) heuristics: extension, byte-size tiers, filename
// keywords, and for PDFs a byte-level text-layer sniff. Never touches the
// network.
func FastClassify(in Input) domain.Classification {
	contentType := DetectContentType(in.FileBytes, in.DeclaredContentType)
	kind := kindFromFileName(in.FileName)

	confidence := 35
	var notes []string

	if kind != "" {
		confidence += 30
		notes = append(notes, "filename keyword matched "+kind)
	} else {
		kind = "unknown"
	}

	complexity := complexityFromSize(int64(len(in.FileBytes)))

	recommended := domain.ProviderClaude
	switch contentType {
	case "application/pdf":
		if hasTextLayer(in.FileBytes) {
			// Native PDFs always prefer the fast provider tuned for them.
			recommended = domain.ProviderGemini
			notes = append(notes, "native text layer detected")
		} else {
			notes = append(notes, "no text layer, treating as scanned")
		}
		confidence += 20
		if pageCount(in.FileBytes) > complexPages {
			complexity = domain.ComplexityComplex
			notes = append(notes, "large page count")
		}
		if extensionMatches(in.FileName, contentType) {
			confidence += 10
		}
	case "image/jpeg", "image/png":
		// Raw images prefer the highest-capability vision provider over OCR.
		confidence += 20
		notes = append(notes, "raster image")
	default:
		notes = append(notes, "unrecognized content type "+contentType)
	}

	return domain.Classification{
		DocumentKind: kind,
		Complexity:   complexity,
		HasTable:     tableKinds[kind],
		Recommended:  recommended,
		Confidence:   confidence,
		Reasoning:    "heuristic: " + strings.Join(notes, "; "),
	}
}

// basicClassification is the floor: extension and size only. Used when AI
// pre-classification returns something unparseable. Never calls the network.
func basicClassification(in Input) domain.Classification {
	recommended := domain.ProviderClaude
	if strings.EqualFold(filepath.Ext(in.FileName), ".pdf") || isPDF(in.FileBytes) {
		recommended = domain.ProviderGemini
	}
	return domain.Classification{
		DocumentKind: "unknown",
		Complexity:   complexityFromSize(int64(len(in.FileBytes))),
		Recommended:  recommended,
		Confidence:   30,
		Reasoning:    "basic: extension and size heuristics only",
	}
}

// DetectContentType re-derives the content type from the bytes where
// feasible; the declared type is advisory.
func DetectContentType(b []byte, declared string) string {
	detected := mimetype.Detect(b).String()
	// mimetype includes parameters for some types; keep the bare type.
	if i := strings.Index(detected, ";"); i >= 0 {
		detected = detected[:i]
	}
	switch detected {
	case "application/pdf", "image/jpeg", "image/png":
		return detected
	}
	return declared
}

func kindFromFileName(name string) string {
	lower := strings.ToLower(filepath.Base(name))
	for _, kw := range keywordKinds {
		if strings.Contains(lower, kw.keyword) {
			return kw.kind
		}
	}
	return ""
}

func complexityFromSize(size int64) domain.Complexity {
	switch {
	case size < simpleSizeLimit:
		return domain.ComplexitySimple
	case size < mediumSizeLimit:
		return domain.ComplexityMedium
	default:
		return domain.ComplexityComplex
	}
}

func extensionMatches(name, contentType string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	ft, ok := domain.AllowedExtensions[ext]
	if !ok {
		return false
	}
	return domain.AllowedContentTypes[contentType] == ft
}

const classifyInstruction = `You are a document triage assistant. Examine the attached document and return ONLY a JSON object, no markdown fences, no explanation, with exactly these keys:
{
  "document_kind": "invoice|receipt|bank_statement|contract|resume|form|report|letter|purchase_order|tax_form|unknown",
  "complexity": "simple|medium|complex",
  "has_table": false,
  "has_chart": false,
  "has_handwriting": false,
  "recommended_provider": "claude|gemini|openai",
  "confidence": 0,
  "reasoning": ""
}
Set confidence to an integer 0-100. Recommend "gemini" for clean native-text PDFs, "claude" for scanned documents, handwriting, or degraded images.`
