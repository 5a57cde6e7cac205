package domain

// ProviderID identifies an external content-understanding provider.
type ProviderID string

const (
	// ProviderClaude is the highest-capability vision provider, preferred for
	// scanned documents, images, and anything with handwriting.
	ProviderClaude ProviderID = "claude"
	// ProviderGemini is the fast multimodal provider, tuned for PDFs that
	// carry a native text layer.
	ProviderGemini ProviderID = "gemini"
	// ProviderOpenAI is the general-purpose multimodal provider.
	ProviderOpenAI ProviderID = "openai"
	// ProviderOCR is the local Tesseract engine. Last resort only.
	ProviderOCR ProviderID = "ocr"
)

// PriorityOrder is the static provider preference used when a recommended
// provider is unavailable. OCR is always last; it is reachable only when no
// AI provider can serve the document.
func PriorityOrder() []ProviderID {
	return []ProviderID{ProviderClaude, ProviderGemini, ProviderOpenAI, ProviderOCR}
}

// IsAI reports whether the provider is a model-backed extractor (as opposed
// to the local OCR engine).
func (p ProviderID) IsAI() bool {
	return p != ProviderOCR && p != ""
}

// Valid reports whether the provider ID is one of the supported providers.
func (p ProviderID) Valid() bool {
	switch p {
	case ProviderClaude, ProviderGemini, ProviderOpenAI, ProviderOCR:
		return true
	}
	return false
}

// Complexity is the structural complexity tier of a document.
type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityMedium  Complexity = "medium"
	ComplexityComplex Complexity = "complex"
)

// Multiplier returns the time-estimate multiplier for the tier.
func (c Complexity) Multiplier() float64 {
	switch c {
	case ComplexitySimple:
		return 0.5
	case ComplexityComplex:
		return 1.8
	default:
		return 1.0
	}
}

// ExtractionMode selects how the execution engine drives providers.
type ExtractionMode string

const (
	// ModeCascade tries providers sequentially in candidate order.
	ModeCascade ExtractionMode = "cascade"
	// ModeRace invokes all warm providers concurrently and takes the first
	// success within the racing deadline.
	ModeRace ExtractionMode = "race"
)

// AttemptOutcome records how a single provider attempt ended.
type AttemptOutcome string

const (
	AttemptSucceeded AttemptOutcome = "succeeded"
	AttemptFailed    AttemptOutcome = "failed"
	AttemptSkipped   AttemptOutcome = "skipped"
	AttemptTimedOut  AttemptOutcome = "timed_out"
)

// FileType represents the allowed file types for extraction.
type FileType string

const (
	FileTypePDF FileType = "pdf"
	FileTypeJPG FileType = "jpg"
	FileTypePNG FileType = "png"
)

// AllowedContentTypes maps MIME content types back to FileType.
var AllowedContentTypes = map[string]FileType{
	"application/pdf": FileTypePDF,
	"image/jpeg":      FileTypeJPG,
	"image/png":       FileTypePNG,
}

// AllowedExtensions maps file extensions (without dot) to FileType.
var AllowedExtensions = map[string]FileType{
	"pdf":  FileTypePDF,
	"jpg":  FileTypeJPG,
	"jpeg": FileTypeJPG,
	"png":  FileTypePNG,
}
