package service

import (
	"fmt"

	"doctriage/internal/domain"
)

// buildExtractionInstruction composes the provider instruction for a
// classified document. The instruction asks for the structured envelope the
// provider adapters know how to normalize; multi-page output uses form-feed
// separators so the consolidation pass can split pages.
func buildExtractionInstruction(c domain.Classification) string {
	base := fmt.Sprintf(
		"Extract ALL text content from this %s document. Preserve reading order and layout where meaningful. "+
			"Separate pages with a form feed character (\\f). "+
			"Return ONLY a JSON object with no markdown fences: "+
			`{"text": "<full extracted text>", "confidence": <0.0-1.0 your extraction confidence>}`,
		c.DocumentKind)

	if c.HasTable {
		base += " Render tables as aligned plain-text rows, one table row per line."
	}
	if c.HasHandwriting {
		base += " The document contains handwriting; transcribe it as faithfully as possible and lower your confidence accordingly."
	}
	return base
}
