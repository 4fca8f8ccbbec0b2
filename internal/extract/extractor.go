package extract

import "context"

// Extractor is the document extractor used by the session service.
type Extractor struct {
	Relay Relay
}

// New returns an Extractor fetching websites through relay.
func New(relay Relay) *Extractor {
	return &Extractor{Relay: relay}
}

func (e *Extractor) PDFText(ctx context.Context, data []byte) (string, error) {
	return PDFText(ctx, data)
}

func (e *Extractor) WebsiteText(ctx context.Context, url string) (string, error) {
	return WebsiteText(ctx, e.Relay, url)
}
