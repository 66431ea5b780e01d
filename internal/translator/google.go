package translator

import (
	"context"
	"fmt"
	"html"
	"time"

	translate "cloud.google.com/go/translate"
	"golang.org/x/text/language"
	"google.golang.org/api/option"
)

// GoogleService translates through the Cloud Translation API. It is a
// machine-translation backend: it consumes Request.Text (the stripped
// document body), not the LLM prompt, and cannot follow glossary or
// style instructions. Placeholder tokens survive MT unchanged, which is
// what makes this backend usable at all for draft passes.
type GoogleService struct{}

func NewGoogleService() *GoogleService {
	return &GoogleService{}
}

func (s *GoogleService) Name() string {
	return "google"
}

func (s *GoogleService) Translate(ctx context.Context, cfg Config, req Request) (*Result, error) {
	result := &Result{ServiceName: s.Name()}
	start := time.Now()
	defer func() { result.Latency = time.Since(start) }()

	targetLangTag, err := language.Parse(req.TargetLang)
	if err != nil {
		return nil, &ServiceError{Service: s.Name(), Message: fmt.Sprintf("invalid target language: %v", err)}
	}

	opts := []option.ClientOption{}
	if cfg.Credentials != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.Credentials))
	}

	client, err := translate.NewClient(ctx, opts...)
	if err != nil {
		return nil, &ServiceError{Service: s.Name(), Message: fmt.Sprintf("failed to create client: %v", err)}
	}
	defer client.Close()

	translations, err := client.Translate(ctx, []string{req.Text}, targetLangTag, &translate.Options{
		Source: language.English,
		Format: translate.Text,
	})
	if err != nil {
		return nil, transportError(s.Name(), err)
	}
	if len(translations) == 0 {
		return nil, &ServiceError{Service: s.Name(), Message: "no translation returned", Transient: true}
	}

	result.TranslatedText = html.UnescapeString(translations[0].Text)
	result.Metadata = map[string]string{"format": "text"}
	return result, nil
}

func (s *GoogleService) IsAvailable(ctx context.Context) error {
	return nil
}
