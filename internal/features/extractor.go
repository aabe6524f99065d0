package features

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"tvrecs/internal/language"
	"tvrecs/internal/logging"
	"tvrecs/internal/media"
)

// LanguageSource reports the language code of a show's primary audio stream.
// An empty code means no audio metadata.
type LanguageSource interface {
	AudioLanguage(ctx context.Context, show media.Show) (string, error)
}

// KeywordSource returns descriptive keywords for a show.
type KeywordSource interface {
	Keywords(ctx context.Context, show media.Show) ([]string, error)
}

// CastSource returns the billed cast of a show whose listing carried none.
type CastSource interface {
	Cast(ctx context.Context, show media.Show) ([]string, error)
}

// Extractor builds Records. A nil source disables the corresponding field.
type Extractor struct {
	languages LanguageSource
	keywords  KeywordSource
	cast      CastSource
	logger    *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLanguageSource enables audio language detection.
func WithLanguageSource(src LanguageSource) Option {
	return func(e *Extractor) { e.languages = src }
}

// WithKeywordSource enables keyword lookups.
func WithKeywordSource(src KeywordSource) Option {
	return func(e *Extractor) { e.keywords = src }
}

// WithCastSource enables cast lookups for shows listed without cast.
func WithCastSource(src CastSource) Option {
	return func(e *Extractor) { e.cast = src }
}

// NewExtractor constructs an Extractor.
func NewExtractor(logger *slog.Logger, opts ...Option) *Extractor {
	e := &Extractor{logger: logging.NewComponentLogger(logger, "features")}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract returns the feature record of show. It never fails: sub-field errors
// are logged and the field is left empty or NotAvailable.
func (e *Extractor) Extract(ctx context.Context, show media.Show) Record {
	record := Record{
		Genres:   normalizeSet(show.Genres),
		Studio:   strings.ToLower(strings.TrimSpace(show.Studio)),
		Cast:     normalizeCast(e.castOf(ctx, show)),
		Language: e.language(ctx, show),
	}
	if e.keywords != nil {
		keywords, err := e.safeKeywords(ctx, show)
		if err != nil {
			logging.WarnWithContext(e.logger, "keyword lookup failed; keywords omitted", "keywords_unavailable",
				logging.String("title", show.Label()),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check tmdb.api_key and network access"),
				logging.String(logging.FieldImpact, "show scored without keyword overlap"),
			)
		}
		record.Keywords = normalizeSet(keywords)
	}
	return record
}

// Sources names the optional sources in use. Records built under different
// sources are not interchangeable.
func (e *Extractor) Sources() string {
	parts := []string{"base"}
	if e.cast != nil {
		parts = append(parts, "cast")
	}
	if e.languages != nil {
		parts = append(parts, "language")
	}
	if e.keywords != nil {
		parts = append(parts, "keywords")
	}
	return strings.Join(parts, "+")
}

func (e *Extractor) castOf(ctx context.Context, show media.Show) []string {
	if len(show.Cast) > 0 || e.cast == nil {
		return show.Cast
	}
	cast, err := e.safeCast(ctx, show)
	if err != nil {
		logging.WarnWithContext(e.logger, "cast lookup failed; cast omitted", "cast_unavailable",
			logging.String("title", show.Label()),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check plex connectivity"),
			logging.String(logging.FieldImpact, "show scored without actor overlap"),
		)
		return nil
	}
	return cast
}

func (e *Extractor) language(ctx context.Context, show media.Show) string {
	if name := strings.TrimSpace(show.Language); name != "" {
		return name
	}
	if e.languages == nil {
		return NotAvailable
	}
	code, err := e.safeLanguage(ctx, show)
	if err != nil {
		logging.WarnWithContext(e.logger, "audio language lookup failed", "language_unavailable",
			logging.String("title", show.Label()),
			logging.Error(err),
			logging.String(logging.FieldImpact, "language excluded from scoring for this show"),
		)
		return NotAvailable
	}
	if name := language.DisplayName(code); name != "" {
		return name
	}
	return NotAvailable
}

func (e *Extractor) safeLanguage(ctx context.Context, show media.Show) (code string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("language source panic: %v", r)
		}
	}()
	return e.languages.AudioLanguage(ctx, show)
}

func (e *Extractor) safeKeywords(ctx context.Context, show media.Show) (keywords []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("keyword source panic: %v", r)
		}
	}()
	return e.keywords.Keywords(ctx, show)
}

func (e *Extractor) safeCast(ctx context.Context, show media.Show) (cast []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cast source panic: %v", r)
		}
	}()
	return e.cast.Cast(ctx, show)
}
