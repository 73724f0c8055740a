package terms

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/podscribe/podscribe-api/internal/models"
	"github.com/podscribe/podscribe-api/internal/services/ai"
)

// ExtractorOptions configures the incremental term extractor
type ExtractorOptions struct {
	WindowSize            int // Characters per transcript window
	WindowOverlap         int // Characters shared between adjacent windows
	DefinitionConcurrency int // Max concurrent definition lookups per window
	MaxTermsPerWindow     int // Candidate cap per window
}

// DefaultExtractorOptions returns the standard extraction parameters
func DefaultExtractorOptions() ExtractorOptions {
	return ExtractorOptions{
		WindowSize:            10000,
		WindowOverlap:         500,
		DefinitionConcurrency: 4,
		MaxTermsPerWindow:     10,
	}
}

// WindowProgressFunc reports per-window extraction progress
type WindowProgressFunc func(window, total int)

// Extractor pulls glossary terms out of a transcript with a two-phase call
// pattern: phase 1 asks for candidate names per window, phase 2 fans out
// bounded-concurrency definition lookups for each accepted name. Accepted
// terms are persisted after every window, so a polling caller sees partial
// results and a crash loses only the in-flight window.
type Extractor struct {
	chat     ai.ChatClient
	embedder ai.Embedder
	repo     Repository
	options  ExtractorOptions
}

// NewExtractor creates a term extractor
func NewExtractor(chat ai.ChatClient, embedder ai.Embedder, repo Repository, options ExtractorOptions) *Extractor {
	if options.DefinitionConcurrency <= 0 {
		options.DefinitionConcurrency = 4
	}
	return &Extractor{
		chat:     chat,
		embedder: embedder,
		repo:     repo,
		options:  options,
	}
}

// candidate is one phase-2 result, tagged with its phase-1 position so
// results can be re-sorted into request order after the concurrent fan-out
type candidate struct {
	index       int
	name        string
	context     string
	explanation string
}

// ExtractIncremental extracts terms from the transcript window by window,
// persisting after each window. Returns all terms stored by this call.
func (e *Extractor) ExtractIncremental(ctx context.Context, episode *models.Episode, podcastTitle, transcript string, onProgress WindowProgressFunc) ([]models.Term, error) {
	known, err := e.repo.KnownTermNames(ctx, episode.PodcastID)
	if err != nil {
		return nil, err
	}

	// Case-insensitive running dedup set, seeded from the whole show
	seen := make(map[string]struct{}, len(known))
	for _, name := range known {
		seen[strings.ToLower(name)] = struct{}{}
	}

	windows := SplitWindows(transcript, e.options.WindowSize, e.options.WindowOverlap)
	total := len(windows)

	var stored []models.Term
	for i, window := range windows {
		if onProgress != nil {
			onProgress(i+1, total)
		}

		names, err := e.extractNames(ctx, window, episode.Title, podcastTitle, seen)
		if err != nil {
			return stored, fmt.Errorf("extracting names from window %d/%d: %w", i+1, total, err)
		}
		if len(names) == 0 {
			continue
		}

		accepted, err := e.defineCandidates(ctx, window, names)
		if err != nil {
			return stored, fmt.Errorf("defining terms from window %d/%d: %w", i+1, total, err)
		}

		batch := make([]models.Term, 0, len(accepted))
		for _, c := range accepted {
			term := models.Term{
				EpisodeID:   episode.ID,
				Term:        c.name,
				Context:     c.context,
				Explanation: c.explanation,
				Source:      models.TermSourceAuto,
			}
			if e.embedder != nil {
				vec, err := e.embedder.Embed(ctx, c.name+": "+c.explanation)
				if err != nil {
					return stored, fmt.Errorf("embedding term %q: %w", c.name, err)
				}
				term.Embedding = vec
			}
			batch = append(batch, term)
			seen[strings.ToLower(c.name)] = struct{}{}
		}

		if err := e.repo.CreateBatch(ctx, batch); err != nil {
			return stored, err
		}
		stored = append(stored, batch...)
		log.Printf("[DEBUG] Stored %d terms from window %d/%d for episode %d", len(batch), i+1, total, episode.ID)
	}

	return stored, nil
}

// nameList is the phase-1 JSON shape
type nameList struct {
	Terms []string `json:"terms"`
}

// definition is the phase-2 JSON shape
type definition struct {
	Explanation string `json:"explanation"`
	Context     string `json:"context"`
}

// extractNames runs phase 1 for one window and filters the response
// against the running dedup set
func (e *Extractor) extractNames(ctx context.Context, window, episodeTitle, podcastTitle string, seen map[string]struct{}) ([]string, error) {
	systemPrompt := "You identify technical terms, jargon, and named concepts in podcast transcripts. " +
		"Respond with a JSON object of the form {\"terms\": [\"name\", ...]}."

	var sb strings.Builder
	sb.WriteString("Extract up to ")
	fmt.Fprintf(&sb, "%d", e.options.MaxTermsPerWindow)
	sb.WriteString(" notable terms from this transcript excerpt.\n")
	fmt.Fprintf(&sb, "Do not include the episode subject itself (%q from %q).\n", episodeTitle, podcastTitle)
	if len(seen) > 0 {
		sb.WriteString("Do not include any of these already-known terms: ")
		sb.WriteString(strings.Join(knownSample(seen, 200), ", "))
		sb.WriteString(".\n")
	}
	sb.WriteString("\nTranscript excerpt:\n")
	sb.WriteString(window)

	raw, err := e.chat.CompleteJSON(ctx, systemPrompt, sb.String())
	if err != nil {
		return nil, err
	}

	var parsed nameList
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		// Malformed phase-1 output drops the whole window's candidates
		log.Printf("[WARN] Unparseable term name list, skipping window: %v", err)
		return nil, nil
	}

	var names []string
	for _, name := range parsed.Terms {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, dup := seen[strings.ToLower(name)]; dup {
			continue
		}
		names = append(names, name)
		if len(names) >= e.options.MaxTermsPerWindow {
			break
		}
	}
	return names, nil
}

// defineCandidates runs phase 2: bounded-concurrency definition lookups,
// re-sorted into phase-1 order. Candidates with empty or malformed
// definitions are dropped, not fatal.
func (e *Extractor) defineCandidates(ctx context.Context, window string, names []string) ([]candidate, error) {
	results := make([]*candidate, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.options.DefinitionConcurrency)

	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			systemPrompt := "You write short glossary entries. Respond with a JSON object of the form " +
				"{\"explanation\": \"one or two sentences\", \"context\": \"short quote from the excerpt where the term appears\"}."
			userPrompt := fmt.Sprintf("Define %q as it is used in this transcript excerpt:\n\n%s", name, window)

			raw, err := e.chat.CompleteJSON(gctx, systemPrompt, userPrompt)
			if err != nil {
				return err
			}

			var def definition
			if err := json.Unmarshal([]byte(raw), &def); err != nil || strings.TrimSpace(def.Explanation) == "" {
				log.Printf("[WARN] Dropping term %q: empty or malformed definition", name)
				return nil
			}

			results[i] = &candidate{
				index:       i,
				name:        name,
				context:     strings.TrimSpace(def.Context),
				explanation: strings.TrimSpace(def.Explanation),
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Slice order already matches request order, just drop the holes
	var accepted []candidate
	for _, r := range results {
		if r != nil {
			accepted = append(accepted, *r)
		}
	}
	return accepted, nil
}

// knownSample returns up to n names from the dedup set for prompt inclusion
func knownSample(seen map[string]struct{}, n int) []string {
	names := make([]string, 0, n)
	for name := range seen {
		names = append(names, name)
		if len(names) >= n {
			break
		}
	}
	return names
}

// SplitWindows splits text into fixed-size windows where each window after
// the first repeats the last overlap characters of its predecessor
func SplitWindows(text string, size, overlap int) []string {
	if text == "" {
		return nil
	}
	if size <= 0 {
		return []string{text}
	}
	if overlap >= size {
		overlap = 0
	}

	step := size - overlap
	runes := []rune(text)

	var windows []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		windows = append(windows, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return windows
}
