// Package dedup clones pipeline artifacts between episodes that share the
// same audio source, so re-published or cross-posted audio is only ever
// processed once.
package dedup

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/podscribe/podscribe-api/internal/models"
	"github.com/podscribe/podscribe-api/internal/services/episodes"
	"github.com/podscribe/podscribe-api/internal/services/summaries"
	"github.com/podscribe/podscribe-api/internal/services/terms"
	"github.com/podscribe/podscribe-api/internal/services/transcripts"
	"github.com/podscribe/podscribe-api/internal/services/vectors"
)

// ErrNoDonor indicates no processed episode shares the audio source
var ErrNoDonor = errors.New("no processed episode with matching audio source")

// Resolver copies artifacts from an already-processed episode onto a new
// one. Rows are deep-copied, never shared: deleting the donor later must
// not orphan the recipient. The one exception is the summary audio path,
// which is safe to alias because audio files are content-addressed per
// episode and never rewritten.
type Resolver struct {
	episodes    episodes.Service
	transcripts transcripts.Service
	summaries   summaries.Service
	terms       terms.Service
	vectors     vectors.Service
}

// NewResolver creates a deduplication resolver
func NewResolver(
	episodeSvc episodes.Service,
	transcriptSvc transcripts.Service,
	summarySvc summaries.Service,
	termSvc terms.Service,
	vectorSvc vectors.Service,
) *Resolver {
	return &Resolver{
		episodes:    episodeSvc,
		transcripts: transcriptSvc,
		summaries:   summarySvc,
		terms:       termSvc,
		vectors:     vectorSvc,
	}
}

// Resolve looks for another episode with the identical audio URL that
// already has a transcript, and if found copies its transcript, summary,
// terms, and vector slices onto the target. Returns ErrNoDonor when no
// suitable donor exists; the caller then processes from scratch.
func (r *Resolver) Resolve(ctx context.Context, episode *models.Episode) error {
	siblings, err := r.episodes.SiblingsByAudioURL(ctx, episode.AudioURL, episode.ID)
	if err != nil {
		return err
	}

	for _, donor := range siblings {
		transcript, err := r.transcripts.GetByEpisodeID(ctx, donor.ID)
		if err != nil {
			if errors.Is(err, transcripts.ErrTranscriptNotFound) {
				continue
			}
			return err
		}

		log.Printf("[DEBUG] Episode %d shares audio with processed episode %d, copying artifacts", episode.ID, donor.ID)
		return r.copyArtifacts(ctx, &donor, episode, transcript)
	}

	return ErrNoDonor
}

func (r *Resolver) copyArtifacts(ctx context.Context, donor, target *models.Episode, donorTranscript *models.Transcript) error {
	// Transcript: fresh row, same text
	if err := r.transcripts.Create(ctx, &models.Transcript{
		EpisodeID: target.ID,
		Text:      donorTranscript.Text,
	}); err != nil {
		return fmt.Errorf("copying transcript from episode %d: %w", donor.ID, err)
	}

	// Summary, if the donor has one. AudioPath aliases the donor's file.
	donorSummary, err := r.summaries.GetByEpisodeID(ctx, donor.ID)
	if err != nil && !errors.Is(err, summaries.ErrSummaryNotFound) {
		return err
	}
	if donorSummary != nil {
		if err := r.summaries.Create(ctx, &models.Summary{
			EpisodeID: target.ID,
			Text:      donorSummary.Text,
			AudioPath: donorSummary.AudioPath,
		}); err != nil {
			return fmt.Errorf("copying summary from episode %d: %w", donor.ID, err)
		}
	}

	// Terms: all of them, hidden flags and embeddings included
	donorTerms, err := r.terms.ListAllByEpisodeID(ctx, donor.ID)
	if err != nil {
		return err
	}
	if len(donorTerms) > 0 {
		copies := make([]models.Term, len(donorTerms))
		for i, t := range donorTerms {
			copies[i] = models.Term{
				EpisodeID:            target.ID,
				Term:                 t.Term,
				Context:              t.Context,
				Explanation:          t.Explanation,
				ElaborateExplanation: t.ElaborateExplanation,
				Hidden:               t.Hidden,
				Source:               t.Source,
				Embedding:            cloneVector(t.Embedding),
			}
		}
		if err := r.terms.CreateBatch(ctx, copies); err != nil {
			return fmt.Errorf("copying %d terms from episode %d: %w", len(copies), donor.ID, err)
		}
	}

	// Vector slices, re-tagged with the target's show
	donorSlices, err := r.vectors.ListByEpisodeID(ctx, donor.ID)
	if err != nil {
		return err
	}
	if len(donorSlices) > 0 {
		copies := make([]models.VectorSlice, len(donorSlices))
		for i, s := range donorSlices {
			copies[i] = models.VectorSlice{
				EpisodeID:  target.ID,
				PodcastID:  target.PodcastID,
				ChunkIndex: s.ChunkIndex,
				Text:       s.Text,
				Embedding:  cloneVector(s.Embedding),
			}
		}
		if err := r.vectors.CreateBatch(ctx, copies); err != nil {
			return fmt.Errorf("copying %d vector slices from episode %d: %w", len(copies), donor.ID, err)
		}
	}

	// Local audio path aliases the donor's download so a later stage
	// doesn't fetch the same bytes again
	if donor.LocalAudioPath != "" && target.LocalAudioPath == "" {
		if err := r.episodes.SetLocalAudioPath(ctx, target.ID, donor.LocalAudioPath); err != nil {
			return err
		}
		target.LocalAudioPath = donor.LocalAudioPath
	}

	log.Printf("[DEBUG] Copied artifacts from episode %d to episode %d (%d terms, %d slices)",
		donor.ID, target.ID, len(donorTerms), len(donorSlices))
	return nil
}

func cloneVector(v models.Vector) models.Vector {
	if v == nil {
		return nil
	}
	out := make(models.Vector, len(v))
	copy(out, v)
	return out
}
