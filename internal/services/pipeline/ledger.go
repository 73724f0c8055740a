package pipeline

// runLedger records which artifacts the current run created, so a
// cancellation cleanup removes exactly this run's additions and never
// touches artifacts that existed before the run started (previous partial
// runs, deduplication copies). This resolves the cleanup-scope question
// in favor of the conservative option: delete only what we made.
type runLedger struct {
	downloadedAudio   bool
	createdTranscript bool
	createdSummary    bool
	createdTerms      bool
	createdVectors    bool
}

func (l *runLedger) anything() bool {
	return l.downloadedAudio || l.createdTranscript || l.createdSummary || l.createdTerms || l.createdVectors
}
