package drafts

import (
	"context"
	"strings"

	"github.com/almostacms/almostacms/internal/content"
	"github.com/almostacms/almostacms/internal/log"
	"github.com/almostacms/almostacms/internal/site"
)

// Recording wraps a persister so every successful save also records a
// revision and clears the section's draft.
type Recording struct {
	next  site.Persister
	store *Store
	site  string
}

var _ site.Persister = (*Recording)(nil)

// NewRecording wraps next. siteKey identifies the site in the database.
func NewRecording(next site.Persister, store *Store, siteKey string) *Recording {
	return &Recording{next: next, store: store, site: siteKey}
}

// Save implements site.Persister. History bookkeeping failures are logged,
// never returned: the document itself was saved.
func (r *Recording) Save(ctx context.Context, dataFile string, doc content.Value) error {
	if err := r.next.Save(ctx, dataFile, doc); err != nil {
		return err
	}
	id := strings.TrimSuffix(dataFile, ".json")
	if _, err := r.store.AddRevision(ctx, r.site, id, doc, site.CommitMessage(dataFile)); err != nil {
		log.ErrorErr(log.CatDrafts, "failed to record revision", err, "section", id)
	}
	if err := r.store.DeleteDraft(ctx, r.site, id); err != nil {
		log.ErrorErr(log.CatDrafts, "failed to clear draft", err, "section", id)
	}
	return nil
}
