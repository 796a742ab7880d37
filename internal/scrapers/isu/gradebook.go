package isu

import (
	"context"
	"fmt"
	"isugrades-backend/internal/gradestore"
	"isugrades-backend/pkg/htmlutil"
)

// FetchGradebook scrapes the gradebook of the logged in user without
// persisting it.
func (c *Client) FetchGradebook(ctx context.Context) (Gradebook, error) {
	return c.fetchGradebook(ctx, nil)
}

// fetchGradebook reads the gradebook link from card, the person card page is
// fetched when card is nil.
func (c *Client) fetchGradebook(ctx context.Context, card []byte) (Gradebook, error) {
	if !c.authenticated {
		return Gradebook{}, ErrNotAuthenticated
	}

	if card == nil {
		res, err := c.get(ctx, pathPersonCard)
		if err != nil {
			return Gradebook{}, fmt.Errorf("fetch person card: %w", err)
		}
		card = res.Body()
	}
	doc, err := htmlutil.ParseDocument(card)
	if err != nil {
		return Gradebook{}, fmt.Errorf("%w: parse person card: %w", ErrParseStructure, err)
	}
	link, err := ExtractGradebookLink(doc, c.baseUrl)
	if err != nil {
		return Gradebook{}, err
	}

	endpoint := link.String()
	c.tel.ReportDebug("fetch gradebook", endpoint)

	res, err := c.get(ctx, endpoint)
	if err != nil {
		return Gradebook{}, fmt.Errorf("fetch gradebook: %w", err)
	}
	doc, err = htmlutil.ParseDocument(res.Body())
	if err != nil {
		return Gradebook{}, fmt.Errorf("%w: parse gradebook: %w", ErrParseStructure, err)
	}
	return ParseGradebook(doc)
}

// SyncGradebook scrapes the gradebook of the logged in user and stores it
// unless the user already has one stored. It returns the scraped record and
// whether it was newly stored.
func (c *Client) SyncGradebook(ctx context.Context) (gradestore.Record, bool, error) {
	return c.syncGradebook(ctx, nil)
}

func (c *Client) syncGradebook(ctx context.Context, card []byte) (gradestore.Record, bool, error) {
	ownerId, ok := c.OwnerID()
	if !ok {
		return gradestore.Record{}, false, ErrNoIdentity
	}

	book, err := c.fetchGradebook(ctx, card)
	if err != nil {
		return gradestore.Record{}, false, err
	}
	if len(book.Missing) > 0 {
		c.tel.ReportWarning(report_client_sync, fmt.Errorf("gradebook fields missing"), book.Missing)
	}

	record := gradestore.Record{
		ID:              book.RecordBook,
		OwnerID:         ownerId,
		FullName:        book.FullName,
		StudyCode:       book.StudyCode,
		StudyName:       book.StudyName,
		Faculty:         book.Faculty,
		EnrollmentOrder: book.EnrollmentOrder,
	}
	created, err := c.store.PersistIfAbsent(ctx, record)
	if err != nil {
		return record, false, err
	}
	return record, created, nil
}
