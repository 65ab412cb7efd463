package activitypub

import (
	"errors"
	"fmt"
)

// ErrInvalidPage is returned for out-of-range or non-numeric outbox
// page parameters.
var ErrInvalidPage = errors.New("invalid outbox page")

// OutboxPageSize is the number of activities per outbox page.
const OutboxPageSize = 20

// OrderedCollection is the unpaged outbox envelope.
type OrderedCollection struct {
	Context    interface{} `json:"@context"`
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	TotalItems int         `json:"totalItems"`
	First      string      `json:"first,omitempty"`
	Last       string      `json:"last,omitempty"`
}

// OrderedCollectionPage is one page of outbox activities.
type OrderedCollectionPage struct {
	Context      interface{} `json:"@context"`
	ID           string      `json:"id"`
	Type         string      `json:"type"`
	PartOf       string      `json:"partOf"`
	Next         string      `json:"next,omitempty"`
	Prev         string      `json:"prev,omitempty"`
	OrderedItems []*Activity `json:"orderedItems"`
}

// OutboxCollection returns the unpaged OrderedCollection envelope
// pointing at the first and last pages.
func (f *Federation) OutboxCollection() (*OrderedCollection, error) {
	err, total := f.database.CountMessages()
	if err != nil {
		return nil, err
	}

	outboxIRI := f.identity.OutboxIRI()
	collection := &OrderedCollection{
		Context:    ActivityStreamsContext,
		ID:         outboxIRI,
		Type:       "OrderedCollection",
		TotalItems: total,
	}

	if total > 0 {
		collection.First = fmt.Sprintf("%s?page=1", outboxIRI)
		collection.Last = fmt.Sprintf("%s?page=%d", outboxIRI, lastPage(total))
	}

	return collection, nil
}

// OutboxPage returns one page of the outbox, most recent activities
// first. Pages are numbered from 1; anything out of range is
// ErrInvalidPage.
func (f *Federation) OutboxPage(page int) (*OrderedCollectionPage, error) {
	err, total := f.database.CountMessages()
	if err != nil {
		return nil, err
	}

	last := lastPage(total)
	if page < 1 || page > last {
		return nil, fmt.Errorf("%w: %d of %d", ErrInvalidPage, page, last)
	}

	err, messages := f.database.ReadMessagesPage(OutboxPageSize, (page-1)*OutboxPageSize)
	if err != nil {
		return nil, err
	}

	items := make([]*Activity, 0, len(*messages))
	for i := range *messages {
		items = append(items, f.SynthesizeActivity(&(*messages)[i]))
	}

	outboxIRI := f.identity.OutboxIRI()
	result := &OrderedCollectionPage{
		Context:      ActivityStreamsContext,
		ID:           fmt.Sprintf("%s?page=%d", outboxIRI, page),
		Type:         "OrderedCollectionPage",
		PartOf:       outboxIRI,
		OrderedItems: items,
	}
	if page > 1 {
		result.Prev = fmt.Sprintf("%s?page=%d", outboxIRI, page-1)
	}
	if page < last {
		result.Next = fmt.Sprintf("%s?page=%d", outboxIRI, page+1)
	}

	return result, nil
}

func lastPage(total int) int {
	if total == 0 {
		return 1
	}
	return (total + OutboxPageSize - 1) / OutboxPageSize
}
