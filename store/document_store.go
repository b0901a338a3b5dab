package store

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/gcbaptista/go-facet-search/model"
)

// DocumentStore keeps the documents of one shard.
// Callers hold Mu: write lock for Put/Delete/Reset, read lock for everything else.
type DocumentStore struct {
	Mu                     sync.RWMutex
	Docs                   map[uint32]model.Document // Internal ID to full document
	ExternalIDtoInternalID map[string]uint32         // User-provided ID to internal uint32 ID
	NextID                 uint32
	Live                   *roaring.Bitmap // Internal IDs of stored documents
}

// NewDocumentStore creates an empty store.
func NewDocumentStore() *DocumentStore {
	ds := &DocumentStore{}
	ds.Reset()
	return ds
}

// Reset drops every document. Internal IDs are not reused.
func (ds *DocumentStore) Reset() {
	ds.Docs = make(map[uint32]model.Document)
	ds.ExternalIDtoInternalID = make(map[string]uint32)
	ds.Live = roaring.New()
}

// Put inserts or replaces a document by its external ID.
// A replaced document keeps its internal ID and is returned as previous.
func (ds *DocumentStore) Put(doc model.Document) (internalID uint32, previous model.Document, replaced bool) {
	if existingID, ok := ds.ExternalIDtoInternalID[doc.ID]; ok {
		previous = ds.Docs[existingID]
		ds.Docs[existingID] = doc
		return existingID, previous, true
	}

	internalID = ds.NextID
	ds.NextID++
	ds.Docs[internalID] = doc
	ds.ExternalIDtoInternalID[doc.ID] = internalID
	ds.Live.Add(internalID)
	return internalID, model.Document{}, false
}

// Get returns the document stored under an external ID.
func (ds *DocumentStore) Get(externalID string) (model.Document, uint32, bool) {
	internalID, ok := ds.ExternalIDtoInternalID[externalID]
	if !ok {
		return model.Document{}, 0, false
	}
	return ds.Docs[internalID], internalID, true
}

// Delete removes the document stored under an external ID and returns it.
func (ds *DocumentStore) Delete(externalID string) (model.Document, uint32, bool) {
	internalID, ok := ds.ExternalIDtoInternalID[externalID]
	if !ok {
		return model.Document{}, 0, false
	}
	doc := ds.Docs[internalID]
	delete(ds.Docs, internalID)
	delete(ds.ExternalIDtoInternalID, externalID)
	ds.Live.Remove(internalID)
	return doc, internalID, true
}

// ByInternalID returns the document with the given internal ID.
func (ds *DocumentStore) ByInternalID(internalID uint32) (model.Document, bool) {
	doc, ok := ds.Docs[internalID]
	return doc, ok
}

// Len returns the number of stored documents.
func (ds *DocumentStore) Len() int {
	return len(ds.Docs)
}
