package index

// Posting records one document containing a term and how often the term
// occurs in the document's field.
type Posting struct {
	DocID         uint32 // Internal numeric ID for efficiency
	TermFrequency int
}

// PostingList holds the postings of one (field, term) entry in insertion order.
type PostingList []Posting

// remove deletes the posting for docID, preserving the order of the others.
func (pl PostingList) remove(docID uint32) PostingList {
	for i, p := range pl {
		if p.DocID == docID {
			return append(pl[:i], pl[i+1:]...)
		}
	}
	return pl
}
