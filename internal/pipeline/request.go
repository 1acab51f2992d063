package pipeline

import (
	"errors"
	"net/url"

	"github.com/kalambet/ecoswap/internal/items"
)

// ErrInvalidRequest is returned when a request matches neither the search
// nor the submit shape.
var ErrInvalidRequest = errors.New("invalid request")

// Request is a parsed orchestrator request: SearchRequest or SubmitRequest.
type Request interface {
	isRequest()
}

// SearchRequest asks for the records closest to Query.
type SearchRequest struct {
	Query string
}

// SubmitRequest appends Record to the store. Strict enables the format
// checks of items.Record.ValidateStrict.
type SubmitRequest struct {
	Record items.Record
	Strict bool
}

func (SearchRequest) isRequest() {}
func (SubmitRequest) isRequest() {}

// ParseLegacy decides the request variant from query parameters the way the
// legacy GET endpoint always has: all five record fields present means submit,
// otherwise a query parameter means search. Presence is what counts: empty
// record fields are rejected later by validation, and an empty query is a
// valid search.
func ParseLegacy(q url.Values) (Request, error) {
	allFields := true
	for _, name := range items.FieldNames {
		if !q.Has(name) {
			allFields = false
			break
		}
	}
	if allFields {
		return SubmitRequest{Record: items.Record{
			ProductName:  q.Get("productname"),
			Description:  q.Get("description"),
			ContactName:  q.Get("name"),
			ContactEmail: q.Get("email"),
			ContactPhone: q.Get("phonenum"),
		}}, nil
	}
	if q.Has("query") {
		return SearchRequest{Query: q.Get("query")}, nil
	}
	return nil, ErrInvalidRequest
}
