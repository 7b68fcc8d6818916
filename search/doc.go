// Package search answers advocate directory queries.
//
// # Flow
//
// Service.Search normalizes page and limit, then picks a path. Blank text
// lists every advocate. Any other text goes through ValidateQuery, which
// rejects empty, overlong and deny-listed input and returns the sanitized
// form. Rejected queries never reach the cache or the store.
//
// The sanitized text becomes a Predicate. Rows and count are fetched in
// parallel through the cached Reader and combined with Paginate:
//
//	svc := search.NewService(reader)
//	resp, err := svc.Search(ctx, search.Request{Search: "smith", Page: 1})
//
// # Matching
//
// A record matches when the text is a case-insensitive substring of its first
// name, last name, city, degree, phone number or serialized specialties. When
// the text is a whole number, records whose years of experience equal it
// match too.
//
// # Errors
//
// Rejections are go-errors validation errors carrying a client safe reason
// (see Reason). Store and cache failures become StoreError, whose message
// never includes the underlying cause.
package search
