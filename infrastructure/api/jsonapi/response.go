// Package jsonapi shapes API responses as JSON:API documents
// (https://jsonapi.org/format/).
package jsonapi

import (
	"net/http"
	"strconv"
	"time"
)

// MediaType is the JSON:API content type.
const MediaType = "application/vnd.api+json"

// Document is a top-level JSON:API document. Exactly one of Data and
// Errors is set.
type Document struct {
	Data   any     `json:"data,omitempty"`
	Errors []Error `json:"errors,omitempty"`
	Meta   *Meta   `json:"meta,omitempty"`
	Links  *Links  `json:"links,omitempty"`
}

// Meta is free-form document metadata.
type Meta map[string]any

// Links are navigation links of a document or resource.
type Links struct {
	Self  string `json:"self,omitempty"`
	First string `json:"first,omitempty"`
	Prev  string `json:"prev,omitempty"`
	Next  string `json:"next,omitempty"`
	Last  string `json:"last,omitempty"`
}

// Resource is a typed, identified object with attributes.
type Resource struct {
	Type       string `json:"type"`
	ID         string `json:"id"`
	Attributes any    `json:"attributes"`
	Links      *Links `json:"links,omitempty"`
}

// Error is a JSON:API error object. Status is the HTTP code as a string.
type Error struct {
	ID     string `json:"id,omitempty"`
	Status string `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail,omitempty"`
}

// NewResource builds a resource.
func NewResource(kind, id string, attrs any) *Resource {
	return &Resource{Type: kind, ID: id, Attributes: attrs}
}

// Single wraps one resource.
func Single(r *Resource) *Document {
	return &Document{Data: r}
}

// List wraps a resource list. An empty list is encoded as [].
func List(rs []*Resource) *Document {
	if rs == nil {
		rs = []*Resource{}
	}
	return &Document{Data: rs}
}

// Errors wraps error objects.
func Errors(errs ...Error) *Document {
	return &Document{Errors: errs}
}

// NewError builds an error object for an HTTP status. An empty title
// defaults to the status text.
func NewError(status int, title, detail string) Error {
	if title == "" {
		title = http.StatusText(status)
	}
	return Error{Status: strconv.Itoa(status), Title: title, Detail: detail}
}

// Timestamp formats t as RFC 3339 in UTC.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
