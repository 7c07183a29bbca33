// Package httpapi is the HTTP surface of the kanban server: an ordered
// pipeline of request stages in front of the task and account routes.
//
// Stages and handlers return errors instead of writing failure responses
// themselves; the ErrorTranslator stage turns every error into the single
// outward response for it.
package httpapi

import (
	"context"
	"net/http"
)

// HandlerFunc serves a request and reports a failure instead of writing it.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Stage is one step of the pipeline. It either answers the request itself
// or calls next, and returns next's error unless it handles it.
type Stage interface {
	Handle(w http.ResponseWriter, r *http.Request, next HandlerFunc) error
}

// StageFunc adapts a function to Stage.
type StageFunc func(w http.ResponseWriter, r *http.Request, next HandlerFunc) error

func (f StageFunc) Handle(w http.ResponseWriter, r *http.Request, next HandlerFunc) error {
	return f(w, r, next)
}

// Pipeline runs its stages in order, then the final handler.
type Pipeline struct {
	stages []Stage
	final  HandlerFunc
}

func NewPipeline(final HandlerFunc, stages ...Stage) *Pipeline {
	return &Pipeline{stages: stages, final: final}
}

func (p *Pipeline) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := p.at(0)(w, r); err != nil {
		// only reachable when no stage translates errors
		http.Error(w, msgBadRequest, http.StatusBadRequest)
	}
}

func (p *Pipeline) at(i int) HandlerFunc {
	if i == len(p.stages) {
		return p.final
	}
	return func(w http.ResponseWriter, r *http.Request) error {
		return p.stages[i].Handle(w, r, p.at(i+1))
	}
}

// errorSlot carries a handler's error back out through an http.Handler
// (the router) to the pipeline.
type errorSlot struct {
	err error
}

type errorSlotKey struct{}

// Routed makes an http.Handler the final step of a pipeline. Handlers
// registered with Handle report their errors through it.
func Routed(h http.Handler) HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) error {
		slot := &errorSlot{}
		h.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), errorSlotKey{}, slot)))
		return slot.err
	}
}

// Handle adapts an error-returning handler for a router mounted with Routed.
func Handle(fn HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err == nil {
			return
		}
		if slot, ok := r.Context().Value(errorSlotKey{}).(*errorSlot); ok {
			slot.err = err
			return
		}
		http.Error(w, msgBadRequest, http.StatusBadRequest)
	}
}
