package model

import (
	"context"
	"fmt"
)

// MockModel is a scripted in-memory Model for tests and examples. Responses
// and errors are returned in the order they were enqueued; every request is
// recorded for later inspection.
type MockModel struct {
	info     Info
	script   []scriptStep
	requests []Request
}

type scriptStep struct {
	resp *Response
	err  error
}

// NewMockModel constructs an empty MockModel.
func NewMockModel() *MockModel {
	return &MockModel{info: Info{Name: "mock", Provider: "mock"}}
}

// Enqueue appends a scripted response.
func (m *MockModel) Enqueue(resp Response) *MockModel {
	m.script = append(m.script, scriptStep{resp: &resp})
	return m
}

// EnqueueError appends a scripted failure, e.g. to exercise retry handling.
func (m *MockModel) EnqueueError(err error) *MockModel {
	m.script = append(m.script, scriptStep{err: err})
	return m
}

// Requests returns every request seen so far in call order.
func (m *MockModel) Requests() []Request { return m.requests }

// LastRequest returns the most recent request, or false when none was made.
func (m *MockModel) LastRequest() (Request, bool) {
	if len(m.requests) == 0 {
		return Request{}, false
	}
	return m.requests[len(m.requests)-1], true
}

// Generate implements Model by replaying the script.
func (m *MockModel) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.requests = append(m.requests, req)
	if len(m.script) == 0 {
		return nil, fmt.Errorf("mock model script exhausted after %d requests", len(m.requests))
	}
	step := m.script[0]
	m.script = m.script[1:]
	if step.err != nil {
		return nil, step.err
	}
	return step.resp, nil
}

// Info implements Model.
func (m *MockModel) Info() Info { return m.info }
