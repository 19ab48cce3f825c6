// Package mocks provides test doubles for the dbpedia client.
package mocks

import (
	"context"

	mock "github.com/stretchr/testify/mock"

	model "github.com/curasense/triage-cli/internal/model"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// LookupAbstract provides a mock function with given fields: ctx, conditionName
func (_m *MockClient) LookupAbstract(ctx context.Context, conditionName string) (model.LookupResult, error) {
	ret := _m.Called(ctx, conditionName)

	if len(ret) == 0 {
		panic("no return value specified for LookupAbstract")
	}

	var r0 model.LookupResult
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (model.LookupResult, error)); ok {
		return rf(ctx, conditionName)
	}
	if rf, ok := ret.Get(0).(func(context.Context, string) model.LookupResult); ok {
		r0 = rf(ctx, conditionName)
	} else {
		r0 = ret.Get(0).(model.LookupResult)
	}

	if rf, ok := ret.Get(1).(func(context.Context, string) error); ok {
		r1 = rf(ctx, conditionName)
	} else {
		r1 = ret.Error(1)
	}

	return r0, r1
}

// NewMockClient creates a new instance of MockClient. It also registers a
// testing interface on the mock and a cleanup function to assert the mocks
// expectations.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
