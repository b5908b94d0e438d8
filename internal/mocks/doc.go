// Package mocks provides hand-written test doubles for the store, service
// and auth interfaces.
//
// Each mock has one function field per method. Unset fields fall back to a
// canned value or DefaultError, so a test only stubs what it exercises:
//
//	users := &mocks.MockUserService{
//		GetUserBySSOIDFn: func(ctx context.Context, ssoID string) (*domain.User, error) {
//			return nil, store.ErrUserNotFound
//		},
//	}
//
// MockUserStore also works as an in-memory store when no functions are set.
// TestifyMockUserStore is the testify/mock variant for tests that assert
// on call expectations.
package mocks
