package gateway

import (
	"context"

	"github.com/irdash/backend/internal/domain/shared"
)

// Unconfigured is the gateway used when no endpoint or access key is set.
// Every data operation fails with a configuration error.
type Unconfigured struct{}

var (
	_ Gateway       = Unconfigured{}
	_ Authenticator = Unconfigured{}
)

func (Unconfigured) Count(context.Context, string, Filter) (int64, error) {
	return 0, shared.NewConfigurationError("count", nil)
}

func (Unconfigured) FetchRange(context.Context, string, Filter, Order, int, int) ([]Row, error) {
	return nil, shared.NewConfigurationError("fetch_range", nil)
}

func (Unconfigured) FetchAll(context.Context, string, Filter, Order) ([]Row, error) {
	return nil, shared.NewConfigurationError("fetch_all", nil)
}

func (Unconfigured) Insert(context.Context, string, Row) (Row, error) {
	return nil, shared.NewConfigurationError("insert", nil)
}

func (Unconfigured) Update(context.Context, string, string, Row) (Row, error) {
	return nil, shared.NewConfigurationError("update", nil)
}

func (Unconfigured) SoftDelete(context.Context, string, string) error {
	return shared.NewConfigurationError("soft_delete", nil)
}

func (Unconfigured) SubscribeToChanges(string, func()) (Subscription, error) {
	return nil, shared.NewConfigurationError("subscribe", nil)
}

func (Unconfigured) SignIn(context.Context, string, string) (*Session, error) {
	return nil, shared.NewConfigurationError("sign_in", nil)
}

func (Unconfigured) SignOut(context.Context, string) error {
	return shared.NewConfigurationError("sign_out", nil)
}

// GetSession reports no session rather than failing, so an unconfigured
// deployment renders as signed out.
func (Unconfigured) GetSession(context.Context, string) (*Session, error) {
	return nil, nil
}
