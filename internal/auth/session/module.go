package session

import (
	"context"
	"io"

	"go.uber.org/fx"
)

// Module provides the session gate and the finalize ticket store
var Module = fx.Module("session",
	fx.Provide(
		NewGateFromConfig,
		NewTicketStore,
	),
	fx.Invoke(registerStoreShutdown),
)

func registerStoreShutdown(lc fx.Lifecycle, store TicketStore) {
	closer, ok := store.(io.Closer)
	if !ok {
		return
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			return closer.Close()
		},
	})
}
