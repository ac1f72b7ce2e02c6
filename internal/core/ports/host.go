package ports

import (
	"context"

	"kilometers.ai/standin/internal/core/launch"
)

// Launcher is the host platform's plain launch primitive. It is only ever
// handed requests that already target a placeholder component.
type Launcher interface {
	Launch(ctx context.Context, req *launch.Request) error
}

// ResultLauncher is the host platform's result-aware launch primitive. The
// request code is echoed back to the caller when the launched component
// finishes; delivering that result is outside this module.
type ResultLauncher interface {
	LaunchForResult(ctx context.Context, req *launch.Request, requestCode int) error
}

// LauncherFunc adapts a function to the Launcher interface
type LauncherFunc func(ctx context.Context, req *launch.Request) error

// Launch calls f(ctx, req)
func (f LauncherFunc) Launch(ctx context.Context, req *launch.Request) error {
	return f(ctx, req)
}

// ResultLauncherFunc adapts a function to the ResultLauncher interface
type ResultLauncherFunc func(ctx context.Context, req *launch.Request, requestCode int) error

// LaunchForResult calls f(ctx, req, requestCode)
func (f ResultLauncherFunc) LaunchForResult(ctx context.Context, req *launch.Request, requestCode int) error {
	return f(ctx, req, requestCode)
}
