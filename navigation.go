package goSession

import "context"

// Destination is a navigation target the Manager asks the host to show.
type Destination string

const (
	DestinationAdminHome Destination = "admin_home"
	DestinationUserHome  Destination = "user_home"
	DestinationLogin     Destination = "login"
)

// Navigator moves the host application to a destination. Implementations must not call
// back into the Manager synchronously in a way that waits on it.
type Navigator interface {
	Navigate(ctx context.Context, dest Destination)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, dest Destination)

// Navigate calls f.
func (f NavigatorFunc) Navigate(ctx context.Context, dest Destination) {
	f(ctx, dest)
}

type noopNavigator struct{}

func (noopNavigator) Navigate(context.Context, Destination) {}
