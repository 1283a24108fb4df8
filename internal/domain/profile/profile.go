package profile

import "context"

// PlaceholderName is used whenever a display name cannot be resolved.
const PlaceholderName = "Guest"

// Resolver looks up a chat user's display name.
type Resolver interface {
	ResolveDisplayName(ctx context.Context, userID string) (string, error)
}

// Static resolves every user to the same name.
type Static string

func (s Static) ResolveDisplayName(context.Context, string) (string, error) {
	if s == "" {
		return PlaceholderName, nil
	}
	return string(s), nil
}
